package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid auth token")

const defaultIssuer = "reviewmart"

// Claims carries the operator identity inside a token.
type Claims struct {
	OperatorID int64 `json:"operator_id"`
	jwt.RegisteredClaims
}

// JWTStrategy signs HS256 tokens for engine operators.
type JWTStrategy struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewJWTStrategy builds JWTStrategy with provided secret and options.
func NewJWTStrategy(secret string, opts Options) *JWTStrategy {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	issuer := opts.Issuer
	if issuer == "" {
		issuer = defaultIssuer
	}
	return &JWTStrategy{secret: []byte(secret), ttl: ttl, issuer: issuer}
}

// IssueToken generates a signed token for the operator.
func (s *JWTStrategy) IssueToken(operatorID int64) (string, error) {
	now := time.Now()
	claims := Claims{
		OperatorID: operatorID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(operatorID, 10),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseToken validates token and returns the operator ID it carries.
func (s *JWTStrategy) ParseToken(token string) (int64, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.OperatorID <= 0 {
		return 0, ErrInvalidToken
	}
	return claims.OperatorID, nil
}

func (s *JWTStrategy) Name() string {
	return "jwt"
}
