package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestNewJWTStrategy_Defaults(t *testing.T) {
	strategy := NewJWTStrategy("secret", Options{})
	if strategy.ttl != 24*time.Hour {
		t.Fatalf("unexpected ttl: %s", strategy.ttl)
	}
	if strategy.issuer != defaultIssuer {
		t.Fatalf("unexpected issuer: %s", strategy.issuer)
	}
	if strategy.Name() != "jwt" {
		t.Fatalf("unexpected name: %s", strategy.Name())
	}
}

func TestJWTStrategy_IssueAndParse(t *testing.T) {
	strategy := NewJWTStrategy("secret", Options{TTL: time.Minute})
	token, err := strategy.IssueToken(42)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	operatorID, err := strategy.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if operatorID != 42 {
		t.Fatalf("unexpected operator id: %d", operatorID)
	}
}

func TestJWTStrategy_RejectsForeignSecret(t *testing.T) {
	token, err := NewJWTStrategy("other", Options{}).IssueToken(1)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := NewJWTStrategy("secret", Options{}).ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTStrategy_RejectsForeignIssuer(t *testing.T) {
	token, err := NewJWTStrategy("secret", Options{Issuer: "elsewhere"}).IssueToken(1)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := NewJWTStrategy("secret", Options{}).ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTStrategy_RejectsExpired(t *testing.T) {
	strategy := NewJWTStrategy("secret", Options{})
	claims := Claims{
		OperatorID: 10,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    defaultIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := strategy.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTStrategy_RejectsMissingOperator(t *testing.T) {
	strategy := NewJWTStrategy("secret", Options{})
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    defaultIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := strategy.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTStrategy_RejectsGarbage(t *testing.T) {
	strategy := NewJWTStrategy("secret", Options{})
	if _, err := strategy.ParseToken("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
