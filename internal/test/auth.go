package test

import (
	pkgAuth "github.com/polkiloo/reviewmart/internal/pkg/auth"
)

// TokenParserStub resolves tokens to ID. With Token set, any other token is
// rejected as invalid. Err overrides both.
type TokenParserStub struct {
	ID    int64
	Token string
	Err   error
}

// ParseToken implements middleware.TokenParser.
func (s TokenParserStub) ParseToken(token string) (int64, error) {
	switch {
	case s.Err != nil:
		return 0, s.Err
	case s.Token != "" && token != s.Token:
		return 0, pkgAuth.ErrInvalidToken
	}
	return s.ID, nil
}
