package auth

import "time"

// Strategy issues and verifies operator bearer tokens.
type Strategy interface {
	IssueToken(operatorID int64) (string, error)
	ParseToken(token string) (int64, error)
	Name() string
}

type Options struct {
	TTL    time.Duration
	Issuer string
}
