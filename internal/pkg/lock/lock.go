package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrEmptyKey is returned when WithLock is called without a key.
	ErrEmptyKey = errors.New("lock key cannot be empty")
	// ErrNilFn is returned when WithLock is called without a function.
	ErrNilFn = errors.New("lock function is nil")
)

// Locker serializes work on a single entity key.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

// Options tunes distributed lock acquisition.
type Options struct {
	Expiry      time.Duration
	Tries       int
	RetryDelay  time.Duration
	DriftFactor float64
}

// DefaultOptions returns options for the given expiry.
func DefaultOptions(expiry time.Duration) Options {
	if expiry <= 0 {
		expiry = 10 * time.Second
	}
	return Options{
		Expiry:      expiry,
		Tries:       32,
		RetryDelay:  100 * time.Millisecond,
		DriftFactor: 0.01,
	}
}

// ApplicationKey is the lock key of an application.
func ApplicationKey(id int64) string { return fmt.Sprintf("application:%d", id) }

// WithdrawalKey is the lock key of a withdrawal request.
func WithdrawalKey(id int64) string { return fmt.Sprintf("withdrawal:%d", id) }

// UserKey is the lock key of a user's balance.
func UserKey(id int64) string { return fmt.Sprintf("user:%d", id) }

func validate(key string, fn func(context.Context) error) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	if fn == nil {
		return ErrNilFn
	}
	return nil
}
