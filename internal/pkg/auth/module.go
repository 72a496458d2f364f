package auth

import (
	"go.uber.org/fx"

	"github.com/polkiloo/reviewmart/internal/config"
)

// Module provides the operator token Strategy.
var Module = fx.Module("auth", fx.Provide(newTokenStrategy))

type strategyParams struct {
	fx.In

	Config *config.Config
}

// newTokenStrategy signs with the configured secret; tokens name this service
// as issuer and live for the configured TTL.
func newTokenStrategy(p strategyParams) Strategy {
	return NewJWTStrategy(p.Config.JWTSecret, Options{
		TTL:    p.Config.TokenTTL,
		Issuer: defaultIssuer,
	})
}
