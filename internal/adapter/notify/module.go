package notify

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/reviewmart/internal/config"
)

// Module provides the transition event Publisher.
var Module = fx.Provide(newPublisher)

type publisherParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *slog.Logger
}

func newPublisher(p publisherParams) Publisher {
	if p.Config.AMQPURL == "" {
		p.Logger.Info("amqp url not set; transition events are logged only")
		return NewLogPublisher(p.Logger)
	}

	publisher, err := NewAMQPPublisher(p.Config.AMQPURL, p.Config.EventsExchange, p.Logger)
	if err != nil {
		p.Logger.Warn("amqp unavailable; transition events are logged only", slog.Any("error", err))
		return NewLogPublisher(p.Logger)
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return publisher.Close()
		},
	})
	return publisher
}
