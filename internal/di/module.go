package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/reviewmart/internal/adapter/campaign"
	"github.com/polkiloo/reviewmart/internal/adapter/notify"
	"github.com/polkiloo/reviewmart/internal/app"
	"github.com/polkiloo/reviewmart/internal/config"
	"github.com/polkiloo/reviewmart/internal/logger"
	"github.com/polkiloo/reviewmart/internal/pkg/auth"
	"github.com/polkiloo/reviewmart/internal/pkg/lock"
	"github.com/polkiloo/reviewmart/internal/server/http/handlers"
	"github.com/polkiloo/reviewmart/internal/server/http/middleware"
	"github.com/polkiloo/reviewmart/internal/server/http/router"
	"github.com/polkiloo/reviewmart/internal/storage/postgres"
	"github.com/polkiloo/reviewmart/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		auth.Module,
		postgres.Module,
		lock.Module,
		campaign.Module,
		notify.Module,
		usecase.Module,
		fx.Provide(
			func(client campaign.Client) usecase.CampaignProvider { return client },
			func(publisher notify.Publisher) usecase.EventPublisher { return publisher },
			func(strategy auth.Strategy) middleware.TokenParser { return strategy },
			func(facade *app.EngineFacade) handlers.EngineFacade { return facade },
			func(storage *postgres.Storage) handlers.HealthChecker { return storage },
		),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
