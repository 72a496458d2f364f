package app

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/reviewmart/internal/config"
	"github.com/polkiloo/reviewmart/internal/worker"
)

// Module provides the engine facade, the operator API server and the
// reconciliation sweeper, and binds the last two to the fx lifecycle.
var Module = fx.Options(
	fx.Provide(
		NewEngineFacade,
		newHTTPServer,
		newSweeper,
	),
	fx.Invoke(serveOperatorAPI, runSweeper),
)

const readHeaderTimeout = 5 * time.Second

var listen = net.Listen

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:              p.Config.RunAddress,
		Handler:           p.Router,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

type workerParams struct {
	fx.In

	Facade *EngineFacade
	Config *config.Config
	Logger *slog.Logger
}

func newSweeper(p workerParams) *worker.Sweeper {
	return worker.NewSweeper(
		p.Facade,
		p.Config.SweepInterval,
		p.Config.SweepBatchSize,
		p.Config.WorkerPoolSize,
		p.Logger,
	)
}

type apiLifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Config     *config.Config
}

// serveOperatorAPI binds the listener during start so a bad address fails the
// start. A serve error after that shuts the application down.
func serveOperatorAPI(p apiLifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := listen("tcp", p.Server.Addr)
			if err != nil {
				return err
			}
			p.Logger.Info("operator api listening", slog.String("addr", ln.Addr().String()))
			go func() {
				if err := p.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("operator api stopped serving", slog.Any("error", err))
					_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
				defer cancel()
			}
			if err := p.Server.Shutdown(ctx); err != nil {
				return err
			}
			p.Logger.Info("operator api drained")
			return nil
		},
	})
}

type sweeperLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Logger    *slog.Logger
	Worker    *worker.Sweeper
}

// runSweeper is registered after the API, so fx stops it first.
func runSweeper(p sweeperLifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// ctx only lives until fx finishes starting.
			p.Worker.Start(context.WithoutCancel(ctx))
			return nil
		},
		OnStop: func(context.Context) error {
			p.Worker.Stop()
			p.Logger.Info("reconciliation sweeper stopped")
			return nil
		},
	})
}
