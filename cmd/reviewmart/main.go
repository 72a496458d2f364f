package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/fx"

	"github.com/polkiloo/reviewmart/internal/config"
	"github.com/polkiloo/reviewmart/internal/di"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	var cfg *config.Config
	app := fx.New(
		fx.Provide(func() context.Context { return ctx }),
		di.Module(),
		fx.Populate(&cfg),
	)

	code := run(ctx, app, stopTimeout(cfg), os.Stderr)
	stop()
	os.Exit(code)
}
