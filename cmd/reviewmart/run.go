package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/fx"

	"github.com/polkiloo/reviewmart/internal/config"
)

// application is the part of *fx.App that run drives.
type application interface {
	Err() error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Wait() <-chan fx.ShutdownSignal
}

// stopTimeout leaves a second on top of the HTTP drain for the other hooks.
func stopTimeout(cfg *config.Config) time.Duration {
	if cfg == nil || cfg.ShutdownTimeout <= 0 {
		return fx.DefaultTimeout
	}
	return cfg.ShutdownTimeout + time.Second
}

// run starts app and blocks until ctx is done or a component asks fx to shut
// down. It returns the process exit code.
func run(ctx context.Context, app application, stopAfter time.Duration, stderr io.Writer) int {
	if err := app.Err(); err != nil {
		fmt.Fprintf(stderr, "reviewmart: invalid setup: %v\n", err)
		return 2
	}
	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(stderr, "reviewmart: start: %v\n", err)
		return 1
	}

	code := 0
	select {
	case <-ctx.Done():
	case sig := <-app.Wait():
		code = sig.ExitCode
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), stopAfter)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Fprintf(stderr, "reviewmart: stop: %v\n", err)
		if code == 0 {
			code = 1
		}
	}
	return code
}
