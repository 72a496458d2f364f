package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/polkiloo/reviewmart/internal/config"
)

const serviceName = "reviewmart"

// New builds the service logger at the configured level. Every record carries
// the service name.
func New(cfg *config.Config) (*slog.Logger, error) {
	return newLogger(os.Stdout, cfg.LogLevel)
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if level = strings.TrimSpace(level); level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler).With(slog.String("service", serviceName)), nil
}
