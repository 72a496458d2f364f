package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress             string
	DatabaseURI            string
	CampaignServiceAddress string
	JWTSecret              string
	SweepInterval          time.Duration
	SweepBatchSize         int
	WorkerPoolSize         int
	ShutdownTimeout        time.Duration
	WithdrawalTaxRate      decimal.Decimal
	MaxReviewResubmissions int
	RedisAddr              string
	RedisPassword          string
	LockTTL                time.Duration
	AMQPURL                string
	EventsExchange         string
	LogLevel               string
	TokenTTL               time.Duration
}

const (
	defaultRunAddress      = ":8080"
	defaultJWTSecret       = "change-me-in-production"
	defaultSweepInterval   = time.Minute
	defaultSweepBatchSize  = 100
	defaultWorkerPoolSize  = 4
	defaultShutdownTimeout = 10 * time.Second
	defaultTaxRate         = "0.033"
	defaultLockTTL         = 10 * time.Second
	defaultEventsExchange  = "engine_events"
	defaultLogLevel        = "info"
	defaultTokenTTL        = 24 * time.Hour
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:             getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:            getString(lookup, "DATABASE_URI", ""),
		CampaignServiceAddress: getString(lookup, "CAMPAIGN_SERVICE_ADDRESS", ""),
		JWTSecret:              getString(lookup, "JWT_SECRET", defaultJWTSecret),
		SweepInterval:          getDuration(lookup, "SWEEP_INTERVAL", defaultSweepInterval),
		SweepBatchSize:         getInt(lookup, "SWEEP_BATCH_SIZE", defaultSweepBatchSize),
		WorkerPoolSize:         getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		ShutdownTimeout:        getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		MaxReviewResubmissions: getInt(lookup, "MAX_REVIEW_RESUBMISSIONS", 0),
		RedisAddr:              getString(lookup, "REDIS_ADDR", ""),
		RedisPassword:          getString(lookup, "REDIS_PASSWORD", ""),
		LockTTL:                getDuration(lookup, "LOCK_TTL", defaultLockTTL),
		AMQPURL:                getString(lookup, "AMQP_URL", ""),
		EventsExchange:         getString(lookup, "EVENTS_EXCHANGE", defaultEventsExchange),
		LogLevel:               getString(lookup, "LOG_LEVEL", defaultLogLevel),
		TokenTTL:               getDuration(lookup, "TOKEN_TTL", defaultTokenTTL),
	}

	fs := flag.NewFlagSet("reviewmart", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		sweepIntervalStr   = cfg.SweepInterval.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
		lockTTLStr         = cfg.LockTTL.String()
		tokenTTLStr        = cfg.TokenTTL.String()
		taxRateStr         = getString(lookup, "WITHDRAWAL_TAX_RATE", defaultTaxRate)
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.CampaignServiceAddress, "c", cfg.CampaignServiceAddress, "Campaign service base URL")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "Secret for verifying operator tokens")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent repair workers")
	fs.StringVar(&sweepIntervalStr, "sweep-interval", sweepIntervalStr, "Interval between reconciliation sweeps")
	fs.IntVar(&cfg.SweepBatchSize, "sweep-batch", cfg.SweepBatchSize, "Rows fetched per sweep page")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.StringVar(&taxRateStr, "tax-rate", taxRateStr, "Withdrawal tax rate in [0,1)")
	fs.IntVar(&cfg.MaxReviewResubmissions, "max-resubmissions", cfg.MaxReviewResubmissions, "Review resubmission limit, 0 for unlimited")
	fs.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address for distributed locks")
	fs.StringVar(&lockTTLStr, "lock-ttl", lockTTLStr, "Entity lock expiry")
	fs.StringVar(&tokenTTLStr, "token-ttl", tokenTTLStr, "Lifetime of issued operator tokens")
	fs.StringVar(&cfg.AMQPURL, "amqp", cfg.AMQPURL, "AMQP broker URL for transition events")
	fs.StringVar(&cfg.EventsExchange, "events-exchange", cfg.EventsExchange, "AMQP exchange for transition events")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Minimum log level: debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.SweepInterval, err = time.ParseDuration(sweepIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid sweep interval: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if cfg.LockTTL, err = time.ParseDuration(lockTTLStr); err != nil {
		return nil, fmt.Errorf("invalid lock ttl: %w", err)
	}

	if cfg.TokenTTL, err = time.ParseDuration(tokenTTLStr); err != nil {
		return nil, fmt.Errorf("invalid token ttl: %w", err)
	}

	if cfg.WithdrawalTaxRate, err = decimal.NewFromString(taxRateStr); err != nil {
		return nil, fmt.Errorf("invalid tax rate: %w", err)
	}
	if cfg.WithdrawalTaxRate.IsNegative() || cfg.WithdrawalTaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("invalid tax rate: %s is outside [0,1)", taxRateStr)
	}

	if secretFile, ok := lookup("JWT_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read jwt secret file: %w", err)
		}
		cfg.JWTSecret = string(content)
	}

	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}

	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = defaultSweepBatchSize
	}

	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}

	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}

	if cfg.MaxReviewResubmissions < 0 {
		cfg.MaxReviewResubmissions = 0
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	if cfg.CampaignServiceAddress == "" {
		return nil, fmt.Errorf("campaign service address must be provided")
	}

	return cfg, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
