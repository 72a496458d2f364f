package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polkiloo/reviewmart/internal/domain/repository"
)

const uniqueViolation = "23505"

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   pgxPool
	logger *slog.Logger
}

type rowScanner interface {
	Scan(dest ...any) error
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Factory methods for domain repositories.
func (s *Storage) Applications() repository.ApplicationRepository {
	return &applicationRepository{storage: s}
}

func (s *Storage) Reviews() repository.ReviewRepository {
	return &reviewRepository{storage: s}
}

func (s *Storage) Ledger() repository.LedgerRepository {
	return &ledgerRepository{storage: s}
}

func (s *Storage) Balances() repository.BalanceRepository {
	return &balanceRepository{storage: s}
}

func (s *Storage) Withdrawals() repository.WithdrawalRepository {
	return &withdrawalRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS applications (
            id BIGSERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL,
            campaign_id BIGINT NOT NULL,
            status TEXT NOT NULL,
            reward_points BIGINT,
            reason TEXT,
            resubmissions INTEGER NOT NULL DEFAULT 0,
            applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            approved_at TIMESTAMPTZ,
            shipped_at TIMESTAMPTZ,
            reviewed_at TIMESTAMPTZ,
            rewarded_at TIMESTAMPTZ,
            archived_at TIMESTAMPTZ,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE (user_id, campaign_id)
        )`,
		`CREATE TABLE IF NOT EXISTS review_submissions (
            id BIGSERIAL PRIMARY KEY,
            application_id BIGINT NOT NULL REFERENCES applications(id),
            version INTEGER NOT NULL,
            content_refs TEXT[] NOT NULL DEFAULT '{}',
            status TEXT NOT NULL,
            rejection_reason TEXT,
            active BOOLEAN NOT NULL DEFAULT TRUE,
            submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            decided_at TIMESTAMPTZ,
            UNIQUE (application_id, version)
        )`,
		`CREATE TABLE IF NOT EXISTS withdrawal_requests (
            id BIGSERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL,
            points BIGINT NOT NULL CHECK (points > 0),
            tax BIGINT NOT NULL,
            net_payout BIGINT NOT NULL,
            destination TEXT NOT NULL,
            status TEXT NOT NULL,
            admin_note TEXT NOT NULL DEFAULT '',
            requested_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            processed_at TIMESTAMPTZ,
            completed_at TIMESTAMPTZ
        )`,
		`CREATE TABLE IF NOT EXISTS ledger_entries (
            id BIGSERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL,
            application_id BIGINT REFERENCES applications(id),
            withdrawal_id BIGINT REFERENCES withdrawal_requests(id),
            kind TEXT NOT NULL,
            amount BIGINT NOT NULL CHECK (amount <> 0),
            status TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            idempotency_key TEXT NOT NULL UNIQUE,
            reversal_of BIGINT REFERENCES ledger_entries(id),
            reversed_kind TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS user_points_balance (
            user_id BIGINT PRIMARY KEY,
            available BIGINT NOT NULL DEFAULT 0,
            earned BIGINT NOT NULL DEFAULT 0,
            withdrawn BIGINT NOT NULL DEFAULT 0,
            held BIGINT NOT NULL DEFAULT 0,
            stale BOOLEAN NOT NULL DEFAULT FALSE,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE OR REPLACE FUNCTION ledger_entries_append_only() RETURNS trigger AS $$
        BEGIN
            IF TG_OP = 'DELETE' THEN
                RAISE EXCEPTION 'ledger entries are append-only';
            END IF;
            IF NEW.amount <> OLD.amount OR NEW.kind <> OLD.kind OR NEW.user_id <> OLD.user_id
                OR NEW.idempotency_key <> OLD.idempotency_key THEN
                RAISE EXCEPTION 'ledger entry % is immutable', OLD.id;
            END IF;
            RETURN NEW;
        END
        $$ LANGUAGE plpgsql`,
		`DROP TRIGGER IF EXISTS trg_ledger_entries_append_only ON ledger_entries`,
		`CREATE TRIGGER trg_ledger_entries_append_only BEFORE UPDATE OR DELETE ON ledger_entries
            FOR EACH ROW EXECUTE FUNCTION ledger_entries_append_only()`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_review_submissions_active ON review_submissions(application_id) WHERE active`,
		`CREATE INDEX IF NOT EXISTS idx_applications_status ON applications(status, id)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_entries_user ON ledger_entries(user_id, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_entries_withdrawal ON ledger_entries(withdrawal_id)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_entries_application ON ledger_entries(application_id)`,
		`CREATE INDEX IF NOT EXISTS idx_withdrawal_requests_status ON withdrawal_requests(status, id)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Logger returns storage logger.
func (s *Storage) Logger() *slog.Logger {
	return s.logger
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
