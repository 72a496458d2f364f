package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/reviewmart/internal/domain/errors"
	"github.com/polkiloo/reviewmart/internal/domain/model"
)

const ledgerColumns = `id, user_id, application_id, withdrawal_id, kind, amount, status, description,
    idempotency_key, reversal_of, reversed_kind, created_at`

type ledgerRepository struct {
	storage *Storage
}

type balanceRepository struct {
	storage *Storage
}

func scanLedgerEntry(row rowScanner) (*model.LedgerEntry, error) {
	var (
		e            model.LedgerEntry
		reversedKind *string
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.ApplicationID, &e.WithdrawalID, &e.Kind, &e.Amount, &e.Status, &e.Description,
		&e.IdempotencyKey, &e.ReversalOf, &reversedKind, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.ReversedKind = model.EntryKind(derefString(reversedKind))
	return &e, nil
}

func (r *ledgerRepository) Insert(ctx context.Context, entry model.LedgerEntry) (*model.LedgerEntry, bool, error) {
	const query = `INSERT INTO ledger_entries (user_id, application_id, withdrawal_id, kind, amount, status, description,
                       idempotency_key, reversal_of, reversed_kind)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
                   ON CONFLICT (idempotency_key) DO NOTHING
                   RETURNING id, created_at`
	err := r.storage.pool.QueryRow(ctx, query, entry.UserID, entry.ApplicationID, entry.WithdrawalID, entry.Kind, entry.Amount,
		entry.Status, entry.Description, entry.IdempotencyKey, entry.ReversalOf, nullableString(string(entry.ReversedKind))).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			existing, err := r.GetByKey(ctx, entry.IdempotencyKey)
			if err != nil {
				return nil, false, err
			}
			return existing, false, nil
		}
		return nil, false, err
	}
	return &entry, true, nil
}

func (r *ledgerRepository) GetByID(ctx context.Context, id int64) (*model.LedgerEntry, error) {
	return r.getOne(ctx, `SELECT `+ledgerColumns+` FROM ledger_entries WHERE id=$1`, id)
}

func (r *ledgerRepository) GetByKey(ctx context.Context, key string) (*model.LedgerEntry, error) {
	return r.getOne(ctx, `SELECT `+ledgerColumns+` FROM ledger_entries WHERE idempotency_key=$1`, key)
}

func (r *ledgerRepository) getOne(ctx context.Context, query string, arg any) (*model.LedgerEntry, error) {
	entry, err := scanLedgerEntry(r.storage.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

func (r *ledgerRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]model.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE user_id=$1 ORDER BY id DESC LIMIT $2`
	return r.list(ctx, query, userID, limit)
}

func (r *ledgerRepository) ListByApplication(ctx context.Context, applicationID int64) ([]model.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE application_id=$1 ORDER BY id`
	return r.list(ctx, query, applicationID)
}

func (r *ledgerRepository) ListByWithdrawal(ctx context.Context, withdrawalID int64) ([]model.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE withdrawal_id=$1 ORDER BY id`
	return r.list(ctx, query, withdrawalID)
}

func (r *ledgerRepository) list(ctx context.Context, query string, args ...any) ([]model.LedgerEntry, error) {
	rows, err := r.storage.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.LedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *ledgerRepository) ResolvePending(ctx context.Context, id int64, status model.EntryStatus) error {
	const query = `UPDATE ledger_entries SET status=$2 WHERE id=$1 AND kind='pending' AND status='pending'`
	_, err := r.storage.pool.Exec(ctx, query, id, status)
	return err
}

func (r *ledgerRepository) Totals(ctx context.Context, userID int64) (model.Balance, error) {
	const query = `SELECT
            COALESCE(SUM(amount) FILTER (WHERE status='success'
                AND (kind='earned' OR (kind='reversal' AND reversed_kind='earned'))), 0),
            COALESCE(SUM(-amount) FILTER (WHERE status='success'
                AND (kind='withdrawn' OR (kind='reversal' AND reversed_kind='withdrawn'))), 0),
            COALESCE(SUM(-amount) FILTER (WHERE kind='pending' AND status='pending'), 0)
        FROM ledger_entries WHERE user_id=$1`
	var earned, withdrawn, held int64
	if err := r.storage.pool.QueryRow(ctx, query, userID).Scan(&earned, &withdrawn, &held); err != nil {
		return model.Balance{}, err
	}
	return model.NewBalance(userID, earned, withdrawn, held), nil
}

func (r *ledgerRepository) UserIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	const query = `SELECT DISTINCT user_id FROM ledger_entries WHERE user_id > $1 ORDER BY user_id LIMIT $2`
	rows, err := r.storage.pool.Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// --- BalanceRepository implementation ---

func (r *balanceRepository) Get(ctx context.Context, userID int64) (*model.Balance, error) {
	const query = `SELECT user_id, available, earned, withdrawn, held, stale, updated_at FROM user_points_balance WHERE user_id=$1`
	var b model.Balance
	err := r.storage.pool.QueryRow(ctx, query, userID).Scan(&b.UserID, &b.Available, &b.Earned, &b.Withdrawn, &b.Held, &b.Stale, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *balanceRepository) Upsert(ctx context.Context, b model.Balance) error {
	const query = `INSERT INTO user_points_balance (user_id, available, earned, withdrawn, held, stale, updated_at)
                   VALUES ($1, $2, $3, $4, $5, FALSE, NOW())
                   ON CONFLICT (user_id) DO UPDATE
                   SET available = EXCLUDED.available,
                       earned = EXCLUDED.earned,
                       withdrawn = EXCLUDED.withdrawn,
                       held = EXCLUDED.held,
                       stale = FALSE,
                       updated_at = NOW()`
	_, err := r.storage.pool.Exec(ctx, query, b.UserID, b.Available, b.Earned, b.Withdrawn, b.Held)
	return err
}

func (r *balanceRepository) MarkStale(ctx context.Context, userID int64) error {
	const query = `INSERT INTO user_points_balance (user_id, stale) VALUES ($1, TRUE)
                   ON CONFLICT (user_id) DO UPDATE SET stale = TRUE, updated_at = NOW()`
	_, err := r.storage.pool.Exec(ctx, query, userID)
	return err
}
