package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/reviewmart/internal/domain/errors"
	"github.com/polkiloo/reviewmart/internal/domain/model"
)

const withdrawalColumns = `id, user_id, points, tax, net_payout, destination, status, admin_note,
    requested_at, processed_at, completed_at`

type withdrawalRepository struct {
	storage *Storage
}

func scanWithdrawal(row rowScanner) (*model.WithdrawalRequest, error) {
	var w model.WithdrawalRequest
	if err := row.Scan(&w.ID, &w.UserID, &w.Points, &w.Tax, &w.NetPayout, &w.Destination, &w.Status, &w.AdminNote,
		&w.RequestedAt, &w.ProcessedAt, &w.CompletedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *withdrawalRepository) Create(ctx context.Context, req model.WithdrawalRequest) (*model.WithdrawalRequest, error) {
	query := `INSERT INTO withdrawal_requests (user_id, points, tax, net_payout, destination, status)
                   VALUES ($1, $2, $3, $4, $5, $6) RETURNING ` + withdrawalColumns
	return scanWithdrawal(r.storage.pool.QueryRow(ctx, query, req.UserID, req.Points, req.Tax, req.NetPayout, req.Destination, model.WithdrawalStatusPending))
}

func (r *withdrawalRepository) GetByID(ctx context.Context, id int64) (*model.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id=$1`
	w, err := scanWithdrawal(r.storage.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return w, nil
}

func (r *withdrawalRepository) ListByUser(ctx context.Context, userID int64) ([]model.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE user_id=$1 ORDER BY requested_at DESC`
	return r.list(ctx, query, userID)
}

func (r *withdrawalRepository) ListByStatuses(ctx context.Context, statuses []model.WithdrawalStatus, afterID int64, limit int) ([]model.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests
                   WHERE status = ANY($1) AND id > $2 ORDER BY id LIMIT $3`
	raw := make([]string, 0, len(statuses))
	for _, s := range statuses {
		raw = append(raw, string(s))
	}
	return r.list(ctx, query, raw, afterID, limit)
}

func (r *withdrawalRepository) list(ctx context.Context, query string, args ...any) ([]model.WithdrawalRequest, error) {
	rows, err := r.storage.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *withdrawalRepository) UpdateStatus(ctx context.Context, id int64, from, to model.WithdrawalStatus, note string) (*model.WithdrawalRequest, error) {
	set := `status=$3, admin_note=COALESCE($4, admin_note)`
	switch to {
	case model.WithdrawalStatusApproved, model.WithdrawalStatusRejected:
		set += `, processed_at=NOW()`
	case model.WithdrawalStatusCompleted:
		set += `, completed_at=NOW()`
	case model.WithdrawalStatusPending:
		set += `, processed_at=NULL`
	}
	query := `UPDATE withdrawal_requests SET ` + set + ` WHERE id=$1 AND status=$2 RETURNING ` + withdrawalColumns

	w, err := scanWithdrawal(r.storage.pool.QueryRow(ctx, query, id, from, to, nullableString(note)))
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var current model.WithdrawalStatus
	if err := r.storage.pool.QueryRow(ctx, `SELECT status FROM withdrawal_requests WHERE id=$1`, id).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return nil, fmt.Errorf("withdrawal %d is %s: %w", id, current, domainErrors.ErrAlreadyProcessed)
}
