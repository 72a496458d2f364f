package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmockv3 "github.com/pashagolub/pgxmock/v3"

	domainErrors "github.com/polkiloo/reviewmart/internal/domain/errors"
	"github.com/polkiloo/reviewmart/internal/domain/model"
)

func withdrawalRows() *pgxmockv3.Rows {
	return pgxmockv3.NewRows([]string{"id", "user_id", "points", "tax", "net_payout", "destination", "status", "admin_note",
		"requested_at", "processed_at", "completed_at"})
}

func TestWithdrawalRepositoryCreateAndGet(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &withdrawalRepository{storage: storage}

	now := time.Now()
	req := model.WithdrawalRequest{UserID: 7, Points: 5000, Tax: 165, NetPayout: 4835, Destination: "bank:123"}
	mock.ExpectQuery("INSERT INTO withdrawal_requests").
		WithArgs(int64(7), int64(5000), int64(165), int64(4835), "bank:123", model.WithdrawalStatusPending).
		WillReturnRows(withdrawalRows().AddRow(int64(1), int64(7), int64(5000), int64(165), int64(4835), "bank:123",
			model.WithdrawalStatusPending, "", now, nil, nil))
	created, err := repo.Create(context.Background(), req)
	if err != nil || created.ID != 1 || created.Status != model.WithdrawalStatusPending {
		t.Fatalf("unexpected withdrawal: %+v err=%v", created, err)
	}

	mock.ExpectQuery("INSERT INTO withdrawal_requests").WithArgs(pgxmockv3.AnyArg(), pgxmockv3.AnyArg(), pgxmockv3.AnyArg(), pgxmockv3.AnyArg(), pgxmockv3.AnyArg(), pgxmockv3.AnyArg()).WillReturnError(errors.New("insert"))
	if _, err := repo.Create(context.Background(), req); err == nil {
		t.Fatal("expected error")
	}

	mock.ExpectQuery("FROM withdrawal_requests WHERE id=").WithArgs(int64(1)).WillReturnRows(
		withdrawalRows().AddRow(int64(1), int64(7), int64(5000), int64(165), int64(4835), "bank:123",
			model.WithdrawalStatusApproved, "ok", now, &now, nil))
	got, err := repo.GetByID(context.Background(), 1)
	if err != nil || got.Status != model.WithdrawalStatusApproved || got.ProcessedAt == nil || got.AdminNote != "ok" {
		t.Fatalf("unexpected withdrawal: %+v err=%v", got, err)
	}

	mock.ExpectQuery("FROM withdrawal_requests WHERE id=").WithArgs(int64(2)).WillReturnError(pgx.ErrNoRows)
	if _, err := repo.GetByID(context.Background(), 2); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestWithdrawalRepositoryLists(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &withdrawalRepository{storage: storage}

	now := time.Now()
	mock.ExpectQuery("FROM withdrawal_requests WHERE user_id=").WithArgs(int64(7)).WillReturnRows(
		withdrawalRows().
			AddRow(int64(2), int64(7), int64(100), int64(3), int64(97), "card", model.WithdrawalStatusPending, "", now, nil, nil).
			AddRow(int64(1), int64(7), int64(5000), int64(165), int64(4835), "bank", model.WithdrawalStatusCompleted, "", now, &now, &now))
	list, err := repo.ListByUser(context.Background(), 7)
	if err != nil || len(list) != 2 || list[1].CompletedAt == nil {
		t.Fatalf("unexpected list: %+v err=%v", list, err)
	}

	mock.ExpectQuery("FROM withdrawal_requests").WithArgs([]string{"pending", "approved"}, int64(0), 20).WillReturnRows(
		withdrawalRows().AddRow(int64(2), int64(7), int64(100), int64(3), int64(97), "card", model.WithdrawalStatusPending, "", now, nil, nil))
	page, err := repo.ListByStatuses(context.Background(), []model.WithdrawalStatus{model.WithdrawalStatusPending, model.WithdrawalStatusApproved}, 0, 20)
	if err != nil || len(page) != 1 {
		t.Fatalf("unexpected page: %+v err=%v", page, err)
	}

	mock.ExpectQuery("FROM withdrawal_requests WHERE user_id=").WithArgs(int64(8)).WillReturnError(errors.New("query"))
	if _, err := repo.ListByUser(context.Background(), 8); err == nil {
		t.Fatal("expected error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}

	rowsErr := &withdrawalRepository{storage: &Storage{pool: &rowsErrorPool{rows: &errorRows{err: errors.New("rows err")}}}}
	if _, err := rowsErr.ListByUser(context.Background(), 1); err == nil {
		t.Fatal("expected rows error")
	}
}

func TestWithdrawalRepositoryUpdateStatus(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &withdrawalRepository{storage: storage}

	now := time.Now()
	mock.ExpectQuery("UPDATE withdrawal_requests SET status=.*processed_at=NOW").
		WithArgs(int64(1), model.WithdrawalStatusPending, model.WithdrawalStatusApproved, pgxmockv3.AnyArg()).
		WillReturnRows(withdrawalRows().AddRow(int64(1), int64(7), int64(5000), int64(165), int64(4835), "bank",
			model.WithdrawalStatusApproved, "", now, &now, nil))
	w, err := repo.UpdateStatus(context.Background(), 1, model.WithdrawalStatusPending, model.WithdrawalStatusApproved, "")
	if err != nil || w.Status != model.WithdrawalStatusApproved {
		t.Fatalf("unexpected withdrawal: %+v err=%v", w, err)
	}

	mock.ExpectQuery("UPDATE withdrawal_requests SET status=.*completed_at=NOW").
		WithArgs(int64(1), model.WithdrawalStatusApproved, model.WithdrawalStatusCompleted, pgxmockv3.AnyArg()).
		WillReturnRows(withdrawalRows().AddRow(int64(1), int64(7), int64(5000), int64(165), int64(4835), "bank",
			model.WithdrawalStatusCompleted, "", now, &now, &now))
	if _, err := repo.UpdateStatus(context.Background(), 1, model.WithdrawalStatusApproved, model.WithdrawalStatusCompleted, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mock.ExpectQuery("UPDATE withdrawal_requests SET status=.*processed_at=NULL").
		WithArgs(int64(1), model.WithdrawalStatusApproved, model.WithdrawalStatusPending, pgxmockv3.AnyArg()).
		WillReturnRows(withdrawalRows().AddRow(int64(1), int64(7), int64(5000), int64(165), int64(4835), "bank",
			model.WithdrawalStatusPending, "debit missing", now, nil, nil))
	if _, err := repo.UpdateStatus(context.Background(), 1, model.WithdrawalStatusApproved, model.WithdrawalStatusPending, "debit missing"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mock.ExpectQuery("UPDATE withdrawal_requests SET status=").WithArgs(pgxmockv3.AnyArg(), pgxmockv3.AnyArg(), pgxmockv3.AnyArg(), pgxmockv3.AnyArg()).WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT status FROM withdrawal_requests WHERE id=").WithArgs(int64(1)).WillReturnRows(
		pgxmockv3.NewRows([]string{"status"}).AddRow(model.WithdrawalStatusRejected))
	_, err = repo.UpdateStatus(context.Background(), 1, model.WithdrawalStatusPending, model.WithdrawalStatusApproved, "")
	if !errors.Is(err, domainErrors.ErrAlreadyProcessed) {
		t.Fatalf("expected already processed, got %v", err)
	}

	mock.ExpectQuery("UPDATE withdrawal_requests SET status=").WithArgs(pgxmockv3.AnyArg(), pgxmockv3.AnyArg(), pgxmockv3.AnyArg(), pgxmockv3.AnyArg()).WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT status FROM withdrawal_requests WHERE id=").WithArgs(int64(9)).WillReturnError(pgx.ErrNoRows)
	if _, err := repo.UpdateStatus(context.Background(), 9, model.WithdrawalStatusPending, model.WithdrawalStatusApproved, ""); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	mock.ExpectQuery("UPDATE withdrawal_requests SET status=").WithArgs(pgxmockv3.AnyArg(), pgxmockv3.AnyArg(), pgxmockv3.AnyArg(), pgxmockv3.AnyArg()).WillReturnError(errors.New("update"))
	if _, err := repo.UpdateStatus(context.Background(), 1, model.WithdrawalStatusPending, model.WithdrawalStatusApproved, ""); err == nil {
		t.Fatal("expected error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}
