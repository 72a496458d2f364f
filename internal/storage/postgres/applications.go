package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/reviewmart/internal/domain/errors"
	"github.com/polkiloo/reviewmart/internal/domain/model"
)

const applicationColumns = `id, user_id, campaign_id, status, reward_points, reason, resubmissions,
    applied_at, approved_at, shipped_at, reviewed_at, rewarded_at, archived_at, updated_at`

type applicationRepository struct {
	storage *Storage
}

type reviewRepository struct {
	storage *Storage
}

func scanApplication(row rowScanner) (*model.Application, error) {
	var (
		app    model.Application
		reason *string
	)
	err := row.Scan(&app.ID, &app.UserID, &app.CampaignID, &app.Status, &app.RewardPoints, &reason, &app.Resubmissions,
		&app.AppliedAt, &app.ApprovedAt, &app.ShippedAt, &app.ReviewedAt, &app.RewardedAt, &app.ArchivedAt, &app.UpdatedAt)
	if err != nil {
		return nil, err
	}
	app.Reason = derefString(reason)
	return &app, nil
}

func (r *applicationRepository) Create(ctx context.Context, userID, campaignID int64) (*model.Application, error) {
	query := `INSERT INTO applications (user_id, campaign_id, status) VALUES ($1, $2, $3) RETURNING ` + applicationColumns
	app, err := scanApplication(r.storage.pool.QueryRow(ctx, query, userID, campaignID, model.ApplicationStatusPending))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domainErrors.ErrAlreadyExists
		}
		return nil, err
	}
	return app, nil
}

func (r *applicationRepository) GetByID(ctx context.Context, id int64) (*model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id=$1`
	app, err := scanApplication(r.storage.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return app, nil
}

func (r *applicationRepository) ListByUser(ctx context.Context, userID int64) ([]model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE user_id=$1 ORDER BY applied_at DESC`
	return r.list(ctx, query, userID)
}

func (r *applicationRepository) ListByStatuses(ctx context.Context, statuses []model.ApplicationStatus, afterID int64, limit int) ([]model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications
                   WHERE status = ANY($1) AND id > $2 AND archived_at IS NULL
                   ORDER BY id LIMIT $3`
	raw := make([]string, 0, len(statuses))
	for _, s := range statuses {
		raw = append(raw, string(s))
	}
	return r.list(ctx, query, raw, afterID, limit)
}

func (r *applicationRepository) list(ctx context.Context, query string, args ...any) ([]model.Application, error) {
	rows, err := r.storage.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func statusTimestampColumn(status model.ApplicationStatus) string {
	switch status {
	case model.ApplicationStatusApproved:
		return "approved_at"
	case model.ApplicationStatusShipping:
		return "shipped_at"
	case model.ApplicationStatusReviewCompleted:
		return "reviewed_at"
	case model.ApplicationStatusRewardCompleted:
		return "rewarded_at"
	default:
		return ""
	}
}

func (r *applicationRepository) UpdateStatus(ctx context.Context, id int64, from, to model.ApplicationStatus, patch model.ApplicationPatch) (*model.Application, error) {
	set := `status=$3, reward_points=COALESCE(reward_points, $4), reason=COALESCE($5, reason),
                   resubmissions=resubmissions+$6, updated_at=NOW()`
	if col := statusTimestampColumn(to); col != "" {
		set += ", " + col + "=NOW()"
	}
	query := `UPDATE applications SET ` + set + ` WHERE id=$1 AND status=$2 RETURNING ` + applicationColumns

	increment := 0
	if patch.IncrementResubmission {
		increment = 1
	}
	app, err := scanApplication(r.storage.pool.QueryRow(ctx, query, id, from, to, patch.RewardPoints, nullableString(patch.Reason), increment))
	if err == nil {
		return app, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var current model.ApplicationStatus
	if err := r.storage.pool.QueryRow(ctx, `SELECT status FROM applications WHERE id=$1`, id).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return nil, &domainErrors.TransitionError{From: string(current), To: string(to)}
}

func (r *applicationRepository) Archive(ctx context.Context, id int64) error {
	const query = `UPDATE applications SET archived_at=COALESCE(archived_at, NOW()), updated_at=NOW() WHERE id=$1`
	tag, err := r.storage.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

// --- ReviewRepository implementation ---

const reviewColumns = `id, application_id, version, content_refs, status, rejection_reason, active, submitted_at, decided_at`

func scanReview(row rowScanner) (*model.ReviewSubmission, error) {
	var (
		review model.ReviewSubmission
		reason *string
	)
	if err := row.Scan(&review.ID, &review.ApplicationID, &review.Version, &review.ContentRefs, &review.Status, &reason,
		&review.Active, &review.SubmittedAt, &review.DecidedAt); err != nil {
		return nil, err
	}
	review.RejectionReason = derefString(reason)
	return &review, nil
}

func (r *reviewRepository) Submit(ctx context.Context, applicationID int64, contentRefs []string) (*model.ReviewSubmission, error) {
	var review *model.ReviewSubmission
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		var version int
		if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM review_submissions WHERE application_id=$1`, applicationID).Scan(&version); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE review_submissions SET active=FALSE WHERE application_id=$1 AND active`, applicationID); err != nil {
			return err
		}
		query := `INSERT INTO review_submissions (application_id, version, content_refs, status)
                   VALUES ($1, $2, $3, $4) RETURNING ` + reviewColumns
		var err error
		review, err = scanReview(tx.QueryRow(ctx, query, applicationID, version+1, contentRefs, model.ReviewStatusSubmitted))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("submit review: %w", err)
	}
	return review, nil
}

func (r *reviewRepository) Active(ctx context.Context, applicationID int64) (*model.ReviewSubmission, error) {
	query := `SELECT ` + reviewColumns + ` FROM review_submissions WHERE application_id=$1 AND active`
	review, err := scanReview(r.storage.pool.QueryRow(ctx, query, applicationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return review, nil
}

func (r *reviewRepository) SetStatus(ctx context.Context, id int64, status model.ReviewStatus, reason string) error {
	const query = `UPDATE review_submissions SET status=$2, rejection_reason=$3, decided_at=NOW() WHERE id=$1`
	tag, err := r.storage.pool.Exec(ctx, query, id, status, nullableString(reason))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}
