package repository

import (
	"context"

	"github.com/polkiloo/reviewmart/internal/domain/model"
)

// ReviewRepository stores versioned review submissions.
type ReviewRepository interface {
	// Submit deactivates the current version and stores a new active one.
	Submit(ctx context.Context, applicationID int64, contentRefs []string) (*model.ReviewSubmission, error)
	Active(ctx context.Context, applicationID int64) (*model.ReviewSubmission, error)
	SetStatus(ctx context.Context, id int64, status model.ReviewStatus, reason string) error
}
