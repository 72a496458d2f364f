package dto

import (
	"time"

	"github.com/polkiloo/reviewmart/internal/domain/model"
)

// CreateApplicationRequest registers a user for a campaign.
type CreateApplicationRequest struct {
	UserID     int64 `json:"user_id"`
	CampaignID int64 `json:"campaign_id"`
}

// TransitionRequest asks the coordinator to move an application.
type TransitionRequest struct {
	Target      string   `json:"target"`
	Reason      string   `json:"reason,omitempty"`
	ContentRefs []string `json:"content_refs,omitempty"`
}

// ApplicationResponse describes an application.
type ApplicationResponse struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	CampaignID    int64      `json:"campaign_id"`
	Status        string     `json:"status"`
	RewardPoints  *int64     `json:"reward_points,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Resubmissions int        `json:"resubmissions"`
	AppliedAt     time.Time  `json:"applied_at"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	ShippedAt     *time.Time `json:"shipped_at,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
	RewardedAt    *time.Time `json:"rewarded_at,omitempty"`
	ArchivedAt    *time.Time `json:"archived_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewApplicationResponse maps a domain application.
func NewApplicationResponse(app *model.Application) *ApplicationResponse {
	if app == nil {
		return nil
	}
	return &ApplicationResponse{
		ID:            app.ID,
		UserID:        app.UserID,
		CampaignID:    app.CampaignID,
		Status:        string(app.Status),
		RewardPoints:  app.RewardPoints,
		Reason:        app.Reason,
		Resubmissions: app.Resubmissions,
		AppliedAt:     app.AppliedAt,
		ApprovedAt:    app.ApprovedAt,
		ShippedAt:     app.ShippedAt,
		ReviewedAt:    app.ReviewedAt,
		RewardedAt:    app.RewardedAt,
		ArchivedAt:    app.ArchivedAt,
		UpdatedAt:     app.UpdatedAt,
	}
}
