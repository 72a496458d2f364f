package model

import (
	"fmt"
	"time"
)

// ApplicationStatus describes where an application is in the campaign lifecycle.
type ApplicationStatus string

const (
	ApplicationStatusPending          ApplicationStatus = "pending"
	ApplicationStatusApproved         ApplicationStatus = "approved"
	ApplicationStatusProductPurchased ApplicationStatus = "product_purchased"
	ApplicationStatusShipping         ApplicationStatus = "shipping"
	ApplicationStatusDelivered        ApplicationStatus = "delivered"
	ApplicationStatusReviewSubmitted  ApplicationStatus = "review_submitted"
	ApplicationStatusReviewRejected   ApplicationStatus = "review_rejected"
	ApplicationStatusReviewCompleted  ApplicationStatus = "review_completed"
	ApplicationStatusRewardRequested  ApplicationStatus = "reward_requested"
	ApplicationStatusRewardCompleted  ApplicationStatus = "reward_completed"
	ApplicationStatusRejected         ApplicationStatus = "rejected"
)

// ApplicationStatuses lists every known status in lifecycle order.
var ApplicationStatuses = []ApplicationStatus{
	ApplicationStatusPending,
	ApplicationStatusApproved,
	ApplicationStatusProductPurchased,
	ApplicationStatusShipping,
	ApplicationStatusDelivered,
	ApplicationStatusReviewSubmitted,
	ApplicationStatusReviewRejected,
	ApplicationStatusReviewCompleted,
	ApplicationStatusRewardRequested,
	ApplicationStatusRewardCompleted,
	ApplicationStatusRejected,
}

// ParseApplicationStatus rejects any value outside the closed status set.
func ParseApplicationStatus(raw string) (ApplicationStatus, error) {
	for _, s := range ApplicationStatuses {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown application status %q", raw)
}

// Terminal reports whether no further transition is possible.
func (s ApplicationStatus) Terminal() bool {
	return s == ApplicationStatusRejected || s == ApplicationStatusRewardCompleted
}

// Application is one applicant's participation in one campaign.
type Application struct {
	ID            int64
	UserID        int64
	CampaignID    int64
	Status        ApplicationStatus
	RewardPoints  *int64
	Reason        string
	Resubmissions int
	AppliedAt     time.Time
	ApprovedAt    *time.Time
	ShippedAt     *time.Time
	ReviewedAt    *time.Time
	RewardedAt    *time.Time
	ArchivedAt    *time.Time
	UpdatedAt     time.Time
}

// Reward returns the snapshotted reward or zero before approval.
func (a *Application) Reward() int64 {
	if a.RewardPoints == nil {
		return 0
	}
	return *a.RewardPoints
}

// ApplicationPatch carries the optional fields written together with a status change.
type ApplicationPatch struct {
	RewardPoints          *int64
	Reason                string
	IncrementResubmission bool
}

// Apply mutates the application the same way a persisted status update does.
func (p ApplicationPatch) Apply(app *Application, to ApplicationStatus, at time.Time) {
	app.Status = to
	app.UpdatedAt = at
	if p.RewardPoints != nil && app.RewardPoints == nil {
		v := *p.RewardPoints
		app.RewardPoints = &v
	}
	if p.Reason != "" {
		app.Reason = p.Reason
	}
	if p.IncrementResubmission {
		app.Resubmissions++
	}
	stamp := at
	switch to {
	case ApplicationStatusApproved:
		app.ApprovedAt = &stamp
	case ApplicationStatusShipping:
		app.ShippedAt = &stamp
	case ApplicationStatusReviewCompleted:
		app.ReviewedAt = &stamp
	case ApplicationStatusRewardCompleted:
		app.RewardedAt = &stamp
	}
}

// TransitionContext carries the caller supplied data of a transition.
type TransitionContext struct {
	Reason      string
	ContentRefs []string
	OperatorID  int64
}
