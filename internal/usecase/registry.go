package usecase

import (
	"fmt"
	"slices"

	domainErrors "github.com/polkiloo/reviewmart/internal/domain/errors"
	"github.com/polkiloo/reviewmart/internal/domain/model"
)

// forward holds every allowed move except rejection, which is added for all
// non-terminal statuses.
var forward = map[model.ApplicationStatus][]model.ApplicationStatus{
	model.ApplicationStatusPending:          {model.ApplicationStatusApproved},
	model.ApplicationStatusApproved:         {model.ApplicationStatusProductPurchased},
	model.ApplicationStatusProductPurchased: {model.ApplicationStatusShipping},
	model.ApplicationStatusShipping:         {model.ApplicationStatusDelivered},
	model.ApplicationStatusDelivered:        {model.ApplicationStatusReviewSubmitted},
	model.ApplicationStatusReviewSubmitted:  {model.ApplicationStatusReviewCompleted, model.ApplicationStatusReviewRejected},
	model.ApplicationStatusReviewRejected:   {model.ApplicationStatusReviewSubmitted},
	model.ApplicationStatusReviewCompleted:  {model.ApplicationStatusRewardRequested},
	model.ApplicationStatusRewardRequested:  {model.ApplicationStatusRewardCompleted},
}

// StatusRegistry is the closed application state machine.
type StatusRegistry struct {
	maxResubmissions int
}

// NewStatusRegistry builds a registry. A non-positive maxResubmissions leaves
// the review_rejected -> review_submitted loop unbounded.
func NewStatusRegistry(maxResubmissions int) *StatusRegistry {
	if maxResubmissions < 0 {
		maxResubmissions = 0
	}
	return &StatusRegistry{maxResubmissions: maxResubmissions}
}

// CanTransition reports whether target may directly follow current.
func (r *StatusRegistry) CanTransition(current, target model.ApplicationStatus) bool {
	if current.Terminal() {
		return false
	}
	if target == model.ApplicationStatusRejected {
		return true
	}
	return slices.Contains(forward[current], target)
}

// Transition validates the move and returns the resulting status.
func (r *StatusRegistry) Transition(current, target model.ApplicationStatus) (model.ApplicationStatus, error) {
	if !r.CanTransition(current, target) {
		return current, &domainErrors.TransitionError{From: string(current), To: string(target)}
	}
	return target, nil
}

// Next lists the statuses reachable from current.
func (r *StatusRegistry) Next(current model.ApplicationStatus) []model.ApplicationStatus {
	if current.Terminal() {
		return nil
	}
	return append(slices.Clone(forward[current]), model.ApplicationStatusRejected)
}

// Check validates moving app to target, including the resubmission bound.
func (r *StatusRegistry) Check(app *model.Application, target model.ApplicationStatus) error {
	if _, err := r.Transition(app.Status, target); err != nil {
		return err
	}
	if app.Status == model.ApplicationStatusReviewRejected && target == model.ApplicationStatusReviewSubmitted &&
		r.maxResubmissions > 0 && app.Resubmissions >= r.maxResubmissions {
		return fmt.Errorf("resubmission limit %d reached: %w", r.maxResubmissions,
			&domainErrors.TransitionError{From: string(app.Status), To: string(target)})
	}
	return nil
}
