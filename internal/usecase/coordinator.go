package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	domainErrors "github.com/polkiloo/reviewmart/internal/domain/errors"
	"github.com/polkiloo/reviewmart/internal/domain/model"
	"github.com/polkiloo/reviewmart/internal/domain/repository"
)

// TransitionCoordinator moves applications through the status machine and
// keeps the review mirror and the ledger in step.
type TransitionCoordinator struct {
	applications repository.ApplicationRepository
	reviews      repository.ReviewRepository
	ledger       *LedgerStore
	registry     *StatusRegistry
	campaigns    CampaignProvider
	events       EventPublisher
	logger       *slog.Logger
}

// NewTransitionCoordinator constructs TransitionCoordinator.
func NewTransitionCoordinator(
	applications repository.ApplicationRepository,
	reviews repository.ReviewRepository,
	ledger *LedgerStore,
	registry *StatusRegistry,
	campaigns CampaignProvider,
	events EventPublisher,
	logger *slog.Logger,
) *TransitionCoordinator {
	return &TransitionCoordinator{
		applications: applications,
		reviews:      reviews,
		ledger:       ledger,
		registry:     registry,
		campaigns:    campaigns,
		events:       events,
		logger:       logger,
	}
}

// Advance moves an application to target. Errors mean nothing was written;
// a partial_failure result names the mirrors left behind and is safe to retry.
func (c *TransitionCoordinator) Advance(ctx context.Context, applicationID int64, target model.ApplicationStatus, tc model.TransitionContext) (*model.Result, error) {
	tc.Reason = strings.TrimSpace(tc.Reason)
	app, err := c.applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status == target {
		return c.settle(ctx, app, tc)
	}
	if err := c.registry.Check(app, target); err != nil {
		return nil, err
	}

	from := app.Status
	var res *model.Result
	switch target {
	case model.ApplicationStatusApproved:
		res, err = c.approve(ctx, app)
	case model.ApplicationStatusReviewSubmitted:
		res, err = c.submitReview(ctx, app, tc)
	case model.ApplicationStatusReviewCompleted:
		res, err = c.completeReview(ctx, app)
	case model.ApplicationStatusReviewRejected:
		res, err = c.rejectReview(ctx, app, tc)
	case model.ApplicationStatusRejected:
		if tc.Reason == "" {
			return nil, domainErrors.NewValidation("reason", "rejection requires a reason")
		}
		res, err = c.write(ctx, app, target, model.ApplicationPatch{Reason: tc.Reason})
	default:
		res, err = c.write(ctx, app, target, model.ApplicationPatch{})
	}
	if err != nil {
		return nil, err
	}
	if res.Outcome == model.OutcomeSuccess {
		c.logger.Info("application advanced",
			slog.Int64("application_id", applicationID),
			slog.String("from", string(from)),
			slog.String("to", string(target)),
			slog.Int64("operator_id", tc.OperatorID),
		)
		res.EventPublished = c.publish(ctx, model.ApplicationEvent(res.Application, from))
	}
	return res, nil
}

func (c *TransitionCoordinator) write(ctx context.Context, app *model.Application, target model.ApplicationStatus, patch model.ApplicationPatch) (*model.Result, error) {
	updated, err := c.applications.UpdateStatus(ctx, app.ID, app.Status, target, patch)
	if err != nil {
		return nil, fmt.Errorf("update application %d: %w", app.ID, err)
	}
	res := model.Success()
	res.Application = updated
	return res, nil
}

func (c *TransitionCoordinator) approve(ctx context.Context, app *model.Application) (*model.Result, error) {
	campaign, err := c.campaigns.Fetch(ctx, app.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("fetch campaign %d: %w", app.CampaignID, err)
	}
	if campaign.RewardPoints <= 0 {
		return nil, domainErrors.NewValidation("reward_points", "campaign offers no reward")
	}
	reward := campaign.RewardPoints
	return c.write(ctx, app, model.ApplicationStatusApproved, model.ApplicationPatch{RewardPoints: &reward})
}

func (c *TransitionCoordinator) submitReview(ctx context.Context, app *model.Application, tc model.TransitionContext) (*model.Result, error) {
	if len(tc.ContentRefs) == 0 {
		return nil, domainErrors.NewValidation("content_refs", "a review needs at least one content reference")
	}
	review, err := c.reviews.Active(ctx, app.ID)
	if err != nil && !errors.Is(err, domainErrors.ErrNotFound) {
		return nil, fmt.Errorf("load active review: %w", err)
	}
	// A submitted active review was stored by an earlier attempt whose
	// status write failed.
	if review == nil || review.Status != model.ReviewStatusSubmitted {
		if review, err = c.reviews.Submit(ctx, app.ID, tc.ContentRefs); err != nil {
			return nil, fmt.Errorf("submit review: %w", err)
		}
	}

	patch := model.ApplicationPatch{IncrementResubmission: app.Status == model.ApplicationStatusReviewRejected}
	res, err := c.write(ctx, app, model.ApplicationStatusReviewSubmitted, patch)
	if err != nil {
		return c.partial(app, err, model.Discrepancy{
			Kind:          model.DiscrepancyReviewMirrorMismatch,
			UserID:        app.UserID,
			ApplicationID: app.ID,
			Expected:      string(expectedReview(app.Status)),
			Actual:        string(review.Status),
			Detail:        "review stored, application status not written",
		}), nil
	}
	return res, nil
}

func (c *TransitionCoordinator) completeReview(ctx context.Context, app *model.Application) (*model.Result, error) {
	if app.Reward() <= 0 {
		return nil, domainErrors.NewValidation("reward_points", "application has no reward snapshot")
	}
	review, err := c.reviews.Active(ctx, app.ID)
	if err != nil {
		return nil, fmt.Errorf("load active review: %w", err)
	}
	if review.Status != model.ReviewStatusApproved {
		if err := c.reviews.SetStatus(ctx, review.ID, model.ReviewStatusApproved, ""); err != nil {
			return nil, fmt.Errorf("approve review: %w", err)
		}
	}

	credit, err := c.credit(ctx, app)
	if err != nil {
		return c.partial(app, err, model.Discrepancy{
			Kind:          model.DiscrepancyReviewMirrorMismatch,
			UserID:        app.UserID,
			ApplicationID: app.ID,
			Expected:      string(model.ReviewStatusSubmitted),
			Actual:        string(model.ReviewStatusApproved),
			Detail:        "review approved, reward not credited",
		}), nil
	}

	res, err := c.write(ctx, app, model.ApplicationStatusReviewCompleted, model.ApplicationPatch{})
	if err != nil {
		res = c.partial(app, err, model.Discrepancy{
			Kind:          model.DiscrepancyApplicationBehindLedger,
			UserID:        app.UserID,
			ApplicationID: app.ID,
			Expected:      string(model.ApplicationStatusReviewCompleted),
			Actual:        string(app.Status),
			Detail:        "reward credited, application status not written",
		})
	}
	res.Entry = credit.Entry
	return res, nil
}

// credit appends the reward entry of app once per application.
func (c *TransitionCoordinator) credit(ctx context.Context, app *model.Application) (*AppendResult, error) {
	appID := app.ID
	return c.ledger.Append(ctx, model.LedgerEntry{
		UserID:         app.UserID,
		ApplicationID:  &appID,
		Kind:           model.EntryKindEarned,
		Amount:         app.Reward(),
		Status:         model.EntryStatusSuccess,
		Description:    fmt.Sprintf("review reward for application %d", app.ID),
		IdempotencyKey: model.EarnedKey(app.ID),
	})
}

func (c *TransitionCoordinator) rejectReview(ctx context.Context, app *model.Application, tc model.TransitionContext) (*model.Result, error) {
	if tc.Reason == "" {
		return nil, domainErrors.NewValidation("reason", "returning a review requires a reason")
	}
	review, err := c.reviews.Active(ctx, app.ID)
	if err != nil {
		return nil, fmt.Errorf("load active review: %w", err)
	}
	if err := c.reviews.SetStatus(ctx, review.ID, model.ReviewStatusRejected, tc.Reason); err != nil {
		return nil, fmt.Errorf("reject review: %w", err)
	}

	res, err := c.write(ctx, app, model.ApplicationStatusReviewRejected, model.ApplicationPatch{Reason: tc.Reason})
	if err != nil {
		return c.partial(app, err, model.Discrepancy{
			Kind:          model.DiscrepancyReviewMirrorMismatch,
			UserID:        app.UserID,
			ApplicationID: app.ID,
			Expected:      string(model.ReviewStatusSubmitted),
			Actual:        string(model.ReviewStatusRejected),
			Detail:        "review rejected, application status not written",
		}), nil
	}
	return res, nil
}

// settle finishes mirror work for an application already sitting in its
// target status.
func (c *TransitionCoordinator) settle(ctx context.Context, app *model.Application, tc model.TransitionContext) (*model.Result, error) {
	repaired := false
	var entry *model.LedgerEntry

	if want, ok := model.ExpectedReviewStatus(app.Status); ok {
		review, err := c.reviews.Active(ctx, app.ID)
		switch {
		case errors.Is(err, domainErrors.ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("load active review: %w", err)
		case review.Status != want:
			reason := ""
			if want == model.ReviewStatusRejected {
				reason = app.Reason
			}
			if err := c.reviews.SetStatus(ctx, review.ID, want, reason); err != nil {
				return nil, fmt.Errorf("set review status: %w", err)
			}
			repaired = true
		}
	}

	if rewarded(app.Status) && app.Reward() > 0 {
		credit, err := c.credit(ctx, app)
		if err != nil {
			return nil, err
		}
		entry = credit.Entry
		repaired = repaired || credit.Created
	}

	res := &model.Result{Outcome: model.OutcomeNoop, Application: app, Entry: entry}
	if repaired {
		res.Outcome = model.OutcomeSuccess
		c.logger.Info("application mirrors settled",
			slog.Int64("application_id", app.ID),
			slog.String("status", string(app.Status)),
			slog.Int64("operator_id", tc.OperatorID),
		)
	}
	return res, nil
}

func (c *TransitionCoordinator) partial(app *model.Application, cause error, d model.Discrepancy) *model.Result {
	c.logger.Warn("application transition left mirrors behind",
		slog.Int64("application_id", app.ID),
		slog.String("discrepancy", string(d.Kind)),
		slog.Any("error", cause),
	)
	res := model.Partial(d)
	res.Application = app
	return res
}

func (c *TransitionCoordinator) publish(ctx context.Context, event model.TransitionEvent) bool {
	if c.events == nil {
		return false
	}
	if err := c.events.Publish(ctx, event); err != nil {
		c.logger.Warn("transition event not published",
			slog.String("routing_key", event.RoutingKey()),
			slog.Any("error", err),
		)
		return false
	}
	return true
}

func expectedReview(status model.ApplicationStatus) model.ReviewStatus {
	want, _ := model.ExpectedReviewStatus(status)
	return want
}

func rewarded(status model.ApplicationStatus) bool {
	switch status {
	case model.ApplicationStatusReviewCompleted, model.ApplicationStatusRewardRequested, model.ApplicationStatusRewardCompleted:
		return true
	}
	return false
}
