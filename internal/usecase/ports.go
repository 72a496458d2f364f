package usecase

import (
	"context"

	"github.com/polkiloo/reviewmart/internal/domain/model"
)

// CampaignProvider resolves the reward offered by a campaign.
type CampaignProvider interface {
	Fetch(ctx context.Context, campaignID int64) (*model.Campaign, error)
}

// EventPublisher announces completed transitions.
type EventPublisher interface {
	Publish(ctx context.Context, event model.TransitionEvent) error
}
