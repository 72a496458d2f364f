package test

import (
	"context"
	"sync"

	"github.com/polkiloo/reviewmart/internal/domain/model"
)

// CampaignProviderStub returns a fixed reward for every campaign.
type CampaignProviderStub struct {
	Reward  int64
	Err     error
	FetchFn func(context.Context, int64) (*model.Campaign, error)
}

// Fetch returns the configured campaign.
func (s CampaignProviderStub) Fetch(ctx context.Context, campaignID int64) (*model.Campaign, error) {
	if s.FetchFn != nil {
		return s.FetchFn(ctx, campaignID)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return &model.Campaign{ID: campaignID, Title: "campaign", RewardPoints: s.Reward}, nil
}

// PublisherStub records published events.
type PublisherStub struct {
	mu     sync.Mutex
	Err    error
	events []model.TransitionEvent
}

// Publish stores the event unless Err is set.
func (p *PublisherStub) Publish(ctx context.Context, event model.TransitionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (p *PublisherStub) Events() []model.TransitionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.TransitionEvent(nil), p.events...)
}
