package model

import (
	"time"

	"github.com/google/uuid"
)

// EventSubject names the entity a transition event is about.
type EventSubject string

const (
	EventSubjectApplication EventSubject = "application"
	EventSubjectWithdrawal  EventSubject = "withdrawal"
)

// TransitionEvent is emitted after a successful state change.
type TransitionEvent struct {
	ID            uuid.UUID    `json:"id"`
	Subject       EventSubject `json:"subject"`
	ApplicationID *int64       `json:"application_id,omitempty"`
	WithdrawalID  *int64       `json:"withdrawal_id,omitempty"`
	UserID        int64        `json:"user_id"`
	CampaignID    *int64       `json:"campaign_id,omitempty"`
	From          string       `json:"from"`
	To            string       `json:"to"`
	Amount        *int64       `json:"amount,omitempty"`
	OccurredAt    time.Time    `json:"occurred_at"`
}

// ApplicationEvent describes an application moving between statuses.
func ApplicationEvent(app *Application, from ApplicationStatus) TransitionEvent {
	id, campaign := app.ID, app.CampaignID
	ev := TransitionEvent{
		ID:            uuid.New(),
		Subject:       EventSubjectApplication,
		ApplicationID: &id,
		UserID:        app.UserID,
		CampaignID:    &campaign,
		From:          string(from),
		To:            string(app.Status),
		OccurredAt:    time.Now().UTC(),
	}
	if app.RewardPoints != nil {
		amount := *app.RewardPoints
		ev.Amount = &amount
	}
	return ev
}

// WithdrawalEvent describes a withdrawal request moving between statuses.
func WithdrawalEvent(req *WithdrawalRequest, from WithdrawalStatus) TransitionEvent {
	id, amount := req.ID, req.Points
	return TransitionEvent{
		ID:           uuid.New(),
		Subject:      EventSubjectWithdrawal,
		WithdrawalID: &id,
		UserID:       req.UserID,
		From:         string(from),
		To:           string(req.Status),
		Amount:       &amount,
		OccurredAt:   time.Now().UTC(),
	}
}

// RoutingKey is the topic the event is published under.
func (e TransitionEvent) RoutingKey() string {
	return string(e.Subject) + "." + e.To
}
