package service

import (
	"context"
	"time"
)

// AccountEventType names something that happened to an account.
type AccountEventType string

const (
	AccountEventRegistered     AccountEventType = "account.registered"
	AccountEventLoggedIn       AccountEventType = "account.logged_in"
	AccountEventProvisioned    AccountEventType = "account.provisioned"
	AccountEventLinked         AccountEventType = "account.linked"
	AccountEventProfileUpdated AccountEventType = "account.profile_updated"
	AccountEventLoggedOut      AccountEventType = "account.logged_out"
)

// Valid reports whether t is one of the known event types.
func (t AccountEventType) Valid() bool {
	switch t {
	case AccountEventRegistered,
		AccountEventLoggedIn,
		AccountEventProvisioned,
		AccountEventLinked,
		AccountEventProfileUpdated,
		AccountEventLoggedOut:
		return true
	default:
		return false
	}
}

// AccountEvent is published for downstream consumers (audit, welcome mail).
// It never carries credentials or tokens.
type AccountEvent struct {
	RequestID  string           `json:"request_id,omitempty"` // For distributed tracing
	Type       AccountEventType `json:"type"`
	UserID     string           `json:"user_id,omitempty"`
	Provider   string           `json:"provider"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// EventPublisher defines the interface for publishing events to a message queue
type EventPublisher interface {
	// PublishAccountEvent publishes a single account event
	PublishAccountEvent(ctx context.Context, event *AccountEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
