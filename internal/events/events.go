// Package events publishes account lifecycle events to Kafka.
package events

import (
	"context"
	"time"
)

const TopicAccountEvents = "account_events"

const (
	TypeAccountRegistered     = "account_registered"
	TypeAccountLoggedIn       = "account_logged_in"
	TypeAccountFederatedLogin = "account_federated_login"
)

type AccountEvent struct {
	Type       string    `json:"type"`
	AccountID  uint      `json:"account_id"`
	Username   string    `json:"username,omitempty"`
	Email      string    `json:"email,omitempty"`
	Provider   string    `json:"provider,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers an event under key to topic. Callers treat delivery
// failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, event any) error
}

// Nop discards every event. Used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, string, any) error { return nil }
