// Package billing resolves a user's current subscription from the
// payments provider. The pin core only ever consumes the Provider
// interface, the Polar client below is the production implementation.
package billing

import "context"

// Subscription is the slice of billing state the quota enforcer needs.
// A nil *Subscription means the user has no subscription at all.
type Subscription struct {
	// PlanKey is the configured plan label the subscribed product maps to
	// ("pro" or "team"), or empty when the product is unknown to us
	PlanKey string `json:"plan_key"`
	Status  string `json:"status"`
	Amount  int    `json:"amount"`
}

const (
	StatusActive   = "active"
	StatusTrialing = "trialing"
)

type Provider interface {
	GetSubscription(ctx context.Context, userID string) (*Subscription, error)
}

// Disabled is the Provider used when no billing backend is configured.
// Every user resolves to no subscription, i.e. the free tier.
type Disabled struct{}

func (Disabled) GetSubscription(ctx context.Context, userID string) (*Subscription, error) {
	return nil, nil
}
