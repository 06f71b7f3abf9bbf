// Package deposit opens hosted checkout sessions for refundable vehicle deposits.
package deposit

import (
	"context"
	"errors"
)

var (
	// ErrProviderRejected is returned when the checkout provider refuses the session.
	ErrProviderRejected = errors.New("deposit: provider rejected checkout session")
	// ErrProviderUnavailable is returned when the checkout provider cannot be reached.
	ErrProviderUnavailable = errors.New("deposit: provider unavailable")
)

// SessionRequest captures what a provider needs to open a hosted checkout page.
type SessionRequest struct {
	ClientReferenceID string
	Currency          string
	AmountCents       int64
	Name              string
	Description       string
	Images            []string
	SuccessURL        string
	CancelURL         string
	Metadata          map[string]string
}

// Session is the provider's answer: where to send the buyer.
type Session struct {
	Provider  string `json:"provider"`
	ID        string `json:"sessionId"`
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expiresAt,omitempty"`
}

// Provider abstracts the hosted checkout backend.
type Provider interface {
	Name() string
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error)
}
