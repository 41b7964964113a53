// Package payments talks to the hosted card checkout. Stripe is the only
// real provider; Disabled keeps the shop in cash-only mode.
package payments

import (
	"context"
	"errors"
	"time"
)

var (
	ErrDisabled         = errors.New("card payments are disabled")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

const EventCheckoutCompleted = "checkout.session.completed"

type Provider interface {
	Enabled() bool
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error)
	// VerifyWebhook authenticates a raw webhook body against its signature
	// header and returns the decoded event.
	VerifyWebhook(payload []byte, signature string) (Event, error)
}

type LineItem struct {
	Name       string
	Images     []string
	UnitAmount int64 // centavos
	Quantity   int64
}

type SessionRequest struct {
	OrderID    string
	LineItems  []LineItem
	SuccessURL string
	CancelURL  string
	ExpiresAt  time.Time
}

type Session struct {
	ID  string
	URL string
}

type Event struct {
	Type      string
	SessionID string
	// OrderID comes from the session metadata and may be empty.
	OrderID string
}

// Disabled is used when no usable secret key is configured.
type Disabled struct{}

func (Disabled) Enabled() bool { return false }

func (Disabled) CreateCheckoutSession(context.Context, SessionRequest) (Session, error) {
	return Session{}, ErrDisabled
}

func (Disabled) VerifyWebhook([]byte, string) (Event, error) {
	return Event{}, ErrDisabled
}
