package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

type Stripe struct {
	api           *client.API
	webhookSecret string
	log           *zap.Logger
}

// KeyUsable reports whether key looks like a Stripe secret key.
func KeyUsable(key string) bool {
	return strings.HasPrefix(key, "sk_")
}

// NewStripe returns ErrDisabled when secretKey is not a secret key.
// backends may be nil to use the default Stripe endpoints.
func NewStripe(secretKey, webhookSecret string, backends *stripe.Backends) (*Stripe, error) {
	if !KeyUsable(secretKey) {
		return nil, ErrDisabled
	}
	api := &client.API{}
	api.Init(secretKey, backends)
	return &Stripe{api: api, webhookSecret: webhookSecret, log: zap.NewNop()}, nil
}

func (s *Stripe) WithLogger(log *zap.Logger) *Stripe {
	if log != nil {
		s.log = log
	}
	return s
}

func (s *Stripe) Enabled() bool { return true }

func (s *Stripe) CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		images := item.Images
		if images == nil {
			images = []string{}
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(string(stripe.CurrencyMXN)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:   stripe.String(item.Name),
					Images: stripe.StringSlice(images),
				},
				UnitAmount: stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		ExpiresAt:          stripe.Int64(req.ExpiresAt.Unix()),
	}
	params.Context = ctx
	params.AddMetadata("orderId", req.OrderID)

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return Session{}, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return Session{ID: sess.ID, URL: sess.URL}, nil
}

func (s *Stripe) VerifyWebhook(payload []byte, signature string) (Event, error) {
	if s.webhookSecret == "" || signature == "" {
		return Event{}, ErrInvalidSignature
	}
	evt, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := Event{Type: string(evt.Type)}
	if evt.Type != stripe.EventTypeCheckoutSessionCompleted || evt.Data == nil {
		return out, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &sess); err != nil {
		// Verified events are acknowledged; an unreadable session leaves
		// OrderID empty so the event is ignored.
		s.log.Warn("undecodable checkout session in webhook", zap.String("eventId", evt.ID), zap.Error(err))
		return out, nil
	}
	out.SessionID = sess.ID
	out.OrderID = sess.Metadata["orderId"]
	return out, nil
}
