// Package services holds the order lifecycle: checkout creation, payment
// confirmation, the abandoned-order sweep and the per-user listing.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papeleria-1x1/checkout-api/events"
	"github.com/papeleria-1x1/checkout-api/models"
	"github.com/papeleria-1x1/checkout-api/payments"
	"github.com/papeleria-1x1/checkout-api/store"
	"github.com/papeleria-1x1/checkout-api/utils"
)

const (
	DefaultClientURL = "https://papeleria-1x1-y-mas.web.app"
	// SweepLookBack bounds the sweep query; older orders are never examined.
	SweepLookBack = 24 * time.Hour

	msgCashOrderRegistered = "Orden en efectivo registrada"
)

var (
	ErrMissingOrderID          = errors.New("orderId is required")
	ErrNoItems                 = errors.New("at least one item is required")
	ErrInvalidItemPrice        = errors.New("Precio inválido")
	ErrInvalidPaymentMethod    = errors.New("invalid payment method")
	ErrInvalidDeliveryMethod   = errors.New("invalid delivery method")
	ErrMissingShippingAddress  = errors.New("shipping address is required for delivery")
	ErrCardPaymentsUnavailable = errors.New("Los pagos con tarjeta no están disponibles en este momento. Por favor, selecciona pago en efectivo.")
	ErrMissingSessionURL       = errors.New("payment provider returned no checkout url")
)

type Options struct {
	Store    store.OrderStore
	Payments payments.Provider
	Events   events.Publisher
	Log      *zap.Logger
	Now      func() time.Time

	ClientURL string
	// ClientTimestamps keeps the timestamp sent by the storefront instead
	// of stamping server time.
	ClientTimestamps bool
}

type Orders struct {
	store            store.OrderStore
	payments         payments.Provider
	events           events.Publisher
	log              *zap.Logger
	now              func() time.Time
	clientURL        string
	clientTimestamps bool
}

func NewOrders(opts Options) *Orders {
	o := &Orders{
		store:            opts.Store,
		payments:         opts.Payments,
		events:           opts.Events,
		log:              opts.Log,
		now:              opts.Now,
		clientURL:        strings.TrimRight(opts.ClientURL, "/"),
		clientTimestamps: opts.ClientTimestamps,
	}
	if o.store == nil {
		o.store = store.Nop{}
	}
	if o.payments == nil {
		o.payments = payments.Disabled{}
	}
	if o.events == nil {
		o.events = events.Noop{}
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.clientURL == "" {
		o.clientURL = DefaultClientURL
	}
	return o
}

// CheckoutResult is either a hosted session (card) or a cash confirmation.
type CheckoutResult struct {
	Cash      bool
	Message   string
	SessionID string
	URL       string
}

func (s *Orders) CardPaymentsEnabled() bool { return s.payments.Enabled() }

// CreateCheckoutSession records the order and, for card payments, opens a
// hosted checkout session. Validation runs before anything is written.
func (s *Orders) CreateCheckoutSession(ctx context.Context, req models.CheckoutRequest) (CheckoutResult, error) {
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return CheckoutResult{}, ErrMissingOrderID
	}

	meta := req.OrderMetadata
	method, err := resolveMethods(meta, req.IsCash)
	if err != nil {
		return CheckoutResult{}, err
	}

	var lineItems []payments.LineItem
	if !req.IsCash {
		if !s.payments.Enabled() {
			return CheckoutResult{}, ErrCardPaymentsUnavailable
		}
		if lineItems, err = buildLineItems(req.Items); err != nil {
			return CheckoutResult{}, err
		}
	}

	status := models.StatusCheckoutSession
	if req.IsCash {
		status = models.StatusPending
	}
	doc := meta.Document()
	doc["status"] = string(status)
	doc["paymentMethod"] = string(method)
	if !s.clientTimestamps {
		delete(doc, "timestamp")
	}

	if err := s.store.Write(ctx, orderID, store.Replace{Document: doc}); err != nil {
		s.log.Error("failed to save order", zap.String("orderId", orderID), zap.Error(err))
	} else {
		s.publish(ctx, events.SubjectOrderCreated, events.OrderEvent{
			OrderID:       orderID,
			Status:        string(status),
			PaymentMethod: string(method),
			Total:         meta.Total(),
		})
	}

	if req.IsCash {
		s.log.Info("cash order registered", zap.String("orderId", orderID))
		return CheckoutResult{Cash: true, Message: msgCashOrderRegistered}, nil
	}

	sess, err := s.payments.CreateCheckoutSession(ctx, payments.SessionRequest{
		OrderID:    orderID,
		LineItems:  lineItems,
		SuccessURL: fmt.Sprintf("%s/success?session_id={CHECKOUT_SESSION_ID}&order_id=%s", s.clientURL, url.QueryEscape(orderID)),
		CancelURL:  s.clientURL + "/",
		ExpiresAt:  s.now().Add(models.ExpirationWindow),
	})
	if err != nil {
		return CheckoutResult{}, err
	}
	if sess.URL == "" {
		return CheckoutResult{}, ErrMissingSessionURL
	}

	s.log.Info("checkout session created", zap.String("orderId", orderID), zap.String("sessionId", sess.ID))
	return CheckoutResult{SessionID: sess.ID, URL: sess.URL}, nil
}

// resolveMethods validates the payment and delivery methods and returns
// the payment method to store, defaulting it from isCash when absent.
func resolveMethods(meta models.OrderMetadata, isCash bool) (models.PaymentMethod, error) {
	method := meta.PaymentMethod()
	switch {
	case method == "" && isCash:
		method = models.PaymentCash
	case method == "":
		method = models.PaymentCard
	case !method.Valid():
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, method)
	}

	delivery := meta.DeliveryMethod()
	if delivery != "" && !delivery.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidDeliveryMethod, delivery)
	}
	if delivery == models.DeliveryHome && !meta.HasShippingAddress() {
		return "", ErrMissingShippingAddress
	}
	return method, nil
}

func buildLineItems(items []models.CheckoutItem) ([]payments.LineItem, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	lineItems := make([]payments.LineItem, 0, len(items))
	for _, item := range items {
		price, ok := item.EffectivePrice()
		if !ok {
			return nil, fmt.Errorf("%w para el producto: %s", ErrInvalidItemPrice, item.Name)
		}
		var images []string
		if img := item.Image(); img != "" {
			images = []string{img}
		}
		lineItems = append(lineItems, payments.LineItem{
			Name:       item.Name,
			Images:     images,
			UnitAmount: utils.ToMinorUnits(price),
			Quantity:   item.Quantity,
		})
	}
	return lineItems, nil
}

// ConfirmPayment verifies a webhook delivery and marks the order paid.
// Only a failed verification is returned; store trouble is logged so the
// provider still gets its acknowledgement.
func (s *Orders) ConfirmPayment(ctx context.Context, payload []byte, signature string) error {
	evt, err := s.payments.VerifyWebhook(payload, signature)
	if err != nil {
		return err
	}
	if evt.Type != payments.EventCheckoutCompleted {
		return nil
	}
	if evt.OrderID == "" {
		s.log.Warn("completed session without orderId", zap.String("sessionId", evt.SessionID))
		return nil
	}

	err = s.store.Write(ctx, evt.OrderID, store.Merge{Fields: map[string]any{
		"status":          string(models.StatusPaid),
		"stripeSessionId": evt.SessionID,
		"paidAt":          store.ServerTimestamp,
		"paymentMethod":   string(models.PaymentCard),
	}})
	if err != nil {
		s.log.Error("failed to mark order paid", zap.String("orderId", evt.OrderID), zap.Error(err))
		return nil
	}

	s.log.Info("order marked paid", zap.String("orderId", evt.OrderID))
	s.publish(ctx, events.SubjectOrderPaid, events.OrderEvent{
		OrderID:       evt.OrderID,
		Status:        string(models.StatusPaid),
		PaymentMethod: string(models.PaymentCard),
		SessionID:     evt.SessionID,
	})
	return nil
}

// SweepAbandoned deletes unpaid card orders older than the expiration
// window. It stops at the first delete failure and reports how many
// orders were removed before it.
func (s *Orders) SweepAbandoned(ctx context.Context) (int, error) {
	now := s.now()
	orders, err := s.store.ListSince(ctx, now.Add(-SweepLookBack).UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("list recent orders: %w", err)
	}

	deleted := 0
	for _, o := range orders {
		if !models.IsAbandoned(o, now) {
			continue
		}
		if err := s.store.Delete(ctx, o.ID); err != nil {
			return deleted, fmt.Errorf("delete order %s: %w", o.ID, err)
		}
		deleted++
		s.publish(ctx, events.SubjectOrderExpired, events.OrderEvent{
			OrderID:       o.ID,
			Status:        string(o.Status),
			PaymentMethod: string(o.PaymentMethod),
			Total:         o.Total,
		})
	}

	if deleted > 0 {
		s.log.Info("abandoned orders removed", zap.Int("count", deleted))
	}
	return deleted, nil
}

// ListUserOrders returns the user's orders newest first, hiding card
// attempts that never reached payment.
func (s *Orders) ListUserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	orders, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders for %s: %w", userID, err)
	}

	visible := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status == models.StatusCheckoutSession {
			continue
		}
		visible = append(visible, o)
	}
	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].Timestamp.Millis > visible[j].Timestamp.Millis
	})
	return visible, nil
}

func (s *Orders) publish(ctx context.Context, subject string, evt events.OrderEvent) {
	if evt.OccurredAt == "" {
		evt.OccurredAt = s.now().UTC().Format(time.RFC3339)
	}
	if err := s.events.Publish(ctx, subject, evt); err != nil {
		s.log.Warn("failed to publish order event", zap.String("subject", subject), zap.String("orderId", evt.OrderID), zap.Error(err))
	}
}
