// Package events announces order lifecycle changes to other services.
// Publishing is best effort; nothing in the order flow waits on it.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	SubjectOrderCreated = "orders.created"
	SubjectOrderPaid    = "orders.paid"
	SubjectOrderExpired = "orders.expired"
)

type OrderEvent struct {
	OrderID       string  `json:"orderId"`
	Status        string  `json:"status,omitempty"`
	PaymentMethod string  `json:"paymentMethod,omitempty"`
	Total         float64 `json:"total,omitempty"`
	SessionID     string  `json:"sessionId,omitempty"`
	OccurredAt    string  `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, subject string, event OrderEvent) error
	Close()
}

type Noop struct{}

func (Noop) Publish(context.Context, string, OrderEvent) error { return nil }

func (Noop) Close() {}

type NATS struct {
	nc  *nats.Conn
	log *zap.Logger
}

func NewNATS(url string, log *zap.Logger) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name("papeleria-checkout-api"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats: connect %s: %w", url, err)
	}
	return &NATS{nc: nc, log: log}, nil
}

func (p *NATS) Publish(ctx context.Context, subject string, event OrderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if event.OccurredAt == "" {
		event.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("nats: marshal %s: %w", subject, err)
	}
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("nats: publish %s: %w", subject, err)
	}
	return nil
}

func (p *NATS) Close() {
	if p.nc != nil && !p.nc.IsClosed() {
		if err := p.nc.Drain(); err != nil {
			p.nc.Close()
		}
	}
}
