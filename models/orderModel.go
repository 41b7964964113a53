package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// ExpirationWindow is both the hosted session lifetime and the age after
// which an unpaid card order counts as abandoned.
const ExpirationWindow = 30 * time.Minute

type OrderStatus string

const (
	StatusCheckoutSession OrderStatus = "checkout_session"
	StatusPending         OrderStatus = "pending"
	StatusPaid            OrderStatus = "paid"

	// Set by the admin panel, read-only here.
	StatusShipped   OrderStatus = "shipped"
	StatusCancelled OrderStatus = "cancelled"
	StatusCompleted OrderStatus = "completed"
)

type PaymentMethod string

const (
	PaymentCard PaymentMethod = "card"
	PaymentCash PaymentMethod = "cash"
)

func (p PaymentMethod) Valid() bool {
	return p == PaymentCard || p == PaymentCash
}

type DeliveryMethod string

const (
	DeliveryHome  DeliveryMethod = "delivery"
	DeliveryStore DeliveryMethod = "store"
)

func (d DeliveryMethod) Valid() bool {
	return d == DeliveryHome || d == DeliveryStore
}

type Order struct {
	ID              string         `json:"id,omitempty"`
	Status          OrderStatus    `json:"status,omitempty"`
	PaymentMethod   PaymentMethod  `json:"paymentMethod,omitempty"`
	DeliveryMethod  DeliveryMethod `json:"deliveryMethod,omitempty"`
	Items           []OrderItem    `json:"items,omitempty"`
	Total           float64        `json:"total"`
	Subtotal        float64        `json:"subtotal,omitempty"`
	ShippingCost    float64        `json:"shippingCost,omitempty"`
	ShippingAddress *Address       `json:"shippingAddress,omitempty"`
	Timestamp       Timestamp      `json:"timestamp"`
	UserID          string         `json:"userId,omitempty"`
	UserInfo        *UserInfo      `json:"userInfo,omitempty"`
	StripeSessionID string         `json:"stripeSessionId,omitempty"`
	PaidAt          *Timestamp     `json:"paidAt,omitempty"`

	// Document is the record as stored, including keys not modeled above.
	Document map[string]any `json:"-"`
}

// Record returns the stored document with its id. Orders built in code
// without a document are rendered from their fields.
func (o Order) Record() map[string]any {
	rec := map[string]any{}
	if o.Document != nil {
		for k, v := range o.Document {
			rec[k] = v
		}
	} else if raw, err := json.Marshal(o); err == nil {
		_ = json.Unmarshal(raw, &rec)
	}
	if o.ID != "" {
		rec["id"] = o.ID
	}
	return rec
}

type OrderItem struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	UnitPrice  float64 `json:"unitPrice"`
	Quantity   int64   `json:"quantity"`
	TotalPrice float64 `json:"totalPrice"`
	ImageURL   string  `json:"imageUrl,omitempty"`
}

type Address struct {
	Street         string `json:"street"`
	ExternalNumber string `json:"externalNumber"`
	Neighborhood   string `json:"neighborhood"`
	ZipCode        string `json:"zipCode"`
	City           string `json:"city"`
	References     string `json:"references,omitempty"`
}

// UserInfo is a snapshot of the buyer taken at checkout time.
type UserInfo struct {
	Name    string          `json:"name,omitempty"`
	Email   string          `json:"email,omitempty"`
	Phone   string          `json:"phone,omitempty"`
	Address json.RawMessage `json:"address,omitempty"`
}

// Timestamp holds epoch milliseconds. Stored records sometimes carry
// something other than a number here; those decode with Valid unset
// instead of failing the read.
type Timestamp struct {
	Millis int64
	Valid  bool
}

func TimestampOf(t time.Time) Timestamp {
	return Timestamp{Millis: t.UnixMilli(), Valid: true}
}

func (t Timestamp) Time() time.Time {
	return time.UnixMilli(t.Millis)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(t.Millis, 10)), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	*t = Timestamp{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == '"' || data[0] == '{' || data[0] == '[' {
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	*t = Timestamp{Millis: int64(f), Valid: true}
	return nil
}

// IsAbandoned reports whether the sweep may delete the order: an unpaid
// card order whose numeric timestamp is older than ExpirationWindow.
func IsAbandoned(o Order, now time.Time) bool {
	if o.PaymentMethod != PaymentCard {
		return false
	}
	if o.Status != StatusCheckoutSession && o.Status != StatusPending {
		return false
	}
	if !o.Timestamp.Valid {
		return false
	}
	return now.UnixMilli()-o.Timestamp.Millis > ExpirationWindow.Milliseconds()
}
