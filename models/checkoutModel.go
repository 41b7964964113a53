package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// CheckoutRequest is the body of POST /create-checkout-session.
type CheckoutRequest struct {
	Items         []CheckoutItem `json:"items"`
	OrderID       string         `json:"orderId" binding:"required"`
	OrderMetadata OrderMetadata  `json:"orderMetadata"`
	IsCash        bool           `json:"isCash"`
}

// OrderMetadata is the order document as the storefront sent it. It is
// stored as is, so keys the service never reads (orderId, notes,
// items[].images) are kept.
type OrderMetadata map[string]any

func (m OrderMetadata) text(key string) string {
	s, _ := m[key].(string)
	return s
}

func (m OrderMetadata) PaymentMethod() PaymentMethod {
	return PaymentMethod(m.text("paymentMethod"))
}

func (m OrderMetadata) DeliveryMethod() DeliveryMethod {
	return DeliveryMethod(m.text("deliveryMethod"))
}

func (m OrderMetadata) HasShippingAddress() bool {
	v, ok := m["shippingAddress"]
	return ok && v != nil
}

// Total returns the numeric total, or 0 when missing or not a number.
func (m OrderMetadata) Total() float64 {
	switch v := m["total"].(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	}
	return 0
}

// Document returns a shallow copy that is safe to extend.
func (m OrderMetadata) Document() map[string]any {
	doc := make(map[string]any, len(m)+3)
	for k, v := range m {
		doc[k] = v
	}
	return doc
}

type CheckoutItem struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	UnitPrice Number   `json:"unitPrice"`
	Price     Number   `json:"price"`
	Quantity  int64    `json:"quantity"`
	ImageURL  string   `json:"imageUrl"`
	Images    []string `json:"images"`
}

// EffectivePrice returns unitPrice, falling back to price when unitPrice
// is absent. ok is false when the chosen value is not a finite number.
func (i CheckoutItem) EffectivePrice() (float64, bool) {
	n := i.UnitPrice
	if !n.Present {
		n = i.Price
	}
	return n.Value, n.Valid
}

func (i CheckoutItem) Image() string {
	if i.ImageURL != "" {
		return i.ImageURL
	}
	if len(i.Images) > 0 {
		return i.Images[0]
	}
	return ""
}

// ShippingRequest is the body of POST /calculate-shipping.
type ShippingRequest struct {
	Total   Number `json:"total"`
	ZipCode string `json:"zipCode"`
}

type ShippingOption struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Days  string  `json:"days"`
}

// Number accepts a JSON number or a numeric string. Anything else still
// decodes, with Valid unset, so a bad price can be reported per item.
type Number struct {
	Value   float64
	Present bool
	Valid   bool
}

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	n.Present = true

	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n.Value, n.Valid = f, true
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Float returns the value, or 0 when missing or not numeric.
func (n Number) Float() float64 {
	if !n.Valid {
		return 0
	}
	return n.Value
}
