// Package store persists orders under orders/{id} behind the OrderStore
// interface. Each backend keeps the record as a loose document so fields
// the service does not model survive a round trip.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/papeleria-1x1/checkout-api/models"
)

var ErrUnavailable = errors.New("order store unavailable")

type OrderStore interface {
	Write(ctx context.Context, orderID string, intent Intent) error
	Delete(ctx context.Context, orderID string) error
	// ListSince returns orders whose timestamp is at or after since (epoch ms).
	ListSince(ctx context.Context, since int64) ([]models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	Close() error
}

// Intent says how a write treats the existing record.
type Intent interface {
	intent()
}

// Replace overwrites the whole record. When Document is set it is written
// as is and Order is ignored. A timestamp without a numeric value is
// filled in from the store's clock.
type Replace struct {
	Order    models.Order
	Document map[string]any
}

// Merge sets only the named fields, creating the record if it is missing.
type Merge struct {
	Fields map[string]any
}

func (Replace) intent() {}
func (Merge) intent()   {}

type serverTimestamp struct{}

// ServerTimestamp is a Merge field value resolved to the store's clock.
var ServerTimestamp = serverTimestamp{}

func toDocument(o models.Order) (map[string]any, error) {
	raw, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("encode order: %w", err)
	}
	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("encode order: %w", err)
	}
	return doc, nil
}

func decodeOrder(id string, doc any) (models.Order, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return models.Order{}, fmt.Errorf("decode order %s: %w", id, err)
	}
	return decodeRaw(id, raw)
}

// decodeRaw reads the typed view of a stored record and keeps the full
// document beside it. Keys the typed view cannot hold, such as a numeric
// item id, fall back to the fields the service acts on.
func decodeRaw(id string, raw []byte) (models.Order, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return models.Order{}, fmt.Errorf("decode order %s: %w", id, err)
	}

	var o models.Order
	if err := json.Unmarshal(raw, &o); err != nil {
		var core struct {
			ID            string               `json:"id"`
			Status        models.OrderStatus   `json:"status"`
			PaymentMethod models.PaymentMethod `json:"paymentMethod"`
			Timestamp     models.Timestamp     `json:"timestamp"`
			UserID        string               `json:"userId"`
		}
		if cerr := json.Unmarshal(raw, &core); cerr != nil {
			return models.Order{}, fmt.Errorf("decode order %s: %w", id, err)
		}
		o = models.Order{
			ID:            core.ID,
			Status:        core.Status,
			PaymentMethod: core.PaymentMethod,
			Timestamp:     core.Timestamp,
			UserID:        core.UserID,
		}
	}
	if o.ID == "" {
		o.ID = id
	}
	o.Document = doc
	return o, nil
}

// resolveFields copies fields, replacing ServerTimestamp with stamp.
func resolveFields(fields map[string]any, stamp any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			out[k] = stamp
			continue
		}
		out[k] = v
	}
	return out
}

func replaceDocument(in Replace, stamp any) (map[string]any, error) {
	if in.Document != nil {
		doc := make(map[string]any, len(in.Document)+1)
		for k, v := range in.Document {
			doc[k] = v
		}
		if ms, ok := numericMillis(doc["timestamp"]); !ok || ms == 0 {
			doc["timestamp"] = stamp
		}
		return doc, nil
	}

	doc, err := toDocument(in.Order)
	if err != nil {
		return nil, err
	}
	if !in.Order.Timestamp.Valid || in.Order.Timestamp.Millis == 0 {
		doc["timestamp"] = stamp
	}
	return doc, nil
}

func numericMillis(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return 0, false
			}
			return int64(f), true
		}
		return i, true
	}
	return 0, false
}

func stringField(doc map[string]any, key string) string {
	s, _ := doc[key].(string)
	return s
}

func nowMillis(now func() time.Time) int64 {
	if now == nil {
		return time.Now().UnixMilli()
	}
	return now().UnixMilli()
}
