package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/papeleria-1x1/checkout-api/models"
)

// Memory keeps orders in process. Used for local runs and tests.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]map[string]any
	now  func() time.Time
}

func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		docs: make(map[string]map[string]any),
		now:  now,
	}
}

func (m *Memory) Write(ctx context.Context, orderID string, intent Intent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stamp := nowMillis(m.now)

	switch in := intent.(type) {
	case Replace:
		doc, err := replaceDocument(in, stamp)
		if err != nil {
			return err
		}
		m.mu.Lock()
		m.docs[orderID] = doc
		m.mu.Unlock()
	case Merge:
		fields := resolveFields(in.Fields, stamp)
		m.mu.Lock()
		doc, ok := m.docs[orderID]
		if !ok {
			doc = make(map[string]any, len(fields))
			m.docs[orderID] = doc
		}
		for k, v := range fields {
			doc[k] = v
		}
		m.mu.Unlock()
	}
	return nil
}

func (m *Memory) Delete(ctx context.Context, orderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.docs, orderID)
	m.mu.Unlock()
	return nil
}

// ListSince follows RTDB ordering: string timestamps sort after every
// number, so they are returned too.
func (m *Memory) ListSince(ctx context.Context, since int64) ([]models.Order, error) {
	return m.list(ctx, func(doc map[string]any) bool {
		ts := doc["timestamp"]
		if millis, ok := numericMillis(ts); ok {
			return millis >= since
		}
		_, isString := ts.(string)
		return isString
	})
}

func (m *Memory) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return m.list(ctx, func(doc map[string]any) bool {
		return stringField(doc, "userId") == userID
	})
}

func (m *Memory) Close() error { return nil }

// Get returns the raw document stored for orderID.
func (m *Memory) Get(orderID string) (map[string]any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[orderID]
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out, true
}

func (m *Memory) list(ctx context.Context, keep func(map[string]any) bool) ([]models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.docs))
	for id, doc := range m.docs {
		if keep(doc) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	orders := make([]models.Order, 0, len(ids))
	for _, id := range ids {
		o, err := decodeOrder(id, m.docs[id])
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}
