package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"

	"github.com/papeleria-1x1/checkout-api/models"
)

const ordersPath = "orders"

// rtdbServerTimestamp is resolved by the database on write.
var rtdbServerTimestamp = map[string]any{".sv": "timestamp"}

// Firebase stores orders in the Realtime Database.
type Firebase struct {
	client *db.Client
}

// NewFirebase connects with a service account given either as a JSON
// blob or a path to the key file.
func NewFirebase(ctx context.Context, databaseURL, credentials string) (*Firebase, error) {
	if credentials == "" {
		return nil, fmt.Errorf("firebase: %w: no credentials", ErrUnavailable)
	}

	var opt option.ClientOption
	if strings.HasPrefix(strings.TrimSpace(credentials), "{") {
		opt = option.WithCredentialsJSON([]byte(credentials))
	} else {
		opt = option.WithCredentialsFile(credentials)
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: databaseURL}, opt)
	if err != nil {
		return nil, fmt.Errorf("firebase: init app: %w", err)
	}
	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: init database: %w", err)
	}
	return &Firebase{client: client}, nil
}

func (f *Firebase) ref(orderID string) *db.Ref {
	return f.client.NewRef(ordersPath + "/" + orderID)
}

func (f *Firebase) Write(ctx context.Context, orderID string, intent Intent) error {
	switch in := intent.(type) {
	case Replace:
		doc, err := replaceDocument(in, rtdbServerTimestamp)
		if err != nil {
			return err
		}
		if err := f.ref(orderID).Set(ctx, doc); err != nil {
			return fmt.Errorf("firebase: set %s: %w", orderID, err)
		}
	case Merge:
		if err := f.ref(orderID).Update(ctx, resolveFields(in.Fields, rtdbServerTimestamp)); err != nil {
			return fmt.Errorf("firebase: update %s: %w", orderID, err)
		}
	}
	return nil
}

func (f *Firebase) Delete(ctx context.Context, orderID string) error {
	if err := f.ref(orderID).Delete(ctx); err != nil {
		return fmt.Errorf("firebase: delete %s: %w", orderID, err)
	}
	return nil
}

func (f *Firebase) ListSince(ctx context.Context, since int64) ([]models.Order, error) {
	var raw map[string]json.RawMessage
	q := f.client.NewRef(ordersPath).OrderByChild("timestamp").StartAt(since)
	if err := q.Get(ctx, &raw); err != nil {
		return nil, fmt.Errorf("firebase: query since %d: %w", since, err)
	}
	return decodeSnapshot(raw), nil
}

func (f *Firebase) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var raw map[string]json.RawMessage
	q := f.client.NewRef(ordersPath).OrderByChild("userId").EqualTo(userID)
	if err := q.Get(ctx, &raw); err != nil {
		return nil, fmt.Errorf("firebase: query user %s: %w", userID, err)
	}
	return decodeSnapshot(raw), nil
}

func (f *Firebase) Close() error { return nil }

// decodeSnapshot skips children that are not order objects.
func decodeSnapshot(raw map[string]json.RawMessage) []models.Order {
	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	orders := make([]models.Order, 0, len(ids))
	for _, id := range ids {
		o, err := decodeRaw(id, raw[id])
		if err != nil {
			continue
		}
		orders = append(orders, o)
	}
	return orders
}
