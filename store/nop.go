package store

import (
	"context"

	"github.com/papeleria-1x1/checkout-api/models"
)

// Nop stands in when no backend could be configured. Writes fail with
// ErrUnavailable and reads come back empty, so callers keep serving.
type Nop struct{}

func (Nop) Write(context.Context, string, Intent) error { return ErrUnavailable }

func (Nop) Delete(context.Context, string) error { return ErrUnavailable }

func (Nop) ListSince(context.Context, int64) ([]models.Order, error) { return nil, nil }

func (Nop) ListByUser(context.Context, string) ([]models.Order, error) { return nil, nil }

func (Nop) Close() error { return nil }
