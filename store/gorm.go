package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/papeleria-1x1/checkout-api/models"
)

// OrderRow is the SQL shape of an order: indexed columns for the fields
// the service queries on, and the full document as JSON.
type OrderRow struct {
	ID            string `gorm:"primaryKey;size:64"`
	Status        string `gorm:"size:32;index"`
	PaymentMethod string `gorm:"size:16"`
	UserID        string `gorm:"size:128;index"`
	Timestamp     *int64 `gorm:"index"`
	Data          datatypes.JSON
	UpdatedAt     time.Time
}

func (OrderRow) TableName() string { return "orders" }

// Gorm stores orders in a SQL table, MySQL in production.
type Gorm struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGorm(db *gorm.DB, now func() time.Time) *Gorm {
	if now == nil {
		now = time.Now
	}
	return &Gorm{db: db, now: now}
}

func (g *Gorm) Write(ctx context.Context, orderID string, intent Intent) error {
	stamp := nowMillis(g.now)

	switch in := intent.(type) {
	case Replace:
		doc, err := replaceDocument(in, stamp)
		if err != nil {
			return err
		}
		return g.upsert(g.db.WithContext(ctx), orderID, doc)
	case Merge:
		fields := resolveFields(in.Fields, stamp)
		return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			doc := map[string]any{}
			var row OrderRow
			err := tx.First(&row, "id = ?", orderID).Error
			switch {
			case err == nil:
				if len(row.Data) > 0 {
					if err := json.Unmarshal(row.Data, &doc); err != nil {
						return fmt.Errorf("gorm: decode %s: %w", orderID, err)
					}
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
			default:
				return fmt.Errorf("gorm: load %s: %w", orderID, err)
			}
			for k, v := range fields {
				doc[k] = v
			}
			return g.upsert(tx, orderID, doc)
		})
	}
	return nil
}

func (g *Gorm) upsert(tx *gorm.DB, orderID string, doc map[string]any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("gorm: encode %s: %w", orderID, err)
	}
	row := OrderRow{
		ID:            orderID,
		Status:        stringField(doc, "status"),
		PaymentMethod: stringField(doc, "paymentMethod"),
		UserID:        stringField(doc, "userId"),
		Data:          datatypes.JSON(data),
		UpdatedAt:     g.now(),
	}
	if millis, ok := numericMillis(doc["timestamp"]); ok {
		row.Timestamp = &millis
	}
	if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("gorm: save %s: %w", orderID, err)
	}
	return nil
}

func (g *Gorm) Delete(ctx context.Context, orderID string) error {
	if err := g.db.WithContext(ctx).Delete(&OrderRow{}, "id = ?", orderID).Error; err != nil {
		return fmt.Errorf("gorm: delete %s: %w", orderID, err)
	}
	return nil
}

func (g *Gorm) ListSince(ctx context.Context, since int64) ([]models.Order, error) {
	var rows []OrderRow
	if err := g.db.WithContext(ctx).Where("timestamp >= ?", since).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("gorm: list since %d: %w", since, err)
	}
	return decodeRows(rows)
}

func (g *Gorm) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var rows []OrderRow
	if err := g.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("gorm: list user %s: %w", userID, err)
	}
	return decodeRows(rows)
}

func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func decodeRows(rows []OrderRow) ([]models.Order, error) {
	orders := make([]models.Order, 0, len(rows))
	for _, row := range rows {
		o, err := decodeRaw(row.ID, row.Data)
		if err != nil {
			return nil, fmt.Errorf("gorm: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}
