package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/papeleria-1x1/checkout-api/models"
)

// Mongo stores one document per order with _id set to the order id.
type Mongo struct {
	client     *mongo.Client
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongo(ctx context.Context, uri, dbName string, now func() time.Time) (*Mongo, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo: %w: no uri", ErrUnavailable)
	}
	if now == nil {
		now = time.Now
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	collection := client.Database(dbName).Collection(ordersPath)
	_, err = collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: 1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("mongo: create indexes: %w", err)
	}

	return &Mongo{client: client, collection: collection, now: now}, nil
}

func (m *Mongo) Write(ctx context.Context, orderID string, intent Intent) error {
	stamp := nowMillis(m.now)

	switch in := intent.(type) {
	case Replace:
		doc, err := replaceDocument(in, stamp)
		if err != nil {
			return err
		}
		doc["_id"] = orderID
		_, err = m.collection.ReplaceOne(ctx, bson.M{"_id": orderID}, doc, options.Replace().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("mongo: replace %s: %w", orderID, err)
		}
	case Merge:
		set := bson.M{}
		for k, v := range resolveFields(in.Fields, stamp) {
			set[k] = v
		}
		_, err := m.collection.UpdateOne(ctx, bson.M{"_id": orderID}, bson.M{"$set": set}, options.Update().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("mongo: update %s: %w", orderID, err)
		}
	}
	return nil
}

func (m *Mongo) Delete(ctx context.Context, orderID string) error {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": orderID}); err != nil {
		return fmt.Errorf("mongo: delete %s: %w", orderID, err)
	}
	return nil
}

func (m *Mongo) ListSince(ctx context.Context, since int64) ([]models.Order, error) {
	return m.find(ctx, bson.M{"timestamp": bson.M{"$gte": since}})
}

func (m *Mongo) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return m.find(ctx, bson.M{"userId": userID})
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *Mongo) find(ctx context.Context, filter bson.M) ([]models.Order, error) {
	cursor, err := m.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo: find: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: read cursor: %w", err)
	}

	orders := make([]models.Order, 0, len(docs))
	for _, doc := range docs {
		id, _ := doc["_id"].(string)
		delete(doc, "_id")
		o, err := decodeOrder(id, map[string]any(doc))
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}
