package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sitegate/models"
)

const mongoCollection = "audit_logs"

// MongoStore writes events as documents of the audit_logs collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	collection := client.Database(dbName).Collection(mongoCollection)
	_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "event_type", Value: 1}, {Key: "ip_address", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create audit index: %w", err)
	}

	return &MongoStore{client: client, collection: collection, now: time.Now}, nil
}

func (s *MongoStore) Append(ctx context.Context, event models.AuditEvent) error {
	if err := validate(event); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	doc := bson.M{
		"_id":        uuid.New().String(),
		"event_type": string(event.EventType),
		"ip_address": event.IPAddress,
		"user_agent": event.UserAgent,
		"details":    event.Details,
		"created_at": s.now(),
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func matchSince(eventType models.EventType, ip string, cutoff time.Time) bson.M {
	return bson.M{
		"event_type": string(eventType),
		"ip_address": ip,
		"created_at": bson.M{"$gte": cutoff},
	}
}

func (s *MongoStore) CountSince(ctx context.Context, eventType models.EventType, ip string, cutoff time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	count, err := s.collection.CountDocuments(ctx, matchSince(eventType, ip, cutoff))
	if err != nil {
		return 0, fmt.Errorf("count audit events: %w", err)
	}
	return int(count), nil
}

func (s *MongoStore) LatestSince(ctx context.Context, eventType models.EventType, ip string, cutoff time.Time) (time.Time, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	opts := options.FindOne().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetProjection(bson.M{"created_at": 1})

	var row struct {
		CreatedAt time.Time `bson:"created_at"`
	}
	err := s.collection.FindOne(ctx, matchSince(eventType, ip, cutoff), opts).Decode(&row)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("latest audit event: %w", err)
	}
	return row.CreatedAt, true, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
