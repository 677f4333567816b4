package subscription

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/writeconcern"

	"github.com/relaybus/mongopersistence"
)

// record is the on-disk shape of a single event type's subscriber set.
// _id is the event's full name; Endpoints is a set, maintained with
// $addToSet/$pull so concurrent Store/Remove calls never race each other
// into a duplicate or a lost update.
type record struct {
	EventName string   `bson:"_id"`
	Endpoints []string `bson:"endpoints"`
}

// Store maps event type full names to their subscriber endpoint sets.
type Store struct {
	coll    collectionAPI
	raw     *mongo.Collection
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Store at construction.
type Option func(*Store)

// WithLogger overrides the store's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches OpenTelemetry instrumentation. Nil is a no-op.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithCollectionName overrides the collection name. Defaults to "subscriptions".
func WithCollectionName(db *mongo.Database, name string) Option {
	return func(s *Store) {
		if name != "" {
			c := db.Client().Database(db.Name(), options.Database().SetWriteConcern(writeconcern.Majority())).Collection(name)
			s.coll = c
			s.raw = c
		}
	}
}

// NewStore creates a subscription store backed by db's "subscriptions"
// collection. All writes use acknowledged write concern.
func NewStore(db *mongo.Database, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("subscription store requires a database handle: %w", mongopersistence.ErrInvalidConfiguration)
	}

	acked := db.Client().Database(db.Name(), options.Database().SetWriteConcern(writeconcern.Majority()))
	coll := acked.Collection("subscriptions")

	s := &Store{
		coll:   coll,
		raw:    coll,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Store registers endpoint as a subscriber of eventName. Calling it again
// with the same endpoint is a no-op.
func (s *Store) Store(ctx context.Context, eventName, endpoint string) error {
	filter := bson.D{{Key: "_id", Value: eventName}}
	update := bson.D{{Key: "$addToSet", Value: bson.D{{Key: "endpoints", Value: endpoint}}}}

	_, err := s.coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	s.metrics.recordStore(ctx, err)
	if err != nil {
		return fmt.Errorf("store subscription: %w", err)
	}
	return nil
}

// Remove unregisters endpoint from eventName's subscriber set. Removing an
// endpoint that was never stored, or from an eventName with no
// subscribers at all, is a no-op.
func (s *Store) Remove(ctx context.Context, eventName, endpoint string) error {
	filter := bson.D{{Key: "_id", Value: eventName}}
	update := bson.D{{Key: "$pull", Value: bson.D{{Key: "endpoints", Value: endpoint}}}}

	_, err := s.coll.UpdateOne(ctx, filter, update)
	s.metrics.recordRemove(ctx, err)
	if err != nil {
		return fmt.Errorf("remove subscription: %w", err)
	}
	return nil
}

// GetSubscribers returns eventName's current subscriber endpoints. It
// returns an empty, non-nil slice (not an error) if eventName has no
// subscribers, or has never been stored at all.
func (s *Store) GetSubscribers(ctx context.Context, eventName string) ([]string, error) {
	var doc record
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: eventName}}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return []string{}, nil
		}
		return nil, fmt.Errorf("get subscribers: %w", err)
	}
	if doc.Endpoints == nil {
		return []string{}, nil
	}
	return doc.Endpoints, nil
}

// EnsureIndexes exists for interface symmetry with the saga and timeout
// stores. The subscription collection has no index requirements beyond
// its _id primary key, so this is a no-op.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	return nil
}

// Collection returns the underlying collection for custom queries.
func (s *Store) Collection() *mongo.Collection { return s.raw }
