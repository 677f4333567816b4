package timeout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/writeconcern"
	"go.uber.org/atomic"

	"github.com/relaybus/mongopersistence"
)

const (
	defaultLeaseDuration = 5 * time.Second
	defaultBatchSize     = 5
	// minLeaseDuration is the poller tick interval a lease must outlast:
	// a lease shorter than one tick would expire and become reclaimable
	// before the poller that holds it gets a chance to act on it again.
	minLeaseDuration = 300 * time.Millisecond
)

// Store is a lease-based due-time queue: many concurrent pollers can call
// GetDueTimeouts against the same Store without claiming the same timeout
// twice, because each claim is an atomic FindOneAndUpdate against the
// server, not a client-side coordination scheme.
type Store struct {
	coll    collectionAPI
	indexes indexAPI
	raw     *mongo.Collection

	clock         mongopersistence.Clock
	logger        *slog.Logger
	metrics       *Metrics
	leaseDuration time.Duration
	batchSize     int

	closed atomic.Bool
}

// Option configures a Store at construction.
type Option func(*Store)

// WithClock overrides the store's Clock. Defaults to mongopersistence.SystemClock.
func WithClock(clock mongopersistence.Clock) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

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

// WithLeaseDuration sets how long a GetDueTimeouts claim holds a timeout
// before it becomes claimable again. Defaults to 5s. It must exceed the
// 300ms poller tick interval; NewStore rejects a shorter value with
// mongopersistence.ErrInvalidConfiguration.
func WithLeaseDuration(d time.Duration) Option {
	return func(s *Store) { s.leaseDuration = d }
}

// WithBatchSize sets how many timeouts a single GetDueTimeouts call
// claims. Defaults to 5. It must be positive; NewStore rejects a
// non-positive value with mongopersistence.ErrInvalidConfiguration.
func WithBatchSize(n int) Option {
	return func(s *Store) { s.batchSize = n }
}

// WithCollectionName overrides the collection name. Defaults to "timeouts".
func WithCollectionName(db *mongo.Database, name string) Option {
	return func(s *Store) {
		if name != "" {
			c := db.Client().Database(db.Name(), options.Database().SetWriteConcern(writeconcern.Majority())).Collection(name)
			s.coll = c
			s.indexes = c.Indexes()
			s.raw = c
		}
	}
}

// NewStore creates a timeout store backed by db's "timeouts" collection.
// All writes use acknowledged write concern.
func NewStore(db *mongo.Database, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("timeout store requires a database handle: %w", mongopersistence.ErrInvalidConfiguration)
	}

	acked := db.Client().Database(db.Name(), options.Database().SetWriteConcern(writeconcern.Majority()))
	coll := acked.Collection("timeouts")

	s := &Store{
		coll:          coll,
		indexes:       coll.Indexes(),
		raw:           coll,
		clock:         mongopersistence.SystemClock{},
		logger:        slog.Default(),
		leaseDuration: defaultLeaseDuration,
		batchSize:     defaultBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.leaseDuration <= minLeaseDuration {
		return nil, fmt.Errorf("lease duration %s does not exceed poll tick %s: %w",
			s.leaseDuration, minLeaseDuration, mongopersistence.ErrInvalidConfiguration)
	}
	if s.batchSize <= 0 {
		return nil, fmt.Errorf("batch size %d is not positive: %w", s.batchSize, mongopersistence.ErrInvalidConfiguration)
	}

	return s, nil
}

// Add schedules a new timeout. If t.ID is the zero UUID, Add assigns it a
// freshly generated one before inserting.
func (s *Store) Add(ctx context.Context, t *Timeout) error {
	if s.closed.Load() {
		return fmt.Errorf("timeout store is closed")
	}

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.DueLock = time.Time{}

	start := s.clock.Now()
	_, err := s.coll.InsertOne(ctx, t)
	s.metrics.recordAdd(ctx, s.clock.Now().Sub(start), err)
	if err != nil {
		return fmt.Errorf("add timeout: %w", err)
	}
	return nil
}

// GetDueTimeouts atomically claims up to the configured batch size of
// timeouts whose due time has passed and whose lease (if any) has
// expired, extending each claimed timeout's lease by the configured lease
// duration. It returns fewer results if fewer are due; it returns an
// empty, non-nil slice (not an error) if none are due.
//
// Claims happen one document at a time via FindOneAndUpdate, the same
// pattern a single-document visibility-timeout queue uses: MongoDB has no
// atomic "claim N documents" primitive, so a batch claim is N atomic
// single-document claims run in sequence.
func (s *Store) GetDueTimeouts(ctx context.Context) ([]*DueTimeout, error) {
	if s.closed.Load() {
		return nil, fmt.Errorf("timeout store is closed")
	}

	due := make([]*DueTimeout, 0, s.batchSize)
	for len(due) < s.batchSize {
		now := s.clock.Now()
		lease := now.Add(s.leaseDuration)

		filter := bson.D{
			{Key: "time", Value: bson.D{{Key: "$lte", Value: now}}},
			{Key: "$or", Value: bson.A{
				bson.D{{Key: "due_lock", Value: time.Time{}}},
				bson.D{{Key: "due_lock", Value: bson.D{{Key: "$lt", Value: now}}}},
			}},
		}
		update := bson.D{{Key: "$set", Value: bson.D{{Key: "due_lock", Value: lease}}}}
		opts := options.FindOneAndUpdate().
			SetSort(bson.D{{Key: "time", Value: 1}, {Key: "due_lock", Value: 1}}).
			SetReturnDocument(options.After)

		start := s.clock.Now()
		var doc Timeout
		err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
		s.metrics.recordClaim(ctx, s.clock.Now().Sub(start), err)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				break
			}
			return due, fmt.Errorf("claim due timeout: %w", err)
		}

		due = append(due, &DueTimeout{Timeout: &doc, store: s})
	}

	s.metrics.recordBatchSize(ctx, len(due))
	return due, nil
}

// markProcessed deletes d by its id, unconditionally. If another poller
// already reclaimed and processed d after this lease expired, the delete
// matches zero documents and that is a success, not an error: it means
// the timeout is gone either way.
func (s *Store) markProcessed(ctx context.Context, d *DueTimeout) error {
	filter := bson.D{{Key: "_id", Value: d.ID}}
	if _, err := s.coll.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("mark timeout processed: %w", err)
	}
	return nil
}

// Stats holds timeout counts for monitoring: Due counts timeouts whose
// time has passed and that hold no active lease, Leased counts timeouts
// under an active lease, and Total counts every timeout, including those
// whose time has not yet come.
type Stats struct {
	Due    int64
	Leased int64
	Total  int64
}

// Stats reports current queue depth by disposition.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	now := s.clock.Now()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "$cond", Value: bson.A{
					bson.D{{Key: "$or", Value: bson.A{
						bson.D{{Key: "$eq", Value: bson.A{"$due_lock", time.Time{}}}},
						bson.D{{Key: "$lt", Value: bson.A{"$due_lock", now}}},
					}}},
					bson.D{{Key: "$cond", Value: bson.A{
						bson.D{{Key: "$lte", Value: bson.A{"$time", now}}},
						"due",
						"pending",
					}}},
					"leased",
				}},
			}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return Stats{}, fmt.Errorf("aggregate timeout stats: %w", err)
	}
	defer cursor.Close(ctx)

	var stats Stats
	for cursor.Next(ctx) {
		var result struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cursor.Decode(&result); err != nil {
			return Stats{}, fmt.Errorf("decode timeout stats: %w", err)
		}
		switch result.ID {
		case "due":
			stats.Due = result.Count
		case "leased":
			stats.Leased = result.Count
		}
		stats.Total += result.Count
	}
	if err := cursor.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate timeout stats: %w", err)
	}

	return stats, nil
}

// EnsureIndexes creates the index that backs GetDueTimeouts' claim query:
// timeouts sorted and filtered by (time, due_lock). The index is
// non-unique and ascending on both keys. No background option is set: the
// driver's index options have no such setting, so the server's default
// index build applies.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.indexes.CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "time", Value: 1}, {Key: "due_lock", Value: 1}},
		Options: options.Index().SetName("time_due_lock"),
	})
	if err != nil {
		return fmt.Errorf("create timeout index: %w", err)
	}
	return nil
}

// Collection returns the underlying collection for custom queries.
func (s *Store) Collection() *mongo.Collection { return s.raw }

// Close marks the store closed. Add and GetDueTimeouts return an error
// after Close; Close itself is idempotent and never errors.
func (s *Store) Close() error {
	s.closed.Store(true)
	return nil
}
