package saga

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/writeconcern"
	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"

	"github.com/relaybus/mongopersistence"
)

const (
	// defaultIndexInterval is how often the background index-assertion
	// flag is cleared, absent SetIndexDeclarationInterval.
	defaultIndexInterval = 10 * time.Minute
	// defaultIndexVariation is the jitter applied around defaultIndexInterval.
	defaultIndexVariation = 5 * time.Minute
)

// Store is a single collaborator shared by every saga type the bus loads.
// It holds no saga-type-specific state beyond the collection-name registry;
// Insert, Update, Delete, and Find are free functions parameterized by the
// saga type because Go methods cannot themselves be generic.
type Store struct {
	newCollection func(name string) collectionAPI
	newIndexes    func(name string) indexAPI
	clock         mongopersistence.Clock
	logger        *slog.Logger
	metrics       *Metrics

	namesMu         sync.RWMutex
	collectionNames map[reflect.Type]string
	allowAutomatic  bool

	indexEnsuredRecently atomic.Bool
	indexGroup           singleflight.Group

	timerMu        sync.Mutex
	timer          *time.Timer
	indexInterval  time.Duration
	indexVariation time.Duration

	closeOnce sync.Once
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
	return func(s *Store) {
		s.metrics = m
	}
}

// WithAutomaticCollectionNames enables the convention fallback: an
// unregistered saga type T maps to collection "sagas_<T>" instead of
// failing with MissingCollectionMappingError.
func WithAutomaticCollectionNames() Option {
	return func(s *Store) {
		s.allowAutomatic = true
	}
}

// WithIndexDeclarationInterval sets the background index-assertion timer
// at construction time. Equivalent to calling SetIndexDeclarationInterval
// after NewStore, except constructor errors surface from NewStore itself.
func WithIndexDeclarationInterval(interval, variation time.Duration) Option {
	return func(s *Store) {
		s.indexInterval = interval
		s.indexVariation = variation
	}
}

// NewStore creates a saga store backed by db. All writes issued through it
// use acknowledged write concern regardless of what the connection string
// configured, since correctness here depends on server confirmation of
// every insert, replace, and delete.
func NewStore(db *mongo.Database, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("saga store requires a database handle: %w", mongopersistence.ErrInvalidConfiguration)
	}

	acked := db.Client().Database(db.Name(), options.Database().SetWriteConcern(writeconcern.Majority()))

	s := &Store{
		newCollection:   func(name string) collectionAPI { return acked.Collection(name) },
		newIndexes:      func(name string) indexAPI { return acked.Collection(name).Indexes() },
		clock:           mongopersistence.SystemClock{},
		logger:          slog.Default(),
		collectionNames: make(map[reflect.Type]string),
		indexInterval:   defaultIndexInterval,
		indexVariation:  defaultIndexVariation,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.indexVariation > s.indexInterval {
		return nil, fmt.Errorf("index declaration variation %s exceeds interval %s: %w",
			s.indexVariation, s.indexInterval, mongopersistence.ErrInvalidConfiguration)
	}

	s.startIndexTimer()

	return s, nil
}

// SetIndexDeclarationInterval reconfigures the background timer that
// clears the index-assertion flag, restarting it immediately. variation
// must not exceed interval.
func (s *Store) SetIndexDeclarationInterval(interval, variation time.Duration) error {
	if variation > interval {
		return fmt.Errorf("index declaration variation %s exceeds interval %s: %w",
			variation, interval, mongopersistence.ErrInvalidConfiguration)
	}

	s.timerMu.Lock()
	s.indexInterval = interval
	s.indexVariation = variation
	s.timerMu.Unlock()

	s.startIndexTimer()
	return nil
}

// Close stops the background index timer. Safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.timerMu.Lock()
		if s.timer != nil {
			s.timer.Stop()
		}
		s.timerMu.Unlock()
	})
	return nil
}

// RegisterCollection maps sagaType to name explicitly. Re-registering the
// same type is a configuration error even if name is unchanged, matching
// the bus's expectation that collection wiring happens once at startup.
func RegisterCollection[T Data](s *Store, name string) error {
	t := sagaType[T]()

	s.namesMu.Lock()
	defer s.namesMu.Unlock()

	if existing, ok := s.collectionNames[t]; ok {
		return &DuplicateCollectionMappingError{SagaType: t, Existing: existing, Attempt: name}
	}
	s.collectionNames[t] = name
	s.logger.Info("registered saga collection", "saga_type", t.Name(), "collection", name)
	return nil
}

// sagaType extracts the concrete struct type backing pointer type T
// (T is expected to be a pointer to struct, e.g. *OrderSaga).
func sagaType[T Data]() reflect.Type {
	var zero T
	return reflect.TypeOf(zero).Elem()
}

// collectionFor resolves t's collection, applying the automatic naming
// convention if enabled and no explicit registration exists.
func (s *Store) collectionFor(t reflect.Type) (collectionAPI, error) {
	s.namesMu.RLock()
	name, ok := s.collectionNames[t]
	s.namesMu.RUnlock()

	if !ok {
		if !s.allowAutomatic {
			return nil, &MissingCollectionMappingError{SagaType: t}
		}
		name = "sagas_" + t.Name()
	}

	return s.newCollection(name), nil
}

// elementName resolves the first path segment of propertyPath against t
// (following embedded/anonymous fields, per reflect.Type.FieldByName),
// and returns its BSON element name: the explicit bson tag if present,
// otherwise the property name unchanged. Dotted paths whose head does not
// resolve to a field are passed through unmodified, matching the bus's
// expectation that nested paths still work without a registered type.
func elementName(t reflect.Type, propertyPath string) string {
	head, rest, hasRest := strings.Cut(propertyPath, ".")

	field, ok := t.FieldByName(head)
	if !ok {
		return propertyPath
	}

	name := bsonTagName(field)
	if name == "" {
		name = head
	}
	if hasRest {
		name = name + "." + rest
	}
	return name
}

// bsonTagName extracts the element name portion of a `bson:"..."` tag,
// ignoring trailing options like ",omitempty" and treating "-" as absent.
func bsonTagName(field reflect.StructField) string {
	tag, ok := field.Tag.Lookup("bson")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}

// revisionElement returns the on-disk element name for t's Revision
// property, resolved the same way as any other correlation path so that a
// saga type overriding the convention with its own bson tag is still
// honored by the conditional update/delete filters.
func revisionElement(t reflect.Type) string {
	return elementName(t, "Revision")
}
