package saga

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/relaybus/mongopersistence/internal/jitter"
)

// startIndexTimer (re)starts the timer that periodically clears
// indexEnsuredRecently, forcing the next Insert or Update to re-verify
// indexes. The interval is randomized in [interval-variation,
// interval+variation] on every tick, which is per-process jitter against a
// thundering herd when a fleet of bus instances boots together.
func (s *Store) startIndexTimer() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}

	var tick func()
	tick = func() {
		s.indexEnsuredRecently.Store(false)

		s.timerMu.Lock()
		defer s.timerMu.Unlock()
		s.timer = time.AfterFunc(jitter.Duration(s.indexInterval, s.indexVariation), tick)
	}

	s.timer = time.AfterFunc(jitter.Duration(s.indexInterval, s.indexVariation), tick)
}

// ensureIndexes verifies (and if needed, creates) the unique correlation
// indexes for coll before an Insert or Update proceeds. It is a no-op
// once indexEnsuredRecently is set, until the background timer clears it
// again — so only the first Insert/Update to run after each tick pays the
// listIndexes/createIndex cost, and only for its own collection. This
// mirrors the bus's original single-flag-per-store design: the flag is
// shared by every collection of one Store, not kept per collection.
func (s *Store) ensureIndexes(ctx context.Context, coll collectionAPI, sagaType reflect.Type, paths []string) error {
	if s.indexEnsuredRecently.Load() {
		return nil
	}

	_, err, _ := s.indexGroup.Do("assert", func() (any, error) {
		if s.indexEnsuredRecently.Load() {
			return nil, nil
		}
		if err := s.assertIndexes(ctx, coll, sagaType, paths); err != nil {
			return nil, err
		}
		s.indexEnsuredRecently.Store(true)
		return nil, nil
	})
	return err
}

// EnsureIndexes runs the same assertion pass ensureIndexes performs
// automatically, but unconditionally and independent of
// indexEnsuredRecently. Operators can call this once at startup so the
// first real Insert or Update doesn't pay the cost.
func EnsureIndexes[T Data](ctx context.Context, s *Store, paths []string) error {
	t := sagaType[T]()
	coll, err := s.collectionFor(t)
	if err != nil {
		return err
	}
	if err := s.assertIndexes(ctx, coll, t, paths); err != nil {
		return err
	}
	s.indexEnsuredRecently.Store(true)
	return nil
}

type existingIndex struct {
	unique     bool
	background bool
}

// assertIndexes enumerates coll's current indexes and, for every path in
// paths (skipping the Id property, whose uniqueness the primary key
// already guarantees), creates a foreground unique ascending index if none
// exists on that exact element name, or fails with IndexMisconfiguredError
// if one exists but isn't unique or was built in the background.
func (s *Store) assertIndexes(ctx context.Context, coll collectionAPI, sagaType reflect.Type, paths []string) error {
	s.metrics.recordIndexAssertion(ctx)

	indexes := s.newIndexes(coll.Name())

	existing, err := singleKeyIndexes(ctx, indexes)
	if err != nil {
		return fmt.Errorf("list indexes on %s: %w", coll.Name(), err)
	}

	for _, path := range paths {
		if path == "Id" || path == "ID" {
			continue
		}

		element := elementName(sagaType, path)

		if idx, ok := existing[element]; ok {
			switch {
			case !idx.unique:
				return &IndexMisconfiguredError{Collection: coll.Name(), Path: path, Element: element, Reason: "existing index is not unique"}
			case idx.background:
				return &IndexMisconfiguredError{Collection: coll.Name(), Path: path, Element: element, Reason: "existing index was built in the background"}
			default:
				continue
			}
		}

		model := mongo.IndexModel{
			Keys:    bson.D{{Key: element, Value: 1}},
			Options: options.Index().SetUnique(true),
		}
		if _, err := indexes.CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create unique index on %s.%s: %w", coll.Name(), element, err)
		}
		s.logger.Info("created unique saga correlation index", "collection", coll.Name(), "path", path, "element", element)
	}

	return nil
}

// indexListDoc mirrors the shape of a listIndexes result document closely
// enough to read the two flags this package cares about. unique defaults to
// false when absent, exactly as MongoDB's own listIndexes response does for
// an index created without SetUnique. background is a legacy field: the v2
// driver's index-creation options have no client-settable foreground/
// background knob (the server has ignored the flag since MongoDB 4.2), but
// a pre-existing index built by an older client or driver can still carry
// it, and assertIndexes must still reject such an index as misconfigured.
type indexListDoc struct {
	Key        bson.D `bson:"key"`
	Unique     bool   `bson:"unique"`
	Background bool   `bson:"background"`
}

// singleKeyIndexes returns, for every index that covers exactly one field,
// that field's element name mapped to its unique/background flags.
// Compound indexes are excluded — a compound index covering a correlation
// path does not satisfy the "exactly one index per path" invariant even if
// that path happens to be its prefix key.
func singleKeyIndexes(ctx context.Context, indexes indexAPI) (map[string]existingIndex, error) {
	cursor, err := indexes.List(ctx)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	result := make(map[string]existingIndex)
	for cursor.Next(ctx) {
		var doc indexListDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		if len(doc.Key) != 1 {
			continue
		}
		result[doc.Key[0].Key] = existingIndex{unique: doc.Unique, background: doc.Background}
	}
	return result, cursor.Err()
}
