package saga

import (
	"context"
	"reflect"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Insert persists a brand new saga instance. indexPaths lists the
// correlation properties (by Go field name, not BSON element name) that
// must be unique across every instance of T; the store asserts unique
// indexes for them before the write, at most once per index-declaration
// interval.
//
// On success data's revision is incremented by one, so a new saga with
// revision 0 is stored with revision 1. On a duplicate key — either the
// primary key or one of indexPaths' unique indexes — Insert returns a
// *ConflictError wrapping the driver's error, with data's revision left
// untouched at its pre-call value.
func Insert[T Data](ctx context.Context, s *Store, data T, indexPaths []string) error {
	t := reflect.TypeOf(data).Elem()

	coll, err := s.collectionFor(t)
	if err != nil {
		return err
	}

	if err := s.ensureIndexes(ctx, coll, t, indexPaths); err != nil {
		return err
	}

	start := s.clock.Now()
	priorRevision := data.SagaRevision()
	data.SetRevision(priorRevision + 1)

	_, err = coll.InsertOne(ctx, data)
	s.metrics.recordInsert(ctx, s.clock.Now().Sub(start), err)
	if err != nil {
		data.SetRevision(priorRevision)
		if mongo.IsDuplicateKeyError(err) {
			return &ConflictError{Data: data, Err: err}
		}
		return err
	}

	return nil
}

// Update replaces the persisted copy of data with its current in-memory
// contents, conditioned on data's revision matching what's on disk. On
// success data's revision is incremented by one.
//
// If the conditional replace matches zero documents (someone else won the
// race, or data was already deleted) or fails as a duplicate key (data was
// changed to collide with another instance on a unique correlation path),
// Update returns a *ConflictError and leaves data's revision at its
// pre-call value.
func Update[T Data](ctx context.Context, s *Store, data T, indexPaths []string) error {
	t := reflect.TypeOf(data).Elem()

	coll, err := s.collectionFor(t)
	if err != nil {
		return err
	}

	if err := s.ensureIndexes(ctx, coll, t, indexPaths); err != nil {
		return err
	}

	priorRevision := data.SagaRevision()
	filter := bson.D{
		{Key: "_id", Value: data.SagaID()},
		{Key: revisionElement(t), Value: priorRevision},
	}

	data.SetRevision(priorRevision + 1)

	start := s.clock.Now()
	res, err := coll.ReplaceOne(ctx, filter, data)
	s.metrics.recordUpdate(ctx, s.clock.Now().Sub(start), err)
	if err != nil {
		data.SetRevision(priorRevision)
		if mongo.IsDuplicateKeyError(err) {
			return &ConflictError{Data: data, Err: err}
		}
		return err
	}
	if res.MatchedCount == 0 {
		data.SetRevision(priorRevision)
		return &ConflictError{Data: data, Err: errNoMatch}
	}

	return nil
}

// Delete removes the persisted copy of data, conditioned on data's
// revision matching what's on disk. If the conditional delete matches
// zero documents, Delete returns a *ConflictError.
func Delete[T Data](ctx context.Context, s *Store, data T) error {
	t := reflect.TypeOf(data).Elem()

	coll, err := s.collectionFor(t)
	if err != nil {
		return err
	}

	filter := bson.D{
		{Key: "_id", Value: data.SagaID()},
		{Key: revisionElement(t), Value: data.SagaRevision()},
	}

	start := s.clock.Now()
	res, err := coll.DeleteOne(ctx, filter)
	s.metrics.recordDelete(ctx, s.clock.Now().Sub(start), err)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return &ConflictError{Data: data, Err: errNoMatch}
	}

	return nil
}

// Find looks up a single instance of T by a correlation property.
// propertyPath is a Go field name (possibly dotted for nested fields,
// e.g. "Address.City"); it is resolved to a BSON element name the same
// way Insert and Update resolve indexPaths.
//
// Find returns the zero value of T and a nil error if no document
// matches, mirroring the convention that "not found" is not itself a
// failure.
func Find[T Data](ctx context.Context, s *Store, propertyPath string, value any) (T, error) {
	var zero T
	t := sagaType[T]()

	coll, err := s.collectionFor(t)
	if err != nil {
		return zero, err
	}

	element := elementName(t, propertyPath)
	filter := bson.D{{Key: element, Value: value}}

	result, ok := reflect.New(t).Interface().(T)
	if !ok {
		return zero, &MissingCollectionMappingError{SagaType: t}
	}

	start := s.clock.Now()
	err = coll.FindOne(ctx, filter).Decode(result)
	s.metrics.recordFind(ctx, s.clock.Now().Sub(start), err)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return zero, nil
		}
		return zero, err
	}

	return result, nil
}
