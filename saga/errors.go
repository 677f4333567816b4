package saga

import (
	"errors"
	"fmt"
	"reflect"
)

// Sentinel errors. Use errors.Is to test for these; the concrete error
// values returned by Insert/Update/Delete/RegisterCollection carry
// additional context (the offending saga datum, the collection, the
// index path) and satisfy errors.Is against the matching sentinel below
// via an Is method.
var (
	// ErrOptimisticLockingConflict indicates a concurrent modification or
	// a unique-correlation collision. The concrete error is *ConflictError,
	// which carries the saga datum that failed to persist.
	ErrOptimisticLockingConflict = errors.New("optimistic locking conflict")

	// ErrDuplicateCollectionMapping indicates the same saga type was
	// registered twice with RegisterCollection.
	ErrDuplicateCollectionMapping = errors.New("saga type already has a registered collection")

	// ErrMissingCollectionMapping indicates an operation on a saga type
	// that has neither an explicit collection registration nor automatic
	// naming enabled.
	ErrMissingCollectionMapping = errors.New("no collection registered for saga type")

	// ErrIndexMisconfigured indicates a correlation-path index exists but
	// is not unique, or was built in the background.
	ErrIndexMisconfigured = errors.New("saga correlation index misconfigured")

	// errNoMatch is wrapped inside ConflictError when an Update or Delete
	// matched zero documents (stale revision), as opposed to a duplicate
	// key violation.
	errNoMatch = errors.New("no document matched id and revision")
)

// ConflictError is returned by Insert, Update, and Delete whenever the
// underlying write failed as a duplicate key (either the primary key or a
// unique correlation index) or matched zero documents (stale revision).
// It satisfies errors.Is(err, ErrOptimisticLockingConflict).
type ConflictError struct {
	// Data is the saga datum whose write failed. Its Revision field has
	// already been rolled back to the value it had before the failed
	// call, so retrying against a freshly reloaded copy is safe.
	Data Data
	// Err is the underlying driver error, or errNoMatch for a stale
	// revision that was not also a duplicate key.
	Err error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("optimistic locking conflict on saga %s: %v", e.Data.SagaID(), e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

func (e *ConflictError) Is(target error) bool { return target == ErrOptimisticLockingConflict }

// DuplicateCollectionMappingError is returned by RegisterCollection when
// the saga type already has a registered collection.
type DuplicateCollectionMappingError struct {
	SagaType reflect.Type
	Existing string
	Attempt  string
}

func (e *DuplicateCollectionMappingError) Error() string {
	return fmt.Sprintf("saga type %s is already mapped to collection %q, cannot remap to %q",
		e.SagaType, e.Existing, e.Attempt)
}

func (e *DuplicateCollectionMappingError) Is(target error) bool {
	return target == ErrDuplicateCollectionMapping
}

// MissingCollectionMappingError is returned by Insert, Update, Delete, and
// Find for a saga type with no collection mapping and automatic naming
// disabled.
type MissingCollectionMappingError struct {
	SagaType reflect.Type
}

func (e *MissingCollectionMappingError) Error() string {
	name := e.SagaType.Name()
	return fmt.Sprintf(
		"no collection registered for saga type %s: register one explicitly with saga.RegisterCollection, "+
			"or enable the naming convention with saga.WithAutomaticCollectionNames (maps %s to collection %q)",
		name, name, "sagas_"+name)
}

func (e *MissingCollectionMappingError) Is(target error) bool {
	return target == ErrMissingCollectionMapping
}

// IndexMisconfiguredError is returned by Insert and Update when a
// correlation path already has a same-name index that is not unique or
// was built in the background.
type IndexMisconfiguredError struct {
	Collection string
	Path       string
	Element    string
	Reason     string
}

func (e *IndexMisconfiguredError) Error() string {
	return fmt.Sprintf("index on %s.%s (element %q) is misconfigured: %s",
		e.Collection, e.Path, e.Element, e.Reason)
}

func (e *IndexMisconfiguredError) Is(target error) bool { return target == ErrIndexMisconfigured }
