package saga

import "github.com/google/uuid"

// Data is the capability every type persisted through this package must
// implement. Callers get it for free by embedding Header.
type Data interface {
	SagaID() uuid.UUID
	SagaRevision() int64
	SetRevision(int64)
}

// Header carries the two fields every saga datum must have: a stable
// identifier and a monotonically increasing revision. Embed it in your
// saga type with `bson:",inline"` so its fields serialize as top-level
// document fields rather than a nested subdocument:
//
//	type OrderSaga struct {
//	    saga.Header `bson:",inline"`
//	    CustomerID  string `bson:"customerid"`
//	}
//
// The Revision field's `bson:"_rev"` tag is the entire implementation of
// this package's revision-naming convention: every saga type gets the
// _rev element name on disk simply by embedding Header, with no process-wide
// BSON registry mutation involved.
type Header struct {
	ID       uuid.UUID `bson:"_id"`
	Revision int64     `bson:"_rev"`
}

// SagaID returns the saga instance's stable identifier.
func (h *Header) SagaID() uuid.UUID { return h.ID }

// SagaRevision returns the in-memory revision, which callers should treat
// as the last-known-persisted value until an Insert or Update call
// succeeds and increments it.
func (h *Header) SagaRevision() int64 { return h.Revision }

// SetRevision overwrites the in-memory revision. Insert and Update call
// this after a successful write; callers should not normally call it
// themselves.
func (h *Header) SetRevision(rev int64) { h.Revision = rev }

var _ Data = (*Header)(nil)
