package timeout

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Timeout is a single deferred message the bus asked to be redelivered at
// (or after) Time. CorrID and SagaID let the bus route the redelivery back
// to the workflow that scheduled it; SagaID may be the zero uuid.UUID for
// timeouts not owned by any saga.
type Timeout struct {
	ID      uuid.UUID `bson:"_id"`
	Time    time.Time `bson:"time"`
	CorrID  string    `bson:"corr_id"`
	SagaID  uuid.UUID `bson:"saga_id"`
	Data    []byte    `bson:"data"`
	ReplyTo string    `bson:"reply_to"`

	// DueLock is the lease expiry: zero until a poller claims the
	// timeout via GetDueTimeouts, after which it holds the instant the
	// claim expires and the timeout becomes claimable again.
	DueLock time.Time `bson:"due_lock"`
}

// DueTimeout wraps a Timeout claimed by GetDueTimeouts. Callers must call
// MarkAsProcessed once they've successfully handed the timeout off,
// otherwise it becomes claimable again by another poller once its lease
// expires.
type DueTimeout struct {
	*Timeout

	store *Store
}

// MarkAsProcessed deletes the timeout by its id. Processing a timeout whose
// lease already expired and was reclaimed by another poller is harmless:
// the second delete matches zero documents and MarkAsProcessed still
// returns nil.
func (d *DueTimeout) MarkAsProcessed(ctx context.Context) error {
	return d.store.markProcessed(ctx, d)
}
