// Package timeout implements the bus runtime's timeout persistence
// contract on top of MongoDB: a due-time priority queue that many
// concurrent pollers can drain safely.
//
// # Model
//
// A Timeout is a single deferred message: a due time, a correlation ID,
// the owning saga ID, an opaque payload, and a reply-to address. Add
// inserts one; GetDueTimeouts atomically claims a batch of timeouts whose
// due time has passed and that are either unclaimed or whose lease has
// expired, setting each claimed timeout's lease so no other poller can
// claim it concurrently.
//
//	store, _ := timeout.NewStore(db)
//	store.Add(ctx, &timeout.Timeout{
//	    Time:   time.Now().Add(30 * time.Second),
//	    CorrID: "order-42",
//	})
//
//	due, _ := store.GetDueTimeouts(ctx)
//	for _, d := range due {
//	    process(d.Timeout)
//	    d.MarkAsProcessed(ctx)
//	}
package timeout
