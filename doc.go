// Package mongopersistence provides the collaborators shared by the three
// MongoDB-backed persistence plugins in this module:
//
//   - saga: durable saga state with optimistic revision locking and
//     synchronous unique-correlation indexes.
//   - timeout: a due-time queue of deferred messages, dequeued in leased
//     batches safe for concurrent pollers.
//   - subscription: the event-type-to-subscriber-endpoint mapping.
//
// None of the three plugins talk to each other. Each depends only on a
// *mongo.Database handle (see Open) and, for saga and timeout, the Clock
// defined in this package.
//
// # Connecting
//
//	db, err := mongopersistence.Open(ctx, "mongodb://localhost:27017/orders")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sagas, _ := saga.NewStore(db)
//	timeouts, _ := timeout.NewStore(db)
//	subs, _ := subscription.NewStore(db)
//
// Open extracts the database name from the connection string's path
// segment, exactly as a bus runtime configuring this plugin from a single
// connection string would expect.
//
// # Clock
//
// saga and timeout accept a Clock via their WithClock option; subscription
// has no time-dependent behavior and takes none. Tests inject a fake clock
// to make lease expiry and revision races deterministic; production code
// leaves the default SystemClock in place.
package mongopersistence
