// Package subscription implements the bus runtime's subscription
// persistence contract on top of MongoDB: a durable map from event type
// full name to the set of subscriber endpoints registered for it.
//
//	store, _ := subscription.NewStore(db)
//	store.Store(ctx, "orders.Created", "amqp://worker-1")
//	store.Store(ctx, "orders.Created", "amqp://worker-2")
//	endpoints, _ := store.GetSubscribers(ctx, "orders.Created")
//	store.Remove(ctx, "orders.Created", "amqp://worker-1")
//
// Store and Remove are idempotent: storing the same endpoint twice, or
// removing an endpoint that was never stored, are both no-ops rather than
// errors.
package subscription
