package timeout

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// collectionAPI is the slice of *mongo.Collection that Store needs.
// *mongo.Collection satisfies it structurally; tests satisfy it with a
// scripted fake instead of a live server.
type collectionAPI interface {
	Name() string
	InsertOne(ctx context.Context, document any, opts ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error)
	DeleteOne(ctx context.Context, filter any, opts ...options.Lister[options.DeleteOneOptions]) (*mongo.DeleteResult, error)
	FindOneAndUpdate(ctx context.Context, filter, update any, opts ...options.Lister[options.FindOneAndUpdateOptions]) *mongo.SingleResult
	Aggregate(ctx context.Context, pipeline any, opts ...options.Lister[options.AggregateOptions]) (*mongo.Cursor, error)
}

// indexAPI is the slice of mongo.IndexView that EnsureIndexes needs.
// mongo.IndexView satisfies it structurally. Kept separate from
// collectionAPI for the same reason as in the saga package: Collection.
// Indexes() returns the concrete mongo.IndexView, not an interface, so it
// can't be reached through a collectionAPI method.
type indexAPI interface {
	CreateOne(ctx context.Context, model mongo.IndexModel, opts ...options.Lister[options.CreateIndexesOptions]) (string, error)
}
