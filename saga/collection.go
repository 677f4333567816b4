package saga

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// collectionAPI is the slice of *mongo.Collection that Insert, Update,
// Delete, and Find need. *mongo.Collection satisfies it structurally;
// tests satisfy it with a scripted fake instead of a live server.
type collectionAPI interface {
	Name() string
	InsertOne(ctx context.Context, document any, opts ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error)
	ReplaceOne(ctx context.Context, filter, replacement any, opts ...options.Lister[options.ReplaceOptions]) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter any, opts ...options.Lister[options.DeleteOneOptions]) (*mongo.DeleteResult, error)
	FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) *mongo.SingleResult
}

// indexAPI is the slice of mongo.IndexView that assertIndexes needs.
// mongo.IndexView satisfies it structurally.
//
// It is kept separate from collectionAPI, rather than reached via a
// Collection.Indexes() method on that interface, because
// *mongo.Collection.Indexes() returns the concrete type mongo.IndexView,
// not an interface — a concrete-typed method can't satisfy an interface
// method declared to return a different (interface) type. Store instead
// holds a newIndexes factory alongside newCollection, both closing over
// the same underlying collection name.
type indexAPI interface {
	List(ctx context.Context, opts ...options.Lister[options.ListIndexesOptions]) (*mongo.Cursor, error)
	CreateOne(ctx context.Context, model mongo.IndexModel, opts ...options.Lister[options.CreateIndexesOptions]) (string, error)
}
