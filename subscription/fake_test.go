package subscription

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// fakeUpdate scripts the outcome of one UpdateOne call.
type fakeUpdate struct {
	result *mongo.UpdateResult
	err    error
}

// fakeFind scripts the outcome of one FindOne call.
type fakeFind struct {
	doc any
	err error
}

// fakeCollection is a scripted stand-in for *mongo.Collection, satisfying
// collectionAPI.
type fakeCollection struct {
	updates []fakeUpdate
	finds   []fakeFind
}

func (f *fakeCollection) UpdateOne(ctx context.Context, filter, update any, opts ...options.Lister[options.UpdateOneOptions]) (*mongo.UpdateResult, error) {
	if len(f.updates) == 0 {
		panic("fakeCollection: unexpected UpdateOne call")
	}
	r := f.updates[0]
	f.updates = f.updates[1:]
	if r.err != nil {
		return nil, r.err
	}
	if r.result != nil {
		return r.result, nil
	}
	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (f *fakeCollection) FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) *mongo.SingleResult {
	if len(f.finds) == 0 {
		panic("fakeCollection: unexpected FindOne call")
	}
	r := f.finds[0]
	f.finds = f.finds[1:]
	doc := r.doc
	if doc == nil {
		doc = bson.D{}
	}
	return mongo.NewSingleResultFromDocument(doc, r.err, nil)
}
