package timeout

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// fakeResult scripts the outcome of one InsertOne/DeleteOne call.
type fakeResult struct {
	insert *mongo.InsertOneResult
	delete *mongo.DeleteResult
	err    error
}

// fakeClaim scripts the outcome of one FindOneAndUpdate call.
type fakeClaim struct {
	doc any
	err error
}

// fakeCollection is a scripted stand-in for *mongo.Collection, satisfying
// collectionAPI.
type fakeCollection struct {
	inserts []fakeResult
	deletes []fakeResult
	claims  []fakeClaim
}

func (f *fakeCollection) Name() string { return "timeouts" }

func (f *fakeCollection) InsertOne(ctx context.Context, document any, opts ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error) {
	if len(f.inserts) == 0 {
		panic("fakeCollection: unexpected InsertOne call")
	}
	r := f.inserts[0]
	f.inserts = f.inserts[1:]
	if r.err != nil {
		return nil, r.err
	}
	if r.insert != nil {
		return r.insert, nil
	}
	return &mongo.InsertOneResult{Acknowledged: true}, nil
}

func (f *fakeCollection) DeleteOne(ctx context.Context, filter any, opts ...options.Lister[options.DeleteOneOptions]) (*mongo.DeleteResult, error) {
	if len(f.deletes) == 0 {
		panic("fakeCollection: unexpected DeleteOne call")
	}
	r := f.deletes[0]
	f.deletes = f.deletes[1:]
	if r.err != nil {
		return nil, r.err
	}
	if r.delete != nil {
		return r.delete, nil
	}
	return &mongo.DeleteResult{DeletedCount: 1}, nil
}

func (f *fakeCollection) FindOneAndUpdate(ctx context.Context, filter, update any, opts ...options.Lister[options.FindOneAndUpdateOptions]) *mongo.SingleResult {
	if len(f.claims) == 0 {
		panic("fakeCollection: unexpected FindOneAndUpdate call")
	}
	c := f.claims[0]
	f.claims = f.claims[1:]
	doc := c.doc
	if doc == nil {
		doc = bson.D{}
	}
	return mongo.NewSingleResultFromDocument(doc, c.err, nil)
}

func (f *fakeCollection) Aggregate(ctx context.Context, pipeline any, opts ...options.Lister[options.AggregateOptions]) (*mongo.Cursor, error) {
	panic("fakeCollection: Aggregate not scripted")
}
