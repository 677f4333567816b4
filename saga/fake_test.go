package saga

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// fakeResult scripts the outcome of one write call: either err, or a
// specific result value, or (both nil) a generic acknowledged success.
type fakeResult struct {
	insert *mongo.InsertOneResult
	update *mongo.UpdateResult
	delete *mongo.DeleteResult
	err    error
}

// fakeFind scripts the outcome of one FindOne call.
type fakeFind struct {
	doc any
	err error
}

// fakeCollection is a scripted stand-in for *mongo.Collection, satisfying
// collectionAPI. Each method consumes the next entry queued for it; a call
// beyond what a test queued panics, the same way an unexpected wire
// request against mtest's mock deployment would fail the test.
type fakeCollection struct {
	name string

	inserts  []fakeResult
	replaces []fakeResult
	deletes  []fakeResult
	finds    []fakeFind
}

func (f *fakeCollection) Name() string { return f.name }

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

func (f *fakeCollection) ReplaceOne(ctx context.Context, filter, replacement any, opts ...options.Lister[options.ReplaceOptions]) (*mongo.UpdateResult, error) {
	if len(f.replaces) == 0 {
		panic("fakeCollection: unexpected ReplaceOne call")
	}
	r := f.replaces[0]
	f.replaces = f.replaces[1:]
	if r.err != nil {
		return nil, r.err
	}
	if r.update != nil {
		return r.update, nil
	}
	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
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

// fakeIndexes is a scripted stand-in for mongo.IndexView, satisfying
// indexAPI.
type fakeIndexes struct {
	listDocs    []any
	listErr     error
	createErr   error
	createCalls int
}

func (f *fakeIndexes) List(ctx context.Context, opts ...options.Lister[options.ListIndexesOptions]) (*mongo.Cursor, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	docs := f.listDocs
	if docs == nil {
		docs = []any{}
	}
	return mongo.NewCursorFromDocuments(docs, nil, nil)
}

func (f *fakeIndexes) CreateOne(ctx context.Context, model mongo.IndexModel, opts ...options.Lister[options.CreateIndexesOptions]) (string, error) {
	f.createCalls++
	if f.createErr != nil {
		return "", f.createErr
	}
	return "created", nil
}
