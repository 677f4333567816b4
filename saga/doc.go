// Package saga implements the bus runtime's saga persistence contract on
// top of MongoDB: durable saga state with optimistic revision locking and
// synchronous unique indexes on correlation properties.
//
// # Saga types
//
// A saga type is any struct that embeds saga.Header and adds its own
// correlation fields:
//
//	type OrderSaga struct {
//	    saga.Header `bson:",inline"`
//	    CustomerID  string `bson:"customerid"`
//	    Balance     int64  `bson:"balance"`
//	}
//
// Header supplies the _id primary key and the _rev optimistic-locking
// token, tagged so the revision is stored under the element name _rev
// without any global BSON registry mutation — every saga type gets the
// remap simply by embedding Header.
//
// # Collections
//
// Register an explicit collection name per saga type with
// RegisterCollection, or opt into WithAutomaticCollectionNames to map an
// unregistered type T to "sagas_<T>". Re-registering the same type is a
// configuration error.
//
// # Operations
//
//	store, _ := saga.NewStore(db, saga.WithAutomaticCollectionNames())
//
//	o := &OrderSaga{Header: saga.Header{ID: uuid.New()}, CustomerID: "C1"}
//	saga.Insert(ctx, store, o, []string{"CustomerID"})   // o.Revision == 1
//
//	found, _ := saga.Find[*OrderSaga](ctx, store, "CustomerID", "C1")
//	found.Balance = 10
//	saga.Update(ctx, store, found, []string{"CustomerID"}) // found.Revision == 2
//
//	saga.Delete(ctx, store, found)
//
// Insert and Update re-assert the unique indexes backing indexPaths on a
// randomized interval (default every 10±5 minutes); see SetIndexDeclarationInterval.
package saga
