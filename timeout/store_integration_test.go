package timeout

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func getMongoURI() string {
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		return uri
	}
	return "mongodb://localhost:27018/?directConnection=true"
}

func setupIntegrationTest(t *testing.T) (*mongo.Database, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	client, err := mongo.Connect(options.Client().ApplyURI(getMongoURI()))
	if err != nil {
		cancel()
		t.Skipf("MongoDB not available: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		cancel()
		client.Disconnect(ctx)
		t.Skipf("MongoDB not available: %v", err)
	}

	dbName := "test_mongopersistence_timeout_" + time.Now().Format("20060102150405")
	db := client.Database(dbName)

	cleanup := func() {
		db.Drop(context.Background())
		client.Disconnect(context.Background())
		cancel()
	}
	return db, cleanup
}

func TestIntegration_AddAndClaim(t *testing.T) {
	db, cleanup := setupIntegrationTest(t)
	defer cleanup()

	s, err := NewStore(db, WithLeaseDuration(500*time.Millisecond), WithBatchSize(10))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}

	to := &Timeout{Time: time.Now(), CorrID: "order-1"}
	if err := s.Add(ctx, to); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if to.ID == uuid.Nil {
		t.Fatal("expected Add to assign a non-zero ID")
	}

	due, err := s.GetDueTimeouts(ctx)
	if err != nil {
		t.Fatalf("GetDueTimeouts failed: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("expected 1 due timeout, got %d", len(due))
	}

	// While the lease is held, a second poller sees nothing.
	if again, err := s.GetDueTimeouts(ctx); err != nil {
		t.Fatalf("GetDueTimeouts failed: %v", err)
	} else if len(again) != 0 {
		t.Fatalf("expected the leased timeout to stay hidden, got %d", len(again))
	}

	if err := due[0].MarkAsProcessed(ctx); err != nil {
		t.Fatalf("MarkAsProcessed failed: %v", err)
	}
}

func TestIntegration_LeaseExpiryReclaims(t *testing.T) {
	db, cleanup := setupIntegrationTest(t)
	defer cleanup()

	s, err := NewStore(db, WithLeaseDuration(400*time.Millisecond), WithBatchSize(1))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	to := &Timeout{Time: time.Now(), CorrID: "order-2"}
	if err := s.Add(ctx, to); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	first, err := s.GetDueTimeouts(ctx)
	if err != nil || len(first) != 1 {
		t.Fatalf("expected first claim to succeed, got %v, err %v", first, err)
	}

	time.Sleep(600 * time.Millisecond)

	second, err := s.GetDueTimeouts(ctx)
	if err != nil || len(second) != 1 {
		t.Fatalf("expected reclaim after lease expiry, got %v, err %v", second, err)
	}

	// The first lease's owner processes the timeout after another poller
	// already reclaimed it and is about to process it too. Both deletes
	// target the same _id: the first removes the document, so the second
	// is a harmless no-op.
	if err := first[0].MarkAsProcessed(ctx); err != nil {
		t.Fatalf("expected the stale lease's MarkAsProcessed to succeed: %v", err)
	}
	if err := second[0].MarkAsProcessed(ctx); err != nil {
		t.Fatalf("expected the reclaiming lease's MarkAsProcessed to succeed as a no-op: %v", err)
	}
}
