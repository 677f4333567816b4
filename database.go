package mongopersistence

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Open connects to MongoDB and returns the *mongo.Database named by uri's
// path segment.
//
//	db, err := mongopersistence.Open(ctx, "mongodb://localhost:27017/orders")
//
// An empty or whitespace-only database name is a configuration error, not
// a driver error — the bus should fail fast at startup rather than let
// every subsequent operation hit a collection in the (driver default)
// "test" database.
func Open(ctx context.Context, uri string) (*mongo.Database, error) {
	name, err := DatabaseName(uri)
	if err != nil {
		return nil, err
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}

	return client.Database(name), nil
}

// DatabaseName extracts the database name from a MongoDB connection
// string's path segment. It returns ErrInvalidConfiguration if the name is
// missing or blank.
func DatabaseName(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse connection string: %w: %w", err, ErrInvalidConfiguration)
	}

	name := strings.Trim(u.Path, "/")
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("connection string %q has no database name: %w", uri, ErrInvalidConfiguration)
	}

	return name, nil
}
