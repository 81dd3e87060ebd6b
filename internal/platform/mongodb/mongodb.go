package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	booksCollection      = "books"
	rateLimitsCollection = "rate_limits"
	disconnectTimeout    = 10 * time.Second
)

type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// Connect opens a client for uri and pings the primary.
func Connect(ctx context.Context, uri, dbName string) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	slog.InfoContext(ctx, "connected to MongoDB", "database", dbName)
	return &DB{
		Client:   client,
		Database: client.Database(dbName),
	}, nil
}

func (db *DB) Books() *mongo.Collection {
	return db.Database.Collection(booksCollection)
}

func (db *DB) RateLimits() *mongo.Collection {
	return db.Database.Collection(rateLimitsCollection)
}

func (db *DB) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, disconnectTimeout)
	defer cancel()
	return db.Client.Disconnect(ctx)
}
