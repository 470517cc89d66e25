// Package mongo provides the MongoDB implementation of the storage port.
// Records are stored one collection per resource with the resource primary
// key mapped onto the document _id.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const connectTimeout = 5 * time.Second

// DB wraps a Mongo client scoped to one database.
type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to the MongoDB deployment at uri and verifies the
// connection with a ping.
func Open(ctx context.Context, uri, database string) (*DB, error) {
	if database == "" {
		return nil, fmt.Errorf("empty database name")
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetConnectTimeout(connectTimeout))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return &DB{client: client, db: client.Database(database)}, nil
}

// HealthCheck verifies the connection is alive.
func (d *DB) HealthCheck(ctx context.Context) error {
	return d.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the underlying client.
func (d *DB) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}
