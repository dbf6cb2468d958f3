package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store wraps the Mongo client and the application database that holds
// the presence collection.
type Store struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// NewStore connects to MongoDB and verifies the connection with a ping.
func NewStore(ctx context.Context, uri, dbName string) (*Store, error) {
	if uri == "" {
		return nil, errors.New("mongo uri required")
	}
	if dbName == "" {
		return nil, errors.New("mongo database name required")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Store{
		Client: client,
		DB:     client.Database(dbName),
	}, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.Client == nil {
		return nil
	}
	disconnectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.Client.Disconnect(disconnectCtx)
}
