package mongo

import (
	"context"
	"fmt"
	"os"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoInternal holds the journal database
type MongoInternal struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoInternal connects to uri, or MONGO_URI when empty, and pings
func NewMongoInternal(ctx context.Context, uri, database string) (*MongoInternal, error) {
	if uri == "" {
		uri = os.Getenv("MONGO_URI")
	}
	if uri == "" {
		return nil, fmt.Errorf("MONGO_URI is not set")
	}
	if database == "" {
		database = "tprmgrc"
	}

	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	return &MongoInternal{client: client, db: client.Database(database)}, nil
}

// Ping checks the connection
func (m *MongoInternal) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

// Close disconnects
func (m *MongoInternal) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
