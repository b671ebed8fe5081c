package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB represents a MongoDB connection
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// Collection names
const (
	CollectionDatasets       = "datasets"
	CollectionJobs           = "jobs"
	CollectionVisualizations = "visualizations"
)

// ConnectMongo establishes a connection to MongoDB with proper configuration
func ConnectMongo(ctx context.Context, uri, database string, timeout time.Duration) (*MongoDB, error) {
	slog.Info("Connecting to MongoDB", "database", database)

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(100).
		SetMinPoolSize(10).
		SetMaxConnIdleTime(30 * time.Second).
		SetConnectTimeout(10 * time.Second).
		SetSocketTimeout(30 * time.Second).
		SetServerSelectionTimeout(10 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true).
		SetCompressors([]string{"snappy"})

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)

	slog.Info("Successfully connected to MongoDB")

	return &MongoDB{
		Client:   client,
		Database: db,
	}, nil
}

// Disconnect closes the MongoDB connection
func (m *MongoDB) Disconnect(ctx context.Context) error {
	slog.Info("Disconnecting from MongoDB")

	disconnectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := m.Client.Disconnect(disconnectCtx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}

	slog.Info("Successfully disconnected from MongoDB")
	return nil
}

// MongoCollection persists a registry in a MongoDB collection while keeping
// the same whole-document semantics as the file backend: Load fetches every
// record and SaveAll replaces the collection contents wholesale. Record
// order is preserved through an explicit position field.
type MongoCollection[T any] struct {
	coll    *mongo.Collection
	timeout time.Duration
}

// NewMongoCollection creates a collection backed by the named MongoDB
// collection
func NewMongoCollection[T any](db *MongoDB, name string, timeout time.Duration) *MongoCollection[T] {
	return &MongoCollection[T]{
		coll:    db.Database.Collection(name),
		timeout: timeout,
	}
}

type positionedRecord[T any] struct {
	Position int `bson:"position"`
	Record   T   `bson:"record"`
}

// Load reads the full registry in insertion order
func (c *MongoCollection[T]) Load() ([]T, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}})
	cursor, err := c.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", c.coll.Name(), err)
	}
	defer cursor.Close(ctx)

	var wrapped []positionedRecord[T]
	if err := cursor.All(ctx, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", c.coll.Name(), err)
	}

	records := make([]T, len(wrapped))
	for i, w := range wrapped {
		records[i] = w.Record
	}
	return records, nil
}

// SaveAll replaces the collection contents with the given records
func (c *MongoCollection[T]) SaveAll(records []T) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if _, err := c.coll.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to clear %s: %w", c.coll.Name(), err)
	}

	if len(records) == 0 {
		return nil
	}

	docs := make([]interface{}, len(records))
	for i, r := range records {
		docs[i] = positionedRecord[T]{Position: i, Record: r}
	}

	if _, err := c.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.coll.Name(), err)
	}

	return nil
}
