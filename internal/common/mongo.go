package common

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/lgulliver/blogshelf/pkg/config"
)

// MongoDatabase wraps a MongoDB client and the database the blog lives in
type MongoDatabase struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// NewMongoDatabase connects to MongoDB and verifies the primary is reachable
func NewMongoDatabase(ctx context.Context, cfg *config.DatabaseConfig) (*MongoDatabase, error) {
	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGODB_URI is not set")
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetWriteConcern(writeconcern.Majority())

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Info().Str("database", cfg.MongoDatabase).Msg("connected to MongoDB")
	return &MongoDatabase{
		Client: client,
		DB:     client.Database(cfg.MongoDatabase),
	}, nil
}

// Ping checks that the primary is reachable
func (m *MongoDatabase) Ping(ctx context.Context) error {
	return m.Client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client
func (m *MongoDatabase) Close() error {
	return m.Client.Disconnect(context.Background())
}
