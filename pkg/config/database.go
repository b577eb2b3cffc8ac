package config

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// DB holds the MongoDB connection
type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
	log      *zap.Logger
}

// InitDB loads the environment and connects to MongoDB
func InitDB(cfg *Config, log *zap.Logger) (*DB, error) {
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, assuming environment variables are set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err = client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Info("connected to MongoDB", zap.String("database", cfg.MongoDB))
	return &DB{Client: client, Database: client.Database(cfg.MongoDB), log: log}, nil
}

// EnsureIndexes creates the indexes the application relies on: unique
// username/email on users, and the notification dedup tuple. The dedup
// index is what makes repeated identical events a no-op insert.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	users := db.Database.Collection("users")
	_, err := users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	notifications := db.Database.Collection("notifications")
	_, err = notifications.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "recipient", Value: 1},
			{Key: "sender", Value: 1},
			{Key: "type", Value: 1},
			{Key: "post", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create notification dedup index: %w", err)
	}

	posts := db.Database.Collection("posts")
	_, err = posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "author", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "isArchived", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create post indexes: %w", err)
	}

	return nil
}

// CloseDB closes the MongoDB connection
func (db *DB) CloseDB() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.Client.Disconnect(ctx); err != nil {
		db.log.Error("error closing MongoDB connection", zap.Error(err))
		return
	}
	db.log.Info("MongoDB connection closed")
}
