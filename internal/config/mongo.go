package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	// Create indexes
	err = createIndexes(client, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

func createIndexes(client *mongo.Client, dbName string) error {
	db := client.Database(dbName)

	// Documents collection indexes
	documentsCollection := db.Collection("documents")
	documentIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "owner_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "visibility", Value: 1}},
		},
	}
	_, err := documentsCollection.Indexes().CreateMany(context.Background(), documentIndexes)
	if err != nil {
		return err
	}

	// Chunks collection indexes for candidate scans and generation swaps
	chunksCollection := db.Collection("chunks")
	chunkIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "document_id", Value: 1}, {Key: "generation", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "chunk_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "visibility", Value: 1}},
		},
	}
	_, err = chunksCollection.Indexes().CreateMany(context.Background(), chunkIndexes)
	if err != nil {
		return err
	}

	// Citations collection indexes (append-only audit trail)
	citationsCollection := db.Collection("citations")
	citationIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "query_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "document_id", Value: 1}},
		},
	}
	_, err = citationsCollection.Indexes().CreateMany(context.Background(), citationIndexes)
	if err != nil {
		return err
	}

	// Conversation messages indexes
	messagesCollection := db.Collection("conversation_messages")
	messageIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "timestamp", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
	}
	_, err = messagesCollection.Indexes().CreateMany(context.Background(), messageIndexes)
	if err != nil {
		return err
	}

	// Evaluation collections indexes
	questionsCollection := db.Collection("evaluation_questions")
	questionIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "dataset_id", Value: 1}}},
	}
	_, err = questionsCollection.Indexes().CreateMany(context.Background(), questionIndexes)
	if err != nil {
		return err
	}

	resultsCollection := db.Collection("evaluation_results")
	resultIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "run_id", Value: 1}}},
		{Keys: bson.D{{Key: "dataset_id", Value: 1}}},
	}
	_, err = resultsCollection.Indexes().CreateMany(context.Background(), resultIndexes)
	if err != nil {
		return err
	}

	return nil
}
