package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const examplesCollection = "examples"

type MongoClient struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewMongoClient(ctx context.Context, uri, dbName string) (*MongoClient, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("error connecting to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("error pinging MongoDB: %w", err)
	}

	coll := client.Database(dbName).Collection(examplesCollection)
	_, err = coll.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: "category", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("error creating category index: %w", err)
	}

	return &MongoClient{client: client, coll: coll}, nil
}

func (db *MongoClient) Close() error {
	if db.client != nil {
		return db.client.Disconnect(context.Background())
	}
	return nil
}

func (db *MongoClient) StoreExample(ctx context.Context, example Example) error {
	if !IsKnownCategory(example.Category) {
		return fmt.Errorf("unknown example category %q", example.Category)
	}
	if example.CreatedAt.IsZero() {
		example.CreatedAt = time.Now().UTC()
	}

	filter := bson.M{"category": example.Category}
	_, err := db.coll.ReplaceOne(ctx, filter, example, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("error storing example: %w", err)
	}
	return nil
}

func (db *MongoClient) GetExample(ctx context.Context, category string) (Example, error) {
	var ex Example
	err := db.coll.FindOne(ctx, bson.M{"category": category}).Decode(&ex)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Example{}, ErrNotFound
		}
		return Example{}, fmt.Errorf("failed to retrieve example: %w", err)
	}
	return ex, nil
}

func (db *MongoClient) ListCategories(ctx context.Context) ([]string, error) {
	values, err := db.coll.Distinct(ctx, "category", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("error querying categories: %w", err)
	}

	categories := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			categories = append(categories, s)
		}
	}
	sort.Strings(categories)
	return categories, nil
}
