package kv

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoDoc is the collection's document shape: an opaque value keyed by a
// flat kv key, mirroring the teacher's user_preferences_repository.go
// collection/bson.M idiom but storing a single opaque blob per key rather
// than a structured preferences map, since KVStore values are themselves
// already-serialized JSON.
type mongoDoc struct {
	Key   string `bson:"_id"`
	Value []byte `bson:"value"`
}

// MongoStore wraps go.mongodb.org/mongo-driver, grounded on the teacher's
// UserPreferencesRepository (internal/repositories/user_preferences_repository.go)
// FindOne/UpdateOne-with-upsert pattern. MongoDB is the natural durable
// backend for an opaque JSON-shaped room snapshot document, more so than
// the teacher's relational MySQL side (see DESIGN.md for why MySQL is
// dropped).
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore wraps the named collection in db.
func NewMongoStore(db *mongo.Database, collectionName string) *MongoStore {
	return &MongoStore{collection: db.Collection(collectionName)}
}

func (s *MongoStore) Get(key string) ([]byte, error) {
	ctx := context.Background()
	var doc mongoDoc
	err := s.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv: mongo find: %w", err)
	}
	return doc.Value, nil
}

func (s *MongoStore) Set(key string, value []byte) error {
	ctx := context.Background()
	opts := options.Update().SetUpsert(true)
	_, err := s.collection.UpdateOne(
		ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": value}},
		opts,
	)
	if err != nil {
		return fmt.Errorf("kv: mongo upsert: %w", err)
	}
	return nil
}

func (s *MongoStore) Delete(key string) error {
	ctx := context.Background()
	_, err := s.collection.DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return fmt.Errorf("kv: mongo delete: %w", err)
	}
	return nil
}

func (s *MongoStore) List(prefix string) ([]string, error) {
	ctx := context.Background()
	cursor, err := s.collection.Find(ctx, bson.M{"_id": bson.M{"$regex": "^" + prefix}})
	if err != nil {
		return nil, fmt.Errorf("kv: mongo find: %w", err)
	}
	defer cursor.Close(ctx)

	var keys []string
	for cursor.Next(ctx) {
		var doc mongoDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("kv: mongo decode: %w", err)
		}
		keys = append(keys, doc.Key)
	}
	return keys, cursor.Err()
}
