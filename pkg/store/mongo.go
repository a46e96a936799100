package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SequenceField orders documents by insertion. It is stored alongside the record
// fields and ignored when decoding into the record type.
const SequenceField = "_seq"

type MongoStore[T Entity] struct {
	collection *mongo.Collection
	timeout    time.Duration
}

func NewMongoStore[T Entity](db *mongo.Database, collection string, timeout time.Duration) *MongoStore[T] {
	return &MongoStore[T]{
		collection: db.Collection(collection),
		timeout:    timeout,
	}
}

// withTimeout never extends a deadline the caller already set.
func (s *MongoStore[T]) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < s.timeout {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *MongoStore[T]) Create(ctx context.Context, rec T) (T, error) {
	var zero T
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rec.SetID(newID())
	doc, err := toDocument(rec)
	if err != nil {
		return zero, err
	}
	doc = append(doc, bson.E{Key: SequenceField, Value: primitive.NewObjectID()})

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return zero, fmt.Errorf("failed to insert record: %w", err)
	}
	return rec, nil
}

func (s *MongoStore[T]) Retrieve(ctx context.Context, id string) (T, error) {
	var rec T
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return rec, ErrNotFound
		}
		return rec, fmt.Errorf("failed to find record: %w", err)
	}
	return rec, nil
}

func (s *MongoStore[T]) RetrieveAll(ctx context.Context) ([]T, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: SequenceField, Value: 1}})
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer cursor.Close(ctx)

	records := []T{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	return records, nil
}

func (s *MongoStore[T]) Update(ctx context.Context, id string, mutate MutateFunc[T]) (T, error) {
	var zero T
	rec, err := s.Retrieve(ctx, id)
	if err != nil {
		return zero, err
	}
	if err := applyMutation(rec, id, mutate); err != nil {
		return zero, err
	}

	doc, err := toDocument(rec)
	if err != nil {
		return zero, err
	}
	fields := make(bson.D, 0, len(doc))
	for _, e := range doc {
		if e.Key != "_id" {
			fields = append(fields, e)
		}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return zero, fmt.Errorf("failed to update record: %w", err)
	}
	if result.MatchedCount == 0 {
		return zero, ErrNotFound
	}
	return rec, nil
}

func (s *MongoStore[T]) Delete(ctx context.Context, id string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("failed to delete record: %w", err)
	}
	return result.DeletedCount > 0, nil
}

func (s *MongoStore[T]) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.collection.Database().Client().Ping(ctx, nil)
}

func toDocument[T Entity](rec T) (bson.D, error) {
	raw, err := bson.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return doc, nil
}
