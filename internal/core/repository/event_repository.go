package repository

import (
	"context"
	"time"

	"schooltrack/internal/core/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RawEventRepository is the replay source for bucket rebuilds: every raw
// event accepted by the ingestor is appended here, and a rebuild reads back
// the full window it needs.
type RawEventRepository interface {
	Append(event *model.RawEvent) error
	FindByKindInRange(kind string, from, to time.Time) ([]*model.RawEvent, error)
}

type MongoRawEventRepository struct {
	collection *mongo.Collection
}

func NewMongoRawEventRepository(db *mongo.Database) *MongoRawEventRepository {
	return &MongoRawEventRepository{
		collection: db.Collection("raw_events"),
	}
}

func (r *MongoRawEventRepository) Append(event *model.RawEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := r.collection.InsertOne(ctx, event)
	return err
}

func (r *MongoRawEventRepository) FindByKindInRange(kind string, from, to time.Time) ([]*model.RawEvent, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	filter := bson.M{
		"kind":       kind,
		"occurredAt": bson.M{"$gte": from, "$lt": to},
	}
	opts := options.Find().SetSort(bson.M{"occurredAt": 1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []*model.RawEvent
	if err = cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
