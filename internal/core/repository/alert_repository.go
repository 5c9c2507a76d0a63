package repository

import (
	"context"
	"time"

	"schooltrack/internal/core/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AlertRepository interface {
	Create(alert *model.Alert) error
	Update(alert *model.Alert) error
	FindActive() ([]*model.Alert, error)
}

type MongoAlertRepository struct {
	collection *mongo.Collection
}

func NewMongoAlertRepository(db *mongo.Database) *MongoAlertRepository {
	return &MongoAlertRepository{
		collection: db.Collection("alerts"),
	}
}

func (r *MongoAlertRepository) Create(alert *model.Alert) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := r.collection.InsertOne(ctx, alert)
	return err
}

func (r *MongoAlertRepository) Update(alert *model.Alert) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": alert.ID}, alert)
	return err
}

func (r *MongoAlertRepository) FindActive() ([]*model.Alert, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.M{"triggeredAt": -1})
	cursor, err := r.collection.Find(ctx, bson.M{"resolved": false}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var alerts []*model.Alert
	if err = cursor.All(ctx, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}
