package repository

import (
	"context"
	"time"

	"schooltrack/internal/core/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SessionRepository interface {
	Create(session *model.AttendanceSession) error
	Update(session *model.AttendanceSession) error
	// FindCurrent returns the latest non-superseded session for the
	// (subject, date) pair, or nil when no session exists yet.
	FindCurrent(subjectID, date string) (*model.AttendanceSession, error)
	FindBySubject(subjectID string) ([]*model.AttendanceSession, error)
}

type MongoSessionRepository struct {
	collection *mongo.Collection
}

func NewMongoSessionRepository(db *mongo.Database) *MongoSessionRepository {
	return &MongoSessionRepository{
		collection: db.Collection("attendance_sessions"),
	}
}

func (r *MongoSessionRepository) Create(session *model.AttendanceSession) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := r.collection.InsertOne(ctx, session)
	return err
}

func (r *MongoSessionRepository) Update(session *model.AttendanceSession) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": session.ID}, session)
	return err
}

func (r *MongoSessionRepository) FindCurrent(subjectID, date string) (*model.AttendanceSession, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	filter := bson.M{"subjectId": subjectID, "date": date, "supersededBy": bson.M{"$in": bson.A{"", nil}}}
	opts := options.FindOne().SetSort(bson.M{"version": -1})
	var session model.AttendanceSession
	err := r.collection.FindOne(ctx, filter, opts).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &session, err
}

func (r *MongoSessionRepository) FindBySubject(subjectID string) ([]*model.AttendanceSession, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.M{"date": -1})
	cursor, err := r.collection.Find(ctx, bson.M{"subjectId": subjectID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []*model.AttendanceSession
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}
