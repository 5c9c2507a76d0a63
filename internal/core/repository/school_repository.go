package repository

import (
	"context"
	"time"

	"schooltrack/internal/core/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type SchoolRepository interface {
	Create(school *model.School) error
	Update(school *model.School) error
	FindByID(id string) (*model.School, error)
	FindAll() ([]*model.School, error)
}

type MongoSchoolRepository struct {
	collection *mongo.Collection
}

func NewMongoSchoolRepository(db *mongo.Database) *MongoSchoolRepository {
	return &MongoSchoolRepository{
		collection: db.Collection("schools"),
	}
}

func (r *MongoSchoolRepository) Create(school *model.School) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := r.collection.InsertOne(ctx, school)
	return err
}

func (r *MongoSchoolRepository) Update(school *model.School) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	school.LastUpdate = time.Now().UTC()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": school.ID}, school)
	return err
}

func (r *MongoSchoolRepository) FindByID(id string) (*model.School, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var school model.School
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&school)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &school, err
}

func (r *MongoSchoolRepository) FindAll() ([]*model.School, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var schools []*model.School
	if err = cursor.All(ctx, &schools); err != nil {
		return nil, err
	}
	return schools, nil
}
