// Package mongodb stores users in a single MongoDB collection.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"middleoffice/internal/user/models"
	"middleoffice/pkg/platform/sentinel"
)

type Store struct {
	users *mongo.Collection
}

func New(db *mongo.Database, collection string) *Store {
	return &Store{users: db.Collection(collection)}
}

// record is the stored shape; the identifier lives in _id.
type record struct {
	ID       bson.ObjectID `bson:"_id,omitempty"`
	Name     string        `bson:"name"`
	Location string        `bson:"location"`
	Title    string        `bson:"title"`
}

func (r record) toModel() models.User {
	return models.User{ID: r.ID.Hex(), Name: r.Name, Location: r.Location, Title: r.Title}
}

func (s *Store) Insert(ctx context.Context, user models.User) (string, error) {
	rec := record{ID: bson.NewObjectID(), Name: user.Name, Location: user.Location, Title: user.Title}
	if _, err := s.users.InsertOne(ctx, rec); err != nil {
		return "", fmt.Errorf("insert user: %w", err)
	}
	return rec.ID.Hex(), nil
}

func (s *Store) FindByID(ctx context.Context, id string) (models.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return models.User{}, sentinel.ErrNotFound
	}
	var rec record
	if err := s.users.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, sentinel.ErrNotFound
		}
		return models.User{}, fmt.Errorf("find user: %w", err)
	}
	return rec.toModel(), nil
}

func (s *Store) List(ctx context.Context) ([]models.User, error) {
	cursor, err := s.users.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cursor.Close(ctx)

	var recs []record
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	out := make([]models.User, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) (int64, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return 0, nil
	}
	res, err := s.users.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return 0, fmt.Errorf("delete user: %w", err)
	}
	return res.DeletedCount, nil
}
