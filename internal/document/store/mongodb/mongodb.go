// Package mongodb stores documents in three MongoDB collections: active
// policies, superseded versions and deleted records.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"middleoffice/internal/document/filter"
	"middleoffice/internal/document/models"
	"middleoffice/pkg/platform/sentinel"
)

// Collections names the three partitions.
type Collections struct {
	Active  string
	History string
	Deleted string
}

// Store is the MongoDB document backend. Supersede and Archive run as
// multi-document transactions and need a replica set.
type Store struct {
	client  *mongo.Client
	active  *mongo.Collection
	history *mongo.Collection
	deleted *mongo.Collection
	now     func() time.Time
}

// New binds the store to db.
func New(client *mongo.Client, db *mongo.Database, cols Collections) *Store {
	return &Store{
		client:  client,
		active:  db.Collection(cols.Active),
		history: db.Collection(cols.History),
		deleted: db.Collection(cols.Deleted),
		now:     time.Now,
	}
}

// EnsureIndexes indexes the archive partitions by original identifier.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	model := mongo.IndexModel{Keys: bson.D{{Key: "originalId", Value: 1}, {Key: "archivedAt", Value: 1}}}
	for _, col := range []*mongo.Collection{s.history, s.deleted} {
		if _, err := col.Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create index on %s: %w", col.Name(), err)
		}
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, record models.Content) (string, error) {
	return insert(ctx, s.active, record)
}

func (s *Store) FindByID(ctx context.Context, id string) (models.Content, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, sentinel.ErrNotFound
	}
	var raw bson.D
	if err := s.active.FindOne(ctx, bson.D{{Key: models.FieldID, Value: oid}}).Decode(&raw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find %s: %w", id, err)
	}
	return toContent(raw), nil
}

func (s *Store) Find(ctx context.Context, predicate bson.D, page filter.Page) ([]models.Content, error) {
	cursor, err := s.active.Find(ctx, predicate, page.FindOptions())
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.Content
	for cursor.Next(ctx) {
		var raw bson.D
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}
		out = append(out, toContent(raw))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, predicate bson.D) (int64, error) {
	return s.active.CountDocuments(ctx, predicate)
}

// Supersede deletes id from the active collection, records original in
// history and inserts replacement, all in one transaction. A concurrent
// transition that already removed id makes this one write nothing.
func (s *Store) Supersede(ctx context.Context, id string, original, replacement models.Content) (string, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return "", sentinel.ErrNotFound
	}
	result, err := s.inTransaction(ctx, func(ctx context.Context) (any, error) {
		if err := removeActive(ctx, s.active, oid); err != nil {
			return nil, err
		}
		if _, err := s.history.InsertOne(ctx, s.envelope(id, original)); err != nil {
			return nil, fmt.Errorf("insert history: %w", err)
		}
		return insert(ctx, s.active, replacement)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Archive deletes id from the active collection and records original in the
// deleted collection, in one transaction.
func (s *Store) Archive(ctx context.Context, id string, original models.Content) (int64, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return 0, sentinel.ErrNotFound
	}
	_, err = s.inTransaction(ctx, func(ctx context.Context) (any, error) {
		if err := removeActive(ctx, s.active, oid); err != nil {
			return nil, err
		}
		if _, err := s.deleted.InsertOne(ctx, s.envelope(id, original)); err != nil {
			return nil, fmt.Errorf("insert deleted: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		return 0, err
	}
	return 1, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// History returns every archived version of originalID, oldest first.
func (s *Store) History(ctx context.Context, originalID string) ([]models.ArchivedRecord, error) {
	return findArchived(ctx, s.history, originalID)
}

// Deleted returns the archived copy of a deleted record.
func (s *Store) Deleted(ctx context.Context, originalID string) ([]models.ArchivedRecord, error) {
	return findArchived(ctx, s.deleted, originalID)
}

func (s *Store) inTransaction(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	sess, err := s.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)
	return sess.WithTransaction(ctx, fn)
}

func (s *Store) envelope(id string, original models.Content) bson.D {
	content := original.Clone()
	delete(content, models.FieldID)
	return bson.D{
		{Key: models.FieldID, Value: bson.NewObjectID()},
		{Key: "originalId", Value: id},
		{Key: "archivedAt", Value: bson.NewDateTimeFromTime(s.now())},
		{Key: "content", Value: map[string]any(content)},
	}
}

func removeActive(ctx context.Context, col *mongo.Collection, oid bson.ObjectID) error {
	res, err := col.DeleteOne(ctx, bson.D{{Key: models.FieldID, Value: oid}})
	if err != nil {
		return fmt.Errorf("delete active: %w", err)
	}
	if res.DeletedCount == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func insert(ctx context.Context, col *mongo.Collection, record models.Content) (string, error) {
	doc := record.Clone()
	if doc == nil {
		doc = models.Content{}
	}
	delete(doc, models.FieldID)
	oid := bson.NewObjectID()
	doc[models.FieldID] = oid
	if _, err := col.InsertOne(ctx, map[string]any(doc)); err != nil {
		return "", fmt.Errorf("insert: %w", err)
	}
	return oid.Hex(), nil
}

func findArchived(ctx context.Context, col *mongo.Collection, originalID string) ([]models.ArchivedRecord, error) {
	cursor, err := col.Find(ctx, bson.D{{Key: "originalId", Value: originalID}},
		options.Find().SetSort(bson.D{{Key: "archivedAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.ArchivedRecord
	for cursor.Next(ctx) {
		var raw bson.D
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}
		m := toContent(raw)
		rec := models.ArchivedRecord{}
		rec.ID, _ = m[models.FieldID].(string)
		rec.OriginalID, _ = m["originalId"].(string)
		rec.ArchivedAt, _ = m["archivedAt"].(time.Time)
		if c, ok := m["content"].(map[string]any); ok {
			rec.Content = models.Content(c)
		}
		out = append(out, rec)
	}
	return out, cursor.Err()
}
