//go:build integration

package mongodb

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/v2/bson"

	"middleoffice/internal/document/filter"
	"middleoffice/internal/document/models"
	"middleoffice/pkg/platform/sentinel"
	"middleoffice/pkg/testutil/containers"
)

type MongoStoreSuite struct {
	suite.Suite
	mongo *containers.MongoContainer
	store *Store
	ctx   context.Context
}

func TestMongoStoreSuite(t *testing.T) {
	suite.Run(t, new(MongoStoreSuite))
}

func (s *MongoStoreSuite) SetupSuite() {
	s.mongo = containers.NewMongoContainer(s.T())
	s.ctx = context.Background()
}

func (s *MongoStoreSuite) SetupTest() {
	db := s.mongo.Database("middleoffice_test")
	s.Require().NoError(db.Drop(s.ctx))
	// Collections must exist before they can be written inside a transaction
	// on older servers.
	for _, name := range []string{"policies", "history", "deleted"} {
		s.Require().NoError(db.CreateCollection(s.ctx, name))
	}
	s.store = New(s.mongo.Client, db, Collections{Active: "policies", History: "history", Deleted: "deleted"})
	s.Require().NoError(s.store.EnsureIndexes(s.ctx))
}

func (s *MongoStoreSuite) policy(name string, requestDate time.Time) models.Content {
	return models.Content{
		"context": map[string]any{"requestDate": requestDate.Format(time.RFC3339)},
		"policy": map[string]any{
			"name":     name,
			"location": "paris",
		},
		"premium":               int64(120),
		models.FieldRequestDate: requestDate,
	}
}

func (s *MongoStoreSuite) TestRoundTripNormalizesValues() {
	at := time.Date(2023, 11, 21, 10, 0, 0, 0, time.UTC)
	id, err := s.store.Insert(s.ctx, s.policy("ACME", at))
	s.Require().NoError(err)

	got, err := s.store.FindByID(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(id, got[models.FieldID])
	s.Equal(at, got[models.FieldRequestDate])
	s.Equal(int64(120), got["premium"])
	s.Equal("ACME", got["policy"].(map[string]any)["name"])

	_, err = s.store.FindByID(s.ctx, bson.NewObjectID().Hex())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MongoStoreSuite) TestFindWithDateFilterAndProjection() {
	base := time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		_, err := s.store.Insert(s.ctx, s.policy("ACME", base.Add(time.Duration(i)*time.Hour)))
		s.Require().NoError(err)
	}

	predicate, err := filter.DateFilter(map[string]any{"requestdate": base.Add(2 * time.Hour).Format(time.RFC3339)})
	s.Require().NoError(err)

	n, err := s.store.Count(s.ctx, predicate)
	s.Require().NoError(err)
	s.Equal(int64(10), n)

	page, err := s.store.Find(s.ctx, predicate, filter.Pagination(2, 4))
	s.Require().NoError(err)
	s.Len(page, 4)
	s.NotContains(page[0], models.FieldRequestDate)
	s.NotContains(page[0]["policy"].(map[string]any), "location")
}

func (s *MongoStoreSuite) TestSupersedeIsAtomic() {
	id, err := s.store.Insert(s.ctx, s.policy("ACME", time.Now()))
	s.Require().NoError(err)
	original, err := s.store.FindByID(s.ctx, id)
	s.Require().NoError(err)
	delete(original, models.FieldID)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			newID, err := s.store.Supersede(s.ctx, id, original, models.Content{"v": int64(2)})
			if err == nil {
				mu.Lock()
				winners = append(winners, newID)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Require().Len(winners, 1)
	history, err := s.store.History(s.ctx, id)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(original["policy"], history[0].Content["policy"])

	n, err := s.store.Count(s.ctx, bson.D{})
	s.Require().NoError(err)
	s.Equal(int64(1), n)
}

func (s *MongoStoreSuite) TestArchive() {
	id, err := s.store.Insert(s.ctx, s.policy("ACME", time.Now()))
	s.Require().NoError(err)
	original, err := s.store.FindByID(s.ctx, id)
	s.Require().NoError(err)
	delete(original, models.FieldID)

	n, err := s.store.Archive(s.ctx, id, original)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	_, err = s.store.Archive(s.ctx, id, original)
	s.ErrorIs(err, sentinel.ErrNotFound)

	deleted, err := s.store.Deleted(s.ctx, id)
	s.Require().NoError(err)
	s.Require().Len(deleted, 1)
	s.Equal(id, deleted[0].OriginalID)
}
