//go:build integration

package mongodb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"middleoffice/internal/user/models"
	"middleoffice/pkg/platform/sentinel"
	"middleoffice/pkg/testutil/containers"
)

type MongoUserStoreSuite struct {
	suite.Suite
	container *containers.MongoContainer
	store     *Store
	ctx       context.Context
}

func TestMongoUserStoreSuite(t *testing.T) {
	suite.Run(t, new(MongoUserStoreSuite))
}

func (s *MongoUserStoreSuite) SetupSuite() {
	s.container = containers.NewMongoContainer(s.T())
	s.ctx = context.Background()
}

func (s *MongoUserStoreSuite) SetupTest() {
	db := s.container.Database("middleoffice_users")
	s.Require().NoError(db.Collection("User").Drop(s.ctx))
	s.store = New(db, "User")
}

func (s *MongoUserStoreSuite) TestRoundTrip() {
	id, err := s.store.Insert(s.ctx, models.User{Name: "toto", Location: "paris", Title: "architect"})
	s.Require().NoError(err)

	found, err := s.store.FindByID(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(models.User{ID: id, Name: "toto", Location: "paris", Title: "architect"}, found)

	users, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Len(users, 1)

	n, err := s.store.Delete(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	_, err = s.store.FindByID(s.ctx, id)
	s.ErrorIs(err, sentinel.ErrNotFound)

	n, err = s.store.Delete(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(int64(0), n)
}
