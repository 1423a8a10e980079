package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"middleoffice/internal/user/models"
	"middleoffice/pkg/platform/sentinel"
)

type InMemoryUserStoreSuite struct {
	suite.Suite
	store *InMemoryUserStore
	ctx   context.Context
}

func TestInMemoryUserStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryUserStoreSuite))
}

func (s *InMemoryUserStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
}

func (s *InMemoryUserStoreSuite) TestInsertAndFind() {
	id, err := s.store.Insert(s.ctx, models.User{ID: "ignored", Name: "toto", Location: "paris", Title: "architect"})
	s.Require().NoError(err)
	s.Len(id, 24)
	s.NotEqual("ignored", id)

	found, err := s.store.FindByID(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(models.User{ID: id, Name: "toto", Location: "paris", Title: "architect"}, found)

	_, err = s.store.FindByID(s.ctx, "655c7c5b037c912bb7ce3973")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryUserStoreSuite) TestListKeepsInsertionOrderAcrossDeletes() {
	a, _ := s.store.Insert(s.ctx, models.User{Name: "a"})
	b, _ := s.store.Insert(s.ctx, models.User{Name: "b"})
	c, _ := s.store.Insert(s.ctx, models.User{Name: "c"})

	n, err := s.store.Delete(s.ctx, b)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	n, err = s.store.Delete(s.ctx, b)
	s.Require().NoError(err)
	s.Equal(int64(0), n)

	users, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 2)
	s.Equal(a, users[0].ID)
	s.Equal(c, users[1].ID)
}
