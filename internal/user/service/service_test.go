package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"middleoffice/internal/user/models"
	"middleoffice/internal/user/service/mocks"
	"middleoffice/internal/user/store/memory"
	dErrors "middleoffice/pkg/domain-errors"
)

type UserServiceSuite struct {
	suite.Suite
	service *Service
	created *counter
	ctx     context.Context
}

type counter struct{ n int }

func (c *counter) IncrementUsersCreated() { c.n++ }

func TestUserServiceSuite(t *testing.T) {
	suite.Run(t, new(UserServiceSuite))
}

func (s *UserServiceSuite) SetupTest() {
	s.created = &counter{}
	s.service = New(memory.New(),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.created),
	)
	s.ctx = context.Background()
}

func (s *UserServiceSuite) TestCreate() {
	s.Run("stores a valid user", func() {
		id, err := s.service.Create(s.ctx, models.CreateUserRequest{Name: "toto", Location: "paris", Title: "architect"})
		s.Require().NoError(err)

		user, err := s.service.Get(s.ctx, id)
		s.Require().NoError(err)
		s.Equal("toto", user.Name)
		s.Equal(1, s.created.n)
	})

	s.Run("rejects missing fields", func() {
		_, err := s.service.Create(s.ctx, models.CreateUserRequest{Name: "toto"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("Validation exception : location is required; title is required", err.Error())
	})
}

func (s *UserServiceSuite) TestGet() {
	s.Run("malformed id", func() {
		_, err := s.service.Get(s.ctx, "1234")
		s.Require().Error(err)
		s.Equal("ObjectId exception : ObjectId wrongly structure.", err.Error())
	})

	s.Run("unknown id", func() {
		_, err := s.service.Get(s.ctx, "655c7c5b037c912bb7ce3973")
		s.Require().Error(err)
		s.Equal("Data not found : No result.", err.Error())
	})
}

func (s *UserServiceSuite) TestListAndDelete() {
	a, err := s.service.Create(s.ctx, models.CreateUserRequest{Name: "a", Location: "paris", Title: "x"})
	s.Require().NoError(err)
	_, err = s.service.Create(s.ctx, models.CreateUserRequest{Name: "b", Location: "lyon", Title: "y"})
	s.Require().NoError(err)

	users, err := s.service.List(s.ctx)
	s.Require().NoError(err)
	s.Len(users, 2)

	s.Require().NoError(s.service.Delete(s.ctx, a))

	err = s.service.Delete(s.ctx, a)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeDataNotFound))

	users, err = s.service.List(s.ctx)
	s.Require().NoError(err)
	s.Len(users, 1)
}

func TestBackendFailures(t *testing.T) {
	boom := errors.New("connection reset")
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	svc := New(store)

	store.EXPECT().Insert(gomock.Any(), gomock.Any()).Return("", boom)
	_, err := svc.Create(context.Background(), models.CreateUserRequest{Name: "a", Location: "b", Title: "c"})
	require.Error(t, err)
	assert.Equal(t, "Connection exception : Error creating user : connection reset", err.Error())

	store.EXPECT().List(gomock.Any()).Return(nil, boom)
	_, err = svc.List(context.Background())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConnection))

	store.EXPECT().Delete(gomock.Any(), "655c7c5b037c912bb7ce3973").Return(int64(0), boom)
	err = svc.Delete(context.Background(), "655c7c5b037c912bb7ce3973")
	assert.ErrorIs(t, err, boom)
}
