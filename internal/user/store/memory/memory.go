// Package memory keeps users in process, in insertion order.
package memory

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"

	"middleoffice/internal/user/models"
	"middleoffice/pkg/platform/sentinel"
)

type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]models.User
	order []string
}

func New() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[string]models.User)}
}

func (s *InMemoryUserStore) Insert(_ context.Context, user models.User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.ID = bson.NewObjectID().Hex()
	s.users[user.ID] = user
	s.order = append(s.order, user.ID)
	return user.ID, nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return models.User{}, sentinel.ErrNotFound
}

func (s *InMemoryUserStore) List(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.users[id])
	}
	return out, nil
}

// Delete reports how many users were removed, zero when id is unknown.
func (s *InMemoryUserStore) Delete(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return 0, nil
	}
	delete(s.users, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return 1, nil
}
