// Package memory is an in-process document backend with the same
// partition semantics as the Mongo backend.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"middleoffice/internal/document/filter"
	"middleoffice/internal/document/models"
	"middleoffice/pkg/platform/sentinel"
)

// InMemory keeps Active, History and Deleted partitions behind one lock, so
// Supersede and Archive are atomic with respect to every other call.
type InMemory struct {
	mu      sync.RWMutex
	active  map[string]models.Content
	order   []string
	history []models.ArchivedRecord
	deleted []models.ArchivedRecord
	now     func() time.Time
}

// NewInMemory returns an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		active: make(map[string]models.Content),
		now:    time.Now,
	}
}

func (s *InMemory) Insert(_ context.Context, record models.Content) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(record), nil
}

func (s *InMemory) insertLocked(record models.Content) string {
	id := bson.NewObjectID().Hex()
	stored := record.Clone()
	if stored == nil {
		stored = models.Content{}
	}
	stored[models.FieldID] = id
	s.active[id] = stored
	s.order = append(s.order, id)
	return id
}

func (s *InMemory) FindByID(_ context.Context, id string) (models.Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.active[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return record.Clone(), nil
}

// Find returns matches in insertion order.
func (s *InMemory) Find(_ context.Context, predicate bson.D, page filter.Page) ([]models.Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		out     []models.Content
		skipped int64
	)
	for _, id := range s.order {
		record, ok := s.active[id]
		if !ok || !matches(record, predicate) {
			continue
		}
		if skipped < page.Skip {
			skipped++
			continue
		}
		if page.Limit > 0 && int64(len(out)) >= page.Limit {
			break
		}
		out = append(out, project(record.Clone(), page.Projection))
	}
	return out, nil
}

func (s *InMemory) Count(_ context.Context, predicate bson.D) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, record := range s.active {
		if matches(record, predicate) {
			n++
		}
	}
	return n, nil
}

// Supersede removes id from Active, appends original to History and inserts
// replacement, or does nothing if id is no longer active.
func (s *InMemory) Supersede(_ context.Context, id string, original, replacement models.Content) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.removeLocked(id) {
		return "", sentinel.ErrNotFound
	}
	s.history = append(s.history, s.archiveEntry(id, original))
	return s.insertLocked(replacement), nil
}

// Archive removes id from Active and appends original to Deleted.
func (s *InMemory) Archive(_ context.Context, id string, original models.Content) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.removeLocked(id) {
		return 0, sentinel.ErrNotFound
	}
	s.deleted = append(s.deleted, s.archiveEntry(id, original))
	return 1, nil
}

func (s *InMemory) Ping(context.Context) error {
	return nil
}

// History returns a snapshot of the History partition.
func (s *InMemory) History() []models.ArchivedRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneArchive(s.history)
}

// Deleted returns a snapshot of the Deleted partition.
func (s *InMemory) Deleted() []models.ArchivedRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneArchive(s.deleted)
}

func (s *InMemory) removeLocked(id string) bool {
	if _, ok := s.active[id]; !ok {
		return false
	}
	delete(s.active, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *InMemory) archiveEntry(id string, original models.Content) models.ArchivedRecord {
	content := original.Clone()
	delete(content, models.FieldID)
	return models.ArchivedRecord{
		ID:         bson.NewObjectID().Hex(),
		OriginalID: id,
		ArchivedAt: s.now().UTC().Truncate(time.Millisecond),
		Content:    content,
	}
}

func cloneArchive(in []models.ArchivedRecord) []models.ArchivedRecord {
	out := make([]models.ArchivedRecord, len(in))
	for i, r := range in {
		r.Content = r.Content.Clone()
		out[i] = r
	}
	return out
}

// project drops the excluded paths of an exclusion-only projection.
func project(record models.Content, projection bson.D) models.Content {
	for _, e := range projection {
		removePath(map[string]any(record), strings.Split(e.Key, "."))
	}
	return record
}

func removePath(m map[string]any, path []string) {
	if len(path) == 1 {
		delete(m, path[0])
		return
	}
	child, ok := m[path[0]].(map[string]any)
	if !ok {
		return
	}
	removePath(child, path[1:])
}
