package service

import (
	"context"
	"errors"
	"fmt"

	"middleoffice/internal/document/events"
	"middleoffice/internal/document/models"
	dErrors "middleoffice/pkg/domain-errors"
	"middleoffice/pkg/platform/lease"
	"middleoffice/pkg/platform/sentinel"
)

// Update supersedes the active version of id with content. The new version's
// previousObjectIds starts with id followed by the chain id carried. Empty
// content re-stores the current content with only the chain extended.
//
// The read and the transition run under a lease on id, and the backend
// performs the transition itself atomically. The event is published after
// the lease is released.
func (s *Service) Update(ctx context.Context, id string, content any) (doc *models.Document, err error) {
	ctx, finish := s.begin(ctx, "update")
	defer func() { finish(err) }()

	if !validID(id) {
		return nil, dErrors.New(dErrors.CodeOidFormat, "Wrong structure.")
	}
	newID, err := s.supersede(ctx, id, content)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.New(events.TypeUpdated, newID, id, s.timestamp(ctx)))
	return &models.Document{ID: newID, Content: models.InsertedID(newID)}, nil
}

func (s *Service) supersede(ctx context.Context, id string, content any) (string, error) {
	release, err := s.acquire(ctx, id)
	if err != nil {
		return "", err
	}
	defer release()

	current, err := s.get(ctx, id)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeConnection, fmt.Sprintf("Get policy failed: %s.", err))
	}

	replacement, err := s.replacement(ctx, id, current, content)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeConnection, fmt.Sprintf("Create policy failed : %s.", err))
	}

	newID, err := s.store.Supersede(ctx, id, current, replacement)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeDataNotFound, "No result.")
		}
		return "", dErrors.Wrap(err, dErrors.CodeConnection, fmt.Sprintf("Supersede policy failed : %s", err))
	}
	s.metrics.IncrementArchived("history")

	s.logger.InfoContext(ctx, "document superseded",
		"document_id", newID,
		"previous_id", id,
	)
	return newID, nil
}

// replacement builds the record that supersedes current.
func (s *Service) replacement(ctx context.Context, id string, current models.Content, content any) (models.Content, error) {
	var base models.Content
	if isEmpty(content) {
		base = current.Clone()
		for _, f := range models.DerivedDateFields {
			delete(base, f)
		}
		delete(base, models.FieldIntegrationDate)
	} else {
		obj, ok := asObject(content)
		if !ok {
			return nil, dErrors.New(dErrors.CodeParsing, "Document creation exception")
		}
		base = obj.Clone()
	}

	prev := current.PreviousObjectIDs()
	chain := make([]any, 0, len(prev)+1)
	chain = append(chain, id)
	for _, p := range prev {
		chain = append(chain, p)
	}
	base[models.FieldPreviousObjectIDs] = chain

	return s.prepare(ctx, base)
}

// Delete moves the active version of id into the Deleted partition.
func (s *Service) Delete(ctx context.Context, id string) (res *models.DeletionResult, err error) {
	ctx, finish := s.begin(ctx, "delete")
	defer func() { finish(err) }()

	if !validID(id) {
		return nil, dErrors.New(dErrors.CodeOidFormat, "Wrong structure.")
	}
	n, err := s.archive(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.New(events.TypeDeleted, id, "", s.timestamp(ctx)))
	return &models.DeletionResult{DeletedCount: n}, nil
}

func (s *Service) archive(ctx context.Context, id string) (int64, error) {
	release, err := s.acquire(ctx, id)
	if err != nil {
		return 0, err
	}
	defer release()

	current, err := s.get(ctx, id)
	if err != nil {
		return 0, err
	}

	n, err := s.store.Archive(ctx, id, current)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, dErrors.New(dErrors.CodeDataNotFound, "No result.")
		}
		return 0, dErrors.Wrap(err, dErrors.CodeConnection, fmt.Sprintf("Delete from policy store failed: %s", err))
	}
	s.metrics.IncrementArchived("deleted")

	s.logger.InfoContext(ctx, "document archived", "document_id", id)
	return n, nil
}

// acquire takes the per-identifier lease. Provider failures that carry no
// domain code surface as connection errors.
func (s *Service) acquire(ctx context.Context, id string) (lease.Release, error) {
	release, err := s.locker.Acquire(ctx, id)
	if err != nil {
		if _, ok := dErrors.CodeOf(err); ok {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeConnection, fmt.Sprintf("Lease unavailable : %s", err))
	}
	return release, nil
}

func isEmpty(content any) bool {
	switch t := content.(type) {
	case nil:
		return true
	case map[string]any:
		return len(t) == 0
	case models.Content:
		return len(t) == 0
	default:
		return false
	}
}
