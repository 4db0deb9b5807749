package core

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Service handles the business logic for notes.
type Service struct {
	mu   sync.RWMutex
	repo Repository
}

// NewService creates a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Repository returns the underlying storage adapter.
func (s *Service) Repository() Repository {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.repo
}

// SaveNote saves a note with business validation.
// Locations must carry both coordinates; the store assigns an ID when n.ID is empty.
func (s *Service) SaveNote(ctx context.Context, n Note) (Note, error) {
	n.Title = strings.TrimSpace(n.Title)
	if n.Title == "" {
		return Note{}, ErrEmptyTitle
	}
	if n.Location != nil {
		if err := n.Location.Validate(); err != nil {
			return Note{}, err
		}
	}
	n.Tags = normalizeTags(n.Tags)
	return s.Repository().Save(ctx, n)
}

// GetNote retrieves a note.
func (s *Service) GetNote(ctx context.Context, id string) (Note, error) {
	if id == "" {
		return Note{}, errors.New("note ID cannot be empty")
	}
	return s.Repository().Get(ctx, id)
}

// ListNotes retrieves all notes.
func (s *Service) ListNotes(ctx context.Context) ([]Note, error) {
	return s.Repository().Notes(ctx)
}

// DeleteNote removes a note.
func (s *Service) DeleteNote(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("note ID cannot be empty")
	}
	return s.Repository().Delete(ctx, id)
}

// Watch observes changes in the repository if supported.
func (s *Service) Watch(ctx context.Context) (<-chan Event, error) {
	w, ok := s.Repository().(Watchable)
	if !ok {
		return nil, errors.New("repository does not support watching")
	}
	return w.Watch(ctx)
}

// normalizeTags trims, drops empties and removes duplicates, keeping first occurrence.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
