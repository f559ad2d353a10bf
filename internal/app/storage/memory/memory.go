// Package memory provides a thread-safe in-memory implementation of the
// storage interfaces. It is intended for tests and prototyping and
// deliberately keeps the implementation simple.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/appealdesk/appealdesk/internal/app/domain/appeal"
	"github.com/appealdesk/appealdesk/internal/app/storage"
)

// Store is an in-memory AppealStore.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	appeals map[string]appeal.Appeal
}

var _ storage.AppealStore = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		nextID:  1,
		appeals: make(map[string]appeal.Appeal),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

func (s *Store) CreateAppeal(_ context.Context, a appeal.Appeal) (appeal.Appeal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = s.nextIDLocked()
	} else if _, exists := s.appeals[a.ID]; exists {
		return appeal.Appeal{}, fmt.Errorf("appeal %s already exists", a.ID)
	}

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	a.UpdatedAt = nil

	s.appeals[a.ID] = a
	return cloneAppeal(a), nil
}

func (s *Store) GetAppeal(_ context.Context, id string) (appeal.Appeal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.appeals[id]
	if !ok {
		return appeal.Appeal{}, storage.ErrNotFound
	}
	return cloneAppeal(a), nil
}

func (s *Store) ListAppeals(_ context.Context, f appeal.Filter) ([]appeal.Appeal, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]appeal.Appeal, 0, len(s.appeals))
	for _, a := range s.appeals {
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if !f.CreatedFrom.IsZero() && a.CreatedAt.Before(f.CreatedFrom) {
			continue
		}
		if !f.CreatedTo.IsZero() && a.CreatedAt.After(f.CreatedTo) {
			continue
		}
		matches = append(matches, cloneAppeal(a))
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	total := len(matches)
	if f.Limit <= 0 {
		return matches, total, nil
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * f.Limit
	if start >= total {
		return []appeal.Appeal{}, total, nil
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return matches[start:end], total, nil
}

func (s *Store) UpdateAppeal(_ context.Context, a appeal.Appeal) (appeal.Appeal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.appeals[a.ID]
	if !ok {
		return appeal.Appeal{}, storage.ErrNotFound
	}

	a.Title = original.Title
	a.Description = original.Description
	a.CreatedAt = original.CreatedAt

	s.appeals[a.ID] = a
	return cloneAppeal(a), nil
}

func (s *Store) CancelInProgress(_ context.Context, reason string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	modified := 0
	for id, a := range s.appeals {
		if a.Status != appeal.StatusInProgress {
			continue
		}
		a.Status = appeal.StatusCanceled
		a.Reason = reason
		updated := at
		a.UpdatedAt = &updated
		s.appeals[id] = a
		modified++
	}
	return modified, nil
}

func cloneAppeal(a appeal.Appeal) appeal.Appeal {
	if a.UpdatedAt != nil {
		updated := *a.UpdatedAt
		a.UpdatedAt = &updated
	}
	return a
}
