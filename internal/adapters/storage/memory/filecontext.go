package memory

import (
	"context"
	"sync"

	"github.com/ntroshkin/gembot/internal/domain"
)

type FileContextStore struct {
	mu    sync.RWMutex
	items map[domain.UserID][]*domain.FileContextItem
}

func NewFileContextStore() *FileContextStore {
	return &FileContextStore{
		items: make(map[domain.UserID][]*domain.FileContextItem),
	}
}

func (s *FileContextStore) AddFileContext(ctx context.Context, item *domain.FileContextItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[item.UserID] = append(s.items[item.UserID], item)
	return nil
}

func (s *FileContextStore) ListFileContexts(ctx context.Context, id domain.UserID) ([]*domain.FileContextItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.FileContextItem, len(s.items[id]))
	copy(out, s.items[id])
	return out, nil
}

func (s *FileContextStore) ClearFileContexts(ctx context.Context, id domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, id)
	return nil
}
