package memory

import (
	"context"
	"sync"

	"github.com/ntroshkin/gembot/internal/domain"
)

type BufferStore struct {
	mu    sync.RWMutex
	items map[domain.UserID][]*domain.BufferItem
}

func NewBufferStore() *BufferStore {
	return &BufferStore{
		items: make(map[domain.UserID][]*domain.BufferItem),
	}
}

func (s *BufferStore) PushBufferItem(ctx context.Context, item *domain.BufferItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[item.UserID] = append(s.items[item.UserID], item)
	return nil
}

// Drain returns the buffered items in FIFO order without clearing them.
func (s *BufferStore) DrainBuffer(ctx context.Context, id domain.UserID) ([]*domain.BufferItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.BufferItem, len(s.items[id]))
	copy(out, s.items[id])
	return out, nil
}

func (s *BufferStore) ClearBuffer(ctx context.Context, id domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, id)
	return nil
}
