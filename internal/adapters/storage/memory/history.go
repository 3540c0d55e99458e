package memory

import (
	"context"
	"sync"

	"github.com/ntroshkin/gembot/internal/domain"
)

type HistoryStore struct {
	mu    sync.RWMutex
	turns map[domain.UserID][]*domain.Turn
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		turns: make(map[domain.UserID][]*domain.Turn),
	}
}

func (s *HistoryStore) AppendTurns(ctx context.Context, turns ...*domain.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// all-or-nothing under one lock so a user turn never lands
	// without its model counterpart
	for _, t := range turns {
		s.turns[t.UserID] = append(s.turns[t.UserID], t)
	}
	return nil
}

func (s *HistoryStore) ListTurns(ctx context.Context, id domain.UserID) ([]*domain.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Turn, len(s.turns[id]))
	copy(out, s.turns[id])
	return out, nil
}

func (s *HistoryStore) ClearTurns(ctx context.Context, id domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.turns, id)
	return nil
}
