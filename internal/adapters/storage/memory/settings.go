package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ntroshkin/gembot/internal/config"
	"github.com/ntroshkin/gembot/internal/domain"
)

// SettingsStore is an in-memory implementation of domain.SettingsStore.
// It is NOT persistent and is only suitable for development / tests.
type SettingsStore struct {
	mu       sync.RWMutex
	sessions map[domain.UserID]*domain.UserSession
}

func NewSettingsStore() *SettingsStore {
	return &SettingsStore{
		sessions: make(map[domain.UserID]*domain.UserSession),
	}
}

func (s *SettingsStore) GetOrCreate(ctx context.Context, id domain.UserID) (*domain.UserSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		copied := *sess
		return &copied, nil
	}

	sess := &domain.UserSession{
		ID:           id,
		ActiveModel:  config.DefaultModel,
		DeliveryMode: domain.DeliveryImmediate,
		CreatedAt:    time.Now(),
	}
	s.sessions[id] = sess

	copied := *sess
	return &copied, nil
}

func (s *SettingsStore) UpdateSession(ctx context.Context, session *domain.UserSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; !ok {
		return errors.New("session not found")
	}
	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}
