package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/ntroshkin/gembot/internal/domain"
)

// MockLLM is a canned implementation of domain.LLMClient for local mode
// and tests. It records every request it receives.
type MockLLM struct {
	mu sync.Mutex

	Reply   string
	Images  []domain.Image
	Sources []domain.Source
	Err     error

	Requests        []domain.GenerateRequest
	OneShotRequests []domain.OneShotRequest
}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, &domain.BackendError{Err: m.Err}
	}

	text := m.Reply
	if text == "" {
		text = fmt.Sprintf("Понял вас. Вы написали %d частей, расскажите подробнее.", len(req.Parts))
	}
	return &domain.GenerateResult{Text: text, Images: m.Images, Sources: m.Sources}, nil
}

func (m *MockLLM) GenerateOneShot(ctx context.Context, req domain.OneShotRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.OneShotRequests = append(m.OneShotRequests, req)
	if m.Err != nil {
		return "", &domain.BackendError{Err: m.Err}
	}
	if m.Reply != "" {
		return m.Reply, nil
	}
	return "ok: " + req.UserText, nil
}
