package quicktools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ntroshkin/gembot/internal/adapters/llm"
	"github.com/ntroshkin/gembot/internal/config"
	"github.com/ntroshkin/gembot/internal/domain"
)

func TestRegistryValid(t *testing.T) {
	require.NoError(t, Validate())
	assert.Len(t, Registry, 13)
}

func TestLookup(t *testing.T) {
	tool, ok := Lookup("translate")
	require.True(t, ok)
	assert.Equal(t, "translate", tool.Name)

	_, ok = Lookup("start")
	assert.False(t, ok)
}

func TestMarkdownFileTools(t *testing.T) {
	for _, name := range []string{"todo", "markdown", "dayplanner"} {
		tool, ok := Lookup(name)
		require.True(t, ok)
		assert.True(t, tool.SendsMarkdownFile, name)
	}
	tool, _ := Lookup("translate")
	assert.False(t, tool.SendsMarkdownFile)
}

func TestRunnerUsesDefaultModel(t *testing.T) {
	mock := llm.NewMockLLM()
	r := NewRunner(&config.Config{RequestTimeout: time.Second}, mock)

	tool, _ := Lookup("proofread")
	_, err := r.Run(context.Background(), tool, "превед")
	require.NoError(t, err)

	require.Len(t, mock.OneShotRequests, 1)
	req := mock.OneShotRequests[0]
	assert.Equal(t, config.DefaultModel, req.Model)
	assert.Equal(t, tool.SystemInstruction, req.SystemInstruction)
	assert.Equal(t, "превед", req.UserText)
	assert.Nil(t, req.ThinkingBudget)
}

func TestRunnerAppliesThinkingBudgetOnDefaultModelOnly(t *testing.T) {
	mock := llm.NewMockLLM()
	r := NewRunner(&config.Config{}, mock)

	tool, _ := Lookup("translate")
	_, err := r.Run(context.Background(), tool, "hello")
	require.NoError(t, err)
	require.NotNil(t, mock.OneShotRequests[0].ThinkingBudget)
	assert.Zero(t, *mock.OneShotRequests[0].ThinkingBudget)

	pro, _ := Lookup("table")
	_, err = r.Run(context.Background(), pro, "a b c")
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", mock.OneShotRequests[1].Model)
	assert.Nil(t, mock.OneShotRequests[1].ThinkingBudget)
}

func TestRunnerPropagatesBackendError(t *testing.T) {
	mock := llm.NewMockLLM()
	mock.Err = errors.New("boom")
	r := NewRunner(&config.Config{}, mock)

	tool, _ := Lookup("simplify")
	_, err := r.Run(context.Background(), tool, "text")
	require.Error(t, err)
	var be *domain.BackendError
	assert.True(t, errors.As(err, &be))
}
