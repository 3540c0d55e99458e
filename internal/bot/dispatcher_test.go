package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ntroshkin/gembot/internal/adapters/telegram"
)

// scriptedSource serves one batch of updates, then blocks until the
// context is canceled.
type scriptedSource struct {
	mu      sync.Mutex
	batches [][]telegram.Update
	offsets []int64
}

func (s *scriptedSource) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]telegram.Update, error) {
	s.mu.Lock()
	s.offsets = append(s.offsets, offset)
	if len(s.batches) > 0 {
		batch := s.batches[0]
		s.batches = s.batches[1:]
		s.mu.Unlock()
		return batch, nil
	}
	s.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestDispatcherAdvancesOffset(t *testing.T) {
	f := newBotFixture(t)
	src := &scriptedSource{batches: [][]telegram.Update{{
		textUpdate(7, 7, "/start"),
		{UpdateID: 5, Message: &telegram.Message{From: &telegram.User{ID: 8}, Chat: telegram.Chat{ID: 8}, Text: "/start"}},
	}}}

	d := NewDispatcher(src, f.bot, 0)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return len(src.offsets) >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	src.mu.Lock()
	defer src.mu.Unlock()
	// after update_id 5 the next poll asks from 6
	assert.Equal(t, int64(6), src.offsets[1])
}

func TestUserLocksDistinctPerUser(t *testing.T) {
	locks := newUserLocks()
	a := locks.get(1)
	b := locks.get(2)
	assert.NotSame(t, a, b)
	assert.Same(t, a, locks.get(1))
}

func TestUpdateUser(t *testing.T) {
	id, ok := updateUser(textUpdate(7, 7, "hi"))
	require.True(t, ok)
	assert.Equal(t, int64(7), id)

	id, ok = updateUser(callbackUpdate(9, 9, "data"))
	require.True(t, ok)
	assert.Equal(t, int64(9), id)

	_, ok = updateUser(telegram.Update{UpdateID: 1})
	assert.False(t, ok)
}
