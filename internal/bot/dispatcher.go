// Package bot wires Telegram updates to the conversation service: the
// long-poll loop, per-user serialization, message routing, and reply
// rendering.
package bot

import (
	"context"
	"sync"
	"time"

	"github.com/ntroshkin/gembot/internal/adapters/telegram"
	"github.com/ntroshkin/gembot/internal/observability"
)

// UpdateSource is the polling side of the Telegram client.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]telegram.Update, error)
}

// userLocks serializes update handling per user: two messages from the
// same user are processed in arrival order, different users in parallel.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[int64]*sync.Mutex)}
}

func (u *userLocks) get(id int64) *sync.Mutex {
	u.mu.Lock()
	defer u.mu.Unlock()

	l, ok := u.locks[id]
	if !ok {
		l = &sync.Mutex{}
		u.locks[id] = l
	}
	return l
}

// Dispatcher runs the long-poll loop and fans updates out to the Bot.
type Dispatcher struct {
	source  UpdateSource
	bot     *Bot
	timeout int

	locks *userLocks
	wg    sync.WaitGroup
}

func NewDispatcher(source UpdateSource, bot *Bot, pollTimeoutSec int) *Dispatcher {
	return &Dispatcher{
		source:  source,
		bot:     bot,
		timeout: pollTimeoutSec,
		locks:   newUserLocks(),
	}
}

// Run polls until the context is canceled, then waits for in-flight
// handlers to finish.
func (d *Dispatcher) Run(ctx context.Context) error {
	log := observability.Logger()
	log.Info("dispatcher started", "poll_timeout_sec", d.timeout)

	var offset int64
	for {
		select {
		case <-ctx.Done():
			d.wg.Wait()
			log.Info("dispatcher stopped")
			return ctx.Err()
		default:
		}

		updates, err := d.source.GetUpdates(ctx, offset, d.timeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Error("polling failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(3 * time.Second):
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			d.dispatch(ctx, upd)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, upd telegram.Update) {
	userID, ok := updateUser(upd)
	if !ok {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		lock := d.locks.get(userID)
		lock.Lock()
		defer lock.Unlock()

		uctx := observability.WithUpdateID(ctx, upd.UpdateID)
		if err := d.bot.HandleUpdate(uctx, upd); err != nil {
			observability.LoggerFromContext(uctx).Error("update handling failed",
				"user_id", userID, "error", err)
		}
	}()
}

func updateUser(upd telegram.Update) (int64, bool) {
	switch {
	case upd.Message != nil && upd.Message.From != nil:
		return upd.Message.From.ID, true
	case upd.CallbackQuery != nil && upd.CallbackQuery.From != nil:
		return upd.CallbackQuery.From.ID, true
	}
	return 0, false
}
