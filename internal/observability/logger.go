package observability

import (
	"context"
	"log/slog"
	"os"
)

type ctxKey string

const (
	ctxKeyUpdateID ctxKey = "update_id"
)

// basic global logger, JSON to stdout.
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

func Logger() *slog.Logger {
	return logger
}

// WithUpdateID stores the Telegram update id in the context so every log
// line produced while handling that update can be correlated.
func WithUpdateID(ctx context.Context, updateID int64) context.Context {
	return context.WithValue(ctx, ctxKeyUpdateID, updateID)
}

// LoggerFromContext adds update_id if present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	id, ok := ctx.Value(ctxKeyUpdateID).(int64)
	if !ok {
		return logger
	}
	return logger.With("update_id", id)
}
