// Package sqlite is the default durable storage backend. One Store
// implements all four store contracts on a single database file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ntroshkin/gembot/internal/config"
	"github.com/ntroshkin/gembot/internal/domain"
)

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at the given path, ensuring the
// parent directory exists, and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening db at %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging db at %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY,
			active_model TEXT NOT NULL,
			delivery_mode TEXT NOT NULL,
			search_enabled INTEGER NOT NULL DEFAULT 0,
			pro_unlocked INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS turns (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			has_attachment INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_turns_user_created ON turns(user_id, created_at);

		CREATE TABLE IF NOT EXISTS file_contexts (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			file_ref TEXT NOT NULL,
			name TEXT NOT NULL,
			mime_type TEXT NOT NULL,
			caption TEXT,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_file_contexts_user ON file_contexts(user_id, created_at);

		CREATE TABLE IF NOT EXISTS buffer_items (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			content TEXT NOT NULL,
			caption TEXT,
			mime_type TEXT,
			file_name TEXT,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_buffer_items_user ON buffer_items(user_id, created_at);
	`)
	return err
}

// ─────────────────────────────────────────
// SettingsStore
// ─────────────────────────────────────────

func (s *Store) GetOrCreate(ctx context.Context, id domain.UserID) (*domain.UserSession, error) {
	sess, err := s.getSession(ctx, id)
	if err == nil {
		return sess, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("sqlite GetOrCreate: %w", err)
	}

	sess = &domain.UserSession{
		ID:           id,
		ActiveModel:  config.DefaultModel,
		DeliveryMode: domain.DeliveryImmediate,
		CreatedAt:    time.Now(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, active_model, delivery_mode, search_enabled, pro_unlocked, created_at)
		 VALUES (?, ?, ?, 0, 0, ?)
		 ON CONFLICT(id) DO NOTHING`,
		int64(id), sess.ActiveModel, string(sess.DeliveryMode), sess.CreatedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite GetOrCreate insert: %w", err)
	}
	// re-read in case a concurrent insert won
	return s.getSession(ctx, id)
}

func (s *Store) getSession(ctx context.Context, id domain.UserID) (*domain.UserSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT active_model, delivery_mode, search_enabled, pro_unlocked, created_at
		 FROM users WHERE id = ?`, int64(id))

	var (
		model, mode      string
		search, unlocked int
		createdAt        int64
	)
	if err := row.Scan(&model, &mode, &search, &unlocked, &createdAt); err != nil {
		return nil, err
	}
	return &domain.UserSession{
		ID:            id,
		ActiveModel:   model,
		DeliveryMode:  domain.DeliveryMode(mode),
		SearchEnabled: search != 0,
		ProUnlocked:   unlocked != 0,
		CreatedAt:     time.Unix(0, createdAt),
	}, nil
}

func (s *Store) UpdateSession(ctx context.Context, sess *domain.UserSession) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET active_model = ?, delivery_mode = ?, search_enabled = ?, pro_unlocked = ?
		 WHERE id = ?`,
		sess.ActiveModel, string(sess.DeliveryMode), boolInt(sess.SearchEnabled),
		boolInt(sess.ProUnlocked), int64(sess.ID),
	)
	if err != nil {
		return fmt.Errorf("sqlite Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sqlite Update: session %d not found", sess.ID)
	}
	return nil
}

// ─────────────────────────────────────────
// HistoryStore
// ─────────────────────────────────────────

func (s *Store) AppendTurns(ctx context.Context, turns ...*domain.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite Append begin: %w", err)
	}
	defer tx.Rollback()

	for _, t := range turns {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO turns (id, user_id, role, content, has_attachment, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			t.ID, int64(t.UserID), string(t.Role), t.Content,
			boolInt(t.HasAttachment), t.CreatedAt.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("sqlite Append: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) ListTurns(ctx context.Context, id domain.UserID) ([]*domain.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, has_attachment, created_at
		 FROM turns WHERE user_id = ? ORDER BY created_at ASC, id ASC`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("sqlite List turns: %w", err)
	}
	defer rows.Close()

	var out []*domain.Turn
	for rows.Next() {
		var (
			t          domain.Turn
			attachment int
			createdAt  int64
		)
		if err := rows.Scan(&t.ID, &t.Role, &t.Content, &attachment, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite scan turn: %w", err)
		}
		t.UserID = id
		t.HasAttachment = attachment != 0
		t.CreatedAt = time.Unix(0, createdAt)
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (s *Store) ClearTurns(ctx context.Context, id domain.UserID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM turns WHERE user_id = ?`, int64(id))
	if err != nil {
		return fmt.Errorf("sqlite Clear turns: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────
// FileContextStore
// ─────────────────────────────────────────

func (s *Store) AddFileContext(ctx context.Context, item *domain.FileContextItem) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO file_contexts (id, user_id, file_ref, name, mime_type, caption, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID, int64(item.UserID), item.FileRef, item.Name,
		item.MIMEType, item.Caption, item.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("sqlite Add file context: %w", err)
	}
	return nil
}

func (s *Store) ListFileContexts(ctx context.Context, id domain.UserID) ([]*domain.FileContextItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_ref, name, mime_type, caption, created_at
		 FROM file_contexts WHERE user_id = ? ORDER BY created_at ASC, id ASC`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("sqlite List file contexts: %w", err)
	}
	defer rows.Close()

	var out []*domain.FileContextItem
	for rows.Next() {
		var (
			item      domain.FileContextItem
			caption   sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&item.ID, &item.FileRef, &item.Name, &item.MIMEType, &caption, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite scan file context: %w", err)
		}
		item.UserID = id
		item.Caption = caption.String
		item.CreatedAt = time.Unix(0, createdAt)
		out = append(out, &item)
	}
	return out, rows.Err()
}

func (s *Store) ClearFileContexts(ctx context.Context, id domain.UserID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM file_contexts WHERE user_id = ?`, int64(id))
	if err != nil {
		return fmt.Errorf("sqlite Clear file contexts: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────
// BufferStore
// ─────────────────────────────────────────

func (s *Store) PushBufferItem(ctx context.Context, item *domain.BufferItem) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO buffer_items (id, user_id, kind, content, caption, mime_type, file_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, int64(item.UserID), string(item.Kind), item.Content,
		item.Caption, item.MIMEType, item.FileName, item.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("sqlite Push: %w", err)
	}
	return nil
}

func (s *Store) DrainBuffer(ctx context.Context, id domain.UserID) ([]*domain.BufferItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, content, caption, mime_type, file_name, created_at
		 FROM buffer_items WHERE user_id = ? ORDER BY created_at ASC, id ASC`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("sqlite Drain: %w", err)
	}
	defer rows.Close()

	var out []*domain.BufferItem
	for rows.Next() {
		var (
			item                        domain.BufferItem
			caption, mimeType, fileName sql.NullString
			createdAt                   int64
		)
		if err := rows.Scan(&item.ID, &item.Kind, &item.Content, &caption, &mimeType, &fileName, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite scan buffer item: %w", err)
		}
		item.UserID = id
		item.Caption = caption.String
		item.MIMEType = mimeType.String
		item.FileName = fileName.String
		item.CreatedAt = time.Unix(0, createdAt)
		out = append(out, &item)
	}
	return out, rows.Err()
}

func (s *Store) ClearBuffer(ctx context.Context, id domain.UserID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM buffer_items WHERE user_id = ?`, int64(id))
	if err != nil {
		return fmt.Errorf("sqlite Clear buffer: %w", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
