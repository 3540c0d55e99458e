package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ntroshkin/gembot/internal/config"
	"github.com/ntroshkin/gembot/internal/domain"
)

// Store implements all four store contracts on Firestore. Per-user data
// lives in subcollections under users/{id}.
type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store for the given GCP project.
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error { return s.client.Close() }

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) userDoc(id domain.UserID) *firestore.DocumentRef {
	return s.client.Collection("users").Doc(fmt.Sprintf("%d", id))
}

func (s *Store) turnsCol(id domain.UserID) *firestore.CollectionRef {
	return s.userDoc(id).Collection("turns")
}

func (s *Store) filesCol(id domain.UserID) *firestore.CollectionRef {
	return s.userDoc(id).Collection("file_contexts")
}

func (s *Store) bufferCol(id domain.UserID) *firestore.CollectionRef {
	return s.userDoc(id).Collection("buffer_items")
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type userDoc struct {
	ActiveModel   string    `firestore:"active_model"`
	DeliveryMode  string    `firestore:"delivery_mode"`
	SearchEnabled bool      `firestore:"search_enabled"`
	ProUnlocked   bool      `firestore:"pro_unlocked"`
	CreatedAt     time.Time `firestore:"created_at"`
}

type turnDoc struct {
	Role          string    `firestore:"role"`
	Content       string    `firestore:"content"`
	HasAttachment bool      `firestore:"has_attachment"`
	CreatedAt     time.Time `firestore:"created_at"`
}

type fileContextDoc struct {
	FileRef   string    `firestore:"file_ref"`
	Name      string    `firestore:"name"`
	MIMEType  string    `firestore:"mime_type"`
	Caption   string    `firestore:"caption"`
	CreatedAt time.Time `firestore:"created_at"`
}

type bufferItemDoc struct {
	Kind      string    `firestore:"kind"`
	Content   string    `firestore:"content"`
	Caption   string    `firestore:"caption"`
	MIMEType  string    `firestore:"mime_type"`
	FileName  string    `firestore:"file_name"`
	CreatedAt time.Time `firestore:"created_at"`
}

// ─────────────────────────────────────────
// SettingsStore implementation
// ─────────────────────────────────────────

func (s *Store) GetOrCreate(ctx context.Context, id domain.UserID) (*domain.UserSession, error) {
	snap, err := s.userDoc(id).Get(ctx)
	if err != nil {
		if status.Code(err) != codes.NotFound {
			return nil, fmt.Errorf("firestore GetOrCreate: %w", err)
		}
		sess := &domain.UserSession{
			ID:           id,
			ActiveModel:  config.DefaultModel,
			DeliveryMode: domain.DeliveryImmediate,
			CreatedAt:    time.Now(),
		}
		doc := userDoc{
			ActiveModel:  sess.ActiveModel,
			DeliveryMode: string(sess.DeliveryMode),
			CreatedAt:    sess.CreatedAt,
		}
		if _, err := s.userDoc(id).Create(ctx, doc); err != nil {
			// a concurrent create may have won; fall through to a re-read
			if status.Code(err) != codes.AlreadyExists {
				return nil, fmt.Errorf("firestore GetOrCreate create: %w", err)
			}
			return s.GetOrCreate(ctx, id)
		}
		return sess, nil
	}

	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetOrCreate decode: %w", err)
	}
	return &domain.UserSession{
		ID:            id,
		ActiveModel:   doc.ActiveModel,
		DeliveryMode:  domain.DeliveryMode(doc.DeliveryMode),
		SearchEnabled: doc.SearchEnabled,
		ProUnlocked:   doc.ProUnlocked,
		CreatedAt:     doc.CreatedAt,
	}, nil
}

func (s *Store) UpdateSession(ctx context.Context, sess *domain.UserSession) error {
	doc := map[string]interface{}{
		"active_model":   sess.ActiveModel,
		"delivery_mode":  string(sess.DeliveryMode),
		"search_enabled": sess.SearchEnabled,
		"pro_unlocked":   sess.ProUnlocked,
		"created_at":     sess.CreatedAt,
	}

	_, err := s.userDoc(sess.ID).Set(ctx, doc, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("firestore UpdateSession: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────
// HistoryStore implementation
// ─────────────────────────────────────────

func (s *Store) AppendTurns(ctx context.Context, turns ...*domain.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	// one batch so the user/model pair commits atomically
	batch := s.client.Batch()
	for _, t := range turns {
		batch.Set(s.turnsCol(t.UserID).Doc(t.ID), turnDoc{
			Role:          string(t.Role),
			Content:       t.Content,
			HasAttachment: t.HasAttachment,
			CreatedAt:     t.CreatedAt,
		})
	}
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("firestore AppendTurns: %w", err)
	}
	return nil
}

func (s *Store) ListTurns(ctx context.Context, id domain.UserID) ([]*domain.Turn, error) {
	iter := s.turnsCol(id).OrderBy("created_at", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var out []*domain.Turn
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListTurns: %w", err)
		}

		var doc turnDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode turnDoc: %w", err)
		}
		out = append(out, &domain.Turn{
			ID:            snap.Ref.ID,
			UserID:        id,
			Role:          domain.Role(doc.Role),
			Content:       doc.Content,
			HasAttachment: doc.HasAttachment,
			CreatedAt:     doc.CreatedAt,
		})
	}
	return out, nil
}

func (s *Store) ClearTurns(ctx context.Context, id domain.UserID) error {
	return s.deleteAll(ctx, s.turnsCol(id))
}

// ─────────────────────────────────────────
// FileContextStore implementation
// ─────────────────────────────────────────

func (s *Store) AddFileContext(ctx context.Context, item *domain.FileContextItem) error {
	_, err := s.filesCol(item.UserID).Doc(item.ID).Set(ctx, fileContextDoc{
		FileRef:   item.FileRef,
		Name:      item.Name,
		MIMEType:  item.MIMEType,
		Caption:   item.Caption,
		CreatedAt: item.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("firestore AddFileContext: %w", err)
	}
	return nil
}

func (s *Store) ListFileContexts(ctx context.Context, id domain.UserID) ([]*domain.FileContextItem, error) {
	iter := s.filesCol(id).OrderBy("created_at", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var out []*domain.FileContextItem
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListFileContexts: %w", err)
		}

		var doc fileContextDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode fileContextDoc: %w", err)
		}
		out = append(out, &domain.FileContextItem{
			ID:        snap.Ref.ID,
			UserID:    id,
			FileRef:   doc.FileRef,
			Name:      doc.Name,
			MIMEType:  doc.MIMEType,
			Caption:   doc.Caption,
			CreatedAt: doc.CreatedAt,
		})
	}
	return out, nil
}

func (s *Store) ClearFileContexts(ctx context.Context, id domain.UserID) error {
	return s.deleteAll(ctx, s.filesCol(id))
}

// ─────────────────────────────────────────
// BufferStore implementation
// ─────────────────────────────────────────

func (s *Store) PushBufferItem(ctx context.Context, item *domain.BufferItem) error {
	_, err := s.bufferCol(item.UserID).Doc(item.ID).Set(ctx, bufferItemDoc{
		Kind:      string(item.Kind),
		Content:   item.Content,
		Caption:   item.Caption,
		MIMEType:  item.MIMEType,
		FileName:  item.FileName,
		CreatedAt: item.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("firestore PushBufferItem: %w", err)
	}
	return nil
}

func (s *Store) DrainBuffer(ctx context.Context, id domain.UserID) ([]*domain.BufferItem, error) {
	iter := s.bufferCol(id).OrderBy("created_at", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var out []*domain.BufferItem
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore DrainBuffer: %w", err)
		}

		var doc bufferItemDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode bufferItemDoc: %w", err)
		}
		out = append(out, &domain.BufferItem{
			ID:        snap.Ref.ID,
			UserID:    id,
			Kind:      domain.BufferKind(doc.Kind),
			Content:   doc.Content,
			Caption:   doc.Caption,
			MIMEType:  doc.MIMEType,
			FileName:  doc.FileName,
			CreatedAt: doc.CreatedAt,
		})
	}
	return out, nil
}

func (s *Store) ClearBuffer(ctx context.Context, id domain.UserID) error {
	return s.deleteAll(ctx, s.bufferCol(id))
}

func (s *Store) deleteAll(ctx context.Context, col *firestore.CollectionRef) error {
	iter := col.Documents(ctx)
	defer iter.Stop()

	batch := s.client.Batch()
	n := 0
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return fmt.Errorf("firestore deleteAll: %w", err)
		}
		batch.Delete(snap.Ref)
		n++
	}
	if n == 0 {
		return nil
	}
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("firestore deleteAll commit: %w", err)
	}
	return nil
}
