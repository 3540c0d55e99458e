// Package chat implements the conversation orchestrator: the state
// machine that decides, for every incoming user event, whether to buffer
// it, stage it, or assemble a request and call the generative backend.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ntroshkin/gembot/internal/config"
	"github.com/ntroshkin/gembot/internal/domain"
	"github.com/ntroshkin/gembot/internal/observability"
)

// DefaultImagePrompt is used when a photo arrives without a caption.
const DefaultImagePrompt = "Describe this image"

// defaultFlushPrompt is used when a flushed buffer carries no text at all.
const defaultFlushPrompt = "Проанализируй эти файлы."

type Service struct {
	cfg        *config.Config
	llm        domain.LLMClient
	settings   domain.SettingsStore
	history    domain.HistoryStore
	files      domain.FileContextStore
	buffer     domain.BufferStore
	downloader domain.AttachmentDownloader

	now   func() time.Time
	newID func() string
}

func NewService(
	cfg *config.Config,
	llm domain.LLMClient,
	settings domain.SettingsStore,
	history domain.HistoryStore,
	files domain.FileContextStore,
	buffer domain.BufferStore,
	downloader domain.AttachmentDownloader,
) *Service {
	return &Service{
		cfg:        cfg,
		llm:        llm,
		settings:   settings,
		history:    history,
		files:      files,
		buffer:     buffer,
		downloader: downloader,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Reply is the rendered-ready outcome of a backend call: raw markdown
// text (sources section already appended) plus any generated images.
type Reply struct {
	Text   string
	Images []domain.Image
}

// Outcome describes what the orchestrator did with one input event.
type Outcome struct {
	// Reply is set when the backend was called.
	Reply *Reply
	// Buffered is set when the input was queued in manual mode;
	// BufferSize is the queue length after the push.
	Buffered   bool
	BufferSize int
	// Staged is set when a document was added to the file context.
	Staged     bool
	StagedName string
}

// Session loads (or lazily creates) the user's settings.
func (s *Service) Session(ctx context.Context, id domain.UserID) (*domain.UserSession, error) {
	return s.settings.GetOrCreate(ctx, id)
}

// HandleText processes an incoming text message: buffered in manual mode,
// otherwise assembled into an immediate request together with the full
// history and any staged context files.
func (s *Service) HandleText(ctx context.Context, id domain.UserID, text string) (*Outcome, error) {
	sess, err := s.settings.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}

	log := observability.LoggerFromContext(ctx).With("user_id", id, "model", sess.ActiveModel)

	if sess.DeliveryMode == domain.DeliveryManual {
		return s.pushBuffer(ctx, &domain.BufferItem{
			ID:        s.newID(),
			UserID:    id,
			Kind:      domain.BufferText,
			Content:   text,
			CreatedAt: s.now(),
		})
	}

	staged, err := s.stageContextFiles(ctx, sess)
	if err != nil {
		return nil, err
	}

	parts := filesToParts(staged)
	parts = append(parts, domain.Part{Text: text})

	log.Info("immediate text request", "context_files", len(staged))

	reply, err := s.invoke(ctx, sess, parts, text, len(staged) > 0)
	if err != nil {
		return nil, err
	}
	return &Outcome{Reply: reply}, nil
}

// HandlePhoto processes an incoming photo. In immediate mode it becomes a
// one-shot multimodal analysis request; staged context files do not join.
func (s *Service) HandlePhoto(ctx context.Context, id domain.UserID, fileRef, caption string) (*Outcome, error) {
	sess, err := s.settings.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}

	if sess.DeliveryMode == domain.DeliveryManual {
		return s.pushBuffer(ctx, &domain.BufferItem{
			ID:        s.newID(),
			UserID:    id,
			Kind:      domain.BufferPhoto,
			Content:   fileRef,
			Caption:   caption,
			MIMEType:  "image/jpeg",
			FileName:  "photo.jpg",
			CreatedAt: s.now(),
		})
	}

	data, err := s.downloader.DownloadAttachment(ctx, fileRef)
	if err != nil {
		return nil, fmt.Errorf("downloading photo: %w", err)
	}

	prompt := caption
	if prompt == "" {
		prompt = DefaultImagePrompt
	}

	parts := []domain.Part{
		{Data: data, MIMEType: "image/jpeg"},
		{Text: prompt},
	}

	reply, err := s.invoke(ctx, sess, parts, prompt, true)
	if err != nil {
		return nil, err
	}
	return &Outcome{Reply: reply}, nil
}

// HandleDocument processes an incoming document. Immediate mode stages it
// into the file context for the next text request; manual mode buffers it.
// Unsupported types are rejected in immediate mode before any state
// mutation, oversized files in both modes.
func (s *Service) HandleDocument(ctx context.Context, id domain.UserID, fileRef, fileName, mimeType, caption string, sizeBytes int64) (*Outcome, error) {
	sess, err := s.settings.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}

	if sizeBytes > s.cfg.MaxFileSizeBytes() {
		return nil, domain.ErrFileTooLarge
	}

	if sess.DeliveryMode == domain.DeliveryManual {
		return s.pushBuffer(ctx, &domain.BufferItem{
			ID:        s.newID(),
			UserID:    id,
			Kind:      domain.BufferDocument,
			Content:   fileRef,
			Caption:   caption,
			MIMEType:  mimeType,
			FileName:  fileName,
			CreatedAt: s.now(),
		})
	}

	if !config.SupportedMIMETypes[mimeType] {
		return nil, domain.ErrUnsupportedFileType
	}

	err = s.files.AddFileContext(ctx, &domain.FileContextItem{
		ID:        s.newID(),
		UserID:    id,
		FileRef:   fileRef,
		Name:      fileName,
		MIMEType:  mimeType,
		Caption:   caption,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{Staged: true, StagedName: fileName}, nil
}

// Flush drains the draft buffer and sends it as one combined request.
// The buffer is cleared only after the backend call succeeds; on failure
// it is left untouched for a later retry.
func (s *Service) Flush(ctx context.Context, id domain.UserID) (*Outcome, error) {
	sess, err := s.settings.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.DeliveryMode != domain.DeliveryManual {
		return nil, domain.ErrNotManualMode
	}

	items, err := s.buffer.DrainBuffer(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.ErrEmptyBuffer
	}

	log := observability.LoggerFromContext(ctx).With("user_id", id, "buffer_items", len(items))
	log.Info("flushing draft buffer")

	parts, prompt, hasMedia := s.combine(ctx, items)

	reply, err := s.invoke(ctx, sess, parts, prompt, hasMedia)
	if err != nil {
		return nil, err
	}

	if err := s.buffer.ClearBuffer(ctx, id); err != nil {
		log.Error("failed to clear buffer after flush", "error", err)
		return nil, err
	}
	return &Outcome{Reply: reply}, nil
}

// NewChat clears the conversation history and the standing file context.
// The draft buffer is left untouched: drafts are independent of
// conversational memory.
func (s *Service) NewChat(ctx context.Context, id domain.UserID) error {
	if _, err := s.settings.GetOrCreate(ctx, id); err != nil {
		return err
	}
	return s.clearConversation(ctx, id)
}

// SelectModel switches the active model after allow-list and pro-gating
// checks. A successful switch invalidates the conversation: history and
// file context are cleared.
func (s *Service) SelectModel(ctx context.Context, id domain.UserID, model string) (*domain.UserSession, error) {
	sess, err := s.settings.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}

	if !config.IsKnownModel(model) {
		return nil, fmt.Errorf("unknown model %q", model)
	}
	if config.ProModels[model] && !sess.ProUnlocked {
		return nil, domain.ErrPermissionDenied
	}

	sess.ActiveModel = model
	if err := s.settings.UpdateSession(ctx, sess); err != nil {
		return nil, err
	}
	if err := s.clearConversation(ctx, id); err != nil {
		return nil, err
	}
	return sess, nil
}

// ToggleDeliveryMode flips between immediate and manual delivery. The
// draft buffer is cleared on every switch so stale drafts are never sent
// under the new mode's semantics.
func (s *Service) ToggleDeliveryMode(ctx context.Context, id domain.UserID) (*domain.UserSession, error) {
	sess, err := s.settings.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}

	if sess.DeliveryMode == domain.DeliveryImmediate {
		sess.DeliveryMode = domain.DeliveryManual
	} else {
		sess.DeliveryMode = domain.DeliveryImmediate
	}
	if err := s.settings.UpdateSession(ctx, sess); err != nil {
		return nil, err
	}
	if err := s.buffer.ClearBuffer(ctx, id); err != nil {
		return nil, err
	}
	return sess, nil
}

// ToggleSearch flips the search augmentation flag.
func (s *Service) ToggleSearch(ctx context.Context, id domain.UserID) (*domain.UserSession, error) {
	sess, err := s.settings.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}

	sess.SearchEnabled = !sess.SearchEnabled
	if err := s.settings.UpdateSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// UnlockPro unlocks pro-gated models when the given code matches the
// configured secret. Any mismatch leaves the session unchanged.
func (s *Service) UnlockPro(ctx context.Context, id domain.UserID, code string) (*domain.UserSession, error) {
	sess, err := s.settings.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cfg.ProCode == "" || code != s.cfg.ProCode {
		return nil, domain.ErrPermissionDenied
	}

	sess.ProUnlocked = true
	if err := s.settings.UpdateSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// LastResponse returns the most recent model turn, for export as a file.
func (s *Service) LastResponse(ctx context.Context, id domain.UserID) (string, error) {
	turns, err := s.history.ListTurns(ctx, id)
	if err != nil {
		return "", err
	}
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == domain.RoleModel {
			return turns[i].Content, nil
		}
	}
	return "", domain.ErrNoLastResponse
}

func (s *Service) pushBuffer(ctx context.Context, item *domain.BufferItem) (*Outcome, error) {
	if err := s.buffer.PushBufferItem(ctx, item); err != nil {
		return nil, err
	}
	items, err := s.buffer.DrainBuffer(ctx, item.UserID)
	if err != nil {
		return nil, err
	}
	return &Outcome{Buffered: true, BufferSize: len(items)}, nil
}

func (s *Service) clearConversation(ctx context.Context, id domain.UserID) error {
	if err := s.history.ClearTurns(ctx, id); err != nil {
		return err
	}
	return s.files.ClearFileContexts(ctx, id)
}
