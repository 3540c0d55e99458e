package domain

import "context"

// SettingsStore defines per-user session persistence. GetOrCreate never
// fails for a missing user: it creates a session with defaults instead.
// Validation of model switches (allow-list, pro gating) is the
// orchestrator's responsibility, not the store's.
type SettingsStore interface {
	GetOrCreate(ctx context.Context, id UserID) (*UserSession, error)
	UpdateSession(ctx context.Context, session *UserSession) error
}

// HistoryStore is the append-only log of conversation turns per user.
// AppendTurns persists all given turns atomically so a user turn is never
// stored without its model counterpart. ListTurns returns turns in
// ascending timestamp order.
type HistoryStore interface {
	AppendTurns(ctx context.Context, turns ...*Turn) error
	ListTurns(ctx context.Context, id UserID) ([]*Turn, error)
	ClearTurns(ctx context.Context, id UserID) error
}

// FileContextStore keeps documents staged for the next immediate request.
// ListFileContexts returns items in insertion order. Duplicates are
// tolerated; the first-N staging policy is enforced by the orchestrator.
type FileContextStore interface {
	AddFileContext(ctx context.Context, item *FileContextItem) error
	ListFileContexts(ctx context.Context, id UserID) ([]*FileContextItem, error)
	ClearFileContexts(ctx context.Context, id UserID) error
}

// BufferStore holds manual-mode drafts. DrainBuffer returns items in FIFO
// order and does NOT clear; the caller clears only after a successful
// downstream send so buffered content survives transient backend failures.
type BufferStore interface {
	PushBufferItem(ctx context.Context, item *BufferItem) error
	DrainBuffer(ctx context.Context, id UserID) ([]*BufferItem, error)
	ClearBuffer(ctx context.Context, id UserID) error
}

// Part is one unit of a model request: either text or inline binary data.
type Part struct {
	Text     string
	Data     []byte
	MIMEType string
}

// Image is binary image content returned by the model.
type Image struct {
	MIMEType string
	Data     []byte
}

// Source is one grounding citation from a search-augmented response.
type Source struct {
	Title string
	URI   string
}

// GenerateRequest carries everything the backend needs for one chat call.
// History is replayed in order before Parts; the orchestrator passes an
// empty History for the image-generation model.
type GenerateRequest struct {
	Model       string
	History     []*Turn
	Parts       []Part
	UseSearch   bool
	ImageOutput bool
}

// GenerateResult is the decoded backend response.
type GenerateResult struct {
	Text    string
	Images  []Image
	Sources []Source
}

// OneShotRequest is a stateless single-command call used by quick tools.
type OneShotRequest struct {
	Model             string
	SystemInstruction string
	UserText          string
	ThinkingBudget    *int32
}

// LLMClient defines how the core interacts with the generative backend.
type LLMClient interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
	GenerateOneShot(ctx context.Context, req OneShotRequest) (string, error)
}

// AttachmentDownloader resolves platform file references to bytes.
type AttachmentDownloader interface {
	DownloadAttachment(ctx context.Context, ref string) ([]byte, error)
}
