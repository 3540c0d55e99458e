package domain

import (
	"errors"
	"fmt"
)

// Failure taxonomy. Each of these is caught at the dispatch boundary and
// turned into a short user-visible message; none propagates to the
// transport layer.
var (
	// ErrPermissionDenied covers pro-gated model selection without unlock
	// and unlock-code mismatches. State is left unchanged.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnsupportedFileType rejects a document before storage.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrFileTooLarge rejects an oversized upload before storage.
	ErrFileTooLarge = errors.New("file too large")

	// ErrEmptyBuffer is returned by a flush with nothing to send.
	ErrEmptyBuffer = errors.New("draft buffer is empty")

	// ErrNoLastResponse means no model turn exists to export as a file.
	ErrNoLastResponse = errors.New("no stored model response")

	// ErrNotManualMode rejects a flush outside manual delivery mode.
	ErrNotManualMode = errors.New("not in manual mode")
)

// BackendError wraps a failed or errored generative call. The draft
// buffer is preserved when the triggering path was a flush.
type BackendError struct {
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend call failed: %v", e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
