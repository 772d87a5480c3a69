package models

import "errors"

// Sentinel errors shared across layers. Handlers map these to HTTP codes,
// the orchestrator maps adapter failures onto the lesson record.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")

	// ErrConflict means a guarded status transition found a different
	// current status than expected. Internal - never surfaced to callers.
	ErrConflict = errors.New("status precondition failed")

	ErrStorageUnavailable       = errors.New("storage unavailable")
	ErrTranscriptionUnavailable = errors.New("transcription unavailable")
	ErrGenerationFailed         = errors.New("content generation failed")
)

// ValidationError rejects bad upload input before any network call
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
