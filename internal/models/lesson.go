package models

import (
	"time"

	"github.com/google/uuid"
)

// LessonStatus tracks where a lesson is in the processing pipeline
type LessonStatus string

const (
	StatusQueued       LessonStatus = "QUEUED"       // created, waiting for pipeline
	StatusTranscribing LessonStatus = "TRANSCRIBING" // transcription in progress
	StatusSummarizing  LessonStatus = "SUMMARIZING"  // transcript done, generating summary/notes
	StatusReady        LessonStatus = "READY"        // all artifacts produced
	StatusFailed       LessonStatus = "FAILED"       // a stage errored out
)

// PipelineStage identifies which stage produced an error
type PipelineStage string

const (
	StageTranscribing PipelineStage = "TRANSCRIBING"
	StageSummarizing  PipelineStage = "SUMMARIZING"
)

// Valid reports whether s is one of the five defined statuses
func (s LessonStatus) Valid() bool {
	switch s {
	case StatusQueued, StatusTranscribing, StatusSummarizing, StatusReady, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the status permits no further transitions
func (s LessonStatus) Terminal() bool {
	return s == StatusReady || s == StatusFailed
}

// CanTransition reports whether moving from one status to another is allowed.
// Statuses only move forward (QUEUED -> TRANSCRIBING -> SUMMARIZING -> READY),
// plus FAILED is reachable from any non-terminal state.
func CanTransition(from, to LessonStatus) bool {
	if from.Terminal() {
		return false
	}
	if to == StatusFailed {
		return true
	}
	switch from {
	case StatusQueued:
		return to == StatusTranscribing
	case StatusTranscribing:
		return to == StatusSummarizing
	case StatusSummarizing:
		return to == StatusReady
	}
	return false
}

// VideoRef points at the uploaded video object in storage
type VideoRef struct {
	URL        string `json:"url"`         // public playback URL
	StorageKey string `json:"storage_key"` // object key for deletion
}

// ErrorDetail records which stage failed and why
type ErrorDetail struct {
	Stage   PipelineStage `json:"stage"`
	Message string        `json:"message"`
}

// Lesson represents one unit of course content and its derived artifacts
type Lesson struct {
	ID       uuid.UUID `json:"id"`        // unique identifier
	CourseID uuid.UUID `json:"course_id"` // owning course

	Order int `json:"order"` // position within the course, 1-based

	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	Video           VideoRef `json:"video"`                      // set once at creation, immutable
	DurationSeconds int      `json:"duration_seconds,omitempty"` // optional, caller-supplied

	Status LessonStatus `json:"status"`

	// derived artifacts - each populated only when its stage succeeds,
	// never cleared once set
	Transcript *string `json:"transcript,omitempty"`
	Summary    *string `json:"summary,omitempty"`
	Notes      *string `json:"notes,omitempty"`

	ErrorDetail *ErrorDetail `json:"error_detail,omitempty"` // set only on FAILED

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LessonDraft is what the service hands the store at creation time.
// The store assigns id, order, status and timestamps.
type LessonDraft struct {
	CourseID        uuid.UUID
	Title           string
	Description     string
	Video           VideoRef
	DurationSeconds int
}

// ArtifactPatch carries the artifacts written alongside a stage transition
type ArtifactPatch struct {
	Transcript *string
	Summary    *string
	Notes      *string
}

// LessonStatusView is the read-only projection returned to polling clients
type LessonStatusView struct {
	ID          uuid.UUID    `json:"id"`
	Status      LessonStatus `json:"status"`
	Transcript  *string      `json:"transcript,omitempty"`
	Summary     *string      `json:"summary,omitempty"`
	Notes       *string      `json:"notes,omitempty"`
	ErrorDetail *ErrorDetail `json:"error_detail,omitempty"`
}

// StatusView builds the polling projection for this lesson
func (l *Lesson) StatusView() *LessonStatusView {
	return &LessonStatusView{
		ID:          l.ID,
		Status:      l.Status,
		Transcript:  l.Transcript,
		Summary:     l.Summary,
		Notes:       l.Notes,
		ErrorDetail: l.ErrorDetail,
	}
}
