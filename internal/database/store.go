package database

import (
	"context"

	"github.com/google/uuid"

	"github.com/tutorlink/lesson-pipeline-backend/internal/models"
)

// Store is the persistence boundary for courses, lessons and the pending
// job queue. Two implementations exist: postgres for real deployments and
// an in-memory store for tests and local development.
//
// The lesson record is the only shared mutable resource in the pipeline;
// UpdateStage and MarkFailed are the concurrency control boundary, so both
// must be atomic check-and-write operations.
type Store interface {
	CreateCourse(ctx context.Context, tutorID uuid.UUID, input models.CreateCourseInput) (*models.Course, error)
	GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error)
	// DeleteCourse removes the course and all its lessons, returning the
	// video refs so the caller can clean up storage objects.
	DeleteCourse(ctx context.Context, id uuid.UUID) ([]models.VideoRef, error)

	// CreateLesson assigns id, order (count of existing lessons + 1) and
	// status QUEUED, and enqueues a pending pipeline job in the same
	// atomic write.
	CreateLesson(ctx context.Context, draft models.LessonDraft) (*models.Lesson, error)
	GetLesson(ctx context.Context, id uuid.UUID) (*models.Lesson, error)
	ListLessons(ctx context.Context, courseID uuid.UUID) ([]*models.Lesson, error)

	// UpdateStage applies a guarded transition: the write happens only if
	// the lesson's current status equals expected, otherwise ErrConflict
	// and nothing is written. This is what makes orchestrator writes
	// idempotent against duplicate invocations.
	UpdateStage(ctx context.Context, id uuid.UUID, expected, next models.LessonStatus, patch models.ArtifactPatch) error

	// MarkFailed moves any non-terminal lesson to FAILED with error
	// detail. A lesson already READY or FAILED is left untouched.
	MarkFailed(ctx context.Context, id uuid.UUID, stage models.PipelineStage, message string) error

	// DeleteLesson removes the record and returns the video ref so the
	// caller can request storage deletion.
	DeleteLesson(ctx context.Context, id uuid.UUID) (*models.VideoRef, error)

	// CompleteJob clears a lesson's pending job once it reached a
	// terminal state. PendingJobs lists lessons whose pipeline never
	// finished - used to resume after a restart.
	CompleteJob(ctx context.Context, lessonID uuid.UUID) error
	PendingJobs(ctx context.Context) ([]uuid.UUID, error)
}
