package services

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/tutorlink/lesson-pipeline-backend/internal/clients"
	"github.com/tutorlink/lesson-pipeline-backend/internal/database"
	"github.com/tutorlink/lesson-pipeline-backend/internal/logger"
	"github.com/tutorlink/lesson-pipeline-backend/internal/models"
	"github.com/tutorlink/lesson-pipeline-backend/internal/pipeline"
)

// CreateLessonInput is everything needed to create a lesson with its video
type CreateLessonInput struct {
	CourseID        uuid.UUID
	ActorID         uuid.UUID // authenticated caller, must own the course
	Title           string
	Description     string
	DurationSeconds int

	Video       io.Reader
	ContentType string
	SizeBytes   int64
}

// LessonService handles lesson business logic: creation with upload,
// status polling, listing, and deletion with storage cleanup.
type LessonService struct {
	Store        database.Store
	Ingest       *IngestService
	Media        clients.MediaStore
	Orchestrator *pipeline.Orchestrator
	log          *logger.Logger
}

// NewLessonService creates service with dependencies
func NewLessonService(store database.Store, ingest *IngestService, media clients.MediaStore, orch *pipeline.Orchestrator, log *logger.Logger) *LessonService {
	return &LessonService{
		Store:        store,
		Ingest:       ingest,
		Media:        media,
		Orchestrator: orch,
		log:          log.With("service", "lessons"),
	}
}

// CreateLesson validates ownership, uploads the video, persists the record
// with status QUEUED and schedules the processing pipeline. The response
// goes back before any processing starts.
func (s *LessonService) CreateLesson(ctx context.Context, input CreateLessonInput) (*models.Lesson, error) {
	if input.Title == "" {
		return nil, &models.ValidationError{Message: "lesson title is required"}
	}

	course, err := s.Store.GetCourse(ctx, input.CourseID)
	if err != nil {
		return nil, err
	}
	if course.TutorID != input.ActorID {
		return nil, models.ErrForbidden
	}

	// synchronous part: validate + upload, fails before any record exists
	ref, err := s.Ingest.Ingest(ctx, input.Video, input.ContentType, input.SizeBytes)
	if err != nil {
		return nil, err
	}

	lesson, err := s.Store.CreateLesson(ctx, models.LessonDraft{
		CourseID:        input.CourseID,
		Title:           input.Title,
		Description:     input.Description,
		Video:           *ref,
		DurationSeconds: input.DurationSeconds,
	})
	if err != nil {
		return nil, err
	}

	// fire and track - the caller never waits on this
	s.Orchestrator.Start(lesson.ID)

	s.log.Info("lesson created", "lesson_id", lesson.ID, "course_id", lesson.CourseID, "order", lesson.Order)
	return lesson, nil
}

// GetLesson returns full lesson detail, scoped to its course
func (s *LessonService) GetLesson(ctx context.Context, courseID, lessonID uuid.UUID) (*models.Lesson, error) {
	lesson, err := s.Store.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.CourseID != courseID {
		return nil, models.ErrNotFound
	}
	return lesson, nil
}

// ListLessons returns a course's lessons in order
func (s *LessonService) ListLessons(ctx context.Context, courseID uuid.UUID) ([]*models.Lesson, error) {
	if _, err := s.Store.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	return s.Store.ListLessons(ctx, courseID)
}

// GetStatus returns the polling projection. Read-only, safe to hammer.
func (s *LessonService) GetStatus(ctx context.Context, courseID, lessonID uuid.UUID) (*models.LessonStatusView, error) {
	lesson, err := s.GetLesson(ctx, courseID, lessonID)
	if err != nil {
		return nil, err
	}
	return lesson.StatusView(), nil
}

// DeleteLesson removes the record and requests deletion of the stored
// video. An in-flight pipeline for it will hit the guarded update against
// a missing record and stop on its own.
func (s *LessonService) DeleteLesson(ctx context.Context, courseID, lessonID uuid.UUID, actorID uuid.UUID) error {
	course, err := s.Store.GetCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if course.TutorID != actorID {
		return models.ErrForbidden
	}

	lesson, err := s.Store.GetLesson(ctx, lessonID)
	if err != nil {
		return err
	}
	if lesson.CourseID != courseID {
		return models.ErrNotFound
	}

	ref, err := s.Store.DeleteLesson(ctx, lessonID)
	if err != nil {
		return err
	}

	// best effort - the record is gone either way
	if err := s.Media.Delete(ctx, ref.StorageKey); err != nil {
		s.log.Warn("storage delete failed", "key", ref.StorageKey, "error", err)
	}

	s.log.Info("lesson deleted", "lesson_id", lessonID, "course_id", courseID)
	return nil
}

// CreateCourse makes the minimal owning record lessons attach to
func (s *LessonService) CreateCourse(ctx context.Context, tutorID uuid.UUID, input models.CreateCourseInput) (*models.Course, error) {
	if input.Title == "" {
		return nil, &models.ValidationError{Message: "course title is required"}
	}
	return s.Store.CreateCourse(ctx, tutorID, input)
}

// GetCourse returns a course with its ordered lesson ids
func (s *LessonService) GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	return s.Store.GetCourse(ctx, id)
}

// DeleteCourse cascades: lesson records go with the course, then every
// stored video object is deleted.
func (s *LessonService) DeleteCourse(ctx context.Context, courseID, actorID uuid.UUID) error {
	course, err := s.Store.GetCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if course.TutorID != actorID {
		return models.ErrForbidden
	}

	refs, err := s.Store.DeleteCourse(ctx, courseID)
	if err != nil {
		return err
	}

	for _, ref := range refs {
		if err := s.Media.Delete(ctx, ref.StorageKey); err != nil {
			s.log.Warn("storage delete failed", "key", ref.StorageKey, "error", err)
		}
	}

	s.log.Info("course deleted", "course_id", courseID, "lessons_removed", len(refs))
	return nil
}
