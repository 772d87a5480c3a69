package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tutorlink/lesson-pipeline-backend/internal/models"
)

// MemoryStore is an in-memory Store with the same transition semantics as
// postgres. Used by the test suite and for local development without a
// database.
type MemoryStore struct {
	mu      sync.Mutex
	courses map[uuid.UUID]*models.Course
	lessons map[uuid.UUID]*models.Lesson
	jobs    map[uuid.UUID]time.Time
}

// NewMemoryStore returns an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		courses: make(map[uuid.UUID]*models.Course),
		lessons: make(map[uuid.UUID]*models.Lesson),
		jobs:    make(map[uuid.UUID]time.Time),
	}
}

func (s *MemoryStore) CreateCourse(ctx context.Context, tutorID uuid.UUID, input models.CreateCourseInput) (*models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	course := &models.Course{
		ID:          uuid.New(),
		TutorID:     tutorID,
		Title:       input.Title,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.courses[course.ID] = course

	out := *course
	return &out, nil
}

func (s *MemoryStore) GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	course, ok := s.courses[id]
	if !ok {
		return nil, models.ErrNotFound
	}

	out := *course
	out.LessonIDs = s.lessonIDsLocked(id)
	return &out, nil
}

func (s *MemoryStore) DeleteCourse(ctx context.Context, id uuid.UUID) ([]models.VideoRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.courses[id]; !ok {
		return nil, models.ErrNotFound
	}

	var refs []models.VideoRef
	for lessonID, lesson := range s.lessons {
		if lesson.CourseID == id {
			refs = append(refs, lesson.Video)
			delete(s.lessons, lessonID)
			delete(s.jobs, lessonID)
		}
	}
	delete(s.courses, id)
	return refs, nil
}

func (s *MemoryStore) CreateLesson(ctx context.Context, draft models.LessonDraft) (*models.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.courses[draft.CourseID]; !ok {
		return nil, models.ErrNotFound
	}

	// order is assigned under the lock, so sequential creates for one
	// course always get 1, 2, 3 ... regardless of pipeline timing
	position := 1
	for _, lesson := range s.lessons {
		if lesson.CourseID == draft.CourseID {
			position++
		}
	}

	now := time.Now()
	lesson := &models.Lesson{
		ID:              uuid.New(),
		CourseID:        draft.CourseID,
		Order:           position,
		Title:           draft.Title,
		Description:     draft.Description,
		Video:           draft.Video,
		DurationSeconds: draft.DurationSeconds,
		Status:          models.StatusQueued,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.lessons[lesson.ID] = lesson
	s.jobs[lesson.ID] = now

	out := *lesson
	return &out, nil
}

func (s *MemoryStore) GetLesson(ctx context.Context, id uuid.UUID) (*models.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lesson, ok := s.lessons[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := *lesson
	return &out, nil
}

func (s *MemoryStore) ListLessons(ctx context.Context, courseID uuid.UUID) ([]*models.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lessons []*models.Lesson
	for _, lesson := range s.lessons {
		if lesson.CourseID == courseID {
			out := *lesson
			lessons = append(lessons, &out)
		}
	}
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].Order < lessons[j].Order })
	return lessons, nil
}

func (s *MemoryStore) UpdateStage(ctx context.Context, id uuid.UUID, expected, next models.LessonStatus, patch models.ArtifactPatch) error {
	if !models.CanTransition(expected, next) {
		return fmt.Errorf("illegal transition %s -> %s", expected, next)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lesson, ok := s.lessons[id]
	if !ok {
		return models.ErrNotFound
	}
	if lesson.Status != expected {
		return models.ErrConflict
	}

	lesson.Status = next
	if patch.Transcript != nil {
		lesson.Transcript = patch.Transcript
	}
	if patch.Summary != nil {
		lesson.Summary = patch.Summary
	}
	if patch.Notes != nil {
		lesson.Notes = patch.Notes
	}
	lesson.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) MarkFailed(ctx context.Context, id uuid.UUID, stage models.PipelineStage, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lesson, ok := s.lessons[id]
	if !ok {
		return models.ErrNotFound
	}
	if lesson.Status.Terminal() {
		// nothing to do
		return nil
	}

	lesson.Status = models.StatusFailed
	lesson.ErrorDetail = &models.ErrorDetail{Stage: stage, Message: message}
	lesson.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) DeleteLesson(ctx context.Context, id uuid.UUID) (*models.VideoRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lesson, ok := s.lessons[id]
	if !ok {
		return nil, models.ErrNotFound
	}

	ref := lesson.Video
	delete(s.lessons, id)
	delete(s.jobs, id)
	return &ref, nil
}

func (s *MemoryStore) CompleteJob(ctx context.Context, lessonID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.jobs, lessonID)
	return nil
}

func (s *MemoryStore) PendingJobs(ctx context.Context) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type job struct {
		id uuid.UUID
		at time.Time
	}
	var pending []job
	for id, at := range s.jobs {
		pending = append(pending, job{id, at})
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].at.Before(pending[j].at) })

	ids := make([]uuid.UUID, 0, len(pending))
	for _, j := range pending {
		ids = append(ids, j.id)
	}
	return ids, nil
}

func (s *MemoryStore) lessonIDsLocked(courseID uuid.UUID) []uuid.UUID {
	var lessons []*models.Lesson
	for _, lesson := range s.lessons {
		if lesson.CourseID == courseID {
			lessons = append(lessons, lesson)
		}
	}
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].Order < lessons[j].Order })

	ids := make([]uuid.UUID, 0, len(lessons))
	for _, lesson := range lessons {
		ids = append(ids, lesson.ID)
	}
	return ids
}
