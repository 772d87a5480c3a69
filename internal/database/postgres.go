package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tutorlink/lesson-pipeline-backend/internal/models"
)

// PostgresStore implements Store on database/sql with the lib/pq driver
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open connection pool
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the tables if they don't exist yet
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS courses (
			id UUID PRIMARY KEY,
			tutor_id UUID NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS lessons (
			id UUID PRIMARY KEY,
			course_id UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
			position INT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			video_url TEXT NOT NULL,
			storage_key TEXT NOT NULL,
			duration_seconds INT NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			transcript TEXT,
			summary TEXT,
			notes TEXT,
			error_stage TEXT,
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lessons_course_position ON lessons(course_id, position)`,
		`CREATE TABLE IF NOT EXISTS lesson_jobs (
			lesson_id UUID PRIMARY KEY REFERENCES lessons(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) CreateCourse(ctx context.Context, tutorID uuid.UUID, input models.CreateCourseInput) (*models.Course, error) {
	course := &models.Course{
		ID:          uuid.New(),
		TutorID:     tutorID,
		Title:       input.Title,
		Description: input.Description,
	}

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO courses (id, tutor_id, title, description)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		course.ID, course.TutorID, course.Title, course.Description)
	if err := row.Scan(&course.CreatedAt, &course.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert course: %w", err)
	}

	return course, nil
}

func (s *PostgresStore) GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	course := &models.Course{}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, tutor_id, title, description, created_at, updated_at
		 FROM courses WHERE id = $1`, id)
	err := row.Scan(&course.ID, &course.TutorID, &course.Title, &course.Description,
		&course.CreatedAt, &course.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select course: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM lessons WHERE course_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("select course lessons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var lessonID uuid.UUID
		if err := rows.Scan(&lessonID); err != nil {
			return nil, fmt.Errorf("scan lesson id: %w", err)
		}
		course.LessonIDs = append(course.LessonIDs, lessonID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lesson ids: %w", err)
	}

	return course, nil
}

func (s *PostgresStore) DeleteCourse(ctx context.Context, id uuid.UUID) ([]models.VideoRef, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT video_url, storage_key FROM lessons WHERE course_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("select lesson refs: %w", err)
	}
	var refs []models.VideoRef
	for rows.Next() {
		var ref models.VideoRef
		if err := rows.Scan(&ref.URL, &ref.StorageKey); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan video ref: %w", err)
		}
		refs = append(refs, ref)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate video refs: %w", err)
	}

	// lessons and jobs go with the course via ON DELETE CASCADE
	res, err := tx.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("delete course: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return nil, models.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return refs, nil
}

func (s *PostgresStore) CreateLesson(ctx context.Context, draft models.LessonDraft) (*models.Lesson, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// lock the course row so concurrent creates can't pick the same position
	var courseID uuid.UUID
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM courses WHERE id = $1 FOR UPDATE`, draft.CourseID).Scan(&courseID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock course: %w", err)
	}

	var position int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) + 1 FROM lessons WHERE course_id = $1`, draft.CourseID).Scan(&position)
	if err != nil {
		return nil, fmt.Errorf("next position: %w", err)
	}

	lesson := &models.Lesson{
		ID:              uuid.New(),
		CourseID:        draft.CourseID,
		Order:           position,
		Title:           draft.Title,
		Description:     draft.Description,
		Video:           draft.Video,
		DurationSeconds: draft.DurationSeconds,
		Status:          models.StatusQueued,
	}

	row := tx.QueryRowContext(ctx,
		`INSERT INTO lessons (id, course_id, position, title, description, video_url, storage_key, duration_seconds, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at, updated_at`,
		lesson.ID, lesson.CourseID, lesson.Order, lesson.Title, lesson.Description,
		lesson.Video.URL, lesson.Video.StorageKey, lesson.DurationSeconds, lesson.Status)
	if err := row.Scan(&lesson.CreatedAt, &lesson.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert lesson: %w", err)
	}

	// pending job rides in the same transaction so a created lesson always
	// has a resumable job until it reaches a terminal state
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO lesson_jobs (lesson_id) VALUES ($1)`, lesson.ID); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return lesson, nil
}

const lessonColumns = `id, course_id, position, title, description, video_url, storage_key,
	duration_seconds, status, transcript, summary, notes, error_stage, error_message,
	created_at, updated_at`

func scanLesson(row interface{ Scan(dest ...any) error }) (*models.Lesson, error) {
	lesson := &models.Lesson{}
	var errStage, errMessage sql.NullString
	err := row.Scan(&lesson.ID, &lesson.CourseID, &lesson.Order, &lesson.Title, &lesson.Description,
		&lesson.Video.URL, &lesson.Video.StorageKey, &lesson.DurationSeconds, &lesson.Status,
		&lesson.Transcript, &lesson.Summary, &lesson.Notes, &errStage, &errMessage,
		&lesson.CreatedAt, &lesson.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if errStage.Valid {
		lesson.ErrorDetail = &models.ErrorDetail{
			Stage:   models.PipelineStage(errStage.String),
			Message: errMessage.String,
		}
	}
	return lesson, nil
}

func (s *PostgresStore) GetLesson(ctx context.Context, id uuid.UUID) (*models.Lesson, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+lessonColumns+` FROM lessons WHERE id = $1`, id)
	lesson, err := scanLesson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select lesson: %w", err)
	}
	return lesson, nil
}

func (s *PostgresStore) ListLessons(ctx context.Context, courseID uuid.UUID) ([]*models.Lesson, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+lessonColumns+` FROM lessons WHERE course_id = $1 ORDER BY position`, courseID)
	if err != nil {
		return nil, fmt.Errorf("select lessons: %w", err)
	}
	defer rows.Close()

	var lessons []*models.Lesson
	for rows.Next() {
		lesson, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		lessons = append(lessons, lesson)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lessons: %w", err)
	}
	return lessons, nil
}

func (s *PostgresStore) UpdateStage(ctx context.Context, id uuid.UUID, expected, next models.LessonStatus, patch models.ArtifactPatch) error {
	if !models.CanTransition(expected, next) {
		return fmt.Errorf("illegal transition %s -> %s", expected, next)
	}

	// the status guard in the WHERE clause is the whole idempotency story:
	// a re-entrant or duplicate invocation simply matches zero rows
	res, err := s.db.ExecContext(ctx,
		`UPDATE lessons SET
			status = $3,
			transcript = COALESCE($4, transcript),
			summary = COALESCE($5, summary),
			notes = COALESCE($6, notes),
			updated_at = now()
		 WHERE id = $1 AND status = $2`,
		id, expected, next, patch.Transcript, patch.Summary, patch.Notes)
	if err != nil {
		return fmt.Errorf("update stage: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM lessons WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check lesson: %w", err)
		}
		if !exists {
			return models.ErrNotFound
		}
		return models.ErrConflict
	}
	return nil
}

func (s *PostgresStore) MarkFailed(ctx context.Context, id uuid.UUID, stage models.PipelineStage, message string) error {
	// failure wins from any non-terminal state; READY/FAILED stay put
	res, err := s.db.ExecContext(ctx,
		`UPDATE lessons SET
			status = $2,
			error_stage = $3,
			error_message = $4,
			updated_at = now()
		 WHERE id = $1 AND status NOT IN ($5, $6)`,
		id, models.StatusFailed, stage, message, models.StatusReady, models.StatusFailed)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM lessons WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check lesson: %w", err)
		}
		if !exists {
			return models.ErrNotFound
		}
		// already terminal - nothing to do
	}
	return nil
}

func (s *PostgresStore) DeleteLesson(ctx context.Context, id uuid.UUID) (*models.VideoRef, error) {
	ref := &models.VideoRef{}
	row := s.db.QueryRowContext(ctx,
		`DELETE FROM lessons WHERE id = $1 RETURNING video_url, storage_key`, id)
	err := row.Scan(&ref.URL, &ref.StorageKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete lesson: %w", err)
	}
	return ref, nil
}

func (s *PostgresStore) CompleteJob(ctx context.Context, lessonID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM lesson_jobs WHERE lesson_id = $1`, lessonID); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

func (s *PostgresStore) PendingJobs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT lesson_id FROM lesson_jobs ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("select pending jobs: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return ids, nil
}
