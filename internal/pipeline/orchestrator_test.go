package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tutorlink/lesson-pipeline-backend/internal/clients"
	"github.com/tutorlink/lesson-pipeline-backend/internal/database"
	"github.com/tutorlink/lesson-pipeline-backend/internal/logger"
	"github.com/tutorlink/lesson-pipeline-backend/internal/models"
)

type fakeTranscriber struct {
	mu      sync.Mutex
	calls   int
	text    string
	err     error
	release chan struct{} // when set, Transcribe blocks until closed
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, videoURL string) (string, error) {
	f.mu.Lock()
	f.calls++
	release := f.release
	f.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeTranscriber) Close() error { return nil }

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeGenerator struct {
	mu      sync.Mutex
	calls   int
	summary string
	notes   string
	err     error
}

func (f *fakeGenerator) Generate(ctx context.Context, transcript string) (*clients.GeneratedContent, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return &clients.GeneratedContent{Summary: f.summary, Notes: f.notes}, nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func setup(t *testing.T) (*database.MemoryStore, *models.Lesson) {
	t.Helper()
	store := database.NewMemoryStore()
	ctx := context.Background()

	course, err := store.CreateCourse(ctx, uuid.New(), models.CreateCourseInput{Title: "Calculus"})
	if err != nil {
		t.Fatalf("create course: %v", err)
	}
	lesson, err := store.CreateLesson(ctx, models.LessonDraft{
		CourseID: course.ID,
		Title:    "Limits",
		Video:    models.VideoRef{URL: "https://cdn.test/lessons/limits.mp4", StorageKey: "lessons/limits.mp4"},
	})
	if err != nil {
		t.Fatalf("create lesson: %v", err)
	}
	return store, lesson
}

func TestPipelineHappyPath(t *testing.T) {
	store, lesson := setup(t)
	transcriber := &fakeTranscriber{text: "full transcript"}
	generator := &fakeGenerator{summary: "the summary", notes: "the notes"}
	orch := New(store, transcriber, generator, logger.NewNop())

	if !orch.Start(lesson.ID) {
		t.Fatal("start refused")
	}
	orch.Wait()

	got, err := store.GetLesson(context.Background(), lesson.ID)
	if err != nil {
		t.Fatalf("get lesson: %v", err)
	}
	if got.Status != models.StatusReady {
		t.Fatalf("status = %s, want READY", got.Status)
	}
	if got.Transcript == nil || *got.Transcript != "full transcript" {
		t.Error("transcript missing")
	}
	if got.Summary == nil || *got.Summary != "the summary" {
		t.Error("summary missing")
	}
	if got.Notes == nil || *got.Notes != "the notes" {
		t.Error("notes missing")
	}
	if got.ErrorDetail != nil {
		t.Error("unexpected error detail on success")
	}

	jobs, _ := store.PendingJobs(context.Background())
	if len(jobs) != 0 {
		t.Errorf("job not completed, %d pending", len(jobs))
	}
}

func TestPipelineTranscriptionFailure(t *testing.T) {
	store, lesson := setup(t)
	transcriber := &fakeTranscriber{err: fmt.Errorf("%w: quota", models.ErrTranscriptionUnavailable)}
	generator := &fakeGenerator{summary: "s", notes: "n"}
	orch := New(store, transcriber, generator, logger.NewNop())

	orch.Start(lesson.ID)
	orch.Wait()

	got, _ := store.GetLesson(context.Background(), lesson.ID)
	if got.Status != models.StatusFailed {
		t.Fatalf("status = %s, want FAILED", got.Status)
	}
	if got.ErrorDetail == nil || got.ErrorDetail.Stage != models.StageTranscribing {
		t.Errorf("error detail = %+v, want TRANSCRIBING stage", got.ErrorDetail)
	}
	if got.Transcript != nil || got.Summary != nil || got.Notes != nil {
		t.Error("no artifacts should exist after transcription failure")
	}
	if generator.callCount() != 0 {
		t.Error("generation must not run after transcription fails")
	}
}

func TestPipelineGenerationFailureRetainsTranscript(t *testing.T) {
	store, lesson := setup(t)
	transcriber := &fakeTranscriber{text: "partial work survives"}
	generator := &fakeGenerator{err: fmt.Errorf("%w: empty model response", models.ErrGenerationFailed)}
	orch := New(store, transcriber, generator, logger.NewNop())

	orch.Start(lesson.ID)
	orch.Wait()

	got, _ := store.GetLesson(context.Background(), lesson.ID)
	if got.Status != models.StatusFailed {
		t.Fatalf("status = %s, want FAILED", got.Status)
	}
	if got.ErrorDetail == nil || got.ErrorDetail.Stage != models.StageSummarizing {
		t.Errorf("error detail = %+v, want SUMMARIZING stage", got.ErrorDetail)
	}
	if got.Transcript == nil || *got.Transcript != "partial work survives" {
		t.Error("transcript must be retained when a later stage fails")
	}
	if got.Summary != nil || got.Notes != nil {
		t.Error("failed stage must not leave artifacts")
	}
}

func TestPipelineTerminalLessonIsNoOp(t *testing.T) {
	store, lesson := setup(t)
	transcriber := &fakeTranscriber{text: "t"}
	generator := &fakeGenerator{summary: "s", notes: "n"}
	orch := New(store, transcriber, generator, logger.NewNop())

	orch.Start(lesson.ID)
	orch.Wait()

	before, _ := store.GetLesson(context.Background(), lesson.ID)
	tCalls, gCalls := transcriber.callCount(), generator.callCount()

	// second invocation on a READY lesson
	orch.Start(lesson.ID)
	orch.Wait()

	after, _ := store.GetLesson(context.Background(), lesson.ID)
	if transcriber.callCount() != tCalls || generator.callCount() != gCalls {
		t.Error("terminal re-invocation made adapter calls")
	}
	if after.Status != before.Status || after.UpdatedAt != before.UpdatedAt {
		t.Error("terminal re-invocation mutated the record")
	}
}

func TestPipelineDuplicateStartRefused(t *testing.T) {
	store, lesson := setup(t)
	release := make(chan struct{})
	transcriber := &fakeTranscriber{text: "t", release: release}
	generator := &fakeGenerator{summary: "s", notes: "n"}
	orch := New(store, transcriber, generator, logger.NewNop())

	if !orch.Start(lesson.ID) {
		t.Fatal("first start refused")
	}
	if orch.Start(lesson.ID) {
		t.Error("second start accepted while first is in flight")
	}

	if got := len(orch.InFlight()); got != 1 {
		t.Errorf("in flight = %d, want 1", got)
	}

	close(release)
	orch.Wait()

	if transcriber.callCount() != 1 {
		t.Errorf("transcriber called %d times, want 1", transcriber.callCount())
	}
}

func TestPipelineDeleteMidFlightStopsQuietly(t *testing.T) {
	store, lesson := setup(t)
	release := make(chan struct{})
	transcriber := &fakeTranscriber{text: "t", release: release}
	generator := &fakeGenerator{summary: "s", notes: "n"}
	orch := New(store, transcriber, generator, logger.NewNop())

	orch.Start(lesson.ID)

	// wait until the run has claimed the lesson, then pull the record out
	// from under it
	deadline := time.After(2 * time.Second)
	for {
		got, err := store.GetLesson(context.Background(), lesson.ID)
		if err != nil {
			t.Fatalf("get lesson: %v", err)
		}
		if got.Status == models.StatusTranscribing {
			break
		}
		select {
		case <-deadline:
			t.Fatal("lesson never reached TRANSCRIBING")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if _, err := store.DeleteLesson(context.Background(), lesson.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	close(release)
	orch.Wait()

	// the orphaned run's write hit a missing record and gave up
	if generator.callCount() != 0 {
		t.Error("generation ran against a deleted lesson")
	}
}

func TestResumePicksUpPendingJobs(t *testing.T) {
	store, lesson := setup(t)
	ctx := context.Background()

	// simulate a crash after the transcript was persisted: the lesson sits
	// in SUMMARIZING with a pending job and no process working on it
	if err := store.UpdateStage(ctx, lesson.ID, models.StatusQueued, models.StatusTranscribing, models.ArtifactPatch{}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	transcript := "recovered transcript"
	if err := store.UpdateStage(ctx, lesson.ID, models.StatusTranscribing, models.StatusSummarizing,
		models.ArtifactPatch{Transcript: &transcript}); err != nil {
		t.Fatalf("advance: %v", err)
	}

	transcriber := &fakeTranscriber{text: "should not be used"}
	generator := &fakeGenerator{summary: "s", notes: "n"}
	orch := New(store, transcriber, generator, logger.NewNop())

	started, err := orch.Resume(ctx)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if started != 1 {
		t.Fatalf("resumed %d pipelines, want 1", started)
	}
	orch.Wait()

	got, _ := store.GetLesson(ctx, lesson.ID)
	if got.Status != models.StatusReady {
		t.Fatalf("status = %s, want READY", got.Status)
	}
	if transcriber.callCount() != 0 {
		t.Error("resume re-ran the already finished transcription stage")
	}
	if got.Transcript == nil || *got.Transcript != "recovered transcript" {
		t.Error("persisted transcript was lost on resume")
	}
}

func TestConcurrentLessonsAllFinish(t *testing.T) {
	store := database.NewMemoryStore()
	ctx := context.Background()
	course, err := store.CreateCourse(ctx, uuid.New(), models.CreateCourseInput{Title: "Physics"})
	if err != nil {
		t.Fatalf("create course: %v", err)
	}

	transcriber := &fakeTranscriber{text: "t"}
	generator := &fakeGenerator{summary: "s", notes: "n"}
	orch := New(store, transcriber, generator, logger.NewNop())

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		lesson, err := store.CreateLesson(ctx, models.LessonDraft{
			CourseID: course.ID,
			Title:    fmt.Sprintf("Lesson %d", i+1),
			Video:    models.VideoRef{URL: "https://cdn.test/v.mp4", StorageKey: "lessons/v.mp4"},
		})
		if err != nil {
			t.Fatalf("create lesson: %v", err)
		}
		ids = append(ids, lesson.ID)
		orch.Start(lesson.ID)
	}
	orch.Wait()

	// order values reflect creation sequence no matter which pipeline
	// finished first
	for i, id := range ids {
		got, err := store.GetLesson(ctx, id)
		if err != nil {
			t.Fatalf("get lesson: %v", err)
		}
		if got.Order != i+1 {
			t.Errorf("lesson %d: order = %d, want %d", i, got.Order, i+1)
		}
		if got.Status != models.StatusReady {
			t.Errorf("lesson %d: status = %s, want READY", i, got.Status)
		}
	}
}

func TestResumeErrorPropagates(t *testing.T) {
	orch := New(failingStore{}, &fakeTranscriber{}, &fakeGenerator{}, logger.NewNop())
	if _, err := orch.Resume(context.Background()); err == nil {
		t.Fatal("expected resume to surface store error")
	}
}

// failingStore errors on everything - only PendingJobs matters here
type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) CreateCourse(context.Context, uuid.UUID, models.CreateCourseInput) (*models.Course, error) {
	return nil, errStoreDown
}
func (failingStore) GetCourse(context.Context, uuid.UUID) (*models.Course, error) {
	return nil, errStoreDown
}
func (failingStore) DeleteCourse(context.Context, uuid.UUID) ([]models.VideoRef, error) {
	return nil, errStoreDown
}
func (failingStore) CreateLesson(context.Context, models.LessonDraft) (*models.Lesson, error) {
	return nil, errStoreDown
}
func (failingStore) GetLesson(context.Context, uuid.UUID) (*models.Lesson, error) {
	return nil, errStoreDown
}
func (failingStore) ListLessons(context.Context, uuid.UUID) ([]*models.Lesson, error) {
	return nil, errStoreDown
}
func (failingStore) UpdateStage(context.Context, uuid.UUID, models.LessonStatus, models.LessonStatus, models.ArtifactPatch) error {
	return errStoreDown
}
func (failingStore) MarkFailed(context.Context, uuid.UUID, models.PipelineStage, string) error {
	return errStoreDown
}
func (failingStore) DeleteLesson(context.Context, uuid.UUID) (*models.VideoRef, error) {
	return nil, errStoreDown
}
func (failingStore) CompleteJob(context.Context, uuid.UUID) error { return errStoreDown }
func (failingStore) PendingJobs(context.Context) ([]uuid.UUID, error) {
	return nil, errStoreDown
}
