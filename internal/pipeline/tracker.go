package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tutorlink/lesson-pipeline-backend/internal/models"
)

// Run describes one in-flight pipeline execution
type Run struct {
	LessonID  uuid.UUID           `json:"lesson_id"`
	Stage     models.LessonStatus `json:"stage"` // what the goroutine is currently doing
	StartedAt time.Time           `json:"started_at"`
}

// tracker keeps track of which lessons have a pipeline goroutine running.
// It doubles as the duplicate-invocation guard: begin refuses a second run
// for the same lesson while the first is alive.
type tracker struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]*Run
	wg   sync.WaitGroup
}

func newTracker() *tracker {
	return &tracker{
		runs: make(map[uuid.UUID]*Run),
	}
}

// begin registers a run for the lesson. Returns false if one is already
// in flight.
func (t *tracker) begin(lessonID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.runs[lessonID]; exists {
		return false
	}
	t.runs[lessonID] = &Run{
		LessonID:  lessonID,
		Stage:     models.StatusQueued,
		StartedAt: time.Now(),
	}
	t.wg.Add(1)
	return true
}

// setStage records what the run is currently doing
func (t *tracker) setStage(lessonID uuid.UUID, stage models.LessonStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if run, exists := t.runs[lessonID]; exists {
		run.Stage = stage
	}
}

// end removes the run once its goroutine finishes
func (t *tracker) end(lessonID uuid.UUID) {
	t.mu.Lock()
	delete(t.runs, lessonID)
	t.mu.Unlock()
	t.wg.Done()
}

// active returns a snapshot of everything currently running
func (t *tracker) active() []Run {
	t.mu.RLock()
	defer t.mu.RUnlock()

	runs := make([]Run, 0, len(t.runs))
	for _, run := range t.runs {
		runs = append(runs, *run)
	}
	return runs
}

// wait blocks until every in-flight run has finished
func (t *tracker) wait() {
	t.wg.Wait()
}
