package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tutorlink/lesson-pipeline-backend/internal/clients"
	"github.com/tutorlink/lesson-pipeline-backend/internal/database"
	"github.com/tutorlink/lesson-pipeline-backend/internal/logger"
	"github.com/tutorlink/lesson-pipeline-backend/internal/models"
)

// Per-stage timeouts. A stalled adapter call fails the stage instead of
// wedging the lesson forever.
const (
	defaultTranscribeTimeout = 10 * time.Minute
	defaultGenerateTimeout   = 5 * time.Minute
)

// Orchestrator drives each lesson through its processing state machine:
// QUEUED -> TRANSCRIBING -> SUMMARIZING -> READY, or FAILED from any
// non-terminal state. One goroutine per lesson, stages strictly in
// sequence, every write guarded by the expected current status.
type Orchestrator struct {
	store       database.Store
	transcriber clients.Transcriber
	generator   clients.Generator
	log         *logger.Logger
	tracker     *tracker

	transcribeTimeout time.Duration
	generateTimeout   time.Duration
}

// New wires up an orchestrator with default stage timeouts
func New(store database.Store, transcriber clients.Transcriber, generator clients.Generator, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		store:             store,
		transcriber:       transcriber,
		generator:         generator,
		log:               log.With("component", "pipeline"),
		tracker:           newTracker(),
		transcribeTimeout: defaultTranscribeTimeout,
		generateTimeout:   defaultGenerateTimeout,
	}
}

// Start kicks off the pipeline for a lesson as an independent goroutine.
// The caller's request never waits on it. Returns false if a run for this
// lesson is already in flight.
func (o *Orchestrator) Start(lessonID uuid.UUID) bool {
	if !o.tracker.begin(lessonID) {
		return false
	}

	go func() {
		defer o.tracker.end(lessonID)
		o.run(lessonID)
	}()
	return true
}

// Resume re-drives every lesson that still has a pending job - called once
// at startup so a restart picks up pipelines the previous process never
// finished. Each lesson continues from its persisted status.
func (o *Orchestrator) Resume(ctx context.Context) (int, error) {
	ids, err := o.store.PendingJobs(ctx)
	if err != nil {
		return 0, err
	}

	started := 0
	for _, id := range ids {
		if o.Start(id) {
			started++
		}
	}
	if started > 0 {
		o.log.Info("resumed pending pipelines", "count", started)
	}
	return started, nil
}

// InFlight returns a snapshot of currently running pipelines
func (o *Orchestrator) InFlight() []Run {
	return o.tracker.active()
}

// Wait blocks until all in-flight pipelines finish. For shutdown and tests.
func (o *Orchestrator) Wait() {
	o.tracker.wait()
}

func (o *Orchestrator) run(lessonID uuid.UUID) {
	ctx := context.Background()
	log := o.log.With("lesson_id", lessonID)

	lesson, err := o.store.GetLesson(ctx, lessonID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// deleted before (or while) we got to it
			_ = o.store.CompleteJob(ctx, lessonID)
			return
		}
		log.Error("load lesson", "error", err)
		return
	}

	if lesson.Status.Terminal() {
		// re-invocation on a finished lesson: no adapter calls, no writes
		_ = o.store.CompleteJob(ctx, lessonID)
		return
	}

	status := lesson.Status

	// claim the lesson before doing any work so pollers see TRANSCRIBING
	if status == models.StatusQueued {
		err := o.store.UpdateStage(ctx, lessonID, models.StatusQueued, models.StatusTranscribing, models.ArtifactPatch{})
		if err != nil {
			// conflict means another run already owns it
			log.Warn("claim lesson", "error", err)
			return
		}
		status = models.StatusTranscribing
	}

	// carry the transcript forward when resuming a half-done lesson
	transcript := ""
	if lesson.Transcript != nil {
		transcript = *lesson.Transcript
	}

	if status == models.StatusTranscribing {
		o.tracker.setStage(lessonID, models.StatusTranscribing)
		log.Info("transcribing", "video_url", lesson.Video.URL)

		tctx, cancel := context.WithTimeout(ctx, o.transcribeTimeout)
		text, err := o.transcriber.Transcribe(tctx, lesson.Video.URL)
		cancel()
		if err != nil {
			o.fail(ctx, log, lessonID, models.StageTranscribing, err)
			return
		}

		transcript = text
		err = o.store.UpdateStage(ctx, lessonID, models.StatusTranscribing, models.StatusSummarizing,
			models.ArtifactPatch{Transcript: &text})
		if err != nil {
			// record gone or advanced elsewhere - this run's work is moot
			log.Warn("persist transcript", "error", err)
			return
		}
		status = models.StatusSummarizing
	}

	if status == models.StatusSummarizing {
		o.tracker.setStage(lessonID, models.StatusSummarizing)
		log.Info("generating summary and notes")

		gctx, cancel := context.WithTimeout(ctx, o.generateTimeout)
		content, err := o.generator.Generate(gctx, transcript)
		cancel()
		if err != nil {
			o.fail(ctx, log, lessonID, models.StageSummarizing, err)
			return
		}

		err = o.store.UpdateStage(ctx, lessonID, models.StatusSummarizing, models.StatusReady,
			models.ArtifactPatch{Summary: &content.Summary, Notes: &content.Notes})
		if err != nil {
			log.Warn("persist summary", "error", err)
			return
		}
	}

	_ = o.store.CompleteJob(ctx, lessonID)
	log.Info("pipeline finished", "status", models.StatusReady)
}

// fail records the failing stage on the lesson and stops the pipeline.
// No stage after a failure is attempted and no retry happens here.
func (o *Orchestrator) fail(ctx context.Context, log *logger.Logger, lessonID uuid.UUID, stage models.PipelineStage, cause error) {
	log.Error("stage failed", "stage", stage, "error", cause)

	if err := o.store.MarkFailed(ctx, lessonID, stage, cause.Error()); err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			log.Error("mark failed", "error", err)
		}
		return
	}
	_ = o.store.CompleteJob(ctx, lessonID)
}
