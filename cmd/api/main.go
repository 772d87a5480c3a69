package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	_ "github.com/lib/pq"

	"github.com/tutorlink/lesson-pipeline-backend/internal/api"
	"github.com/tutorlink/lesson-pipeline-backend/internal/clients"
	"github.com/tutorlink/lesson-pipeline-backend/internal/config"
	"github.com/tutorlink/lesson-pipeline-backend/internal/database"
	"github.com/tutorlink/lesson-pipeline-backend/internal/logger"
	"github.com/tutorlink/lesson-pipeline-backend/internal/pipeline"
	"github.com/tutorlink/lesson-pipeline-backend/internal/services"
)

// main entry point - builds the config once, wires everything explicitly
// and starts the server. No package-level clients anywhere.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Printf("Failed to build logger: %v\n", err)
		return
	}
	defer log.Sync()

	ctx := context.Background()

	// connect to postgres
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	store := database.NewPostgresStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal("Failed to ensure schema", "error", err)
	}

	// external adapters
	media, err := clients.NewGCSStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to create media store", "error", err)
	}

	transcriber, err := clients.NewSpeechTranscriber(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to create transcriber", "error", err)
	}
	defer transcriber.Close()

	generator, err := clients.NewGeminiGenerator(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to create generator", "error", err)
	}

	// wire everything together
	orch := pipeline.New(store, transcriber, generator, log)
	ingestSvc := services.NewIngestService(media, log)
	lessonSvc := services.NewLessonService(store, ingestSvc, media, orch, log)

	server := api.NewServer(cfg, lessonSvc, orch)
	handler := server.EnableCORS(server) // needed for frontend requests

	// pick up pipelines a previous process never finished
	if _, err := orch.Resume(ctx); err != nil {
		log.Error("Failed to resume pending pipelines", "error", err)
	}

	log.Info("Starting server", "addr", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		log.Fatal("Could not start server", "error", err)
	}
}
