package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/tutorlink/lesson-pipeline-backend/internal/pipeline"
)

// PipelineStatusResponse lists what's currently being processed
type PipelineStatusResponse struct {
	Message string         `json:"message"`
	Count   int            `json:"count"`
	Data    []pipeline.Run `json:"data"`
}

// PipelineHandler exposes a read-only view of in-flight pipeline runs
type PipelineHandler struct {
	Orchestrator *pipeline.Orchestrator
}

// NewPipelineHandler creates handler around the orchestrator
func NewPipelineHandler(orch *pipeline.Orchestrator) *PipelineHandler {
	return &PipelineHandler{Orchestrator: orch}
}

// InFlight handles GET /api/pipeline - which lessons are processing right now
func (h *PipelineHandler) InFlight(w http.ResponseWriter, r *http.Request) {
	runs := h.Orchestrator.InFlight()

	response := PipelineStatusResponse{
		Message: "In-flight pipelines",
		Count:   len(runs),
		Data:    runs,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode pipeline response: %v", err)
	}
}
