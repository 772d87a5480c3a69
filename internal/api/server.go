package api

import (
	"encoding/json"
	"net/http"

	"github.com/tutorlink/lesson-pipeline-backend/internal/api/auth"
	"github.com/tutorlink/lesson-pipeline-backend/internal/api/handlers"
	"github.com/tutorlink/lesson-pipeline-backend/internal/config"
	"github.com/tutorlink/lesson-pipeline-backend/internal/pipeline"
	"github.com/tutorlink/lesson-pipeline-backend/internal/services"
)

// Server holds all the app components together
type Server struct {
	Router *http.ServeMux // handles routing requests

	Auth *auth.Middleware

	// handlers for different parts of the API
	LessonHandler   *handlers.LessonHandler
	CourseHandler   *handlers.CourseHandler
	PipelineHandler *handlers.PipelineHandler
}

// NewServer wires up all the dependencies and returns a ready-to-use server
func NewServer(cfg *config.Config, lessonSvc *services.LessonService, orch *pipeline.Orchestrator) *Server {
	server := &Server{
		Router:          http.NewServeMux(),
		Auth:            auth.NewMiddleware(cfg.JWTSecret),
		LessonHandler:   handlers.NewLessonHandler(lessonSvc),
		CourseHandler:   handlers.NewCourseHandler(lessonSvc),
		PipelineHandler: handlers.NewPipelineHandler(orch),
	}

	server.setupRoutes()
	return server
}

// setupRoutes maps all the endpoints to handler functions
func (s *Server) setupRoutes() {
	s.Router.HandleFunc("GET /api", s.HealthHandler)

	// course surface - just enough to own lessons
	s.Router.HandleFunc("POST /api/courses", s.Auth.RequireTutor(s.CourseHandler.Create))
	s.Router.HandleFunc("GET /api/courses/{courseId}", s.Auth.Require(s.CourseHandler.Get))
	s.Router.HandleFunc("DELETE /api/courses/{courseId}", s.Auth.RequireTutor(s.CourseHandler.Delete))

	// lesson upload + processing pipeline
	s.Router.HandleFunc("POST /api/courses/{courseId}/lessons", s.Auth.RequireTutor(s.LessonHandler.Create))
	s.Router.HandleFunc("GET /api/courses/{courseId}/lessons", s.Auth.Require(s.LessonHandler.List))
	s.Router.HandleFunc("GET /api/courses/{courseId}/lessons/{lessonId}", s.Auth.Require(s.LessonHandler.Get))
	s.Router.HandleFunc("GET /api/courses/{courseId}/lessons/{lessonId}/status", s.Auth.Require(s.LessonHandler.GetStatus))
	s.Router.HandleFunc("DELETE /api/courses/{courseId}/lessons/{lessonId}", s.Auth.RequireTutor(s.LessonHandler.Delete))

	// pipeline introspection
	s.Router.HandleFunc("GET /api/pipeline", s.Auth.Require(s.PipelineHandler.InFlight))
}

// ServeHTTP implements the http.Handler interface so the server can be
// used directly with http.ListenAndServe
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

// HealthHandler is a simple handler for the base API endpoint
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	type responseData struct {
		Message string `json:"message"`
	}

	response := responseData{Message: "Lesson pipeline backend is up"}
	jsonResponse, _ := json.Marshal(response)
	w.Header().Set("Content-Type", "application/json")
	w.Write(jsonResponse)
}
