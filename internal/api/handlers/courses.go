package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/tutorlink/lesson-pipeline-backend/internal/api/auth"
	"github.com/tutorlink/lesson-pipeline-backend/internal/models"
	"github.com/tutorlink/lesson-pipeline-backend/internal/services"
)

// CourseHandler covers the minimal course surface the pipeline needs:
// something to own lessons, check ownership against, and cascade-delete.
type CourseHandler struct {
	Service *services.LessonService
}

// NewCourseHandler creates handler with injected service
func NewCourseHandler(service *services.LessonService) *CourseHandler {
	return &CourseHandler{Service: service}
}

// Create handles POST /api/courses
func (h *CourseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input models.CreateCourseInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, "decode course input", err)
		return
	}

	course, err := h.Service.CreateCourse(r.Context(), auth.UserID(r), input)
	if err != nil {
		SendServiceError(w, err, "create course")
		return
	}

	SendJSON(w, http.StatusCreated, "Course created successfully", course)
}

// Get handles GET /api/courses/{courseId} - includes ordered lesson ids
func (h *CourseHandler) Get(w http.ResponseWriter, r *http.Request) {
	courseID, err := uuid.Parse(r.PathValue("courseId"))
	if err != nil {
		SendErrorResponse(w, "Invalid course id", http.StatusBadRequest, "bad course id", err)
		return
	}

	course, err := h.Service.GetCourse(r.Context(), courseID)
	if err != nil {
		SendServiceError(w, err, "get course")
		return
	}

	SendJSON(w, http.StatusOK, "Course retrieved successfully", course)
}

// Delete handles DELETE /api/courses/{courseId} - removes the course, its
// lessons and their stored videos
func (h *CourseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	courseID, err := uuid.Parse(r.PathValue("courseId"))
	if err != nil {
		SendErrorResponse(w, "Invalid course id", http.StatusBadRequest, "bad course id", err)
		return
	}

	if err := h.Service.DeleteCourse(r.Context(), courseID, auth.UserID(r)); err != nil {
		SendServiceError(w, err, "delete course")
		return
	}

	SendJSON(w, http.StatusOK, "Course deleted successfully", nil)
}
