package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/tutorlink/lesson-pipeline-backend/internal/api/auth"
	"github.com/tutorlink/lesson-pipeline-backend/internal/models"
	"github.com/tutorlink/lesson-pipeline-backend/internal/services"
)

// Response structs for lesson endpoints
type LessonResponse struct {
	Message string         `json:"message"`
	Data    *models.Lesson `json:"data"`
}

type LessonListResponse struct {
	Message string           `json:"message"`
	Data    []*models.Lesson `json:"data"`
}

type LessonStatusResponse struct {
	Message string                   `json:"message"`
	Data    *models.LessonStatusView `json:"data"`
}

// LessonHandler processes lesson HTTP requests
type LessonHandler struct {
	Service *services.LessonService
}

// NewLessonHandler creates handler with injected service
func NewLessonHandler(service *services.LessonService) *LessonHandler {
	return &LessonHandler{Service: service}
}

// multipart form memory threshold - bigger parts spill to temp files
const maxFormMemory = 32 << 20

// Create handles POST /api/courses/{courseId}/lessons - uploads the video
// synchronously, creates the record QUEUED and schedules processing
func (h *LessonHandler) Create(w http.ResponseWriter, r *http.Request) {
	courseID, err := uuid.Parse(r.PathValue("courseId"))
	if err != nil {
		SendErrorResponse(w, "Invalid course id", http.StatusBadRequest, "bad course id", err)
		return
	}

	// cap the whole request body; a tiny slack on top of the video limit
	// leaves room for the other form fields
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxVideoSize+1<<20)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		SendErrorResponse(w, "Invalid multipart form or file too large", http.StatusBadRequest, "parse multipart", err)
		return
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		SendErrorResponse(w, "A video file is required", http.StatusBadRequest, "missing video part", err)
		return
	}
	defer file.Close()

	duration := 0
	if v := r.FormValue("duration"); v != "" {
		duration, err = strconv.Atoi(v)
		if err != nil {
			SendErrorResponse(w, "Invalid duration", http.StatusBadRequest, "bad duration", err)
			return
		}
	}

	lesson, err := h.Service.CreateLesson(r.Context(), services.CreateLessonInput{
		CourseID:        courseID,
		ActorID:         auth.UserID(r),
		Title:           r.FormValue("title"),
		Description:     r.FormValue("description"),
		DurationSeconds: duration,
		Video:           file,
		ContentType:     header.Header.Get("Content-Type"),
		SizeBytes:       header.Size,
	})
	if err != nil {
		SendServiceError(w, err, "create lesson")
		return
	}

	SendJSON(w, http.StatusCreated, "Lesson created, processing queued", lesson)
}

// List handles GET /api/courses/{courseId}/lessons
func (h *LessonHandler) List(w http.ResponseWriter, r *http.Request) {
	courseID, err := uuid.Parse(r.PathValue("courseId"))
	if err != nil {
		SendErrorResponse(w, "Invalid course id", http.StatusBadRequest, "bad course id", err)
		return
	}

	lessons, err := h.Service.ListLessons(r.Context(), courseID)
	if err != nil {
		SendServiceError(w, err, "list lessons")
		return
	}

	SendJSON(w, http.StatusOK, "Lessons retrieved successfully", lessons)
}

// Get handles GET /api/courses/{courseId}/lessons/{lessonId}
func (h *LessonHandler) Get(w http.ResponseWriter, r *http.Request) {
	courseID, lessonID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	lesson, err := h.Service.GetLesson(r.Context(), courseID, lessonID)
	if err != nil {
		SendServiceError(w, err, "get lesson")
		return
	}

	SendJSON(w, http.StatusOK, "Lesson retrieved successfully", lesson)
}

// GetStatus handles GET /api/courses/{courseId}/lessons/{lessonId}/status -
// the polling endpoint clients hit until the lesson is READY or FAILED
func (h *LessonHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	courseID, lessonID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	view, err := h.Service.GetStatus(r.Context(), courseID, lessonID)
	if err != nil {
		SendServiceError(w, err, "get lesson status")
		return
	}

	SendJSON(w, http.StatusOK, "Status retrieved successfully", view)
}

// Delete handles DELETE /api/courses/{courseId}/lessons/{lessonId}
func (h *LessonHandler) Delete(w http.ResponseWriter, r *http.Request) {
	courseID, lessonID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	err := h.Service.DeleteLesson(r.Context(), courseID, lessonID, auth.UserID(r))
	if err != nil {
		SendServiceError(w, err, "delete lesson")
		return
	}

	SendJSON(w, http.StatusOK, "Lesson deleted successfully", nil)
}

func (h *LessonHandler) pathIDs(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	courseID, err := uuid.Parse(r.PathValue("courseId"))
	if err != nil {
		SendErrorResponse(w, "Invalid course id", http.StatusBadRequest, "bad course id", err)
		return uuid.Nil, uuid.Nil, false
	}
	lessonID, err := uuid.Parse(r.PathValue("lessonId"))
	if err != nil {
		SendErrorResponse(w, "Invalid lesson id", http.StatusBadRequest, "bad lesson id", err)
		return uuid.Nil, uuid.Nil, false
	}
	return courseID, lessonID, true
}
