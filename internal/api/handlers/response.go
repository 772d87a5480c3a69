package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/tutorlink/lesson-pipeline-backend/internal/models"
)

// Common response structures for consistency across all handlers
type ErrorResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// SendErrorResponse sends a consistent error response with logging
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, logMessage string, err error) {
	if err != nil {
		log.Printf("%s: %v", logMessage, err)
	} else {
		log.Printf("%s", logMessage)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Message: message,
		Success: false,
	}

	if encodeErr := json.NewEncoder(w).Encode(response); encodeErr != nil {
		log.Printf("Failed to encode error response: %v", encodeErr)
	}
}

// SendJSON sends a success payload with the given status code
func SendJSON(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := SuccessResponse{
		Message: message,
		Success: true,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// SendServiceError maps service errors onto the documented status codes:
// validation 400, forbidden 403, not found 404, storage 502, rest 500.
func SendServiceError(w http.ResponseWriter, err error, logMessage string) {
	var verr *models.ValidationError

	switch {
	case errors.As(err, &verr):
		SendErrorResponse(w, verr.Message, http.StatusBadRequest, logMessage, err)
	case errors.Is(err, models.ErrForbidden):
		SendErrorResponse(w, "You don't own this course", http.StatusForbidden, logMessage, err)
	case errors.Is(err, models.ErrNotFound):
		SendErrorResponse(w, "Not found", http.StatusNotFound, logMessage, err)
	case errors.Is(err, models.ErrStorageUnavailable):
		SendErrorResponse(w, "Media storage is unavailable, try again later", http.StatusBadGateway, logMessage, err)
	default:
		SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, logMessage, err)
	}
}
