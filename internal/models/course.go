package models

import (
	"time"

	"github.com/google/uuid"
)

// Course is the minimal owning aggregate the pipeline needs: identity,
// the tutor who owns it, and the ordered list of lesson ids. The rest of
// the course domain (enrollment, payments, chat) lives elsewhere.
type Course struct {
	ID      uuid.UUID `json:"id"`
	TutorID uuid.UUID `json:"tutor_id"` // only the owning tutor may add/delete lessons

	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	LessonIDs []uuid.UUID `json:"lesson_ids,omitempty"` // ordered by lesson position

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateCourseInput is what we expect when creating a new course
type CreateCourseInput struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}
