package model

import (
	"time"

	"github.com/google/uuid"
)

// StudentStatus is the computed access status of an exam for one student.
type StudentStatus string

const (
	StudentStatusUpcoming     StudentStatus = "upcoming"
	StudentStatusAvailable    StudentStatus = "available"
	StudentStatusExpired      StudentStatus = "expired"
	StudentStatusSubmitted    StudentStatus = "submitted"
	StudentStatusAccessDenied StudentStatus = "access-denied"
)

// Exam represents an exam entity. Questions are loaded alongside the exam
// for single-exam reads; list reads omit them.
type Exam struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Instructions    string     `json:"instructions"`
	Subject         string     `json:"subject"`
	Class           string     `json:"class"`
	TeacherID       uuid.UUID  `json:"teacher_id"`
	DurationMinutes int        `json:"duration"`
	StartDate       time.Time  `json:"start_date"`
	EndDate         time.Time  `json:"end_date"`
	IsActive        bool       `json:"is_active"`
	TotalMarks      int        `json:"total_marks"`
	Questions       []Question `json:"questions,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ExamForStudent is an exam as served to a student: the computed access
// status attached, correct answers stripped from questions.
type ExamForStudent struct {
	Exam
	StudentStatus StudentStatus `json:"student_status"`
}

// CreateExamRequest is the payload for creating a new exam with its questions.
type CreateExamRequest struct {
	Title           string                  `json:"title" binding:"required,min=3,max=255"`
	Description     string                  `json:"description" binding:"max=2000"`
	Instructions    string                  `json:"instructions" binding:"max=4000"`
	Subject         string                  `json:"subject" binding:"required,max=100"`
	Class           string                  `json:"class" binding:"required,max=50"`
	DurationMinutes int                     `json:"duration" binding:"required,min=1,max=480"`
	StartDate       time.Time               `json:"start_date" binding:"required"`
	EndDate         time.Time               `json:"end_date" binding:"required,gtfield=StartDate"`
	Questions       []CreateQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

// UpdateExamRequest is the payload for updating an existing exam.
// Question edits are rejected once the exam has submissions.
type UpdateExamRequest struct {
	Title           *string                 `json:"title" binding:"omitempty,min=3,max=255"`
	Description     *string                 `json:"description" binding:"omitempty,max=2000"`
	Instructions    *string                 `json:"instructions" binding:"omitempty,max=4000"`
	Subject         *string                 `json:"subject" binding:"omitempty,max=100"`
	Class           *string                 `json:"class" binding:"omitempty,max=50"`
	DurationMinutes *int                    `json:"duration" binding:"omitempty,min=1,max=480"`
	StartDate       *time.Time              `json:"start_date" binding:"omitempty"`
	EndDate         *time.Time              `json:"end_date" binding:"omitempty"`
	IsActive        *bool                   `json:"is_active" binding:"omitempty"`
	Questions       []CreateQuestionRequest `json:"questions" binding:"omitempty,dive"`
}
