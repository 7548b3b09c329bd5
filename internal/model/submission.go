package model

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus enumerates the lifecycle of one exam attempt.
type SubmissionStatus string

const (
	SubmissionStatusInProgress SubmissionStatus = "in-progress"
	SubmissionStatusSubmitted  SubmissionStatus = "submitted"
	SubmissionStatusGraded     SubmissionStatus = "graded"
)

// IsTerminal reports whether the attempt can no longer be written to.
func (s SubmissionStatus) IsTerminal() bool {
	return s == SubmissionStatusSubmitted || s == SubmissionStatusGraded
}

// Answer is one (question, answer value) pair. The answer value is a
// free-form string — an option index serialized as text for
// multiple-choice, prose for written questions. Grading annotations are
// filled in at submit time for gradeable answers only.
type Answer struct {
	QuestionID   uuid.UUID `json:"question_id"`
	Answer       string    `json:"answer"`
	IsCorrect    *bool     `json:"is_correct,omitempty"`
	PointsEarned *int      `json:"points_earned,omitempty"`
}

// Submission represents one student's single attempt at one exam.
// At most one exists per (exam, student) pair.
type Submission struct {
	ID          uuid.UUID        `json:"id"`
	ExamID      uuid.UUID        `json:"exam_id"`
	StudentID   uuid.UUID        `json:"student_id"`
	Answers     []Answer         `json:"answers"`
	Status      SubmissionStatus `json:"status"`
	TimeSpent   int              `json:"time_spent"`
	TotalScore  float64          `json:"total_score"`
	Percentage  float64          `json:"percentage"`
	SubmittedAt *time.Time       `json:"submitted_at,omitempty"`
	GradedAt    *time.Time       `json:"graded_at,omitempty"`
	AutoSaved   bool             `json:"auto_saved"`
}

// SaveProgressRequest is the payload for both auto-save and submit calls.
type SaveProgressRequest struct {
	Answers   []AnswerInput `json:"answers" binding:"omitempty,dive"`
	TimeSpent int           `json:"time_spent" binding:"min=0"`
}

// AnswerInput is one answer as sent by the client.
type AnswerInput struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	Answer     string    `json:"answer"`
}

// SubmissionReceipt is the terse submit response body.
type SubmissionReceipt struct {
	ID         uuid.UUID        `json:"id"`
	TotalScore float64          `json:"total_score"`
	Percentage float64          `json:"percentage"`
	Status     SubmissionStatus `json:"status"`
}

// SubmissionWithStudent joins a submission with the submitting student's
// display fields for the grading review list.
type SubmissionWithStudent struct {
	Submission
	StudentFirstName string `json:"student_first_name"`
	StudentLastName  string `json:"student_last_name"`
	StudentEmail     string `json:"student_email"`
}
