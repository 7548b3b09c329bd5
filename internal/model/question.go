package model

import (
	"github.com/google/uuid"
)

// QuestionType distinguishes auto-gradeable from manually graded questions.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple-choice"
	QuestionTypeWritten        QuestionType = "written"
)

// Question represents a single exam question. CorrectAnswer is the index
// into Options and is only meaningful for multiple-choice questions.
type Question struct {
	ID            uuid.UUID    `json:"id"`
	ExamID        uuid.UUID    `json:"exam_id"`
	Prompt        string       `json:"question"`
	Options       []string     `json:"options,omitempty"`
	Type          QuestionType `json:"type"`
	CorrectAnswer int          `json:"correct_answer,omitempty"`
	Points        int          `json:"points"`
	Position      int          `json:"position"`
}

// Sanitized returns a copy safe to serve to students: the correct answer
// index is zeroed out so it never leaves the server.
func (q Question) Sanitized() Question {
	q.CorrectAnswer = 0
	return q
}

// CreateQuestionRequest is the payload for one question inside exam create/update.
type CreateQuestionRequest struct {
	Prompt        string   `json:"question" binding:"required,min=1,max=2000"`
	Options       []string `json:"options" binding:"omitempty,max=10,dive,max=500"`
	Type          string   `json:"type" binding:"required,oneof=multiple-choice written"`
	CorrectAnswer int      `json:"correct_answer" binding:"min=0"`
	Points        int      `json:"points" binding:"required,min=1"`
}
