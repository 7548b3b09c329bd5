package service

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/model"
)

// GradingService auto-grades objective answers. Grading is deterministic and
// side-effect-free: grading the same (exam, answers) twice yields identical
// results.
type GradingService struct{}

// NewGradingService creates a new GradingService.
func NewGradingService() *GradingService {
	return &GradingService{}
}

// GradeResult is the outcome of grading one answer set against one exam.
type GradeResult struct {
	Answers    []model.Answer
	TotalScore float64
	Percentage float64
	Status     model.SubmissionStatus
}

// Grade scores the submitted answers against the exam's question set.
// Multiple-choice answers are compared against the correct option index;
// written answers pass through ungraded. Duplicate answers for the same
// question collapse to the last one sent. The final status is "graded"
// only when the exam has no written questions, otherwise the attempt stays
// "submitted" pending manual review.
func (g *GradingService) Grade(exam *model.Exam, inputs []model.AnswerInput) GradeResult {
	questions := make(map[uuid.UUID]*model.Question, len(exam.Questions))
	hasWritten := false
	for i := range exam.Questions {
		q := &exam.Questions[i]
		questions[q.ID] = q
		if q.Type == model.QuestionTypeWritten {
			hasWritten = true
		}
	}

	// Last write wins per question, first-seen order preserved.
	order := make([]uuid.UUID, 0, len(inputs))
	latest := make(map[uuid.UUID]string, len(inputs))
	for _, in := range inputs {
		if _, seen := latest[in.QuestionID]; !seen {
			order = append(order, in.QuestionID)
		}
		latest[in.QuestionID] = in.Answer
	}

	var total float64
	answers := make([]model.Answer, 0, len(order))
	for _, qid := range order {
		ans := model.Answer{QuestionID: qid, Answer: latest[qid]}

		if q, ok := questions[qid]; ok && q.Type == model.QuestionTypeMultipleChoice {
			chosen, err := strconv.Atoi(ans.Answer)
			correct := err == nil && chosen == q.CorrectAnswer
			points := 0
			if correct {
				points = q.Points
			}
			ans.IsCorrect = &correct
			ans.PointsEarned = &points
			total += float64(points)
		}

		answers = append(answers, ans)
	}

	percentage := 0.0
	if exam.TotalMarks > 0 {
		percentage = total / float64(exam.TotalMarks) * 100
	}

	status := model.SubmissionStatusSubmitted
	if !hasWritten {
		status = model.SubmissionStatusGraded
	}

	return GradeResult{
		Answers:    answers,
		TotalScore: total,
		Percentage: percentage,
		Status:     status,
	}
}

// Finalized builds the terminal submission record for a graded attempt.
func (g *GradingService) Finalized(examID, studentID uuid.UUID, result GradeResult, timeSpent int, now time.Time) *model.Submission {
	sub := &model.Submission{
		ExamID:      examID,
		StudentID:   studentID,
		Answers:     result.Answers,
		Status:      result.Status,
		TimeSpent:   timeSpent,
		TotalScore:  result.TotalScore,
		Percentage:  result.Percentage,
		SubmittedAt: &now,
	}
	if result.Status == model.SubmissionStatusGraded {
		sub.GradedAt = &now
	}
	return sub
}
