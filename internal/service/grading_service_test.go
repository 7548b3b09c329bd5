package service_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/model"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/service"
)

func twoChoiceExam() (*model.Exam, uuid.UUID, uuid.UUID) {
	q1 := uuid.New()
	q2 := uuid.New()
	exam := &model.Exam{
		ID:         uuid.New(),
		TotalMarks: 10,
		Questions: []model.Question{
			{ID: q1, Type: model.QuestionTypeMultipleChoice, CorrectAnswer: 1, Points: 5},
			{ID: q2, Type: model.QuestionTypeMultipleChoice, CorrectAnswer: 2, Points: 5},
		},
	}
	return exam, q1, q2
}

func TestGradeHalfCorrect(t *testing.T) {
	grading := service.NewGradingService()
	exam, q1, q2 := twoChoiceExam()

	result := grading.Grade(exam, []model.AnswerInput{
		{QuestionID: q1, Answer: "1"},
		{QuestionID: q2, Answer: "1"},
	})

	require.Equal(t, 5.0, result.TotalScore)
	require.Equal(t, 50.0, result.Percentage)
	require.Equal(t, model.SubmissionStatusGraded, result.Status)

	require.Len(t, result.Answers, 2)
	require.True(t, *result.Answers[0].IsCorrect)
	require.Equal(t, 5, *result.Answers[0].PointsEarned)
	require.False(t, *result.Answers[1].IsCorrect)
	require.Equal(t, 0, *result.Answers[1].PointsEarned)
}

func TestGradeIsIdempotent(t *testing.T) {
	grading := service.NewGradingService()
	exam, q1, q2 := twoChoiceExam()
	inputs := []model.AnswerInput{
		{QuestionID: q1, Answer: "1"},
		{QuestionID: q2, Answer: "2"},
	}

	first := grading.Grade(exam, inputs)
	second := grading.Grade(exam, inputs)

	require.Equal(t, first.TotalScore, second.TotalScore)
	require.Equal(t, first.Percentage, second.Percentage)
	require.Equal(t, first.Status, second.Status)
}

func TestGradeLastAnswerWins(t *testing.T) {
	grading := service.NewGradingService()
	exam, q1, q2 := twoChoiceExam()

	result := grading.Grade(exam, []model.AnswerInput{
		{QuestionID: q1, Answer: "0"},
		{QuestionID: q2, Answer: "2"},
		{QuestionID: q1, Answer: "1"}, // overwrites the wrong first pick
	})

	require.Equal(t, 10.0, result.TotalScore)
	require.Len(t, result.Answers, 2)
	require.Equal(t, "1", result.Answers[0].Answer)
}

func TestGradeWrittenQuestionsPassThrough(t *testing.T) {
	grading := service.NewGradingService()
	qMC := uuid.New()
	qWritten := uuid.New()
	exam := &model.Exam{
		ID:         uuid.New(),
		TotalMarks: 15,
		Questions: []model.Question{
			{ID: qMC, Type: model.QuestionTypeMultipleChoice, CorrectAnswer: 0, Points: 5},
			{ID: qWritten, Type: model.QuestionTypeWritten, Points: 10},
		},
	}

	result := grading.Grade(exam, []model.AnswerInput{
		{QuestionID: qMC, Answer: "0"},
		{QuestionID: qWritten, Answer: "Dividing both sides by three."},
	})

	require.Equal(t, 5.0, result.TotalScore)
	require.Equal(t, model.SubmissionStatusSubmitted, result.Status, "written questions keep the attempt pending review")

	// The written answer carries no grading marks.
	require.Nil(t, result.Answers[1].IsCorrect)
	require.Nil(t, result.Answers[1].PointsEarned)
}

func TestGradeZeroTotalMarks(t *testing.T) {
	grading := service.NewGradingService()
	exam := &model.Exam{ID: uuid.New(), TotalMarks: 0}

	result := grading.Grade(exam, nil)

	require.Equal(t, 0.0, result.TotalScore)
	require.Equal(t, 0.0, result.Percentage)
}

func TestGradeNonNumericAnswerIsWrong(t *testing.T) {
	grading := service.NewGradingService()
	exam, q1, _ := twoChoiceExam()

	result := grading.Grade(exam, []model.AnswerInput{
		{QuestionID: q1, Answer: "not a number"},
	})

	require.Equal(t, 0.0, result.TotalScore)
	require.False(t, *result.Answers[0].IsCorrect)
}

func TestFinalizedStampsGradedAtOnlyWhenGraded(t *testing.T) {
	grading := service.NewGradingService()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	examID, studentID := uuid.New(), uuid.New()

	graded := grading.Finalized(examID, studentID, service.GradeResult{Status: model.SubmissionStatusGraded}, 120, now)
	require.NotNil(t, graded.GradedAt)
	require.Equal(t, now, *graded.SubmittedAt)

	pending := grading.Finalized(examID, studentID, service.GradeResult{Status: model.SubmissionStatusSubmitted}, 120, now)
	require.Nil(t, pending.GradedAt)
}
