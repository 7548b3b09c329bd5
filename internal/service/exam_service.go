package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/model"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/repository"
)

// Domain errors for exam authoring.
var (
	ErrNotExamOwner      = errors.New("not the owner of this exam")
	ErrQuestionsLocked   = errors.New("questions are locked once submissions exist")
	ErrInvalidDateWindow = errors.New("start date must be before end date")
)

// ExamService handles exam authoring for teachers and admins.
type ExamService struct {
	examRepo       *repository.ExamRepository
	submissionRepo *repository.SubmissionRepository
	log            zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(examRepo *repository.ExamRepository, submissionRepo *repository.SubmissionRepository, log zerolog.Logger) *ExamService {
	return &ExamService{
		examRepo:       examRepo,
		submissionRepo: submissionRepo,
		log:            log.With().Str("component", "exam_service").Logger(),
	}
}

// GetByID retrieves an exam with questions.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, err
	}
	return exam, nil
}

// ListForStaff returns the teacher's own exams, or every exam for admins.
func (s *ExamService) ListForStaff(ctx context.Context, user *model.User) ([]model.Exam, error) {
	if user.Role == model.RoleAdmin {
		return s.examRepo.ListAll(ctx)
	}
	return s.examRepo.ListByTeacher(ctx, user.ID)
}

// Create validates and stores a new exam with its questions.
func (s *ExamService) Create(ctx context.Context, teacherID uuid.UUID, req *model.CreateExamRequest) (*model.Exam, error) {
	if !req.StartDate.Before(req.EndDate) {
		return nil, ErrInvalidDateWindow
	}

	questions := buildQuestions(req.Questions)
	exam := &model.Exam{
		Title:           req.Title,
		Description:     req.Description,
		Instructions:    req.Instructions,
		Subject:         req.Subject,
		Class:           req.Class,
		TeacherID:       teacherID,
		DurationMinutes: req.DurationMinutes,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		IsActive:        true,
		TotalMarks:      sumPoints(questions),
		Questions:       questions,
	}

	if err := s.examRepo.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}

	s.log.Info().
		Str("exam_id", exam.ID.String()).
		Str("teacher_id", teacherID.String()).
		Int("questions", len(questions)).
		Msg("Exam created")

	return exam, nil
}

// Update applies partial changes to an owned exam. Question content is
// locked once any submission references the exam — regrading an attempt
// against changed questions would retroactively alter recorded scores.
func (s *ExamService) Update(ctx context.Context, examID uuid.UUID, actor *model.User, req *model.UpdateExamRequest) (*model.Exam, error) {
	exam, err := s.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}

	if actor.Role != model.RoleAdmin && exam.TeacherID != actor.ID {
		return nil, ErrNotExamOwner
	}

	replaceQuestions := len(req.Questions) > 0
	if replaceQuestions {
		count, err := s.submissionRepo.CountByExam(ctx, examID)
		if err != nil {
			return nil, fmt.Errorf("count submissions: %w", err)
		}
		if count > 0 {
			return nil, ErrQuestionsLocked
		}
	}

	applyExamUpdates(exam, req)
	if replaceQuestions {
		exam.Questions = buildQuestions(req.Questions)
		exam.TotalMarks = sumPoints(exam.Questions)
	}

	if !exam.StartDate.Before(exam.EndDate) {
		return nil, ErrInvalidDateWindow
	}

	if err := s.examRepo.Update(ctx, exam, replaceQuestions); err != nil {
		return nil, fmt.Errorf("update exam: %w", err)
	}
	return exam, nil
}

// Delete removes an exam and its submissions (cascade).
func (s *ExamService) Delete(ctx context.Context, examID uuid.UUID, actor *model.User) error {
	exam, err := s.GetByID(ctx, examID)
	if err != nil {
		return err
	}

	if actor.Role != model.RoleAdmin && exam.TeacherID != actor.ID {
		return ErrNotExamOwner
	}

	if err := s.examRepo.Delete(ctx, examID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrExamNotFound
		}
		return fmt.Errorf("delete exam: %w", err)
	}

	s.log.Info().
		Str("exam_id", examID.String()).
		Str("actor_id", actor.ID.String()).
		Msg("Exam deleted")
	return nil
}

// VerifyOwnership checks that the actor may review an exam's submissions.
func (s *ExamService) VerifyOwnership(ctx context.Context, examID uuid.UUID, actor *model.User) error {
	exam, err := s.GetByID(ctx, examID)
	if err != nil {
		return err
	}
	if actor.Role != model.RoleAdmin && exam.TeacherID != actor.ID {
		return ErrNotExamOwner
	}
	return nil
}

func buildQuestions(reqs []model.CreateQuestionRequest) []model.Question {
	questions := make([]model.Question, 0, len(reqs))
	for i, q := range reqs {
		questions = append(questions, model.Question{
			Prompt:        q.Prompt,
			Options:       q.Options,
			Type:          model.QuestionType(q.Type),
			CorrectAnswer: q.CorrectAnswer,
			Points:        q.Points,
			Position:      i,
		})
	}
	return questions
}

func sumPoints(questions []model.Question) int {
	total := 0
	for _, q := range questions {
		total += q.Points
	}
	return total
}

func applyExamUpdates(exam *model.Exam, req *model.UpdateExamRequest) {
	if req.Title != nil {
		exam.Title = *req.Title
	}
	if req.Description != nil {
		exam.Description = *req.Description
	}
	if req.Instructions != nil {
		exam.Instructions = *req.Instructions
	}
	if req.Subject != nil {
		exam.Subject = *req.Subject
	}
	if req.Class != nil {
		exam.Class = *req.Class
	}
	if req.DurationMinutes != nil {
		exam.DurationMinutes = *req.DurationMinutes
	}
	if req.StartDate != nil {
		exam.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		exam.EndDate = *req.EndDate
	}
	if req.IsActive != nil {
		exam.IsActive = *req.IsActive
	}
}
