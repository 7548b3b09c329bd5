package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/config"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/model"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/repository"
)

// Domain errors surfaced to handlers.
var (
	ErrExamNotFound     = errors.New("exam not found")
	ErrAccessDenied     = errors.New("access denied")
	ErrExamNotAvailable = errors.New("exam not available")
	ErrAlreadySubmitted = errors.New("exam already submitted")
)

// SubmissionStore is the persistence contract the service needs.
type SubmissionStore interface {
	GetByExamAndStudent(ctx context.Context, examID, studentID uuid.UUID) (*model.Submission, error)
	UpsertAutosave(ctx context.Context, examID, studentID uuid.UUID, answers []model.Answer, timeSpent int) error
	Finalize(ctx context.Context, sub *model.Submission) error
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.SubmissionWithStudent, error)
	StatusesByStudent(ctx context.Context, studentID uuid.UUID) (map[uuid.UUID]model.SubmissionStatus, error)
}

// ExamStore is the read-only exam catalog contract.
type ExamStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	ListByClass(ctx context.Context, class string) ([]model.Exam, error)
}

// AutosavePayload is the queue message consumed by the autosave worker.
type AutosavePayload struct {
	ExamID    string         `json:"exam_id"`
	StudentID string         `json:"student_id"`
	Answers   []model.Answer `json:"answers"`
	TimeSpent int            `json:"time_spent"`
}

// SubmissionEvent is published on the exam's submission channel when an
// attempt reaches a terminal state.
type SubmissionEvent struct {
	ExamID     string                 `json:"exam_id"`
	StudentID  string                 `json:"student_id"`
	Status     model.SubmissionStatus `json:"status"`
	TotalScore float64                `json:"total_score"`
	Percentage float64                `json:"percentage"`
	At         time.Time              `json:"at"`
}

// ResumeState is the server-held record a reloading client reconciles
// against: the latest autosaved answers plus remaining time derived from
// recorded time spent.
type ResumeState struct {
	ExamID        uuid.UUID              `json:"exam_id"`
	Answers       map[string]string      `json:"answers"`
	TimeSpent     int                    `json:"time_spent"`
	TimeRemaining int                    `json:"time_remaining"`
	Status        model.SubmissionStatus `json:"status"`
}

// SubmissionService orchestrates autosave and terminal submission.
type SubmissionService struct {
	submissions SubmissionStore
	exams       ExamStore
	access      *AccessService
	grading     *GradingService
	rdb         *redis.Client
	log         zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(
	submissions SubmissionStore,
	exams ExamStore,
	access *AccessService,
	grading *GradingService,
	rdb *redis.Client,
	log zerolog.Logger,
) *SubmissionService {
	return &SubmissionService{
		submissions: submissions,
		exams:       exams,
		access:      access,
		grading:     grading,
		rdb:         rdb,
		log:         log.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

// ListExamsForStudent returns the class's open exams with the student's
// access status attached to each.
func (s *SubmissionService) ListExamsForStudent(ctx context.Context, studentID uuid.UUID, class string) ([]model.ExamForStudent, error) {
	exams, err := s.exams.ListByClass(ctx, class)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}

	statuses, err := s.submissions.StatusesByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list submission statuses: %w", err)
	}

	result := make([]model.ExamForStudent, 0, len(exams))
	for _, exam := range exams {
		var subStatus *model.SubmissionStatus
		if st, ok := statuses[exam.ID]; ok {
			subStatus = &st
		}
		result = append(result, model.ExamForStudent{
			Exam:          exam,
			StudentStatus: s.access.StudentStatus(&exam, class, subStatus),
		})
	}
	return result, nil
}

// GetExamForStudent loads one exam through the access gate. Questions are
// sanitized (correct answers stripped) and any existing submission is
// returned alongside so the client can rehydrate answers.
func (s *SubmissionService) GetExamForStudent(ctx context.Context, examID, studentID uuid.UUID, class string) (*model.ExamForStudent, *model.Submission, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrExamNotFound
		}
		return nil, nil, fmt.Errorf("get exam: %w", err)
	}

	sub, err := s.submissions.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, fmt.Errorf("get submission: %w", err)
	}

	var subStatus *model.SubmissionStatus
	if sub != nil {
		subStatus = &sub.Status
	}

	status := s.access.StudentStatus(exam, class, subStatus)
	if status == model.StudentStatusAccessDenied {
		return nil, nil, ErrAccessDenied
	}

	for i := range exam.Questions {
		exam.Questions[i] = exam.Questions[i].Sanitized()
	}

	return &model.ExamForStudent{Exam: *exam, StudentStatus: status}, sub, nil
}

// Autosave records in-flight progress. The answer buffer lands in Redis for
// fast resume reads and a persistence job is queued for the worker; if the
// queue is unreachable the write falls through to PostgreSQL directly so a
// Redis outage cannot lose progress.
func (s *SubmissionService) Autosave(ctx context.Context, examID, studentID uuid.UUID, class string, req *model.SaveProgressRequest) error {
	if _, _, err := s.writableAttempt(ctx, examID, studentID, class); err != nil {
		return err
	}

	answers := dedupeAnswers(req.Answers)

	if err := s.bufferAnswers(ctx, examID, studentID, answers, req.TimeSpent); err != nil {
		s.log.Warn().Err(err).
			Str("exam_id", examID.String()).
			Str("student_id", studentID.String()).
			Msg("Autosave buffer write failed")
	}

	payload, err := json.Marshal(AutosavePayload{
		ExamID:    examID.String(),
		StudentID: studentID.String(),
		Answers:   answers,
		TimeSpent: req.TimeSpent,
	})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAutosavesQueue, payload).Err(); err != nil {
		// Queue down — persist synchronously rather than dropping the save.
		s.log.Warn().Err(err).Msg("Autosave queue unreachable, writing directly")
		if err := s.submissions.UpsertAutosave(ctx, examID, studentID, answers, req.TimeSpent); err != nil {
			if errors.Is(err, repository.ErrSubmissionFinal) {
				return ErrAlreadySubmitted
			}
			return fmt.Errorf("persist autosave: %w", err)
		}
	}

	return nil
}

// Submit finalizes an attempt: grade, guarded upsert, buffer cleanup, event
// publish. Safe under concurrent calls for the same (exam, student) pair —
// the store's guarded upsert lets exactly one caller win; the rest get
// ErrAlreadySubmitted.
func (s *SubmissionService) Submit(ctx context.Context, examID, studentID uuid.UUID, class string, req *model.SaveProgressRequest) (*model.SubmissionReceipt, error) {
	exam, _, err := s.writableAttempt(ctx, examID, studentID, class)
	if err != nil {
		return nil, err
	}

	result := s.grading.Grade(exam, req.Answers)
	sub := s.grading.Finalized(examID, studentID, result, req.TimeSpent, s.now())

	if err := s.submissions.Finalize(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrSubmissionFinal) {
			return nil, ErrAlreadySubmitted
		}
		return nil, fmt.Errorf("finalize submission: %w", err)
	}

	s.clearBuffer(ctx, examID, studentID)
	s.publishEvent(ctx, sub)

	return &model.SubmissionReceipt{
		ID:         sub.ID,
		TotalScore: sub.TotalScore,
		Percentage: sub.Percentage,
		Status:     sub.Status,
	}, nil
}

// GetResumeState returns the server-held resume record for a student's
// attempt: Redis answer buffer first, PostgreSQL submission as fallback.
// Remaining time is derived from the exam duration minus recorded time
// spent, clamped to [0, duration].
func (s *SubmissionService) GetResumeState(ctx context.Context, examID, studentID uuid.UUID, class string) (*ResumeState, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if !exam.IsActive || exam.Class != class {
		return nil, ErrAccessDenied
	}

	state := &ResumeState{
		ExamID:  examID,
		Answers: map[string]string{},
		Status:  model.SubmissionStatusInProgress,
	}

	answersKey := config.CacheKey.StudentAnswersKey(examID.String(), studentID.String())
	buffered, err := s.rdb.HGetAll(ctx, answersKey).Result()
	if err == nil && len(buffered) > 0 {
		state.Answers = buffered
		if raw, err := s.rdb.Get(ctx, config.CacheKey.StudentTimeSpentKey(examID.String(), studentID.String())).Result(); err == nil {
			if spent, convErr := strconv.Atoi(raw); convErr == nil {
				state.TimeSpent = spent
			}
		}
	} else {
		// Cache miss or Redis error — PostgreSQL is the source of truth.
		sub, dbErr := s.submissions.GetByExamAndStudent(ctx, examID, studentID)
		if dbErr != nil && !errors.Is(dbErr, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get submission: %w", dbErr)
		}
		if sub != nil {
			state.Status = sub.Status
			state.TimeSpent = sub.TimeSpent
			for _, a := range sub.Answers {
				state.Answers[a.QuestionID.String()] = a.Answer
			}
		}
	}

	total := exam.DurationMinutes * 60
	remaining := total - state.TimeSpent
	if remaining < 0 {
		remaining = 0
	}
	if remaining > total {
		remaining = total
	}
	state.TimeRemaining = remaining

	return state, nil
}

// ListByExam returns all submissions for a grading review.
func (s *SubmissionService) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.SubmissionWithStudent, error) {
	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return s.submissions.ListByExam(ctx, examID)
}

// writableAttempt loads the exam and verifies the student may still write
// to their attempt: the exam must exist, be active and match the student's
// class, and the attempt must not already be terminal. The time window is
// deliberately not checked here — a forced submit fired by the client timer
// may land moments after the window closes and must still be accepted.
func (s *SubmissionService) writableAttempt(ctx context.Context, examID, studentID uuid.UUID, class string) (*model.Exam, *model.Submission, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrExamNotFound
		}
		return nil, nil, fmt.Errorf("get exam: %w", err)
	}

	if !exam.IsActive || exam.Class != class {
		return nil, nil, ErrAccessDenied
	}

	sub, err := s.submissions.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, fmt.Errorf("get submission: %w", err)
	}
	if sub != nil && sub.Status.IsTerminal() {
		return nil, nil, ErrAlreadySubmitted
	}

	return exam, sub, nil
}

func (s *SubmissionService) bufferAnswers(ctx context.Context, examID, studentID uuid.UUID, answers []model.Answer, timeSpent int) error {
	answersKey := config.CacheKey.StudentAnswersKey(examID.String(), studentID.String())
	timeKey := config.CacheKey.StudentTimeSpentKey(examID.String(), studentID.String())

	pipe := s.rdb.Pipeline()
	for _, a := range answers {
		pipe.HSet(ctx, answersKey, a.QuestionID.String(), a.Answer)
	}
	pipe.Set(ctx, timeKey, timeSpent, 0)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *SubmissionService) clearBuffer(ctx context.Context, examID, studentID uuid.UUID) {
	keys := []string{
		config.CacheKey.StudentAnswersKey(examID.String(), studentID.String()),
		config.CacheKey.StudentTimeSpentKey(examID.String(), studentID.String()),
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to clear autosave buffer")
	}
}

func (s *SubmissionService) publishEvent(ctx context.Context, sub *model.Submission) {
	event, err := json.Marshal(SubmissionEvent{
		ExamID:     sub.ExamID.String(),
		StudentID:  sub.StudentID.String(),
		Status:     sub.Status,
		TotalScore: sub.TotalScore,
		Percentage: sub.Percentage,
		At:         s.now(),
	})
	if err != nil {
		return
	}
	channel := config.CacheKey.ExamSubmissionChannel(sub.ExamID.String())
	if err := s.rdb.Publish(ctx, channel, event).Err(); err != nil {
		s.log.Warn().Err(err).Str("channel", channel).Msg("Failed to publish submission event")
	}
}

// dedupeAnswers collapses repeated question ids to the last value sent,
// preserving first-seen order.
func dedupeAnswers(inputs []model.AnswerInput) []model.Answer {
	order := make([]uuid.UUID, 0, len(inputs))
	latest := make(map[uuid.UUID]string, len(inputs))
	for _, in := range inputs {
		if _, seen := latest[in.QuestionID]; !seen {
			order = append(order, in.QuestionID)
		}
		latest[in.QuestionID] = in.Answer
	}

	answers := make([]model.Answer, 0, len(order))
	for _, qid := range order {
		answers = append(answers, model.Answer{QuestionID: qid, Answer: latest[qid]})
	}
	return answers
}
