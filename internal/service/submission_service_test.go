package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/config"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/model"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/repository"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/service"
)

// fakeExamStore serves exams from memory, mimicking the repository's
// pgx.ErrNoRows contract for missing rows.
type fakeExamStore struct {
	exams map[uuid.UUID]*model.Exam
}

func (f *fakeExamStore) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	exam, ok := f.exams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *exam
	cp.Questions = append([]model.Question(nil), exam.Questions...)
	return &cp, nil
}

func (f *fakeExamStore) ListByClass(_ context.Context, class string) ([]model.Exam, error) {
	var out []model.Exam
	for _, exam := range f.exams {
		if exam.Class == class {
			out = append(out, *exam)
		}
	}
	return out, nil
}

// fakeSubmissionStore reproduces the guarded-upsert semantics: writes
// against a terminal record fail with repository.ErrSubmissionFinal.
type fakeSubmissionStore struct {
	mu   sync.Mutex
	subs map[[2]uuid.UUID]*model.Submission
}

func newFakeSubmissionStore() *fakeSubmissionStore {
	return &fakeSubmissionStore{subs: map[[2]uuid.UUID]*model.Submission{}}
}

func (f *fakeSubmissionStore) GetByExamAndStudent(_ context.Context, examID, studentID uuid.UUID) (*model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[[2]uuid.UUID{examID, studentID}]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *sub
	return &cp, nil
}

func (f *fakeSubmissionStore) UpsertAutosave(_ context.Context, examID, studentID uuid.UUID, answers []model.Answer, timeSpent int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]uuid.UUID{examID, studentID}
	if existing, ok := f.subs[key]; ok && existing.Status.IsTerminal() {
		return repository.ErrSubmissionFinal
	}
	f.subs[key] = &model.Submission{
		ID:        uuid.New(),
		ExamID:    examID,
		StudentID: studentID,
		Answers:   answers,
		Status:    model.SubmissionStatusInProgress,
		TimeSpent: timeSpent,
	}
	return nil
}

func (f *fakeSubmissionStore) Finalize(_ context.Context, sub *model.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]uuid.UUID{sub.ExamID, sub.StudentID}
	if existing, ok := f.subs[key]; ok && existing.Status.IsTerminal() {
		return repository.ErrSubmissionFinal
	}
	sub.ID = uuid.New()
	cp := *sub
	f.subs[key] = &cp
	return nil
}

func (f *fakeSubmissionStore) ListByExam(_ context.Context, examID uuid.UUID) ([]model.SubmissionWithStudent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SubmissionWithStudent
	for _, sub := range f.subs {
		if sub.ExamID == examID {
			out = append(out, model.SubmissionWithStudent{Submission: *sub})
		}
	}
	return out, nil
}

func (f *fakeSubmissionStore) StatusesByStudent(_ context.Context, studentID uuid.UUID) (map[uuid.UUID]model.SubmissionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[uuid.UUID]model.SubmissionStatus{}
	for key, sub := range f.subs {
		if key[1] == studentID {
			out[key[0]] = sub.Status
		}
	}
	return out, nil
}

type submissionFixture struct {
	svc     *service.SubmissionService
	subs    *fakeSubmissionStore
	rdb     *redis.Client
	exam    *model.Exam
	q1, q2  uuid.UUID
	student uuid.UUID
}

func newSubmissionFixture(t *testing.T) *submissionFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	q1, q2 := uuid.New(), uuid.New()
	now := time.Now()
	exam := &model.Exam{
		ID:              uuid.New(),
		Class:           "10A",
		IsActive:        true,
		DurationMinutes: 30,
		StartDate:       now.Add(-time.Hour),
		EndDate:         now.Add(time.Hour),
		TotalMarks:      10,
		Questions: []model.Question{
			{ID: q1, Type: model.QuestionTypeMultipleChoice, CorrectAnswer: 1, Points: 5},
			{ID: q2, Type: model.QuestionTypeMultipleChoice, CorrectAnswer: 2, Points: 5},
		},
	}

	subs := newFakeSubmissionStore()
	svc := service.NewSubmissionService(
		subs,
		&fakeExamStore{exams: map[uuid.UUID]*model.Exam{exam.ID: exam}},
		service.NewAccessService(),
		service.NewGradingService(),
		rdb,
		zerolog.Nop(),
	)

	return &submissionFixture{
		svc:     svc,
		subs:    subs,
		rdb:     rdb,
		exam:    exam,
		q1:      q1,
		q2:      q2,
		student: uuid.New(),
	}
}

func TestAutosaveBuffersAndQueues(t *testing.T) {
	fx := newSubmissionFixture(t)
	ctx := context.Background()

	err := fx.svc.Autosave(ctx, fx.exam.ID, fx.student, "10A", &model.SaveProgressRequest{
		Answers: []model.AnswerInput{
			{QuestionID: fx.q1, Answer: "1"},
			{QuestionID: fx.q1, Answer: "0"}, // later answer wins
		},
		TimeSpent: 90,
	})
	require.NoError(t, err)

	answersKey := config.CacheKey.StudentAnswersKey(fx.exam.ID.String(), fx.student.String())
	buffered, err := fx.rdb.HGetAll(ctx, answersKey).Result()
	require.NoError(t, err)
	require.Equal(t, map[string]string{fx.q1.String(): "0"}, buffered)

	queued, err := fx.rdb.LLen(ctx, config.WorkerKey.PersistAutosavesQueue).Result()
	require.NoError(t, err)
	require.EqualValues(t, 1, queued)
}

func TestAutosaveRejectsWrongClass(t *testing.T) {
	fx := newSubmissionFixture(t)

	err := fx.svc.Autosave(context.Background(), fx.exam.ID, fx.student, "11B", &model.SaveProgressRequest{})
	require.ErrorIs(t, err, service.ErrAccessDenied)
}

func TestSubmitGradesAndClearsBuffer(t *testing.T) {
	fx := newSubmissionFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.svc.Autosave(ctx, fx.exam.ID, fx.student, "10A", &model.SaveProgressRequest{
		Answers:   []model.AnswerInput{{QuestionID: fx.q1, Answer: "1"}},
		TimeSpent: 60,
	}))

	receipt, err := fx.svc.Submit(ctx, fx.exam.ID, fx.student, "10A", &model.SaveProgressRequest{
		Answers: []model.AnswerInput{
			{QuestionID: fx.q1, Answer: "1"},
			{QuestionID: fx.q2, Answer: "1"},
		},
		TimeSpent: 300,
	})
	require.NoError(t, err)
	require.Equal(t, 5.0, receipt.TotalScore)
	require.Equal(t, 50.0, receipt.Percentage)
	require.Equal(t, model.SubmissionStatusGraded, receipt.Status)

	// The resume buffer is gone once the attempt is terminal.
	answersKey := config.CacheKey.StudentAnswersKey(fx.exam.ID.String(), fx.student.String())
	buffered, err := fx.rdb.HGetAll(ctx, answersKey).Result()
	require.NoError(t, err)
	require.Empty(t, buffered)
}

func TestAutosaveAfterSubmitIsRejected(t *testing.T) {
	fx := newSubmissionFixture(t)
	ctx := context.Background()

	_, err := fx.svc.Submit(ctx, fx.exam.ID, fx.student, "10A", &model.SaveProgressRequest{
		Answers:   []model.AnswerInput{{QuestionID: fx.q1, Answer: "1"}},
		TimeSpent: 300,
	})
	require.NoError(t, err)

	err = fx.svc.Autosave(ctx, fx.exam.ID, fx.student, "10A", &model.SaveProgressRequest{
		Answers:   []model.AnswerInput{{QuestionID: fx.q1, Answer: "0"}},
		TimeSpent: 400,
	})
	require.ErrorIs(t, err, service.ErrAlreadySubmitted)

	// The record on file still carries the submitted answer.
	sub, err := fx.subs.GetByExamAndStudent(ctx, fx.exam.ID, fx.student)
	require.NoError(t, err)
	require.Equal(t, "1", sub.Answers[0].Answer)
	require.True(t, sub.Status.IsTerminal())
}

func TestSubmitTwiceReturnsDuplicate(t *testing.T) {
	fx := newSubmissionFixture(t)
	ctx := context.Background()
	req := &model.SaveProgressRequest{
		Answers:   []model.AnswerInput{{QuestionID: fx.q1, Answer: "1"}},
		TimeSpent: 300,
	}

	_, err := fx.svc.Submit(ctx, fx.exam.ID, fx.student, "10A", req)
	require.NoError(t, err)

	_, err = fx.svc.Submit(ctx, fx.exam.ID, fx.student, "10A", req)
	require.ErrorIs(t, err, service.ErrAlreadySubmitted)
}

func TestConcurrentSubmitsYieldOneWinner(t *testing.T) {
	fx := newSubmissionFixture(t)
	ctx := context.Background()
	req := &model.SaveProgressRequest{
		Answers:   []model.AnswerInput{{QuestionID: fx.q1, Answer: "1"}},
		TimeSpent: 300,
	}

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fx.svc.Submit(ctx, fx.exam.ID, fx.student, "10A", req)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	wins, duplicates := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			wins++
		default:
			require.ErrorIs(t, err, service.ErrAlreadySubmitted)
			duplicates++
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, attempts-1, duplicates)
}

func TestGetResumeStatePrefersRedisBuffer(t *testing.T) {
	fx := newSubmissionFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.svc.Autosave(ctx, fx.exam.ID, fx.student, "10A", &model.SaveProgressRequest{
		Answers:   []model.AnswerInput{{QuestionID: fx.q1, Answer: "1"}},
		TimeSpent: 120,
	}))

	state, err := fx.svc.GetResumeState(ctx, fx.exam.ID, fx.student, "10A")
	require.NoError(t, err)
	require.Equal(t, map[string]string{fx.q1.String(): "1"}, state.Answers)
	require.Equal(t, 120, state.TimeSpent)
	require.Equal(t, 30*60-120, state.TimeRemaining)
}

func TestGetResumeStateFallsBackToStore(t *testing.T) {
	fx := newSubmissionFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.subs.UpsertAutosave(ctx, fx.exam.ID, fx.student, []model.Answer{
		{QuestionID: fx.q1, Answer: "2"},
	}, 600))

	state, err := fx.svc.GetResumeState(ctx, fx.exam.ID, fx.student, "10A")
	require.NoError(t, err)
	require.Equal(t, map[string]string{fx.q1.String(): "2"}, state.Answers)
	require.Equal(t, 30*60-600, state.TimeRemaining)
}

func TestGetResumeStateClampsRemainingTime(t *testing.T) {
	fx := newSubmissionFixture(t)
	ctx := context.Background()

	// Time spent beyond the duration clamps to zero, never negative.
	require.NoError(t, fx.subs.UpsertAutosave(ctx, fx.exam.ID, fx.student, nil, 99999))

	state, err := fx.svc.GetResumeState(ctx, fx.exam.ID, fx.student, "10A")
	require.NoError(t, err)
	require.Equal(t, 0, state.TimeRemaining)
}

func TestGetResumeStateFreshAttempt(t *testing.T) {
	fx := newSubmissionFixture(t)

	state, err := fx.svc.GetResumeState(context.Background(), fx.exam.ID, fx.student, "10A")
	require.NoError(t, err)
	require.Empty(t, state.Answers)
	require.Equal(t, 30*60, state.TimeRemaining)
}

func TestGetExamForStudentSanitizesQuestions(t *testing.T) {
	fx := newSubmissionFixture(t)

	exam, sub, err := fx.svc.GetExamForStudent(context.Background(), fx.exam.ID, fx.student, "10A")
	require.NoError(t, err)
	require.Nil(t, sub)
	require.Equal(t, model.StudentStatusAvailable, exam.StudentStatus)
	for _, q := range exam.Questions {
		require.Zero(t, q.CorrectAnswer)
	}
}

func TestGetExamForStudentUnknownExam(t *testing.T) {
	fx := newSubmissionFixture(t)

	_, _, err := fx.svc.GetExamForStudent(context.Background(), uuid.New(), fx.student, "10A")
	require.ErrorIs(t, err, service.ErrExamNotFound)
}

func TestListExamsForStudentAttachesStatuses(t *testing.T) {
	fx := newSubmissionFixture(t)
	ctx := context.Background()

	_, err := fx.svc.Submit(ctx, fx.exam.ID, fx.student, "10A", &model.SaveProgressRequest{
		Answers:   []model.AnswerInput{{QuestionID: fx.q1, Answer: "1"}},
		TimeSpent: 300,
	})
	require.NoError(t, err)

	exams, err := fx.svc.ListExamsForStudent(ctx, fx.student, "10A")
	require.NoError(t, err)
	require.Len(t, exams, 1)
	require.Equal(t, model.StudentStatusSubmitted, exams[0].StudentStatus)
}
