package examtaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/model"
)

// fakeTransport mimics the server's at-most-one-submission backstop:
// the first Submit wins, later ones see a duplicate.
type fakeTransport struct {
	mu        sync.Mutex
	autosaves int
	submits   int
	submitted bool
	submitErr error
}

func (f *fakeTransport) Autosave(_ context.Context, _ string, _ model.SaveProgressRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.autosaves++
	if f.submitted {
		return ErrAlreadySubmitted
	}
	return nil
}

func (f *fakeTransport) Submit(_ context.Context, _ string, req model.SaveProgressRequest) (*model.SubmissionReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	if f.submitted {
		return nil, ErrAlreadySubmitted
	}
	f.submitted = true
	return &model.SubmissionReceipt{
		ID:         uuid.New(),
		TotalScore: 5,
		Percentage: 50,
		Status:     model.SubmissionStatusGraded,
	}, nil
}

func (f *fakeTransport) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submits
}

func newTestSession(t *testing.T, api Transport) (*Session, *model.ExamForStudent, *ProgressCache) {
	t.Helper()

	exam := &model.ExamForStudent{
		Exam: model.Exam{
			ID:              uuid.New(),
			Title:           "Algebra Midterm",
			DurationMinutes: 30,
			Questions: []model.Question{
				{ID: uuid.New(), Type: model.QuestionTypeMultipleChoice, Points: 5},
				{ID: uuid.New(), Type: model.QuestionTypeMultipleChoice, Points: 5},
			},
		},
		StudentStatus: model.StudentStatusAvailable,
	}

	cache, err := NewProgressCache(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	state := Reconcile(nil, nil, exam.DurationMinutes, time.Now())
	session := NewSession(exam, state, cache, api, zerolog.Nop())
	t.Cleanup(session.Close)
	return session, exam, cache
}

func answerAll(t *testing.T, session *Session, exam *model.ExamForStudent) {
	t.Helper()
	for _, q := range exam.Questions {
		require.NoError(t, session.SelectAnswer(context.Background(), q.ID.String(), "1"))
	}
}

func TestRequestSubmitBlocksIncompleteAttempt(t *testing.T) {
	session, exam, _ := newTestSession(t, &fakeTransport{})

	err := session.RequestSubmit()
	require.ErrorIs(t, err, ErrQuestionsRemaining)
	require.Equal(t, PhaseAnswering, session.Phase())

	// One answered, one left.
	require.NoError(t, session.SelectAnswer(context.Background(), exam.Questions[0].ID.String(), "0"))
	err = session.RequestSubmit()
	require.ErrorIs(t, err, ErrQuestionsRemaining)
	require.Equal(t, PhaseAnswering, session.Phase())
}

func TestConfirmRequiresExplicitRequest(t *testing.T) {
	session, exam, _ := newTestSession(t, &fakeTransport{})
	answerAll(t, session, exam)

	// An accidental Confirm without entering confirming cannot submit.
	require.ErrorIs(t, session.Confirm(context.Background()), ErrNotConfirming)
	require.Equal(t, PhaseAnswering, session.Phase())
}

func TestSubmitFlowClearsCache(t *testing.T) {
	api := &fakeTransport{}
	session, exam, cache := newTestSession(t, api)
	answerAll(t, session, exam)

	require.NoError(t, session.RequestSubmit())
	require.Equal(t, PhaseConfirming, session.Phase())

	require.NoError(t, session.Confirm(context.Background()))
	require.Equal(t, PhaseSubmitted, session.Phase())
	require.NotNil(t, session.Receipt())

	_, ok := cache.Load(exam.ID.String())
	require.False(t, ok, "no stale resume state may linger after submit")
}

func TestCancelReturnsToAnswering(t *testing.T) {
	api := &fakeTransport{}
	session, exam, _ := newTestSession(t, api)
	answerAll(t, session, exam)

	require.NoError(t, session.RequestSubmit())
	session.Cancel()
	require.Equal(t, PhaseAnswering, session.Phase())
	require.Zero(t, api.submitCount())
}

func TestSubmitFailureReturnsToAnswering(t *testing.T) {
	api := &fakeTransport{submitErr: errors.New("connection reset")}
	session, exam, cache := newTestSession(t, api)
	answerAll(t, session, exam)

	require.NoError(t, session.RequestSubmit())
	require.Error(t, session.Confirm(context.Background()))
	require.Equal(t, PhaseAnswering, session.Phase())

	// Local state survives for a retry.
	session.saveSnapshot()
	snap, ok := cache.Load(exam.ID.String())
	require.True(t, ok)
	require.Len(t, snap.Answers, len(exam.Questions))

	// Retry succeeds once the network is back.
	api.mu.Lock()
	api.submitErr = nil
	api.mu.Unlock()
	require.NoError(t, session.RequestSubmit())
	require.NoError(t, session.Confirm(context.Background()))
	require.Equal(t, PhaseSubmitted, session.Phase())
}

func TestForceSubmitSkipsGating(t *testing.T) {
	api := &fakeTransport{}
	session, _, _ := newTestSession(t, api)

	// No answers recorded, no confirmation: time-up overrides both.
	require.NoError(t, session.ForceSubmit(context.Background()))
	require.Equal(t, PhaseSubmitted, session.Phase())
	require.Equal(t, 1, api.submitCount())
}

func TestForceSubmitIsIdempotent(t *testing.T) {
	api := &fakeTransport{}
	session, _, _ := newTestSession(t, api)

	require.NoError(t, session.ForceSubmit(context.Background()))
	require.NoError(t, session.ForceSubmit(context.Background()))
	require.NoError(t, session.ForceSubmit(context.Background()))

	require.Equal(t, 1, api.submitCount())
}

func TestForcedAndUserSubmitRaceOneTerminalState(t *testing.T) {
	api := &fakeTransport{}
	session, exam, _ := newTestSession(t, api)
	answerAll(t, session, exam)
	require.NoError(t, session.RequestSubmit())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = session.Confirm(context.Background())
	}()
	go func() {
		defer wg.Done()
		_ = session.ForceSubmit(context.Background())
	}()
	wg.Wait()

	require.Equal(t, 1, api.submitCount(), "only one submit may reach the server")
	require.Equal(t, PhaseSubmitted, session.Phase())
}

func TestDuplicateFromServerSettlesAlreadySubmitted(t *testing.T) {
	api := &fakeTransport{submitted: true}
	session, exam, cache := newTestSession(t, api)
	answerAll(t, session, exam)

	require.NoError(t, session.ForceSubmit(context.Background()))
	require.Equal(t, PhaseAlreadySubmitted, session.Phase())
	require.Nil(t, session.Receipt())

	_, ok := cache.Load(exam.ID.String())
	require.False(t, ok)
}

func TestSelectAnswerAfterTerminalPhase(t *testing.T) {
	api := &fakeTransport{}
	session, exam, _ := newTestSession(t, api)

	require.NoError(t, session.ForceSubmit(context.Background()))
	err := session.SelectAnswer(context.Background(), exam.Questions[0].ID.String(), "1")
	require.ErrorIs(t, err, ErrSessionOver)
}

func TestHandleTickSnapshotsOnBoundaries(t *testing.T) {
	api := &fakeTransport{}
	session, exam, cache := newTestSession(t, api)
	require.NoError(t, session.SelectAnswer(context.Background(), exam.Questions[0].ID.String(), "1"))
	cache.Clear(exam.ID.String())

	session.handleTick(1795) // not a boundary
	_, ok := cache.Load(exam.ID.String())
	require.False(t, ok)

	session.handleTick(1790) // 10-second boundary
	snap, ok := cache.Load(exam.ID.String())
	require.True(t, ok)
	require.Equal(t, 1790, snap.TimeRemaining)
}
