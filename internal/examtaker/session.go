package examtaker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/model"
)

// Phase is the submission lifecycle state of a session.
type Phase string

const (
	PhaseAnswering        Phase = "answering"
	PhaseConfirming       Phase = "confirming"
	PhaseSubmitting       Phase = "submitting"
	PhaseSubmitted        Phase = "submitted"
	PhaseAlreadySubmitted Phase = "already-submitted"
)

// Session errors.
var (
	ErrQuestionsRemaining = errors.New("unanswered questions remain")
	ErrNotConfirming      = errors.New("no submission is awaiting confirmation")
	ErrSessionOver        = errors.New("the attempt has ended")
)

// Transport is the API surface a session needs; *Client satisfies it.
type Transport interface {
	Autosave(ctx context.Context, examID string, req model.SaveProgressRequest) error
	Submit(ctx context.Context, examID string, req model.SaveProgressRequest) (*model.SubmissionReceipt, error)
}

// Session runs one exam attempt: it owns the countdown timer, records
// answers, keeps the local snapshot and server autosave in step, and
// drives the submit state machine. Submission happens at most once, no
// matter how expiry and user action interleave.
type Session struct {
	exam  *model.ExamForStudent
	cache *ProgressCache
	api   Transport
	log   zerolog.Logger
	timer *Timer

	mu        sync.Mutex
	phase     Phase
	answers   map[string]string
	current   int
	remaining int
	receipt   *model.SubmissionReceipt
}

// NewSession creates a session from reconciled initial state. Call Start
// to begin the countdown.
func NewSession(exam *model.ExamForStudent, state SessionState, cache *ProgressCache, api Transport, log zerolog.Logger) *Session {
	s := &Session{
		exam:      exam,
		cache:     cache,
		api:       api,
		log:       log.With().Str("component", "exam_session").Str("exam_id", exam.ID.String()).Logger(),
		phase:     PhaseAnswering,
		answers:   state.Answers,
		current:   state.CurrentQuestion,
		remaining: state.TimeRemaining,
	}
	s.timer = NewTimer(state.Deadline, s.handleTick, s.handleExpiry)
	return s
}

// Start runs the countdown until the attempt ends or ctx is cancelled.
// Blocks; call in a goroutine when driving a UI.
func (s *Session) Start(ctx context.Context) {
	s.timer.Start(ctx)
}

// Close stops the timer without submitting. Resume state stays cached.
func (s *Session) Close() {
	s.timer.Stop()
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Remaining returns the seconds left on the attempt clock.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Receipt returns the submission receipt once the session reaches
// PhaseSubmitted, nil before then.
func (s *Session) Receipt() *model.SubmissionReceipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.receipt
}

// Answers returns a copy of the current answer map.
func (s *Session) Answers() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// CurrentQuestion returns the index of the question in view.
func (s *Session) CurrentQuestion() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SetCurrentQuestion records which question is in view, for resume.
func (s *Session) SetCurrentQuestion(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i >= 0 && i < len(s.exam.Questions) {
		s.current = i
	}
}

// SelectAnswer records an answer, snapshots locally, and pushes to the
// server in the background. The local write happens first so the cache
// covers the answer even if the push never lands.
func (s *Session) SelectAnswer(ctx context.Context, questionID, answer string) error {
	s.mu.Lock()
	if s.phase != PhaseAnswering && s.phase != PhaseConfirming {
		s.mu.Unlock()
		return ErrSessionOver
	}
	s.answers[questionID] = answer
	s.mu.Unlock()

	s.saveSnapshot()
	go s.push(ctx)
	return nil
}

// RequestSubmit moves answering → confirming, but only when every
// question has an answer. An incomplete attempt stays in answering.
func (s *Session) RequestSubmit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseAnswering:
	case PhaseSubmitted, PhaseAlreadySubmitted:
		return ErrSessionOver
	default:
		return nil
	}

	unanswered := 0
	for _, q := range s.exam.Questions {
		if s.answers[q.ID.String()] == "" {
			unanswered++
		}
	}
	if unanswered > 0 {
		return fmt.Errorf("%w: %d left", ErrQuestionsRemaining, unanswered)
	}

	s.phase = PhaseConfirming
	return nil
}

// Cancel moves confirming → answering with no side effects.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseConfirming {
		s.phase = PhaseAnswering
	}
}

// Confirm performs the terminal submit after the user confirmed intent.
// Only valid from confirming; an accidental call before RequestSubmit
// cannot submit.
func (s *Session) Confirm(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != PhaseConfirming {
		s.mu.Unlock()
		return ErrNotConfirming
	}
	s.phase = PhaseSubmitting
	s.mu.Unlock()

	return s.submit(ctx)
}

// ForceSubmit submits regardless of completeness or confirmation; the
// timer calls it on expiry. Idempotent: once a submit is in flight or the
// session is terminal, it does nothing.
func (s *Session) ForceSubmit(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != PhaseAnswering && s.phase != PhaseConfirming {
		s.mu.Unlock()
		return nil
	}
	s.phase = PhaseSubmitting
	s.mu.Unlock()

	return s.submit(ctx)
}

// submit owns the submitting phase: exactly one caller reaches here per
// attempt at a time, because entering PhaseSubmitting is guarded by the
// phase check under the mutex.
func (s *Session) submit(ctx context.Context) error {
	req := s.progressRequest()

	receipt, err := s.api.Submit(ctx, s.exam.ID.String(), req)

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case err == nil:
		s.phase = PhaseSubmitted
		s.receipt = receipt
		s.timer.Stop()
		s.cache.Clear(s.exam.ID.String())
		s.log.Info().Str("status", string(receipt.Status)).Msg("Submitted")
		return nil
	case errors.Is(err, ErrAlreadySubmitted):
		// The server already holds a terminal record; settle rather
		// than retry.
		s.phase = PhaseAlreadySubmitted
		s.timer.Stop()
		s.cache.Clear(s.exam.ID.String())
		return nil
	default:
		// Local state is intact; the user may retry.
		s.phase = PhaseAnswering
		s.log.Warn().Err(err).Msg("Submit failed, returning to answering")
		return err
	}
}

// handleTick runs once per second while the clock is live. The snapshot
// is written on 10-second boundaries and the server autosave pushed on
// 30-second boundaries, so neither write happens every tick.
func (s *Session) handleTick(remaining int) {
	s.mu.Lock()
	s.remaining = remaining
	s.mu.Unlock()

	if remaining%10 == 0 {
		s.saveSnapshot()
	}
	if remaining%30 == 0 {
		go s.push(context.Background())
	}
}

// handleExpiry forces the submit when the clock runs out.
func (s *Session) handleExpiry() {
	s.mu.Lock()
	s.remaining = 0
	s.mu.Unlock()

	s.log.Info().Msg("Time expired, forcing submit")
	if err := s.ForceSubmit(context.Background()); err != nil {
		s.log.Error().Err(err).Msg("Forced submit failed")
	}
}

// saveSnapshot writes the resume snapshot. Failures are warnings; the
// server autosave still covers resume on another machine.
func (s *Session) saveSnapshot() {
	s.mu.Lock()
	snap := Snapshot{
		Answers:         make(map[string]string, len(s.answers)),
		CurrentQuestion: s.current,
		TimeRemaining:   s.remaining,
		Deadline:        s.timer.Deadline(),
	}
	for k, v := range s.answers {
		snap.Answers[k] = v
	}
	examID := s.exam.ID.String()
	s.mu.Unlock()

	if err := s.cache.Save(examID, snap); err != nil {
		s.log.Warn().Err(err).Msg("Snapshot write failed")
	}
}

// push sends the current answers to the server. Failures are non-fatal:
// the snapshot remains the fallback until the next push lands.
func (s *Session) push(ctx context.Context) {
	s.mu.Lock()
	if s.phase != PhaseAnswering && s.phase != PhaseConfirming {
		s.mu.Unlock()
		return
	}
	req := s.progressRequestLocked()
	examID := s.exam.ID.String()
	s.mu.Unlock()

	if err := s.api.Autosave(ctx, examID, req); err != nil {
		if errors.Is(err, ErrAlreadySubmitted) {
			s.mu.Lock()
			if s.phase == PhaseAnswering || s.phase == PhaseConfirming {
				s.phase = PhaseAlreadySubmitted
				s.timer.Stop()
			}
			s.mu.Unlock()
			return
		}
		s.log.Warn().Err(err).Msg("Autosave push failed")
	}
}

func (s *Session) progressRequest() model.SaveProgressRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressRequestLocked()
}

// progressRequestLocked builds the wire payload; callers hold s.mu.
func (s *Session) progressRequestLocked() model.SaveProgressRequest {
	answers := make([]model.AnswerInput, 0, len(s.answers))
	for _, q := range s.exam.Questions {
		if v, ok := s.answers[q.ID.String()]; ok {
			answers = append(answers, model.AnswerInput{QuestionID: q.ID, Answer: v})
		}
	}
	return model.SaveProgressRequest{
		Answers:   answers,
		TimeSpent: s.exam.DurationMinutes*60 - s.remaining,
	}
}
