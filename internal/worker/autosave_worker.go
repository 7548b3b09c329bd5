package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/config"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/model"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/repository"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/service"
)

// SubmissionWriter is the subset of the submission store the worker needs.
type SubmissionWriter interface {
	UpsertAutosave(ctx context.Context, examID, studentID uuid.UUID, answers []model.Answer, timeSpent int) error
}

// AutosaveWorker consumes the persist queue and upserts in-progress
// submissions to PostgreSQL. A payload targeting an already-finalized
// attempt is dropped, not retried — the status guard in the store is what
// keeps a late autosave from reopening a finished submission.
type AutosaveWorker struct {
	store SubmissionWriter
	rdb   *redis.Client
	log   zerolog.Logger
}

// NewAutosaveWorker creates a new AutosaveWorker.
func NewAutosaveWorker(store SubmissionWriter, rdb *redis.Client, log zerolog.Logger) *AutosaveWorker {
	return &AutosaveWorker{
		store: store,
		rdb:   rdb,
		log:   log.With().Str("component", "autosave_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine; cancel the context to
// stop. Remaining queue items are drained before exit.
func (w *AutosaveWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *AutosaveWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or timeout (1 second).
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistAutosavesQueue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	if err := w.persist(ctx, []byte(result[1])); err != nil {
		w.log.Error().Err(err).Msg("Persist error, retrying in 5s")
		w.rdb.RPush(ctx, config.WorkerKey.PersistAutosavesQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *AutosaveWorker) persist(ctx context.Context, raw []byte) error {
	var payload service.AutosavePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		// Malformed payloads are unrecoverable; log and drop.
		w.log.Error().Err(err).Msg("Unmarshal error, dropping item")
		return nil
	}

	examID, err := uuid.Parse(payload.ExamID)
	if err != nil {
		w.log.Error().Err(err).Str("exam_id", payload.ExamID).Msg("Invalid exam id, dropping item")
		return nil
	}
	studentID, err := uuid.Parse(payload.StudentID)
	if err != nil {
		w.log.Error().Err(err).Str("student_id", payload.StudentID).Msg("Invalid student id, dropping item")
		return nil
	}

	err = w.store.UpsertAutosave(ctx, examID, studentID, payload.Answers, payload.TimeSpent)
	if errors.Is(err, repository.ErrSubmissionFinal) {
		// The attempt was submitted while this save sat in the queue.
		w.log.Debug().
			Str("exam_id", payload.ExamID).
			Str("student_id", payload.StudentID).
			Msg("Attempt already finalized, dropping stale autosave")
		return nil
	}
	return err
}

// drain processes all remaining items in the queue before shutdown.
func (w *AutosaveWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistAutosavesQueue).Result()
		if err != nil {
			break
		}

		if err := w.persist(ctx, []byte(result)); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.PersistAutosavesQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
