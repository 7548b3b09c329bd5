package worker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/config"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/model"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/repository"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/service"
)

type fakeWriter struct {
	mu    sync.Mutex
	calls int
	final map[[2]uuid.UUID]bool
	last  []model.Answer
}

func (f *fakeWriter) UpsertAutosave(_ context.Context, examID, studentID uuid.UUID, answers []model.Answer, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.final[[2]uuid.UUID{examID, studentID}] {
		return repository.ErrSubmissionFinal
	}
	f.last = answers
	return nil
}

func enqueue(t *testing.T, rdb *redis.Client, payload service.AutosavePayload) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, rdb.RPush(context.Background(), config.WorkerKey.PersistAutosavesQueue, raw).Err())
}

func TestWorkerPersistsQueuedAutosave(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store := &fakeWriter{}
	w := NewAutosaveWorker(store, rdb, zerolog.Nop())

	examID, studentID, qID := uuid.New(), uuid.New(), uuid.New()
	enqueue(t, rdb, service.AutosavePayload{
		ExamID:    examID.String(),
		StudentID: studentID.String(),
		Answers:   []model.Answer{{QuestionID: qID, Answer: "2"}},
		TimeSpent: 45,
	})

	w.processNext(context.Background())

	require.Equal(t, 1, store.calls)
	require.Equal(t, "2", store.last[0].Answer)

	left, err := rdb.LLen(context.Background(), config.WorkerKey.PersistAutosavesQueue).Result()
	require.NoError(t, err)
	require.Zero(t, left)
}

func TestWorkerDropsStaleAutosaveForFinalAttempt(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	examID, studentID := uuid.New(), uuid.New()
	store := &fakeWriter{final: map[[2]uuid.UUID]bool{{examID, studentID}: true}}
	w := NewAutosaveWorker(store, rdb, zerolog.Nop())

	enqueue(t, rdb, service.AutosavePayload{
		ExamID:    examID.String(),
		StudentID: studentID.String(),
		TimeSpent: 45,
	})

	w.processNext(context.Background())

	// Dropped, not requeued: the attempt is already terminal.
	left, err := rdb.LLen(context.Background(), config.WorkerKey.PersistAutosavesQueue).Result()
	require.NoError(t, err)
	require.Zero(t, left)
}

func TestWorkerDropsMalformedPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store := &fakeWriter{}
	w := NewAutosaveWorker(store, rdb, zerolog.Nop())

	require.NoError(t, rdb.RPush(context.Background(), config.WorkerKey.PersistAutosavesQueue, "{not json").Err())
	w.processNext(context.Background())

	require.Zero(t, store.calls)
	left, err := rdb.LLen(context.Background(), config.WorkerKey.PersistAutosavesQueue).Result()
	require.NoError(t, err)
	require.Zero(t, left)
}

func TestWorkerDrainEmptiesQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store := &fakeWriter{}
	w := NewAutosaveWorker(store, rdb, zerolog.Nop())

	for i := 0; i < 5; i++ {
		enqueue(t, rdb, service.AutosavePayload{
			ExamID:    uuid.New().String(),
			StudentID: uuid.New().String(),
			TimeSpent: i,
		})
	}

	w.drain(context.Background())

	require.Equal(t, 5, store.calls)
	left, err := rdb.LLen(context.Background(), config.WorkerKey.PersistAutosavesQueue).Result()
	require.NoError(t, err)
	require.Zero(t, left)
}
