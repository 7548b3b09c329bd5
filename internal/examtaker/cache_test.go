package examtaker

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *ProgressCache {
	t.Helper()
	cache, err := NewProgressCache(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	return cache
}

func TestCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t)

	snap := Snapshot{
		Answers:         map[string]string{"q-1": "2", "q-2": "a short essay"},
		CurrentQuestion: 3,
		TimeRemaining:   1742,
		Deadline:        time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, cache.Save("exam-a", snap))

	loaded, ok := cache.Load("exam-a")
	require.True(t, ok)
	require.Equal(t, snap, loaded)
}

func TestCacheLoadMissing(t *testing.T) {
	cache := newTestCache(t)

	_, ok := cache.Load("never-saved")
	require.False(t, ok)
}

func TestCacheCorruptRecordReadsAsNone(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewProgressCache(dir, zerolog.Nop())
	require.NoError(t, err)

	path := filepath.Join(dir, "exam-broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{truncated"), 0o644))

	_, ok := cache.Load("broken")
	require.False(t, ok)

	// The corrupt file is discarded so the next load is clean too.
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestCacheSnapshotsAreNamespacedByExam(t *testing.T) {
	cache := newTestCache(t)

	require.NoError(t, cache.Save("exam-a", Snapshot{TimeRemaining: 100}))
	require.NoError(t, cache.Save("exam-b", Snapshot{TimeRemaining: 200}))

	a, ok := cache.Load("exam-a")
	require.True(t, ok)
	require.Equal(t, 100, a.TimeRemaining)

	b, ok := cache.Load("exam-b")
	require.True(t, ok)
	require.Equal(t, 200, b.TimeRemaining)
}

func TestCacheClear(t *testing.T) {
	cache := newTestCache(t)

	require.NoError(t, cache.Save("exam-a", Snapshot{TimeRemaining: 100}))
	cache.Clear("exam-a")

	_, ok := cache.Load("exam-a")
	require.False(t, ok)

	// Clearing twice is harmless.
	cache.Clear("exam-a")
}

func TestCacheSaveReplacesPrevious(t *testing.T) {
	cache := newTestCache(t)

	require.NoError(t, cache.Save("exam-a", Snapshot{TimeRemaining: 500}))
	require.NoError(t, cache.Save("exam-a", Snapshot{TimeRemaining: 400}))

	loaded, ok := cache.Load("exam-a")
	require.True(t, ok)
	require.Equal(t, 400, loaded.TimeRemaining)
}
