package examtaker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Snapshot is the durable resume record for one exam attempt: the answer
// map, the question the student was on, and the clock state. Deadline is
// persisted so a restart counts down against the original deadline
// rather than granting fresh time.
type Snapshot struct {
	Answers         map[string]string `json:"answers"`
	CurrentQuestion int               `json:"current_question"`
	TimeRemaining   int               `json:"time_remaining"`
	Deadline        time.Time         `json:"deadline"`
}

// ProgressCache stores one snapshot file per exam id under a directory.
// Reads fail soft: a missing or corrupt file reads as "no snapshot", never
// as an error the caller must handle.
type ProgressCache struct {
	dir string
	log zerolog.Logger
}

// NewProgressCache creates a cache rooted at dir, creating it if needed.
func NewProgressCache(dir string, log zerolog.Logger) (*ProgressCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &ProgressCache{
		dir: dir,
		log: log.With().Str("component", "progress_cache").Logger(),
	}, nil
}

// Save writes the snapshot for an exam, replacing any previous one.
func (c *ProgressCache) Save(examID string, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	path := c.path(examID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Load returns the last saved snapshot for an exam, or ok=false if none
// exists or the stored record is unreadable.
func (c *ProgressCache) Load(examID string) (Snapshot, bool) {
	data, err := os.ReadFile(c.path(examID))
	if err != nil {
		return Snapshot{}, false
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		c.log.Warn().Err(err).Str("exam_id", examID).Msg("Corrupt snapshot, discarding")
		c.Clear(examID)
		return Snapshot{}, false
	}
	if snap.Answers == nil {
		snap.Answers = map[string]string{}
	}
	return snap, true
}

// Clear removes the snapshot for an exam. Removing a missing snapshot is
// not an error.
func (c *ProgressCache) Clear(examID string) {
	if err := os.Remove(c.path(examID)); err != nil && !os.IsNotExist(err) {
		c.log.Warn().Err(err).Str("exam_id", examID).Msg("Failed to clear snapshot")
	}
}

func (c *ProgressCache) path(examID string) string {
	return filepath.Join(c.dir, "exam-"+examID+".json")
}
