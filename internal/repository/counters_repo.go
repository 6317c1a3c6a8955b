package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/models"
)

// midnightWindow is the tolerance around local midnight inside which the
// daily reset may fire, absorbing tick scheduling jitter.
const midnightWindow = 5 * time.Second

// PersistError wraps a failed counters load or save. Never fatal: callers
// keep the in-memory counters and retry on the next save interval.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("counters %s: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// CountersFile stores the operational counters as a single JSON record,
// written atomically so a crash mid-write never corrupts the last good
// state.
type CountersFile struct {
	path string

	mu      sync.Mutex
	granted string // window day already granted in this process
}

func NewCountersFile(path string) *CountersFile {
	return &CountersFile{path: path}
}

// Load reads the persisted record. First boot (no file) returns zeroed
// counters without error; a corrupt file returns zeroed counters plus the
// error so the caller can log the degradation and continue.
func (s *CountersFile) Load() (models.OperationalCounters, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.OperationalCounters{}, nil
		}
		return models.OperationalCounters{}, &PersistError{Op: "load", Err: err}
	}
	var c models.OperationalCounters
	if err := json.Unmarshal(data, &c); err != nil {
		return models.OperationalCounters{}, &PersistError{Op: "load", Err: err}
	}
	return c, nil
}

// Save writes the counters to a temp file in the target directory and
// renames it over the previous record.
func (s *CountersFile) Save(c models.OperationalCounters) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return &PersistError{Op: "save", Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return &PersistError{Op: "save", Err: err}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &PersistError{Op: "save", Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return &PersistError{Op: "save", Err: err}
	}
	return nil
}

// ShouldResetAtMidnight grants the daily reset at most once per calendar
// day. The window [midnight-5s, midnight+5s] belongs to the day starting at
// that midnight, so a reset granted just before midnight is not repeated
// just after it. Repeated evaluation within one window returns true exactly
// once.
func (s *CountersFile) ShouldResetAtMidnight(now time.Time, lastResetDate string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	day, ok := MidnightWindowDay(now)
	if !ok {
		return false
	}
	key := day.Format(models.ResetDateLayout)
	if key == lastResetDate || key == s.granted {
		return false
	}
	s.granted = key
	return true
}

// MidnightWindowDay returns the calendar day owning the nearest local
// midnight, and whether now falls inside the reset tolerance window around
// it.
func MidnightWindowDay(now time.Time) (time.Time, bool) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if now.Sub(dayStart) <= midnightWindow {
		return dayStart, true
	}
	next := dayStart.AddDate(0, 0, 1)
	if next.Sub(now) <= midnightWindow {
		return next, true
	}
	return time.Time{}, false
}
