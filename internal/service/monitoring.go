package service

import (
	"sync"
	"time"

	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/models"
)

// StatusTracker holds the latest control loop output for API, websocket and
// command-validation readers. The loop is the only writer.
type StatusTracker struct {
	mu       sync.RWMutex
	status   models.StatusRecord
	counters models.OperationalCounters
}

// NewStatusTracker seeds the tracker with the boot-time parameters so
// command validation works before the first tick completes.
func NewStatusTracker(initial models.ControlParameters) *StatusTracker {
	return &StatusTracker{
		status: models.StatusRecord{
			Timestamp: time.Now().UTC(),
			State:     models.StateNormal,
			Params:    initial,
		},
	}
}

// SetStatus replaces the published status record.
func (t *StatusTracker) SetStatus(rec models.StatusRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = rec
}

// Status returns the latest status record.
func (t *StatusTracker) Status() models.StatusRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// SetCounters replaces the published operational counters.
func (t *StatusTracker) SetCounters(c models.OperationalCounters) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counters = c
}

// Counters returns the latest operational counters.
func (t *StatusTracker) Counters() models.OperationalCounters {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.counters
}

// Params returns the control parameters of the latest status record.
func (t *StatusTracker) Params() models.ControlParameters {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status.Params
}
