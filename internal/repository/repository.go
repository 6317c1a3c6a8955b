package repository

import (
	"database/sql"
	"time"

	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/models"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

// CounterStore persists the operational counters across restarts.
type CounterStore interface {
	// Load reads the persisted counters. Missing or corrupt files yield
	// zeroed counters together with the error for degraded-not-fatal
	// logging.
	Load() (models.OperationalCounters, error)

	// Save writes the counters atomically (write temp, then rename).
	Save(c models.OperationalCounters) error

	// ShouldResetAtMidnight reports, exactly once per local calendar day,
	// that the daily counters should reset. Only true inside the tolerance
	// window around local midnight, guarded by the stored last-reset date.
	ShouldResetAtMidnight(now time.Time, lastResetDate string) bool
}

type Repository struct {
	Counters CounterStore
	Auth     Authorization
}

func NewRepository(db *sql.DB, countersPath string) *Repository {
	return &Repository{
		Counters: NewCountersFile(countersPath),
		Auth:     NewUserRepository(db),
	}
}
