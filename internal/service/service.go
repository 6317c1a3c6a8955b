package service

import (
	"context"
	"time"

	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/config"
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/logger"
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/models"
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/repository"
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/sensors"
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/telemetry"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Control accepts validated command intents for the next tick.
type Control interface {
	Submit(in models.Intent) error
}

// Monitoring exposes the latest loop output read-only.
type Monitoring interface {
	Status() models.StatusRecord
	Counters() models.OperationalCounters
}

// EventLog exposes the bounded journal with filtering access.
type EventLog interface {
	List(f LogFilter) ([]models.Event, error)
}

// Loop runs the ticking control goroutine. Stop via context cancellation
// in main() for graceful shutdown.
type Loop interface {
	Run(ctx context.Context, tick time.Duration)
}

// journalCapacity bounds the in-memory event log; older entries are
// evicted. Durable history belongs to the MQTT consumers.
const journalCapacity = 1000

//
// Root Service aggregates all sub-services.
//

type Service struct {
	Control
	Monitoring
	EventLog
	Loop
	Authorization
}

// NewService wires the repository layer, hardware bus and telemetry
// publisher into the concrete services around one shared tracker, journal
// and command gate.
func NewService(cfg *config.Config, repos *repository.Repository, bus sensors.Bus,
	pub telemetry.Publisher, log *logger.Logger) *Service {
	tracker := NewStatusTracker(cfg.Control)
	journal := NewEventJournal(journalCapacity)
	commands := NewCommands(cfg.Loop.CommandQueueSize, tracker, journal)
	return &Service{
		Control:       commands,
		Monitoring:    tracker,
		EventLog:      journal,
		Loop:          NewControlLoop(cfg, repos.Counters, bus, pub, commands, tracker, journal, log),
		Authorization: NewAuthService(cfg.Auth, repos.Auth),
	}
}
