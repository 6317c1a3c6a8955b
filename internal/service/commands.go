package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/config"
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/control"
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/models"
)

// ValidationError reports a command rejected at the boundary.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid command: %s: %s", e.Field, e.Reason)
}

// LockoutError reports an actuator command rejected by the anti-cycle
// lockout. Wait is how long until the next command would be accepted.
type LockoutError struct {
	Role models.Role
	Wait time.Duration
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("%s command rejected by anti-cycle lockout, retry in %s", e.Role, e.Wait.Round(time.Millisecond))
}

// ErrQueueFull is returned when the intent queue cannot take more commands
// before the next tick drains it.
var ErrQueueFull = errors.New("command queue full")

// Commands is the single ingress gate for HTTP and MQTT commands. Intents
// are validated and lockout-checked here, then queued for the next tick.
// A rejected command is journaled as COMMAND_REJECTED and never queued.
type Commands struct {
	queue   chan models.Intent
	lockout *control.Lockout
	tracker *StatusTracker
	journal *EventJournal

	now func() time.Time
}

// NewCommands creates the gate with a bounded queue.
func NewCommands(queueSize int, tracker *StatusTracker, journal *EventJournal) *Commands {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Commands{
		queue:   make(chan models.Intent, queueSize),
		lockout: control.NewLockout(),
		tracker: tracker,
		journal: journal,
		now:     time.Now,
	}
}

// Submit validates an intent and queues it for the next control tick.
func (c *Commands) Submit(in models.Intent) error {
	if err := c.validate(in); err != nil {
		c.reject(in, err)
		return err
	}

	if role, ok := actuatorRole(in.Kind); ok {
		now := c.now()
		spacing := c.tracker.Params().AntiCycleLockout()
		if !c.lockout.Accept(role, now, spacing) {
			err := &LockoutError{Role: role, Wait: c.lockout.Remaining(role, now, spacing)}
			c.reject(in, err)
			return err
		}
	}

	select {
	case c.queue <- in:
		return nil
	default:
		c.reject(in, ErrQueueFull)
		return ErrQueueFull
	}
}

// Drain empties the queue without blocking, preserving submit order.
func (c *Commands) Drain() []models.Intent {
	var out []models.Intent
	for {
		select {
		case in := <-c.queue:
			out = append(out, in)
		default:
			return out
		}
	}
}

func (c *Commands) validate(in models.Intent) error {
	switch in.Kind {
	case models.IntentPumpStart, models.IntentPumpStop, models.IntentHeaterStart, models.IntentHeaterStop:
		return nil
	case models.IntentSetMode:
		if in.Mode != models.ModeAuto && in.Mode != models.ModeManual {
			return &ValidationError{Field: "mode", Reason: fmt.Sprintf("must be %q or %q", models.ModeAuto, models.ModeManual)}
		}
		return nil
	case models.IntentSetParameter:
		// Trial-apply against the current parameters so a change that would
		// break a structural invariant is refused with immediate feedback.
		candidate := c.tracker.Params()
		if err := candidate.Set(in.Name, in.Value); err != nil {
			return &ValidationError{Field: "name", Reason: err.Error()}
		}
		if err := config.ValidateParams(candidate); err != nil {
			var inv *config.InvariantError
			if errors.As(err, &inv) {
				return &ValidationError{Field: inv.Key, Reason: inv.Reason}
			}
			return &ValidationError{Field: in.Name, Reason: err.Error()}
		}
		return nil
	default:
		return &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown command kind %q", in.Kind)}
	}
}

// reject journals the refusal so operators can audit dropped commands.
func (c *Commands) reject(in models.Intent, cause error) {
	c.journal.Record(c.now(), models.EventCommandRejected, "command rejected: "+cause.Error(), map[string]any{
		"kind":   string(in.Kind),
		"origin": string(in.Origin),
	})
}

// actuatorRole maps actuator intents to the role the lockout tracks.
func actuatorRole(kind models.IntentKind) (models.Role, bool) {
	switch kind {
	case models.IntentPumpStart, models.IntentPumpStop:
		return models.RolePump, true
	case models.IntentHeaterStart, models.IntentHeaterStop:
		return models.RoleHeater, true
	}
	return "", false
}
