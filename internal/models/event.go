package models

import "time"

// Event types recorded in the journal and published to the bus.
const (
	EventCycleStarted    = "CYCLE_STARTED"
	EventCycleEnded      = "CYCLE_ENDED"
	EventStateChange     = "STATE_CHANGE"
	EventDegradedCycle   = "DEGRADED_CYCLE"
	EventCommandRejected = "COMMAND_REJECTED"
	EventActuatorFault   = "ACTUATOR_FAULT"
	EventMidnightReset   = "MIDNIGHT_RESET"
)

// Event is a single journal entry.
type Event struct {
	EventID     string         `json:"event_id"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}
