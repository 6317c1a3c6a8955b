// Package telemetry publishes rig status, events and energy aggregates over
// MQTT and feeds inbound commands back to the control loop. Publishing is
// best effort: a broker outage never stalls a control tick.
package telemetry

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/models"
)

// Topics is the rig's topic layout under one configurable prefix.
type Topics struct {
	Status     string // per-tick status records, QoS 0
	Events     string // journal events, QoS 1
	EnergyHour string // completed hourly aggregates, QoS 1
	EnergyDay  string // completed daily aggregates, QoS 1
	Command    string // inbound command intents
	PelletAux  string // inbound pellet burner flag
}

// NewTopics builds the topic layout for a prefix.
func NewTopics(prefix string) Topics {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		prefix = "sunheat"
	}
	return Topics{
		Status:     prefix + "/status",
		Events:     prefix + "/events",
		EnergyHour: prefix + "/energy/hour",
		EnergyDay:  prefix + "/energy/day",
		Command:    prefix + "/command",
		PelletAux:  prefix + "/aux/pellet",
	}
}

// Publisher delivers control loop output to external consumers.
type Publisher interface {
	// PublishStatus sends the per-tick status record. Statuses go stale
	// immediately, so they are dropped while the broker is unreachable.
	PublishStatus(rec models.StatusRecord) error

	// PublishEvent sends a journal event. Buffered across outages.
	PublishEvent(ev models.Event) error

	// PublishAggregate sends a completed hour or day bucket. Buffered
	// across outages.
	PublishAggregate(agg models.PeriodAggregate) error

	// Close disconnects from the broker.
	Close() error
}

// statusEnvelope wraps a status record with a normalized UTC timestamp.
type statusEnvelope struct {
	Timestamp string              `json:"timestamp"`
	Status    models.StatusRecord `json:"status"`
}

type eventEnvelope struct {
	Timestamp string       `json:"timestamp"`
	Event     models.Event `json:"event"`
}

type aggregateEnvelope struct {
	Timestamp string                 `json:"timestamp"`
	Aggregate models.PeriodAggregate `json:"aggregate"`
}

// FormatStatus creates the JSON payload for a status record.
func FormatStatus(rec models.StatusRecord) ([]byte, error) {
	return json.Marshal(statusEnvelope{
		Timestamp: rec.Timestamp.UTC().Format(time.RFC3339),
		Status:    rec,
	})
}

// FormatEvent creates the JSON payload for a journal event.
func FormatEvent(ev models.Event) ([]byte, error) {
	return json.Marshal(eventEnvelope{
		Timestamp: ev.OccurredAt.UTC().Format(time.RFC3339),
		Event:     ev,
	})
}

// FormatAggregate creates the JSON payload for a period aggregate. The
// envelope timestamp is the period end, the moment the bucket completed.
func FormatAggregate(agg models.PeriodAggregate) ([]byte, error) {
	return json.Marshal(aggregateEnvelope{
		Timestamp: agg.End.UTC().Format(time.RFC3339),
		Aggregate: agg,
	})
}

// Nop discards everything. Used when MQTT is disabled.
type Nop struct{}

func (Nop) PublishStatus(models.StatusRecord) error       { return nil }
func (Nop) PublishEvent(models.Event) error               { return nil }
func (Nop) PublishAggregate(models.PeriodAggregate) error { return nil }
func (Nop) Close() error                                  { return nil }
