package service

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/models"
)

// LogFilter supports journal filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "CYCLE_STARTED", "STATE_CHANGE", ...
}

var errInvalidTimeRange = errors.New("invalid time range: From must be <= To")

// EventJournal is a bounded in-memory event log. When full, the oldest
// entries are evicted; durable history belongs to the MQTT consumers.
type EventJournal struct {
	mu       sync.RWMutex
	events   []models.Event
	capacity int
}

// NewEventJournal creates a journal holding at most capacity events.
func NewEventJournal(capacity int) *EventJournal {
	if capacity <= 0 {
		capacity = 1
	}
	return &EventJournal{capacity: capacity}
}

// Record appends a new event and returns it for publication.
func (j *EventJournal) Record(at time.Time, eventType, description string, metadata map[string]any) models.Event {
	ev := models.Event{
		EventID:     uuid.NewString(),
		OccurredAt:  at.UTC(),
		Type:        eventType,
		Description: description,
		Metadata:    metadata,
	}
	j.mu.Lock()
	j.events = append(j.events, ev)
	if len(j.events) > j.capacity {
		j.events = j.events[len(j.events)-j.capacity:]
	}
	j.mu.Unlock()
	return ev
}

// List returns the retained events matching the filter, oldest first.
func (j *EventJournal) List(f LogFilter) ([]models.Event, error) {
	from, to, typ, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]models.Event, 0, len(j.events))
	for _, ev := range j.events {
		if !from.IsZero() && ev.OccurredAt.Before(from) {
			continue
		}
		if !to.IsZero() && ev.OccurredAt.After(to) {
			continue
		}
		if typ != "" && ev.Type != typ {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// Len returns the number of retained events.
func (j *EventJournal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.events)
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeEventType trims spaces and uppercases the event type filter.
func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeAndValidateFilter prepares query parameters and validates the time range.
func normalizeAndValidateFilter(f LogFilter) (time.Time, time.Time, string, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, "", errInvalidTimeRange
	}

	eventType := normalizeEventType(f.Type)
	return from, to, eventType, nil
}
