package telemetry

import (
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/models"
)

// Fake records everything published, for test assertions.
type Fake struct {
	// Statuses contains the published status records, in order.
	Statuses []models.StatusRecord

	// Events contains the published journal events.
	Events []models.Event

	// Aggregates contains the published period aggregates.
	Aggregates []models.PeriodAggregate

	// Err, if set, is returned by every publish method.
	Err error

	// Closed tracks whether Close was called.
	Closed bool
}

// NewFake creates a Fake publisher for testing.
func NewFake() *Fake { return &Fake{} }

// PublishStatus records the status record.
func (f *Fake) PublishStatus(rec models.StatusRecord) error {
	if f.Err != nil {
		return f.Err
	}
	f.Statuses = append(f.Statuses, rec)
	return nil
}

// PublishEvent records the event.
func (f *Fake) PublishEvent(ev models.Event) error {
	if f.Err != nil {
		return f.Err
	}
	f.Events = append(f.Events, ev)
	return nil
}

// PublishAggregate records the aggregate.
func (f *Fake) PublishAggregate(agg models.PeriodAggregate) error {
	if f.Err != nil {
		return f.Err
	}
	f.Aggregates = append(f.Aggregates, agg)
	return nil
}

// Close marks the publisher as closed.
func (f *Fake) Close() error {
	f.Closed = true
	return nil
}

// EventsOfType returns the recorded events matching one type.
func (f *Fake) EventsOfType(eventType string) []models.Event {
	var out []models.Event
	for _, ev := range f.Events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}
