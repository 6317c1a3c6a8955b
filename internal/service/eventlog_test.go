package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/models"
)

func fixedZone(name string, offsetSec int) *time.Location {
	return time.FixedZone(name, offsetSec)
}

func mustTimeIn(loc *time.Location, y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, loc)
}

// normalizeToUTC

func Test_normalizeToUTC(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   time.Time
		want func(time.Time) bool
	}{
		{
			name: "zero time remains zero",
			in:   time.Time{},
			want: func(out time.Time) bool { return out.IsZero() },
		},
		{
			name: "non-UTC converted to UTC preserving instant",
			in:   mustTimeIn(fixedZone("UTC+3", 3*3600), 2026, time.August, 1, 12, 34, 56),
			want: func(out time.Time) bool {
				exp := time.Date(2026, time.August, 1, 9, 34, 56, 0, time.UTC) // 12:34:56+03 == 09:34:56Z
				return out.Location() == time.UTC && out.Equal(exp)
			},
		},
		{
			name: "already UTC stays UTC and same instant",
			in:   time.Date(2026, time.August, 2, 0, 0, 0, 0, time.UTC),
			want: func(out time.Time) bool {
				exp := time.Date(2026, time.August, 2, 0, 0, 0, 0, time.UTC)
				return out.Location() == time.UTC && out.Equal(exp)
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := normalizeToUTC(tc.in)
			if !tc.want(got) {
				t.Fatalf("unexpected normalizeToUTC result: %v (loc=%v)", got, got.Location())
			}
		})
	}
}

// normalizeEventType

func Test_normalizeEventType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		exp  string
	}{
		{name: "empty stays empty", in: "", exp: ""},
		{name: "trim spaces", in: "  CYCLE_STARTED ", exp: "CYCLE_STARTED"},
		{name: "uppercase", in: "state_change", exp: "STATE_CHANGE"},
		{name: "spaces preserved except ends", in: " midnight_reset ", exp: "MIDNIGHT_RESET"},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			got := normalizeEventType(c.in)
			if got != c.exp {
				t.Fatalf("normalizeEventType(%q) = %q; want %q", c.in, got, c.exp)
			}
		})
	}
}

// normalizeAndValidateFilter

func Test_normalizeAndValidateFilter(t *testing.T) {
	t.Parallel()

	fromLocal := mustTimeIn(fixedZone("UTC+2", 2*3600), 2026, time.June, 10, 10, 0, 0)
	toUTC := time.Date(2026, time.June, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		in       LogFilter
		wantFrom time.Time
		wantTo   time.Time
		wantType string
		wantErr  error
	}{
		{
			name:     "all zero/empty ok",
			in:       LogFilter{},
			wantFrom: time.Time{},
			wantTo:   time.Time{},
			wantType: "",
			wantErr:  nil,
		},
		{
			name: "from after to -> error",
			in: LogFilter{
				From: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
				To:   time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC),
				Type: "cycle_started",
			},
			wantErr: errInvalidTimeRange,
		},
		{
			name: "normalize tz and type",
			in: LogFilter{
				From: fromLocal,
				To:   toUTC,
				Type: " cycle_started ",
			},
			wantFrom: time.Date(2026, time.June, 10, 8, 0, 0, 0, time.UTC), // 10:00 +02 -> 08:00Z
			wantTo:   toUTC,
			wantType: "CYCLE_STARTED",
			wantErr:  nil,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			gotFrom, gotTo, gotType, err := normalizeAndValidateFilter(tc.in)

			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected err %v; got %v", tc.wantErr, err)
			}
			// Only assert non-zero expectations for times
			if !tc.wantFrom.IsZero() && !gotFrom.Equal(tc.wantFrom) {
				t.Fatalf("from: got %v; want %v", gotFrom, tc.wantFrom)
			}
			if !tc.wantTo.IsZero() && !gotTo.Equal(tc.wantTo) {
				t.Fatalf("to: got %v; want %v", gotTo, tc.wantTo)
			}
			if tc.wantType != "" && gotType != tc.wantType {
				t.Fatalf("type: got %q; want %q", gotType, tc.wantType)
			}
		})
	}
}

// EventJournal

func TestEventJournal_RecordAssignsIDAndUTC(t *testing.T) {
	t.Parallel()

	j := NewEventJournal(10)
	at := mustTimeIn(fixedZone("UTC+2", 2*3600), 2026, time.June, 1, 14, 0, 0)

	ev := j.Record(at, models.EventCycleStarted, "heating cycle started", map[string]any{"dT": 9.5})

	if ev.EventID == "" {
		t.Fatalf("expected a generated event id")
	}
	if ev.OccurredAt.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp, got %v", ev.OccurredAt.Location())
	}
	want := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)
	if !ev.OccurredAt.Equal(want) {
		t.Fatalf("occurred_at: got %v; want %v", ev.OccurredAt, want)
	}
	if j.Len() != 1 {
		t.Fatalf("expected 1 retained event, got %d", j.Len())
	}
}

func TestEventJournal_ListFiltersByTypeAndRange(t *testing.T) {
	t.Parallel()

	j := NewEventJournal(100)
	base := time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC)
	j.Record(base, models.EventCycleStarted, "cycle 1", nil)
	j.Record(base.Add(10*time.Minute), models.EventStateChange, "state change", nil)
	j.Record(base.Add(20*time.Minute), models.EventCycleEnded, "cycle 1 done", nil)
	j.Record(base.Add(30*time.Minute), models.EventCycleStarted, "cycle 2", nil)

	// type filter, case-insensitive input
	out, err := j.List(LogFilter{Type: " cycle_started "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 CYCLE_STARTED events, got %d", len(out))
	}
	if out[0].Description != "cycle 1" || out[1].Description != "cycle 2" {
		t.Fatalf("expected chronological order, got %q then %q", out[0].Description, out[1].Description)
	}

	// inclusive time bounds
	out, err = j.List(LogFilter{From: base.Add(10 * time.Minute), To: base.Add(20 * time.Minute)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 events in inclusive range, got %d", len(out))
	}

	// combined
	out, err = j.List(LogFilter{From: base.Add(5 * time.Minute), Type: "cycle_started"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Description != "cycle 2" {
		t.Fatalf("unexpected combined filter result: %+v", out)
	}
}

func TestEventJournal_ListInvalidRange(t *testing.T) {
	t.Parallel()

	j := NewEventJournal(10)
	_, err := j.List(LogFilter{
		From: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, errInvalidTimeRange) {
		t.Fatalf("expected errInvalidTimeRange; got %v", err)
	}
}

func TestEventJournal_EvictsOldestAtCapacity(t *testing.T) {
	t.Parallel()

	j := NewEventJournal(5)
	base := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		j.Record(base.Add(time.Duration(i)*time.Minute), models.EventStateChange, fmt.Sprintf("ev %d", i), nil)
	}

	if j.Len() != 5 {
		t.Fatalf("expected capacity 5 retained, got %d", j.Len())
	}
	out, err := j.List(LogFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0].Description != "ev 3" || out[len(out)-1].Description != "ev 7" {
		t.Fatalf("expected oldest evicted, got first=%q last=%q", out[0].Description, out[len(out)-1].Description)
	}
}
