package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/models"
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/service"
)

func TestEventsHandler_ListAndValidation(t *testing.T) {
	auth := &mockAuth{parseID: 99}
	now := time.Now().UTC().Truncate(time.Second)
	events := []models.Event{
		{EventID: "e1", OccurredAt: now, Type: models.EventCycleStarted, Description: "heating cycle started"},
		{EventID: "e2", OccurredAt: now.Add(1 * time.Second), Type: models.EventStateChange, Description: "operating state normal -> manual"},
	}
	logs := &mockEventLog{resp: events}
	s := &service.Service{
		Authorization: auth,
		EventLog:      logs,
	}
	r := newTestRouter(s)

	// Invalid 'from': 400
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?from=notatime", nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 invalid 'from', got %d", w.Code)
	}

	// Inverted range: 400
	w = httptest.NewRecorder()
	q := "/api/v1/events?from=" + now.Add(time.Hour).Format(time.RFC3339) + "&to=" + now.Format(time.RFC3339)
	req = httptest.NewRequest(http.MethodGet, q, nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted range, got %d", w.Code)
	}

	// Valid range and type (lowercase normalized to upper before the journal)
	w = httptest.NewRecorder()
	q = "/api/v1/events?from=" + now.Format(time.RFC3339) + "&to=" + now.Add(2*time.Second).Format(time.RFC3339) + "&type=cycle_started"
	req = httptest.NewRequest(http.MethodGet, q, nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("events status=%d, body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count  int            `json:"count"`
		Events []models.Event `json:"events"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 2 || len(out.Events) != 2 {
		t.Fatalf("unexpected response: %+v", out)
	}
	if logs.lastFilter.Type != models.EventCycleStarted {
		t.Fatalf("expected type %q passed to the journal, got %q", models.EventCycleStarted, logs.lastFilter.Type)
	}
	if !logs.lastFilter.From.Equal(now) {
		t.Fatalf("expected from %v, got %v", now, logs.lastFilter.From)
	}

	// Date-only 'to' is expanded to end of day
	w = httptest.NewRecorder()
	day := now.Format("2006-01-02")
	req = httptest.NewRequest(http.MethodGet, "/api/v1/events?to="+day, nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("events status=%d, body=%s", w.Code, w.Body.String())
	}
	dayStart, _ := time.Parse("2006-01-02", day)
	wantTo := dayStart.Add(24*time.Hour - time.Nanosecond).UTC()
	if !logs.lastFilter.To.Equal(wantTo) {
		t.Fatalf("expected end-of-day to %v, got %v", wantTo, logs.lastFilter.To)
	}
}
