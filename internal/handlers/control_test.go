package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/models"
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/service"
)

func TestControlHandlers_StatusAndCommands(t *testing.T) {
	auth := &mockAuth{parseID: 7}
	mon := &mockMonitoring{
		status: models.StatusRecord{
			Timestamp: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
			State:     models.StateCollectorCooling,
			PumpOn:    true,
		},
		counters: models.OperationalCounters{HeatingCyclesCount: 3, PumpRuntimeHours: 1.5},
	}
	ctl := &mockControl{}
	s := &service.Service{
		Authorization: auth,
		Monitoring:    mon,
		Control:       ctl,
	}
	r := newTestRouter(s)

	// GET status requires auth: 401 without header
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without auth, got %d", w.Code)
	}

	// With auth: 200 plus status and counters
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
	}
	var statusResp struct {
		Status   models.StatusRecord        `json:"status"`
		Counters models.OperationalCounters `json:"counters"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &statusResp); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if statusResp.Status.State != models.StateCollectorCooling || !statusResp.Status.PumpOn {
		t.Fatalf("unexpected status: %+v", statusResp.Status)
	}
	if statusResp.Counters.HeatingCyclesCount != 3 {
		t.Fatalf("unexpected counters: %+v", statusResp.Counters)
	}

	// POST pump/start: 200 accepted, intent queued with API origin
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/control/pump/start", nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("pump/start status=%d, body=%s", w.Code, w.Body.String())
	}
	if len(ctl.intents) != 1 {
		t.Fatalf("expected 1 submitted intent, got %d", len(ctl.intents))
	}
	if in := ctl.intents[0]; in.Kind != models.IntentPumpStart || in.Origin != models.OriginAPI {
		t.Fatalf("wrong intent: %+v", in)
	}
	var resp struct {
		Status string              `json:"status"`
		Kind   string              `json:"kind"`
		Rig    models.StatusRecord `json:"rig"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != statusAccepted || resp.Kind != string(models.IntentPumpStart) {
		t.Fatalf("bad accept response: %+v", resp)
	}
	if resp.Rig.State != models.StateCollectorCooling {
		t.Fatalf("rig status missing/invalid in response: %+v", resp.Rig)
	}

	// POST mode: 200, passes the mode through
	body := bytes.NewBufferString(`{"mode":"manual"}`)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/control/mode", body)
	req.Header.Set("Content-Type", "application/json")
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("mode status=%d, body=%s", w.Code, w.Body.String())
	}
	if in := ctl.intents[len(ctl.intents)-1]; in.Kind != models.IntentSetMode || in.Mode != models.ModeManual {
		t.Fatalf("wrong set_mode intent: %+v", in)
	}

	// POST mode with missing body: 400 before the gate is reached
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/control/mode", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	queued := len(ctl.intents)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty mode body, got %d", w.Code)
	}
	if len(ctl.intents) != queued {
		t.Fatal("invalid body must not reach the command gate")
	}

	// POST parameter: 200, JSON number arrives as float64
	body = bytes.NewBufferString(`{"name":"set_point_tank_c","value":65}`)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/control/parameter", body)
	req.Header.Set("Content-Type", "application/json")
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("parameter status=%d, body=%s", w.Code, w.Body.String())
	}
	in := ctl.intents[len(ctl.intents)-1]
	if in.Kind != models.IntentSetParameter || in.Name != models.ParamSetPointTankC {
		t.Fatalf("wrong set_parameter intent: %+v", in)
	}
	if v, ok := in.Value.(float64); !ok || v != 65 {
		t.Fatalf("expected float64 65, got %T %v", in.Value, in.Value)
	}
}

func TestControlHandlers_GateErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
	}{
		{
			name:     "validation error maps to 400",
			err:      &service.ValidationError{Field: "mode", Reason: "must be auto or manual"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "lockout maps to 429",
			err:      &service.LockoutError{Role: models.RolePump, Wait: 3 * time.Second},
			wantCode: http.StatusTooManyRequests,
		},
		{
			name:     "full queue maps to 503",
			err:      service.ErrQueueFull,
			wantCode: http.StatusServiceUnavailable,
		},
		{
			name:     "unknown error maps to 500",
			err:      errors.New("boom"),
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{parseID: 1}
			ctl := &mockControl{submitErr: tc.err}
			s := &service.Service{
				Authorization: auth,
				Monitoring:    &mockMonitoring{},
				Control:       ctl,
			}
			r := newTestRouter(s)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/control/pump/start", nil)
			for k, vv := range authHeader("valid") {
				for _, v := range vv {
					req.Header.Add(k, v)
				}
			}
			r.ServeHTTP(w, req)

			if w.Code != tc.wantCode {
				t.Fatalf("status: got %d, want %d (body=%s)", w.Code, tc.wantCode, w.Body.String())
			}
			var out map[string]any
			_ = json.Unmarshal(w.Body.Bytes(), &out)
			if out["error"] == "" {
				t.Fatalf("expected error message in body: %s", w.Body.String())
			}
			if tc.wantCode == http.StatusTooManyRequests {
				if ms, ok := out["retry_in_ms"].(float64); !ok || ms != 3000 {
					t.Fatalf("expected retry_in_ms 3000, got %v", out["retry_in_ms"])
				}
			}
		})
	}
}
