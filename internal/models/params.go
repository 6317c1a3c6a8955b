package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// OperatingState is the control authority's current mode. Overheat and
// CollectorCooling are latched: they are exited only through their dedicated
// hysteresis reset condition, never because the entry condition turned false.
type OperatingState int

const (
	StateNormal OperatingState = iota
	StateOverheat
	StateCollectorCooling
	StateManual
)

// String returns the wire name of the state.
func (s OperatingState) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateOverheat:
		return "overheat"
	case StateCollectorCooling:
		return "collector_cooling"
	case StateManual:
		return "manual"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// MarshalJSON encodes the state as its wire name.
func (s OperatingState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a state from its wire name.
func (s *OperatingState) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "normal":
		*s = StateNormal
	case "overheat":
		*s = StateOverheat
	case "collector_cooling":
		*s = StateCollectorCooling
	case "manual":
		*s = StateManual
	default:
		return fmt.Errorf("unknown operating state %q", name)
	}
	return nil
}

// RateWindow selects the sliding window span of the rate estimator.
type RateWindow string

const (
	RateWindowFast   RateWindow = "fast"   // 30s
	RateWindowMedium RateWindow = "medium" // 120s
	RateWindowSlow   RateWindow = "slow"   // 300s
)

// Span returns the window duration. Unknown windows fall back to medium.
func (w RateWindow) Span() time.Duration {
	switch w {
	case RateWindowFast:
		return 30 * time.Second
	case RateWindowSlow:
		return 300 * time.Second
	default:
		return 120 * time.Second
	}
}

// RateSmoothing selects how raw rates are smoothed before publishing.
type RateSmoothing string

const (
	SmoothingRaw         RateSmoothing = "raw"
	SmoothingSimple      RateSmoothing = "simple"      // mean of last 3 raw rates
	SmoothingExponential RateSmoothing = "exponential" // alpha-weighted
)

// ControlParameters holds every runtime-mutable control setting. The loop
// owns one value and replaces it between ticks; a parameter change never
// takes effect mid-decision.
type ControlParameters struct {
	// Tank set-point and charging hysteresis.
	SetPointTankC float64 `json:"set_point_tank_c"`
	DTStartC      float64 `json:"dT_start_c"`
	DTStopC       float64 `json:"dT_stop_c"`
	StopMarginC   float64 `json:"stop_margin_c"`

	// Collector protection thresholds with their hysteresis reset margins.
	CollectorCoolingC      float64 `json:"collector_cooling_c"`
	CollectorCoolingResetC float64 `json:"collector_cooling_reset_c"`
	BoilingC               float64 `json:"boiling_c"`
	BoilingResetC          float64 `json:"boiling_reset_c"`

	// Manual override plumbing.
	ManualMode          bool `json:"manual_mode"`
	ManualPumpRequest   bool `json:"manual_pump_request"`
	ManualHeaterRequest bool `json:"manual_heater_request"`

	// Minimum spacing between accepted commands for the same actuator.
	AntiCycleLockoutS float64 `json:"anti_cycle_lockout_s"`

	// Pellet burner flag fed from external telemetry; accounting only.
	PelletActive bool `json:"pellet_active"`

	// Rate estimator knobs.
	RateWindow    RateWindow    `json:"rate_window"`
	RateSmoothing RateSmoothing `json:"rate_smoothing"`
	RateAlpha     float64       `json:"rate_alpha"`
}

// Set applies one named parameter value. Values arrive JSON-decoded:
// float64 for numbers, string for enumerations, bool for flags. Integer
// values are accepted for numeric parameters. Range checking is the
// caller's job; Set only guards names and types.
func (p *ControlParameters) Set(name string, value any) error {
	switch name {
	case ParamRateWindow:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("parameter %s wants a string, got %T", name, value)
		}
		p.RateWindow = RateWindow(s)
		return nil
	case ParamRateSmoothing:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("parameter %s wants a string, got %T", name, value)
		}
		p.RateSmoothing = RateSmoothing(s)
		return nil
	case ParamPelletActive:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("parameter %s wants a bool, got %T", name, value)
		}
		p.PelletActive = b
		return nil
	}

	numeric := map[string]*float64{
		ParamSetPointTankC:          &p.SetPointTankC,
		ParamDTStartC:               &p.DTStartC,
		ParamDTStopC:                &p.DTStopC,
		ParamStopMarginC:            &p.StopMarginC,
		ParamCollectorCoolingC:      &p.CollectorCoolingC,
		ParamCollectorCoolingResetC: &p.CollectorCoolingResetC,
		ParamBoilingC:               &p.BoilingC,
		ParamBoilingResetC:          &p.BoilingResetC,
		ParamAntiCycleLockoutS:      &p.AntiCycleLockoutS,
		ParamRateAlpha:              &p.RateAlpha,
	}
	target, ok := numeric[name]
	if !ok {
		return fmt.Errorf("unknown parameter %q", name)
	}
	f, ok := toFloat(value)
	if !ok {
		return fmt.Errorf("parameter %s wants a number, got %T", name, value)
	}
	*target = f
	return nil
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// AntiCycleLockout returns the lockout as a duration.
func (p ControlParameters) AntiCycleLockout() time.Duration {
	return time.Duration(p.AntiCycleLockoutS * float64(time.Second))
}

// OverheatResetC is the collector temperature at which the Overheat latch
// releases.
func (p ControlParameters) OverheatResetC() float64 {
	return p.BoilingC - p.BoilingResetC
}

// CoolingExitC is the collector temperature at which CollectorCooling exits
// to Normal.
func (p ControlParameters) CoolingExitC() float64 {
	return p.CollectorCoolingC - p.CollectorCoolingResetC
}

// HeaterCeilingC is the tank temperature above which the manual heater is
// forced off.
func (p ControlParameters) HeaterCeilingC() float64 {
	return p.BoilingC - p.BoilingResetC
}
