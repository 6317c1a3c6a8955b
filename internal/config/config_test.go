package config

import (
	"errors"
	"testing"
	"time"

	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/models"
)

func validParams() models.ControlParameters {
	return models.ControlParameters{
		SetPointTankC:          60,
		DTStartC:               8,
		DTStopC:                4,
		StopMarginC:            5,
		CollectorCoolingC:      120,
		CollectorCoolingResetC: 10,
		BoilingC:               150,
		BoilingResetC:          10,
		AntiCycleLockoutS:      5,
		RateWindow:             models.RateWindowMedium,
		RateSmoothing:          models.SmoothingExponential,
		RateAlpha:              0.3,
	}
}

func validConfig() *Config {
	return &Config{
		Port: "8080",
		Loop: Loop{
			Tick:               10 * time.Second,
			SensorTimeout:      2 * time.Second,
			ActuatorRetryLimit: 3,
			CommandQueueSize:   32,
		},
		Tank: Tank{
			VolumeL:        500,
			FaultSentinels: []float64{-127, 85},
		},
		Control: validParams(),
	}
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_RejectsInvertedHysteresis(t *testing.T) {
	cfg := validConfig()
	cfg.Control.DTStartC = 4
	cfg.Control.DTStopC = 8

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected error for dT_start <= dT_stop")
	}
	var inv *InvariantError
	if !errors.As(err, &inv) {
		t.Fatalf("expected InvariantError, got %T", err)
	}
	if inv.Key != "control.dT_start_c" {
		t.Fatalf("expected key control.dT_start_c, got %s", inv.Key)
	}
}

func TestValidate_RejectsEqualHysteresisBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Control.DTStartC = 5
	cfg.Control.DTStopC = 5
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for dT_start == dT_stop")
	}
}

func TestValidate_RejectsNonPositiveTick(t *testing.T) {
	cfg := validConfig()
	cfg.Loop.Tick = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for zero tick")
	}
}

func TestValidate_RejectsZeroTankVolume(t *testing.T) {
	cfg := validConfig()
	cfg.Tank.VolumeL = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for zero tank volume")
	}
}

func TestValidateParams_Table(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.ControlParameters)
		wantErr bool
	}{
		{"valid", func(p *models.ControlParameters) {}, false},
		{"negative stop margin", func(p *models.ControlParameters) { p.StopMarginC = -1 }, true},
		{"negative cooling reset", func(p *models.ControlParameters) { p.CollectorCoolingResetC = -0.1 }, true},
		{"negative boiling reset", func(p *models.ControlParameters) { p.BoilingResetC = -5 }, true},
		{"negative lockout", func(p *models.ControlParameters) { p.AntiCycleLockoutS = -1 }, true},
		{"alpha zero", func(p *models.ControlParameters) { p.RateAlpha = 0 }, true},
		{"alpha above one", func(p *models.ControlParameters) { p.RateAlpha = 1.5 }, true},
		{"alpha one", func(p *models.ControlParameters) { p.RateAlpha = 1 }, false},
		{"unknown window", func(p *models.ControlParameters) { p.RateWindow = "glacial" }, true},
		{"unknown smoothing", func(p *models.ControlParameters) { p.RateSmoothing = "cubic" }, true},
		{"zero lockout allowed", func(p *models.ControlParameters) { p.AntiCycleLockoutS = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)
			err := ValidateParams(p)
			if tt.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestFloatSlice_CoercesMixedYAMLNumbers(t *testing.T) {
	got := floatSlice([]any{-127.0, 85})
	if len(got) != 2 || got[0] != -127 || got[1] != 85 {
		t.Fatalf("unexpected slice: %v", got)
	}
}
