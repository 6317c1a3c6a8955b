package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/models"
)

// InvariantError reports a configuration value that violates a structural
// invariant. Load treats it as fatal; runtime parameter changes that would
// introduce the same violation are rejected at the command boundary instead.
type InvariantError struct {
	Key    string
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("config invariant violated: %s: %s", e.Key, e.Reason)
}

// Config is the full runtime configuration, read once at startup.
type Config struct {
	Port string

	Log   Log
	DB    DB
	Auth  Auth
	State State
	Loop  Loop
	Tank  Tank
	MQTT  MQTT

	// Initial control parameters; runtime-mutable afterwards via commands.
	Control models.ControlParameters
}

type Log struct {
	Level string
	File  string
}

type DB struct {
	Path string
}

type Auth struct {
	SigningKey string
	TokenTTL   time.Duration
}

type State struct {
	Path         string
	SaveInterval time.Duration
}

type Loop struct {
	Tick               time.Duration
	SensorTimeout      time.Duration
	ActuatorRetryLimit int
	CommandQueueSize   int
}

type Tank struct {
	VolumeL        float64
	FaultSentinels []float64
}

type MQTT struct {
	Enabled     bool
	Broker      string
	ClientID    string
	TopicPrefix string
	Username    string
	Password    string
	BufferSize  int
}

// Load reads configs/config.yml, applies defaults and validates invariants.
func Load() (*Config, error) {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	setDefaults()
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := fromViper()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("port", "8080")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.file", "")

	viper.SetDefault("db.path", "app.db")

	viper.SetDefault("auth.token_ttl", "12h")

	viper.SetDefault("state.path", "data/operational_state.json")
	viper.SetDefault("state.save_interval", "5m")

	viper.SetDefault("loop.tick", "10s")
	viper.SetDefault("loop.sensor_timeout", "2s")
	viper.SetDefault("loop.actuator_retry_limit", 3)
	viper.SetDefault("loop.command_queue_size", 32)

	viper.SetDefault("tank.volume_l", 500.0)
	viper.SetDefault("tank.fault_sentinels", []float64{-127.0, 85.0})

	viper.SetDefault("control.set_point_tank_c", 60.0)
	viper.SetDefault("control.dT_start_c", 8.0)
	viper.SetDefault("control.dT_stop_c", 4.0)
	viper.SetDefault("control.stop_margin_c", 5.0)
	viper.SetDefault("control.collector_cooling_c", 120.0)
	viper.SetDefault("control.collector_cooling_reset_c", 10.0)
	viper.SetDefault("control.boiling_c", 150.0)
	viper.SetDefault("control.boiling_reset_c", 10.0)
	viper.SetDefault("control.anti_cycle_lockout_s", 5.0)

	viper.SetDefault("rate.window", "medium")
	viper.SetDefault("rate.smoothing", "exponential")
	viper.SetDefault("rate.alpha", 0.3)

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.client_id", "sun-heat-core")
	viper.SetDefault("mqtt.topic_prefix", "sunheat")
	viper.SetDefault("mqtt.buffer_size", 256)
}

func fromViper() *Config {
	return &Config{
		Port: viper.GetString("port"),
		Log: Log{
			Level: viper.GetString("log.level"),
			File:  viper.GetString("log.file"),
		},
		DB: DB{
			Path: viper.GetString("db.path"),
		},
		Auth: Auth{
			SigningKey: viper.GetString("auth.signing_key"),
			TokenTTL:   viper.GetDuration("auth.token_ttl"),
		},
		State: State{
			Path:         viper.GetString("state.path"),
			SaveInterval: viper.GetDuration("state.save_interval"),
		},
		Loop: Loop{
			Tick:               viper.GetDuration("loop.tick"),
			SensorTimeout:      viper.GetDuration("loop.sensor_timeout"),
			ActuatorRetryLimit: viper.GetInt("loop.actuator_retry_limit"),
			CommandQueueSize:   viper.GetInt("loop.command_queue_size"),
		},
		Tank: Tank{
			VolumeL:        viper.GetFloat64("tank.volume_l"),
			FaultSentinels: floatSlice(viper.Get("tank.fault_sentinels")),
		},
		MQTT: MQTT{
			Enabled:     viper.GetBool("mqtt.enabled"),
			Broker:      viper.GetString("mqtt.broker"),
			ClientID:    viper.GetString("mqtt.client_id"),
			TopicPrefix: viper.GetString("mqtt.topic_prefix"),
			Username:    viper.GetString("mqtt.username"),
			Password:    viper.GetString("mqtt.password"),
			BufferSize:  viper.GetInt("mqtt.buffer_size"),
		},
		Control: models.ControlParameters{
			SetPointTankC:          viper.GetFloat64("control.set_point_tank_c"),
			DTStartC:               viper.GetFloat64("control.dT_start_c"),
			DTStopC:                viper.GetFloat64("control.dT_stop_c"),
			StopMarginC:            viper.GetFloat64("control.stop_margin_c"),
			CollectorCoolingC:      viper.GetFloat64("control.collector_cooling_c"),
			CollectorCoolingResetC: viper.GetFloat64("control.collector_cooling_reset_c"),
			BoilingC:               viper.GetFloat64("control.boiling_c"),
			BoilingResetC:          viper.GetFloat64("control.boiling_reset_c"),
			AntiCycleLockoutS:      viper.GetFloat64("control.anti_cycle_lockout_s"),
			RateWindow:             models.RateWindow(viper.GetString("rate.window")),
			RateSmoothing:          models.RateSmoothing(viper.GetString("rate.smoothing")),
			RateAlpha:              viper.GetFloat64("rate.alpha"),
		},
	}
}

// floatSlice coerces viper's decoded YAML list into []float64. YAML numbers
// may arrive as int or float depending on how they are written.
func floatSlice(v any) []float64 {
	items, ok := v.([]any)
	if !ok {
		if fs, ok := v.([]float64); ok {
			return fs
		}
		return nil
	}
	out := make([]float64, 0, len(items))
	for _, it := range items {
		switch n := it.(type) {
		case float64:
			out = append(out, n)
		case int:
			out = append(out, float64(n))
		}
	}
	return out
}

// Validate enforces the load-time invariants. Any violation is fatal at
// startup.
func (c *Config) Validate() error {
	if c.Loop.Tick <= 0 {
		return &InvariantError{Key: "loop.tick", Reason: "must be positive"}
	}
	if c.Loop.ActuatorRetryLimit < 1 {
		return &InvariantError{Key: "loop.actuator_retry_limit", Reason: "must be at least 1"}
	}
	if c.Tank.VolumeL <= 0 {
		return &InvariantError{Key: "tank.volume_l", Reason: "must be positive"}
	}
	if err := ValidateParams(c.Control); err != nil {
		return err
	}
	return nil
}

// ValidateParams checks the invariants shared with runtime parameter
// mutation. dT_start_c > dT_stop_c is the structural hysteresis invariant;
// accepting its violation would make the pump chatter on every tick.
func ValidateParams(p models.ControlParameters) error {
	if p.DTStartC <= p.DTStopC {
		return &InvariantError{
			Key:    "control.dT_start_c",
			Reason: fmt.Sprintf("must exceed dT_stop_c (%.1f <= %.1f)", p.DTStartC, p.DTStopC),
		}
	}
	if p.StopMarginC < 0 {
		return &InvariantError{Key: "control.stop_margin_c", Reason: "must not be negative"}
	}
	if p.CollectorCoolingResetC < 0 {
		return &InvariantError{Key: "control.collector_cooling_reset_c", Reason: "must not be negative"}
	}
	if p.BoilingResetC < 0 {
		return &InvariantError{Key: "control.boiling_reset_c", Reason: "must not be negative"}
	}
	if p.AntiCycleLockoutS < 0 {
		return &InvariantError{Key: "control.anti_cycle_lockout_s", Reason: "must not be negative"}
	}
	if p.RateAlpha <= 0 || p.RateAlpha > 1 {
		return &InvariantError{Key: "rate.alpha", Reason: "must be in (0, 1]"}
	}
	switch p.RateWindow {
	case models.RateWindowFast, models.RateWindowMedium, models.RateWindowSlow:
	default:
		return &InvariantError{Key: "rate.window", Reason: fmt.Sprintf("unknown window %q", p.RateWindow)}
	}
	switch p.RateSmoothing {
	case models.SmoothingRaw, models.SmoothingSimple, models.SmoothingExponential:
	default:
		return &InvariantError{Key: "rate.smoothing", Reason: fmt.Sprintf("unknown smoothing %q", p.RateSmoothing)}
	}
	return nil
}
