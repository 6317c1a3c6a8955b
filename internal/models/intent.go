package models

// IntentKind enumerates the closed set of command ingress kinds. Anything
// else is rejected at the boundary and never reaches the control loop.
type IntentKind string

const (
	IntentPumpStart    IntentKind = "pump_start"
	IntentPumpStop     IntentKind = "pump_stop"
	IntentHeaterStart  IntentKind = "heater_start"
	IntentHeaterStop   IntentKind = "heater_stop"
	IntentSetMode      IntentKind = "set_mode"
	IntentSetParameter IntentKind = "set_parameter"
)

// Control modes accepted by set_mode.
const (
	ModeAuto   = "auto"
	ModeManual = "manual"
)

// Parameter names accepted by set_parameter. The names match the JSON tags
// of ControlParameters.
const (
	ParamSetPointTankC          = "set_point_tank_c"
	ParamDTStartC               = "dT_start_c"
	ParamDTStopC                = "dT_stop_c"
	ParamStopMarginC            = "stop_margin_c"
	ParamCollectorCoolingC      = "collector_cooling_c"
	ParamCollectorCoolingResetC = "collector_cooling_reset_c"
	ParamBoilingC               = "boiling_c"
	ParamBoilingResetC          = "boiling_reset_c"
	ParamAntiCycleLockoutS      = "anti_cycle_lockout_s"
	ParamPelletActive           = "pellet_active"
	ParamRateWindow             = "rate_window"
	ParamRateSmoothing          = "rate_smoothing"
	ParamRateAlpha              = "rate_alpha"
)

// IntentOrigin records which ingress produced a command, for logging.
type IntentOrigin string

const (
	OriginAPI  IntentOrigin = "api"
	OriginMQTT IntentOrigin = "mqtt"
)

// Intent is a validated command queued for the next control tick. Value is
// normalized by validation: float64 for numeric parameters, string for
// enumerated ones, bool for flags.
type Intent struct {
	Kind   IntentKind   `json:"kind"`
	Mode   string       `json:"mode,omitempty"`
	Name   string       `json:"name,omitempty"`
	Value  any          `json:"value,omitempty"`
	Origin IntentOrigin `json:"-"`
}
