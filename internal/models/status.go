package models

import "time"

// StatusRecord is the per-tick record handed to the telemetry collaborator
// and served to API/websocket consumers.
type StatusRecord struct {
	Timestamp     time.Time         `json:"timestamp"`
	State         OperatingState    `json:"operating_state"`
	PumpOn        bool              `json:"pump_on"`
	HeaterOn      bool              `json:"heater_on"`
	Snapshot      SensorSnapshot    `json:"sensor_snapshot"`
	DegradedRoles []Role            `json:"degraded_roles,omitempty"`
	Ledger        EnergyLedger      `json:"energy_ledger"`
	Rate          RateEstimate      `json:"rate_estimates"`
	Params        ControlParameters `json:"params"`
}
