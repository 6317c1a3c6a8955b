package models

import "time"

// ResetDateLayout is the calendar-day format stored in LastResetDate.
const ResetDateLayout = "2006-01-02"

// OperationalCounters are the durable counters that survive restarts.
// Daily values reset at local midnight; the lifetime total is monotonic.
// Mutated only on pump state transitions (edge-triggered) and by the
// midnight reset.
type OperationalCounters struct {
	PumpRuntimeHours         float64   `json:"pump_runtime_hours"`
	HeatingCyclesCount       int       `json:"heating_cycles_count"`
	TotalHeatingTime         float64   `json:"total_heating_time"`
	TotalHeatingTimeLifetime float64   `json:"total_heating_time_lifetime"`
	LastSaveTimestamp        time.Time `json:"last_save_timestamp"`
	LastResetDate            string    `json:"last_reset_date"`
}

// ResetDaily zeroes the daily counters, records the calendar day the reset
// belongs to, and leaves the lifetime total untouched.
func (c *OperationalCounters) ResetDaily(day time.Time) {
	c.PumpRuntimeHours = 0
	c.HeatingCyclesCount = 0
	c.TotalHeatingTime = 0
	c.LastResetDate = day.Format(ResetDateLayout)
}

// AddCycle records one completed heating cycle of the given duration.
func (c *OperationalCounters) AddCycle(runtime time.Duration) {
	c.HeatingCyclesCount++
	h := runtime.Hours()
	c.TotalHeatingTime += h
	c.TotalHeatingTimeLifetime += h
}

// AddPumpRuntime accrues pump-on time regardless of operating state.
func (c *OperationalCounters) AddPumpRuntime(d time.Duration) {
	c.PumpRuntimeHours += d.Hours()
}
