package models

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// Role names a sensor or actuator position on the rig.
type Role string

// Sensor roles read each cycle.
const (
	RoleCollector  Role = "collector"
	RoleTankTop    Role = "tank_top"
	RoleTankBottom Role = "tank_bottom"
)

// Actuator roles driven by the control loop.
const (
	RolePump   Role = "pump"
	RoleHeater Role = "heater"
)

// TankProbeCount is the number of equally spaced vertical tank probes.
// Probes 1..3 form the top zone, 4..8 the bottom zone.
const TankProbeCount = 8

// TankProbeRole returns the role name of the i-th vertical probe (1-based,
// counted from the top of the tank).
func TankProbeRole(i int) Role {
	return Role(fmt.Sprintf("tank_probe_%d", i))
}

// TankProbeRoles returns all vertical probe roles, top to bottom.
func TankProbeRoles() []Role {
	roles := make([]Role, TankProbeCount)
	for i := range roles {
		roles[i] = TankProbeRole(i + 1)
	}
	return roles
}

// SensorSnapshot is an immutable set of named temperature readings captured
// at one instant. A role absent from the snapshot was unavailable for that
// cycle; it is never substituted with zero.
type SensorSnapshot struct {
	timestamp time.Time
	readings  map[Role]float64
}

// NewSensorSnapshot builds a snapshot from the given readings. The map is
// copied; NaN and infinite values are dropped so an unavailable role is
// always represented by absence.
func NewSensorSnapshot(ts time.Time, readings map[Role]float64) SensorSnapshot {
	copied := make(map[Role]float64, len(readings))
	for role, v := range readings {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		copied[role] = v
	}
	return SensorSnapshot{timestamp: ts, readings: copied}
}

// Timestamp returns the capture time of the snapshot.
func (s SensorSnapshot) Timestamp() time.Time { return s.timestamp }

// Temperature returns the reading for a role and whether it was available
// this cycle.
func (s SensorSnapshot) Temperature(role Role) (float64, bool) {
	v, ok := s.readings[role]
	return v, ok
}

// Has reports whether every given role is available in the snapshot.
func (s SensorSnapshot) Has(roles ...Role) bool {
	for _, role := range roles {
		if _, ok := s.readings[role]; !ok {
			return false
		}
	}
	return true
}

// Missing returns the subset of roles unavailable in this snapshot.
func (s SensorSnapshot) Missing(roles ...Role) []Role {
	var missing []Role
	for _, role := range roles {
		if _, ok := s.readings[role]; !ok {
			missing = append(missing, role)
		}
	}
	return missing
}

// Readings returns a copy of all available readings.
func (s SensorSnapshot) Readings() map[Role]float64 {
	out := make(map[Role]float64, len(s.readings))
	for role, v := range s.readings {
		out[role] = v
	}
	return out
}

// Len returns the number of available readings.
func (s SensorSnapshot) Len() int { return len(s.readings) }

// AverageTankTemp returns the mean of all available vertical probes and the
// number of probes that contributed. Used by the rate estimator.
func (s SensorSnapshot) AverageTankTemp() (float64, int) {
	var sum float64
	var n int
	for _, role := range TankProbeRoles() {
		if v, ok := s.readings[role]; ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

type snapshotJSON struct {
	Timestamp time.Time          `json:"timestamp"`
	Readings  map[string]float64 `json:"readings"`
}

// MarshalJSON serializes the snapshot with stable field names for telemetry.
func (s SensorSnapshot) MarshalJSON() ([]byte, error) {
	out := snapshotJSON{Timestamp: s.timestamp, Readings: make(map[string]float64, len(s.readings))}
	for role, v := range s.readings {
		out.Readings[string(role)] = v
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a snapshot produced by MarshalJSON.
func (s *SensorSnapshot) UnmarshalJSON(data []byte) error {
	var in snapshotJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	readings := make(map[Role]float64, len(in.Readings))
	for role, v := range in.Readings {
		readings[Role(role)] = v
	}
	*s = NewSensorSnapshot(in.Timestamp, readings)
	return nil
}

// SortedRoles returns the available roles in lexical order, for
// deterministic logging.
func (s SensorSnapshot) SortedRoles() []Role {
	roles := make([]Role, 0, len(s.readings))
	for role := range s.readings {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}
