// Package sensors is the hardware collaborator boundary: temperature reads
// and relay writes behind a small interface, with a rig simulator for
// running without hardware and a scripted fake for tests.
package sensors

import (
	"context"
	"fmt"

	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/models"
)

// Bus reads the rig's temperature sensors and drives its relays.
type Bus interface {
	// ReadSensors captures one snapshot. A role that could not be read is
	// absent from the snapshot rather than reported as a global failure;
	// the returned error means the whole bus was unreachable.
	ReadSensors(ctx context.Context) (models.SensorSnapshot, error)

	// SetActuator drives a relay. A failed write returns *ActuatorError;
	// the caller retries on the next tick.
	SetActuator(ctx context.Context, role models.Role, on bool) error

	// Close releases bus resources.
	Close() error
}

// RoleError marks one sensor role unavailable for one cycle. Non-fatal: the
// affected control rule is suppressed for the tick and the condition is
// logged.
type RoleError struct {
	Role models.Role
}

func (e *RoleError) Error() string {
	return fmt.Sprintf("sensor %s unavailable", e.Role)
}

// ActuatorError reports a relay write that could not be confirmed.
type ActuatorError struct {
	Role models.Role
	Err  error
}

func (e *ActuatorError) Error() string {
	return fmt.Sprintf("actuator %s write failed: %v", e.Role, e.Err)
}

func (e *ActuatorError) Unwrap() error { return e.Err }

// SentinelFilter wraps a Bus and drops readings equal to a configured fault
// sentinel, so a sensor reporting its error code (DS18B20 conventions:
// -127.0, 85.0) surfaces as an unavailable role instead of a real
// temperature.
type SentinelFilter struct {
	Bus
	sentinels []float64
}

func NewSentinelFilter(bus Bus, sentinels []float64) *SentinelFilter {
	return &SentinelFilter{Bus: bus, sentinels: sentinels}
}

func (f *SentinelFilter) ReadSensors(ctx context.Context) (models.SensorSnapshot, error) {
	snap, err := f.Bus.ReadSensors(ctx)
	if err != nil {
		return snap, err
	}
	readings := snap.Readings()
	for role, v := range readings {
		for _, s := range f.sentinels {
			if v == s {
				delete(readings, role)
				break
			}
		}
	}
	return models.NewSensorSnapshot(snap.Timestamp(), readings), nil
}
