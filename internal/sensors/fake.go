package sensors

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/models"
)

// Fake is a test double that returns scripted snapshots. Each ReadSensors
// call consumes the next sample; when samples are exhausted the last one is
// returned repeatedly. Actuator writes are recorded and can be made to fail.
type Fake struct {
	mu sync.Mutex

	// Samples are the scripted readings, consumed in order.
	Samples []map[models.Role]float64

	// ReadErr, if set, is returned by every ReadSensors call.
	ReadErr error

	// ActuatorErrs maps a role to an error injected into SetActuator.
	ActuatorErrs map[models.Role]error

	// Writes records every accepted actuator write in order.
	Writes []ActuatorWrite

	// Closed tracks whether Close was called.
	Closed bool

	index int
	clock func() time.Time
}

// ActuatorWrite is one recorded SetActuator call.
type ActuatorWrite struct {
	Role models.Role
	On   bool
}

// NewFake creates a Fake scripted with the given samples.
func NewFake(samples []map[models.Role]float64) *Fake {
	return &Fake{Samples: samples, clock: time.Now}
}

func (f *Fake) ReadSensors(ctx context.Context) (models.SensorSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ReadErr != nil {
		return models.SensorSnapshot{}, f.ReadErr
	}
	if len(f.Samples) == 0 {
		return models.SensorSnapshot{}, errors.New("no samples configured")
	}
	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return models.NewSensorSnapshot(f.clock(), sample), nil
}

func (f *Fake) SetActuator(ctx context.Context, role models.Role, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.ActuatorErrs[role]; ok && err != nil {
		return &ActuatorError{Role: role, Err: err}
	}
	f.Writes = append(f.Writes, ActuatorWrite{Role: role, On: on})
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// LastWrite returns the most recent accepted write for a role.
func (f *Fake) LastWrite(role models.Role) (ActuatorWrite, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.Writes) - 1; i >= 0; i-- {
		if f.Writes[i].Role == role {
			return f.Writes[i], true
		}
	}
	return ActuatorWrite{}, false
}
