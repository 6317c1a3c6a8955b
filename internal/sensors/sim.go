package sensors

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/models"
)

// Simulation constants.
const (
	simAmbientC          = 15.0  // outdoor and room ambient °C
	simPeakIrradianceC   = 1.2   // collector heating at solar noon, °C per second
	simCollectorLossCoef = 0.01  // collector standing loss toward ambient, 1/s
	simTransferCoef      = 0.02  // pump-driven collector-tank coupling, 1/s
	simMassRatio         = 0.2   // collector thermal mass relative to one tank slice
	simHeaterCPerSec     = 0.01  // cartridge heating of each top probe, °C per second
	simMixCoef           = 0.002 // adjacent probe diffusion, 1/s
	simBuoyancyCoef      = 0.05  // collapse rate of temperature inversions, 1/s
	simTankLossCoef      = 2e-5  // tank standing loss toward ambient, 1/s
	simMaxStepS          = 60.0  // integration step cap after long gaps
)

// Simulator is a physics-flavored stand-in for the rig hardware so the
// daemon runs with nothing attached. The collector follows a diurnal
// irradiance curve against a standing loss; the pump couples it to the
// bottom of the tank; the cartridge heats the top zone; probes diffuse
// toward their neighbors with inversions collapsing quickly, and the whole
// tank slowly leaks to ambient. State advances lazily on each bus call.
type Simulator struct {
	mu       sync.Mutex
	clock    func() time.Time
	lastStep time.Time

	collectorC float64
	probesC    [models.TankProbeCount]float64
	pumpOn     bool
	heaterOn   bool
}

// NewSimulator returns a simulator with a mildly stratified warm tank and
// the collector at ambient.
func NewSimulator() *Simulator {
	s := &Simulator{clock: time.Now, collectorC: simAmbientC}
	for i := range s.probesC {
		s.probesC[i] = 45 - float64(i)
	}
	return s
}

func (s *Simulator) ReadSensors(ctx context.Context) (models.SensorSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	s.step(now)

	readings := map[models.Role]float64{
		models.RoleCollector:  s.collectorC,
		models.RoleTankTop:    s.probesC[0],
		models.RoleTankBottom: s.probesC[models.TankProbeCount-1],
	}
	for i := 0; i < models.TankProbeCount; i++ {
		readings[models.TankProbeRole(i+1)] = s.probesC[i]
	}
	return models.NewSensorSnapshot(now, readings), nil
}

func (s *Simulator) SetActuator(ctx context.Context, role models.Role, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Integrate the elapsed interval under the old actuator state first.
	s.step(s.clock())

	switch role {
	case models.RolePump:
		s.pumpOn = on
	case models.RoleHeater:
		s.heaterOn = on
	default:
		return &ActuatorError{Role: role, Err: errors.New("unknown actuator")}
	}
	return nil
}

func (s *Simulator) Close() error { return nil }

// step advances the model by the wall time since the previous step.
func (s *Simulator) step(now time.Time) {
	if s.lastStep.IsZero() {
		s.lastStep = now
		return
	}
	elapsed := now.Sub(s.lastStep).Seconds()
	if elapsed <= 0 {
		return
	}
	if elapsed > simMaxStepS {
		elapsed = simMaxStepS
	}
	s.lastStep = now

	// Collector: solar gain against standing loss.
	sun := irradiance(now)
	s.collectorC += (sun*simPeakIrradianceC - simCollectorLossCoef*(s.collectorC-simAmbientC)) * elapsed

	// Pump couples the collector to the bottom of the tank. A negative dT
	// moves heat the wrong way, which is exactly what the reverse-flow
	// guard exists to prevent. Flux is clamped so a long step cannot
	// overshoot the equilibrium.
	if s.pumpOn {
		dT := s.collectorC - s.probesC[models.TankProbeCount-1]
		flux := simTransferCoef * dT * elapsed
		if math.Abs(flux) > math.Abs(dT)/2 {
			flux = dT / 2
		}
		s.collectorC -= flux
		s.probesC[models.TankProbeCount-1] += flux * simMassRatio
	}

	// Cartridge element sits in the top zone.
	if s.heaterOn {
		for i := 0; i < 3; i++ {
			s.probesC[i] += simHeaterCPerSec * elapsed
		}
	}

	// Stratification: slow diffusion between neighbors, quick collapse when
	// a lower probe is hotter than the one above it. Mixing never moves a
	// pair past equalization.
	for i := 0; i < models.TankProbeCount-1; i++ {
		upper, lower := s.probesC[i], s.probesC[i+1]
		coef := simMixCoef
		if lower > upper {
			coef = simBuoyancyCoef
		}
		diff := lower - upper
		mix := coef * diff * elapsed
		if math.Abs(mix) > math.Abs(diff)/2 {
			mix = diff / 2
		}
		s.probesC[i] += mix
		s.probesC[i+1] -= mix
	}

	// Standing loss.
	for i := range s.probesC {
		s.probesC[i] -= simTankLossCoef * (s.probesC[i] - simAmbientC) * elapsed
	}
}

// irradiance returns the solar intensity fraction for the local time of
// day: a half sine between 06:00 and 18:00, zero at night.
func irradiance(now time.Time) float64 {
	h := float64(now.Hour()) + float64(now.Minute())/60
	if h < 6 || h > 18 {
		return 0
	}
	return math.Sin(math.Pi * (h - 6) / 12)
}
