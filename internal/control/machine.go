package control

import (
	"time"

	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/models"
)

// Decision is the outcome of one control tick: the next operating state, the
// actuator commands, and the edges that fired. Edge fields drive event
// journaling and counter updates in the loop; the machine itself performs no
// I/O.
type Decision struct {
	State    models.OperatingState
	PumpOn   bool
	HeaterOn bool

	StateChanged bool
	PrevState    models.OperatingState

	// Pump edges, any state. Runtime covers the run that just stopped.
	PumpStarted bool
	PumpStopped bool
	PumpRuntime time.Duration

	// Heating cycle edges. A cycle opens on pump OFF->ON under automatic
	// control (Normal or CollectorCooling) and closes whenever the pump
	// stops with a cycle open.
	CycleStarted bool
	CycleEnded   bool
	CycleRuntime time.Duration

	// Roles whose absence suppressed the active rule this tick. When
	// non-empty the previous commands were held.
	Degraded []models.Role
}

// Machine is the pump control state machine. It owns the operating state,
// the last commanded actuator booleans and the open run/cycle timers. Not
// safe for concurrent use; the control loop is its single caller.
type Machine struct {
	state    models.OperatingState
	pumpOn   bool
	heaterOn bool

	pumpOnSince time.Time // zero when pump commanded off
	cycleStart  time.Time // zero when no heating cycle is open
}

func NewMachine() *Machine {
	return &Machine{state: models.StateNormal}
}

func (m *Machine) State() models.OperatingState { return m.state }
func (m *Machine) PumpOn() bool                 { return m.pumpOn }
func (m *Machine) HeaterOn() bool               { return m.heaterOn }

// Decide runs one tick of the transition rules against the snapshot and the
// parameters in force. Precedence, first match wins: Manual, Overheat,
// CollectorCooling, Normal. The reverse-flow guard (dT < 0 forces the pump
// off) clamps the outcome of every rule, Manual included. A rule that needs
// an unavailable role is suppressed for the tick: previous commands hold and
// the missing roles are reported as degraded.
func (m *Machine) Decide(now time.Time, snap models.SensorSnapshot, p models.ControlParameters) Decision {
	collector, haveCollector := snap.Temperature(models.RoleCollector)
	tankRef, haveTankRef := snap.Temperature(models.RoleTankBottom)
	haveDT := haveCollector && haveTankRef
	dT := collector - tankRef

	next := m.state
	wantPump := m.pumpOn
	wantHeater := m.heaterOn
	opensCycle := false

	switch {
	case p.ManualMode:
		if !haveDT {
			return m.hold(snap.Missing(models.RoleCollector, models.RoleTankBottom))
		}
		next = models.StateManual
		wantPump = p.ManualPumpRequest
		wantHeater = p.ManualHeaterRequest && tankRef < p.HeaterCeilingC()

	case !haveCollector:
		// Every automatic rule reads the collector.
		return m.hold(snap.Missing(models.RoleCollector))

	case m.state == models.StateOverheat && collector > p.OverheatResetC():
		// Latch holds until the reset margin is crossed.
		wantPump = false
		wantHeater = false

	case m.state != models.StateOverheat && collector >= p.BoilingC:
		next = models.StateOverheat
		wantPump = false
		wantHeater = false

	default:
		// Overheat reset falls through to the cooling and normal rules on
		// the same tick.
		if m.state == models.StateCollectorCooling && collector > p.CoolingExitC() {
			wantPump = true
			wantHeater = false
			opensCycle = true
		} else if m.state != models.StateCollectorCooling && !m.pumpOn && collector >= p.CollectorCoolingC {
			next = models.StateCollectorCooling
			wantPump = true
			wantHeater = false
			opensCycle = true
		} else {
			if !haveTankRef {
				return m.hold(snap.Missing(models.RoleTankBottom))
			}
			next = models.StateNormal
			wantHeater = false
			if !m.pumpOn && dT >= p.DTStartC && tankRef < p.SetPointTankC {
				wantPump = true
				opensCycle = true
			} else if m.pumpOn && (dT <= p.DTStopC || tankRef >= p.SetPointTankC+p.StopMarginC) {
				wantPump = false
			}
		}
	}

	// Reverse-flow guard: a hot tank must never push heat back into a cold
	// collector. Overrides every rule above, Manual included.
	if haveDT && dT < 0 {
		wantPump = false
	}

	return m.commit(now, next, wantPump, wantHeater, opensCycle, nil)
}

// ForceOverheat latches the Overheat state after repeated unconfirmed pump
// writes; an unknown pump state is treated as worst case. The latch releases
// through the normal collector reset condition.
func (m *Machine) ForceOverheat(now time.Time) Decision {
	return m.commit(now, models.StateOverheat, false, false, false, nil)
}

// Shutdown closes any open pump run and heating cycle, returning their
// elapsed runtimes for final accounting. The commanded states are left
// untouched; the process is exiting.
func (m *Machine) Shutdown(now time.Time) (pumpRun, cycleRun time.Duration) {
	if !m.pumpOnSince.IsZero() {
		pumpRun = now.Sub(m.pumpOnSince)
		m.pumpOnSince = time.Time{}
	}
	if !m.cycleStart.IsZero() {
		cycleRun = now.Sub(m.cycleStart)
		m.cycleStart = time.Time{}
	}
	return pumpRun, cycleRun
}

// hold keeps the previous state and commands for a degraded tick.
func (m *Machine) hold(missing []models.Role) Decision {
	return Decision{
		State:     m.state,
		PumpOn:    m.pumpOn,
		HeaterOn:  m.heaterOn,
		PrevState: m.state,
		Degraded:  missing,
	}
}

// commit applies the tick outcome to the machine and derives the edges.
func (m *Machine) commit(now time.Time, next models.OperatingState, pump, heater, opensCycle bool, degraded []models.Role) Decision {
	d := Decision{
		State:        next,
		PumpOn:       pump,
		HeaterOn:     heater,
		StateChanged: next != m.state,
		PrevState:    m.state,
		Degraded:     degraded,
	}

	if pump && !m.pumpOn {
		d.PumpStarted = true
		m.pumpOnSince = now
		if opensCycle {
			d.CycleStarted = true
			m.cycleStart = now
		}
	}
	if !pump && m.pumpOn {
		d.PumpStopped = true
		if !m.pumpOnSince.IsZero() {
			d.PumpRuntime = now.Sub(m.pumpOnSince)
			m.pumpOnSince = time.Time{}
		}
		if !m.cycleStart.IsZero() {
			d.CycleEnded = true
			d.CycleRuntime = now.Sub(m.cycleStart)
			m.cycleStart = time.Time{}
		}
	}

	m.state = next
	m.pumpOn = pump
	m.heaterOn = heater
	return d
}
