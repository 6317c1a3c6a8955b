package service

import (
	"context"
	"fmt"
	"time"

	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/config"
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/control"
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/energy"
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/logger"
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/models"
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/repository"
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/sensors"
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/telemetry"
)

// ControlLoop owns the rig. It is the only writer of actuators, parameters,
// counters and the energy books; everything else submits intents through
// the command gate or reads through the tracker.
type ControlLoop struct {
	bus      sensors.Bus
	machine  *control.Machine
	acct     *energy.Accountant
	rate     *energy.Estimator
	commands *Commands
	tracker  *StatusTracker
	journal  *EventJournal
	counters repository.CounterStore
	pub      telemetry.Publisher
	log      *logger.Logger

	loopCfg      config.Loop
	saveInterval time.Duration

	params   models.ControlParameters
	current  models.OperationalCounters
	lastRate models.RateEstimate
	events   []models.Event // journal entries of the tick in flight

	lastPump     *bool // last value confirmed written, nil before first write
	lastHeater   *bool
	pumpFailures int
	degraded     bool
	lastSave     time.Time
}

// NewControlLoop wires the loop. Run must be called exactly once.
func NewControlLoop(cfg *config.Config, counters repository.CounterStore, bus sensors.Bus,
	pub telemetry.Publisher, commands *Commands, tracker *StatusTracker,
	journal *EventJournal, log *logger.Logger) *ControlLoop {
	return &ControlLoop{
		bus:          bus,
		machine:      control.NewMachine(),
		acct:         energy.NewAccountant(cfg.Tank.VolumeL),
		rate:         energy.NewEstimator(cfg.Loop.Tick),
		commands:     commands,
		tracker:      tracker,
		journal:      journal,
		counters:     counters,
		pub:          pub,
		log:          log,
		loopCfg:      cfg.Loop,
		saveInterval: cfg.State.SaveInterval,
		params:       cfg.Control,
	}
}

// Run ticks the loop until the context is cancelled, then flushes open
// runtimes and saves once more. No tick fault terminates the loop.
func (l *ControlLoop) Run(ctx context.Context, tick time.Duration) {
	loaded, err := l.counters.Load()
	if err != nil {
		l.log.Warnw("operational counters unreadable, starting from zero", "error", err)
	}
	l.current = loaded
	l.tracker.SetCounters(loaded)
	l.log.Infow("control loop started",
		"tick", tick,
		"set_point_c", l.params.SetPointTankC,
		"lifetime_heating_h", loaded.TotalHeatingTimeLifetime)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			l.shutdown(time.Now())
			return
		case now := <-ticker.C:
			l.tickOnce(ctx, now)
		}
	}
}

// tickOnce executes one full control cycle. Order matters: intents first so
// a mode or parameter change is in force for this tick's decision, then
// sensors, decision, actuators, accounting, counters, persistence, publish.
func (l *ControlLoop) tickOnce(ctx context.Context, now time.Time) {
	l.events = nil

	for _, in := range l.commands.Drain() {
		l.apply(now, in)
	}

	snap := l.readSensors(ctx, now)

	dec := l.machine.Decide(now, snap, l.params)
	l.harvest(now, dec)
	degradedRoles := dec.Degraded
	l.markDegraded(now, degradedRoles)

	dec = l.driveActuators(ctx, now, dec)

	aggs, accounted := l.acct.Update(now, snap, dec.PumpOn, dec.HeaterOn, l.params.PelletActive)
	ledger := l.acct.Ledger()
	if accounted {
		avg, _ := snap.AverageTankTemp()
		l.lastRate = l.rate.Observe(now, ledger.Zones.TotalKWh, avg,
			l.params.RateWindow, l.params.RateSmoothing, l.params.RateAlpha)
	}

	if l.counters.ShouldResetAtMidnight(now, l.current.LastResetDate) {
		day, _ := repository.MidnightWindowDay(now)
		l.current.ResetDaily(day)
		l.record(now, models.EventMidnightReset, "daily counters reset",
			map[string]any{"day": day.Format(models.ResetDateLayout)})
	}

	transition := len(l.events) > 0
	if transition || l.lastSave.IsZero() || now.Sub(l.lastSave) >= l.saveInterval {
		l.saveNow(now)
	}

	rec := models.StatusRecord{
		Timestamp:     now,
		State:         dec.State,
		PumpOn:        dec.PumpOn,
		HeaterOn:      dec.HeaterOn,
		Snapshot:      snap,
		DegradedRoles: degradedRoles,
		Ledger:        ledger,
		Rate:          l.lastRate,
		Params:        l.params,
	}
	l.tracker.SetStatus(rec)
	l.tracker.SetCounters(l.current)

	if err := l.pub.PublishStatus(rec); err != nil {
		l.log.Warnw("status publish failed", "error", err)
	}
	for _, ev := range l.events {
		if err := l.pub.PublishEvent(ev); err != nil {
			l.log.Warnw("event publish failed", "type", ev.Type, "error", err)
		}
	}
	for _, agg := range aggs {
		if err := l.pub.PublishAggregate(agg); err != nil {
			l.log.Warnw("aggregate publish failed", "period", agg.Period, "error", err)
		}
	}
}

// apply folds one drained intent into the loop-owned parameters. Intents
// that passed ingress can still be refused here, e.g. a pump command that
// arrives after the rig left manual mode.
func (l *ControlLoop) apply(now time.Time, in models.Intent) {
	switch in.Kind {
	case models.IntentSetMode:
		manual := in.Mode == models.ModeManual
		if l.params.ManualMode == manual {
			return
		}
		l.params.ManualMode = manual
		if manual {
			// Entering manual holds the current commands until the operator
			// says otherwise.
			l.params.ManualPumpRequest = l.machine.PumpOn()
			l.params.ManualHeaterRequest = l.machine.HeaterOn()
		} else {
			l.params.ManualPumpRequest = false
			l.params.ManualHeaterRequest = false
		}
		l.log.Infow("control mode changed", "mode", in.Mode, "origin", in.Origin)

	case models.IntentPumpStart, models.IntentPumpStop:
		if !l.params.ManualMode {
			l.refuse(now, in, "pump commands need manual mode")
			return
		}
		l.params.ManualPumpRequest = in.Kind == models.IntentPumpStart
		l.log.Infow("manual pump request", "on", l.params.ManualPumpRequest, "origin", in.Origin)

	case models.IntentHeaterStart, models.IntentHeaterStop:
		if !l.params.ManualMode {
			l.refuse(now, in, "heater commands need manual mode")
			return
		}
		l.params.ManualHeaterRequest = in.Kind == models.IntentHeaterStart
		l.log.Infow("manual heater request", "on", l.params.ManualHeaterRequest, "origin", in.Origin)

	case models.IntentSetParameter:
		candidate := l.params
		if err := candidate.Set(in.Name, in.Value); err != nil {
			l.refuse(now, in, err.Error())
			return
		}
		// Re-check at apply time: another queued change may have shifted the
		// baseline since ingress validation.
		if err := config.ValidateParams(candidate); err != nil {
			l.refuse(now, in, err.Error())
			return
		}
		l.params = candidate
		l.log.Infow("parameter changed", "name", in.Name, "value", in.Value, "origin", in.Origin)
	}
}

func (l *ControlLoop) refuse(now time.Time, in models.Intent, reason string) {
	l.record(now, models.EventCommandRejected, "command rejected: "+reason, map[string]any{
		"kind":   string(in.Kind),
		"origin": string(in.Origin),
	})
}

// readSensors captures a snapshot under the configured timeout. A failed
// read degrades the tick to an empty snapshot; the machine holds.
func (l *ControlLoop) readSensors(ctx context.Context, now time.Time) models.SensorSnapshot {
	rctx, cancel := context.WithTimeout(ctx, l.loopCfg.SensorTimeout)
	defer cancel()
	snap, err := l.bus.ReadSensors(rctx)
	if err != nil {
		l.log.Warnw("sensor read failed", "error", err)
		return models.NewSensorSnapshot(now, nil)
	}
	return snap
}

// harvest journals the decision's edges and accrues counters on them.
func (l *ControlLoop) harvest(now time.Time, dec control.Decision) {
	if dec.StateChanged {
		l.record(now, models.EventStateChange,
			fmt.Sprintf("operating state %s -> %s", dec.PrevState, dec.State),
			map[string]any{"from": dec.PrevState.String(), "to": dec.State.String()})
	}
	if dec.CycleStarted {
		l.record(now, models.EventCycleStarted, "heating cycle started", nil)
	}
	if dec.PumpStopped {
		l.current.AddPumpRuntime(dec.PumpRuntime)
	}
	if dec.CycleEnded {
		l.current.AddCycle(dec.CycleRuntime)
		l.record(now, models.EventCycleEnded, "heating cycle ended", map[string]any{
			"runtime_s":    dec.CycleRuntime.Seconds(),
			"cycles_today": l.current.HeatingCyclesCount,
		})
	}
}

// markDegraded journals suppression edges, once per degradation episode.
func (l *ControlLoop) markDegraded(now time.Time, missing []models.Role) {
	if len(missing) > 0 && !l.degraded {
		l.record(now, models.EventDegradedCycle, "control rule suppressed, holding previous commands",
			map[string]any{"missing": missing})
	}
	l.degraded = len(missing) > 0
}

// driveActuators reconciles commanded outputs with the hardware. A pump
// write failing actuator_retry_limit consecutive ticks escalates to the
// latched Overheat state; the returned decision reflects any escalation.
func (l *ControlLoop) driveActuators(ctx context.Context, now time.Time, dec control.Decision) control.Decision {
	if l.lastHeater == nil || *l.lastHeater != dec.HeaterOn {
		if err := l.writeActuator(ctx, models.RoleHeater, dec.HeaterOn); err != nil {
			l.record(now, models.EventActuatorFault, "heater write failed",
				map[string]any{"on": dec.HeaterOn, "error": err.Error()})
			l.log.Errorw("heater write failed", "on", dec.HeaterOn, "error", err)
		} else {
			v := dec.HeaterOn
			l.lastHeater = &v
		}
	}

	if l.lastPump == nil || *l.lastPump != dec.PumpOn {
		if err := l.writeActuator(ctx, models.RolePump, dec.PumpOn); err != nil {
			l.pumpFailures++
			l.record(now, models.EventActuatorFault, "pump write failed",
				map[string]any{"on": dec.PumpOn, "error": err.Error(), "consecutive": l.pumpFailures})
			l.log.Errorw("pump write failed", "on", dec.PumpOn, "consecutive", l.pumpFailures, "error", err)

			if l.pumpFailures >= l.loopCfg.ActuatorRetryLimit && dec.State != models.StateOverheat {
				esc := l.machine.ForceOverheat(now)
				l.harvest(now, esc)
				dec = esc
				// One immediate attempt at the safe state; next ticks retry.
				if err := l.writeActuator(ctx, models.RolePump, false); err == nil {
					l.pumpFailures = 0
					off := false
					l.lastPump = &off
				}
			}
		} else {
			l.pumpFailures = 0
			v := dec.PumpOn
			l.lastPump = &v
		}
	}
	return dec
}

func (l *ControlLoop) writeActuator(ctx context.Context, role models.Role, on bool) error {
	wctx, cancel := context.WithTimeout(ctx, l.loopCfg.SensorTimeout)
	defer cancel()
	return l.bus.SetActuator(wctx, role, on)
}

// record journals an event and schedules it for publication this tick.
func (l *ControlLoop) record(now time.Time, eventType, description string, metadata map[string]any) {
	l.events = append(l.events, l.journal.Record(now, eventType, description, metadata))
}

func (l *ControlLoop) saveNow(now time.Time) {
	l.current.LastSaveTimestamp = now.UTC()
	if err := l.counters.Save(l.current); err != nil {
		l.log.Warnw("counters save failed", "error", err)
		return
	}
	l.lastSave = now
}

// shutdown closes open runtimes into the counters and saves synchronously.
func (l *ControlLoop) shutdown(now time.Time) {
	pumpRun, cycleRun := l.machine.Shutdown(now)
	if pumpRun > 0 {
		l.current.AddPumpRuntime(pumpRun)
	}
	if cycleRun > 0 {
		l.current.AddCycle(cycleRun)
		ev := l.journal.Record(now, models.EventCycleEnded, "heating cycle ended at shutdown",
			map[string]any{"runtime_s": cycleRun.Seconds()})
		if err := l.pub.PublishEvent(ev); err != nil {
			l.log.Warnw("event publish failed", "type", ev.Type, "error", err)
		}
	}
	l.saveNow(now)
	l.tracker.SetCounters(l.current)
	l.log.Infow("control loop stopped",
		"pump_runtime_h", l.current.PumpRuntimeHours,
		"cycles_today", l.current.HeatingCyclesCount)
}
