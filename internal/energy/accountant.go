package energy

import (
	"time"

	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/models"
)

// Water properties for the stratified tank model.
const (
	waterDensityKgM3 = 1000.0
	waterCpJPerKgK   = 4186.0
	jPerKWh          = 3.6e6

	topZoneProbes = 3 // probes 1-3 form the top zone, 4-8 the bottom
)

// Accountant converts snapshots into stored-energy figures and attributes
// the tick-to-tick gain to the active heat source, keeping hour, day and
// lifetime buckets. Owned by the control loop; not safe for concurrent use.
type Accountant struct {
	tankVolumeM3 float64

	zones     models.ZoneEnergy
	prevTotal float64
	havePrev  bool

	hour      models.SourceTotals
	day       models.SourceTotals
	lifetime  models.SourceTotals
	hourStart time.Time
	dayStart  time.Time
}

// NewAccountant builds an accountant for a tank of the given volume in
// liters.
func NewAccountant(tankVolumeL float64) *Accountant {
	return &Accountant{tankVolumeM3: tankVolumeL / 1000.0}
}

// Update processes one tick. Bucket boundaries crossed since the previous
// tick are flushed first, so a returned aggregate always covers a complete
// period and never contains this tick's delta. The bool result reports
// whether the snapshot was complete enough to account: a tick with any
// vertical probe missing contributes no delta and leaves the zone figures
// unchanged.
func (a *Accountant) Update(now time.Time, snap models.SensorSnapshot, pumpOn, heaterOn, pelletActive bool) ([]models.PeriodAggregate, bool) {
	aggs := a.rollover(now)

	zones, ok := a.zoneEnergies(snap)
	if !ok {
		return aggs, false
	}

	if a.havePrev {
		delta := zones.TotalKWh - a.prevTotal
		switch {
		case delta > 0:
			source := activeSource(pumpOn, heaterOn, pelletActive)
			a.hour.Add(source, delta)
			a.day.Add(source, delta)
			a.lifetime.Add(source, delta)
		case delta < 0:
			a.hour.ConsumedKWh -= delta
			a.day.ConsumedKWh -= delta
			a.lifetime.ConsumedKWh -= delta
		}
	}

	a.zones = zones
	a.prevTotal = zones.TotalKWh
	a.havePrev = true
	return aggs, true
}

// Ledger returns the published view of the accountant's state.
func (a *Accountant) Ledger() models.EnergyLedger {
	return models.EnergyLedger{
		Zones:     a.zones,
		Hour:      a.hour,
		Day:       a.day,
		Lifetime:  a.lifetime,
		HourStart: a.hourStart,
		DayStart:  a.dayStart,
	}
}

// activeSource picks the attribution for a positive gain. Pump-driven gain
// is solar; otherwise the cartridge heater, then the external pellet flag.
// With no source active the gain is dropped.
func activeSource(pumpOn, heaterOn, pelletActive bool) models.HeatSource {
	switch {
	case pumpOn:
		return models.SourceSolar
	case heaterOn:
		return models.SourceCartridge
	case pelletActive:
		return models.SourcePellet
	default:
		return models.SourceNone
	}
}

// rollover flushes buckets whose wall-clock boundary was crossed since the
// previous tick. The first tick only anchors the bucket starts.
func (a *Accountant) rollover(now time.Time) []models.PeriodAggregate {
	hourStart := startOfHour(now)
	dayStart := startOfDay(now)

	if a.hourStart.IsZero() {
		a.hourStart = hourStart
		a.dayStart = dayStart
		return nil
	}

	var aggs []models.PeriodAggregate
	if !hourStart.Equal(a.hourStart) {
		aggs = append(aggs, models.PeriodAggregate{
			Period: models.PeriodHour,
			Start:  a.hourStart,
			End:    a.hourStart.Add(time.Hour),
			Totals: a.hour,
		})
		a.hour = models.SourceTotals{}
		a.hourStart = hourStart
	}
	if !dayStart.Equal(a.dayStart) {
		aggs = append(aggs, models.PeriodAggregate{
			Period: models.PeriodDay,
			Start:  a.dayStart,
			End:    a.dayStart.AddDate(0, 0, 1),
			Totals: a.day,
		})
		a.day = models.SourceTotals{}
		a.dayStart = dayStart
	}
	return aggs
}

// zoneEnergies computes stored energy per zone relative to 0 °C. Equal
// volume fractions per probe.
func (a *Accountant) zoneEnergies(snap models.SensorSnapshot) (models.ZoneEnergy, bool) {
	sliceM3 := a.tankVolumeM3 / models.TankProbeCount
	var zones models.ZoneEnergy
	for i := 1; i <= models.TankProbeCount; i++ {
		temp, ok := snap.Temperature(models.TankProbeRole(i))
		if !ok {
			return models.ZoneEnergy{}, false
		}
		kwh := sliceM3 * waterDensityKgM3 * waterCpJPerKgK * temp / jPerKWh
		if i <= topZoneProbes {
			zones.TopKWh += kwh
		} else {
			zones.BottomKWh += kwh
		}
	}
	zones.TotalKWh = zones.TopKWh + zones.BottomKWh
	return zones, true
}

func startOfHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
