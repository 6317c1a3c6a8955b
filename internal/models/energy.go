package models

import "time"

// HeatSource identifies where an energy gain is attributed.
type HeatSource string

const (
	SourceSolar     HeatSource = "solar"
	SourceCartridge HeatSource = "cartridge"
	SourcePellet    HeatSource = "pellet"
	SourceNone      HeatSource = ""
)

// ZoneEnergy is the stored energy of the stratified tank, in kWh, split at
// the probe-3/probe-4 boundary.
type ZoneEnergy struct {
	TopKWh    float64 `json:"top_kwh"`
	BottomKWh float64 `json:"bottom_kwh"`
	TotalKWh  float64 `json:"total_kwh"`
}

// SourceTotals accumulates attributed energy gains plus the separately
// recorded consumption (negative deltas) over one accounting period.
type SourceTotals struct {
	SolarKWh     float64 `json:"solar_kwh"`
	CartridgeKWh float64 `json:"cartridge_kwh"`
	PelletKWh    float64 `json:"pellet_kwh"`
	ConsumedKWh  float64 `json:"consumed_kwh"`
}

// Add attributes a positive gain to one source.
func (t *SourceTotals) Add(source HeatSource, kwh float64) {
	switch source {
	case SourceSolar:
		t.SolarKWh += kwh
	case SourceCartridge:
		t.CartridgeKWh += kwh
	case SourcePellet:
		t.PelletKWh += kwh
	}
}

// GainKWh returns the sum of all attributed gains.
func (t SourceTotals) GainKWh() float64 {
	return t.SolarKWh + t.CartridgeKWh + t.PelletKWh
}

// EnergyLedger is the accountant's published view: current zone energies
// and the open hour/day buckets plus the monotonic lifetime totals.
type EnergyLedger struct {
	Zones     ZoneEnergy   `json:"zones"`
	Hour      SourceTotals `json:"hour"`
	Day       SourceTotals `json:"day"`
	Lifetime  SourceTotals `json:"lifetime"`
	HourStart time.Time    `json:"hour_start"`
	DayStart  time.Time    `json:"day_start"`
}

// PeriodKind tags an aggregate with the bucket granularity it covers.
type PeriodKind string

const (
	PeriodHour PeriodKind = "hour"
	PeriodDay  PeriodKind = "day"
)

// PeriodAggregate is flushed exactly once when an hour or day boundary is
// crossed and always covers a complete period. External dashboards rely on
// never seeing a partial bucket.
type PeriodAggregate struct {
	Period PeriodKind   `json:"period"`
	Start  time.Time    `json:"start"`
	End    time.Time    `json:"end"`
	Totals SourceTotals `json:"totals"`
}

// RateEstimate is the smoothed rate-of-change output. Purely observational;
// it never feeds back into control decisions.
type RateEstimate struct {
	Window       RateWindow    `json:"window"`
	Smoothing    RateSmoothing `json:"smoothing"`
	EnergyKW     float64       `json:"energy_kw"`
	TempCPerHour float64       `json:"temp_c_per_hour"`
	Samples      int           `json:"samples"`
	Valid        bool          `json:"valid"`
}
