package energy

import (
	"time"

	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/models"
)

// simpleRateDepth is how many raw rates the simple smoother averages.
const simpleRateDepth = 3

type sample struct {
	ts time.Time
	v  float64
}

// ring is a fixed-capacity circular buffer of samples, oldest overwritten
// first.
type ring struct {
	buf   []sample
	head  int
	count int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]sample, capacity)}
}

func (r *ring) push(s sample) {
	r.buf[r.head] = s
	r.head = (r.head + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// window returns the newest sample, the oldest sample not older than
// now-span, and the number of samples inside the window.
func (r *ring) window(now time.Time, span time.Duration) (newest, oldest sample, n int) {
	if r.count == 0 {
		return sample{}, sample{}, 0
	}
	cutoff := now.Add(-span)
	start := (r.head - r.count + len(r.buf)) % len(r.buf)
	for i := 0; i < r.count; i++ {
		s := r.buf[(start+i)%len(r.buf)]
		if s.ts.Before(cutoff) {
			continue
		}
		if n == 0 {
			oldest = s
		}
		newest = s
		n++
	}
	return newest, oldest, n
}

// Estimator derives smoothed rate-of-change figures for stored energy and
// average tank temperature from per-tick samples. Output is observational
// only; nothing here feeds back into control. Owned by the control loop.
type Estimator struct {
	energy *ring
	temp   *ring

	rawEnergy []float64
	rawTemp   []float64

	expEnergy float64
	expTemp   float64
	expPrimed bool
}

// NewEstimator sizes the sample buffers to cover the slow window at the
// given tick interval.
func NewEstimator(tick time.Duration) *Estimator {
	capacity := 8
	if tick > 0 {
		if n := int(models.RateWindowSlow.Span()/tick) + 2; n > capacity {
			capacity = n
		}
	}
	return &Estimator{
		energy: newRing(capacity),
		temp:   newRing(capacity),
	}
}

// Observe records this tick's samples and returns the estimate for the
// selected window and smoothing. The window and smoothing are re-read every
// tick, so runtime parameter changes take effect immediately.
func (e *Estimator) Observe(now time.Time, energyKWh, avgTempC float64, window models.RateWindow, smoothing models.RateSmoothing, alpha float64) models.RateEstimate {
	e.energy.push(sample{ts: now, v: energyKWh})
	e.temp.push(sample{ts: now, v: avgTempC})

	est := models.RateEstimate{Window: window, Smoothing: smoothing}

	span := window.Span()
	rawEnergy, nEnergy, okEnergy := rate(e.energy, now, span)
	rawTemp, nTemp, okTemp := rate(e.temp, now, span)
	if !okEnergy || !okTemp {
		return est
	}
	est.Valid = true
	est.Samples = nEnergy
	if nTemp < nEnergy {
		est.Samples = nTemp
	}

	e.rawEnergy = pushRaw(e.rawEnergy, rawEnergy)
	e.rawTemp = pushRaw(e.rawTemp, rawTemp)

	switch smoothing {
	case models.SmoothingSimple:
		est.EnergyKW = mean(e.rawEnergy)
		est.TempCPerHour = mean(e.rawTemp)
	case models.SmoothingExponential:
		if !e.expPrimed {
			e.expEnergy = rawEnergy
			e.expTemp = rawTemp
			e.expPrimed = true
		} else {
			e.expEnergy = alpha*rawEnergy + (1-alpha)*e.expEnergy
			e.expTemp = alpha*rawTemp + (1-alpha)*e.expTemp
		}
		est.EnergyKW = e.expEnergy
		est.TempCPerHour = e.expTemp
	default:
		est.EnergyKW = rawEnergy
		est.TempCPerHour = rawTemp
	}
	return est
}

// rate computes (newest - oldest_in_window) / elapsed_hours. At least two
// samples spanning a positive interval are required.
func rate(r *ring, now time.Time, span time.Duration) (float64, int, bool) {
	newest, oldest, n := r.window(now, span)
	if n < 2 {
		return 0, n, false
	}
	elapsed := newest.ts.Sub(oldest.ts).Hours()
	if elapsed <= 0 {
		return 0, n, false
	}
	return (newest.v - oldest.v) / elapsed, n, true
}

func pushRaw(history []float64, v float64) []float64 {
	history = append(history, v)
	if len(history) > simpleRateDepth {
		history = history[len(history)-simpleRateDepth:]
	}
	return history
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}
