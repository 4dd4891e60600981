// Package analysis reduces a finished weld capture to physical metrics.
// Everything here is a pure function of the samples.
package analysis

import "math"

const (
	// DefaultCurrentThreshold gates resistive integration so settle-time
	// noise around zero current does not add energy.
	DefaultCurrentThreshold = 100.0

	microsPerSecond = 1e6
	msPerSecond     = 1e3

	riseLow  = 0.10
	riseHigh = 0.90
)

// Sample is one point of a weld waveform. TimeMicros is the device clock.
type Sample struct {
	TimeMicros uint64  `json:"t_us"`
	Voltage    float64 `json:"v"`
	Current    float64 `json:"i"`
}

// Mode selects how energy is integrated.
type Mode int

const (
	// ModePower integrates V·I over every interval.
	ModePower Mode = iota
	// ModeResistive integrates I²·R over intervals whose mean |I| exceeds
	// the threshold.
	ModeResistive
)

func (m Mode) String() string {
	if m == ModeResistive {
		return "resistive"
	}
	return "power"
}

type Options struct {
	Mode             Mode
	ResistanceOhms   float64
	CurrentThreshold float64
}

// Result holds display-rounded metrics: energy and rise time to 2 decimals,
// current and duration to 1.
type Result struct {
	EnergyJoules    float64
	PeakCurrentAmps float64
	DurationMs      float64
	RiseTimeMs      float64
	Mode            Mode
}

// Analyze computes energy, peak current, duration and 10–90% rise time.
// The input slice is not modified.
func Analyze(samples []Sample, opts Options) Result {
	res := Result{Mode: opts.Mode}
	if len(samples) == 0 {
		return res
	}

	times := normalizeTimes(samples)

	res.PeakCurrentAmps = round(peakCurrent(samples), 1)
	res.RiseTimeMs = round(riseTime(samples, times, peakCurrent(samples)), 2)

	if len(samples) < 2 {
		return res
	}

	res.DurationMs = round((times[len(times)-1]-times[0])*msPerSecond, 1)

	switch opts.Mode {
	case ModeResistive:
		threshold := opts.CurrentThreshold
		if threshold <= 0 {
			threshold = DefaultCurrentThreshold
		}
		res.EnergyJoules = round(resistiveEnergy(samples, times, opts.ResistanceOhms, threshold), 2)
	default:
		res.EnergyJoules = round(powerEnergy(samples, times), 2)
	}

	return res
}

// normalizeTimes returns sample times in seconds relative to the first sample.
func normalizeTimes(samples []Sample) []float64 {
	t0 := samples[0].TimeMicros
	times := make([]float64, len(samples))
	for i, s := range samples {
		times[i] = float64(int64(s.TimeMicros-t0)) / microsPerSecond
	}
	return times
}

func powerEnergy(samples []Sample, times []float64) float64 {
	var energy float64
	for i := 1; i < len(samples); i++ {
		dt := times[i] - times[i-1]
		p0 := samples[i-1].Voltage * samples[i-1].Current
		p1 := samples[i].Voltage * samples[i].Current
		energy += dt * (p0 + p1) / 2
	}
	return energy
}

func resistiveEnergy(samples []Sample, times []float64, ohms, threshold float64) float64 {
	var energy float64
	for i := 1; i < len(samples); i++ {
		i0, i1 := samples[i-1].Current, samples[i].Current
		if math.Abs((i0+i1)/2) <= threshold {
			continue
		}
		dt := times[i] - times[i-1]
		energy += dt * ohms * (i0*i0 + i1*i1) / 2
	}
	return energy
}

func peakCurrent(samples []Sample) float64 {
	var peak float64
	for _, s := range samples {
		peak = math.Max(peak, math.Abs(s.Current))
	}
	return peak
}

// riseTime returns the time in ms between |I| first reaching 10% and first
// reaching 90% of peak. Crossing times are interpolated linearly between
// the samples on either side of the threshold.
func riseTime(samples []Sample, times []float64, peak float64) float64 {
	if peak <= 0 {
		return 0
	}

	t10, idx, ok := crossing(samples, times, 0, riseLow*peak)
	if !ok {
		return 0
	}
	t90, _, ok := crossing(samples, times, idx, riseHigh*peak)
	if !ok || t90 < t10 {
		return 0
	}

	return (t90 - t10) * msPerSecond
}

func crossing(samples []Sample, times []float64, from int, level float64) (float64, int, bool) {
	for i := from; i < len(samples); i++ {
		cur := math.Abs(samples[i].Current)
		if cur < level {
			continue
		}
		if i == 0 {
			return times[0], 0, true
		}
		prev := math.Abs(samples[i-1].Current)
		if prev >= level || cur == prev {
			return times[i], i, true
		}
		frac := (level - prev) / (cur - prev)
		return times[i-1] + frac*(times[i]-times[i-1]), i, true
	}
	return 0, 0, false
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
