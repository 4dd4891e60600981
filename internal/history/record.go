package history

import (
	"time"

	"codeberg.org/mutker/weldctl/internal/analysis"
)

// Record is one persisted weld. It is written once and never modified.
type Record struct {
	Number          int               `json:"weld_number"`
	Timestamp       time.Time         `json:"timestamp"`
	EnergyJoules    float64           `json:"energy_joules"`
	PeakCurrentAmps float64           `json:"peak_current_amps"`
	DurationMs      float64           `json:"duration_ms"`
	RiseTimeMs      float64           `json:"rise_time_ms"`
	Mode            string            `json:"mode,omitempty"`
	Settings        map[string]any    `json:"settings"`
	Data            []analysis.Sample `json:"data"`
}

// Summary is a Record without its settings snapshot and raw samples.
type Summary struct {
	Number          int       `json:"weld_number"`
	Timestamp       time.Time `json:"timestamp"`
	EnergyJoules    float64   `json:"energy_joules"`
	PeakCurrentAmps float64   `json:"peak_current_amps"`
	DurationMs      float64   `json:"duration_ms"`
	RiseTimeMs      float64   `json:"rise_time_ms"`
	Samples         int       `json:"samples"`
}

func (r Record) Summary() Summary {
	return Summary{
		Number:          r.Number,
		Timestamp:       r.Timestamp,
		EnergyJoules:    r.EnergyJoules,
		PeakCurrentAmps: r.PeakCurrentAmps,
		DurationMs:      r.DurationMs,
		RiseTimeMs:      r.RiseTimeMs,
		Samples:         len(r.Data),
	}
}
