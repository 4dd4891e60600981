package analysis_test

import (
	"testing"

	"codeberg.org/mutker/weldctl/internal/analysis"
	"github.com/stretchr/testify/assert"
)

// baseline, two real samples and the closing zero-current sample
var weldWaveform = []analysis.Sample{
	{TimeMicros: 1000, Voltage: 4.0, Current: 0},
	{TimeMicros: 1000, Voltage: 4.0, Current: 0},
	{TimeMicros: 2000, Voltage: 3.8, Current: 500},
	{TimeMicros: 3000, Voltage: 3.7, Current: 520},
	{TimeMicros: 3200, Voltage: 3.7, Current: 0},
}

func TestAnalyzePowerMode(t *testing.T) {
	res := analysis.Analyze(weldWaveform, analysis.Options{Mode: analysis.ModePower})

	assert.Equal(t, 520.0, res.PeakCurrentAmps)
	assert.Equal(t, 2.2, res.DurationMs)
	// 0.95 J + 1.912 J + 0.1924 J
	assert.Equal(t, 3.05, res.EnergyJoules)
	// 10% (52 A) at 1104 µs, 90% (468 A) at 1936 µs
	assert.Equal(t, 0.83, res.RiseTimeMs)
	assert.Equal(t, analysis.ModePower, res.Mode)
}

func TestAnalyzeResistiveMode(t *testing.T) {
	res := analysis.Analyze(weldWaveform, analysis.Options{
		Mode:           analysis.ModeResistive,
		ResistanceOhms: 0.001,
	})

	// Every non-zero interval averages above 100 A:
	// 0.001 s·0.001 Ω·(0+500²)/2 + 0.001·0.001·(500²+520²)/2 + 0.0002·0.001·(520²+0)/2
	// = 0.125 + 0.2602 + 0.02704
	assert.Equal(t, 0.41, res.EnergyJoules)
	assert.Equal(t, 520.0, res.PeakCurrentAmps)
}

func TestAnalyzeResistiveThresholdExcludesNoise(t *testing.T) {
	samples := []analysis.Sample{
		{TimeMicros: 0, Current: 0},
		{TimeMicros: 1000, Current: 80},
		{TimeMicros: 2000, Current: 90},
		{TimeMicros: 3000, Current: 0},
	}

	res := analysis.Analyze(samples, analysis.Options{Mode: analysis.ModeResistive, ResistanceOhms: 1})
	assert.Zero(t, res.EnergyJoules)
	assert.Equal(t, 90.0, res.PeakCurrentAmps)
}

func TestAnalyzeEmptyAndSingle(t *testing.T) {
	assert.Equal(t, analysis.Result{}, analysis.Analyze(nil, analysis.Options{}))

	res := analysis.Analyze([]analysis.Sample{{TimeMicros: 5, Voltage: 4, Current: 300}}, analysis.Options{})
	assert.Equal(t, 300.0, res.PeakCurrentAmps)
	assert.Zero(t, res.DurationMs)
	assert.Zero(t, res.EnergyJoules)
	assert.Zero(t, res.RiseTimeMs)
}

func TestAnalyzeNegativeCurrentPeak(t *testing.T) {
	samples := []analysis.Sample{
		{TimeMicros: 0, Current: 0},
		{TimeMicros: 100, Current: -640.04},
		{TimeMicros: 200, Current: 10},
	}

	res := analysis.Analyze(samples, analysis.Options{})
	assert.Equal(t, 640.0, res.PeakCurrentAmps)
}

func TestAnalyzeRiseTime(t *testing.T) {
	tests := []struct {
		name    string
		samples []analysis.Sample
		want    float64
	}{
		{
			name: "zero peak",
			samples: []analysis.Sample{
				{TimeMicros: 0}, {TimeMicros: 1000},
			},
			want: 0,
		},
		{
			name: "starts above both thresholds",
			samples: []analysis.Sample{
				{TimeMicros: 0, Current: 1000}, {TimeMicros: 1000, Current: 1000},
			},
			want: 0,
		},
		{
			name: "linear ramp",
			samples: []analysis.Sample{
				{TimeMicros: 0, Current: 0},
				{TimeMicros: 10000, Current: 1000},
			},
			// 10% at 1 ms, 90% at 9 ms
			want: 8,
		},
		{
			name: "staircase",
			samples: []analysis.Sample{
				{TimeMicros: 0, Current: 0},
				{TimeMicros: 1000, Current: 100},
				{TimeMicros: 2000, Current: 100},
				{TimeMicros: 3000, Current: 1000},
			},
			// 10% reached exactly at 1 ms, 90% interpolated at 2.888… ms
			want: 1.89,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := analysis.Analyze(tt.samples, analysis.Options{})
			assert.Equal(t, tt.want, res.RiseTimeMs)
		})
	}
}

func TestAnalyzeDoesNotModifyInput(t *testing.T) {
	in := append([]analysis.Sample(nil), weldWaveform...)
	analysis.Analyze(in, analysis.Options{Mode: analysis.ModeResistive, ResistanceOhms: 0.002})
	assert.Equal(t, weldWaveform, in)
}
