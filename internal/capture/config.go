package capture

import (
	"math"

	"codeberg.org/mutker/weldctl/internal/analysis"
	"codeberg.org/mutker/weldctl/internal/errors"
)

const (
	// DefaultResistanceOhms is the weld circuit resistance used to derive
	// current from voltage-only captures.
	DefaultResistanceOhms = 0.0015
	// DefaultTrailingGapMicros places the closing zero-current sample after
	// the last real sample.
	DefaultTrailingGapMicros = 200
)

type Config struct {
	ResistanceOhms    float64
	CurrentThreshold  float64
	TrailingGapMicros uint64
}

func DefaultConfig() Config {
	return Config{
		ResistanceOhms:    DefaultResistanceOhms,
		CurrentThreshold:  analysis.DefaultCurrentThreshold,
		TrailingGapMicros: DefaultTrailingGapMicros,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if !(c.ResistanceOhms > 0) || math.IsInf(c.ResistanceOhms, 0) {
		return errFactory.WithData(ErrInvalidConfig, "resistance must be positive")
	}
	if c.CurrentThreshold < 0 {
		return errFactory.WithData(ErrInvalidConfig, "current threshold must not be negative")
	}
	return nil
}
