package telemetry

import (
	"math"

	"codeberg.org/mutker/weldctl/internal/errors"
)

const (
	// DefaultTemperatureOffset calibrates the welder's thermistor reading.
	DefaultTemperatureOffset = 5.0
	// DefaultBalanceTolerance is the largest cell spread still reported as balanced.
	DefaultBalanceTolerance = 0.05
)

type Config struct {
	TemperatureOffset float64
	BalanceTolerance  float64
}

func DefaultConfig() Config {
	return Config{
		TemperatureOffset: DefaultTemperatureOffset,
		BalanceTolerance:  DefaultBalanceTolerance,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if math.IsNaN(c.TemperatureOffset) || math.IsInf(c.TemperatureOffset, 0) {
		return errFactory.WithData(ErrInvalidConfig, "temperature offset must be finite")
	}
	if !(c.BalanceTolerance > 0) {
		return errFactory.WithData(ErrInvalidConfig, "balance tolerance must be positive")
	}
	return nil
}
