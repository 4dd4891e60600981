package telemetry

import "codeberg.org/mutker/weldctl/internal/errors"

const (
	ErrInvalidConfig = errors.ErrInvalidConfig
)
