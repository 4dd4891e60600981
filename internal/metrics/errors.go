package metrics

import "codeberg.org/mutker/weldctl/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidAddr   = errors.ErrorCode("metrics_invalid_addr")

	// Service Errors
	ErrRegister = errors.ErrInitMetrics
	ErrServe    = errors.ErrServeMetrics
)
