package welder

import "codeberg.org/mutker/weldctl/internal/errors"

const (
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrApplySettings = errors.ErrApplyState
	ErrInit          = errors.ErrInitFailed
)
