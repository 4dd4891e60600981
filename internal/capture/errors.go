package capture

import "codeberg.org/mutker/weldctl/internal/errors"

const (
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrPersist       = errors.ErrorCode("capture_persist_failed")
)
