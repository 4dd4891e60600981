package link

import "codeberg.org/mutker/weldctl/internal/errors"

const (
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrNotConnected  = errors.ErrorCode("link_not_connected")
	ErrDial          = errors.ErrorCode("link_dial_failed")
	ErrWrite         = errors.ErrorCode("link_write_failed")
	ErrRead          = errors.ErrorCode("link_read_failed")
	ErrSilence       = errors.ErrorCode("link_silence_timeout")
)
