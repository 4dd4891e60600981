package protocol

import "codeberg.org/mutker/weldctl/internal/errors"

const (
	ErrMalformedField = errors.ErrorCode("protocol_malformed_field")
)

var errFactory = errors.New()
