package history

import "codeberg.org/mutker/weldctl/internal/errors"

const (
	ErrInvalidConfig  = errors.ErrorCode("history_invalid_config")
	ErrStorageInit    = errors.ErrorCode("history_storage_init_failed")
	ErrStorageAccess  = errors.ErrorCode("history_storage_access_failed")
	ErrRecordNotFound = errors.ErrorCode("history_record_not_found")
	ErrCounterAccess  = errors.ErrorCode("history_counter_access_failed")
)
