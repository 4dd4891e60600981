package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrUnavailable     ErrorCode = "service_unavailable"
	ErrAlreadyRunning  ErrorCode = "already_running"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"
	ErrInvalidTimeout  ErrorCode = "invalid_timeout"
	ErrInvalidPort     ErrorCode = "invalid_port"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"
	ErrOpenLogFile     ErrorCode = "open_log_file_failed"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"

	// Resource errors
	ErrResourceNotFound ErrorCode = "resource_not_found"

	// Application errors
	ErrInitApp    ErrorCode = "init_app_failed"
	ErrMainLoop   ErrorCode = "main_loop_failed"
	ErrApplyState ErrorCode = "apply_device_settings_failed"

	// Operation errors
	ErrOperationFailed ErrorCode = "operation_failed"
	ErrTimeout         ErrorCode = "operation_timeout"

	// Metrics errors
	ErrInitMetrics  ErrorCode = "init_metrics_failed"
	ErrServeMetrics ErrorCode = "serve_metrics_failed"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:         "Internal error occurred",
	ErrInvalidArgument:  "Invalid argument provided",
	ErrUnavailable:      "Service unavailable",
	ErrAlreadyRunning:   "Another instance is already running",
	ErrInvalidConfig:    "Invalid configuration",
	ErrBindFlags:        "Failed to bind flags",
	ErrReadConfig:       "Failed to read config file",
	ErrInvalidInterval:  "Invalid interval value",
	ErrInvalidTimeout:   "Invalid timeout value",
	ErrInvalidPort:      "Invalid port",
	ErrInvalidLogLevel:  "Invalid log level",
	ErrOpenLogFile:      "Failed to open log file",
	ErrInitFailed:       "Initialization failed",
	ErrShutdownFailed:   "Shutdown failed",
	ErrResourceNotFound: "Resource not found",
	ErrInitApp:          "Failed to initialize application",
	ErrMainLoop:         "Error in main loop",
	ErrApplyState:       "Failed to apply settings to device",
	ErrOperationFailed:  "Operation failed",
	ErrTimeout:          "Operation timed out",
	ErrInitMetrics:      "Failed to initialize metrics",
	ErrServeMetrics:     "Failed to serve metrics",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
