package welder

import (
	"codeberg.org/mutker/weldctl/internal/history"
	"codeberg.org/mutker/weldctl/internal/logger"
	"codeberg.org/mutker/weldctl/internal/telemetry"
)

// StatusSink receives the live status on every change and on each tick.
type StatusSink interface {
	PublishStatus(telemetry.Status)
}

// WeldEventSink receives pedal, weld completion and firmware weld events.
type WeldEventSink interface {
	PedalActive(active bool)
	WeldComplete(history.Summary)
	WeldEvent(message string)
}

// LogSink receives device lines nothing else understood.
type LogSink interface {
	DeviceLog(line string)
}

// logSink writes every event to the structured log. It backs all three
// sinks until a push layer replaces them.
type logSink struct {
	logger logger.Logger
}

func newLogSink(log logger.Logger) *logSink {
	return &logSink{logger: log}
}

func (s *logSink) PublishStatus(st telemetry.Status) {
	s.logger.Debug().
		Bool("esp_connected", st.Connected).
		Float64("vpack", st.Status.PackVoltage).
		Float64("current", st.Status.Current).
		Float64("temp", st.Status.Temperature).
		Str("state", st.Status.State).
		Bool("armed", st.Status.Armed).
		Float64("cell_spread", st.Balance.Spread).
		Bool("balanced", st.Balance.Balanced).
		Msg("Status")
}

func (s *logSink) PedalActive(active bool) {
	s.logger.Debug().Bool("active", active).Msg("Pedal")
}

func (s *logSink) WeldComplete(sum history.Summary) {
	s.logger.Info().
		Int("weld_number", sum.Number).
		Float64("energy_j", sum.EnergyJoules).
		Float64("peak_a", sum.PeakCurrentAmps).
		Float64("duration_ms", sum.DurationMs).
		Float64("rise_ms", sum.RiseTimeMs).
		Msg("Weld complete")
}

func (s *logSink) WeldEvent(message string) {
	s.logger.Info().Str("message", message).Msg("Weld event")
}

func (s *logSink) DeviceLog(line string) {
	s.logger.Info().Str("line", line).Msg("Device")
}
