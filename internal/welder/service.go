package welder

import (
	"context"
	"sync"

	"codeberg.org/mutker/weldctl/internal/capture"
	"codeberg.org/mutker/weldctl/internal/errors"
	"codeberg.org/mutker/weldctl/internal/history"
	"codeberg.org/mutker/weldctl/internal/link"
	"codeberg.org/mutker/weldctl/internal/logger"
	"codeberg.org/mutker/weldctl/internal/metrics"
	"codeberg.org/mutker/weldctl/internal/protocol"
	"codeberg.org/mutker/weldctl/internal/settings"
	"codeberg.org/mutker/weldctl/internal/telemetry"
)

// HistoryStore is the weld history the service persists into.
type HistoryStore interface {
	capture.Persister
	List(limit int) ([]history.Summary, error)
	Read(number int) (history.Record, error)
	Clear(ctx context.Context) error
}

// SettingsStore holds the pulse settings and presets.
type SettingsStore interface {
	Load(ctx context.Context) (settings.Settings, error)
	Save(ctx context.Context, st settings.Settings) (settings.Settings, error)
	Presets(ctx context.Context) (map[string]settings.Preset, error)
	SavePreset(ctx context.Context, id string, p settings.Preset) error
	ActivatePreset(ctx context.Context, id string) (settings.Settings, error)
}

type Config struct {
	Link      link.Config
	Capture   capture.Config
	Telemetry telemetry.Config
}

type Option func(*Service)

func WithMetrics(c metrics.Collector) Option {
	return func(s *Service) { s.metrics = c }
}

func WithStatusSink(sink StatusSink) Option {
	return func(s *Service) { s.status = sink }
}

func WithWeldEventSink(sink WeldEventSink) Option {
	return func(s *Service) { s.events = sink }
}

func WithLogSink(sink LogSink) Option {
	return func(s *Service) { s.logs = sink }
}

// WithLinkOptions passes options through to the welder link.
func WithLinkOptions(opts ...link.Option) Option {
	return func(s *Service) { s.linkOpts = append(s.linkOpts, opts...) }
}

// Service connects the welder link to telemetry, weld capture, history and
// settings, and exposes the command API.
type Service struct {
	link      *link.Link
	telemetry *telemetry.Aggregator
	capture   *capture.Machine
	history   HistoryStore
	store     SettingsStore
	metrics   metrics.Collector
	status    StatusSink
	events    WeldEventSink
	logs      LogSink
	logger    logger.Logger
	linkOpts  []link.Option

	// ctx bounds persistence done on the link goroutine
	ctx context.Context

	// saveMu orders read-modify-write cycles on the stored settings
	saveMu sync.Mutex

	mu       sync.RWMutex
	settings settings.Settings
}

func New(ctx context.Context, cfg Config, hist HistoryStore, store SettingsStore, log logger.Logger, opts ...Option) (*Service, error) {
	errFactory := errors.New()

	if err := cfg.Telemetry.Validate(); err != nil {
		return nil, err
	}

	sink := newLogSink(log)
	s := &Service{
		telemetry: telemetry.NewAggregator(cfg.Telemetry),
		history:   hist,
		store:     store,
		metrics:   noopMetrics(),
		status:    sink,
		events:    sink,
		logs:      sink,
		logger:    log,
		ctx:       ctx,
	}
	for _, opt := range opts {
		opt(s)
	}

	st, err := store.Load(ctx)
	if err != nil {
		return nil, errFactory.Wrap(ErrInit, err)
	}
	s.settings = st

	s.capture, err = capture.New(cfg.Capture, hist, captureEvents{s}, log.With("capture"),
		capture.WithSettings(func() map[string]any { return s.Settings().Map() }))
	if err != nil {
		return nil, err
	}

	lopts := append([]link.Option{link.WithStateObserver(s)}, s.linkOpts...)
	s.link, err = link.New(cfg.Link, s, log.With("link"), lopts...)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Start connects to the welder in the background. It returns false when
// already started.
func (s *Service) Start(ctx context.Context) bool {
	return s.link.Start(ctx)
}

// Stop disconnects and abandons any capture in progress.
func (s *Service) Stop() {
	s.link.Stop()
	s.capture.Abandon()
}

func (s *Service) Connected() bool {
	return s.link.Connected()
}

// Status returns a copy of the live status.
func (s *Service) Status() telemetry.Status {
	return s.telemetry.Snapshot()
}

// PublishStatus pushes the live status to the status sink. It is called on
// a fixed tick in addition to the pushes on every change.
func (s *Service) PublishStatus() {
	s.status.PublishStatus(s.telemetry.Snapshot())
}

// HandleLine dispatches one inbound line. It runs on the link goroutine.
func (s *Service) HandleLine(line string) {
	kind := protocol.Dispatch(s, line)
	s.metrics.Line(kind.String())
}

// LinkStateChanged keeps esp_connected current and re-applies the stored
// settings whenever a connection comes up, so a rebooted welder matches.
func (s *Service) LinkStateChanged(state link.State) {
	s.metrics.ConnectionState(state.String())

	connected := state == link.Connected
	if snap, changed := s.telemetry.SetConnected(connected); changed {
		s.status.PublishStatus(snap)
	}

	switch state {
	case link.Connected:
		s.metrics.Reconnect()
		if err := s.sendSettings(s.Settings()); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to re-apply settings on connect")
		}
	case link.Disconnected:
		s.capture.Abandon()
	}
}

func (s *Service) OnStatus(st protocol.Status) {
	snap := s.telemetry.UpdateStatus(st)
	s.metrics.Status(snap.Status.PackVoltage, snap.Status.Temperature, snap.Status.Current)
	s.status.PublishStatus(snap)
}

func (s *Service) OnCells(c protocol.Cells) {
	s.status.PublishStatus(s.telemetry.UpdateCells(c))
}

func (s *Service) OnCharger(c protocol.Charger) {
	snap := s.telemetry.UpdateCharger(c)
	s.metrics.Status(snap.Status.PackVoltage, snap.Status.Temperature, snap.Status.Current)
	s.status.PublishStatus(snap)
}

func (s *Service) OnSample(sample protocol.Sample) {
	s.capture.AddSample(sample)
}

func (s *Service) OnCaptureSummary(sum protocol.CaptureSummary) {
	s.logger.Debug().Strs("fields", sum.Fields).Msg("Capture summary")
}

func (s *Service) OnFired(f protocol.Fired) {
	if _, _, err := s.capture.Finish(s.ctx, f); err != nil {
		var appErr errors.Error
		if errors.As(err, &appErr) {
			s.logger.ErrorWithCode(appErr).Msg("Failed to persist weld")
			return
		}
		s.logger.Error().Err(err).Msg("Failed to persist weld")
	}
}

func (s *Service) OnPedal(p protocol.Pedal) {
	s.events.PedalActive(p.Active)
}

func (s *Service) OnWeldEvent(e protocol.WeldEvent) {
	s.events.WeldEvent(e.Message)
}

func (s *Service) OnLog(l protocol.Log) {
	if l.Malformed {
		s.logger.Debug().Str("line", l.Line).Msg("Malformed device line")
	}
	s.logs.DeviceLog(l.Line)
}

// captureEvents forwards the capture lifecycle to sinks and metrics.
type captureEvents struct{ s *Service }

func (e captureEvents) CaptureStarted() {
	e.s.events.PedalActive(true)
}

func (e captureEvents) CaptureDiscarded() {
	e.s.metrics.WeldDiscarded()
	e.s.events.PedalActive(false)
}

func (e captureEvents) WeldPersisted(rec history.Record) {
	e.s.metrics.WeldPersisted(rec.EnergyJoules, rec.PeakCurrentAmps)
	e.s.events.PedalActive(false)
	e.s.events.WeldComplete(rec.Summary())
}

func (e captureEvents) WeldFailed(rec history.Record, _ error) {
	e.s.metrics.WeldPersistFailed()
	e.s.events.PedalActive(false)
	e.s.logger.Warn().Int("weld_number", rec.Number).Msg("Weld number consumed without a record")
}

func noopMetrics() metrics.Collector {
	c, _ := metrics.NewService(metrics.Config{}, logger.Nop())
	return c
}
