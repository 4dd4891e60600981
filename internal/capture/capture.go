package capture

import (
	"context"
	"slices"
	"sync"
	"time"

	"codeberg.org/mutker/weldctl/internal/analysis"
	"codeberg.org/mutker/weldctl/internal/errors"
	"codeberg.org/mutker/weldctl/internal/history"
	"codeberg.org/mutker/weldctl/internal/logger"
	"codeberg.org/mutker/weldctl/internal/protocol"
)

type State int

const (
	Idle State = iota
	Capturing
	Finalizing
)

func (s State) String() string {
	switch s {
	case Capturing:
		return "capturing"
	case Finalizing:
		return "finalizing"
	default:
		return "idle"
	}
}

// Persister stores a finished weld and assigns its number.
type Persister interface {
	Persist(ctx context.Context, rec history.Record) (history.Record, error)
}

// Events receives the capture lifecycle. Calls happen on the goroutine that
// feeds the machine, outside the capture lock.
type Events interface {
	CaptureStarted()
	CaptureDiscarded()
	WeldPersisted(rec history.Record)
	WeldFailed(rec history.Record, err error)
}

type Option func(*Machine)

// WithSettings attaches a snapshot of the active settings to every record.
func WithSettings(fn func() map[string]any) Option {
	return func(m *Machine) { m.settings = fn }
}

func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// Machine turns a stream of weld samples closed by FIRED into weld records.
type Machine struct {
	cfg      Config
	store    Persister
	events   Events
	logger   logger.Logger
	settings func() map[string]any
	now      func() time.Time

	// finalizeMu serializes finalizers so records are persisted in order.
	finalizeMu sync.Mutex

	mu          sync.Mutex
	state       State
	started     time.Time
	samples     []analysis.Sample
	real        int
	voltageOnly bool
}

func New(cfg Config, store Persister, events Events, log logger.Logger, opts ...Option) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Machine{
		cfg:    cfg,
		store:  store,
		events: events,
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// AddSample appends one sample, opening a capture when idle. The first
// sample is preceded by a zero-current baseline at the same device time.
func (m *Machine) AddSample(s protocol.Sample) {
	sample := analysis.Sample{TimeMicros: s.TimeMicros, Voltage: s.Voltage, Current: s.Current}

	m.mu.Lock()
	started := m.state != Capturing
	if started {
		m.state = Capturing
		m.started = m.now()
		m.samples = append(make([]analysis.Sample, 0, 256), analysis.Sample{
			TimeMicros: s.TimeMicros,
			Voltage:    s.Voltage,
		})
		m.real = 0
		m.voltageOnly = true
	}
	m.samples = append(m.samples, sample)
	m.real++
	m.voltageOnly = m.voltageOnly && s.VoltageOnly
	m.mu.Unlock()

	if started {
		m.logger.Debug().Uint64("t_us", s.TimeMicros).Msg("Capture started")
		m.events.CaptureStarted()
	}
}

// Finish closes the open capture, reduces it and persists the record.
// persisted is false when there was nothing to persist. A FIRED without an
// open capture is a no-op.
func (m *Machine) Finish(ctx context.Context, fired protocol.Fired) (rec history.Record, persisted bool, err error) {
	m.finalizeMu.Lock()
	defer m.finalizeMu.Unlock()

	m.mu.Lock()
	if m.state != Capturing {
		m.mu.Unlock()
		return history.Record{}, false, nil
	}
	m.state = Finalizing
	samples, real, voltageOnly, started := m.samples, m.real, m.voltageOnly, m.started
	m.samples = nil
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		if m.state == Finalizing {
			m.state = Idle
		}
		m.mu.Unlock()
	}()

	if real == 0 {
		m.logger.Debug().Msg("Discarding empty capture")
		m.events.CaptureDiscarded()
		return history.Record{}, false, nil
	}

	rec = m.reduce(samples, voltageOnly, started)

	m.logger.Debug().
		Int("samples", real).
		Bool("voltage_only", voltageOnly).
		Float64("fired_ms", fired.DurationMs).
		Float64("energy_j", rec.EnergyJoules).
		Float64("peak_a", rec.PeakCurrentAmps).
		Msg("Capture finalized")

	rec, err = m.store.Persist(ctx, rec)
	if err != nil {
		err = errors.New().Wrap(ErrPersist, err).WithData(rec.Number)
		m.events.WeldFailed(rec, err)
		return rec, false, err
	}

	m.events.WeldPersisted(rec)

	return rec, true, nil
}

// Abandon drops an open capture without persisting it.
func (m *Machine) Abandon() {
	m.mu.Lock()
	abandoned := m.state == Capturing
	if abandoned {
		m.state = Idle
		m.samples = nil
	}
	m.mu.Unlock()

	if abandoned {
		m.logger.Debug().Msg("Capture abandoned")
		m.events.CaptureDiscarded()
	}
}

// reduce closes the waveform with a zero-current sample and computes the
// record's metrics. Voltage-only captures derive current from the circuit
// resistance and integrate I²R. The derived currents only feed the
// analysis; the record keeps the samples as received.
func (m *Machine) reduce(samples []analysis.Sample, voltageOnly bool, started time.Time) history.Record {
	last := samples[len(samples)-1]
	samples = append(samples, analysis.Sample{
		TimeMicros: last.TimeMicros + m.cfg.TrailingGapMicros,
		Voltage:    last.Voltage,
	})

	opts := analysis.Options{Mode: analysis.ModePower}
	waveform := samples
	if voltageOnly {
		// baseline and trailing samples keep zero current
		waveform = slices.Clone(samples)
		for i := 1; i < len(waveform)-1; i++ {
			waveform[i].Current = waveform[i].Voltage / m.cfg.ResistanceOhms
		}
		opts = analysis.Options{
			Mode:             analysis.ModeResistive,
			ResistanceOhms:   m.cfg.ResistanceOhms,
			CurrentThreshold: m.cfg.CurrentThreshold,
		}
	}

	res := analysis.Analyze(waveform, opts)

	rec := history.Record{
		Timestamp:       started,
		EnergyJoules:    res.EnergyJoules,
		PeakCurrentAmps: res.PeakCurrentAmps,
		DurationMs:      res.DurationMs,
		RiseTimeMs:      res.RiseTimeMs,
		Mode:            res.Mode.String(),
		Data:            samples,
	}
	if m.settings != nil {
		rec.Settings = m.settings()
	}

	return rec
}
