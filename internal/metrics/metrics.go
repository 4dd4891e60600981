package metrics

import (
	"net/http"

	"codeberg.org/mutker/weldctl/internal/errors"
	"codeberg.org/mutker/weldctl/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type service struct {
	registry *prometheus.Registry

	connectionState *prometheus.GaugeVec
	reconnects      prometheus.Counter
	lines           *prometheus.CounterVec
	packVoltage     prometheus.Gauge
	temperature     prometheus.Gauge
	current         prometheus.Gauge
	welds           *prometheus.CounterVec
	lastEnergy      prometheus.Gauge
	lastPeak        prometheus.Gauge
}

// No-op implementation
type noopCollector struct{}

// NewService returns a Prometheus backed collector on its own registry, or
// a no-op collector when metrics are disabled.
func NewService(cfg Config, log logger.Logger) (Collector, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		log.Debug().Msg("Metrics collection disabled, using no-op collector")
		return noopCollector{}, nil
	}

	s := &service{
		registry: prometheus.NewRegistry(),
		connectionState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "state",
			Help:      "Current link state (1 = active state, 0 = inactive).",
		}, []string{"state"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "connects_total",
			Help:      "Number of established connections to the welder.",
		}),
		lines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "lines_total",
			Help:      "Number of received lines by kind.",
		}, []string{"kind"}),
		packVoltage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "status",
			Name:      "pack_voltage_volts",
			Help:      "Last reported pack voltage.",
		}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "status",
			Name:      "temperature_celsius",
			Help:      "Last reported calibrated temperature.",
		}),
		current: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "status",
			Name:      "current_amps",
			Help:      "Last reported live current.",
		}),
		welds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "weld",
			Name:      "captures_total",
			Help:      "Number of finished captures by outcome.",
		}, []string{"outcome"}),
		lastEnergy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "weld",
			Name:      "last_energy_joules",
			Help:      "Energy of the last persisted weld.",
		}),
		lastPeak: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "weld",
			Name:      "last_peak_current_amps",
			Help:      "Peak current of the last persisted weld.",
		}),
	}

	cs := []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		s.connectionState, s.reconnects, s.lines,
		s.packVoltage, s.temperature, s.current,
		s.welds, s.lastEnergy, s.lastPeak,
	}
	for _, c := range cs {
		if err := s.registry.Register(c); err != nil {
			return nil, errFactory.Wrap(ErrRegister, err)
		}
	}

	s.ConnectionState(ConnectionStates[0])

	log.Debug().
		Str("addr", cfg.Addr).
		Msg("Metrics service initialized successfully")

	return s, nil
}

func (s *service) ConnectionState(state string) {
	for _, st := range ConnectionStates {
		var value float64
		if st == state {
			value = 1
		}
		s.connectionState.WithLabelValues(st).Set(value)
	}
}

func (s *service) Reconnect() {
	s.reconnects.Inc()
}

func (s *service) Line(kind string) {
	s.lines.WithLabelValues(kind).Inc()
}

func (s *service) Status(packVoltage, temperature, current float64) {
	s.packVoltage.Set(packVoltage)
	s.temperature.Set(temperature)
	s.current.Set(current)
}

func (s *service) WeldPersisted(energyJoules, peakCurrentAmps float64) {
	s.welds.WithLabelValues("persisted").Inc()
	s.lastEnergy.Set(energyJoules)
	s.lastPeak.Set(peakCurrentAmps)
}

func (s *service) WeldDiscarded() {
	s.welds.WithLabelValues("discarded").Inc()
}

func (s *service) WeldPersistFailed() {
	s.welds.WithLabelValues("failed").Inc()
}

func (s *service) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// No-op implementation
func (noopCollector) ConnectionState(string)           {}
func (noopCollector) Reconnect()                       {}
func (noopCollector) Line(string)                      {}
func (noopCollector) Status(float64, float64, float64) {}
func (noopCollector) WeldPersisted(float64, float64)   {}
func (noopCollector) WeldDiscarded()                   {}
func (noopCollector) WeldPersistFailed()               {}
func (noopCollector) Handler() http.Handler            { return http.NotFoundHandler() }
