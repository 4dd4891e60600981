package protocol

// Kind classifies an inbound line.
type Kind int

const (
	KindIgnored Kind = iota
	KindStatus
	KindCells
	KindSample
	KindCaptureSummary
	KindFired
	KindPedal
	KindCharger
	KindWeldEvent
	KindLog
)

func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindCells:
		return "cells"
	case KindSample:
		return "sample"
	case KindCaptureSummary:
		return "capture_summary"
	case KindFired:
		return "fired"
	case KindPedal:
		return "pedal"
	case KindCharger:
		return "charger"
	case KindWeldEvent:
		return "weld_event"
	case KindLog:
		return "log"
	default:
		return "ignored"
	}
}

// Message is a parsed inbound line.
type Message interface {
	Kind() Kind
}

// Status is one STATUS line. Known keys are lifted into typed fields with
// the defaults below; Values keeps every well-formed pair, known or not.
type Status struct {
	PackVoltage    float64 // vpack
	Current        float64 // i
	Temperature    float64 // temp, uncalibrated
	PulseMs        int     // pulse_ms
	State          string  // state
	CooldownMs     int     // cooldown_ms
	Armed          bool    // armed
	Welding        bool    // welding
	Mode           int     // mode
	PowerPct       int     // power_pct
	PreheatEnabled bool    // preheat_en

	Values  Values
	Skipped int
}

const (
	DefaultPulseMs = 10
	DefaultState   = "OFF"
)

func newStatus(values Values, skipped int) Status {
	return Status{
		PackVoltage:    values.Float("vpack", 0),
		Current:        values.Float("i", 0),
		Temperature:    values.Float("temp", 0),
		PulseMs:        values.Int("pulse_ms", DefaultPulseMs),
		State:          values.String("state", DefaultState),
		CooldownMs:     values.Int("cooldown_ms", 0),
		Armed:          values.Bool("armed"),
		Welding:        values.Bool("welding"),
		Mode:           values.Int("mode", 0),
		PowerPct:       values.Int("power_pct", 0),
		PreheatEnabled: values.Bool("preheat_en"),
		Values:         values,
		Skipped:        skipped,
	}
}

// Clone returns a copy that shares no map with s.
func (s Status) Clone() Status {
	s.Values = s.Values.Clone()
	return s
}

func (Status) Kind() Kind { return KindStatus }

// CellCount is the number of series cells in the pack.
const CellCount = 3

// Cells is one CELLS line: per-cell voltages C1..C3 and cumulative tap
// voltages V1..V3.
type Cells struct {
	Cell [CellCount]float64
	Tap  [CellCount]float64

	Values  Values
	Skipped int
}

func newCells(values Values, skipped int) Cells {
	c := Cells{Values: values, Skipped: skipped}
	for i := 0; i < CellCount; i++ {
		n := string(rune('1' + i))
		c.Cell[i] = values.Float("C"+n, 0)
		c.Tap[i] = values.Float("V"+n, 0)
	}
	return c
}

func (c Cells) Clone() Cells {
	c.Values = c.Values.Clone()
	return c
}

func (Cells) Kind() Kind { return KindCells }

// Sample is one weld sample. TimeMicros is the device's monotonic clock and
// is only meaningful within one capture.
type Sample struct {
	Voltage     float64
	Current     float64
	TimeMicros  uint64
	VoltageOnly bool
}

func (Sample) Kind() Kind { return KindSample }

// CaptureSummary is the informational WDATA_END line. It never closes a capture.
type CaptureSummary struct {
	Fields []string
	Values Values
}

func (CaptureSummary) Kind() Kind { return KindCaptureSummary }

// Fired marks the end of a weld.
type Fired struct {
	DurationMs  float64
	HasDuration bool
}

func (Fired) Kind() Kind { return KindFired }

// Pedal reports the foot pedal state.
type Pedal struct {
	Active bool
}

func (Pedal) Kind() Kind { return KindPedal }

// Charger reports the charger current in amps.
type Charger struct {
	Current float64
}

func (Charger) Kind() Kind { return KindCharger }

// WeldEvent is a free-form WELD: or WELD, notice from the firmware.
type WeldEvent struct {
	Message string
}

func (WeldEvent) Kind() Kind { return KindWeldEvent }

// Log is any line not otherwise understood, forwarded to the log sink.
type Log struct {
	Line      string
	Malformed bool
}

func (Log) Kind() Kind { return KindLog }
