package telemetry

import (
	"math"
	"sync"
	"time"

	"codeberg.org/mutker/weldctl/internal/protocol"
)

// Aggregator holds the most recent STATUS and CELLS readings. Every update
// replaces the previous reading wholesale and returns a copy of the result.
type Aggregator struct {
	cfg Config
	now func() time.Time

	mu    sync.RWMutex
	state Status
}

func NewAggregator(cfg Config) *Aggregator {
	return &Aggregator{cfg: cfg, now: time.Now}
}

// UpdateStatus stores a STATUS reading with the temperature calibration applied.
func (a *Aggregator) UpdateStatus(st protocol.Status) Status {
	st = st.Clone()
	if _, ok := st.Values["temp"].Float(); ok {
		st.Temperature += a.cfg.TemperatureOffset
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.state.Status = st
	a.state.HasStatus = true
	a.state.UpdatedAt = a.now()

	return a.state.clone()
}

func (a *Aggregator) UpdateCells(c protocol.Cells) Status {
	c = c.Clone()

	a.mu.Lock()
	defer a.mu.Unlock()

	a.state.Cells = c
	a.state.HasCells = true
	a.state.Balance = CellBalance(c, a.cfg.BalanceTolerance)
	a.state.UpdatedAt = a.now()

	return a.state.clone()
}

// UpdateCharger overrides the live current with the charger reading.
func (a *Aggregator) UpdateCharger(ch protocol.Charger) Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state.ChargerCurrent = ch.Current
	a.state.HasChargerCurrent = true
	a.state.Status.Current = ch.Current
	a.state.UpdatedAt = a.now()

	return a.state.clone()
}

// SetConnected records the link state. Readings from a previous connection
// are kept as last known values, but a new connection clears HasStatus,
// HasCells and HasChargerCurrent until fresh lines arrive. changed reports
// whether the state differs from before.
func (a *Aggregator) SetConnected(connected bool) (Status, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	changed := a.state.Connected != connected
	a.state.Connected = connected
	if changed {
		a.state.UpdatedAt = a.now()
	}
	if changed && connected {
		a.state.HasStatus = false
		a.state.HasCells = false
		a.state.HasChargerCurrent = false
	}

	return a.state.clone(), changed
}

func (a *Aggregator) Snapshot() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.state.clone()
}

// CellBalance computes the spread over cells reporting a positive voltage.
// No such cells yields a zero spread, reported as balanced.
func CellBalance(c protocol.Cells, tolerance float64) Balance {
	lo, hi := math.Inf(1), math.Inf(-1)
	n := 0
	for _, v := range c.Cell {
		if !(v > 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		n++
	}

	if n == 0 {
		return Balance{Balanced: true}
	}

	spread := hi - lo
	return Balance{
		Spread:   spread,
		Balanced: spread <= tolerance+1e-9,
		Cells:    n,
	}
}
