package telemetry

import (
	"time"

	"codeberg.org/mutker/weldctl/internal/protocol"
)

// Status is the live view of the welder pushed to status sinks.
type Status struct {
	Connected bool
	// HasStatus and HasCells are false until the first line of each kind
	// arrives on the current connection.
	HasStatus bool
	HasCells  bool

	Status  protocol.Status
	Cells   protocol.Cells
	Balance Balance

	// ChargerCurrent is the last CHARGER reading, also copied into
	// Status.Current until the next STATUS line replaces it.
	ChargerCurrent    float64
	HasChargerCurrent bool

	UpdatedAt time.Time
}

// Balance summarizes how evenly the series cells are charged.
type Balance struct {
	Spread   float64
	Balanced bool
	// Cells is the number of cells that reported a positive voltage.
	Cells int
}

func (s Status) clone() Status {
	s.Status = s.Status.Clone()
	s.Cells = s.Cells.Clone()
	return s
}
