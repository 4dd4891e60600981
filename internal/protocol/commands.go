package protocol

import (
	"fmt"
	"strings"
)

// Fixed outbound commands.
const (
	CmdArm       = "ARM"
	CmdDisarm    = "DISARM"
	CmdFire      = "FIRE"
	CmdChargeOn  = "CHARGE_ON"
	CmdChargeOff = "CHARGE_OFF"
)

// Pulse modes accepted by the firmware: single, double and triple pulse.
const (
	MinPulseMode = 1
	MaxPulseMode = 3
)

// Pulse describes up to three weld pulses separated by gaps, in milliseconds.
type Pulse struct {
	Mode int
	D1   int
	Gap1 int
	D2   int
	Gap2 int
	D3   int
}

// Preheat describes the optional low power pulse before the weld.
type Preheat struct {
	Enabled    bool
	DurationMs int
	PowerPct   int
	GapMs      int
}

// SetPulse builds SET_PULSE,<mode>,<d1>,<gap1>,<d2>,<gap2>,<d3>.
func SetPulse(p Pulse) string {
	p.Mode = clamp(p.Mode, MinPulseMode, MaxPulseMode)
	return fmt.Sprintf("SET_PULSE,%d,%d,%d,%d,%d,%d",
		p.Mode, nonNegative(p.D1), nonNegative(p.Gap1), nonNegative(p.D2), nonNegative(p.Gap2), nonNegative(p.D3))
}

// SetPower builds SET_POWER,<pct>.
func SetPower(pct int) string {
	return fmt.Sprintf("SET_POWER,%d", clamp(pct, 0, 100))
}

// SetPreheat builds SET_PREHEAT,<enabled0|1>,<duration_ms>,<power_pct>,<gap_ms>.
func SetPreheat(p Preheat) string {
	enabled := 0
	if p.Enabled {
		enabled = 1
	}
	return fmt.Sprintf("SET_PREHEAT,%d,%d,%d,%d",
		enabled, nonNegative(p.DurationMs), clamp(p.PowerPct, 0, 100), nonNegative(p.GapMs))
}

// Frame returns the wire form of cmd: trimmed and newline-terminated.
func Frame(cmd string) []byte {
	return []byte(strings.TrimSpace(cmd) + "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
