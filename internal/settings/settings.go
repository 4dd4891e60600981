package settings

import "codeberg.org/mutker/weldctl/internal/protocol"

// Settings is the pulse configuration pushed to the welder on every
// connect and on save.
type Settings struct {
	Mode            int    `json:"mode"`
	D1              int    `json:"d1"`
	Gap1            int    `json:"gap1"`
	D2              int    `json:"d2"`
	Gap2            int    `json:"gap2"`
	D3              int    `json:"d3"`
	Power           int    `json:"power"`
	PreheatEnabled  bool   `json:"preheat_enabled"`
	PreheatDuration int    `json:"preheat_duration"`
	PreheatPower    int    `json:"preheat_power"`
	PreheatGapMs    int    `json:"preheat_gap_ms"`
	ActivePreset    string `json:"active_preset,omitempty"`
}

// Preset is a named, stored copy of the pulse parameters.
type Preset struct {
	Name            string `json:"name"`
	Mode            int    `json:"mode"`
	D1              int    `json:"d1"`
	Gap1            int    `json:"gap1"`
	D2              int    `json:"d2"`
	Gap2            int    `json:"gap2"`
	D3              int    `json:"d3"`
	Power           int    `json:"power"`
	PreheatEnabled  bool   `json:"preheat_enabled"`
	PreheatDuration int    `json:"preheat_duration"`
	PreheatPower    int    `json:"preheat_power"`
	PreheatGapMs    int    `json:"preheat_gap_ms"`
}

func Defaults() Settings {
	return Settings{
		Mode:            1,
		D1:              50,
		Power:           100,
		PreheatDuration: 20,
		PreheatPower:    30,
		PreheatGapMs:    3,
	}
}

// DefaultPresets returns the factory presets P1 to P5.
func DefaultPresets() map[string]Preset {
	base := func(name string, mode, d1, gap1, d2, gap2, d3 int) Preset {
		return Preset{
			Name: name, Mode: mode,
			D1: d1, Gap1: gap1, D2: d2, Gap2: gap2, D3: d3,
			Power:           100,
			PreheatDuration: 20,
			PreheatPower:    30,
			PreheatGapMs:    3,
		}
	}

	return map[string]Preset{
		"P1": base("Preset 1", 1, 50, 0, 0, 0, 0),
		"P2": base("Preset 2", 1, 80, 0, 0, 0, 0),
		"P3": base("Preset 3", 2, 50, 10, 50, 0, 0),
		"P4": base("Preset 4", 1, 100, 0, 0, 0, 0),
		"P5": base("Preset 5", 3, 40, 10, 40, 10, 40),
	}
}

func (s Settings) Pulse() protocol.Pulse {
	return protocol.Pulse{Mode: s.Mode, D1: s.D1, Gap1: s.Gap1, D2: s.D2, Gap2: s.Gap2, D3: s.D3}
}

func (s Settings) Preheat() protocol.Preheat {
	return protocol.Preheat{
		Enabled:    s.PreheatEnabled,
		DurationMs: s.PreheatDuration,
		PowerPct:   s.PreheatPower,
		GapMs:      s.PreheatGapMs,
	}
}

// Commands returns the commands that bring the welder in line with s.
func (s Settings) Commands() []string {
	return []string{
		protocol.SetPulse(s.Pulse()),
		protocol.SetPower(s.Power),
		protocol.SetPreheat(s.Preheat()),
	}
}

// Map flattens s for embedding in a weld record.
func (s Settings) Map() map[string]any {
	m := map[string]any{
		"mode":             s.Mode,
		"d1":               s.D1,
		"gap1":             s.Gap1,
		"d2":               s.D2,
		"gap2":             s.Gap2,
		"d3":               s.D3,
		"power":            s.Power,
		"preheat_enabled":  s.PreheatEnabled,
		"preheat_duration": s.PreheatDuration,
		"preheat_power":    s.PreheatPower,
		"preheat_gap_ms":   s.PreheatGapMs,
	}
	if s.ActivePreset != "" {
		m["active_preset"] = s.ActivePreset
	}
	return m
}

// FromPreset returns the settings of preset p, marked as active under id.
func FromPreset(id string, p Preset) Settings {
	return Settings{
		Mode:            p.Mode,
		D1:              p.D1,
		Gap1:            p.Gap1,
		D2:              p.D2,
		Gap2:            p.Gap2,
		D3:              p.D3,
		Power:           p.Power,
		PreheatEnabled:  p.PreheatEnabled,
		PreheatDuration: p.PreheatDuration,
		PreheatPower:    p.PreheatPower,
		PreheatGapMs:    p.PreheatGapMs,
		ActivePreset:    id,
	}
}

// Normalize clamps every parameter into the range the firmware accepts.
func (s Settings) Normalize() Settings {
	s.Mode = clamp(s.Mode, protocol.MinPulseMode, protocol.MaxPulseMode)
	s.D1, s.Gap1 = max(s.D1, 0), max(s.Gap1, 0)
	s.D2, s.Gap2 = max(s.D2, 0), max(s.Gap2, 0)
	s.D3 = max(s.D3, 0)
	s.Power = clamp(s.Power, 0, 100)
	s.PreheatDuration = max(s.PreheatDuration, 0)
	s.PreheatPower = clamp(s.PreheatPower, 0, 100)
	s.PreheatGapMs = max(s.PreheatGapMs, 0)
	return s
}

func (p Preset) Normalize() Preset {
	n := FromPreset("", p).Normalize()
	return Preset{
		Name:            p.Name,
		Mode:            n.Mode,
		D1:              n.D1,
		Gap1:            n.Gap1,
		D2:              n.D2,
		Gap2:            n.Gap2,
		D3:              n.D3,
		Power:           n.Power,
		PreheatEnabled:  n.PreheatEnabled,
		PreheatDuration: n.PreheatDuration,
		PreheatPower:    n.PreheatPower,
		PreheatGapMs:    n.PreheatGapMs,
	}
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
