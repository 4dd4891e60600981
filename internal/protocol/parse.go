package protocol

import (
	"strconv"
	"strings"
)

var ignoredPrefixes = []string{"DBG", "HB:", "WELCOME", "OK", "ACK:", "ACK,"}

// Parse classifies one trimmed line. It returns nil for lines that are
// consumed without a message (heartbeats, handshakes, acknowledgments).
func Parse(line string) Message {
	for _, prefix := range ignoredPrefixes {
		if strings.HasPrefix(line, prefix) {
			return nil
		}
	}

	switch {
	case strings.HasPrefix(line, "STATUS,"):
		return newStatus(ParsePairs(fields(line)))
	case strings.HasPrefix(line, "CELLS,"):
		return newCells(ParsePairs(fields(line)))
	case strings.HasPrefix(line, "WDATA_END"):
		f := fields(line)
		values, _ := ParsePairs(f)
		return CaptureSummary{Fields: f, Values: values}
	case strings.HasPrefix(line, "WDATA,"):
		return parseSample(line, false)
	case strings.HasPrefix(line, "VDATA,"):
		return parseSample(line, true)
	case strings.HasPrefix(line, "FIRED"):
		return parseFired(line)
	case strings.HasPrefix(line, "WELD:"), strings.HasPrefix(line, "WELD,"):
		return parseWeldEvent(line)
	case strings.HasPrefix(line, "PEDAL:"), strings.HasPrefix(line, "PEDAL,"):
		return Pedal{Active: strings.Contains(strings.ToLower(line), "pressed")}
	case strings.HasPrefix(line, "EVENT,PEDAL_PRESS"):
		return Pedal{Active: true}
	case strings.HasPrefix(line, "CHARGER:"), strings.HasPrefix(line, "CHARGER,"):
		return parseCharger(line)
	default:
		return Log{Line: line}
	}
}

// fields returns the comma separated fields after the line's prefix.
func fields(line string) []string {
	_, rest, ok := strings.Cut(line, ",")
	if !ok || rest == "" {
		return nil
	}
	return strings.Split(rest, ",")
}

func parseSample(line string, voltageOnly bool) Message {
	f := fields(line)
	want := 3
	if voltageOnly {
		want = 2
	}
	if len(f) < want {
		return Log{Line: line, Malformed: true}
	}

	voltage, err := parseFloat(f[0])
	if err != nil {
		return Log{Line: line, Malformed: true}
	}

	var current float64
	if !voltageOnly {
		if current, err = parseFloat(f[1]); err != nil {
			return Log{Line: line, Malformed: true}
		}
	}

	t, err := parseMicros(f[want-1])
	if err != nil {
		return Log{Line: line, Malformed: true}
	}

	return Sample{Voltage: voltage, Current: current, TimeMicros: t, VoltageOnly: voltageOnly}
}

func parseFired(line string) Message {
	f := fields(line)
	if len(f) == 0 {
		return Fired{}
	}
	d, err := parseFloat(f[0])
	if err != nil {
		return Fired{}
	}
	return Fired{DurationMs: d, HasDuration: true}
}

// parseWeldEvent keeps everything after the first comma, or the whole line
// when there is none.
func parseWeldEvent(line string) Message {
	if _, rest, ok := strings.Cut(line, ","); ok {
		return WeldEvent{Message: rest}
	}
	return WeldEvent{Message: line}
}

// parseCharger reads "CHARGER:current=1.25A" or "CHARGER,current=1.25A".
func parseCharger(line string) Message {
	_, rest, ok := strings.Cut(line, "current=")
	if !ok {
		return Log{Line: line, Malformed: true}
	}
	raw, _, _ := strings.Cut(rest, "A")
	current, err := parseFloat(raw)
	if err != nil {
		return Log{Line: line, Malformed: true}
	}
	return Charger{Current: current}
}

func parseFloat(s string) (float64, error) {
	v := ParseValue(s)
	if f, ok := v.Float(); ok {
		return f, nil
	}
	return 0, errFactory.WithData(ErrMalformedField, s)
}

func parseMicros(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if t, err := strconv.ParseUint(s, 10, 64); err == nil {
		return t, nil
	}
	f, err := parseFloat(s)
	if err != nil || f < 0 {
		return 0, errFactory.WithData(ErrMalformedField, s)
	}
	return uint64(f), nil
}
