package protocol

import (
	"math"
	"strconv"
	"strings"
)

type valueKind uint8

const (
	kindString valueKind = iota
	kindInt
	kindFloat
)

// Value is a telemetry value: an integer, a float, or a string when neither
// parse succeeds.
type Value struct {
	kind valueKind
	i    int64
	f    float64
	s    string
}

// ParseValue tries integer, then float, and falls back to the raw string.
// NaN and infinities stay strings so they never leak into arithmetic.
func ParseValue(raw string) Value {
	raw = strings.TrimSpace(raw)
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return Value{kind: kindInt, i: i, f: float64(i), s: raw}
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return Value{kind: kindFloat, f: f, s: raw}
	}
	return Value{kind: kindString, s: raw}
}

func IntValue(i int64) Value {
	return Value{kind: kindInt, i: i, f: float64(i), s: strconv.FormatInt(i, 10)}
}
func FloatValue(f float64) Value {
	return Value{kind: kindFloat, f: f, s: strconv.FormatFloat(f, 'f', -1, 64)}
}
func StringValue(s string) Value { return Value{kind: kindString, s: s} }

// IsNumeric reports whether the value parsed as a number.
func (v Value) IsNumeric() bool {
	return v.kind != kindString
}

// Float returns the numeric value; ok is false for strings.
func (v Value) Float() (float64, bool) {
	return v.f, v.kind != kindString
}

// Int returns the value as an integer, truncating floats.
func (v Value) Int() (int64, bool) {
	switch v.kind {
	case kindInt:
		return v.i, true
	case kindFloat:
		return int64(v.f), true
	default:
		return 0, false
	}
}

// String returns the value as received.
func (v Value) String() string {
	return v.s
}

// Any returns the value as int64, float64 or string, for JSON encoding.
func (v Value) Any() any {
	switch v.kind {
	case kindInt:
		return v.i
	case kindFloat:
		return v.f
	default:
		return v.s
	}
}

// Values is a parsed set of key=value pairs.
type Values map[string]Value

// Float returns the numeric value at key, or def when absent or non-numeric.
func (vs Values) Float(key string, def float64) float64 {
	if v, ok := vs[key]; ok {
		if f, ok := v.Float(); ok {
			return f
		}
	}
	return def
}

// Int returns the integer value at key, or def when absent or non-numeric.
func (vs Values) Int(key string, def int) int {
	if v, ok := vs[key]; ok {
		if i, ok := v.Int(); ok {
			return int(i)
		}
	}
	return def
}

// Bool treats any non-zero number as true.
func (vs Values) Bool(key string) bool {
	return vs.Int(key, 0) != 0
}

// String returns the raw value at key, or def when absent or empty.
func (vs Values) String(key, def string) string {
	if v, ok := vs[key]; ok && v.s != "" {
		return v.s
	}
	return def
}

// Clone returns an independent copy.
func (vs Values) Clone() Values {
	if vs == nil {
		return nil
	}
	out := make(Values, len(vs))
	for k, v := range vs {
		out[k] = v
	}
	return out
}

// ParsePairs parses comma separated key=value fields. Fields without '=' or
// with an empty key are skipped and counted.
func ParsePairs(fields []string) (Values, int) {
	values := make(Values, len(fields))
	skipped := 0
	for _, field := range fields {
		key, raw, ok := strings.Cut(field, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			skipped++
			continue
		}
		values[key] = ParseValue(raw)
	}
	return values, skipped
}
