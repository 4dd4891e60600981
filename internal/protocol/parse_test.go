package protocol_test

import (
	"fmt"
	"strings"
	"testing"

	"codeberg.org/mutker/weldctl/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw     string
		numeric bool
		any     any
	}{
		{"42", true, int64(42)},
		{"-3", true, int64(-3)},
		{"12.5", true, 12.5},
		{"1e3", true, 1000.0},
		{"ARMED", false, "ARMED"},
		{"NaN", false, "NaN"},
		{"", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v := protocol.ParseValue(tt.raw)
			assert.Equal(t, tt.numeric, v.IsNumeric())
			assert.Equal(t, tt.any, v.Any())
		})
	}
}

func TestParseStatus(t *testing.T) {
	msg := protocol.Parse("STATUS,vpack=12.34,i=1.5,temp=25.0,state=ARMED,cooldown_ms=250,pulse_ms=60,armed=1,mode=2,power_pct=80,preheat_en=1,fw=v2")
	status, ok := msg.(protocol.Status)
	require.True(t, ok)

	assert.InDelta(t, 12.34, status.PackVoltage, 1e-9)
	assert.InDelta(t, 1.5, status.Current, 1e-9)
	assert.InDelta(t, 25.0, status.Temperature, 1e-9)
	assert.Equal(t, "ARMED", status.State)
	assert.Equal(t, 250, status.CooldownMs)
	assert.Equal(t, 60, status.PulseMs)
	assert.True(t, status.Armed)
	assert.False(t, status.Welding)
	assert.Equal(t, 2, status.Mode)
	assert.Equal(t, 80, status.PowerPct)
	assert.True(t, status.PreheatEnabled)
	assert.Equal(t, "v2", status.Values["fw"].String())
}

func TestParseStatusDefaults(t *testing.T) {
	status, ok := protocol.Parse("STATUS,vpack=nan,temp=").(protocol.Status)
	require.True(t, ok)

	assert.Zero(t, status.PackVoltage)
	assert.Zero(t, status.Temperature)
	assert.Equal(t, protocol.DefaultPulseMs, status.PulseMs)
	assert.Equal(t, protocol.DefaultState, status.State)
}

// N valid pairs interleaved with M malformed ones yield exactly N keys.
func TestParseStatusSkipsMalformedPairs(t *testing.T) {
	for n := 0; n <= 5; n++ {
		for m := 0; m <= 3; m++ {
			t.Run(fmt.Sprintf("n=%d,m=%d", n, m), func(t *testing.T) {
				var parts []string
				for i := 0; i < n || i < m; i++ {
					if i < n {
						parts = append(parts, fmt.Sprintf("k%d=%d.5", i, i))
					}
					if i < m {
						parts = append(parts, []string{"garbage", "=7", ""}[i%3])
					}
				}
				line := "STATUS," + strings.Join(parts, ",")

				status, ok := protocol.Parse(line).(protocol.Status)
				require.True(t, ok)
				assert.Len(t, status.Values, n)
				assert.Equal(t, m, status.Skipped)
			})
		}
	}
}

func TestParseCells(t *testing.T) {
	cells, ok := protocol.Parse("CELLS,C1=4.10,C2=4.05,C3=4.12,V1=4.10,V2=8.15,V3=12.27").(protocol.Cells)
	require.True(t, ok)

	assert.Equal(t, [3]float64{4.10, 4.05, 4.12}, cells.Cell)
	assert.Equal(t, [3]float64{4.10, 8.15, 12.27}, cells.Tap)
}

func TestParseSamples(t *testing.T) {
	sample, ok := protocol.Parse("WDATA,3.8,500,2000").(protocol.Sample)
	require.True(t, ok)
	assert.Equal(t, protocol.Sample{Voltage: 3.8, Current: 500, TimeMicros: 2000}, sample)

	sample, ok = protocol.Parse("VDATA,3.9,2100").(protocol.Sample)
	require.True(t, ok)
	assert.Equal(t, protocol.Sample{Voltage: 3.9, TimeMicros: 2100, VoltageOnly: true}, sample)
}

func TestParseMalformedSamples(t *testing.T) {
	for _, line := range []string{
		"WDATA,3.8,500",
		"WDATA,x,500,2000",
		"WDATA,3.8,y,2000",
		"WDATA,3.8,500,-5",
		"VDATA,3.9",
		"VDATA,3.9,soon",
	} {
		t.Run(line, func(t *testing.T) {
			msg := protocol.Parse(line)
			assert.Equal(t, protocol.Log{Line: line, Malformed: true}, msg)
		})
	}
}

func TestParseClassification(t *testing.T) {
	tests := []struct {
		line string
		want protocol.Message
	}{
		{"DBG adc ok", nil},
		{"HB:1234", nil},
		{"WELCOME welder v2", nil},
		{"OK", nil},
		{"ACK:SET_POWER", nil},
		{"ACK,POWER=80", nil},
		{"FIRED", protocol.Fired{}},
		{"FIRED,50", protocol.Fired{DurationMs: 50, HasDuration: true}},
		{"PEDAL:pressed", protocol.Pedal{Active: true}},
		{"PEDAL,RELEASED", protocol.Pedal{Active: false}},
		{"EVENT,PEDAL_PRESS", protocol.Pedal{Active: true}},
		{"CHARGER:current=1.25A", protocol.Charger{Current: 1.25}},
		{"CHARGER,current=0.5A", protocol.Charger{Current: 0.5}},
		{"WELD,DONE,pulses=2", protocol.WeldEvent{Message: "DONE,pulses=2"}},
		{"WELD:aborted", protocol.WeldEvent{Message: "WELD:aborted"}},
		{"WELDER", protocol.Log{Line: "WELDER"}},
		{"DENY,COOLDOWN,ms=300", protocol.Log{Line: "DENY,COOLDOWN,ms=300"}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, protocol.Parse(tt.line))
		})
	}
}

func TestParseCaptureSummary(t *testing.T) {
	summary, ok := protocol.Parse("WDATA_END,samples=120,peak=520").(protocol.CaptureSummary)
	require.True(t, ok)
	assert.Equal(t, []string{"samples=120", "peak=520"}, summary.Fields)
	assert.Equal(t, 120, summary.Values.Int("samples", 0))
}

type recordingHandler struct {
	protocol.NopHandler
	samples    []protocol.Sample
	fired      int
	logs       []protocol.Log
	weldEvents []string
}

func (h *recordingHandler) OnSample(s protocol.Sample) { h.samples = append(h.samples, s) }
func (h *recordingHandler) OnFired(protocol.Fired)     { h.fired++ }
func (h *recordingHandler) OnLog(l protocol.Log)       { h.logs = append(h.logs, l) }
func (h *recordingHandler) OnWeldEvent(e protocol.WeldEvent) {
	h.weldEvents = append(h.weldEvents, e.Message)
}

func TestDispatch(t *testing.T) {
	h := &recordingHandler{}

	assert.Equal(t, protocol.KindSample, protocol.Dispatch(h, "WDATA,4.0,0,1000"))
	assert.Equal(t, protocol.KindFired, protocol.Dispatch(h, "FIRED,50"))
	assert.Equal(t, protocol.KindIgnored, protocol.Dispatch(h, "HB:1"))
	assert.Equal(t, protocol.KindLog, protocol.Dispatch(h, "hello"))
	assert.Equal(t, protocol.KindCaptureSummary, protocol.Dispatch(h, "WDATA_END,n=1"))
	assert.Equal(t, protocol.KindWeldEvent, protocol.Dispatch(h, "WELD,DONE"))

	assert.Len(t, h.samples, 1)
	assert.Equal(t, 1, h.fired)
	require.Len(t, h.logs, 1)
	assert.Equal(t, "hello", h.logs[0].Line)
	assert.Equal(t, []string{"DONE"}, h.weldEvents)
}
