package metrics_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codeberg.org/mutker/weldctl/internal/errors"
	"codeberg.org/mutker/weldctl/internal/logger"
	"codeberg.org/mutker/weldctl/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, c metrics.Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestDisabledIsNoop(t *testing.T) {
	c, err := metrics.NewService(metrics.DefaultConfig(), logger.Nop())
	require.NoError(t, err)

	c.Reconnect()
	c.WeldPersisted(1, 2)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCollector(t *testing.T) {
	c, err := metrics.NewService(metrics.Config{Enabled: true, Addr: "127.0.0.1:0"}, logger.Nop())
	require.NoError(t, err)

	c.ConnectionState("connected")
	c.Reconnect()
	c.Line("status")
	c.Line("status")
	c.Line("sample")
	c.Status(11.9, 30.5, 1.25)
	c.WeldPersisted(3.05, 520)
	c.WeldDiscarded()

	body := scrape(t, c)
	for _, want := range []string{
		`weldctl_link_state{state="connected"} 1`,
		`weldctl_link_state{state="disconnected"} 0`,
		`weldctl_link_connects_total 1`,
		`weldctl_link_lines_total{kind="status"} 2`,
		`weldctl_link_lines_total{kind="sample"} 1`,
		`weldctl_status_pack_voltage_volts 11.9`,
		`weldctl_status_temperature_celsius 30.5`,
		`weldctl_weld_captures_total{outcome="persisted"} 1`,
		`weldctl_weld_captures_total{outcome="discarded"} 1`,
		`weldctl_weld_last_energy_joules 3.05`,
		`weldctl_weld_last_peak_current_amps 520`,
	} {
		assert.Contains(t, body, want)
	}
}

func TestInvalidAddr(t *testing.T) {
	_, err := metrics.NewService(metrics.Config{Enabled: true, Addr: "nope"}, logger.Nop())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, metrics.ErrInvalidAddr))
}

func TestServe(t *testing.T) {
	c, err := metrics.NewService(metrics.Config{Enabled: true, Addr: "127.0.0.1:0"}, logger.Nop())
	require.NoError(t, err)

	// reserve a free port
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- metrics.Serve(ctx, addr, c, logger.Nop()) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + addr + "/metrics")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "weldctl_link_state")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
