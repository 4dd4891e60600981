package history_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/weldctl/internal/analysis"
	"codeberg.org/mutker/weldctl/internal/errors"
	"codeberg.org/mutker/weldctl/internal/history"
	"codeberg.org/mutker/weldctl/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCounter struct {
	mu      sync.Mutex
	value   int
	saves   []int
	saveErr error
}

func (c *memCounter) LoadCounter(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, nil
}

func (c *memCounter) SaveCounter(_ context.Context, n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saveErr != nil {
		return c.saveErr
	}
	c.value = n
	c.saves = append(c.saves, n)
	return nil
}

func openStore(t *testing.T, dir string, maxRecords int, counter history.CounterStore) *history.Store {
	t.Helper()
	s, err := history.Open(context.Background(), history.Config{Dir: dir, MaxRecords: maxRecords}, counter, logger.Nop())
	require.NoError(t, err)
	return s
}

func sampleRecord(energy float64) history.Record {
	return history.Record{
		Timestamp:       time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC),
		EnergyJoules:    energy,
		PeakCurrentAmps: 520.3,
		DurationMs:      2.2,
		RiseTimeMs:      0.83,
		Mode:            analysis.ModePower.String(),
		Settings:        map[string]any{"d1": 50.0, "power": 100.0},
		Data: []analysis.Sample{
			{TimeMicros: 1000, Voltage: 4.0},
			{TimeMicros: 2000, Voltage: 3.8, Current: 500},
		},
	}
}

func TestPersistAndRead(t *testing.T) {
	counter := &memCounter{}
	s := openStore(t, t.TempDir(), history.DefaultMaxRecords, counter)

	in := sampleRecord(3.05)
	saved, err := s.Persist(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Number)
	assert.Equal(t, []int{1}, counter.saves)

	out, err := s.Read(1)
	require.NoError(t, err)
	assert.Equal(t, in.EnergyJoules, out.EnergyJoules)
	assert.Equal(t, in.PeakCurrentAmps, out.PeakCurrentAmps)
	assert.Equal(t, in.DurationMs, out.DurationMs)
	assert.Equal(t, in.RiseTimeMs, out.RiseTimeMs)
	assert.Equal(t, in.Data, out.Data)
	assert.Equal(t, in.Settings, out.Settings)
	assert.True(t, in.Timestamp.Equal(out.Timestamp))
}

func TestRecordFileFormat(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir, history.DefaultMaxRecords, nil)

	_, err := s.Persist(context.Background(), sampleRecord(1.5))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "weld_0001.json"))
	require.NoError(t, err)
	for _, key := range []string{
		`"weld_number": 1`, `"timestamp": "2026-10-15T09:30:00Z"`, `"energy_joules": 1.5`,
		`"peak_current_amps": 520.3`, `"duration_ms": 2.2`, `"rise_time_ms": 0.83`,
		`"settings"`, `"data"`, `"t_us": 1000`,
	} {
		assert.Contains(t, string(data), key)
	}
}

func TestReadNotFound(t *testing.T) {
	s := openStore(t, t.TempDir(), history.DefaultMaxRecords, nil)

	_, err := s.Read(7)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, history.ErrRecordNotFound))
}

// Inserting cap+k records keeps exactly cap, the most recent ones.
func TestCapacity(t *testing.T) {
	const maxRecords = 15

	for _, k := range []int{0, 1, 4, 20} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			s := openStore(t, t.TempDir(), maxRecords, nil)

			for i := 0; i < maxRecords+k; i++ {
				_, err := s.Persist(context.Background(), sampleRecord(float64(i)))
				require.NoError(t, err)
			}

			summaries, err := s.List(0)
			require.NoError(t, err)
			require.Len(t, summaries, maxRecords)
			for i, sum := range summaries {
				assert.Equal(t, maxRecords+k-i, sum.Number, "newest first")
			}
		})
	}
}

func TestListLimit(t *testing.T) {
	s := openStore(t, t.TempDir(), history.DefaultMaxRecords, nil)
	for i := 0; i < 5; i++ {
		_, err := s.Persist(context.Background(), sampleRecord(float64(i)))
		require.NoError(t, err)
	}

	summaries, err := s.List(2)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, 5, summaries[0].Number)
	assert.Equal(t, 4, summaries[1].Number)
	assert.Equal(t, 2, summaries[0].Samples)
}

func TestClearIsIdempotent(t *testing.T) {
	counter := &memCounter{}
	s := openStore(t, t.TempDir(), history.DefaultMaxRecords, counter)
	for i := 0; i < 3; i++ {
		_, err := s.Persist(context.Background(), sampleRecord(1))
		require.NoError(t, err)
	}

	for i := 0; i < 2; i++ {
		require.NoError(t, s.Clear(context.Background()))

		summaries, err := s.List(0)
		require.NoError(t, err)
		assert.Empty(t, summaries)
		assert.Zero(t, s.Counter())
		assert.Zero(t, counter.value)
	}

	rec, err := s.Persist(context.Background(), sampleRecord(1))
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Number)
}

func TestOpenRestoresCounter(t *testing.T) {
	dir := t.TempDir()

	s := openStore(t, dir, history.DefaultMaxRecords, nil)
	for i := 0; i < 3; i++ {
		_, err := s.Persist(context.Background(), sampleRecord(1))
		require.NoError(t, err)
	}

	// highest record on disk wins over a lower persisted counter
	reopened := openStore(t, dir, history.DefaultMaxRecords, &memCounter{value: 1})
	assert.Equal(t, 3, reopened.Counter())

	// a higher persisted counter wins over the files
	reopened = openStore(t, dir, history.DefaultMaxRecords, &memCounter{value: 40})
	rec, err := reopened.Persist(context.Background(), sampleRecord(1))
	require.NoError(t, err)
	assert.Equal(t, 41, rec.Number)
}

func TestPersistFailureStillAdvancesCounter(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir, history.DefaultMaxRecords, nil)

	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.WriteFile(dir, []byte("not a directory"), 0o600))

	rec, err := s.Persist(context.Background(), sampleRecord(1))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, history.ErrStorageAccess))
	assert.Equal(t, 1, rec.Number)
	assert.Equal(t, 1, s.Counter())
}

func TestIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "weld_abc.json"), []byte("{}"), 0o600))

	s := openStore(t, dir, history.DefaultMaxRecords, nil)
	assert.Zero(t, s.Counter())

	summaries, err := s.List(0)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestOpenInvalidConfig(t *testing.T) {
	_, err := history.Open(context.Background(), history.Config{Dir: t.TempDir()}, nil, logger.Nop())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, history.ErrInvalidConfig))
}
