package logger_test

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"codeberg.org/mutker/weldctl/internal/errors"
	"codeberg.org/mutker/weldctl/internal/logger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    logger.LogLevel
		wantErr bool
	}{
		{"debug", logger.DebugLevel, false},
		{"INFO", logger.InfoLevel, false},
		{"", logger.InfoLevel, false},
		{"warning", logger.WarnLevel, false},
		{"warn", logger.WarnLevel, false},
		{"error", logger.ErrorLevel, false},
		{"verbose", logger.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := logger.ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComponentLoggerFields(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	var buf bytes.Buffer
	log := logger.New(zerolog.New(&buf)).With("link")

	errFactory := errors.New()
	log.ErrorWithCode(errFactory.Wrap(errors.ErrTimeout, io.EOF)).Msg("read failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "link", entry["component"])
	assert.Equal(t, "operation_timeout", entry["error_code"])
	assert.Equal(t, "EOF", entry["error"])
	assert.Equal(t, "read failed", entry["message"])
}

func TestInitWithFile(t *testing.T) {
	path := t.TempDir() + "/weldctl.log"

	closer := logger.Init(logger.Options{
		Level:     logger.InfoLevel,
		IsService: true,
		File:      logger.FileOptions{Path: path},
	})
	logger.Info().Str("host", "192.168.68.56").Msg("starting")
	require.NoError(t, closer.Close())

	assert.FileExists(t, path)
}
