package common

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "", want: slog.LevelInfo},
		{in: "WARN", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, slog.LevelInfo, "json")
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("shown", "provider", "Acme")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"provider":"Acme"`)

	_, err = NewLogger(&buf, slog.LevelInfo, "xml")
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestMatchRegex(t *testing.T) {
	ok, err := MatchRegex("acme", "Invoice from ACME Corp")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = MatchRegex("acme(", "x")
	require.Error(t, err)
}
