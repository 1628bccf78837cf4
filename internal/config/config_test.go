package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/invoice-flow/internal/common"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("INVOICE_DIR", "/data/invoices")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "tilde", in: "~", want: home},
		{name: "tilde prefix", in: "~/rules.json", want: filepath.Join(home, "rules.json")},
		{name: "env var", in: "$INVOICE_DIR/in", want: "/data/invoices/in"},
		{name: "plain", in: "relative/path", want: "relative/path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

func TestDataDir_XDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "invoiceflow"), DataDir())
}

func TestLoadSettings_Defaults(t *testing.T) {
	s, err := LoadSettings(newViper())
	require.NoError(t, err)

	assert.Equal(t, "provider_mappings.json", s.RegistryPath)
	assert.Equal(t, "input_invoices", s.InputDir)
	assert.Equal(t, "processed_invoices", s.OutputDir)
	assert.Equal(t, "pdftotext", s.Pdftotext)
	assert.Equal(t, 1, s.Workers)
	assert.Equal(t, "history.db", filepath.Base(s.DatabasePath))
}

func TestLoadSettings_InvalidWorkers(t *testing.T) {
	v := newViper()
	v.Set("process.workers", 0)

	_, err := LoadSettings(v)
	require.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestLoadSettings_EnvOverride(t *testing.T) {
	t.Setenv("INVOICEFLOW_PROCESS_WORKERS", "4")
	v := newViper()
	BindEnv(v)

	s, err := LoadSettings(v)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Workers)
}

func TestLoadLLMConfig(t *testing.T) {
	t.Run("config key wins", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "from-env")
		v := newViper()
		v.Set("llm.openai_api_key", "from-config")

		cfg := LoadLLMConfig(v)
		assert.Equal(t, "openai", cfg.Provider)
		assert.Equal(t, "from-config", cfg.APIKey)
		assert.Equal(t, 1000, cfg.MaxTokens)
		assert.Equal(t, time.Hour, cfg.CacheTTL)
	})

	t.Run("anthropic falls back to env", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "anthropic-env")
		v := newViper()
		v.Set("llm.provider", "Anthropic")

		cfg := LoadLLMConfig(v)
		assert.Equal(t, "anthropic", cfg.Provider)
		assert.Equal(t, "anthropic-env", cfg.APIKey)
	})
}

func TestLoadExtractionConfig(t *testing.T) {
	cfg := LoadExtractionConfig(newViper())
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Retry.InitialDelay)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
}

func TestLoadConverter(t *testing.T) {
	c, err := LoadConverter(newViper())
	require.NoError(t, err)
	assert.Equal(t, "BRL", c.Target())
	assert.Equal(t, "5.74", c.Rate().String())

	v := newViper()
	v.Set("currency.rate", "abc")
	_, err = LoadConverter(v)
	require.ErrorIs(t, err, common.ErrInvalidConfig)

	v = newViper()
	v.Set("currency.rate", "-1")
	_, err = LoadConverter(v)
	require.ErrorIs(t, err, common.ErrInvalidConfig)
}
