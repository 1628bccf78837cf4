package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/Veraticus/invoice-flow/internal/common"
	"github.com/Veraticus/invoice-flow/internal/currency"
	"github.com/Veraticus/invoice-flow/internal/extraction"
	"github.com/Veraticus/invoice-flow/internal/llm"
	"github.com/Veraticus/invoice-flow/internal/service"
)

// EnvPrefix is prepended to every environment override, e.g. INVOICEFLOW_LLM_MODEL.
const EnvPrefix = "INVOICEFLOW"

// Settings are the file locations and batch knobs of a run.
type Settings struct {
	RegistryPath string
	InputDir     string
	OutputDir    string
	DatabasePath string
	Pdftotext    string
	Workers      int
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.max_tokens", 1000)
	v.SetDefault("llm.rate_limit", 60)
	v.SetDefault("llm.cache_ttl", time.Hour)
	v.SetDefault("llm.timeout", 60*time.Second)

	v.SetDefault("extraction.max_attempts", 3)
	v.SetDefault("extraction.retry_delay", 2*time.Second)
	v.SetDefault("extraction.request_timeout", extraction.DefaultRequestTimeout)

	v.SetDefault("registry.path", "provider_mappings.json")

	v.SetDefault("currency.target", currency.DefaultTarget)
	v.SetDefault("currency.rate", currency.DefaultRate)

	v.SetDefault("process.input", "input_invoices")
	v.SetDefault("process.output", "processed_invoices")
	v.SetDefault("process.workers", 1)

	v.SetDefault("database.path", filepath.Join(DataDir(), "history.db"))
	v.SetDefault("document.pdftotext", "pdftotext")
}

// BindEnv makes INVOICEFLOW_SECTION_KEY override section.key.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// LoadSettings reads file locations and batch settings.
func LoadSettings(v *viper.Viper) (Settings, error) {
	s := Settings{
		RegistryPath: ExpandPath(v.GetString("registry.path")),
		InputDir:     ExpandPath(v.GetString("process.input")),
		OutputDir:    ExpandPath(v.GetString("process.output")),
		DatabasePath: ExpandPath(v.GetString("database.path")),
		Pdftotext:    v.GetString("document.pdftotext"),
		Workers:      v.GetInt("process.workers"),
	}

	if s.RegistryPath == "" {
		return s, fmt.Errorf("%w: registry.path", common.ErrMissingConfig)
	}
	if s.Workers < 1 {
		return s, fmt.Errorf("%w: process.workers must be at least 1, got %d", common.ErrInvalidConfig, s.Workers)
	}
	return s, nil
}

// LoadLLMConfig reads the inference client settings. The API key comes from
// the config first and falls back to OPENAI_API_KEY or ANTHROPIC_API_KEY.
func LoadLLMConfig(v *viper.Viper) llm.Config {
	cfg := llm.Config{
		Provider:    strings.ToLower(v.GetString("llm.provider")),
		Model:       v.GetString("llm.model"),
		BaseURL:     v.GetString("llm.base_url"),
		MaxTokens:   v.GetInt("llm.max_tokens"),
		Temperature: v.GetFloat64("llm.temperature"),
		RateLimit:   v.GetInt("llm.rate_limit"),
		CacheTTL:    v.GetDuration("llm.cache_ttl"),
		Timeout:     v.GetDuration("llm.timeout"),
	}

	switch cfg.Provider {
	case "anthropic":
		cfg.APIKey = firstNonEmpty(v.GetString("llm.anthropic_api_key"), os.Getenv("ANTHROPIC_API_KEY"))
	default:
		cfg.APIKey = firstNonEmpty(v.GetString("llm.openai_api_key"), os.Getenv("OPENAI_API_KEY"))
	}

	return cfg
}

// LoadExtractionConfig reads retry and timeout settings for field extraction.
func LoadExtractionConfig(v *viper.Viper) extraction.Config {
	return extraction.Config{
		Retry: service.RetryOptions{
			MaxAttempts:  v.GetInt("extraction.max_attempts"),
			InitialDelay: v.GetDuration("extraction.retry_delay"),
		},
		RequestTimeout: v.GetDuration("extraction.request_timeout"),
	}
}

// LoadConverter builds the currency converter from currency.target and currency.rate.
func LoadConverter(v *viper.Viper) (*currency.Converter, error) {
	raw := strings.TrimSpace(v.GetString("currency.rate"))
	rate := decimal.Zero
	if raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: currency.rate %q: %w", common.ErrInvalidConfig, raw, err)
		}
		rate = parsed
	}
	return currency.NewConverter(v.GetString("currency.target"), rate)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
