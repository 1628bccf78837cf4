package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/Veraticus/invoice-flow/internal/common"
	"github.com/Veraticus/invoice-flow/internal/config"
	"github.com/Veraticus/invoice-flow/internal/document"
	"github.com/Veraticus/invoice-flow/internal/engine"
	"github.com/Veraticus/invoice-flow/internal/extraction"
	"github.com/Veraticus/invoice-flow/internal/llm"
	"github.com/Veraticus/invoice-flow/internal/registry"
	"github.com/Veraticus/invoice-flow/internal/storage"
)

// loadSettings reads the file locations from the global viper instance.
func loadSettings() (config.Settings, error) {
	return config.LoadSettings(viper.GetViper())
}

// openRegistry loads the provider rules. A broken file is reported and the
// registry starts empty.
func openRegistry(settings config.Settings) *registry.Registry {
	return registry.Open(settings.RegistryPath, slog.Default())
}

// newReader builds the document reader that shells out to pdftotext.
func newReader(settings config.Settings) *document.Reader {
	runner := document.ExecRunner{Logger: slog.Default()}
	return document.NewReader(runner, settings.Pdftotext, slog.Default())
}

// newPipeline wires the inference client, extractor and converter around reg.
// Missing credentials fail here, before any document is read.
func newPipeline(reg *registry.Registry) (*engine.Pipeline, error) {
	v := viper.GetViper()

	llmConfig := config.LoadLLMConfig(v)
	client, err := llm.NewClient(llmConfig, slog.Default())
	if errors.Is(err, common.ErrMissingConfig) {
		return nil, common.NewUserError(missingKeyHint(llmConfig.Provider), err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	converter, err := config.LoadConverter(v)
	if err != nil {
		return nil, err
	}

	extractor := extraction.New(client, config.LoadExtractionConfig(v), slog.Default())
	return engine.NewPipeline(reg, extractor, converter, slog.Default()), nil
}

func missingKeyHint(provider string) string {
	if provider == "anthropic" {
		return "set llm.anthropic_api_key in the config file or ANTHROPIC_API_KEY in the environment"
	}
	return "set llm.openai_api_key in the config file or OPENAI_API_KEY in the environment"
}

// openStorage opens and migrates the processed-document ledger.
func openStorage(ctx context.Context, settings config.Settings) (*storage.SQLiteStorage, error) {
	store, err := storage.Open(ctx, settings.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return store, nil
}
