package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/invoice-flow/internal/common"
	"github.com/Veraticus/invoice-flow/internal/currency"
	"github.com/Veraticus/invoice-flow/internal/extraction"
	"github.com/Veraticus/invoice-flow/internal/model"
	"github.com/Veraticus/invoice-flow/internal/registry"
	"github.com/Veraticus/invoice-flow/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type pipelineFixture struct {
	registry  *registry.Registry
	completer *MockCompleter
	pipeline  *Pipeline
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	reg := registry.New(testLogger())
	require.NoError(t, reg.Load(filepath.Join(t.TempDir(), "providers.json")))

	completer := NewMockCompleter()
	extractor := extraction.New(completer, extraction.Config{
		Retry: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			MaxDelay:     2 * time.Millisecond,
		},
		RequestTimeout: time.Second,
	}, testLogger())

	return &pipelineFixture{
		registry:  reg,
		completer: completer,
		pipeline:  NewPipeline(reg, extractor, currency.Default(), testLogger()),
	}
}

func TestPipeline_LearnsUnknownProvider(t *testing.T) {
	f := newPipelineFixture(t)
	f.completer.On("4 elements", "Acme Services - 01_01_2024 - 250 - USD")

	outcome, err := f.pipeline.Process(context.Background(), "Invoice from Acme Services")
	require.NoError(t, err)

	require.NotNil(t, outcome.Record)
	assert.Equal(t, "Acme Services", outcome.Record.Provider)
	assert.Equal(t, "01_01_2024", outcome.Record.Date)
	assert.True(t, decimal.NewFromInt(250).Equal(outcome.Record.AmountSource))
	assert.True(t, decimal.RequireFromString("1435").Equal(outcome.Record.AmountConverted))
	assert.Equal(t, "BRL", outcome.Record.TargetCurrency)
	assert.Equal(t, model.ModeFull, outcome.Mode)
	assert.False(t, outcome.IdentifiedByRule)

	rules := f.registry.Rules()
	require.Len(t, rules, 1)
	assert.Equal(t, model.SourceLearned, rules[0].Source)
	assert.Equal(t, "Acme Services", rules[0].Pattern)
	assert.Equal(t, "Acme Services", rules[0].Provider)
	require.NotNil(t, outcome.Learned)
	assert.Equal(t, rules[0].Pattern, outcome.Learned.Pattern)
}

func TestPipeline_KnownProviderUsesReducedMode(t *testing.T) {
	f := newPipelineFixture(t)
	_, err := f.registry.AddRule("Acme", "Acme Services", registry.DefaultConfidence, model.SourceManual)
	require.NoError(t, err)

	f.completer.
		On("I already know the service provider is 'Acme Services'", "01_01_2024 - 250 - USD").
		Otherwise(MockReply{Err: errors.New("unexpected full-mode prompt")})

	outcome, err := f.pipeline.Process(context.Background(), "Monthly invoice - ACME hosting")
	require.NoError(t, err)

	assert.Equal(t, model.ModeReduced, outcome.Mode)
	assert.True(t, outcome.IdentifiedByRule)
	assert.Nil(t, outcome.Learned)
	assert.Equal(t, "Acme Services", outcome.Record.Provider)

	calls := f.completer.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "strict format of 3 elements")

	assert.Len(t, f.registry.Rules(), 1, "reduced mode must not learn")
}

func TestPipeline_SecondDocumentUsesLearnedRule(t *testing.T) {
	f := newPipelineFixture(t)
	f.completer.
		On("I already know", "02_02_2024 - 80 - USD").
		On("4 elements", "Acme Services - 01_01_2024 - 250 - USD")

	first, err := f.pipeline.Process(context.Background(), "Invoice from Acme Services")
	require.NoError(t, err)
	assert.Equal(t, model.ModeFull, first.Mode)

	second, err := f.pipeline.Process(context.Background(), "ACME SERVICES statement for February")
	require.NoError(t, err)
	assert.Equal(t, model.ModeReduced, second.Mode)
	assert.Equal(t, "02_02_2024", second.Record.Date)
	assert.Len(t, f.registry.Rules(), 1)
}

func TestPipeline_Failures(t *testing.T) {
	tests := []struct {
		name      string
		reply     MockReply
		wantErrIs error
		wantStage Stage
		wantLearn bool
	}{
		{
			name:      "inference keeps failing",
			reply:     MockReply{Err: errors.New("service unavailable")},
			wantStage: StageExtracting,
			wantErrIs: common.ErrExtractionFailed,
		},
		{
			name:      "wrong field count",
			reply:     MockReply{Content: "Acme Services - 01_01_2024"},
			wantStage: StageExtracting,
			wantErrIs: common.ErrMalformedResponse,
		},
		{
			name:      "empty provider",
			reply:     MockReply{Content: " - 01_01_2024 - 250 - USD"},
			wantStage: StageExtracting,
			wantErrIs: common.ErrMalformedResponse,
		},
		{
			name:      "unrepairable date",
			reply:     MockReply{Content: "Acme Services - 5/3/25 - 250 - USD"},
			wantStage: StageValidating,
			wantErrIs: common.ErrInvalidDate,
			wantLearn: true,
		},
		{
			name:      "amount without digits",
			reply:     MockReply{Content: "Acme Services - 01_01_2024 - N/A - USD"},
			wantStage: StageValidating,
			wantErrIs: common.ErrInvalidAmount,
			wantLearn: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture(t)
			f.completer.Otherwise(tt.reply)

			outcome, err := f.pipeline.Process(context.Background(), "Invoice from Acme Services")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErrIs)

			var stageErr *StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, tt.wantStage, stageErr.Stage)

			require.NotNil(t, outcome)
			assert.Nil(t, outcome.Record)
			assert.Equal(t, tt.wantLearn, outcome.Learned != nil)
		})
	}
}

func TestPipeline_NonUSDCurrencyIsAccepted(t *testing.T) {
	f := newPipelineFixture(t)
	f.completer.Otherwise(MockReply{Content: "Acme Services - 01_01_2024 - 250 - EUR"})

	outcome, err := f.pipeline.Process(context.Background(), "Invoice from Acme Services")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(250).Equal(outcome.Record.AmountSource))
}

func TestStageError(t *testing.T) {
	err := &StageError{Stage: StageValidating, Err: common.ErrInvalidDate}
	assert.Equal(t, "validating: invalid date", err.Error())
	assert.ErrorIs(t, err, common.ErrInvalidDate)
}
