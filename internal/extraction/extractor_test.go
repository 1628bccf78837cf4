package extraction

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/invoice-flow/internal/common"
	"github.com/Veraticus/invoice-flow/internal/model"
	"github.com/Veraticus/invoice-flow/internal/service"
)

type reply struct {
	err     error
	content string
	block   bool
}

// scriptedClient returns its replies in order, repeating the last one.
type scriptedClient struct {
	replies []reply
	prompts []string
	mu      sync.Mutex
}

func (c *scriptedClient) Complete(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	idx := min(len(c.prompts), len(c.replies)-1)
	c.prompts = append(c.prompts, prompt)
	r := c.replies[idx]
	c.mu.Unlock()

	if r.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return r.content, r.err
}

func (c *scriptedClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}

func newTestExtractor(client *scriptedClient) *Extractor {
	return New(client, Config{
		Retry: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
		},
		RequestTimeout: 50 * time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestExtractor_Extract(t *testing.T) {
	tests := []struct {
		name      string
		provider  string
		wantErrIs error
		replies   []reply
		want      model.ExtractionFields
		wantMode  model.ExtractionMode
		wantCalls int
	}{
		{
			name:     "full mode",
			replies:  []reply{{content: "Acme Services - 01_01_2024 - 250 - USD"}},
			wantMode: model.ModeFull,
			want: model.ExtractionFields{
				Provider: "Acme Services",
				Date:     "01_01_2024",
				Amount:   "250",
				Currency: "USD",
			},
			wantCalls: 1,
		},
		{
			name:     "reduced mode fills known provider",
			provider: "Acme Services",
			replies:  []reply{{content: "01_01_2024 - 250 - USD"}},
			wantMode: model.ModeReduced,
			want: model.ExtractionFields{
				Provider: "Acme Services",
				Date:     "01_01_2024",
				Amount:   "250",
				Currency: "USD",
			},
			wantCalls: 1,
		},
		{
			name:     "empty reply is retried",
			provider: "Acme Services",
			replies: []reply{
				{content: "   "},
				{err: errors.New("connection reset")},
				{content: "01_01_2024 - 250 - USD"},
			},
			wantMode: model.ModeReduced,
			want: model.ExtractionFields{
				Provider: "Acme Services",
				Date:     "01_01_2024",
				Amount:   "250",
				Currency: "USD",
			},
			wantCalls: 3,
		},
		{
			name:      "exhausted attempts",
			replies:   []reply{{err: common.ErrEmptyCompletion}},
			wantMode:  model.ModeFull,
			wantErrIs: common.ErrExtractionFailed,
			wantCalls: 3,
		},
		{
			name:      "hung upstream times out each attempt",
			replies:   []reply{{block: true}},
			wantMode:  model.ModeFull,
			wantErrIs: common.ErrExtractionFailed,
			wantCalls: 3,
		},
		{
			name:      "malformed response is not retried",
			replies:   []reply{{content: "Acme Services, 01/01/2024, 250"}},
			wantMode:  model.ModeFull,
			wantErrIs: common.ErrMalformedResponse,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &scriptedClient{replies: tt.replies}
			extractor := newTestExtractor(client)

			got, mode, err := extractor.Extract(context.Background(), "Invoice from Acme Services", tt.provider)

			assert.Equal(t, tt.wantMode, mode)
			assert.Equal(t, tt.wantCalls, client.calls())

			if tt.wantErrIs != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErrIs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractor_CanceledContext(t *testing.T) {
	client := &scriptedClient{replies: []reply{{block: true}}}
	extractor := newTestExtractor(client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := extractor.Extract(ctx, "text", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, client.calls())
}
