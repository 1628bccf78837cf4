package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/invoice-flow/internal/common"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		check   func(t *testing.T, c Client)
		wantErr error
		name    string
		config  Config
	}{
		{
			name:   "openai by default",
			config: Config{APIKey: "key"},
			check: func(t *testing.T, c Client) {
				_, ok := c.(*openAIClient)
				assert.True(t, ok)
			},
		},
		{
			name:   "anthropic",
			config: Config{Provider: "Anthropic", APIKey: "key"},
			check: func(t *testing.T, c Client) {
				_, ok := c.(*anthropicClient)
				assert.True(t, ok)
			},
		},
		{
			name:   "rate limit and cache wrap the provider",
			config: Config{Provider: "openai", APIKey: "key", RateLimit: 30, CacheTTL: time.Minute},
			check: func(t *testing.T, c Client) {
				cached, ok := c.(*cachedClient)
				require.True(t, ok)
				limited, ok := cached.next.(*rateLimitedClient)
				require.True(t, ok)
				_, ok = limited.next.(*openAIClient)
				assert.True(t, ok)
			},
		},
		{
			name:    "missing key",
			config:  Config{Provider: "anthropic"},
			wantErr: common.ErrMissingConfig,
		},
		{
			name:    "unknown provider",
			config:  Config{Provider: "ollama", APIKey: "key"},
			wantErr: common.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.config, discardLogger())
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, client)
		})
	}
}
