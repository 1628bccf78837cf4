package llm

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/invoice-flow/internal/common"
)

const defaultTimeout = 60 * time.Second

// NewClient builds the client for cfg.Provider, wrapped with a rate limiter
// when cfg.RateLimit is set and a response cache when cfg.CacheTTL is set.
// Missing credentials are reported here so the program fails at startup.
func NewClient(cfg Config, logger *slog.Logger) (Client, error) {
	logger = common.LoggerOrDefault(logger)

	var (
		client Client
		err    error
	)

	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		client, err = newOpenAIClient(cfg, logger)
	case "anthropic":
		client, err = newAnthropicClient(cfg, logger)
	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider %q", common.ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RateLimit > 0 {
		client = newRateLimitedClient(client, cfg.RateLimit)
	}
	if cfg.CacheTTL > 0 {
		client = newCachedClient(client, cfg.CacheTTL, logger)
	}

	return client, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
