package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// rateLimitedClient holds requests back to a fixed number per minute.
type rateLimitedClient struct {
	next    Client
	limiter *rate.Limiter
}

// newRateLimitedClient allows requestsPerMinute requests, with bursts up to
// the same amount.
func newRateLimitedClient(next Client, requestsPerMinute int) *rateLimitedClient {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &rateLimitedClient{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), requestsPerMinute),
	}
}

func (c *rateLimitedClient) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter canceled: %w", err)
	}
	return c.next.Complete(ctx, prompt)
}
