package llm

import (
	"context"
	"time"
)

// Client sends a single prompt to a language model and returns its text reply.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config holds the settings for building a Client.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	CacheTTL    time.Duration
	Timeout     time.Duration
	RateLimit   int
	MaxTokens   int
	Temperature float64
}

// systemPrompt frames every request as a fixed-format extraction task.
const systemPrompt = "You extract billing details from invoice text. " +
	"Reply with only the requested fields in the exact order and format asked for, " +
	"with no explanation or markdown."
