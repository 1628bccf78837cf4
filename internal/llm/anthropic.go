package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Veraticus/invoice-flow/internal/common"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	defaultAnthropicModel   = "claude-3-5-haiku-latest"
	anthropicVersion        = "2023-06-01"
)

// anthropicClient implements Client against the messages API.
type anthropicClient struct {
	httpClient  *http.Client
	logger      *slog.Logger
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
}

func newAnthropicClient(cfg Config, logger *slog.Logger) (*anthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: anthropic API key is required", common.ErrMissingConfig)
	}

	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1000
	}

	return &anthropicClient{
		httpClient:  newHTTPClient(cfg.Timeout),
		logger:      common.LoggerOrDefault(logger),
		apiKey:      cfg.APIKey,
		model:       model,
		baseURL:     strings.TrimRight(baseURL, "/"),
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}, nil
}

// anthropicResponse represents the Anthropic API response structure.
type anthropicResponse struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Role       string `json:"role"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete sends prompt as a single user message.
func (c *anthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	requestBody := map[string]any{
		"model":       c.model,
		"max_tokens":  c.maxTokens,
		"temperature": c.temperature,
		"system":      systemPrompt,
		"messages": []map[string]string{
			{
				"role":    "user",
				"content": prompt,
			},
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	reqID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("X-Client-Request-Id", reqID)

	c.logger.Debug("sending completion request", "provider", "anthropic", "model", c.model, "req_id", reqID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if err := statusError("anthropic", resp.StatusCode, body); err != nil {
		return "", err
	}

	var response anthropicResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" || block.Type == "" {
			text.WriteString(block.Text)
		}
	}

	if strings.TrimSpace(text.String()) == "" {
		return "", fmt.Errorf("%w: no text content (stop reason %q)", common.ErrEmptyCompletion, response.StopReason)
	}

	c.logger.Debug("received completion",
		"provider", "anthropic",
		"req_id", reqID,
		"input_tokens", response.Usage.InputTokens,
		"output_tokens", response.Usage.OutputTokens)

	return text.String(), nil
}
