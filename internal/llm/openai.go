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
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "o4-mini"
)

// openAIClient implements Client against the chat completions API.
type openAIClient struct {
	httpClient  *http.Client
	logger      *slog.Logger
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
}

func newOpenAIClient(cfg Config, logger *slog.Logger) (*openAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", common.ErrMissingConfig)
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1000
	}

	return &openAIClient{
		httpClient:  newHTTPClient(cfg.Timeout),
		logger:      common.LoggerOrDefault(logger),
		apiKey:      cfg.APIKey,
		model:       model,
		baseURL:     strings.TrimRight(baseURL, "/"),
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}, nil
}

type openAIRequest struct {
	Temperature         *float64        `json:"temperature,omitempty"`
	Model               string          `json:"model"`
	Messages            []openAIMessage `json:"messages"`
	MaxCompletionTokens int             `json:"max_completion_tokens"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// openAIResponse represents the OpenAI API response structure.
type openAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete sends prompt as a single user message.
func (c *openAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	request := openAIRequest{
		Model: c.model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxCompletionTokens: c.maxTokens,
	}
	if c.temperature > 0 {
		request.Temperature = &c.temperature
	}

	jsonBody, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	reqID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Client-Request-Id", reqID)

	c.logger.Debug("sending completion request", "provider", "openai", "model", c.model, "req_id", reqID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if err := statusError("OpenAI", resp.StatusCode, body); err != nil {
		return "", err
	}

	var response openAIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", common.ErrEmptyCompletion)
	}

	content := response.Choices[0].Message.Content
	if content == nil || strings.TrimSpace(*content) == "" {
		return "", fmt.Errorf("%w: empty message content (finish reason %q)",
			common.ErrEmptyCompletion, response.Choices[0].FinishReason)
	}

	c.logger.Debug("received completion",
		"provider", "openai",
		"req_id", reqID,
		"prompt_tokens", response.Usage.PromptTokens,
		"completion_tokens", response.Usage.CompletionTokens)

	return *content, nil
}

// statusError converts a non-200 reply into an error. Rate limiting is
// reported as ErrRateLimit so the retry loop backs off further.
func statusError(provider string, status int, body []byte) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s API returned status %d: %s", common.ErrRateLimit, provider, status, string(body))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return common.Permanent(fmt.Errorf("%s API rejected credentials (status %d): %s", provider, status, string(body)))
	default:
		return fmt.Errorf("%s API error (status %d): %s", provider, status, string(body))
	}
}
