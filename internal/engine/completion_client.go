package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"brandsim/server/internal/config"
	"brandsim/server/internal/interfaces"
	"brandsim/server/internal/metrics"
)

const retryDelay = 1 * time.Second

// ErrEmptyCompletion is returned when the provider answers without content.
var ErrEmptyCompletion = errors.New("completion returned no content")

// CompletionClient sends single-turn prompts to an OpenAI-compatible chat API
type CompletionClient struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	maxRetries  int
	logger      *zap.Logger
	metrics     *metrics.Metrics

	requests     atomic.Int64
	promptTokens atomic.Int64
	replyTokens  atomic.Int64
}

// NewCompletionClient creates a client for the configured endpoint
func NewCompletionClient(cfg config.CompletionConfig, logger *zap.Logger, m *metrics.Metrics) *CompletionClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	clientConfig.HTTPClient = &http.Client{
		Timeout: cfg.Timeout,
	}

	return &CompletionClient{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: float32(cfg.Temperature),
		maxRetries:  cfg.MaxRetries,
		logger:      logger,
		metrics:     m,
	}
}

var _ interfaces.Completer = (*CompletionClient)(nil)

// Complete sends prompt as a single user message and returns the reply text
func (c *CompletionClient) Complete(ctx context.Context, prompt string, opts interfaces.CompletionOptions) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	if opts.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(retryDelay * time.Duration(attempt)):
			}
			c.logger.Warn("retrying completion",
				zap.String("prompt", opts.Name),
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
		}

		content, err := c.doComplete(ctx, req, opts.Name)
		if err == nil {
			return content, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}

	return "", fmt.Errorf("completion %s failed: %w", opts.Name, lastErr)
}

func (c *CompletionClient) doComplete(ctx context.Context, req openai.ChatCompletionRequest, name string) (string, error) {
	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err == nil && (len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "") {
		err = ErrEmptyCompletion
	}
	c.metrics.ObserveCompletion(name, time.Since(start), err)
	c.requests.Inc()
	if err != nil {
		return "", err
	}

	c.promptTokens.Add(int64(resp.Usage.PromptTokens))
	c.replyTokens.Add(int64(resp.Usage.CompletionTokens))
	c.metrics.AddTokens(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	return resp.Choices[0].Message.Content, nil
}

// UsageStats is a snapshot of the client's lifetime counters
type UsageStats struct {
	Requests         int64 `json:"requests"`
	PromptTokens     int64 `json:"promptTokens"`
	CompletionTokens int64 `json:"completionTokens"`
}

func (c *CompletionClient) Stats() UsageStats {
	return UsageStats{
		Requests:         c.requests.Load(),
		PromptTokens:     c.promptTokens.Load(),
		CompletionTokens: c.replyTokens.Load(),
	}
}

// isRetryableError reports whether err is a rate limit, a server error or a network timeout
func isRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, ErrEmptyCompletion)
}
