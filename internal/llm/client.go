// Package llm sends single-message chat completions to an OpenAI-compatible
// API and classifies its failures.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/FranksOps/scout/internal/apperr"
	"github.com/FranksOps/scout/internal/metrics"
	openai "github.com/sashabaranov/go-openai"
)

const opComplete = "llm.complete"

// Request is one prompt sent as a single user message.
type Request struct {
	// Stage labels metrics and logs, e.g. "extract" or "draft".
	Stage     string
	Prompt    string
	MaxTokens int
	// JSON asks the API for a JSON object response.
	JSON bool
}

// Completer returns the text of the first choice for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// DefaultTimeout bounds a completion when Config.Timeout is zero.
const DefaultTimeout = 60 * time.Second

// Doer is the HTTP surface go-openai needs.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Config configures the Client.
type Config struct {
	APIKey string
	// Model defaults to gpt-4o.
	Model string
	// BaseURL overrides the API root, e.g. "http://localhost:8081/v1".
	BaseURL string
	// Timeout bounds each completion; 0 selects DefaultTimeout.
	Timeout time.Duration
	// HTTPClient sends the API requests; nil selects go-openai's default.
	HTTPClient Doer
}

// Client is a Completer backed by go-openai. It holds the credential; there
// is no package-level client.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

var _ Completer = (*Client)(nil)

// New returns a Client. A missing API key is a Config error.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperr.Newf(apperr.KindConfig, opComplete, "api key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4o
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}

	return &Client{
		api:     openai.NewClientWithConfig(oc),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Complete sends req and returns the first choice's content unmodified.
// There is no retry.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	creq := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}
	if req.MaxTokens > 0 {
		if usesCompletionTokens(c.model) {
			creq.MaxCompletionTokens = req.MaxTokens
		} else {
			creq.MaxTokens = req.MaxTokens
		}
	}
	if req.JSON {
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, creq)
	elapsed := time.Since(start)
	if err != nil {
		cerr := classify(err)
		metrics.RecordModel(req.Stage, "error", elapsed, 0, 0)
		c.logger.Debug("completion failed", "stage", req.Stage, "model", c.model,
			"status", cerr.StatusCode, "duration", elapsed, "err", cerr)
		return "", cerr
	}

	metrics.RecordModel(req.Stage, "ok", elapsed, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	if len(resp.Choices) == 0 {
		return "", apperr.Newf(apperr.KindModel, opComplete, "response has no choices")
	}

	c.logger.Debug("completion done", "stage", req.Stage, "model", c.model,
		"duration", elapsed, "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}

// usesCompletionTokens reports whether model rejects max_tokens in favor of
// max_completion_tokens.
func usesCompletionTokens(model string) bool {
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// classify maps a go-openai error to a Model error carrying the HTTP status.
func classify(err error) *apperr.Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apperr.New(apperr.KindModel, opComplete,
			fmt.Errorf("%s: %s", describeStatus(apiErr.HTTPStatusCode), apperr.Redact(apiErr.Message))).
			WithStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return apperr.New(apperr.KindModel, opComplete,
			fmt.Errorf("%s: %w", describeStatus(reqErr.HTTPStatusCode), reqErr.Err)).
			WithStatus(reqErr.HTTPStatusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.New(apperr.KindModel, opComplete, fmt.Errorf("timed out: %w", err))
	}
	return apperr.New(apperr.KindModel, opComplete, err)
}

func describeStatus(code int) string {
	switch {
	case code == 401 || code == 403:
		return "credential rejected"
	case code == 429:
		return "rate limited"
	case code >= 500:
		return "provider unavailable"
	case code >= 400:
		return "request rejected"
	default:
		return "request failed"
	}
}
