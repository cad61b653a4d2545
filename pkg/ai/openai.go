package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/johnquangdev/meeting-intel/pkg/config"
)

// Failure classes carried by errors returned from Complete
var (
	ErrRateLimited  = errors.New("rate limited")
	ErrAccessDenied = errors.New("model access denied")
	ErrTimeout      = errors.New("request timed out")
	ErrUpstream     = errors.New("upstream error")
)

// APIError is a non-2xx answer from the chat-completions endpoint
type APIError struct {
	StatusCode int
	Model      string
	Message    string
	class      error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s returned status %d", e.Model, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Model, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.class
}

// OpenAIClient is a chat-completions client shared by every rubric pass.
// It is safe for concurrent use.
type OpenAIClient struct {
	apiKey      string
	baseURL     string
	client      *http.Client
	limiter     *rate.Limiter
	maxTokens   int
	temperature float64
	newBackOff  func() backoff.BackOff
	logger      *zap.Logger
}

// ClientOption customises an OpenAIClient
type ClientOption func(*OpenAIClient)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *OpenAIClient) {
		c.client = hc
	}
}

// WithBackOff replaces the transport retry policy
func WithBackOff(newBackOff func() backoff.BackOff) ClientOption {
	return func(c *OpenAIClient) {
		c.newBackOff = newBackOff
	}
}

// WithLogger attaches a logger
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *OpenAIClient) {
		c.logger = logger
	}
}

// NewOpenAIClient creates a client from the LLM configuration
func NewOpenAIClient(cfg *config.LLMConfig, opts ...ClientOption) *OpenAIClient {
	c := &OpenAIClient{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		client:      &http.Client{Timeout: cfg.Timeout},
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		newBackOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
		},
	}
	if c.baseURL == "" {
		c.baseURL = "https://api.openai.com/v1"
	}
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Message is one chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the shape for chat completion requests. Only one of the
// token budget fields is set, depending on the model profile.
type ChatRequest struct {
	Model               string    `json:"model"`
	Messages            []Message `json:"messages"`
	Temperature         *float64  `json:"temperature,omitempty"`
	MaxTokens           int       `json:"max_tokens,omitempty"`
	MaxCompletionTokens int       `json:"max_completion_tokens,omitempty"`
}

// ChatResponse is a minimal response shape
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// BuildRequest shapes a request for the model's profile. Reasoning models
// take no system role, so the instruction is folded into the user message.
func (c *OpenAIClient) BuildRequest(model, system, user string) ChatRequest {
	profile := Profile(model)
	req := ChatRequest{Model: model}

	if profile.Reasoning {
		req.Messages = []Message{{Role: "user", Content: system + "\n\n" + user}}
	} else {
		req.Messages = []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		}
	}

	budget := profile.outputBudget(c.maxTokens)
	if profile.TokenParam == TokenParamMaxCompletionTokens {
		req.MaxCompletionTokens = budget
	} else {
		req.MaxTokens = budget
	}
	if profile.SupportsTemperature {
		t := c.temperature
		req.Temperature = &t
	}
	return req
}

// Complete sends one chat request and returns the assistant content, which
// may be empty. Rate-limited and 5xx answers are retried with backoff;
// other failures are returned at once, wrapped in one of the failure classes.
func (c *OpenAIClient) Complete(ctx context.Context, model, system, user string) (string, error) {
	body, err := json.Marshal(c.BuildRequest(model, system, user))
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	var content string
	operation := func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		out, err := c.do(ctx, model, body)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && !errors.Is(err, ErrRateLimited) && apiErr.StatusCode < 500 {
				return backoff.Permanent(err)
			}
			if errors.Is(err, ErrTimeout) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			if c.logger != nil {
				c.logger.Warn("⚠️ Chat request failed, retrying",
					zap.String("model", model),
					zap.Error(err),
				)
			}
			return err
		}
		content = out
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		return "", err
	}
	return content, nil
}

func (c *OpenAIClient) do(ctx context.Context, model string, body []byte) (string, error) {
	endpoint := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if resp.StatusCode >= 400 {
		return "", newAPIError(model, resp.StatusCode, raw)
	}

	var cr ChatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return "", fmt.Errorf("%w: invalid response body: %v", ErrUpstream, err)
	}
	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == nil {
		return "", nil
	}
	return *cr.Choices[0].Message.Content, nil
}

func newAPIError(model string, status int, raw []byte) *APIError {
	var er errorResponse
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &er) == nil && er.Error.Message != "" {
		msg = er.Error.Message
	}

	apiErr := &APIError{StatusCode: status, Model: model, Message: msg, class: ErrUpstream}
	lower := strings.ToLower(msg)
	switch {
	case status == http.StatusTooManyRequests:
		apiErr.class = ErrRateLimited
	case status == http.StatusForbidden || status == http.StatusNotFound,
		strings.Contains(lower, "does not exist"),
		strings.Contains(lower, "access"):
		apiErr.class = ErrAccessDenied
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		apiErr.class = ErrTimeout
	}
	return apiErr
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Ping checks the endpoint and key by listing models
func (c *OpenAIClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return newAPIError("models", resp.StatusCode, raw)
	}
	return nil
}
