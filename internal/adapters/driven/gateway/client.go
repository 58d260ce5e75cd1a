// Package gateway is the OpenAI-compatible model gateway client.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

// Ensure Client implements LLMService
var _ driven.LLMService = (*Client)(nil)

// Defaults for the gateway client.
const (
	DefaultBaseURL         = "https://api.openai.com/v1"
	DefaultModel           = "gpt-4o-mini"
	DefaultSpeechModel     = "tts-1"
	DefaultCompleteTimeout = 60 * time.Second
	DefaultStreamTimeout   = 300 * time.Second
	DefaultMaxRetries      = 2

	pingTimeout  = 10 * time.Second
	maxErrorBody = 500
)

// Config configures the gateway client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	SpeechModel string

	CompleteTimeout time.Duration
	StreamTimeout   time.Duration

	// MaxRetries applies to non-streaming calls that fail in transport or
	// with a 5xx status. Negative disables retries.
	MaxRetries int

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client implements LLMService against /chat/completions and /audio/speech.
type Client struct {
	baseURL         string
	apiKey          string
	model           string
	speechModel     string
	completeTimeout time.Duration
	streamTimeout   time.Duration
	maxRetries      int
	backoff         time.Duration
	client          *http.Client
	logger          *slog.Logger
}

// New creates a gateway client.
func New(cfg Config) *Client {
	c := &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:          cfg.APIKey,
		model:           cfg.Model,
		speechModel:     cfg.SpeechModel,
		completeTimeout: cfg.CompleteTimeout,
		streamTimeout:   cfg.StreamTimeout,
		maxRetries:      cfg.MaxRetries,
		backoff:         500 * time.Millisecond,
		client:          cfg.HTTPClient,
		logger:          cfg.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.speechModel == "" {
		c.speechModel = DefaultSpeechModel
	}
	if c.completeTimeout <= 0 {
		c.completeTimeout = DefaultCompleteTimeout
	}
	if c.streamTimeout <= 0 {
		c.streamTimeout = DefaultStreamTimeout
	}
	if c.maxRetries == 0 {
		c.maxRetries = DefaultMaxRetries
	} else if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	if c.client == nil {
		// No global timeout; each call sets its own deadline.
		c.client = &http.Client{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "gateway")
	return c
}

// Model returns the chat model name.
func (c *Client) Model() string { return c.model }

// Complete sends a non-streaming chat completion request.
func (c *Client) Complete(ctx context.Context, req driven.ChatRequest) (*driven.ChatCompletion, error) {
	body, err := json.Marshal(c.buildRequest(req, false))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var respBody []byte
	for attempt := 0; ; attempt++ {
		respBody, err = c.completeOnce(ctx, body)
		if err == nil || attempt >= c.maxRetries || !retryable(err) {
			break
		}
		wait := c.backoff << attempt
		c.logger.Warn("gateway call failed, retrying", "attempt", attempt+1, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	if err != nil {
		return nil, unwrapTransport(err)
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: unreadable completion: %v", domain.ErrUpstreamAPI, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: completion has no choices", domain.ErrUpstreamAPI)
	}
	choice := resp.Choices[0]
	return &driven.ChatCompletion{
		Message:      choice.Message.toDomain(),
		FinishReason: choice.FinishReason,
		Model:        resp.Model,
	}, nil
}

func (c *Client) completeOnce(ctx context.Context, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.completeTimeout)
	defer cancel()

	resp, err := c.post(ctx, "/chat/completions", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transportError{fmt.Errorf("%w: read completion: %v", domain.ErrUpstreamAPI, err)}
	}
	if err := statusError(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

// Stream sends a streaming chat completion request. The returned stream
// owns the response and its deadline until Close.
func (c *Client) Stream(ctx context.Context, req driven.ChatRequest) (driven.ChatStream, error) {
	body, err := json.Marshal(c.buildRequest(req, true))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.streamTimeout)
	resp, err := c.post(ctx, "/chat/completions", body)
	if err != nil {
		cancel()
		return nil, unwrapTransport(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer cancel()
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, unwrapTransport(statusError(resp.StatusCode, respBody))
	}
	return newSSEStream(resp.Body, cancel), nil
}

// Speech synthesizes text through /audio/speech.
func (c *Client) Speech(ctx context.Context, req driven.SpeechRequest) (*driven.SpeechAudio, error) {
	body, err := json.Marshal(speechRequest{
		Model:          c.speechModel,
		Input:          req.Text,
		Voice:          req.Voice,
		ResponseFormat: req.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.completeTimeout)
	resp, err := c.post(ctx, "/audio/speech", body)
	if err != nil {
		cancel()
		return nil, unwrapTransport(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer cancel()
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, unwrapTransport(statusError(resp.StatusCode, respBody))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	return &driven.SpeechAudio{
		Body:        &cancelReadCloser{ReadCloser: resp.Body, cancel: cancel},
		ContentType: contentType,
	}, nil
}

// Ping verifies the gateway is reachable and accepts the API key.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: gateway unreachable: %v", domain.ErrUpstreamAPI, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	// Some gateways do not serve /models; reaching them is enough.
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	return unwrapTransport(statusError(resp.StatusCode, nil))
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: gateway timed out", domain.ErrUpstreamAPI)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &transportError{fmt.Errorf("%w: gateway request failed: %v", domain.ErrUpstreamAPI, err)}
	}
	return resp, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// statusError maps gateway statuses onto domain errors. 5xx errors are
// retryable.
func statusError(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	msg := errorMessage(body)
	switch {
	case status == http.StatusTooManyRequests && strings.Contains(msg, "insufficient_quota"):
		return fmt.Errorf("%w: %s", domain.ErrUpstreamQuota, msg)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrUpstreamRateLimit, msg)
	case status == http.StatusPaymentRequired:
		return fmt.Errorf("%w: %s", domain.ErrUpstreamQuota, msg)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return fmt.Errorf("%w: gateway rejected the API key (%d)", domain.ErrAuth, status)
	case status >= 500:
		return &transportError{fmt.Errorf("%w: gateway returned %d: %s", domain.ErrUpstreamAPI, status, msg)}
	}
	return fmt.Errorf("%w: gateway returned %d: %s", domain.ErrUpstreamAPI, status, msg)
}

// errorMessage extracts {"error":{"message","code"}} or returns the
// truncated body.
func errorMessage(body []byte) string {
	var env struct {
		Error *struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		parts := []string{env.Error.Message}
		if env.Error.Code != "" {
			parts = append(parts, "("+env.Error.Code+")")
		}
		return truncate(strings.Join(parts, " "), maxErrorBody)
	}
	return truncate(string(body), maxErrorBody)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "") + "..."
}

// transportError marks failures worth retrying on non-streaming calls.
type transportError struct{ err error }

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func retryable(err error) bool {
	var te *transportError
	return errors.As(err, &te)
}

// unwrapTransport strips the retry marker from errors returned to callers
// that never retry.
func unwrapTransport(err error) error {
	var te *transportError
	if errors.As(err, &te) {
		return te.err
	}
	return err
}

type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *cancelReadCloser) Close() error {
	err := r.ReadCloser.Close()
	r.cancel()
	return err
}
