package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

// Call timeouts.
const (
	MetadataTimeout = 10 * time.Second
	ContentTimeout  = 60 * time.Second

	// maxErrorBody caps vendor error bodies copied into error messages.
	maxErrorBody = 500

	// maxResponseBody caps decoded response bodies.
	maxResponseBody = 8 << 20
)

// CallerConfig configures a Caller.
type CallerConfig struct {
	// HTTPClient defaults to a client without a global timeout; every
	// request carries its own deadline.
	HTTPClient *http.Client

	// RequestsPerSecond and Burst bound outbound calls of one connector.
	// Zero means 10 per second with a burst of 20.
	RequestsPerSecond float64
	Burst             int

	// UserAgent is sent on every request.
	UserAgent string
}

// Caller performs authenticated JSON calls to one vendor API and maps
// vendor failures onto the domain error kinds.
type Caller struct {
	connector  domain.ConnectorType
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

// NewCaller creates a caller for one connector.
func NewCaller(t domain.ConnectorType, cfg CallerConfig) *Caller {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 20
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "sercha-dispatch"
	}
	return &Caller{
		connector:  t,
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		userAgent:  ua,
	}
}

// Request is one vendor API call.
type Request struct {
	Method string
	URL    string
	Query  url.Values

	// Body is JSON-encoded unless Form is set.
	Body any
	Form url.Values

	Header http.Header

	// Content selects the longer timeout for calls that move file bodies.
	Content bool
}

// Do sends req with creds and decodes a JSON response into out.
// A nil out discards the body.
func (c *Caller) Do(ctx context.Context, creds *domain.Credentials, req Request, out any) error {
	body, err := c.Raw(ctx, creds, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s returned an unreadable response: %v", domain.ErrUpstreamAPI, c.connector.DisplayName(), err)
	}
	return nil
}

// Raw sends req and returns the response body of a 2xx response.
func (c *Caller) Raw(ctx context.Context, creds *domain.Credentials, req Request) ([]byte, error) {
	timeout := MetadataTimeout
	if req.Content {
		timeout = ContentTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// A failed Wait is a local deadline, not a vendor rate limit.
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s call could not start before its deadline: %v", domain.ErrUpstreamAPI, c.connector.DisplayName(), err)
	}

	httpReq, err := c.newRequest(ctx, creds, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s did not respond within %s", domain.ErrUpstreamAPI, c.connector.DisplayName(), timeout)
		}
		return nil, fmt.Errorf("%w: %s request failed: %v", domain.ErrUpstreamAPI, c.connector.DisplayName(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s response: %v", domain.ErrUpstreamAPI, c.connector.DisplayName(), err)
	}
	if err := StatusError(c.connector, resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Caller) newRequest(ctx context.Context, creds *domain.Credentials, req Request) (*http.Request, error) {
	target := req.URL
	if len(req.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + req.Query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case req.Form != nil:
		body = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.Body != nil:
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrValidation, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Set(k, v)
		}
	}
	Authorize(httpReq, creds)
	return httpReq, nil
}

// Authorize sets the Authorization header for creds.
func Authorize(req *http.Request, creds *domain.Credentials) {
	if creds == nil {
		return
	}
	switch creds.AuthMethod {
	case domain.AuthMethodBasic:
		req.SetBasicAuth(creds.Username, creds.Password)
	case domain.AuthMethodInternal:
	default:
		if tok := creds.BearerToken(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
}

// StatusError maps a non-2xx vendor status to a domain error. It returns
// nil for 2xx.
func StatusError(t domain.ConnectorType, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	name := t.DisplayName()
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return AuthError(t, fmt.Sprintf("%s rejected the credentials (%d)", name, status))
	case http.StatusTooManyRequests:
		return domain.WithHint(
			fmt.Errorf("%w: %s is rate limiting requests", domain.ErrUpstreamRateLimit, name),
			"Wait a minute and try again.",
		)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s returned 404 not found: %s", domain.ErrUpstreamAPI, name, Truncate(string(body), maxErrorBody))
	}
	return fmt.Errorf("%w: %s returned %d: %s", domain.ErrUpstreamAPI, name, status, Truncate(string(body), maxErrorBody))
}

// AuthError is an authentication failure with a reconnect hint.
func AuthError(t domain.ConnectorType, msg string) error {
	return domain.WithHint(
		fmt.Errorf("%w: %s", domain.ErrAuth, msg),
		fmt.Sprintf("Reconnect %s in settings.", t.DisplayName()),
	)
}

// Truncate caps s at n bytes without splitting a rune.
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

// RequireBaseURL returns the credential base URL or a configuration error.
func RequireBaseURL(creds *domain.Credentials) (string, error) {
	if creds == nil || creds.BaseURL == "" {
		return "", fmt.Errorf("%w: base_url is not set", domain.ErrNotConfigured)
	}
	u, err := url.Parse(creds.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: base_url %q is not an absolute URL", domain.ErrNotConfigured, creds.BaseURL)
	}
	return strings.TrimRight(creds.BaseURL, "/"), nil
}
