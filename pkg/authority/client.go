// Package authority talks to the remote statutory authority over JSON/HTTP.
package authority

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/noah-isme/station-compliance-api/pkg/middleware/requestid"
	"github.com/noah-isme/station-compliance-api/pkg/retry"
)

const maxResponseBytes = 4 << 20

// TokenSource supplies the bearer token attached to outgoing requests.
type TokenSource interface {
	Token(ctx context.Context) string
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(context.Context) string { return string(t) }

// Recorder receives instrumentation events. All methods must be safe for concurrent use.
type Recorder interface {
	ObserveAuthorityCall(operation string, success bool, duration time.Duration)
	ObserveAuthorityRetry(operation string)
	ObserveProbe(connected bool, duration time.Duration)
	SetBreakerState(name, state string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveAuthorityCall(string, bool, time.Duration) {}
func (noopRecorder) ObserveAuthorityRetry(string)                     {}
func (noopRecorder) ObserveProbe(bool, time.Duration)                 {}
func (noopRecorder) SetBreakerState(string, string)                   {}

// Config configures a Client.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	HTTPClient     *http.Client
	Tokens         TokenSource
	Recorder       Recorder
	Logger         *zap.Logger
	// Sleep replaces the wait between attempts; nil uses a real timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Client executes authority requests with bearer auth, per-attempt timeouts and bounded retries.
// It has no notion of connectivity; callers probe first.
type Client struct {
	baseURL  string
	http     *http.Client
	tokens   TokenSource
	policy   retry.Policy
	recorder Recorder
	logger   *zap.Logger
}

// NewClient builds a Client, filling zero values with the documented defaults.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Tokens == nil {
		cfg.Tokens = StaticToken("")
	}
	if cfg.Recorder == nil {
		cfg.Recorder = noopRecorder{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    cfg.HTTPClient,
		tokens:  cfg.Tokens,
		policy: retry.Policy{
			Attempts:       cfg.RetryAttempts,
			BaseDelay:      cfg.RetryBaseDelay,
			AttemptTimeout: cfg.Timeout,
			Sleep:          cfg.Sleep,
		},
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
	}
}

// BaseURL returns the authority root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request describes a single authority call.
type Request struct {
	// Operation labels logs and metrics, e.g. "documents.list".
	Operation string
	Method    string
	Path      string
	Query     url.Values
	Body      interface{}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Call performs req under the client's retry policy and decodes the JSON body into T.
// An empty body yields the zero value of T. After the last attempt the returned
// *retry.ExhaustedError wraps only the final failure.
func Call[T any](ctx context.Context, c *Client, req Request) (T, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if req.Operation == "" {
		req.Operation = req.Method + " " + req.Path
	}

	policy := c.policy
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		c.recorder.ObserveAuthorityRetry(req.Operation)
		c.logger.Sugar().Warnw("authority call failed, retrying",
			"operation", req.Operation,
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
	}

	start := time.Now()
	value, err := retry.DoValue(ctx, policy, func(ctx context.Context) (T, error) {
		return execute[T](ctx, c, req)
	})
	c.recorder.ObserveAuthorityCall(req.Operation, err == nil, time.Since(start))
	return value, err
}

func execute[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var zero T

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return zero, fmt.Errorf("encode %s body: %w", req.Operation, err)
		}
		body = bytes.NewReader(payload)
	}

	endpoint := c.baseURL + req.Path
	if len(req.Query) > 0 {
		endpoint += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint, body)
	if err != nil {
		return zero, fmt.Errorf("build %s request: %w", req.Operation, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if token := c.tokens.Token(ctx); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	if reqID := requestid.FromContext(ctx); reqID != "" {
		httpReq.Header.Set(requestid.HeaderKey, reqID)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return zero, fmt.Errorf("read %s response: %w", req.Operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return zero, &StatusError{
			Method:     req.Method,
			Path:       req.Path,
			StatusCode: resp.StatusCode,
			Body:       truncate(strings.TrimSpace(string(raw)), 256),
		}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return zero, nil
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, fmt.Errorf("decode %s response: %w", req.Operation, err)
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
