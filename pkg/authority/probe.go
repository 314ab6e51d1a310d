package authority

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/station-compliance-api/internal/models"
)

const breakerName = "authority-health"

// ProbeConfig configures the connectivity probe.
type ProbeConfig struct {
	BaseURL string
	// Timeout bounds a single health check.
	Timeout time.Duration
	// BreakerFailures is the number of consecutive failures that opens the breaker.
	BreakerFailures uint32
	// BreakerCooldown is how long an open breaker short-circuits probes.
	BreakerCooldown time.Duration
	HTTPClient      *http.Client
	Tokens          TokenSource
	Recorder        Recorder
	Logger          *zap.Logger
	Now             func() time.Time
}

// Probe checks the authority health endpoint and keeps the latest ConnectionStatus.
type Probe struct {
	endpoint string
	timeout  time.Duration
	http     *http.Client
	tokens   TokenSource
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
	breaker  *gobreaker.CircuitBreaker[time.Duration]

	mu     sync.RWMutex
	status models.ConnectionStatus
}

// NewProbe builds a probe for {BaseURL}/health.
func NewProbe(cfg ProbeConfig) *Probe {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
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
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	p := &Probe{
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/health",
		timeout:  cfg.Timeout,
		http:     cfg.HTTPClient,
		tokens:   cfg.Tokens,
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
	p.status = models.ConnectionStatus{Endpoint: p.endpoint}

	failures := cfg.BreakerFailures
	p.recorder.SetBreakerState(breakerName, gobreaker.StateClosed.String())
	p.breaker = gobreaker.NewCircuitBreaker[time.Duration](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.logger.Sugar().Infow("authority breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			p.recorder.SetBreakerState(name, to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return p
}

// Probe issues one health check and replaces the shared status with its outcome.
// Connectivity failure is an expected outcome: it is reported as Connected=false, never as an error.
func (p *Probe) Probe(ctx context.Context) models.ConnectionStatus {
	latency, err := p.breaker.Execute(func() (time.Duration, error) {
		return p.check(ctx)
	})

	p.mu.Lock()
	next := models.ConnectionStatus{
		Connected:    err == nil,
		LastChecked:  p.now().UTC(),
		Endpoint:     p.endpoint,
		LastSyncTime: p.status.LastSyncTime,
	}
	if err == nil {
		ms := latency.Milliseconds()
		next.ResponseTimeMs = &ms
	}
	wasConnected := p.status.Connected
	p.status = next
	p.mu.Unlock()

	p.recorder.ObserveProbe(next.Connected, latency)
	switch {
	case err != nil && wasConnected:
		p.logger.Sugar().Warnw("authority unreachable", "endpoint", p.endpoint, "error", err)
	case err != nil:
		p.logger.Sugar().Debugw("authority probe failed", "endpoint", p.endpoint, "error", err)
	case !wasConnected:
		p.logger.Sugar().Infow("authority reachable", "endpoint", p.endpoint, "latency_ms", latency.Milliseconds())
	}
	return next
}

func (p *Probe) check(ctx context.Context) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := p.tokens.Token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := p.http.Do(req)
	latency := time.Since(start)
	if err != nil {
		return latency, err
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return latency, fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return latency, nil
}

// Status returns the most recent probe outcome.
func (p *Probe) Status() models.ConnectionStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// MarkSynced records a successful remote sync by replacing the status value.
func (p *Probe) MarkSynced(at time.Time) {
	at = at.UTC()
	p.mu.Lock()
	next := p.status
	next.LastSyncTime = &at
	p.status = next
	p.mu.Unlock()
}

// Endpoint returns the health URL being probed.
func (p *Probe) Endpoint() string {
	return p.endpoint
}
