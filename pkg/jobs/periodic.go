package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Periodic owns at most one recurring ticker. Starting it again replaces the previous loop.
type Periodic struct {
	name     string
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	live   int32
}

// NewPeriodic builds a periodic runner.
func NewPeriodic(name string, interval time.Duration, logger *zap.Logger) *Periodic {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Periodic{name: name, interval: interval, logger: logger}
}

// Start cancels any running loop and starts a new one invoking fn on every tick.
func (p *Periodic) Start(ctx context.Context, fn func(context.Context)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	atomic.AddInt32(&p.live, 1)
	go p.loop(loopCtx, fn)
	p.logger.Sugar().Debugw("periodic job started", "job", p.name, "interval", p.interval)
}

func (p *Periodic) loop(ctx context.Context, fn func(context.Context)) {
	defer atomic.AddInt32(&p.live, -1)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// Stop cancels the running loop, if any. It does not wait for an in-progress tick.
func (p *Periodic) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
		p.logger.Sugar().Debugw("periodic job stopped", "job", p.name)
	}
}

// Running reports whether a loop is scheduled.
func (p *Periodic) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Live returns the number of loop goroutines that have not exited yet.
func (p *Periodic) Live() int {
	return int(atomic.LoadInt32(&p.live))
}
