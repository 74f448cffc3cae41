package scaling

import (
	"context"
	"sync"
	"time"

	"app-host/core/metrics"
	"app-host/core/pool"

	"go.uber.org/zap"
)

// Target is the pool the autoscaler drives.
type Target interface {
	Stats() pool.Stats
	Resize(ctx context.Context, n int) error
}

// Autoscaler periodically applies the policy to a pool.
type Autoscaler struct {
	target   Target
	interval time.Duration
	cooldown time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu     sync.Mutex
	policy Policy
	lastUp time.Time
	last   Decision
}

// NewAutoscaler creates an autoscaler for target.
func NewAutoscaler(target Target, policy Policy, cfg Config, l *zap.Logger) *Autoscaler {
	return &Autoscaler{
		target:   target,
		policy:   policy,
		interval: cfg.Interval(),
		cooldown: cfg.Cooldown(),
		logger:   l,
		now:      time.Now,
	}
}

// SetPolicy replaces the policy, e.g. after a descriptor reload.
func (a *Autoscaler) SetPolicy(p Policy) {
	a.mu.Lock()
	a.policy = p
	a.mu.Unlock()
}

// Policy returns the active policy.
func (a *Autoscaler) Policy() Policy {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.policy
}

// Last returns the most recent decision.
func (a *Autoscaler) Last() Decision {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// Step evaluates the policy once and resizes the pool when the decision changes it.
func (a *Autoscaler) Step(ctx context.Context) Decision {
	decision := a.decide()
	if decision.Changed() {
		a.apply(ctx, decision)
	}
	return decision
}

// observe refreshes the pool gauges.
func (a *Autoscaler) observe() pool.Stats {
	stats := a.target.Stats()
	metrics.SetPool(stats.Ready, stats.Instances-stats.Ready, stats.Pending, stats.Utilization())
	return stats
}

func (a *Autoscaler) decide() Decision {
	stats := a.observe()

	a.mu.Lock()
	decision := a.policy.Decide(stats)
	if decision.Desired < decision.Current && decision.Reason == ReasonIdle && a.now().Sub(a.lastUp) < a.cooldown {
		decision = Decision{Current: decision.Current, Desired: decision.Current}
	}
	if decision.Desired > decision.Current {
		a.lastUp = a.now()
	}
	a.last = decision
	a.mu.Unlock()

	if decision.Changed() {
		a.logger.Info("Scaling instances",
			zap.Int("from", decision.Current),
			zap.Int("to", decision.Desired),
			zap.String("reason", decision.Reason),
			zap.Int("in_flight", stats.InFlight),
			zap.Int("pending", stats.Pending),
			zap.Duration("oldest_pending", stats.OldestPending),
		)
		metrics.RecordScale(decision.Current, decision.Desired, decision.Reason)
	}
	return decision
}

func (a *Autoscaler) apply(ctx context.Context, decision Decision) {
	if err := a.target.Resize(ctx, decision.Desired); err != nil {
		a.logger.Error("Resize failed", zap.Error(err))
	}
}

// Run evaluates the policy every interval until ctx is done.
// Resizes run in the background; while one is in progress the loop only refreshes metrics.
func (a *Autoscaler) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()
	resized := make(chan struct{}, 1)
	resizing := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-resized:
			resizing = false
		case <-ticker.C:
			if resizing {
				a.observe()
				continue
			}
			decision := a.decide()
			if !decision.Changed() {
				continue
			}
			resizing = true
			wg.Add(1)
			go func() {
				defer wg.Done()
				a.apply(ctx, decision)
				resized <- struct{}{}
			}()
		}
	}
}
