package scaling

import (
	"math"
	"time"

	"app-host/core/descriptor"
	"app-host/core/pool"
)

// Platform defaults used when the descriptor leaves a value unset.
const (
	DefaultTargetUtilization = 0.6
	DefaultMinPendingLatency = 30 * time.Millisecond
)

// Reasons reported by Decide.
const (
	ReasonNone        = ""
	ReasonUtilization = "utilization"
	ReasonPending     = "pending_latency"
	ReasonMaxPending  = "max_pending_latency"
	ReasonIdle        = "idle"
	ReasonMinIdle     = "min_idle"
	ReasonBounds      = "bounds"
)

// Config holds the local autoscaler settings.
type Config struct {
	// IntervalMillis is the evaluation period.
	IntervalMillis int `mapstructure:"interval_ms" default:"1000"`
	// MaxInstances caps the pool when the descriptor does not set max_instances.
	MaxInstances int `mapstructure:"max_instances" default:"4"`
	// CooldownSeconds holds scale-downs after a scale-up.
	CooldownSeconds int `mapstructure:"cooldown_seconds" default:"30"`
}

// Interval returns the evaluation period.
func (c Config) Interval() time.Duration {
	if c.IntervalMillis <= 0 {
		return time.Second
	}
	return time.Duration(c.IntervalMillis) * time.Millisecond
}

// Cooldown returns the scale-down hold time.
func (c Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// Policy is the resolved scaling policy.
type Policy struct {
	MinInstances      int           `json:"min_instances"`
	MaxInstances      int           `json:"max_instances"`
	MinIdle           int           `json:"min_idle_instances"`
	MaxIdle           int           `json:"max_idle_instances"`
	TargetUtilization float64       `json:"target_utilization"`
	MinPendingLatency time.Duration `json:"min_pending_latency"`
	MaxPendingLatency time.Duration `json:"max_pending_latency"`
	MaxConcurrent     int           `json:"max_concurrent_requests"`
}

// PolicyFrom resolves descriptor values against platform defaults and local caps.
// At least one instance is kept when the descriptor routes requests to the application.
func PolicyFrom(d *descriptor.Descriptor, cfg Config) Policy {
	s := d.AutomaticScaling

	p := Policy{
		MinInstances:      s.MinInstances,
		MaxInstances:      s.MaxInstances,
		MinIdle:           s.MinIdleInstances,
		MaxIdle:           s.MaxIdleInstances,
		TargetUtilization: s.TargetCPUUtilization,
		MinPendingLatency: s.MinPendingLatency.Std(),
		MaxPendingLatency: s.MaxPendingLatency.Std(),
		MaxConcurrent:     s.MaxConcurrentRequests,
	}

	if p.TargetUtilization <= 0 {
		p.TargetUtilization = DefaultTargetUtilization
	}
	if p.MinPendingLatency <= 0 {
		p.MinPendingLatency = DefaultMinPendingLatency
	}
	if p.MaxConcurrent <= 0 {
		p.MaxConcurrent = descriptor.DefaultConcurrentRequests
	}
	if p.MaxInstances <= 0 || (cfg.MaxInstances > 0 && p.MaxInstances > cfg.MaxInstances) {
		p.MaxInstances = cfg.MaxInstances
	}
	if p.MaxInstances <= 0 {
		p.MaxInstances = 1
	}
	if d.HasScriptHandler() && p.MinInstances < 1 {
		p.MinInstances = 1
	}
	if !d.HasScriptHandler() {
		p.MinInstances = 0
		p.MaxInstances = 0
	}
	if p.MinInstances > p.MaxInstances {
		p.MinInstances = p.MaxInstances
	}
	if p.MaxIdle <= 0 {
		p.MaxIdle = p.MaxInstances
	}

	return p
}

// Decision is the outcome of one evaluation.
type Decision struct {
	Current int    `json:"current"`
	Desired int    `json:"desired"`
	Reason  string `json:"reason"`
}

// Changed reports whether the decision resizes the pool.
func (d Decision) Changed() bool {
	return d.Desired != d.Current
}

// Decide computes the desired instance count for a pool snapshot.
func (p Policy) Decide(s pool.Stats) Decision {
	current := s.Instances
	desired := current
	reason := ReasonNone

	grow := func(n int, why string) {
		if n > desired {
			desired = n
			reason = why
		}
	}

	if s.Ready > 0 && s.Utilization() > p.TargetUtilization {
		need := int(math.Ceil(float64(s.InFlight) / (float64(p.MaxConcurrent) * p.TargetUtilization)))
		grow(need, ReasonUtilization)
	}

	if s.Pending > 0 && s.OldestPending >= p.MinPendingLatency {
		grow(current+1, ReasonPending)
	}

	if p.MaxPendingLatency > 0 && s.Pending > 0 && s.OldestPending >= p.MaxPendingLatency {
		extra := int(math.Ceil(float64(s.Pending) / float64(p.MaxConcurrent)))
		grow(current+extra, ReasonMaxPending)
	}

	if desired == current && s.Pending == 0 {
		switch {
		case s.Idle > p.MaxIdle:
			desired = current - (s.Idle - p.MaxIdle)
			reason = ReasonIdle
		case s.Idle < p.MinIdle && s.Instances == s.Ready:
			desired = current + (p.MinIdle - s.Idle)
			reason = ReasonMinIdle
		}
	}

	if desired < p.MinInstances {
		desired = p.MinInstances
		reason = ReasonBounds
	}
	if desired > p.MaxInstances {
		desired = p.MaxInstances
		if desired < current {
			reason = ReasonBounds
		}
	}
	if desired == current {
		reason = ReasonNone
	}

	return Decision{Current: current, Desired: desired, Reason: reason}
}
