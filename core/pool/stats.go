package pool

import (
	"sort"
	"time"
)

// InstanceStats describes one instance.
type InstanceStats struct {
	Port     int       `json:"port"`
	Ready    bool      `json:"ready"`
	Stopping bool      `json:"stopping"`
	InFlight int       `json:"in_flight"`
	Served   uint64    `json:"served"`
	LastUsed time.Time `json:"last_used"`
}

// Stats is a snapshot of pool load, the input to scaling decisions.
type Stats struct {
	Target        int             `json:"target"`
	Instances     int             `json:"instances"`
	Ready         int             `json:"ready"`
	Idle          int             `json:"idle"`
	InFlight      int             `json:"in_flight"`
	MaxConcurrent int             `json:"max_concurrent"`
	Pending       int             `json:"pending"`
	OldestPending time.Duration   `json:"oldest_pending"`
	PerInstance   []InstanceStats `json:"per_instance"`
}

// Stats returns a snapshot of the pool.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		Target:        p.target,
		MaxConcurrent: p.maxConcurrent,
		Pending:       len(p.waiters),
		PerInstance:   make([]InstanceStats, 0, len(p.members)),
	}
	if len(p.waiters) > 0 {
		s.OldestPending = time.Since(p.waiters[0].since)
	}

	for _, m := range p.members {
		s.PerInstance = append(s.PerInstance, InstanceStats{
			Port:     m.port,
			Ready:    m.ready,
			Stopping: m.stopping,
			InFlight: m.inFlight,
			Served:   m.served,
			LastUsed: m.lastUsed,
		})
		if m.stopping {
			continue
		}
		s.Instances++
		s.InFlight += m.inFlight
		if m.ready {
			s.Ready++
			if m.inFlight == 0 {
				s.Idle++
			}
		}
	}

	sort.Slice(s.PerInstance, func(i, j int) bool {
		return s.PerInstance[i].Port < s.PerInstance[j].Port
	})
	return s
}

// Utilization is in-flight requests over ready capacity, 0 when nothing is ready.
func (s Stats) Utilization() float64 {
	capacity := s.Ready * s.MaxConcurrent
	if capacity == 0 {
		return 0
	}
	return float64(s.InFlight) / float64(capacity)
}
