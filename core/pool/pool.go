package pool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrClosed is returned by Acquire after Close.
	ErrClosed = errors.New("instance pool is closed")
	// ErrNoCapacity is returned when the wait for a free slot ends without one.
	ErrNoCapacity = errors.New("no instance capacity available")
)

// Instance is the process handle the pool manages; *supervisor.Instance satisfies it.
type Instance interface {
	Start(ctx context.Context) error
	Stop() error
	Done() <-chan struct{}
	Addr() string
	Port() int
}

// Factory creates an unstarted instance bound to port.
type Factory func(port int) Instance

type member struct {
	inst     Instance
	port     int
	ready    bool
	stopping bool
	inFlight int
	served   uint64
	lastUsed time.Time
}

// waiter is a queued Acquire. granted is set before ch closes; nil means the pool closed.
type waiter struct {
	since   time.Time
	ch      chan struct{}
	granted *member
}

// Pool is a set of instances with per-instance concurrency limits.
type Pool struct {
	factory      Factory
	basePort     int
	restartDelay time.Duration
	logger       *zap.Logger

	mu            sync.Mutex
	members       []*member
	waiters       []*waiter
	target        int
	maxConcurrent int
	closed        bool
	wg            sync.WaitGroup
}

// New creates an empty pool. Call Resize to start instances.
func New(cfg Config, maxConcurrent int, factory Factory, l *zap.Logger) *Pool {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Pool{
		factory:       factory,
		basePort:      cfg.BasePort,
		restartDelay:  cfg.RestartDelay(),
		logger:        l,
		maxConcurrent: maxConcurrent,
	}
}

// SetMaxConcurrent changes the per-instance request cap and wakes waiters that now fit.
func (p *Pool) SetMaxConcurrent(n int) {
	if n <= 0 {
		n = 1
	}
	p.mu.Lock()
	p.maxConcurrent = n
	p.grantLocked()
	p.mu.Unlock()
}

// Lease is a request slot on one instance.
type Lease struct {
	pool   *Pool
	member *member
	once   sync.Once
}

// Addr is the instance address to proxy to.
func (l *Lease) Addr() string {
	return l.member.inst.Addr()
}

// Port is the instance port.
func (l *Lease) Port() int {
	return l.member.port
}

// Release returns the slot. It is safe to call more than once.
func (l *Lease) Release() {
	l.once.Do(func() {
		p := l.pool
		p.mu.Lock()
		l.member.inFlight--
		l.member.lastUsed = time.Now()
		p.grantLocked()
		p.mu.Unlock()
	})
}

// Acquire takes a slot on the least loaded ready instance, waiting while all are full.
// Waiters are served in arrival order: freed slots are handed to the head of the queue and
// a new caller never takes a slot while others are queued.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	if len(p.waiters) == 0 {
		if m := p.pickLocked(); m != nil {
			p.takeLocked(m)
			p.mu.Unlock()
			return &Lease{pool: p, member: m}, nil
		}
	}

	w := &waiter{since: time.Now(), ch: make(chan struct{})}
	p.waiters = append(p.waiters, w)
	p.mu.Unlock()

	select {
	case <-w.ch:
		if w.granted == nil {
			return nil, ErrClosed
		}
		return &Lease{pool: p, member: w.granted}, nil
	case <-ctx.Done():
		p.mu.Lock()
		if !p.removeWaiterLocked(w) && w.granted != nil {
			// Granted while giving up: pass the slot on.
			w.granted.inFlight--
			p.grantLocked()
		}
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrNoCapacity, ctx.Err())
	}
}

func (p *Pool) pickLocked() *member {
	var best *member
	for _, m := range p.members {
		if !m.ready || m.stopping || m.inFlight >= p.maxConcurrent {
			continue
		}
		if best == nil || m.inFlight < best.inFlight {
			best = m
		}
	}
	return best
}

func (p *Pool) takeLocked(m *member) {
	m.inFlight++
	m.served++
	m.lastUsed = time.Now()
}

// grantLocked hands free slots to queued waiters in FIFO order.
func (p *Pool) grantLocked() {
	for len(p.waiters) > 0 {
		m := p.pickLocked()
		if m == nil {
			return
		}
		w := p.waiters[0]
		p.waiters = p.waiters[1:]
		p.takeLocked(m)
		w.granted = m
		close(w.ch)
	}
}

// removeWaiterLocked drops w from the queue. It reports false when w had already left it.
func (p *Pool) removeWaiterLocked(w *waiter) bool {
	for i, other := range p.waiters {
		if other == w {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// Target returns the desired instance count.
func (p *Pool) Target() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.target
}

// Resize moves the pool toward n instances. Growth waits for the new instances to start;
// shrinking stops idle instances only.
func (p *Pool) Resize(ctx context.Context, n int) error {
	if n < 0 {
		n = 0
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.target = n
	current := p.activeLocked()

	var starting []*member
	var stopping []*member

	switch {
	case n > current:
		for i := 0; i < n-current; i++ {
			starting = append(starting, p.addMemberLocked())
		}
	case n < current:
		stopping = p.pickIdleLocked(current - n)
		for _, m := range stopping {
			m.stopping = true
		}
	}
	p.mu.Unlock()

	for _, m := range stopping {
		p.stopMember(m)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, m := range starting {
		g.Go(func() error {
			return p.startMember(gctx, m)
		})
	}
	return g.Wait()
}

func (p *Pool) activeLocked() int {
	n := 0
	for _, m := range p.members {
		if !m.stopping {
			n++
		}
	}
	return n
}

func (p *Pool) addMemberLocked() *member {
	used := make(map[int]bool, len(p.members))
	for _, m := range p.members {
		used[m.port] = true
	}
	port := p.basePort
	for used[port] {
		port++
	}

	m := &member{port: port, inst: p.factory(port)}
	p.members = append(p.members, m)
	return m
}

// pickIdleLocked chooses up to n idle members, least recently used first.
func (p *Pool) pickIdleLocked(n int) []*member {
	var idle []*member
	for _, m := range p.members {
		if !m.stopping && m.inFlight == 0 {
			idle = append(idle, m)
		}
	}
	sort.Slice(idle, func(i, j int) bool {
		// Unready instances go first: stopping them costs nothing.
		if idle[i].ready != idle[j].ready {
			return !idle[i].ready
		}
		return idle[i].lastUsed.Before(idle[j].lastUsed)
	})
	if len(idle) > n {
		idle = idle[:n]
	}
	return idle
}

func (p *Pool) startMember(ctx context.Context, m *member) error {
	if err := m.inst.Start(ctx); err != nil {
		p.mu.Lock()
		p.removeMemberLocked(m)
		p.mu.Unlock()
		p.logger.Error("Instance failed to start", zap.Int("port", m.port), zap.Error(err))
		return fmt.Errorf("instance on port %d: %w", m.port, err)
	}

	p.mu.Lock()
	if m.stopping || p.closed {
		p.mu.Unlock()
		return nil
	}
	m.ready = true
	m.lastUsed = time.Now()
	p.grantLocked()
	p.wg.Add(1)
	p.mu.Unlock()

	go p.watch(m)
	return nil
}

// watch removes m when its process exits and schedules a replacement if the pool is short.
func (p *Pool) watch(m *member) {
	defer p.wg.Done()
	<-m.inst.Done()

	p.mu.Lock()
	if m.stopping || p.closed {
		p.mu.Unlock()
		return
	}
	p.removeMemberLocked(m)
	short := p.activeLocked() < p.target
	p.mu.Unlock()

	p.logger.Warn("Instance exited unexpectedly", zap.Int("port", m.port), zap.Bool("replacing", short))
	if !short {
		return
	}

	time.Sleep(p.restartDelay)

	p.mu.Lock()
	if p.closed || p.activeLocked() >= p.target {
		p.mu.Unlock()
		return
	}
	replacement := p.addMemberLocked()
	p.mu.Unlock()

	if err := p.startMember(context.Background(), replacement); err != nil {
		p.logger.Error("Failed to replace instance", zap.Error(err))
	}
}

func (p *Pool) stopMember(m *member) {
	if err := m.inst.Stop(); err != nil {
		p.logger.Warn("Instance did not stop cleanly", zap.Int("port", m.port), zap.Error(err))
	}
	p.mu.Lock()
	p.removeMemberLocked(m)
	p.mu.Unlock()
}

func (p *Pool) removeMemberLocked(m *member) {
	for i, other := range p.members {
		if other == m {
			p.members = append(p.members[:i], p.members[i+1:]...)
			return
		}
	}
}

// Close stops every instance and fails pending and future Acquire calls.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.target = 0
	for _, w := range p.waiters {
		close(w.ch)
	}
	p.waiters = nil
	members := append([]*member(nil), p.members...)
	for _, m := range members {
		m.stopping = true
	}
	p.mu.Unlock()

	var errs []error
	var wg sync.WaitGroup
	var errMu sync.Mutex
	for _, m := range members {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.inst.Stop(); err != nil {
				errMu.Lock()
				errs = append(errs, fmt.Errorf("port %d: %w", m.port, err))
				errMu.Unlock()
			}
		}()
	}
	wg.Wait()
	p.wg.Wait()

	p.mu.Lock()
	p.members = nil
	p.mu.Unlock()

	return errors.Join(errs...)
}
