package gateway

import (
	"context"

	"app-host/core/pool"
)

// Slot is a reserved request slot on one instance.
type Slot interface {
	Addr() string
	Release()
}

// Backend hands out instance slots for script handlers.
type Backend interface {
	Acquire(ctx context.Context) (Slot, error)
}

type poolBackend struct {
	pool *pool.Pool
}

// FromPool adapts an instance pool to Backend.
func FromPool(p *pool.Pool) Backend {
	return poolBackend{pool: p}
}

func (b poolBackend) Acquire(ctx context.Context) (Slot, error) {
	lease, err := b.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return lease, nil
}
