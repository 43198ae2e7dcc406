package manager

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"agentcore/internal/faults"
)

// pool bounds concurrent work of one class (io: explicit loads and pulls;
// cpu: engine runs, including the reload a run may need).
type pool struct {
	name     string
	size     int
	sem      *semaphore.Weighted
	inflight atomic.Int64
}

func newPool(name string, size int) *pool {
	return &pool{name: name, size: size, sem: semaphore.NewWeighted(int64(size))}
}

// admit reserves a slot in p, waiting at most maxWait. Returns a release func
// to be deferred.
func (m *Manager) admit(ctx context.Context, p *pool) (func(), error) {
	// Fast path: respect an already-canceled context
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	wctx, cancel := context.WithTimeout(ctx, m.maxWait)
	defer cancel()
	if err := p.sem.Acquire(wctx, 1); err != nil {
		if ctx.Err() != nil {
			return func() {}, ctx.Err()
		}
		poolRejections.WithLabelValues(p.name).Inc()
		return func() {}, faults.TooBusy(p.name + " pool")
	}
	p.inflight.Add(1)
	poolInflight.WithLabelValues(p.name).Inc()
	return func() {
		p.inflight.Add(-1)
		poolInflight.WithLabelValues(p.name).Dec()
		p.sem.Release(1)
	}, nil
}
