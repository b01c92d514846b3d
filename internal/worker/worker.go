package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ErrStopped = errors.New("worker pool stopped")

var jobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "worker_jobs_total",
	Help: "Jobs processed by pool and outcome (ok, error)",
}, []string{"pool", "outcome"})

type ProcessFunc[T any] func(ctx context.Context, job T) error

// Pool runs jobs of one type on a fixed number of goroutines. Jobs queued
// before Stop are still processed unless the Start context is cancelled.
type Pool[T any] struct {
	name       string
	numWorkers int
	jobs       chan T
	processor  ProcessFunc[T]
	wg         sync.WaitGroup

	mu       sync.RWMutex
	stopped  bool
	quit     chan struct{}
	stopOnce sync.Once
}

func NewPool[T any](name string, numWorkers int, bufferSize int, processor ProcessFunc[T]) *Pool[T] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Pool[T]{
		name:       name,
		numWorkers: numWorkers,
		jobs:       make(chan T, bufferSize),
		processor:  processor,
		quit:       make(chan struct{}),
	}
}

func (p *Pool[T]) Start(ctx context.Context) {
	for i := 1; i <= p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

func (p *Pool[T]) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			if err := p.processor(ctx, job); err != nil {
				jobsProcessed.WithLabelValues(p.name, "error").Inc()
				slog.Error("job failed", "pool", p.name, "worker", id, "error", err)
				continue
			}
			jobsProcessed.WithLabelValues(p.name, "ok").Inc()
		}
	}
}

// Submit queues job, waiting for buffer space until ctx is done or the pool
// stops.
func (p *Pool[T]) Submit(ctx context.Context, job T) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrStopped
	}

	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.quit:
		return ErrStopped
	}
}

// Stop rejects further jobs and waits for the workers to exit.
func (p *Pool[T]) Stop() {
	p.stopOnce.Do(func() {
		close(p.quit)

		p.mu.Lock()
		p.stopped = true
		close(p.jobs)
		p.mu.Unlock()
	})
	p.wg.Wait()
}
