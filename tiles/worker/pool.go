// Package worker caps how many tile loads run at once, across frames.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrPoolClosed = errors.New("worker pool closed")

type Pool struct {
	workers chan struct{}
	timeout time.Duration
	quit    chan struct{}
	once    sync.Once
}

// NewPool creates a pool running at most maxWorkers tasks at a time. Each
// task is cancelled after timeout; zero means no limit.
func NewPool(maxWorkers int, timeout time.Duration) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Pool{
		workers: make(chan struct{}, maxWorkers),
		timeout: timeout,
		quit:    make(chan struct{}),
	}
}

// Do waits for a free worker and runs work. It returns early when ctx is
// done, the task times out or the pool shuts down; work sees the same
// cancellation through its context. A task that ignores its context keeps
// its worker until it returns.
func (p *Pool) Do(ctx context.Context, work func(ctx context.Context) error) error {
	select {
	case <-p.quit:
		return ErrPoolClosed
	default:
	}
	select {
	case <-p.quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	case p.workers <- struct{}{}:
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	// the slot is held until work returns, even when Do gave up on it
	done := make(chan error, 1)
	go func() {
		err := work(ctx)
		<-p.workers
		done <- err
	}()

	select {
	case <-p.quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// Busy is the number of tasks currently holding a worker.
func (p *Pool) Busy() int {
	return len(p.workers)
}

func (p *Pool) Shutdown() {
	p.once.Do(func() { close(p.quit) })
}
