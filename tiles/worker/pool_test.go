package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_limitsConcurrency(t *testing.T) {
	p := NewPool(3, 0)
	defer p.Shutdown()

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := p.Do(context.Background(), func(ctx context.Context) error {
				n := running.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Equal(t, 0, p.Busy())
}

func TestPool_returnsWorkError(t *testing.T) {
	p := NewPool(1, 0)
	defer p.Shutdown()

	boom := errors.New("boom")
	err := p.Do(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestPool_timeout(t *testing.T) {
	p := NewPool(1, 20*time.Millisecond)
	defer p.Shutdown()

	start := time.Now()
	err := p.Do(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPool_contextCancelledWhileWaiting(t *testing.T) {
	p := NewPool(1, 0)
	defer p.Shutdown()

	release := make(chan struct{})
	started := make(chan struct{})
	go p.Do(context.Background(), func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started
	require.Equal(t, 1, p.Busy())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	ran := false
	err := p.Do(ctx, func(context.Context) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ran)
	close(release)
}

func TestPool_shutdown(t *testing.T) {
	p := NewPool(1, 0)
	block := make(chan struct{})
	defer close(block)

	errc := make(chan error, 1)
	started := make(chan struct{})
	go func() {
		errc <- p.Do(context.Background(), func(context.Context) error {
			close(started)
			<-block
			return nil
		})
	}()
	<-started
	p.Shutdown()
	p.Shutdown()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrPoolClosed)
	case <-time.After(time.Second):
		t.Fatal("running task not released by shutdown")
	}
	assert.ErrorIs(t, p.Do(context.Background(), func(context.Context) error { return nil }), ErrPoolClosed)
}

func TestPool_abandonedTaskKeepsWorker(t *testing.T) {
	p := NewPool(1, 10*time.Millisecond)
	defer p.Shutdown()

	release := make(chan struct{})
	err := p.Do(context.Background(), func(context.Context) error {
		<-release
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, p.Busy())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	var ran atomic.Bool
	err = p.Do(ctx, func(context.Context) error {
		ran.Store(true)
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ran.Load())

	close(release)
	assert.Eventually(t, func() bool { return p.Busy() == 0 }, time.Second, 5*time.Millisecond)
	assert.NoError(t, p.Do(context.Background(), func(context.Context) error { return nil }))
}
