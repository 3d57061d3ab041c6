package workerpool_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/shashiranjanraj/faultline/pkg/workerpool"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// submit retries Submit while the queue is full.
func submit(t *testing.T, pool *workerpool.Pool, task func()) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		err := pool.Submit(task)
		if !errors.Is(err, workerpool.ErrPoolFull) || time.Now().After(deadline) {
			require.NoError(t, err)
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPool_SubmitAndExecute(t *testing.T) {
	pool := workerpool.New(4)
	defer pool.Shutdown()

	const n = 100
	var count atomic.Int64

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		submit(t, pool, func() {
			defer wg.Done()
			count.Add(1)
		})
	}
	wg.Wait()

	assert.EqualValues(t, n, count.Load())
}

func TestPool_ErrPoolFull(t *testing.T) {
	pool := workerpool.New(1)
	defer pool.Shutdown()

	blocker := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.Submit(func() {
		close(started)
		<-blocker
	}))
	<-started

	// Queue holds 2× the worker count.
	require.NoError(t, pool.Submit(func() {}))
	require.NoError(t, pool.Submit(func() {}))

	assert.ErrorIs(t, pool.Submit(func() {}), workerpool.ErrPoolFull)
	close(blocker)
}

func TestPool_ErrPoolClosed(t *testing.T) {
	pool := workerpool.New(2)
	pool.Shutdown()

	assert.ErrorIs(t, pool.Submit(func() {}), workerpool.ErrPoolClosed)
	_, err := pool.Go(context.Background(), "late", func(context.Context, func(int)) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, workerpool.ErrPoolClosed)
}

func TestPool_PanicRecovery(t *testing.T) {
	pool := workerpool.New(2)
	defer pool.Shutdown()

	var wg sync.WaitGroup
	wg.Add(1)
	submit(t, pool, func() {
		defer wg.Done()
		panic("recovered by the worker")
	})
	wg.Wait()

	normal := make(chan struct{})
	submit(t, pool, func() { close(normal) })

	select {
	case <-normal:
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not recover from panic")
	}
}

func TestPool_ConcurrentSubmitAndShutdown(t *testing.T) {
	pool := workerpool.New(2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				err := pool.Submit(func() {})
				if errors.Is(err, workerpool.ErrPoolClosed) {
					return
				}
			}
		}()
	}
	pool.Shutdown()
	wg.Wait()
}
