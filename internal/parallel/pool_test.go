package parallel_test

import (
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/ncradle/GuiTimeoutSample/internal/parallel"
	"github.com/stretchr/testify/require"
)

func TestPool(t *testing.T) {
	t.Parallel()

	type given struct {
		workers int
		tasks   int
	}
	var testCases = []struct {
		scenario string
		given    given
		then     time.Duration
	}{
		{"one worker", given{1, 4}, 4 * time.Second},
		{"two workers", given{2, 4}, 2 * time.Second},
		{"enough workers", given{8, 4}, 1 * time.Second},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			synctest.Test(t, func(t *testing.T) {
				pool := parallel.NewPool(tt.given.workers, tt.given.tasks)
				var done atomic.Int32
				start := time.Now()
				for range tt.given.tasks {
					err := pool.Submit(func() {
						time.Sleep(time.Second)
						done.Add(1)
					})
					require.NoError(t, err)
				}
				require.NoError(t, pool.Close())
				require.Equal(t, int32(tt.given.tasks), done.Load())
				require.Equal(t, tt.then, time.Since(start))
			})
		})
	}
}

func TestPoolFull(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		pool := parallel.NewPool(1, 1)
		block := make(chan struct{})
		require.NoError(t, pool.Submit(func() { <-block }))
		synctest.Wait() // the worker took the first task
		require.NoError(t, pool.Submit(func() {}))
		require.ErrorIs(t, pool.Submit(func() {}), parallel.ErrPoolFull)
		close(block)
		require.NoError(t, pool.Close())
	})
}

func TestPoolClosed(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		pool := parallel.NewPool(2, 2)
		require.NoError(t, pool.Close())
		require.NoError(t, pool.Close())
		require.ErrorIs(t, pool.Submit(func() {}), parallel.ErrPoolClosed)
	})
}

func TestPoolPanic(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		pool := parallel.NewPool(1, 2)
		var ran atomic.Bool
		require.NoError(t, pool.Submit(func() { panic("boom") }))
		require.NoError(t, pool.Submit(func() { ran.Store(true) }))
		require.NoError(t, pool.Close())
		require.True(t, ran.Load(), "worker must survive a panicking task")
	})
}

func TestPoolSubmitFromTask(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		pool := parallel.NewPool(1, 1)
		chained := make(chan struct{})
		require.NoError(t, pool.Submit(func() {
			err := pool.Submit(func() { close(chained) })
			require.NoError(t, err)
		}))
		<-chained
		require.NoError(t, pool.Close())
	})
}
