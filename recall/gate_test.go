package recall

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/cinesuggest/core"
)

func TestGate_ConcurrentCallersShareOneBuild(t *testing.T) {
	var builds atomic.Int32
	release := make(chan struct{})
	g := NewGate("test", 0, func(ctx context.Context) (int, error) {
		builds.Add(1)
		<-release
		return 42, nil
	})

	const callers = 16
	var wg sync.WaitGroup
	results := make([]int, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = g.Get(context.Background())
		}()
	}

	// 等待构建开始后再放行
	require.Eventually(t, func() bool { return builds.Load() == 1 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, 42, results[i])
	}
	assert.True(t, g.Ready())

	v, err := g.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, int32(1), builds.Load())
}

func TestGate_FailedBuildIsRetried(t *testing.T) {
	var builds atomic.Int32
	g := NewGate("test", 0, func(ctx context.Context) (string, error) {
		if builds.Add(1) == 1 {
			return "", errors.New("disk on fire")
		}
		return "ok", nil
	})

	_, err := g.Get(context.Background())
	require.Error(t, err)
	assert.True(t, core.IsUnavailable(err))
	assert.Contains(t, err.Error(), "disk on fire")
	assert.False(t, g.Ready())

	v, err := g.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, int32(2), builds.Load())
}

func TestGate_CallerCancelDoesNotAbortBuild(t *testing.T) {
	release := make(chan struct{})
	done := make(chan struct{})
	g := NewGate("test", 0, func(ctx context.Context) (int, error) {
		defer close(done)
		<-release
		return 7, ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Get(ctx)
	require.Error(t, err)
	assert.True(t, core.IsUnavailable(err))

	close(release)
	<-done
	require.Eventually(t, g.Ready, time.Second, time.Millisecond)

	v, err := g.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
