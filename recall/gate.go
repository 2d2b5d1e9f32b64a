package recall

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rushteam/cinesuggest/core"
	"github.com/rushteam/cinesuggest/pkg/logging"
)

// Gate 是"只构建一次"的闸门。
//
//   - 构建成功后结果被原子发布，之后的 Get 无锁返回
//   - 构建期间到达的调用方等待同一次构建，不会重复构建
//   - 构建失败不缓存，下一次 Get 重新构建；失败时不发布任何半成品
//   - 构建使用脱离调用方取消的 context，调用方放弃等待不会中断共享构建
type Gate[T any] struct {
	name    string
	timeout time.Duration
	build   func(ctx context.Context) (T, error)

	sf  singleflight.Group
	val atomic.Pointer[T]
}

// NewGate 创建闸门。timeout <= 0 表示构建不设超时。
func NewGate[T any](name string, timeout time.Duration, build func(ctx context.Context) (T, error)) *Gate[T] {
	return &Gate[T]{name: name, timeout: timeout, build: build}
}

// Ready 返回构建是否已完成。
func (g *Gate[T]) Ready() bool {
	return g.val.Load() != nil
}

// Get 返回构建结果，必要时触发构建。
func (g *Gate[T]) Get(ctx context.Context) (T, error) {
	if v := g.val.Load(); v != nil {
		return *v, nil
	}

	ch := g.sf.DoChan(g.name, func() (any, error) {
		if v := g.val.Load(); v != nil {
			return v, nil
		}
		return g.run(ctx)
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, core.WrapDomainError(core.ModuleRecall, core.ErrorCodeUnavailable,
			"recall: "+g.name+" not ready", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return *res.Val.(*T), nil
	}
}

func (g *Gate[T]) run(ctx context.Context) (*T, error) {
	bctx := context.WithoutCancel(ctx)
	if g.timeout > 0 {
		var cancel context.CancelFunc
		bctx, cancel = context.WithTimeout(bctx, g.timeout)
		defer cancel()
	}

	log := logging.With("recall")
	start := time.Now()
	log.Info().Str("engine", g.name).Msg("build started")

	v, err := g.build(bctx)
	if err != nil {
		log.Error().Err(err).Str("engine", g.name).Dur("took", time.Since(start)).Msg("build failed")
		if core.GetDomainError(err) == nil {
			err = core.WrapDomainError(core.ModuleRecall, core.ErrorCodeUnavailable, "recall: build "+g.name, err)
		}
		return nil, err
	}

	p := &v
	g.val.Store(p)
	log.Info().Str("engine", g.name).Dur("took", time.Since(start)).Msg("build finished")
	return p, nil
}
