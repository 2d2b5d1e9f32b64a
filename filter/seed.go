package filter

import (
	"context"

	"github.com/rushteam/cinesuggest/core"
)

// SeedFilter 过滤掉本次请求的种子电影，以及与种子同名的电影。
type SeedFilter struct{}

func (SeedFilter) Name() string {
	return "filter.seed"
}

func (SeedFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	return rctx.IsSeed(item.ID) || rctx.IsSeedTitle(item.Title), nil
}
