package filter

import (
	"context"

	"github.com/rushteam/cinesuggest/core"
	"github.com/rushteam/cinesuggest/pipeline"
	"github.com/rushteam/cinesuggest/pkg/logging"
)

// FilterNode 是过滤 Node，可以组合多个过滤器进行过滤。
// 如果任何一个过滤器返回 true，该物品就会被过滤掉。
type FilterNode struct {
	Filters []Filter
}

func (n *FilterNode) Name() string {
	return "filter.node"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	out := make([]*core.Item, 0, len(items))
	dropped := make(map[string]int)

	for _, item := range items {
		if item == nil {
			continue
		}

		reason := ""
		for _, f := range n.Filters {
			ok, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				// 过滤器错误时保留候选，不中断流程
				logging.Debug().Err(err).Str("filter", f.Name()).Int64("movie", item.ID).Msg("filter failed")
				continue
			}
			if ok {
				reason = f.Name()
				break
			}
		}

		if reason != "" {
			dropped[reason]++
			continue
		}
		out = append(out, item)
	}

	if len(dropped) > 0 {
		ev := logging.Debug().Int("kept", len(out))
		for name, cnt := range dropped {
			ev = ev.Int(name, cnt)
		}
		ev.Msg("candidates filtered")
	}
	return out, nil
}
