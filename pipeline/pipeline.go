package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rushteam/cinesuggest/core"
	"github.com/rushteam/cinesuggest/pkg/logging"
)

// Pipeline 把推荐逻辑拆成可组合的 Node 链：Recall -> Filter -> ReRank。
type Pipeline struct {
	Name  string
	Nodes []Node
}

// Run 依次执行各节点。节点返回的 DomainError 原样透传，其他错误附带节点名。
func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			if core.GetDomainError(err) != nil {
				return nil, err
			}
			return nil, fmt.Errorf("node %s: %w", node.Name(), err)
		}
		logging.Debug().
			Str("pipeline", p.Name).
			Str("node", node.Name()).
			Str("kind", string(node.Kind())).
			Int("in", len(cur)).
			Int("out", len(next)).
			Dur("took", time.Since(start)).
			Msg("node done")
		cur = next
	}
	return cur, nil
}
