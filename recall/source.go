package recall

import (
	"context"

	"github.com/rushteam/cinesuggest/core"
	"github.com/rushteam/cinesuggest/pipeline"
)

// Source 表示一个召回源（内容 / 协同过滤）。
// Recall 为目录中的每一部电影产出一个候选，分数是各种子分数之和。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}

// Engine 是需要一次性构建索引/模型的召回源。
// Build 幂等；并发调用共享同一次构建，失败不缓存。
type Engine interface {
	Source
	Build(ctx context.Context) error
	Ready() bool
}

// SeedScorer 给出单个种子对目录中每个 position 的分数。
type SeedScorer interface {
	SeedScores(ctx context.Context, seed int64) ([]float64, error)
}

// Node 把召回源包装成 Pipeline 的 Recall 节点。
type Node struct {
	Source Source
}

func (n *Node) Name() string        { return n.Source.Name() }
func (n *Node) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Node) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return n.Source.Recall(ctx, rctx)
}
