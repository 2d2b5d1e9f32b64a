package rerank

import (
	"context"

	"github.com/rushteam/cinesuggest/core"
	"github.com/rushteam/cinesuggest/pipeline"
)

// GenreLookup 返回电影的类型标签，由 catalog.Catalog 的 GetMovie 适配。
type GenreLookup func(id int64) []string

// Diversity 是按主类型限流的重排节点：同一主类型（第一个类型标签）最多保留 MaxPerGenre 个。
// 只删除候选，不改变相对顺序；应放在 TopNNode 之前，避免截断后结果不足。
type Diversity struct {
	Genres      GenreLookup
	MaxPerGenre int // 默认 3
}

func (n *Diversity) Name() string {
	return "rerank.diversity"
}

func (n *Diversity) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 || n.Genres == nil {
		return items, nil
	}

	limit := n.MaxPerGenre
	if limit <= 0 {
		limit = 3
	}

	seen := make(map[string]int, 32)
	out := make([]*core.Item, 0, len(items))

	for _, it := range items {
		if it == nil {
			continue
		}

		genres := n.Genres(it.ID)
		if len(genres) == 0 {
			out = append(out, it)
			continue
		}
		if seen[genres[0]] >= limit {
			continue
		}
		seen[genres[0]]++
		out = append(out, it)
	}

	return out, nil
}
