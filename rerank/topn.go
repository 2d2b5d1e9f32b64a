// Package rerank 提供排序聚合节点：去重、排除种子、稳定排序、截断。
package rerank

import (
	"cmp"
	"context"
	"slices"

	"github.com/rushteam/cinesuggest/core"
	"github.com/rushteam/cinesuggest/pipeline"
)

// TopNNode 是所有算法共享的排序聚合节点。
//
// 处理顺序：
//   - 按 ID 去重（保留最高分）
//   - 排除种子：ID 相同或标题与某个种子相同
//   - 按分数降序排序，分数相同时按 ID 升序
//   - 按标题去重（保留排名靠前的）
//   - 截取前 N 个
//
// 幸存的候选会带上请求级 Label（召回来源、冷启动等），用于解释。
//
// 示例：
//
//	pipeline := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &recall.Node{Source: engine},
//	        &filter.FilterNode{...},
//	        &rerank.TopNNode{N: 10},
//	    },
//	}
type TopNNode struct {
	// N 要保留的物品数量；N <= 0 时使用 rctx.TopN，两者都未设置时不截断
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	limit := n.N
	var (
		seeds      []int64
		seedTitles []string
	)
	if rctx != nil {
		seeds, seedTitles = rctx.Seeds, rctx.SeedTitles
		if limit <= 0 {
			limit = rctx.TopN
		}
	}

	out := Aggregate(items, seeds, seedTitles, limit)
	if rctx != nil && len(rctx.Labels) > 0 {
		for _, it := range out {
			for k, lbl := range rctx.Labels {
				it.PutLabel(k, lbl)
			}
		}
	}
	return out, nil
}

// Aggregate 对候选做去重、排除种子、排序和截断，不修改输入切片。
// titles 是种子的目录标题；输入中仍带着的种子候选的标题也会被排除。
// n <= 0 表示不截断。
func Aggregate(items []*core.Item, seeds []int64, titles []string, n int) []*core.Item {
	seedIDs := make(map[int64]struct{}, len(seeds))
	for _, s := range seeds {
		seedIDs[s] = struct{}{}
	}

	seedTitles := make(map[string]struct{}, len(seeds)+len(titles))
	for _, t := range titles {
		seedTitles[t] = struct{}{}
	}
	best := make(map[int64]*core.Item, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		if _, ok := seedIDs[it.ID]; ok {
			seedTitles[it.Title] = struct{}{}
			continue
		}
		if old, ok := best[it.ID]; !ok || it.Score > old.Score {
			best[it.ID] = it
		}
	}

	cands := make([]*core.Item, 0, len(best))
	for _, it := range best {
		if _, ok := seedTitles[it.Title]; ok && it.Title != "" {
			continue
		}
		cands = append(cands, it)
	}
	slices.SortFunc(cands, func(a, b *core.Item) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	out := cands[:0]
	seen := make(map[string]struct{}, len(cands))
	for _, it := range cands {
		if it.Title != "" {
			if _, dup := seen[it.Title]; dup {
				continue
			}
			seen[it.Title] = struct{}{}
		}
		out = append(out, it)
		if n > 0 && len(out) == n {
			break
		}
	}
	return out
}
