package recall

import (
	"fmt"

	"github.com/rushteam/cinesuggest/catalog"
	"github.com/rushteam/cinesuggest/core"
	"github.com/rushteam/cinesuggest/pkg/utils"
)

// 解释用的 Label key
const (
	LabelRecallSource  = "recall_source"
	LabelColdStart     = "cold_start"
	LabelAmbiguousSeed = "ambiguous_seed"
)

// emit 为目录中的每部电影生成候选，分数取自 totals（按 position）。
// 所有候选分配在同一个切片上。
func emit(cat *catalog.Catalog, totals []float64) []*core.Item {
	n := cat.Len()
	buf := make([]core.Item, n)
	out := make([]*core.Item, n)
	for pos := range n {
		m := cat.MovieAt(pos)
		buf[pos] = core.Item{ID: m.ID, Title: m.Title, Score: totals[pos]}
		out[pos] = &buf[pos]
	}
	return out
}

// seedPosition 返回种子在目录中的位置，未知种子返回 UNKNOWN_TITLE。
func seedPosition(cat *catalog.Catalog, seed int64) (int, error) {
	pos, ok := cat.Position(seed)
	if !ok {
		return 0, core.NewDomainError(core.ModuleRecall, core.ErrorCodeUnknownTitle,
			fmt.Sprintf("recall: unknown movie %d", seed))
	}
	return pos, nil
}

func checkSeeds(rctx *core.RecommendContext) error {
	if rctx == nil || len(rctx.Seeds) == 0 {
		return core.NewInsufficientSeedsError(0, 1)
	}
	return nil
}

func markSource(rctx *core.RecommendContext, source string) {
	rctx.PutLabel(LabelRecallSource, utils.Label{Value: source, Source: "recall"})
}
