package recall

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/cinesuggest/catalog/catalogtest"
	"github.com/rushteam/cinesuggest/core"
)

func testItemCFConfig() ItemCFConfig {
	cfg := DefaultItemCFConfig()
	cfg.MinSupport = 3
	return cfg
}

func TestItemCF_SeedScores(t *testing.T) {
	cat := catalogtest.Load(t)
	e := NewItemCFEngine(cat, testItemCFConfig(), nil)

	scores, err := e.SeedScores(context.Background(), catalogtest.Alpha)
	require.NoError(t, err)

	pos := func(id int64) int {
		p, ok := cat.Position(id)
		require.True(t, ok)
		return p
	}
	// 喜欢 Alpha 的三个用户都喜欢 Bravo，没有人同时喜欢动作片
	assert.InDelta(t, 1, scores[pos(catalogtest.Bravo)], 1e-9)
	assert.Zero(t, scores[pos(catalogtest.Charlie)])
	assert.Zero(t, scores[pos(catalogtest.Delta)])
}

func TestItemCF_ColdStartFallback(t *testing.T) {
	cat := catalogtest.Load(t)
	content := NewContentEngine(cat, DefaultContentConfig())
	e := NewItemCFEngine(cat, testItemCFConfig(), content)

	// Golf 没有任何评分，回退到内容相似度
	rctx := &core.RecommendContext{
		Seeds: []int64{catalogtest.Alpha, catalogtest.Charlie, catalogtest.Golf},
	}
	items, err := e.Recall(context.Background(), rctx)
	require.NoError(t, err)

	scores := scoresByID(items)
	assert.InDelta(t, 2, scores[catalogtest.Bravo], 1e-9)
	assert.InDelta(t, 1, scores[catalogtest.Delta], 1e-9)
	assert.InDelta(t, 1, scores[catalogtest.Echo], 1e-9)

	lbl, ok := rctx.GetLabel(LabelColdStart)
	require.True(t, ok)
	assert.Equal(t, "7", lbl.Value)

	src, ok := rctx.GetLabel(LabelRecallSource)
	require.True(t, ok)
	assert.Equal(t, "item_cf", src.Value)
}

func TestItemCF_InsufficientSupport(t *testing.T) {
	movies := "movieId,title,genres\n1,Lonely (2000),(no genres listed)\n2,Other (2001),Drama\n"
	ratings := "userId,movieId,rating,timestamp\n1,2,5.0,1\n"
	cat := catalogtest.LoadCSV(t, movies, ratings)

	content := NewContentEngine(cat, DefaultContentConfig())
	e := NewItemCFEngine(cat, testItemCFConfig(), content)

	// 唯一的种子既没有评分也没有特征
	_, err := e.Recall(context.Background(), &core.RecommendContext{Seeds: []int64{1}})
	require.Error(t, err)
	assert.True(t, core.IsInsufficientSupport(err))

	// 没有回退引擎时直接失败
	_, err = NewItemCFEngine(cat, testItemCFConfig(), nil).Recall(context.Background(), &core.RecommendContext{Seeds: []int64{2}})
	assert.True(t, core.IsInsufficientSupport(err))

	// 回退成功的种子可以弥补失败的种子
	items, err := e.Recall(context.Background(), &core.RecommendContext{Seeds: []int64{1, 2}})
	require.NoError(t, err)
	assert.InDelta(t, 1, scoresByID(items)[2], 1e-9)
}

func TestItemCF_UnknownSeed(t *testing.T) {
	e := NewItemCFEngine(catalogtest.Load(t), testItemCFConfig(), nil)

	_, err := e.Recall(context.Background(), &core.RecommendContext{Seeds: []int64{catalogtest.Alpha, 999}})
	assert.True(t, core.IsUnknownTitle(err))
}
