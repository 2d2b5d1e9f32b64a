package recall

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/cinesuggest/catalog/catalogtest"
	"github.com/rushteam/cinesuggest/core"
	"github.com/rushteam/cinesuggest/store"
)

func testMFConfig() MFConfig {
	cfg := DefaultMFConfig()
	cfg.Factors = 2
	cfg.Epochs = 300
	cfg.LearningRate = 0.05
	cfg.Regularization = 0.01
	cfg.MinSupport = 3
	return cfg
}

func TestMF_LearnsTasteGroups(t *testing.T) {
	cat := catalogtest.Load(t)
	e := NewMFEngine(cat, testMFConfig(), nil)

	scores, err := e.SeedScores(context.Background(), catalogtest.Alpha)
	require.NoError(t, err)

	pos := func(id int64) int {
		p, _ := cat.Position(id)
		return p
	}
	assert.Greater(t, scores[pos(catalogtest.Bravo)], scores[pos(catalogtest.Delta)])
	assert.Greater(t, scores[pos(catalogtest.Bravo)], scores[pos(catalogtest.Echo)])
	// 评分不足的候选不参与打分
	assert.Zero(t, scores[pos(catalogtest.Golf)])
	assert.Zero(t, scores[pos(catalogtest.Foxtrot)])
}

func TestMF_Deterministic(t *testing.T) {
	cat := catalogtest.Load(t)
	rctx := func() *core.RecommendContext {
		return &core.RecommendContext{Seeds: []int64{catalogtest.Alpha, catalogtest.Bravo, catalogtest.Charlie}}
	}

	a, err := NewMFEngine(cat, testMFConfig(), nil).Recall(context.Background(), rctx())
	require.NoError(t, err)
	b, err := NewMFEngine(cat, testMFConfig(), nil).Recall(context.Background(), rctx())
	require.NoError(t, err)

	assert.Equal(t, scoresByID(a), scoresByID(b))
}

func TestMF_ZeroRatingSeedFallsBack(t *testing.T) {
	cat := catalogtest.Load(t)
	content := NewContentEngine(cat, DefaultContentConfig())
	e := NewMFEngine(cat, testMFConfig(), content)

	rctx := &core.RecommendContext{Seeds: []int64{catalogtest.Golf, catalogtest.Alpha}}
	items, err := e.Recall(context.Background(), rctx)
	require.NoError(t, err)
	require.Len(t, items, cat.Len())

	lbl, ok := rctx.GetLabel(LabelColdStart)
	require.True(t, ok)
	assert.Equal(t, "7", lbl.Value)

	_, err = e.SeedScores(context.Background(), catalogtest.Golf)
	assert.True(t, core.IsInsufficientSupport(err))
}

func TestMF_Snapshot(t *testing.T) {
	ctx := context.Background()
	cat := catalogtest.Load(t)
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })

	first := NewMFEngine(cat, testMFConfig(), nil, WithSnapshotStore(s))
	require.NoError(t, first.Build(ctx))

	key := snapshotKey(cat, testMFConfig())
	assert.True(t, strings.HasPrefix(key, "cinesuggest:mf:"))
	data, err := s.Get(ctx, key)
	require.NoError(t, err)

	q, err := decodeSnapshot(cat, testMFConfig(), data)
	require.NoError(t, err)
	assert.Len(t, q, cat.Len()*2)

	// 第二个引擎从快照加载，得到相同的分数
	second := NewMFEngine(cat, testMFConfig(), nil, WithSnapshotStore(s))
	want, err := first.SeedScores(ctx, catalogtest.Charlie)
	require.NoError(t, err)
	got, err := second.SeedScores(ctx, catalogtest.Charlie)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// 配置变化时 key 变化
	other := testMFConfig()
	other.Factors = 3
	assert.NotEqual(t, key, snapshotKey(cat, other))

	_, err = decodeSnapshot(cat, other, data)
	assert.Error(t, err)
}
