package recall

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/cinesuggest/catalog/catalogtest"
	"github.com/rushteam/cinesuggest/core"
)

func scoresByID(items []*core.Item) map[int64]float64 {
	out := make(map[int64]float64, len(items))
	for _, it := range items {
		out[it.ID] = it.Score
	}
	return out
}

func TestContentEngine_Similarity(t *testing.T) {
	ctx := context.Background()
	e := NewContentEngine(catalogtest.Load(t), DefaultContentConfig())

	tests := []struct {
		name string
		a, b int64
		want float64
	}{
		{"identical genres", catalogtest.Alpha, catalogtest.Bravo, 1},
		{"identical genres action", catalogtest.Charlie, catalogtest.Echo, 1},
		{"disjoint genres", catalogtest.Alpha, catalogtest.Charlie, 0},
		{"self", catalogtest.Foxtrot, catalogtest.Foxtrot, 1},
		{"unknown movie", catalogtest.Alpha, 999, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Similarity(ctx, tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestContentEngine_Keywords(t *testing.T) {
	ctx := context.Background()
	e := NewContentEngine(catalogtest.LoadWithTags(t), DefaultContentConfig())

	// Charlie 与 Delta 共享类型和关键词，Echo 的关键词不同
	cd, err := e.Similarity(ctx, catalogtest.Charlie, catalogtest.Delta)
	require.NoError(t, err)
	ce, err := e.Similarity(ctx, catalogtest.Charlie, catalogtest.Echo)
	require.NoError(t, err)

	assert.InDelta(t, 1, cd, 1e-9)
	assert.Less(t, ce, cd)
	assert.Greater(t, ce, 0.0)
}

func TestContentEngine_BlendedSeeds(t *testing.T) {
	e := NewContentEngine(catalogtest.Load(t), DefaultContentConfig())
	rctx := &core.RecommendContext{
		Seeds: []int64{catalogtest.Alpha, catalogtest.Alpha, catalogtest.Charlie},
	}

	items, err := e.Recall(context.Background(), rctx)
	require.NoError(t, err)
	require.Len(t, items, 7)

	scores := scoresByID(items)
	assert.InDelta(t, 2, scores[catalogtest.Bravo], 1e-9)
	assert.InDelta(t, 1, scores[catalogtest.Delta], 1e-9)
	assert.InDelta(t, 1, scores[catalogtest.Echo], 1e-9)
	assert.Zero(t, scores[catalogtest.Foxtrot])
	assert.Greater(t, scores[catalogtest.Bravo], scores[catalogtest.Delta])

	lbl, ok := rctx.GetLabel(LabelRecallSource)
	require.True(t, ok)
	assert.Equal(t, "content", lbl.Value)
}

func TestContentEngine_Errors(t *testing.T) {
	e := NewContentEngine(catalogtest.Load(t), DefaultContentConfig())

	_, err := e.Recall(context.Background(), &core.RecommendContext{})
	assert.True(t, core.IsInsufficientSeeds(err))

	_, err = e.Recall(context.Background(), &core.RecommendContext{Seeds: []int64{999}})
	assert.True(t, core.IsUnknownTitle(err))
}

func TestContentEngine_BuildOnce(t *testing.T) {
	e := NewContentEngine(catalogtest.Load(t), DefaultContentConfig())
	assert.False(t, e.Ready())

	require.NoError(t, e.Build(context.Background()))
	assert.True(t, e.Ready())

	has, err := e.HasFeatures(context.Background(), catalogtest.Foxtrot)
	require.NoError(t, err)
	assert.True(t, has)
}
