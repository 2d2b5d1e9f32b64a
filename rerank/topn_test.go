package rerank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/cinesuggest/core"
	"github.com/rushteam/cinesuggest/pkg/utils"
)

func item(id int64, title string, score float64) *core.Item {
	return &core.Item{ID: id, Title: title, Score: score}
}

func titles(items []*core.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name  string
		items []*core.Item
		seeds []int64
		names []string
		n     int
		want  []string
	}{
		{
			name:  "descending score",
			items: []*core.Item{item(1, "a", 0.1), item(2, "b", 0.9), item(3, "c", 0.5)},
			want:  []string{"b", "c", "a"},
		},
		{
			name:  "ties by ascending id",
			items: []*core.Item{item(9, "z", 1), item(3, "c", 1), item(5, "e", 1)},
			want:  []string{"c", "e", "z"},
		},
		{
			name:  "excludes seeds",
			items: []*core.Item{item(1, "seed", 5), item(2, "b", 1), item(3, "c", 2)},
			seeds: []int64{1},
			want:  []string{"c", "b"},
		},
		{
			name:  "excludes titles equal to a seed title",
			items: []*core.Item{item(1, "Twin", 5), item(2, "Twin", 4), item(3, "c", 1)},
			seeds: []int64{1},
			want:  []string{"c"},
		},
		{
			name:  "excludes seed titles after seeds were filtered out",
			items: []*core.Item{item(5, "Emma (1996)", 1), item(3, "c", 0.5)},
			seeds: []int64{1},
			names: []string{"Emma (1996)"},
			want:  []string{"c"},
		},
		{
			name:  "dedupe by id keeps highest score",
			items: []*core.Item{item(2, "b", 0.1), item(3, "c", 0.5), item(2, "b", 0.9)},
			want:  []string{"b", "c"},
		},
		{
			name:  "dedupe by title keeps best ranked",
			items: []*core.Item{item(2, "Hamlet", 0.2), item(7, "Hamlet", 0.8), item(3, "c", 0.5)},
			want:  []string{"Hamlet", "c"},
		},
		{
			name:  "truncates",
			items: []*core.Item{item(1, "a", 3), item(2, "b", 2), item(3, "c", 1)},
			n:     2,
			want:  []string{"a", "b"},
		},
		{
			name:  "fewer than n",
			items: []*core.Item{item(1, "a", 3)},
			n:     10,
			want:  []string{"a"},
		},
		{
			name: "empty",
			n:    10,
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(tt.items, tt.seeds, tt.names, tt.n)
			assert.Equal(t, tt.want, titles(got))
		})
	}
}

func TestAggregate_DoesNotMutateInput(t *testing.T) {
	in := []*core.Item{item(1, "a", 0.1), item(2, "b", 0.9)}
	first := titles(Aggregate(in, nil, nil, 0))
	second := titles(Aggregate(in, nil, nil, 0))

	assert.Equal(t, first, second)
	assert.Equal(t, "a", in[0].Title)
	assert.Equal(t, "b", in[1].Title)
}

func TestTopNNode(t *testing.T) {
	rctx := &core.RecommendContext{Seeds: []int64{1}, TopN: 2}
	rctx.PutLabel("recall_source", utils.Label{Value: "content", Source: "recall"})

	in := []*core.Item{item(1, "seed", 9), item(2, "b", 3), item(3, "c", 2), item(4, "d", 1)}
	out, err := (&TopNNode{}).Process(context.Background(), rctx, in)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c"}, titles(out))

	lbl, ok := out[0].GetLabel("recall_source")
	require.True(t, ok)
	assert.Equal(t, "content", lbl.Value)

	// 种子已被过滤时仍按目录标题排除
	named := &core.RecommendContext{Seeds: []int64{1}, SeedTitles: []string{"seed"}, TopN: 5}
	out, err = (&TopNNode{}).Process(context.Background(), named, []*core.Item{item(9, "seed", 9), item(2, "b", 3)})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, titles(out))

	// 显式 N 优先
	out, err = (&TopNNode{N: 1}).Process(context.Background(), rctx, in)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, titles(out))
}

func TestDiversity(t *testing.T) {
	genres := map[int64][]string{
		1: {"Comedy"}, 2: {"Comedy", "Drama"}, 3: {"Comedy"}, 4: {"Action"}, 5: nil,
	}
	n := &Diversity{Genres: func(id int64) []string { return genres[id] }, MaxPerGenre: 2}

	in := []*core.Item{item(1, "a", 5), item(2, "b", 4), item(3, "c", 3), item(4, "d", 2), item(5, "e", 1)}
	out, err := n.Process(context.Background(), nil, in)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "d", "e"}, titles(out))
}
