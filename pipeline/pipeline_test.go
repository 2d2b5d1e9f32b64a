package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/cinesuggest/core"
)

type appendNode struct {
	id  int64
	err error
}

func (n *appendNode) Name() string { return "test.append" }
func (n *appendNode) Kind() Kind   { return KindRecall }
func (n *appendNode) Process(_ context.Context, _ *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	if n.err != nil {
		return nil, n.err
	}
	return append(items, core.NewItem(n.id, "")), nil
}

func TestPipeline_Run(t *testing.T) {
	p := &Pipeline{Name: "test", Nodes: []Node{&appendNode{id: 1}, &appendNode{id: 2}}}
	out, err := p.Run(context.Background(), &core.RecommendContext{}, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(2), out[1].ID)
}

func TestPipeline_Errors(t *testing.T) {
	domain := core.NewUnknownTitleError("x")
	p := &Pipeline{Nodes: []Node{&appendNode{err: domain}}}
	_, err := p.Run(context.Background(), &core.RecommendContext{}, nil)
	assert.Same(t, domain, err)

	p = &Pipeline{Nodes: []Node{&appendNode{err: errors.New("boom")}}}
	_, err = p.Run(context.Background(), &core.RecommendContext{}, nil)
	assert.EqualError(t, err, "node test.append: boom")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = (&Pipeline{Nodes: []Node{&appendNode{id: 1}}}).Run(ctx, &core.RecommendContext{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pipeline:
  name: demo
  nodes:
    - type: test.append
      config:
        id: 7
    - type: test.append
`), 0o600))

	cfg, err := LoadFromYAML(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Pipeline.Name)
	require.Len(t, cfg.Pipeline.Nodes, 2)

	factory := NewNodeFactory()
	factory.Register("test.append", func(c map[string]any) (Node, error) {
		id, _ := c["id"].(int)
		return &appendNode{id: int64(id)}, nil
	})

	p, err := cfg.BuildPipeline(factory)
	require.NoError(t, err)
	out, err := p.Run(context.Background(), &core.RecommendContext{}, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(7), out[0].ID)
	assert.Equal(t, int64(0), out[1].ID)

	_, err = NewNodeFactory().Build("nope", nil)
	assert.Error(t, err)

	_, err = ParseYAML([]byte("pipeline: ["))
	assert.Error(t, err)
}
