package config

import (
	"fmt"

	"github.com/rushteam/cinesuggest/catalog"
	"github.com/rushteam/cinesuggest/core"
	"github.com/rushteam/cinesuggest/filter"
	"github.com/rushteam/cinesuggest/pipeline"
	"github.com/rushteam/cinesuggest/pkg/conv"
	"github.com/rushteam/cinesuggest/recall"
	"github.com/rushteam/cinesuggest/rerank"
)

// 内置 Node 类型
const (
	NodeRecallContent       = "recall.content"
	NodeRecallCollaborative = "recall.collaborative"
	NodeFilter              = "filter"
	NodeTopN                = "rerank.topn"
	NodeDiversity           = "rerank.diversity"
)

// Resources 是构建 Node 时需要的共享对象（进程级，只读）。
type Resources struct {
	Catalog       *catalog.Catalog
	Content       recall.Source
	Collaborative recall.Source
	// Store 用于读取黑名单（可选）
	Store core.Store
}

// NewFactory 返回包含内置 Node 与通过 Register 注册的自定义 Node 的工厂。
func NewFactory(res Resources) *pipeline.NodeFactory {
	f := DefaultFactory()

	f.Register(NodeRecallContent, func(map[string]any) (pipeline.Node, error) {
		return recallNode(NodeRecallContent, res.Content)
	})
	f.Register(NodeRecallCollaborative, func(map[string]any) (pipeline.Node, error) {
		return recallNode(NodeRecallCollaborative, res.Collaborative)
	})
	f.Register(NodeFilter, func(cfg map[string]any) (pipeline.Node, error) {
		return buildFilterNode(res, cfg)
	})
	f.Register(NodeTopN, buildTopNNode)
	f.Register(NodeDiversity, func(cfg map[string]any) (pipeline.Node, error) {
		return buildDiversityNode(res, cfg)
	})
	return f
}

func recallNode(nodeType string, src recall.Source) (pipeline.Node, error) {
	if src == nil {
		return nil, fmt.Errorf("%s: source not configured", nodeType)
	}
	return &recall.Node{Source: src}, nil
}

// buildFilterNode 支持的配置：
//
//	seed: true             过滤种子（默认 true）
//	blacklist: [1, 2]      内存黑名单
//	blacklist_key: "..."   Store 中的黑名单
//	expr: "..."            CEL 表达式，为真时过滤
//	keep: false            为 true 时只保留表达式为真的候选
func buildFilterNode(res Resources, cfg map[string]any) (pipeline.Node, error) {
	var filters []filter.Filter

	if conv.ConfigGet(cfg, "seed", true) {
		filters = append(filters, filter.SeedFilter{})
	}

	ids := conv.SliceAnyToInt64(cfg["blacklist"])
	key := conv.ConfigGet(cfg, "blacklist_key", "")
	if len(ids) > 0 || key != "" {
		var adapter *filter.StoreAdapter
		if key != "" {
			if res.Store == nil {
				return nil, fmt.Errorf("filter: blacklist_key %q requires a store", key)
			}
			adapter = filter.NewStoreAdapter(res.Store)
		}
		filters = append(filters, filter.NewBlacklistFilter(ids, adapter, key))
	}

	if expr := conv.ConfigGet(cfg, "expr", ""); expr != "" {
		if res.Catalog == nil {
			return nil, fmt.Errorf("filter: expr requires a catalog")
		}
		f, err := filter.NewExprFilter(expr, res.Catalog, conv.ConfigGet(cfg, "keep", false))
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}

	return &filter.FilterNode{Filters: filters}, nil
}

func buildTopNNode(cfg map[string]any) (pipeline.Node, error) {
	n := conv.ConfigGetInt64(cfg, "n", 0)
	if n < 0 {
		return nil, fmt.Errorf("rerank.topn: n must not be negative")
	}
	return &rerank.TopNNode{N: int(n)}, nil
}

func buildDiversityNode(res Resources, cfg map[string]any) (pipeline.Node, error) {
	if res.Catalog == nil {
		return nil, fmt.Errorf("rerank.diversity: requires a catalog")
	}
	cat := res.Catalog
	return &rerank.Diversity{
		Genres: func(id int64) []string {
			m, err := cat.GetMovie(id)
			if err != nil {
				return nil
			}
			return m.Genres
		},
		MaxPerGenre: int(conv.ConfigGetInt64(cfg, "max_per_genre", 3)),
	}, nil
}
