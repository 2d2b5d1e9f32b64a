// Package service 是推荐核心的对外入口：
// 标题解析 -> 召回（内容 / 协同过滤）-> 过滤 -> 聚合截断。
//
// 用法：
//
//	rec, err := service.New(cat, service.OptionsFrom(cfg, snapshots))
//	if err := rec.Warm(ctx); err != nil { ... }
//	titles, err := rec.Recommend(ctx, "content", []string{"Toy Story (1995)", "Heat (1995)", "Casino (1995)"}, 10)
//
// 构建完成后 Recommender 只读，可被并发请求共享。
package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/cinesuggest/catalog"
	"github.com/rushteam/cinesuggest/config"
	"github.com/rushteam/cinesuggest/core"
	"github.com/rushteam/cinesuggest/pipeline"
	"github.com/rushteam/cinesuggest/pkg/logging"
	"github.com/rushteam/cinesuggest/pkg/utils"
	"github.com/rushteam/cinesuggest/recall"
	"github.com/rushteam/cinesuggest/resolve"
)

// Options 是 Recommender 的构建参数。
type Options struct {
	Content       recall.ContentConfig
	Collaborative config.CollaborativeConfig
	Pipelines     map[string][]pipeline.NodeConfig

	// TopN 是 topN <= 0 时使用的默认条数
	TopN int
	// MinSeeds 解析成功的最少种子数
	MinSeeds int

	// Store 保存模型快照与黑名单（可选）
	Store core.Store
}

// DefaultOptions 返回默认参数。
func DefaultOptions() Options {
	return OptionsFrom(config.Default(), nil)
}

// OptionsFrom 从应用配置生成参数。
func OptionsFrom(cfg *config.AppConfig, s core.Store) Options {
	pipelines := cfg.Pipelines
	if len(pipelines) == 0 {
		pipelines = config.DefaultPipelines()
	}
	return Options{
		Content:       cfg.Content,
		Collaborative: cfg.Collaborative,
		Pipelines:     pipelines,
		TopN:          cfg.Recommend.TopN,
		MinSeeds:      cfg.Recommend.MinSeeds,
		Store:         s,
	}
}

// Recommender 是推荐门面。
type Recommender struct {
	cat       *catalog.Catalog
	resolver  *resolve.Resolver
	engines   map[string]recall.Engine
	pipelines map[string]*pipeline.Pipeline
	topN      int
	minSeeds  int
}

// New 创建 Recommender。引擎按需构建，调用 Warm 可提前构建。
func New(cat *catalog.Catalog, opts Options) (*Recommender, error) {
	if cat == nil {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput, "service: catalog is required")
	}
	if opts.TopN <= 0 {
		opts.TopN = core.Defaults.DefaultTopN()
	}
	if opts.MinSeeds <= 0 {
		opts.MinSeeds = core.Defaults.DefaultMinSeeds()
	}
	if len(opts.Pipelines) == 0 {
		opts.Pipelines = config.DefaultPipelines()
	}

	content := recall.NewContentEngine(cat, opts.Content)
	var collaborative recall.Engine
	switch opts.Collaborative.Model {
	case config.ModelItemCF:
		collaborative = recall.NewItemCFEngine(cat, opts.Collaborative.ItemCF, content)
	case config.ModelMF, "":
		var mfOpts []recall.MFOption
		if opts.Store != nil {
			mfOpts = append(mfOpts, recall.WithSnapshotStore(opts.Store))
		}
		collaborative = recall.NewMFEngine(cat, opts.Collaborative.MF, content, mfOpts...)
	default:
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput,
			fmt.Sprintf("service: unknown collaborative model %q", opts.Collaborative.Model))
	}

	r := &Recommender{
		cat:      cat,
		resolver: resolve.New(cat),
		engines: map[string]recall.Engine{
			core.AlgorithmContent:       content,
			core.AlgorithmCollaborative: collaborative,
		},
		pipelines: make(map[string]*pipeline.Pipeline, len(opts.Pipelines)),
		topN:      opts.TopN,
		minSeeds:  opts.MinSeeds,
	}

	factory := config.NewFactory(config.Resources{
		Catalog:       cat,
		Content:       content,
		Collaborative: collaborative,
		Store:         opts.Store,
	})
	for algo := range r.engines {
		nodes, ok := opts.Pipelines[algo]
		if !ok {
			return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput,
				fmt.Sprintf("service: no pipeline for algorithm %q", algo))
		}
		p, err := pipeline.BuildNodes(algo, nodes, factory)
		if err != nil {
			return nil, core.WrapDomainError(core.ModuleService, core.ErrorCodeInvalidInput, "service: pipeline "+algo, err)
		}
		r.pipelines[algo] = p
		EngineReady.WithLabelValues(algo).Set(0)
	}
	return r, nil
}

// Catalog 返回目录。
func (r *Recommender) Catalog() *catalog.Catalog {
	return r.cat
}

// Warm 并发构建所有引擎，任一失败即返回错误（失败的构建不会被缓存，之后的请求会重试）。
func (r *Recommender) Warm(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for algo, e := range r.engines {
		g.Go(func() error {
			start := time.Now()
			err := e.Build(ctx)
			status := "ok"
			if err != nil {
				status = "error"
			}
			EngineBuildDuration.WithLabelValues(algo, status).Observe(time.Since(start).Seconds())
			if err != nil {
				return fmt.Errorf("warm %s: %w", algo, err)
			}
			EngineReady.WithLabelValues(algo).Set(1)
			return nil
		})
	}
	return g.Wait()
}

// Ready 报告所有引擎是否已构建完成。
func (r *Recommender) Ready() bool {
	for _, e := range r.engines {
		if !e.Ready() {
			return false
		}
	}
	return true
}

// Result 是一次推荐的详细结果。
type Result struct {
	Algorithm string
	Seeds     []resolve.Resolution
	Items     []*core.Item
}

// Titles 返回按排名排列的标题。
func (res *Result) Titles() []string {
	out := make([]string, len(res.Items))
	for i, it := range res.Items {
		out[i] = it.Title
	}
	return out
}

// Recommend 返回最多 topN 个推荐标题（按排名）。topN <= 0 时使用默认值。
func (r *Recommender) Recommend(ctx context.Context, algorithm string, titles []string, topN int) ([]string, error) {
	res, err := r.RecommendDetailed(ctx, algorithm, titles, topN)
	if err != nil {
		return nil, err
	}
	return res.Titles(), nil
}

// RecommendDetailed 与 Recommend 相同，额外返回种子解析结果、分数与解释 Label。
func (r *Recommender) RecommendDetailed(ctx context.Context, algorithm string, titles []string, topN int) (res *Result, err error) {
	start := time.Now()
	defer func() {
		code := ""
		if err != nil {
			code = ErrorCode(err)
			logging.Warn().
				Str("algorithm", algorithm).
				Str("code", code).
				Err(err).
				Msg("recommend failed")
		}
		RecommendRequests.WithLabelValues(algorithm, code).Inc()
		RecommendDuration.WithLabelValues(algorithm).Observe(time.Since(start).Seconds())
	}()

	p, ok := r.pipelines[algorithm]
	if !ok {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput,
			fmt.Sprintf("service: unknown algorithm %q", algorithm))
	}
	if topN <= 0 {
		topN = r.topN
	}

	rctx := &core.RecommendContext{
		Algorithm: algorithm,
		Queries:   titles,
		TopN:      topN,
	}
	resolutions, err := r.resolveSeeds(rctx, titles)
	if err != nil {
		return nil, err
	}

	items, err := p.Run(ctx, rctx, nil)
	if err != nil {
		return nil, err
	}
	if len(items) > topN {
		items = items[:topN]
	}
	return &Result{Algorithm: algorithm, Seeds: resolutions, Items: items}, nil
}

func (r *Recommender) resolveSeeds(rctx *core.RecommendContext, titles []string) ([]resolve.Resolution, error) {
	out := make([]resolve.Resolution, 0, len(titles))
	for i, t := range titles {
		res, err := r.resolver.Resolve(t)
		if err != nil {
			return nil, &SeedError{Index: i, Title: t, Err: err}
		}
		if res.Ambiguous {
			AmbiguousSeeds.Inc()
			rctx.PutLabel(recall.LabelAmbiguousSeed, utils.Label{Value: t, Source: "resolve"})
		}
		rctx.Seeds = append(rctx.Seeds, res.ID)
		rctx.SeedTitles = append(rctx.SeedTitles, res.Title)
		out = append(out, res)
	}
	if len(out) < r.minSeeds {
		return nil, core.NewInsufficientSeedsError(len(out), r.minSeeds)
	}
	return out, nil
}
