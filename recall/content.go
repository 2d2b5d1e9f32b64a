package recall

import (
	"cmp"
	"context"
	"math"
	"slices"
	"time"

	"github.com/rushteam/cinesuggest/catalog"
	"github.com/rushteam/cinesuggest/core"
	"github.com/rushteam/cinesuggest/pkg/logging"
)

// ContentConfig 是内容引擎的配置。
type ContentConfig struct {
	// KeywordWeight 关键词特征相对类型特征的权重，0 表示不使用关键词
	KeywordWeight float64 `koanf:"keyword_weight"`

	// MaxConcurrent 单次请求内种子并发数（0 表示无限制）
	MaxConcurrent int `koanf:"max_concurrent"`

	// BuildTimeout 索引构建超时
	BuildTimeout time.Duration `koanf:"build_timeout"`
}

// DefaultContentConfig 返回默认配置。
func DefaultContentConfig() ContentConfig {
	return ContentConfig{
		KeywordWeight: 0.5,
		BuildTimeout:  core.Defaults.DefaultBuildTimeout(),
	}
}

type feature struct {
	col int32
	w   float64
}

type posting struct {
	pos int32
	w   float64
}

// contentIndex 是稀疏特征向量（L2 归一化）及其倒排表。
type contentIndex struct {
	vocab    map[string]int32
	vectors  [][]feature // 按 position，col 升序
	postings [][]posting // 按 col，pos 升序
}

// ContentEngine 是基于内容的召回引擎（Content-Based）。
//
// 每部电影的特征向量由类型标签（二值）与可选的关键词（按出现次数次线性加权）组成，
// 相似度为余弦相似度，多个种子的分数求和。
type ContentEngine struct {
	cat  *catalog.Catalog
	cfg  ContentConfig
	gate *Gate[*contentIndex]
}

// NewContentEngine 创建内容引擎，索引在首次使用或 Build 时构建。
func NewContentEngine(cat *catalog.Catalog, cfg ContentConfig) *ContentEngine {
	e := &ContentEngine{cat: cat, cfg: cfg}
	e.gate = NewGate("content", cfg.BuildTimeout, e.buildIndex)
	return e
}

func (e *ContentEngine) Name() string { return "recall.content" }

// Build 构建特征索引。
func (e *ContentEngine) Build(ctx context.Context) error {
	_, err := e.gate.Get(ctx)
	return err
}

// Ready 返回索引是否已构建。
func (e *ContentEngine) Ready() bool {
	return e.gate.Ready()
}

func (e *ContentEngine) buildIndex(ctx context.Context) (*contentIndex, error) {
	n := e.cat.Len()
	idx := &contentIndex{
		vocab:   make(map[string]int32),
		vectors: make([][]feature, n),
	}
	col := func(key string) int32 {
		c, ok := idx.vocab[key]
		if !ok {
			c = int32(len(idx.vocab))
			idx.vocab[key] = c
		}
		return c
	}

	for pos := range n {
		if pos%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		m := e.cat.MovieAt(pos)
		acc := make(map[int32]float64, len(m.Genres))
		for _, g := range m.Genres {
			acc[col("g:"+g)] = 1
		}
		if e.cfg.KeywordWeight > 0 {
			for _, kw := range e.cat.Keywords(m.ID) {
				acc[col("k:"+kw.Tag)] += e.cfg.KeywordWeight * (1 + math.Log(float64(kw.Count)))
			}
		}
		idx.vectors[pos] = normalize(acc)
	}

	idx.postings = make([][]posting, len(idx.vocab))
	for pos, vec := range idx.vectors {
		for _, f := range vec {
			idx.postings[f.col] = append(idx.postings[f.col], posting{pos: int32(pos), w: f.w})
		}
	}

	logging.With("recall").Debug().
		Int("movies", n).
		Int("features", len(idx.vocab)).
		Msg("content index built")
	return idx, nil
}

func normalize(acc map[int32]float64) []feature {
	if len(acc) == 0 {
		return nil
	}
	vec := make([]feature, 0, len(acc))
	var norm float64
	for c, w := range acc {
		vec = append(vec, feature{col: c, w: w})
		norm += w * w
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i].w /= norm
	}
	slices.SortFunc(vec, func(a, b feature) int { return cmp.Compare(a.col, b.col) })
	return vec
}

// Similarity 返回两部电影的余弦相似度；未知电影或无特征时为 0。
func (e *ContentEngine) Similarity(ctx context.Context, a, b int64) (float64, error) {
	idx, err := e.gate.Get(ctx)
	if err != nil {
		return 0, err
	}
	pa, okA := e.cat.Position(a)
	pb, okB := e.cat.Position(b)
	if !okA || !okB {
		return 0, nil
	}
	return dotSparse(idx.vectors[pa], idx.vectors[pb]), nil
}

func dotSparse(a, b []feature) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].col == b[j].col:
			sum += a[i].w * b[j].w
			i++
			j++
		case a[i].col < b[j].col:
			i++
		default:
			j++
		}
	}
	return sum
}

// HasFeatures 返回电影是否有非空特征向量。
func (e *ContentEngine) HasFeatures(ctx context.Context, id int64) (bool, error) {
	idx, err := e.gate.Get(ctx)
	if err != nil {
		return false, err
	}
	pos, ok := e.cat.Position(id)
	return ok && len(idx.vectors[pos]) > 0, nil
}

// SeedScores 返回种子与目录中每部电影的余弦相似度（按 position）。
// 种子没有任何特征时所有分数为 0。
func (e *ContentEngine) SeedScores(ctx context.Context, seed int64) ([]float64, error) {
	idx, err := e.gate.Get(ctx)
	if err != nil {
		return nil, err
	}
	pos, err := seedPosition(e.cat, seed)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, e.cat.Len())
	for _, f := range idx.vectors[pos] {
		for _, p := range idx.postings[f.col] {
			scores[p.pos] += f.w * p.w
		}
	}
	return scores, nil
}

// Recall 按种子分数之和为整个目录打分。种子可以重复，重复种子会累加。
func (e *ContentEngine) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if err := checkSeeds(rctx); err != nil {
		return nil, err
	}
	if _, err := e.gate.Get(ctx); err != nil {
		return nil, err
	}

	results := SeedFanout{MaxConcurrent: e.cfg.MaxConcurrent}.Run(ctx, rctx.Seeds, e.SeedScores)
	for _, r := range results {
		if r.Err != nil {
			return nil, r.Err
		}
	}
	total, _ := Sum(results, e.cat.Len())

	markSource(rctx, "content")
	return emit(e.cat, total), nil
}
