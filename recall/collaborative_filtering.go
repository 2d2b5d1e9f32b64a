package recall

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rushteam/cinesuggest/catalog"
	"github.com/rushteam/cinesuggest/core"
	"github.com/rushteam/cinesuggest/pkg/logging"
	"github.com/rushteam/cinesuggest/pkg/utils"
)

// collaborative 是两种协同过滤模型共用的召回流程。
//
// 冷启动：评分数低于 MinSupport 的种子返回 INSUFFICIENT_SUPPORT，
// 该种子改用内容引擎的分数参与求和；内容引擎也没有特征时该种子失败。
// 只有全部种子都失败时请求才失败。
type collaborative struct {
	name          string
	cat           *catalog.Catalog
	fallback      *ContentEngine
	maxConcurrent int
}

func (c *collaborative) recall(ctx context.Context, rctx *core.RecommendContext, primary SeedFunc) ([]*core.Item, error) {
	if err := checkSeeds(rctx); err != nil {
		return nil, err
	}

	fan := SeedFanout{MaxConcurrent: c.maxConcurrent}
	results := fan.Run(ctx, rctx.Seeds, primary)

	var coldIdx []int
	var coldSeeds []int64
	for i, r := range results {
		if r.Err != nil && core.IsInsufficientSupport(r.Err) && c.fallback != nil {
			coldIdx = append(coldIdx, i)
			coldSeeds = append(coldSeeds, r.Seed)
		}
	}

	var recovered []string
	if len(coldSeeds) > 0 {
		fr := fan.Run(ctx, coldSeeds, c.fallbackScores)
		for j, i := range coldIdx {
			if fr[j].Err != nil {
				continue
			}
			results[i].Scores = fr[j].Scores
			results[i].Err = nil
			recovered = append(recovered, strconv.FormatInt(results[i].Seed, 10))
		}
	}

	var firstSupportErr error
	for _, r := range results {
		if r.Err == nil {
			continue
		}
		if !core.IsInsufficientSupport(r.Err) {
			return nil, r.Err
		}
		if firstSupportErr == nil {
			firstSupportErr = r.Err
		}
		logging.With("recall").Warn().Err(r.Err).Str("engine", c.name).Int64("seed", r.Seed).Msg("seed dropped")
	}

	total, ok := Sum(results, c.cat.Len())
	if ok == 0 {
		return nil, firstSupportErr
	}

	markSource(rctx, c.name)
	if len(recovered) > 0 {
		rctx.PutLabel(LabelColdStart, utils.Label{Value: strings.Join(recovered, ","), Source: "recall"})
	}
	return emit(c.cat, total), nil
}

func (c *collaborative) fallbackScores(ctx context.Context, seed int64) ([]float64, error) {
	has, err := c.fallback.HasFeatures(ctx, seed)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, core.NewDomainError(core.ModuleRecall, core.ErrorCodeInsufficientSupport,
			fmt.Sprintf("recall: movie %d has neither rating support nor content features", seed))
	}
	return c.fallback.SeedScores(ctx, seed)
}

// ItemCFConfig 是物品近邻模型的配置。
type ItemCFConfig struct {
	// LikeThreshold 评分不低于该值视为"喜欢"
	LikeThreshold float64 `koanf:"like_threshold"`

	// MinSupport 种子参与建模的最少评分数
	MinSupport int `koanf:"min_support"`

	MaxConcurrent int           `koanf:"max_concurrent"`
	BuildTimeout  time.Duration `koanf:"build_timeout"`
}

// DefaultItemCFConfig 返回默认配置。
func DefaultItemCFConfig() ItemCFConfig {
	return ItemCFConfig{
		LikeThreshold: core.Defaults.DefaultLikeThreshold(),
		MinSupport:    core.Defaults.DefaultMinSupport(),
		BuildTimeout:  core.Defaults.DefaultBuildTimeout(),
	}
}

// itemCFModel 保存每个用户喜欢的电影（CSR，按用户 position）与每部电影的喜欢人数。
type itemCFModel struct {
	likes       []int32
	userOffsets []int
	userLiked   []int32
}

// ItemCFEngine 是基于物品的协同过滤（Item-CF）。
//
// 两部电影的相似度是"同时喜欢两者的用户数"做余弦归一化：
//
//	sim(s, i) = |L(s) ∩ L(i)| / sqrt(|L(s)| * |L(i)|)
//
// 其中 L(x) 是给 x 打分不低于 LikeThreshold 的用户集合。
type ItemCFEngine struct {
	collaborative
	cfg  ItemCFConfig
	gate *Gate[*itemCFModel]
}

// NewItemCFEngine 创建物品近邻引擎。fallback 为冷启动回退使用的内容引擎，可为 nil。
func NewItemCFEngine(cat *catalog.Catalog, cfg ItemCFConfig, fallback *ContentEngine) *ItemCFEngine {
	e := &ItemCFEngine{
		collaborative: collaborative{
			name:          "item_cf",
			cat:           cat,
			fallback:      fallback,
			maxConcurrent: cfg.MaxConcurrent,
		},
		cfg: cfg,
	}
	e.gate = NewGate("item_cf", cfg.BuildTimeout, e.buildModel)
	return e
}

func (e *ItemCFEngine) Name() string { return "recall.collaborative" }

func (e *ItemCFEngine) Build(ctx context.Context) error {
	if _, err := e.gate.Get(ctx); err != nil {
		return err
	}
	if e.fallback != nil {
		return e.fallback.Build(ctx)
	}
	return nil
}

func (e *ItemCFEngine) Ready() bool {
	return e.gate.Ready() && (e.fallback == nil || e.fallback.Ready())
}

func (e *ItemCFEngine) buildModel(ctx context.Context) (*itemCFModel, error) {
	m := &itemCFModel{
		likes:       make([]int32, e.cat.Len()),
		userOffsets: make([]int, e.cat.NumUsers()+1),
	}

	// 第一遍计数，第二遍填充；ratings 按电影升序，每个用户的列表天然按 position 升序
	for r := range e.cat.Ratings() {
		if r.Score < e.cfg.LikeThreshold {
			continue
		}
		up, _ := e.cat.UserPosition(r.UserID)
		m.userOffsets[up+1]++
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for u := range e.cat.NumUsers() {
		m.userOffsets[u+1] += m.userOffsets[u]
	}

	cursor := make([]int, e.cat.NumUsers())
	copy(cursor, m.userOffsets[:e.cat.NumUsers()])
	m.userLiked = make([]int32, m.userOffsets[e.cat.NumUsers()])
	for r := range e.cat.Ratings() {
		if r.Score < e.cfg.LikeThreshold {
			continue
		}
		up, _ := e.cat.UserPosition(r.UserID)
		ip, _ := e.cat.Position(r.MovieID)
		m.userLiked[cursor[up]] = int32(ip)
		cursor[up]++
		m.likes[ip]++
	}
	return m, ctx.Err()
}

// SeedScores 返回种子与每部电影的近邻相似度。
func (e *ItemCFEngine) SeedScores(ctx context.Context, seed int64) ([]float64, error) {
	m, err := e.gate.Get(ctx)
	if err != nil {
		return nil, err
	}
	pos, err := seedPosition(e.cat, seed)
	if err != nil {
		return nil, err
	}
	if n := e.cat.RatingCount(seed); n < e.cfg.MinSupport || m.likes[pos] == 0 {
		return nil, core.NewInsufficientSupportError(seed, n, e.cfg.MinSupport)
	}

	scores := make([]float64, e.cat.Len())
	for _, r := range e.cat.MovieRatings(seed) {
		if r.Score < e.cfg.LikeThreshold {
			continue
		}
		up, _ := e.cat.UserPosition(r.UserID)
		for _, ip := range m.userLiked[m.userOffsets[up]:m.userOffsets[up+1]] {
			scores[ip]++
		}
	}

	ns := float64(m.likes[pos])
	for i, co := range scores {
		if co > 0 {
			scores[i] = co / math.Sqrt(ns*float64(m.likes[i]))
		}
	}
	return scores, nil
}

func (e *ItemCFEngine) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	return e.recall(ctx, rctx, e.SeedScores)
}
