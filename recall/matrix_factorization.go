package recall

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/rushteam/cinesuggest/catalog"
	"github.com/rushteam/cinesuggest/core"
	"github.com/rushteam/cinesuggest/pkg/logging"
)

// MFConfig 是矩阵分解模型的配置。
type MFConfig struct {
	// Factors 隐向量维度 k
	Factors int `koanf:"factors"`
	// Epochs SGD 轮数
	Epochs int `koanf:"epochs"`
	// LearningRate 学习率
	LearningRate float64 `koanf:"learning_rate"`
	// Regularization L2 正则系数
	Regularization float64 `koanf:"regularization"`
	// InitStdDev 隐向量初始化的标准差
	InitStdDev float64 `koanf:"init_std_dev"`
	// Seed 随机种子，固定后训练结果可复现
	Seed uint64 `koanf:"seed"`
	// MinSupport 种子参与建模的最少评分数，同时也是候选参与打分的最少评分数
	MinSupport int `koanf:"min_support"`

	MaxConcurrent int           `koanf:"max_concurrent"`
	BuildTimeout  time.Duration `koanf:"build_timeout"`

	// SnapshotTTL 模型快照在 Store 中的过期时间，0 表示不过期
	SnapshotTTL time.Duration `koanf:"snapshot_ttl"`
}

// DefaultMFConfig 返回默认配置。
func DefaultMFConfig() MFConfig {
	return MFConfig{
		Factors:        core.Defaults.DefaultFactors(),
		Epochs:         20,
		LearningRate:   0.005,
		Regularization: 0.02,
		InitStdDev:     0.1,
		Seed:           42,
		MinSupport:     core.Defaults.DefaultMinSupport(),
		BuildTimeout:   core.Defaults.DefaultBuildTimeout(),
	}
}

// mfModel 只保留在线打分需要的物品隐向量。
type mfModel struct {
	factors  int
	q        []float64 // position × k
	norms    []float64
	eligible []bool
}

func (m *mfModel) vec(pos int) []float64 {
	return m.q[pos*m.factors : (pos+1)*m.factors]
}

// MFEngine 是基于矩阵分解（Funk SVD，带偏置项，SGD 训练）的协同过滤召回。
//
// 在线打分：候选与每个种子的物品隐向量做余弦相似度，种子间求和。
type MFEngine struct {
	collaborative
	cfg   MFConfig
	store core.Store
	gate  *Gate[*mfModel]
}

// MFOption 是 MFEngine 的可选项。
type MFOption func(*MFEngine)

// WithSnapshotStore 指定模型快照存储。训练前先尝试加载快照，训练后写回。
func WithSnapshotStore(s core.Store) MFOption {
	return func(e *MFEngine) {
		e.store = s
	}
}

// NewMFEngine 创建矩阵分解引擎。fallback 为冷启动回退使用的内容引擎，可为 nil。
func NewMFEngine(cat *catalog.Catalog, cfg MFConfig, fallback *ContentEngine, opts ...MFOption) *MFEngine {
	e := &MFEngine{
		collaborative: collaborative{
			name:          "mf",
			cat:           cat,
			fallback:      fallback,
			maxConcurrent: cfg.MaxConcurrent,
		},
		cfg: cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.gate = NewGate("mf", cfg.BuildTimeout, e.buildModel)
	return e
}

func (e *MFEngine) Name() string { return "recall.collaborative" }

func (e *MFEngine) Build(ctx context.Context) error {
	if _, err := e.gate.Get(ctx); err != nil {
		return err
	}
	if e.fallback != nil {
		return e.fallback.Build(ctx)
	}
	return nil
}

func (e *MFEngine) Ready() bool {
	return e.gate.Ready() && (e.fallback == nil || e.fallback.Ready())
}

func (e *MFEngine) buildModel(ctx context.Context) (*mfModel, error) {
	log := logging.With("recall")

	var key string
	if e.store != nil {
		key = snapshotKey(e.cat, e.cfg)
		data, err := e.store.Get(ctx, key)
		switch {
		case err == nil:
			q, derr := decodeSnapshot(e.cat, e.cfg, data)
			if derr == nil {
				log.Info().Str("store", e.store.Name()).Str("key", key).Msg("mf snapshot loaded")
				return newMFModel(e.cat, e.cfg, q), nil
			}
			log.Warn().Err(derr).Str("key", key).Msg("mf snapshot rejected")
		case core.IsStoreNotFound(err):
		default:
			log.Warn().Err(err).Str("store", e.store.Name()).Msg("mf snapshot read failed")
		}
	}

	q, err := trainMF(ctx, e.cat, e.cfg)
	if err != nil {
		return nil, err
	}

	if e.store != nil {
		data, err := encodeSnapshot(e.cat, e.cfg, q)
		if err == nil {
			err = e.store.Set(ctx, key, data, int(e.cfg.SnapshotTTL/time.Second))
		}
		if err != nil {
			log.Warn().Err(err).Str("store", e.store.Name()).Msg("mf snapshot write failed")
		}
	}
	return newMFModel(e.cat, e.cfg, q), nil
}

func newMFModel(cat *catalog.Catalog, cfg MFConfig, q []float64) *mfModel {
	n := cat.Len()
	m := &mfModel{
		factors:  cfg.Factors,
		q:        q,
		norms:    make([]float64, n),
		eligible: make([]bool, n),
	}
	for pos := range n {
		m.norms[pos] = math.Sqrt(dot(m.vec(pos), m.vec(pos)))
		m.eligible[pos] = cat.RatingCount(cat.MovieAt(pos).ID) >= cfg.MinSupport && m.norms[pos] > 0
	}
	return m
}

// trainMF 用 SGD 训练带偏置的矩阵分解，返回物品隐向量（position × k）。
// 随机数来自固定种子，且按顺序更新，同一数据与配置下结果一致。
func trainMF(ctx context.Context, cat *catalog.Catalog, cfg MFConfig) ([]float64, error) {
	k := cfg.Factors
	nr := cat.NumRatings()
	if k <= 0 {
		return nil, core.NewDomainError(core.ModuleRecall, core.ErrorCodeInvalidInput, "recall: mf factors must be positive")
	}

	users := make([]int32, nr)
	items := make([]int32, nr)
	vals := make([]float64, nr)
	var mean float64
	i := 0
	for r := range cat.Ratings() {
		up, _ := cat.UserPosition(r.UserID)
		ip, _ := cat.Position(r.MovieID)
		users[i], items[i], vals[i] = int32(up), int32(ip), r.Score
		mean += r.Score
		i++
	}
	if nr > 0 {
		mean /= float64(nr)
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	p := make([]float64, cat.NumUsers()*k)
	q := make([]float64, cat.Len()*k)
	for i := range p {
		p[i] = rng.NormFloat64() * cfg.InitStdDev
	}
	for i := range q {
		q[i] = rng.NormFloat64() * cfg.InitStdDev
	}
	bu := make([]float64, cat.NumUsers())
	bi := make([]float64, cat.Len())

	order := make([]int32, nr)
	for i := range order {
		order[i] = int32(i)
	}

	lr, reg := cfg.LearningRate, cfg.Regularization
	log := logging.With("recall")
	for epoch := range cfg.Epochs {
		rng.Shuffle(nr, func(a, b int) { order[a], order[b] = order[b], order[a] })

		var sse float64
		for n, idx := range order {
			if n&(1<<20-1) == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			u, it := int(users[idx]), int(items[idx])
			pu := p[u*k : (u+1)*k]
			qi := q[it*k : (it+1)*k]

			e := vals[idx] - (mean + bu[u] + bi[it] + dot(pu, qi))
			sse += e * e

			bu[u] += lr * (e - reg*bu[u])
			bi[it] += lr * (e - reg*bi[it])
			for f := range k {
				pf, qf := pu[f], qi[f]
				pu[f] += lr * (e*qf - reg*pf)
				qi[f] += lr * (e*pf - reg*qf)
			}
		}

		if nr > 0 {
			log.Debug().Int("epoch", epoch+1).Float64("rmse", math.Sqrt(sse/float64(nr))).Msg("mf epoch")
		}
	}
	return q, nil
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// SeedScores 返回种子与每部电影隐向量的余弦相似度。
// 评分数不足 MinSupport 的种子返回 INSUFFICIENT_SUPPORT；这类候选的分数为 0。
func (e *MFEngine) SeedScores(ctx context.Context, seed int64) ([]float64, error) {
	m, err := e.gate.Get(ctx)
	if err != nil {
		return nil, err
	}
	pos, err := seedPosition(e.cat, seed)
	if err != nil {
		return nil, err
	}
	if !m.eligible[pos] {
		return nil, core.NewInsufficientSupportError(seed, e.cat.RatingCount(seed), e.cfg.MinSupport)
	}

	qs, ns := m.vec(pos), m.norms[pos]
	scores := make([]float64, e.cat.Len())
	for i := range scores {
		if !m.eligible[i] {
			continue
		}
		scores[i] = dot(qs, m.vec(i)) / (ns * m.norms[i])
	}
	return scores, nil
}

func (e *MFEngine) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	return e.recall(ctx, rctx, e.SeedScores)
}
