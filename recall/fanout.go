package recall

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// SeedFunc 计算单个种子的分数向量（长度为目录大小）。
type SeedFunc func(ctx context.Context, seed int64) ([]float64, error)

// SeedResult 是单个种子的计算结果，按种子在请求中的顺序排列。
type SeedResult struct {
	Seed   int64
	Scores []float64
	Err    error
}

// SeedFanout 并发计算每个种子的分数。每个种子使用独立的缓冲区，
// 单个种子失败不会中断其他种子，由调用方决定如何处理。
type SeedFanout struct {
	// MaxConcurrent 最大并发数（0 表示无限制）
	MaxConcurrent int
}

// Run 对 seeds 逐个调用 fn，结果顺序与 seeds 一致。重复种子会被重复计算。
func (f SeedFanout) Run(ctx context.Context, seeds []int64, fn SeedFunc) []SeedResult {
	results := make([]SeedResult, len(seeds))

	var eg errgroup.Group
	if f.MaxConcurrent > 0 {
		eg.SetLimit(f.MaxConcurrent)
	}
	for i, seed := range seeds {
		eg.Go(func() error {
			scores, err := fn(ctx, seed)
			results[i] = SeedResult{Seed: seed, Scores: scores, Err: err}
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

// Sum 按种子顺序把成功的分数向量逐项相加，返回总分与成功的种子数。
// 累加顺序固定为种子顺序。
func Sum(results []SeedResult, n int) ([]float64, int) {
	total := make([]float64, n)
	ok := 0
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		ok++
		for i, s := range r.Scores {
			total[i] += s
		}
	}
	return total, ok
}
