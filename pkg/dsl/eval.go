package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/cinesuggest/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("movie", cel.DynType),
		cel.Variable("item", cel.DynType),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// MovieStats 是表达式可见的电影统计信息（由目录提供）。
type MovieStats struct {
	RatingCount int
	AvgRating   float64
}

// Program 是编译后的过滤表达式，使用 CEL (Common Expression Language)。
// 编译一次，可被并发请求复用。
//
// 可用变量：
//   - movie.id / movie.title / movie.year / movie.genres / movie.rating_count / movie.avg_rating
//   - item.id / item.score / item.labels（召回后的候选，仅在 Pipeline 中可用）
//
// 示例：
//   - `movie.year >= 1990 && "Comedy" in movie.genres`
//   - `movie.rating_count >= 50 && movie.avg_rating > 3.5`
//   - `item.score > 0.5`
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式，表达式必须返回 bool。
func Compile(expr string) (*Program, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, core.WrapDomainError(core.ModulePipeline, core.ErrorCodeInvalidInput,
			"dsl: compile "+expr, issues.Err())
	}
	if ast.OutputType() != cel.BoolType && ast.OutputType() != cel.DynType {
		return nil, core.NewDomainError(core.ModulePipeline, core.ErrorCodeInvalidInput,
			fmt.Sprintf("dsl: expression must return bool, got %s", ast.OutputType()))
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Program{expr: expr, prg: prg}, nil
}

// String 返回原始表达式。
func (p *Program) String() string {
	return p.expr
}

// Match 对一部电影（以及可选的候选 item）求值。
func (p *Program) Match(movie core.Movie, stats MovieStats, item *core.Item) (bool, error) {
	out, _, err := p.prg.Eval(buildInput(movie, stats, item))
	if err != nil {
		// 访问不存在的 key 会报错，使用 has(item.labels.x) 检查存在性
		return false, fmt.Errorf("eval error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(movie core.Movie, stats MovieStats, item *core.Item) map[string]any {
	genres := movie.Genres
	if genres == nil {
		genres = []string{}
	}
	m := map[string]any{
		"id":           movie.ID,
		"title":        movie.Title,
		"year":         int64(movie.Year),
		"genres":       genres,
		"rating_count": int64(stats.RatingCount),
		"avg_rating":   stats.AvgRating,
	}

	it := map[string]any{
		"id":     movie.ID,
		"score":  0.0,
		"labels": map[string]any{},
	}
	if item != nil {
		labels := make(map[string]any, len(item.Labels))
		for k, v := range item.Labels {
			labels[k] = v.Value
		}
		it["id"] = item.ID
		it["score"] = item.Score
		it["labels"] = labels
	}

	return map[string]any{
		"movie": m,
		"item":  it,
	}
}
