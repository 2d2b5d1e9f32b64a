package filter

import (
	"context"

	"github.com/rushteam/cinesuggest/core"
	"github.com/rushteam/cinesuggest/pkg/dsl"
)

// MovieLookup 提供表达式求值所需的电影信息，由 catalog.Catalog 实现。
type MovieLookup interface {
	GetMovie(id int64) (core.Movie, error)
	MovieStats(id int64) dsl.MovieStats
}

// ExprFilter 使用 CEL 表达式过滤候选。
// Keep 为 false（默认）时，表达式为真的候选被过滤；为 true 时只保留表达式为真的候选。
//
// 示例：
//
//	`movie.rating_count < 20`              过滤评分过少的电影
//	`"Documentary" in movie.genres`        过滤纪录片
type ExprFilter struct {
	Program *dsl.Program
	Movies  MovieLookup
	Keep    bool
}

// NewExprFilter 编译表达式并创建过滤器。
func NewExprFilter(expr string, movies MovieLookup, keep bool) (*ExprFilter, error) {
	prg, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{Program: prg, Movies: movies, Keep: keep}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	m, err := f.Movies.GetMovie(item.ID)
	if err != nil {
		return false, err
	}
	ok, err := f.Program.Match(m, f.Movies.MovieStats(item.ID), item)
	if err != nil {
		return false, err
	}
	return ok != f.Keep, nil
}
