package catalog

import (
	"net/url"

	"github.com/rushteam/cinesuggest/core"
	"github.com/rushteam/cinesuggest/pkg/dsl"
)

const trailerSearchBase = "https://www.youtube.com/results?search_query="

// Query 是电影检索条件，零值字段表示不限制。
type Query struct {
	// Genre 类型标签，精确匹配
	Genre string
	// Year 上映年份
	Year int
	// Rating 半星分值：至少有一条评分等于该值的电影
	Rating float64
	// Expr CEL 表达式，如 `movie.avg_rating >= 4.0`
	Expr string
	// Limit 最多返回条数，0 表示不限
	Limit int
}

// Search 按条件检索电影，结果按标题去重、按 ID 升序。
func (c *Catalog) Search(q Query) ([]core.Movie, error) {
	var prg *dsl.Program
	if q.Expr != "" {
		p, err := dsl.Compile(q.Expr)
		if err != nil {
			return nil, err
		}
		prg = p
	}

	var out []core.Movie
	seen := make(map[string]struct{})
	for pos, m := range c.movies {
		if q.Genre != "" && !m.HasGenre(q.Genre) {
			continue
		}
		if q.Year != 0 && m.Year != q.Year {
			continue
		}
		if q.Rating != 0 && !c.hasRatingValue(pos, q.Rating) {
			continue
		}
		if prg != nil {
			stats := dsl.MovieStats{
				RatingCount: c.movieOffsets[pos+1] - c.movieOffsets[pos],
				AvgRating:   c.avgRating[pos],
			}
			ok, err := prg.Match(m, stats, nil)
			if err != nil {
				return nil, core.WrapDomainError(core.ModuleCatalog, core.ErrorCodeInvalidInput, "catalog: search", err)
			}
			if !ok {
				continue
			}
		}
		if _, dup := seen[m.Title]; dup {
			continue
		}
		seen[m.Title] = struct{}{}
		out = append(out, m)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func (c *Catalog) hasRatingValue(pos int, v float64) bool {
	for _, r := range c.ratingsAt(pos) {
		if r.Score == v {
			return true
		}
	}
	return false
}

// MovieStats 返回 CEL 表达式使用的电影统计。
func (c *Catalog) MovieStats(id int64) dsl.MovieStats {
	pos, ok := c.index[id]
	if !ok {
		return dsl.MovieStats{}
	}
	return dsl.MovieStats{
		RatingCount: c.movieOffsets[pos+1] - c.movieOffsets[pos],
		AvgRating:   c.avgRating[pos],
	}
}

// TrailerSearchURL 返回该标题的预告片搜索链接。
func TrailerSearchURL(title string) string {
	return trailerSearchBase + url.QueryEscape(title) + "&page=1"
}
