// Package catalog 是电影目录与评分表的只读内存快照。
//
// Catalog 在进程启动时加载一次（CSV 或 SQLite），之后不可变，
// 可被并发请求无锁共享。
package catalog

import (
	"fmt"
	"iter"
	"sort"

	"github.com/rushteam/cinesuggest/core"
)

// Keyword 是电影的一个文本标签及其出现次数（来自可选的 tags 表）。
type Keyword struct {
	Tag   string
	Count int
}

// Stats 记录加载过程中的计数，便于运维排查数据质量。
type Stats struct {
	Movies          int
	Ratings         int
	Users           int
	Tags            int
	DuplicateMovies int // 重复的电影 ID（保留首条）
	DuplicateRating int // 重复的 (user, movie) 评分（保留最后一条）
	OrphanRatings   int // 引用了不存在电影的评分（丢弃）
	SkippedRows     int // 字段无法解析或评分越界的行（丢弃）
}

// Catalog 是电影与评分的不可变快照。
//
// 内部布局：
//   - movies 按 ID 升序，position 即下标
//   - ratings 按 (MovieID, UserID) 排序，movieOffsets 是按 position 的 CSR 偏移
//   - userRatings 保存指向 ratings 的下标，按用户分组（CSR）
type Catalog struct {
	movies []core.Movie
	index  map[int64]int
	order  []int // 源顺序下的 position

	ratings      []core.Rating
	movieOffsets []int
	avgRating    []float64

	users       []int64
	userIndex   map[int64]int
	userOffsets []int
	userRatings []int32

	keywords [][]Keyword

	stats Stats
}

// Len 返回电影数量。
func (c *Catalog) Len() int {
	return len(c.movies)
}

// Stats 返回加载统计。
func (c *Catalog) Stats() Stats {
	return c.stats
}

// GetMovie 按 ID 获取电影，不存在时返回 NOT_FOUND。
func (c *Catalog) GetMovie(id int64) (core.Movie, error) {
	pos, ok := c.index[id]
	if !ok {
		return core.Movie{}, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeNotFound,
			fmt.Sprintf("catalog: movie %d not found", id))
	}
	return c.movies[pos], nil
}

// Position 返回电影在目录中的位置（按 ID 升序）。
func (c *Catalog) Position(id int64) (int, bool) {
	pos, ok := c.index[id]
	return pos, ok
}

// MovieAt 返回位置 pos 上的电影。
func (c *Catalog) MovieAt(pos int) core.Movie {
	return c.movies[pos]
}

// AllMovies 按 ID 升序遍历所有电影。序列可重复遍历。
func (c *Catalog) AllMovies() iter.Seq[core.Movie] {
	return func(yield func(core.Movie) bool) {
		for _, m := range c.movies {
			if !yield(m) {
				return
			}
		}
	}
}

// Titles 按数据源中的顺序返回所有标题（UI 选择列表使用）。
func (c *Catalog) Titles() []string {
	out := make([]string, len(c.order))
	for i, pos := range c.order {
		out[i] = c.movies[pos].Title
	}
	return out
}

// NumRatings 返回去重后的评分总数。
func (c *Catalog) NumRatings() int {
	return len(c.ratings)
}

// Ratings 按 (MovieID, UserID) 顺序遍历所有评分。
func (c *Catalog) Ratings() iter.Seq[core.Rating] {
	return func(yield func(core.Rating) bool) {
		for _, r := range c.ratings {
			if !yield(r) {
				return
			}
		}
	}
}

// MovieRatings 返回某部电影的全部评分（按 UserID 升序）。返回值只读。
func (c *Catalog) MovieRatings(id int64) []core.Rating {
	pos, ok := c.index[id]
	if !ok {
		return nil
	}
	return c.ratingsAt(pos)
}

func (c *Catalog) ratingsAt(pos int) []core.Rating {
	lo, hi := c.movieOffsets[pos], c.movieOffsets[pos+1]
	return c.ratings[lo:hi:hi]
}

// RatingCount 返回某部电影的评分数。
func (c *Catalog) RatingCount(id int64) int {
	pos, ok := c.index[id]
	if !ok {
		return 0
	}
	return c.movieOffsets[pos+1] - c.movieOffsets[pos]
}

// AvgRating 返回某部电影的平均分，无评分时为 0。
func (c *Catalog) AvgRating(id int64) float64 {
	pos, ok := c.index[id]
	if !ok {
		return 0
	}
	return c.avgRating[pos]
}

// NumUsers 返回有评分的用户数。
func (c *Catalog) NumUsers() int {
	return len(c.users)
}

// UserPosition 返回用户在升序用户表中的位置。
func (c *Catalog) UserPosition(userID int64) (int, bool) {
	pos, ok := c.userIndex[userID]
	return pos, ok
}

// UserRatings 遍历某个用户的全部评分（按 MovieID 升序）。
func (c *Catalog) UserRatings(userID int64) iter.Seq[core.Rating] {
	return func(yield func(core.Rating) bool) {
		pos, ok := c.userIndex[userID]
		if !ok {
			return
		}
		for _, ri := range c.userRatings[c.userOffsets[pos]:c.userOffsets[pos+1]] {
			if !yield(c.ratings[ri]) {
				return
			}
		}
	}
}

// Keywords 返回电影的文本标签（按出现次数降序、标签升序）。
func (c *Catalog) Keywords(id int64) []Keyword {
	pos, ok := c.index[id]
	if !ok || c.keywords == nil {
		return nil
	}
	return c.keywords[pos]
}

// Genres 返回目录中出现过的全部类型标签（升序）。
func (c *Catalog) Genres() []string {
	set := make(map[string]struct{})
	for _, m := range c.movies {
		for _, g := range m.Genres {
			set[g] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for g := range set {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Years 返回目录中出现过的上映年份（降序，不含未知年份）。
func (c *Catalog) Years() []int {
	set := make(map[int]struct{})
	for _, m := range c.movies {
		if m.Year > 0 {
			set[m.Year] = struct{}{}
		}
	}
	out := make([]int, 0, len(set))
	for y := range set {
		out = append(out, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
