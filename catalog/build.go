package catalog

import (
	"cmp"
	"context"
	"math"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/cinesuggest/core"
)

// builder 收集原始行，build 时一次性生成不可变索引。CSV 与 SQLite 加载共用。
type builder struct {
	movies  []core.Movie
	seen    map[int64]struct{}
	order   []int64
	ratings []core.Rating
	tags    map[int64]map[string]int
	stats   Stats
}

func newBuilder() *builder {
	return &builder{
		seen: make(map[int64]struct{}),
	}
}

func (b *builder) addMovie(id int64, title, genres string) {
	if _, dup := b.seen[id]; dup {
		b.stats.DuplicateMovies++
		return
	}
	b.seen[id] = struct{}{}
	b.movies = append(b.movies, core.Movie{
		ID:     id,
		Title:  title,
		Year:   ParseYear(title),
		Genres: SplitGenres(genres),
	})
	b.order = append(b.order, id)
}

func (b *builder) addRating(r core.Rating) {
	b.ratings = append(b.ratings, r)
}

func (b *builder) addTag(movieID int64, tag string) {
	b.addTagN(movieID, tag, 1)
}

func (b *builder) addTagN(movieID int64, tag string, n int) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" || n <= 0 {
		return
	}
	if b.tags == nil {
		b.tags = make(map[int64]map[string]int)
	}
	m := b.tags[movieID]
	if m == nil {
		m = make(map[string]int)
		b.tags[movieID] = m
	}
	m[tag] += n
	b.stats.Tags += n
}

func (b *builder) build(ctx context.Context) (*Catalog, error) {
	if len(b.movies) == 0 {
		return nil, core.NewDataLoadError("movie table is empty", nil)
	}

	movies := b.movies
	slices.SortFunc(movies, func(x, y core.Movie) int { return cmp.Compare(x.ID, y.ID) })
	index := make(map[int64]int, len(movies))
	for pos, m := range movies {
		index[m.ID] = pos
	}

	// 丢弃引用未知电影的评分
	kept := b.ratings[:0]
	for _, r := range b.ratings {
		if _, ok := index[r.MovieID]; !ok {
			b.stats.OrphanRatings++
			continue
		}
		kept = append(kept, r)
	}

	// 稳定排序后同一 (movie, user) 的多条评分保持源顺序，保留最后一条
	slices.SortStableFunc(kept, func(x, y core.Rating) int {
		if d := cmp.Compare(x.MovieID, y.MovieID); d != 0 {
			return d
		}
		return cmp.Compare(x.UserID, y.UserID)
	})
	ratings := kept[:0]
	for i := range kept {
		if i+1 < len(kept) && kept[i].MovieID == kept[i+1].MovieID && kept[i].UserID == kept[i+1].UserID {
			b.stats.DuplicateRating++
			continue
		}
		ratings = append(ratings, kept[i])
	}
	if len(ratings) > math.MaxInt32 {
		return nil, core.NewDataLoadError("too many ratings", nil)
	}
	ratings = slices.Clip(ratings)

	order := make([]int, len(b.order))
	for i, id := range b.order {
		order[i] = index[id]
	}

	c := &Catalog{
		movies:  movies,
		index:   index,
		order:   order,
		ratings: ratings,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.buildMovieOffsets()
		return ctx.Err()
	})
	g.Go(func() error {
		c.buildUserIndex()
		return ctx.Err()
	})
	g.Go(func() error {
		c.buildKeywords(b.tags)
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, core.NewDataLoadError("build index", err)
	}

	b.stats.Movies = len(movies)
	b.stats.Ratings = len(ratings)
	b.stats.Users = len(c.users)
	c.stats = b.stats
	return c, nil
}

// buildMovieOffsets 依赖 movies 与 ratings 均按电影 ID 升序。
func (c *Catalog) buildMovieOffsets() {
	c.movieOffsets = make([]int, len(c.movies)+1)
	c.avgRating = make([]float64, len(c.movies))
	ri := 0
	for pos, m := range c.movies {
		c.movieOffsets[pos] = ri
		var sum float64
		for ri < len(c.ratings) && c.ratings[ri].MovieID == m.ID {
			sum += c.ratings[ri].Score
			ri++
		}
		if n := ri - c.movieOffsets[pos]; n > 0 {
			c.avgRating[pos] = sum / float64(n)
		}
	}
	c.movieOffsets[len(c.movies)] = ri
}

func (c *Catalog) buildUserIndex() {
	counts := make(map[int64]int)
	for _, r := range c.ratings {
		counts[r.UserID]++
	}
	c.users = make([]int64, 0, len(counts))
	for u := range counts {
		c.users = append(c.users, u)
	}
	slices.Sort(c.users)

	c.userIndex = make(map[int64]int, len(c.users))
	c.userOffsets = make([]int, len(c.users)+1)
	for pos, u := range c.users {
		c.userIndex[u] = pos
		c.userOffsets[pos+1] = c.userOffsets[pos] + counts[u]
	}

	// ratings 按电影升序遍历，每个用户的列表自然按电影升序
	cursor := make([]int, len(c.users))
	copy(cursor, c.userOffsets[:len(c.users)])
	c.userRatings = make([]int32, len(c.ratings))
	for i, r := range c.ratings {
		pos := c.userIndex[r.UserID]
		c.userRatings[cursor[pos]] = int32(i)
		cursor[pos]++
	}
}

func (c *Catalog) buildKeywords(tags map[int64]map[string]int) {
	if len(tags) == 0 {
		return
	}
	c.keywords = make([][]Keyword, len(c.movies))
	for movieID, counts := range tags {
		pos, ok := c.index[movieID]
		if !ok {
			continue
		}
		kws := make([]Keyword, 0, len(counts))
		for tag, n := range counts {
			kws = append(kws, Keyword{Tag: tag, Count: n})
		}
		slices.SortFunc(kws, func(x, y Keyword) int {
			if d := cmp.Compare(y.Count, x.Count); d != 0 {
				return d
			}
			return cmp.Compare(x.Tag, y.Tag)
		})
		c.keywords[pos] = kws
	}
}
