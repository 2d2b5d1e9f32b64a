package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rushteam/cinesuggest/core"
	"github.com/rushteam/cinesuggest/pkg/logging"
)

// Sources 是目录的数据来源。Movies 与 Ratings 必填，Tags 可选。
type Sources struct {
	Movies  io.Reader
	Ratings io.Reader
	Tags    io.Reader
}

// Paths 是 CSV 文件路径。Tags 为空表示不加载关键词。
type Paths struct {
	Movies  string `koanf:"movies"`
	Ratings string `koanf:"ratings"`
	Tags    string `koanf:"tags"`
}

// 列名别名（小写比较）
var (
	colMovieID   = []string{"movie_id", "movieid", "id"}
	colTitle     = []string{"title"}
	colGenres    = []string{"genres", "genre"}
	colUserID    = []string{"user_id", "userid"}
	colRating    = []string{"rating", "score"}
	colTimestamp = []string{"timestamp"}
	colTag       = []string{"tag"}
)

// 每读取这么多行检查一次 ctx
const ctxCheckEvery = 1 << 16

// Load 从 CSV 数据源加载目录。缺少必需列或数据不可读时返回 DATA_LOAD_ERROR。
func Load(ctx context.Context, src Sources) (*Catalog, error) {
	if src.Movies == nil || src.Ratings == nil {
		return nil, core.NewDataLoadError("movies and ratings sources are required", nil)
	}

	start := time.Now()
	b := newBuilder()
	if err := readMovies(ctx, b, src.Movies); err != nil {
		return nil, err
	}
	if err := readRatings(ctx, b, src.Ratings); err != nil {
		return nil, err
	}
	if src.Tags != nil {
		if err := readTags(ctx, b, src.Tags); err != nil {
			return nil, err
		}
	}

	c, err := b.build(ctx)
	if err != nil {
		return nil, err
	}

	st := c.Stats()
	logging.With("catalog").Info().
		Int("movies", st.Movies).
		Int("ratings", st.Ratings).
		Int("users", st.Users).
		Int("tags", st.Tags).
		Int("orphan_ratings", st.OrphanRatings).
		Int("duplicate_ratings", st.DuplicateRating).
		Int("skipped_rows", st.SkippedRows).
		Dur("took", time.Since(start)).
		Msg("catalog loaded")
	return c, nil
}

// LoadFiles 按路径打开 CSV 文件并加载。
func LoadFiles(ctx context.Context, p Paths) (*Catalog, error) {
	movies, err := os.Open(p.Movies)
	if err != nil {
		return nil, core.NewDataLoadError("open movies", err)
	}
	defer movies.Close()

	ratings, err := os.Open(p.Ratings)
	if err != nil {
		return nil, core.NewDataLoadError("open ratings", err)
	}
	defer ratings.Close()

	src := Sources{Movies: movies, Ratings: ratings}
	if p.Tags != "" {
		tags, err := os.Open(p.Tags)
		if err != nil {
			return nil, core.NewDataLoadError("open tags", err)
		}
		defer tags.Close()
		src.Tags = tags
	}
	return Load(ctx, src)
}

func readMovies(ctx context.Context, b *builder, r io.Reader) error {
	return readTable(ctx, "movies", r, [][]string{colMovieID, colTitle, colGenres}, func(rec []string) bool {
		id, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return false
		}
		b.addMovie(id, strings.TrimSpace(rec[1]), rec[2])
		return true
	}, &b.stats)
}

func readRatings(ctx context.Context, b *builder, r io.Reader) error {
	return readTable(ctx, "ratings", r, [][]string{colUserID, colMovieID, colRating, colTimestamp}, func(rec []string) bool {
		user, err1 := strconv.ParseInt(rec[0], 10, 64)
		movie, err2 := strconv.ParseInt(rec[1], 10, 64)
		score, err3 := strconv.ParseFloat(rec[2], 64)
		ts, err4 := strconv.ParseInt(rec[3], 10, 64)
		if err := errors.Join(err1, err2, err3, err4); err != nil {
			return false
		}
		rt := core.Rating{UserID: user, MovieID: movie, Score: score, Timestamp: ts}
		if !rt.ValidScore() {
			return false
		}
		b.addRating(rt)
		return true
	}, &b.stats)
}

func readTags(ctx context.Context, b *builder, r io.Reader) error {
	return readTable(ctx, "tags", r, [][]string{colMovieID, colTag}, func(rec []string) bool {
		movie, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return false
		}
		b.addTag(movie, rec[1])
		return true
	}, &b.stats)
}

// readTable 解析表头，按 cols 的顺序把每行的对应字段交给 fn。
// fn 返回 false 表示该行无法解析，计入 SkippedRows。
func readTable(ctx context.Context, table string, r io.Reader, cols [][]string, fn func([]string) bool, st *Stats) error {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return core.NewDataLoadError("read "+table+" header", err)
	}
	idx, err := resolveColumns(header, cols)
	if err != nil {
		return core.NewDataLoadError(table, err)
	}

	rec := make([]string, len(cols))
	for n := 0; ; n++ {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return core.NewDataLoadError("read "+table, err)
			}
		}
		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return core.NewDataLoadError("read "+table, err)
		}
		ok := true
		for i, col := range idx {
			if col >= len(row) {
				ok = false
				break
			}
			rec[i] = row[col]
		}
		if !ok || !fn(rec) {
			st.SkippedRows++
		}
	}
}

func resolveColumns(header []string, cols [][]string) ([]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}

	idx := make([]int, len(cols))
	for i, aliases := range cols {
		found := -1
		for _, a := range aliases {
			if p, ok := pos[a]; ok {
				found = p
				break
			}
		}
		if found < 0 {
			return nil, fmt.Errorf("missing column %q", aliases[0])
		}
		idx[i] = found
	}
	return idx, nil
}
