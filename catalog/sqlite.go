package catalog

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rushteam/cinesuggest/core"
	"github.com/rushteam/cinesuggest/pkg/logging"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS movies (
	movie_id INTEGER NOT NULL UNIQUE,
	title    TEXT NOT NULL,
	genres   TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS ratings (
	user_id   INTEGER NOT NULL,
	movie_id  INTEGER NOT NULL,
	rating    REAL NOT NULL,
	timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ratings_movie ON ratings(movie_id);
CREATE TABLE IF NOT EXISTS tags (
	movie_id INTEGER NOT NULL,
	tag      TEXT NOT NULL
);`

type movieRow struct {
	ID     int64  `db:"movie_id"`
	Title  string `db:"title"`
	Genres string `db:"genres"`
}

type ratingRow struct {
	UserID    int64   `db:"user_id"`
	MovieID   int64   `db:"movie_id"`
	Rating    float64 `db:"rating"`
	Timestamp int64   `db:"timestamp"`
}

type tagRow struct {
	MovieID int64  `db:"movie_id"`
	Tag     string `db:"tag"`
	N       int    `db:"n"`
}

// OpenSQLite 打开 SQLite 数据库（go-sqlite3 驱动）。
func OpenSQLite(path string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, core.NewDataLoadError("open sqlite "+path, err)
	}
	return db, nil
}

// InitSchema 创建 movies / ratings / tags 表（已存在时跳过）。
func InitSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return core.NewDataLoadError("init sqlite schema", err)
	}
	return nil
}

// LoadSQLite 从 SQLite 加载目录。tags 表不存在时不加载关键词。
func LoadSQLite(ctx context.Context, db *sqlx.DB) (*Catalog, error) {
	start := time.Now()
	b := newBuilder()

	if err := scanSQLiteMovies(ctx, db, b); err != nil {
		return nil, err
	}
	if err := scanSQLiteRatings(ctx, db, b); err != nil {
		return nil, err
	}

	hasTags, err := sqliteHasTable(ctx, db, "tags")
	if err != nil {
		return nil, err
	}
	if hasTags {
		var tags []tagRow
		err := db.SelectContext(ctx, &tags, `SELECT movie_id, tag, COUNT(*) AS n FROM tags GROUP BY movie_id, tag`)
		if err != nil {
			return nil, core.NewDataLoadError("query tags", err)
		}
		for _, t := range tags {
			b.addTagN(t.MovieID, t.Tag, t.N)
		}
	}

	c, err := b.build(ctx)
	if err != nil {
		return nil, err
	}
	logging.With("catalog").Info().
		Str("source", "sqlite").
		Int("movies", c.stats.Movies).
		Int("ratings", c.stats.Ratings).
		Dur("took", time.Since(start)).
		Msg("catalog loaded")
	return c, nil
}

func scanSQLiteMovies(ctx context.Context, db *sqlx.DB, b *builder) error {
	rows, err := db.QueryxContext(ctx, `SELECT movie_id, title, genres FROM movies ORDER BY rowid`)
	if err != nil {
		return core.NewDataLoadError("query movies", err)
	}
	defer rows.Close()
	for rows.Next() {
		var row movieRow
		if err := rows.StructScan(&row); err != nil {
			return core.NewDataLoadError("scan movies", err)
		}
		b.addMovie(row.ID, strings.TrimSpace(row.Title), row.Genres)
	}
	if err := rows.Err(); err != nil {
		return core.NewDataLoadError("read movies", err)
	}
	return nil
}

func scanSQLiteRatings(ctx context.Context, db *sqlx.DB, b *builder) error {
	rows, err := db.QueryxContext(ctx, `SELECT user_id, movie_id, rating, timestamp FROM ratings ORDER BY rowid`)
	if err != nil {
		return core.NewDataLoadError("query ratings", err)
	}
	defer rows.Close()
	for rows.Next() {
		var row ratingRow
		if err := rows.StructScan(&row); err != nil {
			return core.NewDataLoadError("scan ratings", err)
		}
		rt := core.Rating{UserID: row.UserID, MovieID: row.MovieID, Score: row.Rating, Timestamp: row.Timestamp}
		if !rt.ValidScore() {
			b.stats.SkippedRows++
			continue
		}
		b.addRating(rt)
	}
	if err := rows.Err(); err != nil {
		return core.NewDataLoadError("read ratings", err)
	}
	return nil
}

func sqliteHasTable(ctx context.Context, db *sqlx.DB, name string) (bool, error) {
	var found string
	err := db.GetContext(ctx, &found, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, core.NewDataLoadError("inspect sqlite schema", err)
	}
	return true, nil
}

// SaveSQLite 把目录写入 SQLite（用于 CSV 到 SQLite 的一次性导入）。
// 写入在单个事务中完成；目标表应为空。
func SaveSQLite(ctx context.Context, db *sqlx.DB, c *Catalog) error {
	if err := InitSchema(ctx, db); err != nil {
		return err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return core.NewDataLoadError("begin tx", err)
	}
	defer tx.Rollback()

	movieStmt, err := tx.PrepareNamedContext(ctx, `INSERT INTO movies (movie_id, title, genres) VALUES (:movie_id, :title, :genres)`)
	if err != nil {
		return core.NewDataLoadError("prepare movies", err)
	}
	defer movieStmt.Close()

	// 按源顺序写入，保持 Titles() 的顺序
	for _, pos := range c.order {
		m := c.movies[pos]
		genres := strings.Join(m.Genres, "|")
		if genres == "" {
			genres = NoGenres
		}
		if _, err := movieStmt.ExecContext(ctx, movieRow{ID: m.ID, Title: m.Title, Genres: genres}); err != nil {
			return core.NewDataLoadError("insert movie", err)
		}
	}

	ratingStmt, err := tx.PrepareNamedContext(ctx, `INSERT INTO ratings (user_id, movie_id, rating, timestamp) VALUES (:user_id, :movie_id, :rating, :timestamp)`)
	if err != nil {
		return core.NewDataLoadError("prepare ratings", err)
	}
	defer ratingStmt.Close()
	for _, r := range c.ratings {
		row := ratingRow{UserID: r.UserID, MovieID: r.MovieID, Rating: r.Score, Timestamp: r.Timestamp}
		if _, err := ratingStmt.ExecContext(ctx, row); err != nil {
			return core.NewDataLoadError("insert rating", err)
		}
	}

	if c.keywords != nil {
		tagStmt, err := tx.PreparexContext(ctx, `INSERT INTO tags (movie_id, tag) VALUES (?, ?)`)
		if err != nil {
			return core.NewDataLoadError("prepare tags", err)
		}
		defer tagStmt.Close()
		for pos, kws := range c.keywords {
			for _, kw := range kws {
				for range kw.Count {
					if _, err := tagStmt.ExecContext(ctx, c.movies[pos].ID, kw.Tag); err != nil {
						return core.NewDataLoadError("insert tag", err)
					}
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return core.NewDataLoadError("commit", err)
	}
	return nil
}
