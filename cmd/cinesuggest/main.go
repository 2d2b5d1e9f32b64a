// Command cinesuggest 提供推荐服务与命令行工具。
//
//	cinesuggest serve -config config.yaml
//	cinesuggest recommend -config config.yaml -algorithm content -movie "Toy Story (1995)" -movie "Heat (1995)" -movie "Casino (1995)"
//	cinesuggest import -config config.yaml -out catalog.db
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rushteam/cinesuggest/catalog"
	"github.com/rushteam/cinesuggest/config"
	"github.com/rushteam/cinesuggest/core"
	"github.com/rushteam/cinesuggest/pkg/logging"
	"github.com/rushteam/cinesuggest/service"
	"github.com/rushteam/cinesuggest/store"
)

const usage = `usage: cinesuggest <command> [flags]

commands:
  serve       run the HTTP API
  recommend   print recommendations for seed titles
  import      convert the CSV catalog into a SQLite database
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx, os.Args[2:])
	case "recommend":
		err = runRecommend(ctx, os.Args[2:], os.Stdout)
	case "import":
		err = runImport(ctx, os.Args[2:])
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		logging.Error().Err(err).Str("command", os.Args[1]).Msg("command failed")
		os.Exit(1)
	}
}

// stringList 是可重复的字符串 flag。
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ", ") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// app 是各子命令共享的进程级状态。
type app struct {
	cfg   *config.AppConfig
	cat   *catalog.Catalog
	store core.Store
}

func loadApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logging.Init(cfg.Log)

	cat, err := loadCatalog(ctx, cfg.Data)
	if err != nil {
		return nil, err
	}

	s, err := store.Open(ctx, cfg.ModelCache)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, cat: cat, store: s}, nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logging.Warn().Err(err).Msg("close store")
		}
	}
}

func loadCatalog(ctx context.Context, data config.DataConfig) (*catalog.Catalog, error) {
	if data.SQLite == "" {
		return catalog.LoadFiles(ctx, data.Paths())
	}
	db, err := catalog.OpenSQLite(data.SQLite)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return catalog.LoadSQLite(ctx, db)
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config.yaml")
	addr := fs.String("addr", "", "listen address (overrides server.addr)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := loadApp(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.close()
	if *addr != "" {
		a.cfg.Server.Addr = *addr
	}

	rec, err := service.New(a.cat, service.OptionsFrom(a.cfg, a.store))
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr: a.cfg.Server.Addr,
		Handler: service.NewHandler(rec, service.HTTPOptions{
			RequiredSeeds:  a.cfg.Recommend.RequiredSeeds,
			MaxTopN:        a.cfg.Recommend.MaxTopN,
			RequestTimeout: a.cfg.Server.RequestTimeout,
		}),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 2)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		start := time.Now()
		if err := rec.Warm(ctx); err != nil {
			errCh <- fmt.Errorf("warm up: %w", err)
			return
		}
		logging.Info().Dur("took", time.Since(start)).Msg("engines ready")
	}()

	select {
	case <-ctx.Done():
		logging.Info().Msg("shutting down")
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logging.Warn().Err(serr).Msg("http shutdown")
	}
	return err
}

func runRecommend(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("recommend", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config.yaml")
	algorithm := fs.String("algorithm", core.AlgorithmContent, "content or collaborative")
	topN := fs.Int("n", 0, "number of recommendations (0 uses recommend.top_n)")
	var movies stringList
	fs.Var(&movies, "movie", "seed movie title (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := loadApp(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.close()

	rec, err := service.New(a.cat, service.OptionsFrom(a.cfg, a.store))
	if err != nil {
		return err
	}

	titles, err := rec.Recommend(ctx, *algorithm, movies, *topN)
	if err != nil {
		fmt.Fprintln(os.Stderr, service.UserMessage(err))
		return err
	}
	for i, t := range titles {
		fmt.Fprintf(out, "%2d. %s\n", i+1, t)
	}
	return nil
}

func runImport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config.yaml")
	outPath := fs.String("out", "catalog.db", "SQLite database to write")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logging.Init(cfg.Log)

	cat, err := catalog.LoadFiles(ctx, cfg.Data.Paths())
	if err != nil {
		return err
	}

	db, err := catalog.OpenSQLite(*outPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := catalog.InitSchema(ctx, db); err != nil {
		return err
	}
	if err := catalog.SaveSQLite(ctx, db, cat); err != nil {
		return err
	}
	st := cat.Stats()
	logging.Info().
		Str("out", *outPath).
		Int("movies", st.Movies).
		Int("ratings", st.Ratings).
		Msg("catalog imported")
	return nil
}
