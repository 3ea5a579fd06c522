// Command siteindexd serves the district site index: REST API, admin
// tooling, and the read-through cache in front of PostgreSQL.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bryan-besnyi/siteindex/cache"
	"github.com/bryan-besnyi/siteindex/cache/codec"
	"github.com/bryan-besnyi/siteindex/cache/hooks/async"
	cachezap "github.com/bryan-besnyi/siteindex/cache/log/zap"
	pr "github.com/bryan-besnyi/siteindex/cache/provider"
	memoryprov "github.com/bryan-besnyi/siteindex/cache/provider/memory"
	redisprov "github.com/bryan-besnyi/siteindex/cache/provider/redis"
	ristrettoprov "github.com/bryan-besnyi/siteindex/cache/provider/ristretto"
	"github.com/bryan-besnyi/siteindex/config"
	"github.com/bryan-besnyi/siteindex/internal/httpapi"
	"github.com/bryan-besnyi/siteindex/internal/linkcheck"
	"github.com/bryan-besnyi/siteindex/internal/listing"
	"github.com/bryan-besnyi/siteindex/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	prov, err := newProvider(cfg)
	if err != nil {
		return err
	}

	stats := &cache.Stats{}
	hooks := async.New(stats, 1, 1024)
	defer hooks.Close()
	clog := cachezap.Logger{L: log.Named("cache")}

	idx, err := cache.New[[]listing.Listing](cache.Options[[]listing.Listing]{
		Provider:         prov,
		Codec:            codec.JSON[[]listing.Listing]{},
		Logger:           clog,
		Hooks:            hooks,
		DefaultTTL:       cfg.Cache.TTL,
		CoalescePopulate: cfg.Cache.Coalesce,
		Disabled:         !cfg.Cache.Enabled,
	})
	if err != nil {
		return fmt.Errorf("build listings cache: %w", err)
	}
	defer idx.Close(context.Background()) // owns prov

	counts, err := cache.New[[]listing.Counts](cache.Options[[]listing.Counts]{
		Provider:   prov, // shared; idx owns the close
		Codec:      codec.JSON[[]listing.Counts]{},
		Logger:     clog,
		Hooks:      hooks,
		DefaultTTL: cfg.Cache.TTL,
		Disabled:   !cfg.Cache.Enabled,
	})
	if err != nil {
		return fmt.Errorf("build counts cache: %w", err)
	}

	st := store.New(db, idx, counts, log.Named("store"))

	checker, memoClose, err := newChecker(cfg, clog, log)
	if err != nil {
		return err
	}
	defer memoClose()

	srv := httpapi.New(cfg, st, idx, stats, checker, log.Named("http"))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	log.Info("siteindex started",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("cache", cfg.Cache.Backend),
		zap.Bool("cacheEnabled", cfg.Cache.Enabled),
	)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case sig := <-stop:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.App.Env == config.EnvDevelopment || cfg.App.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newProvider(cfg *config.Config) (pr.Provider, error) {
	switch cfg.Cache.Backend {
	case config.BackendRedis:
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		return redisprov.New(redisprov.Config{Client: rdb, CloseClient: true})
	default:
		return memoryprov.New(time.Minute), nil
	}
}

// newChecker builds the link checker with its ristretto-backed memo.
func newChecker(cfg *config.Config, clog cachezap.Logger, log *zap.Logger) (*linkcheck.Checker, func(), error) {
	memoProv, err := ristrettoprov.New(ristrettoprov.Config{
		NumCounters: 10_000,
		MaxCost:     1 << 20, // ~1MB of memoized results
		BufferItems: 64,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build linkcheck memo: %w", err)
	}
	memo, err := cache.New[listing.LinkResult](cache.Options[listing.LinkResult]{
		Provider:   memoProv,
		Codec:      codec.JSON[listing.LinkResult]{},
		Logger:     clog,
		DefaultTTL: cfg.LinkCheck.MemoTTL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build linkcheck memo cache: %w", err)
	}

	checker := linkcheck.New(linkcheck.Config{
		BatchSize:   cfg.LinkCheck.BatchSize,
		Concurrency: cfg.LinkCheck.Concurrency,
		Timeout:     cfg.LinkCheck.Timeout,
		BatchEvery:  cfg.LinkCheck.BatchEvery,
		MemoTTL:     cfg.LinkCheck.MemoTTL,
	}, memo, log.Named("linkcheck"))

	return checker, func() { memo.Close(context.Background()) }, nil
}
