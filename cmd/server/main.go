package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mla/mla/chart-go/internal/api"
	"github.com/mla/mla/chart-go/internal/chart"
	"github.com/mla/mla/chart-go/internal/chartstore"
	"github.com/mla/mla/chart-go/internal/collab"
	"github.com/mla/mla/chart-go/internal/config"
	"github.com/mla/mla/chart-go/internal/icon"
	"github.com/mla/mla/chart-go/internal/metrics"
	"github.com/mla/mla/chart-go/internal/plugin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queries, closeDB, err := openQueries(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer closeDB()

	collector := metrics.NewCollector("mla")
	charts := chartstore.NewService(queries, collector)

	catalog := func() *config.Catalog { return config.EmptyCatalog() }
	if _, err := os.Stat(cfg.TypesFile); err == nil {
		watcher, err := config.WatchCatalog(cfg.TypesFile, func(c *config.Catalog) {
			slog.Info("type catalog reloaded", "entities", len(c.Entities), "links", len(c.Links))
		})
		if err != nil {
			slog.Error("load type catalog", "error", err, "path", cfg.TypesFile)
			os.Exit(1)
		}
		defer watcher.Close()
		catalog = watcher.Current
	} else {
		slog.Warn("no type catalog, using renderer defaults", "path", cfg.TypesFile)
	}

	// Rooms load and save through the chart service so collaborative
	// edits show up as ordinary snapshot versions.
	hub := collab.NewHub(
		func(ctx context.Context, chartID string) (chart.SaveFile, error) {
			snap, err := charts.Load(ctx, chartID)
			if err != nil {
				return chart.SaveFile{}, err
			}
			return snap.File, nil
		},
		func(ctx context.Context, chartID string, file chart.SaveFile) error {
			_, err := charts.Save(ctx, chartID, file)
			return err
		},
		collector,
	)
	go hub.Run()

	r := api.NewRouter(api.Deps{
		Charts:         api.NewHandler(charts, plugin.NewDefaultRegistry(), catalog, collector),
		Icons:          icon.NewHandler(cfg.IconDir),
		Metrics:        collector,
		Rooms:          hub.Handler(cfg.AllowedOrigins),
		AllowedOrigins: cfg.AllowedOrigins,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop hub first to save all dirty rooms
		slog.Info("saving open charts...")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// openQueries connects to Postgres and applies the schema. A DATABASE_URL
// of "memory" keeps charts in process, for demos and local development.
func openQueries(ctx context.Context, url string) (chartstore.Queries, func(), error) {
	if url == "memory" {
		slog.Warn("using in-memory chart storage; charts are lost on exit")
		return chartstore.NewMemory(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("create pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	pg := chartstore.NewPostgres(pool)
	if err := pg.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pg, pool.Close, nil
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}
