// Command api runs the ledger HTTP service: migrations, a connection pool,
// the transfer executor, and the read-side store, wired to the route table
// in internal/api.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/punchamoorthee/ledgerops/internal/api"
	"github.com/punchamoorthee/ledgerops/internal/config"
	"github.com/punchamoorthee/ledgerops/internal/executor"
	"github.com/punchamoorthee/ledgerops/internal/logging"
	"github.com/punchamoorthee/ledgerops/internal/metrics"
	"github.com/punchamoorthee/ledgerops/internal/store"
	"github.com/punchamoorthee/ledgerops/internal/store/migrate"
)

func main() {
	log := logging.NewJSON(os.Stdout, slog.LevelInfo)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Error(ctx, "config load failed", "error", err)
		os.Exit(1)
	}

	if err := migrate.Up(ctx, cfg.DBSource); err != nil {
		log.Error(ctx, "migration failed", "error", err)
		os.Exit(1)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DBSource)
	if err != nil {
		log.Error(ctx, "invalid DB_SOURCE", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error(ctx, "unable to create connection pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Error(ctx, "unable to reach database", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTP(registry)
	executorMetrics := metrics.NewExecutor(registry)

	ex := executor.NewTransferExecutor(executor.NewBeginner(pool), log.With("component", "executor"), executorMetrics)
	s := store.New(pool)
	h := api.NewHandler(ex, s, log.With("component", "api"), httpMetrics)

	router := h.Router()
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	}

	go func() {
		log.Info(ctx, "server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()

	log.Info(ctx, "shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "graceful shutdown failed", "error", err)
	}
}
