package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gyaneshwarpardhi/alerttree/internal/api"
	"github.com/gyaneshwarpardhi/alerttree/internal/config"
	"github.com/gyaneshwarpardhi/alerttree/internal/engine"
	"github.com/gyaneshwarpardhi/alerttree/internal/event"
	"github.com/gyaneshwarpardhi/alerttree/internal/handler"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	cfgPath := flag.String("config", "configs/alerttree.yaml", "Path to engine YAML config")
	traceOut := flag.Bool("trace", false, "Export execution spans to stdout")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Tracing ───────────────────────────────────────────────────────────────
	if *traceOut {
		shutdownTracing, err := setupTracing("alerttree")
		if err != nil {
			slog.Error("failed to set up tracing", "err", err)
			os.Exit(1)
		}
		defer func() {
			tctx, tcancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer tcancel()
			_ = shutdownTracing(tctx)
		}()
	}

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath, logger)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()

	// ── Handlers + engine ─────────────────────────────────────────────────────
	sink := &event.Fanout{}
	sink.Subscribe(event.LogSink{Logger: logger})

	reg := handler.NewRegistry(logger)
	eng := engine.New(ctx, reg, sink, cfg.Engine, logger)
	handler.RegisterBuiltins(reg, eng, logger)
	slog.Info("handlers registered", "actions", len(reg.Actions()), "conditions", len(reg.Conditions()))

	// ── Initial tree load ─────────────────────────────────────────────────────
	source := engine.NewFileSource(eng, logger)
	syncTrees := func(c *config.Config) error {
		files, err := loader.TreeFiles(c)
		if err != nil {
			return err
		}
		return source.Sync(files)
	}
	if err := syncTrees(cfg); err != nil {
		slog.Error("failed to load trees", "err", err)
		os.Exit(1)
	}

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	// Engine pool sizes are fixed at startup; only the tree list reloads.
	loader.OnChange(func(newCfg *config.Config) {
		if err := syncTrees(newCfg); err != nil {
			slog.Warn("hot-reload skipped: tree load failed", "err", err)
			return
		}
		slog.Info("trees hot-reloaded", "trees", len(eng.Trees()))
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}
	reload := func() error {
		_, err := loader.Reload()
		if err != nil {
			return err
		}
		return syncTrees(loader.Config())
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         *addr,
		Handler:      api.New(eng, reload, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	eng.Shutdown() // drain queued executions and notifications
	cancel()
	slog.Info("goodbye")
}
