// portablemedia server
//
// Indexes a local media directory once at startup and serves file
// contents over HTTP through a bounded in-memory cache.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/JerrySMith13/portablemedia/internal/api"
	"github.com/JerrySMith13/portablemedia/internal/config"
	"github.com/JerrySMith13/portablemedia/internal/filemap"
	"github.com/JerrySMith13/portablemedia/internal/logging"
	"github.com/JerrySMith13/portablemedia/internal/metrics"
)

func main() {
	// Optional .env file; environment variables win.
	_ = godotenv.Load()

	rootFlag := pflag.String("root", "", "media root directory (overrides MEDIA_ROOT)")
	listenFlag := pflag.String("listen", "", "listen address (overrides LISTEN_ADDR)")
	pflag.Parse()

	cfg := config.Load()
	if *rootFlag != "" {
		cfg.MediaRoot = *rootFlag
	}
	if *listenFlag != "" {
		cfg.ListenAddr = *listenFlag
	}
	if cfg.MediaRoot == "" {
		// Can't use structured logging yet
		panic("configuration error: media root required (--root or MEDIA_ROOT)")
	}

	if err := logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}); err != nil {
		panic("logging init error: " + err.Error())
	}
	defer logging.Sync()

	logging.Info("portablemedia server starting...",
		zap.String("root", cfg.MediaRoot),
		zap.String("listen", cfg.ListenAddr),
		zap.String("metrics", cfg.MetricsAddr))

	// Index the media root. Blocks until the whole tree is built; the
	// server only comes up with a complete snapshot.
	start := time.Now()
	files, err := filemap.New(cfg.MediaRoot, logging.AnomalySink())
	if err != nil {
		logging.Fatal("indexing failed", zap.Error(err))
	}
	buildTime := time.Since(start)
	metrics.ObserveIndexBuild(buildTime)
	metrics.SetSnapshotNodes(files.Snapshot().Len())
	logging.Info("index built",
		zap.Int("nodes", files.Snapshot().Len()),
		zap.Duration("duration", buildTime))

	// Start metrics server
	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: metrics.Handler(),
	}
	go func() {
		logging.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logging.Error("metrics server error", zap.Error(err))
		}
	}()

	// Start HTTP server
	srv := api.NewServer(files)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Handler(),
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logging.Info("shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(ctx)
		metricsServer.Close()
	}()

	logging.Info("server listening", zap.String("addr", cfg.ListenAddr))
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("server error", zap.Error(err))
	}
	logging.Info("server stopped")
}
