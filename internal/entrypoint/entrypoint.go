// Package entrypoint wires the application together and runs the HTTP server
// with graceful shutdown.
package entrypoint

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mkazlouski/sparkpad/internal/config"
	"github.com/mkazlouski/sparkpad/internal/generator"
	controllers "github.com/mkazlouski/sparkpad/internal/http"
	"github.com/mkazlouski/sparkpad/internal/ideas"
	"github.com/mkazlouski/sparkpad/internal/scheduler"
	"github.com/mkazlouski/sparkpad/internal/storage"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

const startupTimeout = 30 * time.Second

// Serve runs the HTTP server until SIGINT/SIGTERM, then shuts down within
// the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Info().Str("host", cfg.HTTP.Host).Int32("port", cfg.HTTP.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Dur("timeout", timeout).Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server shutdown failed")
	}

	log.Info().Msg("server exiting")
}

// Run boots the storage manager, the services on top of it, and the HTTP
// server.
func Run(cfg *config.Config, version string) {
	log.Info().Str("version", version).Msg("starting sparkpad")

	manager := storage.NewManager(cfg.Storage.DataDir, cfg.Storage.DefaultDatabase)
	manager.Start()

	startCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	if err := manager.WhenReady(startCtx); err != nil {
		log.Fatal().Err(err).Str("data_dir", cfg.Storage.DataDir).Msg("storage initialization failed")
	}

	var gen ideas.IdeaGenerator
	if cfg.Generator.APIKey != "" {
		gen = generator.NewClient(cfg.Generator.APIKey, cfg.Generator.BaseURL, cfg.Generator.Model)
	} else {
		log.Warn().Msg("GENERATOR_API_KEY is not set, idea generation endpoints will fail")
	}
	ideasService := ideas.NewService(manager, gen)

	router := controllers.NewRouter(controllers.RouterConfig{
		Manager: manager,
		Ideas:   ideasService,
		Version: version,
	})

	snapshots := scheduler.NewSnapshotScheduler(manager, cfg.Snapshots)
	if err := snapshots.Start(); err != nil {
		log.Fatal().Err(err).Msg("snapshot scheduler failed to start")
	}

	Serve(router, cfg, func(ctx context.Context) {
		snapshots.Stop()
	})
}
