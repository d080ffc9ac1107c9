package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"shelfql/internal/cache"
	"shelfql/internal/render"
	"shelfql/internal/server"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sess, closeStorage, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer closeStorage()

			pageCache, err := cache.New(cache.Config{
				Backend: cfg.Cache.Backend,
				TTL:     cfg.Cache.TTL.Std(),
				Redis: cache.RedisConfig{
					URL: cfg.Cache.RedisURL,
					TTL: cfg.Cache.TTL.Std(),
				},
			})
			if err != nil {
				return err
			}
			defer func() { _ = pageCache.Close() }()

			rn := render.New(render.Config{
				Dirs: cfg.Render.TemplateDirs,
				Processors: []render.Processor{
					render.StaticProcessor(cfg.Render.StaticURL),
				},
				Cache: pageCache,
			})

			if cfg.Server.AdminKey == "" {
				slog.Warn("no admin key configured, fixture reloads are unauthenticated")
			}

			srv := server.New(sess, rn, &server.Config{
				AdminKey:        cfg.Server.AdminKey,
				MetricsEnabled:  cfg.Server.MetricsEnabled,
				MetricsEndpoint: cfg.Server.MetricsEndpoint,
				AltTemplateDirs: cfg.Render.AltTemplateDirs,
			})

			// Handle graceful shutdown
			go func() {
				quit := make(chan os.Signal, 1)
				signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
				<-quit

				slog.Info("shutting down server...")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := srv.Shutdown(shutdownCtx); err != nil {
					slog.Error("server shutdown error", "error", err)
				}
			}()

			addr := ":" + cfg.Server.Port
			slog.Info("starting server", "address", addr, "storage", cfg.Storage.Type)

			if err := srv.Start(addr); err != nil {
				if errors.Is(err, http.ErrServerClosed) {
					slog.Info("server stopped gracefully")
					return nil
				}
				return err
			}
			return nil
		},
	}
}
