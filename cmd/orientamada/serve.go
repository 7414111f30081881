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

	"github.com/orientamada/orientamada/internal/app"
	"github.com/orientamada/orientamada/internal/config"
	"github.com/orientamada/orientamada/internal/transport/web"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (pending migrations are applied first)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, env.conf)
		},
	}
}

// serve runs the server until ctx ends, then drains it / Sert jusqu'à la fin de ctx puis draine
func serve(ctx context.Context, conf *config.Config) error {
	logStartupInfo(conf)

	container, err := app.NewContainer(conf)
	if err != nil {
		return err
	}
	defer container.Close()

	router := web.NewRouter(container)
	defer router.Close()

	srv := &http.Server{
		Addr:              ":" + conf.Server.Port,
		Handler:           router,
		ReadTimeout:       conf.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      conf.Server.WriteTimeout,
		IdleTimeout:       conf.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		timeout := conf.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}

func logStartupInfo(conf *config.Config) {
	slog.Info("starting OrientaMada",
		"version", app.Version,
		"environment", conf.Environment,
		"port", conf.Server.Port,
		"database", conf.Database.Type,
	)

	if conf.RateLimiter.Enabled {
		slog.Info("rate limiter enabled", "rps", conf.RateLimiter.RPS, "burst", conf.RateLimiter.Burst)
	} else {
		slog.Warn("rate limiter is disabled")
	}
	if conf.Google.Enabled {
		slog.Info("google sign-in enabled")
	}
}
