// main is the entry point of the Users API.
//
// STARTUP SEQUENCE:
//  1. Load configuration (YAML file, or environment / .env)
//  2. Initialise the logger
//  3. Connect to the database and check it answers
//  4. Ensure the users table exists
//  5. Build the service and the router
//  6. Serve HTTP until SIGINT / SIGTERM, then shut down gracefully
//
// RUNNING THE SERVER:
//
//	go run ./cmd/users-api --config=config/local.yaml
//
// or
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/users-api
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/aanand-mishra/users-api/internal/config"
	"github.com/aanand-mishra/users-api/internal/http/router"
	"github.com/aanand-mishra/users-api/internal/service"
	"github.com/aanand-mishra/users-api/internal/storage/sqldb"
)

func main() {
	// ── 1. Load Config ────────────────────────────────────────────────────
	cfg := config.MustLoad()

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting users-api",
		slog.String("env", cfg.Env),
		slog.String("driver", cfg.Storage.Driver),
	)

	// ── 3. Connect and bootstrap the store ────────────────────────────────
	// Any failure here is fatal: the server never accepts traffic against a
	// database it cannot reach or a table it could not create.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := sqldb.New(ctx, cfg.Storage, log)
	if err != nil {
		cancel()
		log.Error("failed to connect to storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	err = store.EnsureSchema(ctx)
	cancel()
	if err != nil {
		_ = store.Close()
		log.Error("failed to create users table", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	log.Info("storage initialised")

	// ── 4. Service + routes ───────────────────────────────────────────────
	svc := service.New(store, log)
	handler := router.New(svc, router.Options{
		AllowedOrigins: cfg.HTTPServer.AllowedOrigins,
		MaxBodyBytes:   cfg.HTTPServer.MaxBodyBytes,
		Logger:         log,
	})

	server := &http.Server{
		Addr:         cfg.HTTPServer.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	// ── 5. Serve ──────────────────────────────────────────────────────────
	serveErr := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// ── 6. Wait for a signal (or a listener failure) ──────────────────────
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	select {
	case <-done:
		log.Info("shutdown signal received, stopping server...")
	case err := <-serveErr:
		log.Error("server encountered an error", slog.String("error", err.Error()))
		_ = store.Close()
		os.Exit(1)
	}

	// ── 7. Graceful Shutdown ──────────────────────────────────────────────
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown server gracefully", slog.String("error", err.Error()))
		return
	}

	log.Info("server stopped gracefully")
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
//	dev (default): colored console output at DEBUG level
//	staging:       JSON at DEBUG level
//	prod:          JSON at INFO level
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	case "staging":
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(tint.NewHandler(consoleWriter(os.Stdout), &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: "15:04:05.000",
			NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
		}))
	}
}

// consoleWriter makes ANSI colors work on Windows consoles too.
func consoleWriter(f *os.File) io.Writer {
	return colorable.NewColorable(f)
}
