package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	audioimpl "github.com/foxseedlab/interviewfeed/external/audio"
	configloader "github.com/foxseedlab/interviewfeed/external/config"
	eventsimpl "github.com/foxseedlab/interviewfeed/external/events"
	"github.com/foxseedlab/interviewfeed/external/httpapi"
	repositoryimpl "github.com/foxseedlab/interviewfeed/external/repository"
	transcriberimpl "github.com/foxseedlab/interviewfeed/external/transcriber"
	translatorimpl "github.com/foxseedlab/interviewfeed/external/translator"
	webhookimpl "github.com/foxseedlab/interviewfeed/external/webhook"
	"github.com/foxseedlab/interviewfeed/internal/config"
	"github.com/foxseedlab/interviewfeed/internal/events"
	"github.com/foxseedlab/interviewfeed/internal/session"
	"github.com/samber/do/v2"
)

const shutdownTimeout = 45 * time.Second

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env, "store_backend", cfg.StoreBackend, "translator", cfg.TranslatorProvider)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	slog.Info("startup: launching http server")
	runServer(injector)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	audioimpl.RegisterDI(injector)
	transcriberimpl.RegisterDI(injector)
	translatorimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	eventsimpl.RegisterDI(injector)
	session.RegisterDI(injector)
	httpapi.RegisterDI(injector)

	return injector
}

func runServer(injector do.Injector) {
	server, err := do.Invoke[*httpapi.Server](injector)
	if err != nil {
		slog.Error("failed to resolve http server", "error", err)
		os.Exit(1)
	}
	manager := do.MustInvoke[*session.Manager](injector)
	publisher := do.MustInvoke[events.Publisher](injector)

	done := make(chan error, 1)
	go func() {
		done <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
	case err := <-done:
		if err != nil {
			slog.Error("http server failed", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("http server shutdown failed", "error", err)
	}
	manager.Shutdown(ctx)
	if err := publisher.Close(); err != nil {
		slog.Error("event publisher close failed", "error", err)
	}
	if err := injector.Shutdown(); err != nil {
		slog.Error("dependency shutdown failed", "error", err)
	}
}
