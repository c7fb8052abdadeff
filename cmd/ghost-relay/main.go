package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ghostwire/relay/internal/config"
	"github.com/ghostwire/relay/internal/logging"
	"github.com/ghostwire/relay/internal/relay"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Init(logging.Config{
		Service: "ghost-relay",
		Level:   logging.LevelFromString(cfg.LogLevel),
		Backend: logging.BackendZap,
	})
	slog.Info("starting ghost-relay", "port", cfg.Port, "trustedProxies", cfg.TrustedProxies)

	rl := relay.New(cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- rl.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var exitCode int
	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", "signal", sig.String())
		if err := rl.Shutdown(context.Background()); err != nil {
			slog.Error("shutdown deadline exceeded", "err", err)
			exitCode = 1
		}
	case err := <-errCh:
		if err != nil {
			slog.Error("listener error", "err", err)
			exitCode = 1
		}
	}

	slog.Info("ghost-relay stopped", "exitCode", exitCode)
	os.Exit(exitCode)
}
