package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/PratikDhanave/realtime-relay/internal/config"
	"github.com/PratikDhanave/realtime-relay/internal/directory"
	"github.com/PratikDhanave/realtime-relay/internal/httpserver"
	"github.com/PratikDhanave/realtime-relay/internal/logging"
	"github.com/PratikDhanave/realtime-relay/internal/presence"
	"github.com/PratikDhanave/realtime-relay/internal/realtime"
)

// main boots the relay: config → logger → backend client → registry →
// presence → HTTP server, then waits for a signal and drains.
func main() {
	// Load runtime config: flags, then env, then the optional YAML file.
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		bootLogger := logging.New(os.Stderr, "info", "json")
		bootLogger.Fatal().Err(err).Msg("Invalid configuration.")
	}

	// Structured logs for every component.
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	// Backend client, connection registry and presence synchronizer.
	upstream := directory.New(cfg.BackendURL, directory.Options{InsecureTLS: cfg.BackendInsecureTLS}, logger)
	registry := realtime.NewRegistry(cfg.WSSendQueue, logger)
	syncer := presence.NewSynchronizer(upstream, registry, cfg.PresenceTimeout, logger)
	ws := realtime.NewServer(registry, syncer, httpserver.CheckOrigin(cfg.CORSOrigins), logger)

	// Build HTTP router (health, websocket, proxy, gated webhooks).
	router := httpserver.NewRouter(cfg, httpserver.Deps{
		Hub:       registry,
		WebSocket: ws,
		Upstream:  upstream,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Serve until SIGINT/SIGTERM or a listener failure.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Str("backend", cfg.BackendURL).Msg("Server is running.")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("Server failed.")
		}
	case <-ctx.Done():
	}

	// Drain: stop HTTP, close every channel, then let presence calls finish.
	logger.Info().Msg("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed.")
	}
	// Hijacked websocket connections are not tracked by Shutdown.
	registry.Close()
	ws.Wait()

	logger.Info().Msg("Shut down.")
}
