package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/astroserve/astroserve/internal/api"
	"github.com/astroserve/astroserve/internal/auth"
	"github.com/astroserve/astroserve/internal/config"
	"github.com/astroserve/astroserve/internal/dispatch"
	"github.com/astroserve/astroserve/internal/engine"
	"github.com/astroserve/astroserve/internal/metrics"
	"github.com/astroserve/astroserve/internal/notify"
	"github.com/astroserve/astroserve/internal/store"
	"github.com/astroserve/astroserve/internal/telemetry"
	"github.com/astroserve/astroserve/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("astroserve starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"engine_mode", cfg.Server.Engine.Mode,
		"workers", cfg.Server.Dispatch.Workers,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTraces, err := telemetry.Setup(ctx, cfg.Server.Telemetry.OTLPEndpoint, "astroserve")
	if err != nil {
		slog.Error("failed to set up trace export", "err", err)
		os.Exit(1)
	}

	// Document store with periodic snapshot flushing.
	st, err := store.Open(cfg.Server.Store.Path, cfg.Server.Store.FlushInterval)
	if err != nil {
		slog.Error("failed to open store", "path", cfg.Server.Store.Path, "err", err)
		os.Exit(1)
	}
	go st.Run(ctx)

	var verifier auth.Verifier
	switch cfg.Server.Auth.Mode {
	case "static":
		verifier = auth.Static(cfg.Server.Auth.StaticTokens())
	default:
		verifier = auth.NewRemote(cfg.Server.Auth.VerifyURL, cfg.Server.Auth.Timeout)
	}
	authn := auth.New(verifier)

	var eng engine.Engine
	switch cfg.Server.Engine.Mode {
	case "local":
		eng = engine.Local{}
	default:
		g, err := engine.DialGRPC(cfg.Server.Engine.Address, cfg.Server.Engine.Timeout)
		if err != nil {
			slog.Error("failed to dial engine", "addr", cfg.Server.Engine.Address, "err", err)
			os.Exit(1)
		}
		defer g.Close()
		eng = g
	}

	reg := metrics.New()

	// Webhook targets come from config and follow config file edits.
	hooks := notify.NewWebhook(cfg.Server.Notify.Webhooks)
	go func() {
		err := config.Watch(ctx, *configPath, func(next *config.Config) {
			hooks.SetTargets(next.Server.Notify.Webhooks)
			slog.Info("webhook targets reloaded", "count", len(next.Server.Notify.Webhooks))
		})
		if err != nil {
			slog.Warn("config watch unavailable", "err", err)
		}
	}()

	// WebSocket hub — pushes notifications to connected clients per subject.
	hub := ws.New(authn)
	go hub.Run(ctx)

	// Dispatcher runs on its own context so in-flight computations drain
	// after the HTTP server has stopped accepting submissions.
	dispatcher := dispatch.New(dispatch.Options{
		Engine:        eng,
		Results:       st,
		Notifications: st,
		Sinks:         []notify.Sink{hooks, hub},
		Metrics:       reg,
		Workers:       cfg.Server.Dispatch.Workers,
		QueueSize:     cfg.Server.Dispatch.QueueSize,
		Timeout:       cfg.Server.Engine.Timeout,
	})
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	dispatchDone := make(chan struct{})
	go func() {
		dispatcher.Run(dispatchCtx)
		close(dispatchDone)
	}()

	httpMux := http.NewServeMux()
	httpMux.Handle("/", api.New(api.Options{
		Auth:          authn,
		Dispatcher:    dispatcher,
		Results:       st,
		Notifications: st,
		Metrics:       reg,
		CORSOrigins:   cfg.Server.CORSOrigins,
	}))
	httpMux.Handle("/ws/notifications", hub)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: httpMux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("astroserve shutting down")

	// Stop accepting requests, then drain pending computations, then make
	// sure their outcomes hit disk.
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
	stopDispatch()
	<-dispatchDone
	if err := st.Flush(); err != nil {
		slog.Error("final store flush failed", "err", err)
	}
	if err := shutdownTraces(context.Background()); err != nil {
		slog.Warn("trace exporter shutdown failed", "err", err)
	}
}
