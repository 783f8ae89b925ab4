package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/shsh-voice/internal/api"
	"github.com/ashureev/shsh-voice/internal/config"
	"github.com/ashureev/shsh-voice/internal/container"
	"github.com/ashureev/shsh-voice/internal/middleware"
	"github.com/ashureev/shsh-voice/internal/terminal"
	"github.com/ashureev/shsh-voice/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout    = 10 * time.Second
	stopSandboxTimeout = 15 * time.Second
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, the WebSocket stream and the web console",
		Long: `Starts the HTTP server.

Endpoints:
  GET    /health          store health
  POST   /api/voice       {"text": "..."} resolve and execute a transcript
  POST   /api/resolve     {"text": "..."} resolve without executing
  POST   /api/execute     {"command": "..."} execute a concrete command
  GET    /api/history     executed commands
  GET    /api/patterns    list the pattern table
  POST   /api/patterns    {"pattern": "...", "template": "..."} add or overwrite
  DELETE /api/patterns    ?pattern=... remove
  GET    /ws/voice        WebSocket transcript stream
  GET    /                web console`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port != "" {
				opts.cfg.Port = port
			}
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")
	return cmd
}

func runServe(parent context.Context, opts *rootOptions) error {
	cfg, logger := opts.cfg, opts.logger
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.WatchPatterns && cfg.PatternStore == config.StoreFile {
		if err := a.table.Watch(ctx, cfg.PatternsPath); err != nil {
			logger.Warn("Pattern file watching disabled", "error", err)
		}
	}
	if a.sandbox != nil {
		container.StartIdleReaper(ctx, a.sandbox, cfg.Sandbox.IdleTTL)
	}

	sm := terminal.NewSessionManager()
	base := api.NewHandler(a.session, a.table)
	voiceHandler := api.NewVoiceHandler(base, api.ServerInfo{
		PatternStore: a.table.Location(),
		HostRunner:   cfg.HostRunner,
		Speech:       cfg.Speech.Addr != "",
	})
	patternHandler := api.NewPatternHandler(base)
	healthHandler := api.NewHealthHandler(a.table)
	wsHandler := terminal.NewWebSocketHandler(a.session, sm, cfg.FrontendURL, cfg.IsDevelopment())

	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(middleware.AllowedOrigins(cfg.FrontendURL)))

	healthHandler.RegisterHealth(r)
	voiceHandler.RegisterRoutes(r)
	patternHandler.RegisterRoutes(r)

	r.Get("/ws/voice", wsHandler.ServeHTTP)

	r.Handle("/*", web.ConsoleHandler())

	// No WriteTimeout: WebSocket streams stay open.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", srv.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gracefully...")
		sm.CloseAll()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		logger.Info("Server stopped successfully")
		return nil
	})
	return g.Wait()
}
