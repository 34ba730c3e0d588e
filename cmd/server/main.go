package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rpggio/trips/internal/app"
	"github.com/rpggio/trips/internal/config"
	"github.com/rpggio/trips/internal/domain/session"
	"github.com/rpggio/trips/internal/federated"
	"github.com/rpggio/trips/internal/mcp"
	"github.com/rpggio/trips/internal/metrics"
	"github.com/rpggio/trips/internal/sqlite"
	"github.com/rpggio/trips/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog, err := newLogger(cfg.Log, cfg.Transport.Mode == config.TransportStdio)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log setup error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := ensureParentDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if cfg.DB.Path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err := db.RunMigrations(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	var verifier session.CredentialVerifier
	var signIn session.FederatedSignIn
	if cfg.Google.Enabled() {
		verifier = federated.NewUserInfoVerifier(cfg.Google.UserInfoURL, nil)
		signIn = federated.NewGoogle(federated.GoogleConfig{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			ListenAddr:   cfg.Google.ListenAddr,
		}, func(url string) error {
			logger.Info("open this URL to finish Google sign-in", "url", url)
			return nil
		}, logger)
	}

	identity := sqlite.NewIdentityProvider(db, verifier)
	if err := identity.Restore(context.Background()); err != nil {
		logger.Warn("failed to restore session", "error", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	host, err := app.New(app.Config{
		Identity:          identity,
		Federated:         signIn,
		Store:             sqlite.NewStore(db),
		Recorder:          collector,
		Observer:          collector,
		ReloadAfterDelete: cfg.Trips.ReloadAfterDelete,
		Logger:            logger,
	})
	if err != nil {
		logger.Error("failed to start app", "error", err)
		os.Exit(1)
	}
	defer host.Close()

	mcpServer := mcp.NewServer(mcp.Config{Host: host, Logger: logger})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Transport.Mode == config.TransportStdio {
		logger.Info("starting stdio transport")
		// Returns when stdin closes or a signal arrives.
		if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("stdio server error", "error", err)
		}
		return
	}
	serveHTTP(ctx, logger, mcpServer, registry, cfg)
}

func serveHTTP(ctx context.Context, logger *slog.Logger, mcpServer *sdkmcp.Server, registry *prometheus.Registry, cfg config.Config) {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{
			SessionTimeout: 30 * time.Minute,
		},
	)

	var verifier transport.TokenVerifier
	if cfg.Auth.Token != "" {
		verifier = transport.NewStaticToken(cfg.Auth.Token)
	} else {
		logger.Warn("auth token not set; /mcp is unauthenticated")
	}
	rateLimit := transport.DefaultRateLimitConfig()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr: addr,
		Handler: transport.NewServer(transport.Config{
			MCP:       mcpHandler,
			Gatherer:  registry,
			Verifier:  verifier,
			RateLimit: &rateLimit,
			Logger:    logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
		return
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
