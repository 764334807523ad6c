package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"homestead/internal/auth"
	"homestead/internal/config"
	transporthttp "homestead/internal/http"
	"homestead/internal/platform/database"
	"homestead/internal/platform/logging"
	"homestead/internal/platform/migrate"
	"homestead/internal/session"
	"homestead/internal/users"
)

const sessionReapInterval = time.Hour

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel)

	sessionStore, userRepo, cleanup, err := buildStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	userSvc := users.NewService(userRepo)

	provider := auth.NewProvider(auth.ProviderConfig{
		IssuerURL:     cfg.OIDCIssuerURL,
		ClientID:      cfg.OIDCClientID,
		ClientSecret:  cfg.OIDCClientSecret,
		Domains:       cfg.Domains,
		LocalDevHost:  cfg.LocalDevHost,
		Production:    cfg.IsProduction(),
		PostLogoutURL: cfg.PostLogoutURL,
	})
	if err := provider.Discover(ctx); err != nil {
		logger.Error("oidc discovery failed", "issuer", cfg.OIDCIssuerURL, "error", err)
		os.Exit(1)
	}

	manager := auth.NewManager(sessionStore, provider, userSvc, logger, 0)

	router := transporthttp.NewRouter(cfg, provider, manager, userSvc, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}

	go reapSessions(ctx, sessionStore, logger)

	go func() {
		logger.Info("Homestead API listening", "addr", srv.Addr, "store", cfg.DataStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func buildStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (session.Store, users.Repository, func(), error) {
	if cfg.UseInMemoryStore() {
		logger.Info("using in-memory storage")
		return session.NewMemoryStore(), users.NewMemoryRepository(), nil, nil
	}

	db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}

	cleanup := func() {
		_ = db.Close()
	}

	if err := migrate.Apply(ctx, db, logger); err != nil {
		cleanup()
		return nil, nil, nil, err
	}

	logger.Info("connected to postgres")
	return session.NewPostgresStore(db), users.NewPostgresRepository(db), cleanup, nil
}

// reapSessions periodically removes expired session records so the store
// does not accumulate rows for browsers that never log out.
func reapSessions(ctx context.Context, store session.Store, logger *slog.Logger) {
	ticker := time.NewTicker(sessionReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.DeleteExpired(ctx)
			if err != nil {
				logger.Error("session reap failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.Info("reaped expired sessions", "count", removed)
			}
		}
	}
}
