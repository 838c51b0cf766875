// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

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

	"github.com/spf13/cobra"

	"curator/internal/cache"
	"curator/internal/catalog"
	"curator/internal/database"
	"curator/internal/engine"
	"curator/internal/handlers"
	"curator/internal/middleware"
	"curator/internal/router"
	"curator/internal/session"
	"curator/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			return fmt.Errorf("seed database: %w", err)
		}
	}

	// Valkey backs sessions and the tree cache.
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		return fmt.Errorf("connect valkey: %w", err)
	}
	defer valkeyClient.Close()

	secureCookies := cfg.IsProduction()
	sessionStore := session.NewStore(valkeyClient, secureCookies)

	userStore := store.NewUserStore(db)
	nodeStore := store.NewNodeStore(db)
	progressStore := store.NewProgressStore(db)

	var treeCache catalog.SnapshotCache
	if cfg.TreeCacheTTL > 0 {
		treeCache = cache.NewTreeCache(valkeyClient, cfg.TreeCacheTTL)
	} else {
		slog.Warn("tree cache disabled")
	}
	catalogSvc := catalog.NewService(nodeStore, progressStore, treeCache)
	eng := engine.New(nodeStore, catalogSvc)

	api := handlers.NewAPI(sessionStore, userStore, nodeStore, catalogSvc, eng)

	loginLimiter := middleware.NewRateLimiter(cfg.LoginRateLimit, time.Minute, middleware.ByLoginAccount)

	r := router.New(router.Options{
		Sessions:     sessionStore,
		API:          api,
		LoginLimiter: loginLimiter,
		Secure:       secureCookies,
		TrustProxy:   cfg.TrustProxy,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
