package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andsokolov/taskdeck/internal/config"
	"github.com/andsokolov/taskdeck/internal/logging"
	"github.com/andsokolov/taskdeck/internal/server"
	"github.com/andsokolov/taskdeck/internal/server/handlers"
	"github.com/andsokolov/taskdeck/internal/server/session"
	"github.com/andsokolov/taskdeck/internal/server/storage/sqlite"
	"github.com/andsokolov/taskdeck/internal/token"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Конфигурация валидируется один раз на старте: без секрета
	// подписи сервер не поднимется
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	store, err := sqlite.New(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close storage", "error", err)
		}
	}()

	issuer, err := token.NewIssuer(token.Config{
		Secret:          []byte(cfg.JWTSecret),
		Issuer:          cfg.TokenIssuer,
		Audience:        cfg.TokenAudience,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create token issuer: %w", err)
	}

	sessions := session.NewService(logger, store, store, issuer)

	authHandler := handlers.NewAuthHandler(logger, sessions)
	healthHandler := handlers.NewHealthHandler(logger, Version)

	router, stopRouter := server.Router(logger, issuer, authHandler, healthHandler)
	defer stopRouter()

	srv := server.New(cfg.ServerAddress, router)

	errC := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.ServerAddress, "version", Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errC <- err
		}
	}()

	select {
	case err := <-errC:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	// Graceful shutdown
	logger.Info("server shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	return nil
}

func printVersion() {
	fmt.Printf("TaskDeck Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
