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

	"github.com/dukerupert/hearthboard/internal/config"
	"github.com/dukerupert/hearthboard/internal/database"
	"github.com/dukerupert/hearthboard/internal/logging"
	"github.com/dukerupert/hearthboard/internal/server"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "bootstrap" {
		runBootstrap(os.Args[2:])
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err, "path", cfg.DBPath)
		os.Exit(1)
	}
	defer db.Close()

	srv := server.New(db, server.Config{
		JWTSecret:      cfg.JWTSecret,
		JWTIssuer:      cfg.JWTIssuer,
		Location:       cfg.Location(),
		AllowedOrigins: cfg.AllowedOrigins,
	}, logger)

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
		// no WriteTimeout: websocket connections are long-lived
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	go srv.RunBackground(bgCtx)

	go func() {
		logger.Info("hearthboard starting", "addr", cfg.Addr(), "db", cfg.DBPath, "timezone", cfg.Timezone)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	bgCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

// runBootstrap needs only the database path, so it skips the serving checks
// such as the JWT secret.
func runBootstrap(args []string) {
	cfg, err := config.Read()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err, "path", cfg.DBPath)
		os.Exit(1)
	}
	defer db.Close()

	if err := bootstrap(context.Background(), db, args, os.Stdout); err != nil {
		logger.Error("bootstrap failed", "error", err)
		db.Close()
		os.Exit(1)
	}
}
