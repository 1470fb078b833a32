// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielhkuo/votedesk/cliparse"
	"github.com/danielhkuo/votedesk/db"
	"github.com/danielhkuo/votedesk/metrics"
	"github.com/danielhkuo/votedesk/notify"
	"github.com/danielhkuo/votedesk/router"
	"github.com/danielhkuo/votedesk/storage"
	"github.com/danielhkuo/votedesk/users"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var err error

	if err = cliparse.LoadDotEnv(".env"); err != nil {
		slog.Error("Error loading .env", "error", err)
		os.Exit(1)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(cliparse.NewLogger(cfg, os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect and migrate
	dbConn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	if err := db.Migrate(ctx, dbConn, cfg.DatabaseType); err != nil {
		slog.Error("schema migration failed", "error", err)
		os.Exit(1)
	}
	if cfg.DatabaseType == cliparse.DatabaseSQLite {
		// SQLite allows one writer; serialize on a single connection.
		dbConn.SetMaxOpenConns(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	if cfg.AdminEmail != "" {
		err := users.NewService(dbConn, cfg, nil).PromoteByEmail(ctx, cfg.AdminEmail)
		switch {
		case errors.Is(err, users.ErrUserNotFound):
			slog.Warn("admin email not registered yet", "email", cfg.AdminEmail)
		case err != nil:
			slog.Error("admin promotion failed", "error", err)
			os.Exit(1)
		default:
			slog.Info("admin promoted", "email", cfg.AdminEmail)
		}
	}

	var images storage.ObjectStore = storage.Unconfigured{}
	s3Store, err := storage.NewS3Store(ctx, cfg)
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		slog.Info("image storage disabled, S3_BUCKET not set")
	case err != nil:
		slog.Error("image storage setup failed", "error", err)
		os.Exit(1)
	default:
		images = s3Store
	}

	bus := notify.NewBus()
	m := metrics.New(bus.Dropped)

	// Create server
	server := &http.Server{
		Handler: router.NewRouter(dbConn, cfg, bus, m, images),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		slog.Error("listen failed", "addr", server.Addr, "error", err)
		os.Exit(1)
	}

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	if err := serve(ctx, server, ln, bus); err != nil {
		slog.Error("Server closed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server closed")
}

// serve runs server on ln until ctx is cancelled, then closes the bus and
// shuts the server down. It returns only after Shutdown has finished, so
// in-flight requests complete before main's deferred cleanup runs.
func serve(ctx context.Context, server *http.Server, ln net.Listener, bus *notify.Bus) error {
	done := make(chan struct{})
	var shutdownErr error

	go func() {
		defer close(done)
		// Wait for Ctrl-C signal
		<-ctx.Done()

		// Closing the bus ends open event streams so Shutdown can finish.
		bus.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("graceful shutdown: %w", err)
			server.Close()
		}
	}()

	err := server.Serve(ln)
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return shutdownErr
}
