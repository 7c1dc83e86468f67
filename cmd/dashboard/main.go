package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spacesedan/postforge/config"
	"github.com/spacesedan/postforge/internal/clients"
	"github.com/spacesedan/postforge/internal/dashboard"
	"github.com/spacesedan/postforge/internal/db"
	"github.com/spacesedan/postforge/internal/logging"
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)
	logging.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := db.NewDynamoStore(clients.GetDynamoDBClient())

	srv, err := dashboard.NewServer(store, clients.GetXPoster())
	if err != nil {
		slog.Error("[Dashboard] Failed to build server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	addr := os.Getenv("DASHBOARD_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		slog.Info("[Dashboard] Listening", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("[Dashboard] Server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("[Dashboard] Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("[Dashboard] Shutdown failed", slog.String("error", err.Error()))
	}
}
