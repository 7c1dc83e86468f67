package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spacesedan/postforge/config"
	"github.com/spacesedan/postforge/internal/bot"
	"github.com/spacesedan/postforge/internal/clients"
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

	b, err := bot.New(store, clients.GetXPoster())
	if err != nil {
		slog.Error("[Bot] Failed to start", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("[Bot] Running")
	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("[Bot] Stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("[Bot] Shut down")
}
