package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"

	"github.com/spacesedan/postforge/config"
	"github.com/spacesedan/postforge/internal/clients"
	"github.com/spacesedan/postforge/internal/db"
	"github.com/spacesedan/postforge/internal/drafter"
	"github.com/spacesedan/postforge/internal/guard"
	"github.com/spacesedan/postforge/internal/logging"
	"github.com/spacesedan/postforge/internal/models"
	"github.com/spacesedan/postforge/internal/pipeline"
	"github.com/spacesedan/postforge/internal/ranker"
	"github.com/spacesedan/postforge/internal/sources"
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
	openAIClient := clients.GetOpenAIClient().Client

	var cache sources.SeenCache
	if os.Getenv("VALKEY_INIT_ADDRESS") != "" {
		cache = clients.InitValkey()
		defer clients.CloseValkey()
	} else {
		slog.Warn("[Pipeline] VALKEY_INIT_ADDRESS not set, running without the seen cache")
	}

	srcCfg := config.LoadSources()
	srcs := []sources.Source{
		sources.NewGitHubSource(nil),
		sources.NewHackerNewsSource(nil),
		sources.NewArxivSource(nil),
		sources.NewRSSSource(nil, srcCfg.Feeds),
		sources.NewProductHuntSource(nil),
	}
	if os.Getenv("REDDIT_CLIENT_ID") != "" {
		srcs = append(srcs, sources.NewRedditSource(clients.GetRedditClient(), srcCfg.Subreddits))
	} else {
		slog.Warn("[Pipeline] REDDIT_CLIENT_ID not set, skipping the Reddit source")
	}

	p := pipeline.New(
		store,
		sources.NewCollector(cache, srcs...),
		ranker.NewRanker(openAIClient, srcCfg.Topics),
		drafter.NewDrafter(openAIClient),
		guard.NewGuard(openAIClient),
	)

	runner := &runner{pipeline: p}

	if spec := os.Getenv("PIPELINE_CRON"); spec != "" {
		c := cron.New()
		if _, err := c.AddFunc(spec, func() {
			if _, err := runner.run(context.Background()); err != nil {
				slog.Error("[Pipeline] Scheduled run failed", slog.String("error", err.Error()))
			}
		}); err != nil {
			slog.Error("[Pipeline] Invalid PIPELINE_CRON expression",
				slog.String("spec", spec),
				slog.String("error", err.Error()))
			os.Exit(1)
		}
		c.Start()
		defer c.Stop()
		slog.Info("[Pipeline] Cron schedule active", slog.String("spec", spec))
	}

	addr := os.Getenv("PIPELINE_ADDR")
	if addr == "" {
		addr = ":8081"
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/run", runner.handleRun)
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := store.Ping(req.Context()); err != nil {
			http.Error(w, "degraded", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: addr, Handler: r}
	go func() {
		slog.Info("[Pipeline] Trigger server listening", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("[Pipeline] Server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("[Pipeline] Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("[Pipeline] Shutdown failed", slog.String("error", err.Error()))
	}
}

// runner serializes pipeline runs; a trigger while a run is in flight gets
// a 409 instead of a second concurrent run.
type runner struct {
	mu       sync.Mutex
	pipeline *pipeline.Pipeline
}

func (r *runner) run(ctx context.Context) (*models.RunResult, error) {
	if !r.mu.TryLock() {
		return nil, errRunInProgress
	}
	defer r.mu.Unlock()
	return r.pipeline.Run(ctx)
}

var errRunInProgress = errors.New("a pipeline run is already in progress")

func (r *runner) handleRun(w http.ResponseWriter, req *http.Request) {
	result, err := r.run(req.Context())
	if err != nil {
		if errors.Is(err, errRunInProgress) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		slog.Error("[Pipeline] Run failed", slog.String("error", err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		slog.Error("[Pipeline] Failed to encode run result", slog.String("error", err.Error()))
	}
}
