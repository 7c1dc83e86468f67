package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spacesedan/postforge/internal/db"
	"github.com/spacesedan/postforge/internal/models"
	"github.com/spacesedan/postforge/internal/ranker"
	"github.com/spacesedan/postforge/internal/utils"
)

// Collector gathers signal items from every configured source.
type Collector interface {
	CollectAll(ctx context.Context) []models.SignalItem
}

// Ranker scores items against the focus topics.
type Ranker interface {
	RankItems(ctx context.Context, items []models.SignalItem) ([]models.ScoredItem, error)
}

// Drafter writes post variants for a shortlisted item.
type Drafter interface {
	GenerateDrafts(ctx context.Context, item models.ScoredItem) ([]models.Draft, error)
}

// Guard screens a draft and returns the quality verdict.
type Guard interface {
	Check(ctx context.Context, draft models.Draft) models.QualityResult
}

// Pipeline runs the collect, rank, draft, and screen stages in order and
// persists the results. Every stage is idempotent against the store, so a
// rerun on the same day produces no duplicate items or drafts and never
// touches drafts a human has already reviewed.
type Pipeline struct {
	store     db.Store
	collector Collector
	ranker    Ranker
	drafter   Drafter
	guard     Guard
}

func New(store db.Store, collector Collector, ranker Ranker, drafter Drafter, guard Guard) *Pipeline {
	return &Pipeline{
		store:     store,
		collector: collector,
		ranker:    ranker,
		drafter:   drafter,
		guard:     guard,
	}
}

// Run executes one full pipeline pass. Per-item failures are recorded on
// the result and do not abort the run; only a ranking failure does, since
// nothing downstream can proceed without scores.
func (p *Pipeline) Run(ctx context.Context) (*models.RunResult, error) {
	result := &models.RunResult{
		RunID:     utils.NewRunID(),
		StartedAt: time.Now().UTC(),
	}
	slog.Info("[Pipeline] Run started", slog.String("run_id", result.RunID))

	items := p.collector.CollectAll(ctx)
	result.ItemsCollected = len(items)

	fresh := make([]models.SignalItem, 0, len(items))
	for _, item := range items {
		created, err := p.store.SaveItem(ctx, item)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("save item %s: %v", item.ItemID, err))
			continue
		}
		if created {
			fresh = append(fresh, item)
		}
	}
	slog.Info("[Pipeline] Items persisted",
		slog.Int("collected", result.ItemsCollected),
		slog.Int("new", len(fresh)))

	if len(fresh) == 0 {
		result.CompletedAt = timePtr(time.Now().UTC())
		slog.Info("[Pipeline] No new items, run complete", slog.String("run_id", result.RunID))
		return result, nil
	}

	scored, err := p.ranker.RankItems(ctx, fresh)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("rank items: %v", err))
		result.CompletedAt = timePtr(time.Now().UTC())
		return result, fmt.Errorf("pipeline: ranking failed: %w", err)
	}

	shortlist := ranker.Shortlist(scored, ranker.ShortlistMax)
	result.ItemsShortlisted = len(shortlist)
	slog.Info("[Pipeline] Shortlist built", slog.Int("shortlisted", len(shortlist)))

	for _, item := range shortlist {
		drafts, err := p.drafter.GenerateDrafts(ctx, item)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("draft item %s: %v", item.ItemID, err))
			continue
		}

		for _, draft := range drafts {
			created, err := p.store.SaveDraft(ctx, draft)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("save draft %s: %v", draft.DraftID, err))
				continue
			}
			if !created {
				// A previous run already produced this draft. Leave it
				// alone so human decisions survive reruns.
				continue
			}
			result.DraftsGenerated++

			verdict := p.guard.Check(ctx, draft)
			if verdict.Passed {
				result.DraftsPassed++
			}
			if err := p.store.ApplyQualityResult(ctx, verdict); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("quality %s: %v", draft.DraftID, err))
			}
		}
	}

	result.CompletedAt = timePtr(time.Now().UTC())
	slog.Info("[Pipeline] Run complete",
		slog.String("run_id", result.RunID),
		slog.Int("collected", result.ItemsCollected),
		slog.Int("shortlisted", result.ItemsShortlisted),
		slog.Int("drafts", result.DraftsGenerated),
		slog.Int("passed", result.DraftsPassed),
		slog.Int("errors", len(result.Errors)))
	return result, nil
}

func timePtr(t time.Time) *time.Time { return &t }
