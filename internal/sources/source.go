package sources

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/spacesedan/postforge/internal/models"
)

// Source fetches raw signal items from one external feed or API.
type Source interface {
	Name() models.SignalSource
	Fetch(ctx context.Context) ([]models.SignalItem, error)
}

// SeenCache is the 24h dedup fast path (Valkey in production). A nil cache
// disables the fast path; the store's conditional writes still guarantee
// idempotency.
type SeenCache interface {
	IsSeen(ctx context.Context, itemID string) bool
	MarkSeen(ctx context.Context, itemID string) error
}

// Collector runs every source and merges the results into a single deduped
// batch. Source failures are logged and skipped; one dead API must not kill
// the daily run.
type Collector struct {
	sources []Source
	cache   SeenCache
}

func NewCollector(cache SeenCache, srcs ...Source) *Collector {
	return &Collector{sources: srcs, cache: cache}
}

func (c *Collector) CollectAll(ctx context.Context) []models.SignalItem {
	var collected []models.SignalItem
	seen := make(map[string]struct{})

	for _, src := range c.sources {
		items, err := src.Fetch(ctx)
		if err != nil {
			slog.Warn("[Collector] Source fetch failed",
				slog.String("source", string(src.Name())),
				slog.String("error", err.Error()))
			continue
		}

		var kept int
		for _, item := range items {
			if err := item.Validate(); err != nil {
				slog.Debug("[Collector] Dropping invalid item",
					slog.String("source", string(src.Name())),
					slog.String("error", err.Error()))
				continue
			}
			if _, dup := seen[item.ItemID]; dup {
				continue
			}
			if c.cache != nil && c.cache.IsSeen(ctx, item.ItemID) {
				slog.Debug("[Collector] Skipping recently seen item",
					slog.String("item_id", item.ItemID))
				continue
			}

			seen[item.ItemID] = struct{}{}
			collected = append(collected, item)
			kept++

			if c.cache != nil {
				if err := c.cache.MarkSeen(ctx, item.ItemID); err != nil {
					slog.Warn("[Collector] Failed to mark item as seen",
						slog.String("item_id", item.ItemID),
						slog.String("error", err.Error()))
				}
			}
		}

		slog.Info("[Collector] Source collected",
			slog.String("source", string(src.Name())),
			slog.Int("fetched", len(items)),
			slog.Int("kept", kept))
	}

	return collected
}

// aiKeywords pre-filters broad firehose sources (HN front page, Product
// Hunt) down to the AI/ML signals the ranker actually scores.
var aiKeywords = []string{
	"ai", "llm", "gpt", "agent", "rag", "embedding",
	"transformer", "machine learning", "neural",
	"openai", "anthropic", "gemini", "claude", "model",
	"evaluation", "benchmark", "vector", "retrieval",
}

// Short keywords like "ai" and "rag" only count as whole words; substring
// matching would flag words like "again" or "storage".
func matchesAIKeywords(text string) bool {
	lower := strings.ToLower(text)
	words := map[string]bool{}
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		words[w] = true
	}

	for _, kw := range aiKeywords {
		if len(kw) <= 4 && !strings.Contains(kw, " ") {
			if words[kw] {
				return true
			}
			continue
		}
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
