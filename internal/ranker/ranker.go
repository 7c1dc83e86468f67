package ranker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/spacesedan/postforge/internal/clients"
	"github.com/spacesedan/postforge/internal/models"
)

const (
	// ScoreThreshold is the minimum relevance score an item needs to be
	// considered for the shortlist.
	ScoreThreshold = 60.0

	// ShortlistMax caps how many items move on to drafting per run.
	ShortlistMax = 10

	rankBatchSize = 20
)

// ChatClient is the slice of the OpenAI client the ranker needs. Tests
// substitute a fake.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Ranker scores collected items against the configured focus topics.
type Ranker struct {
	client  ChatClient
	topics  []string
	backoff time.Duration
}

func NewRanker(client ChatClient, topics []string) *Ranker {
	return &Ranker{client: client, topics: topics, backoff: clients.INITIAL_BACKOFF}
}

type rankedEntry struct {
	ItemID    string   `json:"item_id"`
	Score     float64  `json:"score"`
	Topics    []string `json:"topics"`
	Reasoning string   `json:"reasoning"`
}

type rankResponse struct {
	Rankings []rankedEntry `json:"rankings"`
}

// RankItems asks the model to score every item 0-100 against the focus
// topics. Items the model does not return are treated as score 0.
func (r *Ranker) RankItems(ctx context.Context, items []models.SignalItem) ([]models.ScoredItem, error) {
	if len(items) == 0 {
		return nil, nil
	}

	var scored []models.ScoredItem
	for start := 0; start < len(items); start += rankBatchSize {
		end := start + rankBatchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		entries, err := r.rankBatch(ctx, batch)
		if err != nil {
			return nil, err
		}

		byID := make(map[string]rankedEntry, len(entries))
		for _, e := range entries {
			byID[e.ItemID] = e
		}
		for _, item := range batch {
			entry, ok := byID[item.ItemID]
			if !ok {
				slog.Debug("[Ranker] Model omitted item, scoring zero",
					slog.String("item_id", item.ItemID))
				scored = append(scored, models.ScoredItem{SignalItem: item})
				continue
			}
			scored = append(scored, models.ScoredItem{
				SignalItem:     item,
				RelevanceScore: entry.Score,
				MatchedTopics:  entry.Topics,
				Reasoning:      entry.Reasoning,
			})
		}
	}

	slog.Info("[Ranker] Scored items",
		slog.Int("input", len(items)),
		slog.Int("scored", len(scored)))
	return scored, nil
}

func (r *Ranker) rankBatch(ctx context.Context, batch []models.SignalItem) ([]rankedEntry, error) {
	prompt := r.buildPrompt(batch)

	var lastErr error
	backoff := r.backoff
	for attempt := 1; attempt <= clients.MAX_RETRIES; attempt++ {
		resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: clients.FastModel,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: rankSystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			lastErr = err
			slog.Warn("[Ranker] OpenAI request failed",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			time.Sleep(backoff)
			if backoff < clients.MAX_BACKOFF {
				backoff *= 2
			}
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("ranker: empty completion")
			continue
		}

		var parsed rankResponse
		raw := cleanModelResponse(resp.Choices[0].Message.Content)
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			lastErr = fmt.Errorf("ranker: parse response: %w", err)
			slog.Warn("[Ranker] Failed to parse model response",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			continue
		}
		return parsed.Rankings, nil
	}
	return nil, fmt.Errorf("ranker: batch failed after %d attempts: %w", clients.MAX_RETRIES, lastErr)
}

const rankSystemPrompt = `You score content signals for relevance to a set of focus topics.
For each item, assign a score from 0 to 100 where 100 means the item is squarely
about one or more focus topics and 0 means it is unrelated. Respond with JSON:
{"rankings": [{"item_id": "...", "score": 0-100, "topics": ["matched topic", ...], "reasoning": "one sentence"}]}
Include every item exactly once.`

func (r *Ranker) buildPrompt(batch []models.SignalItem) string {
	var sb strings.Builder
	sb.WriteString("Focus topics:\n")
	for _, t := range r.topics {
		sb.WriteString("- ")
		sb.WriteString(t)
		sb.WriteString("\n")
	}
	sb.WriteString("\nItems:\n")
	for _, item := range batch {
		sb.WriteString(fmt.Sprintf("item_id: %s\nsource: %s\ntitle: %s\n", item.ItemID, item.Source, item.Title))
		if item.Description != "" {
			sb.WriteString("description: ")
			sb.WriteString(item.Description)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Shortlist keeps items at or above the score threshold, ordered best
// first, capped at max entries.
func Shortlist(scored []models.ScoredItem, max int) []models.ScoredItem {
	eligible := make([]models.ScoredItem, 0, len(scored))
	for _, s := range scored {
		if s.RelevanceScore >= ScoreThreshold {
			eligible = append(eligible, s)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].RelevanceScore > eligible[j].RelevanceScore
	})
	if len(eligible) > max {
		eligible = eligible[:max]
	}
	return eligible
}

// cleanModelResponse strips the markdown code fences models sometimes wrap
// JSON responses in.
func cleanModelResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
