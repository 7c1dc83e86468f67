package drafter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/spacesedan/postforge/internal/clients"
	"github.com/spacesedan/postforge/internal/models"
)

const (
	// MinDraftLen and MaxDraftLen bound the generated post body.
	MinDraftLen = 200
	MaxDraftLen = 600
)

// ChatClient mirrors ranker.ChatClient so tests can share a fake.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Drafter turns shortlisted items into post drafts, two variants apiece.
type Drafter struct {
	client  ChatClient
	backoff time.Duration
}

func NewDrafter(client ChatClient) *Drafter {
	return &Drafter{client: client, backoff: clients.INITIAL_BACKOFF}
}

type draftResponse struct {
	Variants []string `json:"variants"`
}

const draftSystemPrompt = `You write short social posts about AI engineering topics for a
technical audience. Rules for every variant:
- Between 200 and 600 characters.
- No URLs or links of any kind. The link is attached separately.
- No hashtags, no emoji spam, at most one emoji.
- Lead with the concrete finding or capability, not hype.
- Plain text only, no markdown.
Respond with JSON: {"variants": ["first post text", "second post text"]}
Return exactly 2 variants with meaningfully different angles.`

// GenerateDrafts produces models.DraftVariants drafts for one shortlisted
// item. Variants that come back malformed are dropped rather than retried
// individually.
func (d *Drafter) GenerateDrafts(ctx context.Context, item models.ScoredItem) ([]models.Draft, error) {
	prompt := buildPrompt(item)

	var lastErr error
	backoff := d.backoff
	for attempt := 1; attempt <= clients.MAX_RETRIES; attempt++ {
		resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: clients.QualityModel,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: draftSystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Temperature: 0.8,
		})
		if err != nil {
			lastErr = err
			slog.Warn("[Drafter] OpenAI request failed",
				slog.Int("attempt", attempt),
				slog.String("item_id", item.ItemID),
				slog.String("error", err.Error()))
			time.Sleep(backoff)
			if backoff < clients.MAX_BACKOFF {
				backoff *= 2
			}
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("drafter: empty completion")
			continue
		}

		var parsed draftResponse
		raw := cleanModelResponse(resp.Choices[0].Message.Content)
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			lastErr = fmt.Errorf("drafter: parse response: %w", err)
			continue
		}

		drafts := make([]models.Draft, 0, models.DraftVariants)
		for i, text := range parsed.Variants {
			if i >= models.DraftVariants {
				break
			}
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			drafts = append(drafts, models.NewDraft(item.ItemID, i+1, text))
		}
		if len(drafts) == 0 {
			lastErr = fmt.Errorf("drafter: model returned no usable variants")
			continue
		}
		return drafts, nil
	}
	return nil, fmt.Errorf("drafter: item %s failed after %d attempts: %w",
		item.ItemID, clients.MAX_RETRIES, lastErr)
}

func buildPrompt(item models.ScoredItem) string {
	var sb strings.Builder
	sb.WriteString("Write post variants about this signal.\n\n")
	sb.WriteString("Title: ")
	sb.WriteString(item.Title)
	sb.WriteString("\nSource: ")
	sb.WriteString(string(item.Source))
	if item.Description != "" {
		sb.WriteString("\nDetails: ")
		sb.WriteString(item.Description)
	}
	if len(item.MatchedTopics) > 0 {
		sb.WriteString("\nRelevant topics: ")
		sb.WriteString(strings.Join(item.MatchedTopics, ", "))
	}
	if item.Reasoning != "" {
		sb.WriteString("\nWhy it matters: ")
		sb.WriteString(item.Reasoning)
	}
	return sb.String()
}

func cleanModelResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
