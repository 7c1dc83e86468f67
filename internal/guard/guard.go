package guard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/spacesedan/postforge/internal/clients"
	"github.com/spacesedan/postforge/internal/models"
)

// PassingScore is the minimum quality score for a draft to stay pending.
const PassingScore = 70.0

// ChatClient mirrors the other LLM stages so tests can share a fake.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Guard screens drafts before they reach a reviewer. Lexical checks run
// first and fail fast; the model screen only runs on lexically clean
// drafts.
type Guard struct {
	client ChatClient
}

func NewGuard(client ChatClient) *Guard {
	return &Guard{client: client}
}

type screenResponse struct {
	Score       float64  `json:"score"`
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
}

const screenSystemPrompt = `You review short social posts written for a technical AI audience.
Score the post 0-100 on substance, specificity, and tone. Hype, vagueness,
and engagement-bait lower the score. Respond with JSON:
{"score": 0-100, "issues": ["..."], "suggestions": ["..."]}`

// Check evaluates one draft and returns the quality verdict. A model
// failure degrades to the lexical verdict so the pipeline never stalls on
// the quality stage.
func (g *Guard) Check(ctx context.Context, draft models.Draft) models.QualityResult {
	result := models.QualityResult{
		DraftID:   draft.DraftID,
		CheckedAt: time.Now().UTC(),
	}

	if issues := LexicalCheck(draft.Content); len(issues) > 0 {
		result.Passed = false
		result.Score = 0
		result.Issues = issues
		return result
	}

	screen, err := g.modelScreen(ctx, draft.Content)
	if err != nil {
		slog.Warn("[Guard] Model screen failed, passing on lexical checks only",
			slog.String("draft_id", draft.DraftID),
			slog.String("error", err.Error()))
		result.Passed = true
		result.Score = PassingScore
		result.Issues = []string{"model screen unavailable"}
		return result
	}

	result.Score = screen.Score
	result.Issues = screen.Issues
	result.Suggestions = screen.Suggestions
	result.Passed = screen.Score >= PassingScore
	return result
}

func (g *Guard) modelScreen(ctx context.Context, content string) (screenResponse, error) {
	var parsed screenResponse

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: clients.QualityModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: screenSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: content},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return parsed, err
	}
	if len(resp.Choices) == 0 {
		return parsed, errors.New("guard: empty completion")
	}

	raw := cleanModelResponse(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return parsed, err
	}
	return parsed, nil
}

func cleanModelResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
