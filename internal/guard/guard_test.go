package guard

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/postforge/internal/models"
)

type fakeChatClient struct {
	content string
	err     error
	calls   int
}

func (f *fakeChatClient) CreateChatCompletion(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls++
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

func TestCheck_PassingDraft(t *testing.T) {
	client := &fakeChatClient{content: `{"score": 85, "issues": [], "suggestions": ["tighten the opener"]}`}
	draft := models.NewDraft("item1", 1, goodDraft)

	result := NewGuard(client).Check(context.Background(), draft)

	assert.True(t, result.Passed)
	assert.Equal(t, 85.0, result.Score)
	assert.Equal(t, draft.DraftID, result.DraftID)
	assert.False(t, result.CheckedAt.IsZero())
}

func TestCheck_ModelRejectsLowScore(t *testing.T) {
	client := &fakeChatClient{content: `{"score": 40, "issues": ["vague"], "suggestions": []}`}
	draft := models.NewDraft("item1", 1, goodDraft)

	result := NewGuard(client).Check(context.Background(), draft)

	assert.False(t, result.Passed)
	assert.Equal(t, 40.0, result.Score)
	assert.Contains(t, result.Issues, "vague")
}

func TestCheck_LexicalFailureSkipsModel(t *testing.T) {
	client := &fakeChatClient{content: `{"score": 99}`}
	draft := models.NewDraft("item1", 1, goodDraft+" This is a game-changer!")

	result := NewGuard(client).Check(context.Background(), draft)

	assert.False(t, result.Passed)
	assert.NotEmpty(t, result.Issues)
	assert.Zero(t, client.calls)
}

func TestCheck_ModelFailureFallsBackToLexical(t *testing.T) {
	client := &fakeChatClient{err: errors.New("api down")}
	draft := models.NewDraft("item1", 1, goodDraft)

	result := NewGuard(client).Check(context.Background(), draft)

	assert.True(t, result.Passed)
	assert.Equal(t, PassingScore, result.Score)
}

func TestCheck_StripsCodeFences(t *testing.T) {
	client := &fakeChatClient{content: "```json\n{\"score\": 75, \"issues\": []}\n```"}
	draft := models.NewDraft("item1", 2, goodDraft)

	result := NewGuard(client).Check(context.Background(), draft)

	require.True(t, result.Passed)
	assert.Equal(t, 75.0, result.Score)
}
