package drafter

import (
	"context"
	"errors"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/postforge/internal/models"
)

type fakeChatClient struct {
	content string
	err     error
}

func (f *fakeChatClient) CreateChatCompletion(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

func shortlisted(url string) models.ScoredItem {
	return models.ScoredItem{
		SignalItem:     models.NewSignalItem(url, "An agent framework", models.SourceGitHub),
		RelevanceScore: 88,
		MatchedTopics:  []string{"AI agents and agentic systems"},
	}
}

func TestGenerateDrafts(t *testing.T) {
	client := &fakeChatClient{content: `{"variants": ["First take on the story.", "Second take on the story."]}`}
	item := shortlisted("https://example.com/repo")

	drafts, err := NewDrafter(client).GenerateDrafts(context.Background(), item)

	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, item.ItemID+"_v1", drafts[0].DraftID)
	assert.Equal(t, item.ItemID+"_v2", drafts[1].DraftID)
	assert.Equal(t, models.StatusPending, drafts[0].Status)
	assert.Equal(t, 1, drafts[0].Variant)
	assert.Equal(t, 2, drafts[1].Variant)
}

func TestGenerateDrafts_CapsVariants(t *testing.T) {
	client := &fakeChatClient{content: `{"variants": ["one", "two", "three", "four"]}`}

	drafts, err := NewDrafter(client).GenerateDrafts(context.Background(), shortlisted("https://example.com/x"))

	require.NoError(t, err)
	assert.Len(t, drafts, models.DraftVariants)
}

func TestGenerateDrafts_StripsCodeFences(t *testing.T) {
	client := &fakeChatClient{content: "```json\n{\"variants\": [\"fenced variant\"]}\n```"}

	drafts, err := NewDrafter(client).GenerateDrafts(context.Background(), shortlisted("https://example.com/y"))

	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "fenced variant", drafts[0].Content)
}

func TestGenerateDrafts_DropsBlankVariants(t *testing.T) {
	client := &fakeChatClient{content: `{"variants": ["  ", "only real variant"]}`}

	drafts, err := NewDrafter(client).GenerateDrafts(context.Background(), shortlisted("https://example.com/z"))

	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "only real variant", drafts[0].Content)
}

func TestGenerateDrafts_ClientError(t *testing.T) {
	d := NewDrafter(&fakeChatClient{err: errors.New("api down")})
	d.backoff = time.Millisecond

	_, err := d.GenerateDrafts(context.Background(), shortlisted("https://example.com/err"))

	assert.Error(t, err)
}
