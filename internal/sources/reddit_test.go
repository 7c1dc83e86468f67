package sources

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/postforge/internal/clients"
	"github.com/spacesedan/postforge/internal/models"
)

type fakeRedditFetcher struct {
	posts map[string][]clients.RedditPost
	err   error
}

func (f *fakeRedditFetcher) FetchHotPosts(_ context.Context, subreddit string, _ int) ([]clients.RedditPost, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.posts[subreddit], nil
}

func TestRedditSource_Fetch(t *testing.T) {
	fetcher := &fakeRedditFetcher{posts: map[string][]clients.RedditPost{
		"MachineLearning": {
			{Title: "New RAG paper", URL: "https://arxiv.org/abs/1", Subreddit: "MachineLearning", Score: 300, Comments: 42},
			{Title: "Weekly thread", Permalink: "/r/MachineLearning/weekly", Stickied: true},
			{Title: "Llama meme", URL: "https://i.example.com/meme.png", Flair: "Meme"},
		},
		"LocalLLaMA": {
			{Title: "Self post about quantization", SelfText: "Long writeup", Permalink: "/r/LocalLLaMA/comments/abc"},
		},
	}}

	src := NewRedditSource(fetcher, []string{"MachineLearning", "LocalLLaMA"})

	items, err := src.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "New RAG paper", items[0].Title)
	assert.Equal(t, "https://arxiv.org/abs/1", items[0].URL)
	assert.Equal(t, "300", items[0].Metadata["score"])
	assert.Equal(t, models.SourceReddit, items[0].Source)

	// Self posts have no outbound URL; the permalink stands in.
	assert.Equal(t, "https://www.reddit.com/r/LocalLLaMA/comments/abc", items[1].URL)
	assert.Equal(t, "Long writeup", items[1].Description)
}

func TestRedditSource_SubredditFailureIsNonFatal(t *testing.T) {
	src := NewRedditSource(&fakeRedditFetcher{err: errors.New("oauth failure")}, []string{"MachineLearning"})

	items, err := src.Fetch(context.Background())

	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestIsLowEffortFlair(t *testing.T) {
	assert.True(t, isLowEffortFlair("Meme"))
	assert.True(t, isLowEffortFlair("humor"))
	assert.False(t, isLowEffortFlair("Research"))
	assert.False(t, isLowEffortFlair(""))
}
