package sources

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spacesedan/postforge/internal/clients"
	"github.com/spacesedan/postforge/internal/models"
	"github.com/spacesedan/postforge/internal/utils"
)

const redditPostsPerSubreddit = 10

// RedditFetcher is what RedditSource needs from the OAuth client.
type RedditFetcher interface {
	FetchHotPosts(ctx context.Context, subreddit string, limit int) ([]clients.RedditPost, error)
}

// RedditSource pulls the hot listing of the configured AI subreddits,
// skipping stickied posts and meme flairs.
type RedditSource struct {
	client     RedditFetcher
	subreddits []string
}

func NewRedditSource(client RedditFetcher, subreddits []string) *RedditSource {
	return &RedditSource{client: client, subreddits: subreddits}
}

func (r *RedditSource) Name() models.SignalSource {
	return models.SourceReddit
}

func (r *RedditSource) Fetch(ctx context.Context) ([]models.SignalItem, error) {
	var items []models.SignalItem
	for _, sub := range r.subreddits {
		posts, err := r.client.FetchHotPosts(ctx, sub, redditPostsPerSubreddit)
		if err != nil {
			slog.Warn("[RedditSource] Failed to fetch subreddit",
				slog.String("subreddit", sub),
				slog.String("error", err.Error()))
			continue
		}

		for _, post := range posts {
			if post.Stickied || isLowEffortFlair(post.Flair) {
				continue
			}

			postURL := post.URL
			if postURL == "" || strings.HasPrefix(postURL, "/r/") {
				postURL = "https://www.reddit.com" + post.Permalink
			}

			item := models.NewSignalItem(postURL, utils.SanitizeForPrompt(post.Title), models.SourceReddit)
			item.Description = utils.TruncateForPost(utils.SanitizeForPrompt(post.SelfText), 500)
			item.Metadata["subreddit"] = post.Subreddit
			item.Metadata["score"] = strconv.Itoa(post.Score)
			item.Metadata["comments"] = strconv.Itoa(post.Comments)
			items = append(items, item)
		}
	}
	return items, nil
}

func isLowEffortFlair(flair string) bool {
	switch strings.ToLower(flair) {
	case "meme", "humor", "funny":
		return true
	}
	return false
}
