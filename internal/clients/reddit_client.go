package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	REDDIT_AUTH_URL = "https://www.reddit.com/api/v1/access_token"
	REDDIT_API_URL  = "https://oauth.reddit.com"
)

var (
	redditClientInstance *RedditClient
	redditClientOnce     sync.Once
	redditRateLimitMutex sync.Mutex
)

type RedditClient struct {
	Config  *clientcredentials.Config
	Client  *http.Client
	BaseURL string
	mu      *sync.Mutex
}

// RedditPost is the subset of a Reddit listing entry the collector cares about.
type RedditPost struct {
	Title     string
	SelfText  string
	URL       string
	Permalink string
	Subreddit string
	Score     int
	Comments  int
	Stickied  bool
	Flair     string
}

func GetRedditClient() *RedditClient {
	redditClientOnce.Do(func() {
		oauthConf := &clientcredentials.Config{
			ClientID:     os.Getenv("REDDIT_CLIENT_ID"),
			ClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
			TokenURL:     REDDIT_AUTH_URL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}

		redditClientInstance = &RedditClient{
			Config:  oauthConf,
			Client:  oauthConf.Client(context.Background()),
			BaseURL: REDDIT_API_URL,
			mu:      &sync.Mutex{},
		}
	})

	return redditClientInstance
}

func (rc *RedditClient) RefreshClient() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.Client = rc.Config.Client(context.Background())
}

// FetchHotPosts returns the current hot listing for a subreddit.
func (rc *RedditClient) FetchHotPosts(ctx context.Context, subreddit string, limit int) ([]RedditPost, error) {
	parsedUrl, err := url.Parse(fmt.Sprintf("%s/r/%s/hot", rc.BaseURL, subreddit))
	if err != nil {
		return nil, fmt.Errorf("[RedditClient] Failed to parse URL: %w", err)
	}
	queryParams := parsedUrl.Query()
	queryParams.Add("limit", strconv.Itoa(limit))
	parsedUrl.RawQuery = queryParams.Encode()

	redditRateLimitMutex.Lock()
	time.Sleep(INITIAL_BACKOFF)
	redditRateLimitMutex.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsedUrl.String(), nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", USER_AGENT)

	resp, err := rc.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		slog.Warn("[RedditClient] Token expired - Refreshing and Retrying...")
		rc.RefreshClient()
		return rc.FetchHotPosts(ctx, subreddit, limit)
	case http.StatusTooManyRequests:
		slog.Warn("[RedditClient] 429 Too Many Requests - Retrying with backoff")
		return rc.retryWithBackoff(ctx, subreddit, limit)
	case http.StatusOK:
		bytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return parseListing(bytes)
	}
	return nil, fmt.Errorf("[RedditClient] unexpected status %s", resp.Status)
}

func (rc *RedditClient) retryWithBackoff(ctx context.Context, subreddit string, limit int) ([]RedditPost, error) {
	backoff := INITIAL_BACKOFF
	for i := 1; i < MAX_RETRIES; i++ {
		slog.Warn("[RedditClient] Retrying request",
			slog.Int("attempt", i), slog.Duration("backoff", backoff))

		time.Sleep(backoff)

		backoff *= 2
		if backoff > MAX_BACKOFF {
			backoff = MAX_BACKOFF
		}

		posts, err := rc.FetchHotPosts(ctx, subreddit, limit)
		if err == nil {
			return posts, nil
		}
	}
	return nil, fmt.Errorf("[RedditClient] giving up after %d retries", MAX_RETRIES)
}

func parseListing(raw []byte) ([]RedditPost, error) {
	var listing struct {
		Data struct {
			Children []struct {
				Data struct {
					Title         string `json:"title"`
					SelfText      string `json:"selftext"`
					URL           string `json:"url"`
					Permalink     string `json:"permalink"`
					Subreddit     string `json:"subreddit"`
					Score         int    `json:"score"`
					NumComments   int    `json:"num_comments"`
					Stickied      bool   `json:"stickied"`
					LinkFlairText string `json:"link_flair_text"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}

	if err := json.Unmarshal(raw, &listing); err != nil {
		return nil, fmt.Errorf("[RedditClient] Failed to decode listing: %w", err)
	}

	posts := make([]RedditPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		d := child.Data
		posts = append(posts, RedditPost{
			Title:     d.Title,
			SelfText:  d.SelfText,
			URL:       d.URL,
			Permalink: d.Permalink,
			Subreddit: d.Subreddit,
			Score:     d.Score,
			Comments:  d.NumComments,
			Stickied:  d.Stickied,
			Flair:     d.LinkFlairText,
		})
	}
	return posts, nil
}
