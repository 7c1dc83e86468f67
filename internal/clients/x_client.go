package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dghubble/oauth1"
)

const (
	xPostURL       = "https://api.x.com/2/tweets"
	xMaxPostLength = 4000
)

var (
	xPosterInstance *XPoster
	xPosterOnce     sync.Once
)

// XPoster posts approved drafts to X through the v2 API using OAuth 1.0a
// user-context signing. All four credentials must be present; otherwise the
// poster reports unconfigured and approval proceeds without posting.
type XPoster struct {
	httpClient *http.Client
	postURL    string
	configured bool
}

func GetXPoster() *XPoster {
	xPosterOnce.Do(func() {
		apiKey := os.Getenv("X_API_KEY")
		apiSecret := os.Getenv("X_API_KEY_SECRET")
		accessToken := os.Getenv("X_ACCESS_TOKEN")
		accessSecret := os.Getenv("X_ACCESS_TOKEN_SECRET")

		if apiKey == "" || apiSecret == "" || accessToken == "" || accessSecret == "" {
			slog.Warn("[XPoster] X API credentials not configured, approvals will not auto-post")
			xPosterInstance = &XPoster{configured: false}
			return
		}

		oauthConfig := oauth1.NewConfig(apiKey, apiSecret)
		token := oauth1.NewToken(accessToken, accessSecret)
		httpClient := oauthConfig.Client(oauth1.NoContext, token)
		httpClient.Timeout = 15 * time.Second

		xPosterInstance = &XPoster{
			httpClient: httpClient,
			postURL:    xPostURL,
			configured: true,
		}
		slog.Info("[XPoster] X poster initialized")
	})
	return xPosterInstance
}

func (x *XPoster) Configured() bool {
	return x.configured
}

// Post publishes text and returns the tweet ID and URL.
func (x *XPoster) Post(ctx context.Context, text string) (string, string, error) {
	if !x.configured {
		return "", "", fmt.Errorf("[XPoster] credentials not configured")
	}
	if len(text) > xMaxPostLength {
		return "", "", fmt.Errorf("[XPoster] post exceeds %d chars (%d)", xMaxPostLength, len(text))
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", "", fmt.Errorf("[XPoster] marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, x.postURL, bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("[XPoster] new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("[XPoster] post failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", "", fmt.Errorf("[XPoster] X API error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", "", fmt.Errorf("[XPoster] decode response: %w", err)
	}

	tweetID := result.Data.ID
	slog.Info("[XPoster] Posted to X", slog.String("tweet_id", tweetID))
	return tweetID, "https://x.com/i/status/" + tweetID, nil
}
