package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spacesedan/postforge/internal/models"
	"github.com/spacesedan/postforge/internal/utils"
)

const (
	hackerNewsAPIURL   = "https://hacker-news.firebaseio.com/v0"
	hackerNewsMaxScan  = 30
	hackerNewsMaxItems = 15
)

// HackerNewsSource walks the top-stories listing and keeps AI-related
// stories. The Firebase API requires one request per story, so the scan is
// capped.
type HackerNewsSource struct {
	client  *http.Client
	baseURL string
}

func NewHackerNewsSource(client *http.Client) *HackerNewsSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HackerNewsSource{client: client, baseURL: hackerNewsAPIURL}
}

func (h *HackerNewsSource) Name() models.SignalSource {
	return models.SourceHackerNews
}

func (h *HackerNewsSource) Fetch(ctx context.Context) ([]models.SignalItem, error) {
	var storyIDs []int64
	if err := h.getJSON(ctx, h.baseURL+"/topstories.json", &storyIDs); err != nil {
		return nil, fmt.Errorf("hackernews: top stories: %w", err)
	}
	if len(storyIDs) > hackerNewsMaxScan {
		storyIDs = storyIDs[:hackerNewsMaxScan]
	}

	var items []models.SignalItem
	for _, sid := range storyIDs {
		var story struct {
			Type        string `json:"type"`
			Title       string `json:"title"`
			URL         string `json:"url"`
			Score       int    `json:"score"`
			Descendants int    `json:"descendants"`
		}
		if err := h.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", h.baseURL, sid), &story); err != nil {
			continue
		}
		if story.Type != "story" || !matchesAIKeywords(story.Title) {
			continue
		}

		storyURL := story.URL
		if storyURL == "" {
			storyURL = fmt.Sprintf("https://news.ycombinator.com/item?id=%d", sid)
		}

		item := models.NewSignalItem(storyURL, story.Title, models.SourceHackerNews)
		item.Description = utils.SanitizeForPrompt(story.Title)
		item.Metadata["hn_id"] = strconv.FormatInt(sid, 10)
		item.Metadata["score"] = strconv.Itoa(story.Score)
		item.Metadata["comments"] = strconv.Itoa(story.Descendants)
		items = append(items, item)

		if len(items) >= hackerNewsMaxItems {
			break
		}
	}
	return items, nil
}

func (h *HackerNewsSource) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
