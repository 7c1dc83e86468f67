package sources

import (
	"context"
	"net/http"
	"time"

	"github.com/spacesedan/postforge/internal/models"
	"github.com/spacesedan/postforge/internal/utils"
)

const (
	productHuntFeedURL  = "https://www.producthunt.com/feed"
	productHuntMaxItems = 10
)

// ProductHuntSource reads the public launch feed and keeps AI-related
// products.
type ProductHuntSource struct {
	client  *http.Client
	feedURL string
}

func NewProductHuntSource(client *http.Client) *ProductHuntSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &ProductHuntSource{client: client, feedURL: productHuntFeedURL}
}

func (p *ProductHuntSource) Name() models.SignalSource {
	return models.SourceProductHunt
}

func (p *ProductHuntSource) Fetch(ctx context.Context) ([]models.SignalItem, error) {
	entries, err := fetchFeed(ctx, p.client, p.feedURL)
	if err != nil {
		return nil, err
	}

	var items []models.SignalItem
	for _, entry := range entries {
		if entry.Link == "" || entry.Title == "" {
			continue
		}

		title := utils.SanitizeForPrompt(entry.Title)
		description := utils.TruncateForPost(htmlToText(entry.Description), 500)
		if !matchesAIKeywords(title + " " + description) {
			continue
		}

		item := models.NewSignalItem(entry.Link, title, models.SourceProductHunt)
		item.Description = description
		item.Metadata["source_feed"] = "producthunt"
		items = append(items, item)

		if len(items) >= productHuntMaxItems {
			break
		}
	}
	return items, nil
}
