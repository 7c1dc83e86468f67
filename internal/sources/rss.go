package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/spacesedan/postforge/internal/models"
	"github.com/spacesedan/postforge/internal/utils"
)

const rssMaxPerFeed = 5

// feedEntry is the normalized form of one RSS <item> or Atom <entry>.
type feedEntry struct {
	Title       string
	Link        string
	Description string
}

type rssDocument struct {
	XMLName xml.Name `xml:"rss"`
	Items   []struct {
		Title       string `xml:"title"`
		Link        string `xml:"link"`
		Description string `xml:"description"`
	} `xml:"channel>item"`
}

type atomDocument struct {
	XMLName xml.Name `xml:"feed"`
	Entries []struct {
		Title   string `xml:"title"`
		Summary string `xml:"summary"`
		Links   []struct {
			Href string `xml:"href,attr"`
			Rel  string `xml:"rel,attr"`
		} `xml:"link"`
	} `xml:"entry"`
}

// RSSSource polls the curated list of researcher and company blog feeds.
// Both RSS 2.0 and Atom are accepted since the feed list mixes the two.
type RSSSource struct {
	client *http.Client
	feeds  []string
}

func NewRSSSource(client *http.Client, feeds []string) *RSSSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RSSSource{client: client, feeds: feeds}
}

func (r *RSSSource) Name() models.SignalSource {
	return models.SourceRSS
}

func (r *RSSSource) Fetch(ctx context.Context) ([]models.SignalItem, error) {
	var items []models.SignalItem
	for _, feedURL := range r.feeds {
		entries, err := fetchFeed(ctx, r.client, feedURL)
		if err != nil {
			slog.Warn("[RSSSource] Failed to fetch feed",
				slog.String("feed", feedURL),
				slog.String("error", err.Error()))
			continue
		}

		if len(entries) > rssMaxPerFeed {
			entries = entries[:rssMaxPerFeed]
		}
		for _, entry := range entries {
			if entry.Link == "" {
				continue
			}
			item := models.NewSignalItem(entry.Link, utils.SanitizeForPrompt(entry.Title), models.SourceRSS)
			item.Description = utils.TruncateForPost(htmlToText(entry.Description), 500)
			item.Metadata["feed"] = feedURL
			items = append(items, item)
		}
	}
	return items, nil
}

// fetchFeed downloads and parses a feed URL into normalized entries.
func fetchFeed(ctx context.Context, client *http.Client, feedURL string) ([]feedEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", "postforge/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return parseFeed(raw)
}

func parseFeed(raw []byte) ([]feedEntry, error) {
	var rss rssDocument
	if err := xml.Unmarshal(raw, &rss); err == nil && len(rss.Items) > 0 {
		entries := make([]feedEntry, 0, len(rss.Items))
		for _, it := range rss.Items {
			entries = append(entries, feedEntry{
				Title:       strings.TrimSpace(it.Title),
				Link:        strings.TrimSpace(it.Link),
				Description: it.Description,
			})
		}
		return entries, nil
	}

	var atom atomDocument
	if err := xml.Unmarshal(raw, &atom); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	entries := make([]feedEntry, 0, len(atom.Entries))
	for _, e := range atom.Entries {
		link := ""
		for _, l := range e.Links {
			// Prefer rel="alternate"; many Atom feeds leave rel empty.
			if l.Rel == "alternate" || l.Rel == "" {
				link = l.Href
				break
			}
		}
		entries = append(entries, feedEntry{
			Title:       strings.TrimSpace(e.Title),
			Link:        strings.TrimSpace(link),
			Description: e.Summary,
		})
	}
	return entries, nil
}

// htmlToText flattens the HTML fragments feeds put in their descriptions
// into sanitized plain text.
func htmlToText(fragment string) string {
	if fragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return utils.SanitizeForPrompt(fragment)
	}
	return utils.SanitizeForPrompt(strings.Join(strings.Fields(doc.Text()), " "))
}
