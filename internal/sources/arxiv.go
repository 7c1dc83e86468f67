package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spacesedan/postforge/internal/models"
	"github.com/spacesedan/postforge/internal/utils"
)

const (
	arxivAPIURL = "https://export.arxiv.org/api/query"
	arxivQuery  = "cat:cs.AI AND (abs:agent OR abs:RAG OR abs:retrieval augmented" +
		" OR abs:evaluation framework OR abs:LLM deployment)"
	arxivMaxResults = 15
)

type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID      string `xml:"id"`
	Title   string `xml:"title"`
	Summary string `xml:"summary"`
}

// ArxivSource queries the arXiv Atom API for recent cs.AI submissions
// matching the agent/RAG/evaluation search terms.
type ArxivSource struct {
	client  *http.Client
	baseURL string
}

func NewArxivSource(client *http.Client) *ArxivSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &ArxivSource{client: client, baseURL: arxivAPIURL}
}

func (a *ArxivSource) Name() models.SignalSource {
	return models.SourceArxiv
}

func (a *ArxivSource) Fetch(ctx context.Context) ([]models.SignalItem, error) {
	endpoint, err := url.Parse(a.baseURL)
	if err != nil {
		return nil, fmt.Errorf("arxiv: parse url: %w", err)
	}
	q := endpoint.Query()
	q.Set("search_query", arxivQuery)
	q.Set("start", "0")
	q.Set("max_results", strconv.Itoa(arxivMaxResults))
	q.Set("sortBy", "submittedDate")
	q.Set("sortOrder", "descending")
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv: new request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv: unexpected status %s", resp.Status)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("arxiv: decode feed: %w", err)
	}

	items := make([]models.SignalItem, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		paperURL := strings.TrimSpace(entry.ID)
		if paperURL == "" {
			continue
		}

		item := models.NewSignalItem(paperURL, collapseWhitespace(entry.Title), models.SourceArxiv)
		item.Description = utils.TruncateForPost(
			utils.SanitizeForPrompt(collapseWhitespace(entry.Summary)), 500)
		item.Metadata["arxiv_id"] = paperURL[strings.LastIndex(paperURL, "/")+1:]
		items = append(items, item)
	}
	return items, nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
