package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spacesedan/postforge/internal/models"
	"github.com/spacesedan/postforge/internal/utils"
)

const (
	githubAPIURL     = "https://api.github.com"
	githubSearchTerm = "AI agents OR RAG OR LLM OR evaluation framework"
	githubMaxRepos   = 20
)

// GitHubSource pulls the most-starred repositories matching the AI search
// query from the GitHub search API (no auth required for this volume).
type GitHubSource struct {
	client  *http.Client
	baseURL string
}

func NewGitHubSource(client *http.Client) *GitHubSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &GitHubSource{client: client, baseURL: githubAPIURL}
}

func (g *GitHubSource) Name() models.SignalSource {
	return models.SourceGitHub
}

func (g *GitHubSource) Fetch(ctx context.Context) ([]models.SignalItem, error) {
	endpoint, err := url.Parse(g.baseURL + "/search/repositories")
	if err != nil {
		return nil, fmt.Errorf("github: parse url: %w", err)
	}
	q := endpoint.Query()
	q.Set("q", githubSearchTerm)
	q.Set("sort", "stars")
	q.Set("order", "desc")
	q.Set("per_page", strconv.Itoa(githubMaxRepos))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("github: new request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github: unexpected status %s", resp.Status)
	}

	var result struct {
		Items []struct {
			FullName    string `json:"full_name"`
			HTMLURL     string `json:"html_url"`
			Description string `json:"description"`
			Stars       int    `json:"stargazers_count"`
			Language    string `json:"language"`
			UpdatedAt   string `json:"updated_at"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("github: decode response: %w", err)
	}

	items := make([]models.SignalItem, 0, len(result.Items))
	for _, repo := range result.Items {
		if len(items) >= githubMaxRepos {
			break
		}
		item := models.NewSignalItem(repo.HTMLURL, repo.FullName, models.SourceGitHub)
		item.Description = utils.SanitizeForPrompt(repo.Description)
		item.Metadata["stars"] = strconv.Itoa(repo.Stars)
		item.Metadata["language"] = repo.Language
		item.Metadata["updated_at"] = repo.UpdatedAt
		items = append(items, item)
	}
	return items, nil
}
