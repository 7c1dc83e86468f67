package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/spacesedan/postforge/internal/utils"
)

type SignalSource string

const (
	SourceGitHub      SignalSource = "github"
	SourceHackerNews  SignalSource = "hackernews"
	SourceReddit      SignalSource = "reddit"
	SourceProductHunt SignalSource = "producthunt"
	SourceArxiv       SignalSource = "arxiv"
	SourceRSS         SignalSource = "rss"
)

// SignalItem is a single piece of content collected from an external source.
// ItemID is derived from the URL so that re-collecting the same URL always
// produces the same record.
type SignalItem struct {
	ItemID      string            `json:"item_id" dynamodbav:"item_id"`
	URL         string            `json:"url" dynamodbav:"url"`
	Title       string            `json:"title" dynamodbav:"title"`
	Source      SignalSource      `json:"source" dynamodbav:"source"`
	Description string            `json:"description,omitempty" dynamodbav:"description,omitempty"`
	CollectedAt time.Time         `json:"collected_at" dynamodbav:"collected_at"`
	Metadata    map[string]string `json:"metadata,omitempty" dynamodbav:"metadata,omitempty"`
}

func NewSignalItem(url, title string, source SignalSource) SignalItem {
	url = strings.TrimSpace(url)
	return SignalItem{
		ItemID:      utils.URLToID(url),
		URL:         url,
		Title:       strings.TrimSpace(title),
		Source:      source,
		CollectedAt: time.Now().UTC(),
		Metadata:    map[string]string{},
	}
}

func (s SignalItem) Validate() error {
	if s.URL == "" {
		return fmt.Errorf("signal item: url must not be empty")
	}
	if s.Title == "" {
		return fmt.Errorf("signal item: title must not be empty")
	}
	return nil
}

// ScoredItem is a SignalItem after relevance scoring.
type ScoredItem struct {
	SignalItem
	RelevanceScore float64  `json:"relevance_score"`
	MatchedTopics  []string `json:"matched_topics,omitempty"`
	Reasoning      string   `json:"reasoning,omitempty"`
}
