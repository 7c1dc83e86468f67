package models

import (
	"fmt"
	"strings"
	"time"
)

type DraftStatus string

const (
	StatusPending  DraftStatus = "pending"
	StatusApproved DraftStatus = "approved"
	StatusRejected DraftStatus = "rejected"
)

func (s DraftStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

const (
	// DraftVariants is how many drafts the drafting step produces per item.
	DraftVariants = 2
	// MaxEditedContentLen caps manual edits through the review surfaces.
	MaxEditedContentLen = 280
	// MaxHumanLines caps the operator signature appended to a post.
	MaxHumanLines = 2
)

// Draft is a generated candidate post awaiting human review.
type Draft struct {
	DraftID      string      `json:"draft_id" dynamodbav:"draft_id"`
	ItemID       string      `json:"item_id" dynamodbav:"item_id"`
	Variant      int         `json:"variant" dynamodbav:"variant"`
	Content      string      `json:"content" dynamodbav:"content"`
	Status       DraftStatus `json:"status" dynamodbav:"status"`
	QualityScore float64     `json:"quality_score" dynamodbav:"quality_score"`
	QualityNotes string      `json:"quality_notes,omitempty" dynamodbav:"quality_notes,omitempty"`
	HumanLines   string      `json:"human_lines,omitempty" dynamodbav:"human_lines,omitempty"`
	CreatedAt    time.Time   `json:"created_at" dynamodbav:"created_at"`
	ReviewedAt   *time.Time  `json:"reviewed_at,omitempty" dynamodbav:"reviewed_at,omitempty"`
	ReviewNotes  string      `json:"review_notes,omitempty" dynamodbav:"review_notes,omitempty"`
	TweetID      string      `json:"tweet_id,omitempty" dynamodbav:"tweet_id,omitempty"`
	TweetURL     string      `json:"tweet_url,omitempty" dynamodbav:"tweet_url,omitempty"`
}

// DraftID builds the deterministic draft key for an item variant. The item
// ID is sanitized because document keys must not contain '/'.
func DraftID(itemID string, variant int) string {
	safe := strings.ReplaceAll(itemID, "/", "_")
	return fmt.Sprintf("%s_v%d", safe, variant)
}

func NewDraft(itemID string, variant int, content string) Draft {
	return Draft{
		DraftID:   DraftID(itemID, variant),
		ItemID:    itemID,
		Variant:   variant,
		Content:   content,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// PostText is the text published to X: the draft body with the operator's
// signature lines appended after it.
func (d Draft) PostText() string {
	if d.HumanLines == "" {
		return d.Content
	}
	return d.Content + "\n\n" + d.HumanLines
}

func (d Draft) Validate() error {
	if d.ItemID == "" {
		return fmt.Errorf("draft: item_id must not be empty")
	}
	if d.Variant < 1 || d.Variant > DraftVariants {
		return fmt.Errorf("draft: variant must be between 1 and %d, got %d", DraftVariants, d.Variant)
	}
	if strings.TrimSpace(d.Content) == "" {
		return fmt.Errorf("draft: content must not be empty")
	}
	return nil
}

// DraftUpdate is a partial update applied through the dashboard or the bot.
// Nil fields are left untouched.
type DraftUpdate struct {
	Content     *string      `json:"content,omitempty"`
	HumanLines  *string      `json:"human_lines,omitempty"`
	Status      *DraftStatus `json:"status,omitempty"`
	ReviewNotes *string      `json:"review_notes,omitempty"`
}

func (u DraftUpdate) Validate() error {
	if u.Content == nil && u.HumanLines == nil && u.Status == nil && u.ReviewNotes == nil {
		return fmt.Errorf("draft update: no fields provided")
	}
	if u.Content != nil && len(*u.Content) > MaxEditedContentLen {
		return fmt.Errorf("draft update: content exceeds %d chars (%d)", MaxEditedContentLen, len(*u.Content))
	}
	if u.HumanLines != nil {
		var lines int
		for _, l := range strings.Split(strings.TrimSpace(*u.HumanLines), "\n") {
			if strings.TrimSpace(l) != "" {
				lines++
			}
		}
		if lines > MaxHumanLines {
			return fmt.Errorf("draft update: maximum %d human signature lines allowed", MaxHumanLines)
		}
	}
	if u.Status != nil && !u.Status.Valid() {
		return fmt.Errorf("draft update: invalid status %q", *u.Status)
	}
	return nil
}

// QualityResult is the outcome of the automated quality screen for one draft.
type QualityResult struct {
	DraftID     string    `json:"draft_id"`
	Passed      bool      `json:"passed"`
	Score       float64   `json:"score"`
	Issues      []string  `json:"issues,omitempty"`
	Suggestions []string  `json:"suggestions,omitempty"`
	CheckedAt   time.Time `json:"checked_at"`
}
