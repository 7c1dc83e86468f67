package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/postforge/internal/models"
)

func draftCreatedAt(id string, createdAt time.Time) models.Draft {
	d := models.NewDraft(id, 1, "content")
	d.CreatedAt = createdAt
	return d
}

func TestSortAndLimitDrafts(t *testing.T) {
	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	drafts := []models.Draft{
		draftCreatedAt("old", base.Add(-2*time.Hour)),
		draftCreatedAt("newest", base),
		draftCreatedAt("middle", base.Add(-time.Hour)),
	}

	got := sortAndLimitDrafts(drafts, 10)

	require.Len(t, got, 3)
	assert.Equal(t, "newest_v1", got[0].DraftID)
	assert.Equal(t, "middle_v1", got[1].DraftID)
	assert.Equal(t, "old_v1", got[2].DraftID)
}

func TestSortAndLimitDrafts_AppliesLimit(t *testing.T) {
	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	var drafts []models.Draft
	for i := 0; i < 5; i++ {
		drafts = append(drafts, draftCreatedAt(string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute)))
	}

	got := sortAndLimitDrafts(drafts, 2)

	require.Len(t, got, 2)
	assert.Equal(t, "e_v1", got[0].DraftID)
	assert.Equal(t, "d_v1", got[1].DraftID)
}

func TestQualityNotes(t *testing.T) {
	assert.Equal(t, "Passed", qualityNotes(models.QualityResult{Passed: true}))
	assert.Equal(t, "too short; hype language",
		qualityNotes(models.QualityResult{Issues: []string{"too short", "hype language"}}))
}
