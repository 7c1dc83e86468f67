package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSignalItem_DeterministicID(t *testing.T) {
	a := NewSignalItem("https://example.com/post", "Title", SourceRSS)
	b := NewSignalItem("https://example.com/post", "Different title", SourceGitHub)

	assert.Equal(t, a.ItemID, b.ItemID)
}

func TestNewSignalItem_TrimsFields(t *testing.T) {
	item := NewSignalItem("  https://example.com ", "  Hello  ", SourceArxiv)

	assert.Equal(t, "https://example.com", item.URL)
	assert.Equal(t, "Hello", item.Title)
	assert.NotNil(t, item.Metadata)
	assert.False(t, item.CollectedAt.IsZero())
}

func TestSignalItemValidate(t *testing.T) {
	valid := NewSignalItem("https://example.com", "Title", SourceRSS)
	assert.NoError(t, valid.Validate())

	assert.Error(t, SignalItem{Title: "no url"}.Validate())
	assert.Error(t, SignalItem{URL: "https://example.com"}.Validate())
}
