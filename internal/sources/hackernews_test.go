package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/postforge/internal/models"
)

func TestHackerNewsSource_Fetch(t *testing.T) {
	stories := map[string]string{
		"1": `{"type": "story", "title": "Show HN: LLM eval harness", "url": "https://example.com/eval", "score": 120, "descendants": 45}`,
		"2": `{"type": "story", "title": "Ask HN: Favorite keyboard?", "url": "https://example.com/kbd", "score": 80, "descendants": 200}`,
		"3": `{"type": "job", "title": "Hiring AI engineers"}`,
		"4": `{"type": "story", "title": "Self-hosted RAG pipeline", "score": 95, "descendants": 30}`,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/topstories.json" {
			w.Write([]byte(`[1, 2, 3, 4]`))
			return
		}
		for id, body := range stories {
			if r.URL.Path == fmt.Sprintf("/item/%s.json", id) {
				w.Write([]byte(body))
				return
			}
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	src := NewHackerNewsSource(server.Client())
	src.baseURL = server.URL

	items, err := src.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Show HN: LLM eval harness", items[0].Title)
	assert.Equal(t, "https://example.com/eval", items[0].URL)
	assert.Equal(t, "120", items[0].Metadata["score"])

	// Story 4 has no URL; the HN discussion link stands in.
	assert.Equal(t, "https://news.ycombinator.com/item?id=4", items[1].URL)
	assert.Equal(t, models.SourceHackerNews, items[1].Source)
}

func TestHackerNewsSource_TopStoriesFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	src := NewHackerNewsSource(server.Client())
	src.baseURL = server.URL

	_, err := src.Fetch(context.Background())

	assert.Error(t, err)
}
