package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/postforge/internal/db"
	"github.com/spacesedan/postforge/internal/models"
)

type memStore struct {
	mu     sync.Mutex
	drafts map[string]models.Draft
}

func newMemStore(drafts ...models.Draft) *memStore {
	m := &memStore{drafts: map[string]models.Draft{}}
	for _, d := range drafts {
		m.drafts[d.DraftID] = d
	}
	return m
}

func (m *memStore) SaveItem(context.Context, models.SignalItem) (bool, error) { return true, nil }

func (m *memStore) GetItem(context.Context, string) (*models.SignalItem, error) {
	return nil, db.ErrNotFound
}

func (m *memStore) SaveDraft(_ context.Context, draft models.Draft) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drafts[draft.DraftID]; ok {
		return false, nil
	}
	m.drafts[draft.DraftID] = draft
	return true, nil
}

func (m *memStore) GetDraft(_ context.Context, draftID string) (*models.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	draft, ok := m.drafts[draftID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &draft, nil
}

func (m *memStore) ApplyQualityResult(context.Context, models.QualityResult) error { return nil }

func (m *memStore) UpdateDraftReview(_ context.Context, draftID string, update models.DraftUpdate) (*models.Draft, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	draft, ok := m.drafts[draftID]
	if !ok {
		return nil, db.ErrNotFound
	}
	if update.Content != nil {
		draft.Content = *update.Content
	}
	if update.HumanLines != nil {
		draft.HumanLines = *update.HumanLines
	}
	if update.Status != nil {
		draft.Status = *update.Status
		now := time.Now().UTC()
		draft.ReviewedAt = &now
	}
	m.drafts[draftID] = draft
	return &draft, nil
}

func (m *memStore) ListDrafts(_ context.Context, status *models.DraftStatus, limit int) ([]models.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var drafts []models.Draft
	for _, d := range m.drafts {
		if status == nil || d.Status == *status {
			drafts = append(drafts, d)
		}
	}
	sort.Slice(drafts, func(i, j int) bool { return drafts[i].DraftID < drafts[j].DraftID })
	if limit > 0 && len(drafts) > limit {
		drafts = drafts[:limit]
	}
	return drafts, nil
}

func (m *memStore) SetTweetRef(_ context.Context, draftID, tweetID, tweetURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	draft, ok := m.drafts[draftID]
	if !ok {
		return db.ErrNotFound
	}
	draft.TweetID = tweetID
	draft.TweetURL = tweetURL
	m.drafts[draftID] = draft
	return nil
}

func (m *memStore) Ping(context.Context) error { return nil }

type fakePoster struct {
	configured bool
	posted     []string
	err        error
}

func (f *fakePoster) Configured() bool { return f.configured }

func (f *fakePoster) Post(_ context.Context, text string) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	f.posted = append(f.posted, text)
	id := fmt.Sprintf("90000%d", len(f.posted))
	return id, "https://x.com/i/status/" + id, nil
}

func newTestServer(t *testing.T, store db.Store, poster Poster) http.Handler {
	t.Helper()
	srv, err := NewServer(store, poster)
	require.NoError(t, err)
	return srv.Router()
}

func TestListDraftsAPI(t *testing.T) {
	store := newMemStore(
		models.NewDraft("item1", 1, "first"),
		models.NewDraft("item1", 2, "second"),
	)
	router := newTestServer(t, store, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drafts", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Drafts []models.Draft `json:"drafts"`
		Count  int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
}

func TestListDraftsAPI_StatusFilter(t *testing.T) {
	approved := models.NewDraft("item1", 1, "approved one")
	approved.Status = models.StatusApproved
	store := newMemStore(approved, models.NewDraft("item2", 1, "pending one"))
	router := newTestServer(t, store, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drafts?status=approved", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Drafts []models.Draft `json:"drafts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Drafts, 1)
	assert.Equal(t, "item1_v1", body.Drafts[0].DraftID)
}

func TestListDraftsAPI_InvalidStatus(t *testing.T) {
	router := newTestServer(t, newMemStore(), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drafts?status=bogus", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDraftAPI_NotFound(t *testing.T) {
	router := newTestServer(t, newMemStore(), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drafts/missing_v1", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPatchDraftAPI(t *testing.T) {
	store := newMemStore(models.NewDraft("item1", 1, "original"))
	router := newTestServer(t, store, nil)

	payload := `{"content": "edited content", "human_lines": "my note"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/drafts/item1_v1", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	draft, err := store.GetDraft(context.Background(), "item1_v1")
	require.NoError(t, err)
	assert.Equal(t, "edited content", draft.Content)
	assert.Equal(t, "my note", draft.HumanLines)
	assert.Equal(t, models.StatusPending, draft.Status)
}

func TestPatchDraftAPI_ContentTooLong(t *testing.T) {
	store := newMemStore(models.NewDraft("item1", 1, "original"))
	router := newTestServer(t, store, nil)

	payload := fmt.Sprintf(`{"content": %q}`, strings.Repeat("x", models.MaxEditedContentLen+1))
	req := httptest.NewRequest(http.MethodPatch, "/api/drafts/item1_v1", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApproveAPI_PostsToX(t *testing.T) {
	draft := models.NewDraft("item1", 1, "ready to go")
	draft.HumanLines = "shipping this"
	store := newMemStore(draft)
	poster := &fakePoster{configured: true}
	router := newTestServer(t, store, poster)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/drafts/item1_v1/approve", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	updated, err := store.GetDraft(context.Background(), "item1_v1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, updated.Status)
	assert.NotNil(t, updated.ReviewedAt)
	assert.NotEmpty(t, updated.TweetID)

	require.Len(t, poster.posted, 1)
	assert.Equal(t, "ready to go\n\nshipping this", poster.posted[0])
}

func TestApproveAPI_PosterFailureStillApproves(t *testing.T) {
	store := newMemStore(models.NewDraft("item1", 1, "content"))
	poster := &fakePoster{configured: true, err: fmt.Errorf("api down")}
	router := newTestServer(t, store, poster)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/drafts/item1_v1/approve", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	updated, err := store.GetDraft(context.Background(), "item1_v1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, updated.Status)
	assert.Empty(t, updated.TweetID)
}

func TestRejectAPI(t *testing.T) {
	store := newMemStore(models.NewDraft("item1", 2, "not great"))
	poster := &fakePoster{configured: true}
	router := newTestServer(t, store, poster)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/drafts/item1_v2/reject", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	updated, err := store.GetDraft(context.Background(), "item1_v2")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, updated.Status)
	assert.Empty(t, poster.posted)
}

func TestDraftFormApprove(t *testing.T) {
	store := newMemStore(models.NewDraft("item1", 1, "form content"))
	router := newTestServer(t, store, nil)

	form := url.Values{"action": {"approve"}, "content": {"form content"}, "human_lines": {""}}
	req := httptest.NewRequest(http.MethodPost, "/draft/item1_v1", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	updated, err := store.GetDraft(context.Background(), "item1_v1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, updated.Status)
}

func TestScheduleAPI(t *testing.T) {
	approved := models.NewDraft("item1", 1, "scheduled content")
	approved.Status = models.StatusApproved
	now := time.Now().UTC()
	approved.ReviewedAt = &now
	router := newTestServer(t, newMemStore(approved), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schedule", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		WeekStart string                 `json:"week_start"`
		Entries   []models.ScheduleEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Entries, 1)
	assert.Equal(t, "item1_v1", body.Entries[0].DraftID)
	assert.NotEmpty(t, body.WeekStart)
}

func TestHealth(t *testing.T) {
	router := newTestServer(t, newMemStore(), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDashboardPageRenders(t *testing.T) {
	store := newMemStore(models.NewDraft("item1", 1, "visible content"))
	router := newTestServer(t, store, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "visible content")
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.allow("10.0.0.1"))
	}
	assert.False(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.2"))
}

func TestRateLimiter_DropsIdleClients(t *testing.T) {
	rl := newRateLimiter(30, time.Minute)
	base := time.Now()
	rl.nowFunc = func() time.Time { return base }

	require.True(t, rl.allow("10.0.0.1"))
	require.True(t, rl.allow("10.0.0.2"))
	require.Len(t, rl.hits, 2)

	rl.nowFunc = func() time.Time { return base.Add(2 * time.Minute) }
	require.True(t, rl.allow("10.0.0.1"))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.hits, "10.0.0.2")
	assert.Contains(t, rl.hits, "10.0.0.1")
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	rl := newRateLimiter(1, time.Minute)
	base := time.Now()
	rl.nowFunc = func() time.Time { return base }

	require.True(t, rl.allow("10.0.0.1"))
	require.False(t, rl.allow("10.0.0.1"))

	rl.nowFunc = func() time.Time { return base.Add(2 * time.Minute) }
	assert.True(t, rl.allow("10.0.0.1"))
}
