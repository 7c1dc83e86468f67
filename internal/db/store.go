package db

import (
	"context"
	"errors"

	"github.com/spacesedan/postforge/internal/models"
)

// ErrNotFound is returned when a lookup misses.
var ErrNotFound = errors.New("record not found")

// Store is the document-store surface the pipeline, dashboard and bot share.
// Writes are idempotent: Save* create the record only when the deterministic
// key is not present and report whether a new record was created.
type Store interface {
	// SaveItem creates an item, returning false when the item already existed.
	SaveItem(ctx context.Context, item models.SignalItem) (bool, error)
	GetItem(ctx context.Context, itemID string) (*models.SignalItem, error)

	// SaveDraft creates a draft, returning false when the draft already
	// existed. Existing drafts (including reviewed ones) are never touched.
	SaveDraft(ctx context.Context, draft models.Draft) (bool, error)
	GetDraft(ctx context.Context, draftID string) (*models.Draft, error)

	// ApplyQualityResult records the automated screen on a draft. It only
	// applies while the draft is still pending so a pipeline re-run can
	// never override a human decision.
	ApplyQualityResult(ctx context.Context, result models.QualityResult) error

	// UpdateDraftReview applies a human edit/approve/reject and returns the
	// updated draft.
	UpdateDraftReview(ctx context.Context, draftID string, update models.DraftUpdate) (*models.Draft, error)

	// ListDrafts returns drafts sorted newest first, optionally filtered by
	// status, capped at limit.
	ListDrafts(ctx context.Context, status *models.DraftStatus, limit int) ([]models.Draft, error)

	// SetTweetRef records the posted tweet on an approved draft.
	SetTweetRef(ctx context.Context, draftID, tweetID, tweetURL string) error

	Ping(ctx context.Context) error
}
