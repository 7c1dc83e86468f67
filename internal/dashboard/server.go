package dashboard

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/spacesedan/postforge/internal/db"
	"github.com/spacesedan/postforge/internal/digest"
	"github.com/spacesedan/postforge/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// Poster publishes an approved draft to X. The zero implementation reports
// Configured() false and posting is skipped.
type Poster interface {
	Configured() bool
	Post(ctx context.Context, text string) (tweetID, tweetURL string, err error)
}

// Server is the review dashboard: an HTML surface for humans plus a JSON
// API the bot and scripts share.
type Server struct {
	store     db.Store
	poster    Poster
	templates *template.Template
	limiter   *rateLimiter
}

func NewServer(store db.Store, poster Poster) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("dashboard: parse templates: %w", err)
	}
	return &Server{
		store:     store,
		poster:    poster,
		templates: tmpl,
		limiter:   newRateLimiter(rateLimitRequests, rateLimitWindow),
	}, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.limiter.middleware)

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleIndex)
	r.Get("/draft/{draftID}", s.handleDraftPage)
	r.Post("/draft/{draftID}", s.handleDraftForm)
	r.Get("/schedule", s.handleSchedulePage)

	r.Route("/api", func(api chi.Router) {
		api.Get("/drafts", s.handleListDrafts)
		api.Get("/drafts/{draftID}", s.handleGetDraft)
		api.Patch("/drafts/{draftID}", s.handlePatchDraft)
		api.Post("/drafts/{draftID}/approve", s.handleApprove)
		api.Post("/drafts/{draftID}/reject", s.handleReject)
		api.Get("/schedule", s.handleGetSchedule)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	status, err := statusFilter(r.URL.Query().Get("status"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	drafts, err := s.store.ListDrafts(r.Context(), status, 0)
	if err != nil {
		slog.Error("[Dashboard] Failed to list drafts", slog.String("error", err.Error()))
		http.Error(w, "failed to load drafts", http.StatusInternalServerError)
		return
	}
	s.render(w, "dashboard.html", map[string]any{"Drafts": drafts})
}

func (s *Server) handleDraftPage(w http.ResponseWriter, r *http.Request) {
	draft, ok := s.loadDraft(w, r)
	if !ok {
		return
	}
	s.render(w, "draft.html", map[string]any{"Draft": draft})
}

// handleDraftForm backs the buttons on the draft page. Edits and the
// review decision arrive in one submission.
func (s *Server) handleDraftForm(w http.ResponseWriter, r *http.Request) {
	draftID := chi.URLParam(r, "draftID")
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	update := models.DraftUpdate{}
	content := strings.TrimSpace(r.PostFormValue("content"))
	if content != "" {
		update.Content = &content
	}
	humanLines := strings.TrimSpace(r.PostFormValue("human_lines"))
	update.HumanLines = &humanLines

	switch r.PostFormValue("action") {
	case "approve":
		st := models.StatusApproved
		update.Status = &st
	case "reject":
		st := models.StatusRejected
		update.Status = &st
	case "save":
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}

	draft, err := s.applyReview(r.Context(), draftID, update)
	if err != nil {
		s.renderReviewError(w, r, draftID, err)
		return
	}

	http.Redirect(w, r, "/draft/"+draft.DraftID, http.StatusSeeOther)
}

func (s *Server) handleSchedulePage(w http.ResponseWriter, r *http.Request) {
	entries, weekStart, err := s.buildSchedule(r.Context())
	if err != nil {
		http.Error(w, "failed to build schedule", http.StatusInternalServerError)
		return
	}

	type dayGroup struct {
		Day     string
		Date    string
		Entries []models.ScheduleEntry
	}
	var days []dayGroup
	for _, e := range entries {
		if len(days) == 0 || days[len(days)-1].Date != e.Date {
			days = append(days, dayGroup{Day: e.Day, Date: e.Date})
		}
		days[len(days)-1].Entries = append(days[len(days)-1].Entries, e)
	}

	s.render(w, "schedule.html", map[string]any{
		"WeekStart": weekStart.Format("2006-01-02"),
		"Days":      days,
	})
}

func (s *Server) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	status, err := statusFilter(r.URL.Query().Get("status"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	drafts, err := s.store.ListDrafts(r.Context(), status, 0)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list drafts"})
		return
	}
	if drafts == nil {
		drafts = []models.Draft{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"drafts": drafts, "count": len(drafts)})
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	draftID := chi.URLParam(r, "draftID")
	draft, err := s.store.GetDraft(r.Context(), draftID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "draft not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get draft"})
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (s *Server) handlePatchDraft(w http.ResponseWriter, r *http.Request) {
	draftID := chi.URLParam(r, "draftID")

	var update models.DraftUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	draft, err := s.applyReview(r.Context(), draftID, update)
	if err != nil {
		s.writeReviewError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.handleDecision(w, r, models.StatusApproved)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	s.handleDecision(w, r, models.StatusRejected)
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request, status models.DraftStatus) {
	draftID := chi.URLParam(r, "draftID")
	update := models.DraftUpdate{Status: &status}

	draft, err := s.applyReview(r.Context(), draftID, update)
	if err != nil {
		s.writeReviewError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	entries, weekStart, err := s.buildSchedule(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to build schedule"})
		return
	}
	if entries == nil {
		entries = []models.ScheduleEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"week_start": weekStart.Format("2006-01-02"),
		"entries":    entries,
		"text":       digest.FormatSchedule(entries),
	})
}

// applyReview persists a human update and, on approval, posts to X when a
// poster is configured. Posting failures are logged, not surfaced; the
// approval itself already succeeded.
func (s *Server) applyReview(ctx context.Context, draftID string, update models.DraftUpdate) (*models.Draft, error) {
	draft, err := s.store.UpdateDraftReview(ctx, draftID, update)
	if err != nil {
		return nil, err
	}

	if update.Status != nil && *update.Status == models.StatusApproved &&
		s.poster != nil && s.poster.Configured() && draft.TweetID == "" {
		tweetID, tweetURL, err := s.poster.Post(ctx, draft.PostText())
		if err != nil {
			slog.Error("[Dashboard] Failed to post approved draft",
				slog.String("draft_id", draftID),
				slog.String("error", err.Error()))
			return draft, nil
		}
		if err := s.store.SetTweetRef(ctx, draftID, tweetID, tweetURL); err != nil {
			slog.Error("[Dashboard] Failed to record tweet ref",
				slog.String("draft_id", draftID),
				slog.String("error", err.Error()))
			return draft, nil
		}
		draft.TweetID = tweetID
		draft.TweetURL = tweetURL
	}
	return draft, nil
}

func (s *Server) buildSchedule(ctx context.Context) ([]models.ScheduleEntry, time.Time, error) {
	approved := models.StatusApproved
	drafts, err := s.store.ListDrafts(ctx, &approved, 0)
	if err != nil {
		slog.Error("[Dashboard] Failed to list approved drafts", slog.String("error", err.Error()))
		return nil, time.Time{}, err
	}

	now := time.Now()
	return digest.CompileWeekly(drafts, now), digest.NextMonday(now), nil
}

func (s *Server) loadDraft(w http.ResponseWriter, r *http.Request) (*models.Draft, bool) {
	draftID := chi.URLParam(r, "draftID")
	draft, err := s.store.GetDraft(r.Context(), draftID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "draft not found", http.StatusNotFound)
			return nil, false
		}
		http.Error(w, "failed to load draft", http.StatusInternalServerError)
		return nil, false
	}
	return draft, true
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("[Dashboard] Template render failed",
			slog.String("template", name),
			slog.String("error", err.Error()))
	}
}

func (s *Server) renderReviewError(w http.ResponseWriter, r *http.Request, draftID string, err error) {
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "draft not found", http.StatusNotFound)
		return
	}

	draft, getErr := s.store.GetDraft(r.Context(), draftID)
	if getErr != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusBadRequest)
	s.render(w, "draft.html", map[string]any{"Draft": draft, "Error": err.Error()})
}

func (s *Server) writeReviewError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "draft not found"})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
}

func statusFilter(raw string) (*models.DraftStatus, error) {
	if raw == "" {
		return nil, nil
	}
	status := models.DraftStatus(raw)
	if !status.Valid() {
		return nil, fmt.Errorf("invalid status %q", raw)
	}
	return &status, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("[Dashboard] Failed to encode response", slog.String("error", err.Error()))
	}
}
