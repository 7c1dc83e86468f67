package digest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spacesedan/postforge/internal/models"
)

const (
	// PostsPerDay caps how many approved drafts are scheduled on one day.
	PostsPerDay = 2

	// ScheduleDays is the length of the compiled window.
	ScheduleDays = 7
)

// NextMonday returns the Monday strictly after now, at midnight UTC.
func NextMonday(now time.Time) time.Time {
	now = now.UTC()
	days := (int(time.Monday) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	monday := now.AddDate(0, 0, days)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
}

// CompileWeekly lays approved drafts onto the upcoming week, oldest
// approval first, at most PostsPerDay per day. Drafts that do not fit in
// the window are left for the following week.
func CompileWeekly(drafts []models.Draft, now time.Time) []models.ScheduleEntry {
	approved := make([]models.Draft, 0, len(drafts))
	for _, d := range drafts {
		if d.Status == models.StatusApproved {
			approved = append(approved, d)
		}
	}
	sort.SliceStable(approved, func(i, j int) bool {
		ri, rj := approved[i].ReviewedAt, approved[j].ReviewedAt
		switch {
		case ri == nil:
			return false
		case rj == nil:
			return true
		default:
			return ri.Before(*rj)
		}
	})

	start := NextMonday(now)
	capacity := ScheduleDays * PostsPerDay
	if len(approved) > capacity {
		approved = approved[:capacity]
	}

	entries := make([]models.ScheduleEntry, 0, len(approved))
	for i, d := range approved {
		date := start.AddDate(0, 0, i/PostsPerDay)
		entries = append(entries, models.ScheduleEntry{
			DraftID:    d.DraftID,
			Content:    d.Content,
			HumanLines: d.HumanLines,
			Day:        date.Weekday().String(),
			Date:       date.Format("2006-01-02"),
		})
	}
	return entries
}

// FormatSchedule renders the compiled week as plain text for the dashboard
// and the bot.
func FormatSchedule(entries []models.ScheduleEntry) string {
	if len(entries) == 0 {
		return "No approved drafts to schedule."
	}

	var sb strings.Builder
	currentDate := ""
	for _, e := range entries {
		if e.Date != currentDate {
			currentDate = e.Date
			sb.WriteString(fmt.Sprintf("\n%s %s\n", e.Day, e.Date))
		}
		sb.WriteString(fmt.Sprintf("  [%s]\n", e.DraftID))
		for _, line := range strings.Split(e.Content, "\n") {
			sb.WriteString("  ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		if e.HumanLines != "" {
			sb.WriteString("  + ")
			sb.WriteString(e.HumanLines)
			sb.WriteString("\n")
		}
	}
	return strings.TrimPrefix(sb.String(), "\n")
}
