package models

import "time"

// RunResult summarizes one pipeline execution.
type RunResult struct {
	RunID            string     `json:"run_id"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	ItemsCollected   int        `json:"items_collected"`
	ItemsShortlisted int        `json:"items_shortlisted"`
	DraftsGenerated  int        `json:"drafts_generated"`
	DraftsPassed     int        `json:"drafts_passed_quality"`
	Errors           []string   `json:"errors,omitempty"`
}

// ScheduleEntry is one approved draft slotted into the weekly posting list.
type ScheduleEntry struct {
	DraftID    string `json:"draft_id"`
	Content    string `json:"content"`
	HumanLines string `json:"human_lines,omitempty"`
	Day        string `json:"scheduled_day"`
	Date       string `json:"scheduled_date"`
}
