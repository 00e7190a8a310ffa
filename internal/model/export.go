package model

import "time"

// HistoryExport is the top-level JSON structure for the history export.
type HistoryExport struct {
	ExportedAt    time.Time      `json:"exported_at"`
	SchemaVersion int            `json:"schema_version"`
	Children      []ChildSummary `json:"children"`
	Exercises     []Exercise     `json:"exercises"`
}

// ChildSummary holds one child's gamification state for export.
type ChildSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Grade          string `json:"grade"`
	XP             int    `json:"xp"`
	Stars          int    `json:"stars"`
	Streak         int    `json:"streak"`
	Level          int    `json:"level"`
	ExerciseCount  int    `json:"exercise_count"`
	CompletedCount int    `json:"completed_count"`
}
