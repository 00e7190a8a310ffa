package store

import (
	"fmt"
	"time"

	"github.com/educasense/educasense/internal/model"
	"github.com/educasense/educasense/internal/quiz"
)

// ExportHistory builds an export-ready snapshot of the exercise history
// together with each child's gamification summary.
func (s *Store) ExportHistory() (*model.HistoryExport, error) {
	children, err := s.ListChildren()
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	exercises, err := s.ListExercises()
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}

	counts := make(map[string]int)
	completed := make(map[string]int)
	for _, ex := range exercises {
		counts[ex.ChildID]++
		if ex.Completed {
			completed[ex.ChildID]++
		}
	}

	var summaries []model.ChildSummary
	for _, c := range children {
		summaries = append(summaries, model.ChildSummary{
			ID:             c.ID,
			Name:           c.Name,
			Grade:          c.Grade,
			XP:             c.XP,
			Stars:          c.Stars,
			Streak:         c.Streak,
			Level:          quiz.Level(c.XP),
			ExerciseCount:  counts[c.ID],
			CompletedCount: completed[c.ID],
		})
	}

	return &model.HistoryExport{
		ExportedAt:    time.Now(),
		SchemaVersion: SchemaVersion,
		Children:      summaries,
		Exercises:     exercises,
	}, nil
}
