package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/educasense/educasense/internal/model"
)

// CreateGoal validates and inserts a behavior goal.
func (s *Store) CreateGoal(g model.BehaviorGoal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	days, err := json.Marshal(g.CompletedDays)
	if err != nil {
		return fmt.Errorf("marshal completed days: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO goals (id, child_id, title, target_days, completed_days) VALUES (?, ?, ?, ?, ?)`,
		g.ID, g.ChildID, g.Title, g.TargetDays, string(days),
	)
	return err
}

func scanGoal(row interface{ Scan(...any) error }) (*model.BehaviorGoal, error) {
	var g model.BehaviorGoal
	var days string
	if err := row.Scan(&g.ID, &g.ChildID, &g.Title, &g.TargetDays, &days); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(days), &g.CompletedDays); err != nil {
		return nil, fmt.Errorf("unmarshal completed days: %w", err)
	}
	return &g, nil
}

// GetGoal returns a goal by ID, or nil if not found.
func (s *Store) GetGoal(id string) (*model.BehaviorGoal, error) {
	g, err := scanGoal(s.db.QueryRow(
		`SELECT id, child_id, title, target_days, completed_days FROM goals WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return g, err
}

// ListGoalsForChild returns a child's goals, newest first.
func (s *Store) ListGoalsForChild(childID string) ([]model.BehaviorGoal, error) {
	rows, err := s.db.Query(
		`SELECT id, child_id, title, target_days, completed_days FROM goals WHERE child_id = ? ORDER BY rowid DESC`,
		childID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var goals []model.BehaviorGoal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

// MarkGoalDay records a completed day on a goal, honoring the target cap
// and the once-per-date rule. Returns the updated goal.
func (s *Store) MarkGoalDay(id, date string) (*model.BehaviorGoal, error) {
	g, err := s.GetGoal(id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, sql.ErrNoRows
	}
	if err := g.MarkDay(date); err != nil {
		return nil, err
	}
	days, err := json.Marshal(g.CompletedDays)
	if err != nil {
		return nil, fmt.Errorf("marshal completed days: %w", err)
	}
	if _, err := s.db.Exec(`UPDATE goals SET completed_days = ? WHERE id = ?`, string(days), id); err != nil {
		return nil, err
	}
	return g, nil
}

// DeleteGoal removes a goal. Returns sql.ErrNoRows when no goal matched.
func (s *Store) DeleteGoal(id string) error {
	res, err := s.db.Exec(`DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
