package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/educasense/educasense/internal/model"
)

// CreateChild validates and inserts a new child profile. The access code is
// stored normalized (uppercase) so matching is case-insensitive, and must be
// unique across the collection.
func (s *Store) CreateChild(c model.Child) error {
	if err := c.Validate(); err != nil {
		return err
	}
	code := model.NormalizeAccessCode(c.AccessCode)

	var existing string
	err := s.db.QueryRow(`SELECT id FROM children WHERE access_code = ?`, code).Scan(&existing)
	if err == nil {
		return ErrDuplicateAccessCode
	}
	if err != sql.ErrNoRows {
		return err
	}

	subjects, err := json.Marshal(c.DifficultySubjects)
	if err != nil {
		return fmt.Errorf("marshal difficulty subjects: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO children (id, name, age, grade, avatar, access_code, difficulty_subjects, xp, stars, streak)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Age, c.Grade, c.Avatar, code, string(subjects), c.XP, c.Stars, c.Streak,
	)
	if err != nil {
		slog.Error("failed to create child", "name", c.Name, "error", err)
		return err
	}
	slog.Info("created child", "id", c.ID, "name", c.Name)
	return nil
}

const childColumns = `id, name, age, grade, avatar, access_code, difficulty_subjects, xp, stars, streak`

func scanChild(row interface{ Scan(...any) error }) (*model.Child, error) {
	var c model.Child
	var subjects string
	err := row.Scan(&c.ID, &c.Name, &c.Age, &c.Grade, &c.Avatar, &c.AccessCode, &subjects, &c.XP, &c.Stars, &c.Streak)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(subjects), &c.DifficultySubjects); err != nil {
		return nil, fmt.Errorf("unmarshal difficulty subjects: %w", err)
	}
	return &c, nil
}

// GetChild returns a child by ID, or nil if not found.
func (s *Store) GetChild(id string) (*model.Child, error) {
	c, err := scanChild(s.db.QueryRow(`SELECT `+childColumns+` FROM children WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// GetChildByAccessCode returns the child whose code matches the given one,
// case-insensitively, or nil if no child matches.
func (s *Store) GetChildByAccessCode(code string) (*model.Child, error) {
	c, err := scanChild(s.db.QueryRow(
		`SELECT `+childColumns+` FROM children WHERE access_code = ?`,
		model.NormalizeAccessCode(code),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// ListChildren returns all children ordered by name.
func (s *Store) ListChildren() ([]model.Child, error) {
	rows, err := s.db.Query(`SELECT ` + childColumns + ` FROM children ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var children []model.Child
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, err
		}
		children = append(children, *c)
	}
	return children, rows.Err()
}

// UpdateChildProfile updates a child's editable profile fields. Gamification
// counters are untouched; those change only through UpdateChildStats.
func (s *Store) UpdateChildProfile(c model.Child) error {
	if err := c.Validate(); err != nil {
		return err
	}
	subjects, err := json.Marshal(c.DifficultySubjects)
	if err != nil {
		return fmt.Errorf("marshal difficulty subjects: %w", err)
	}
	_, err = s.db.Exec(
		`UPDATE children SET name = ?, age = ?, grade = ?, avatar = ?, difficulty_subjects = ? WHERE id = ?`,
		c.Name, c.Age, c.Grade, c.Avatar, string(subjects), c.ID,
	)
	return err
}

// UpdateChildStats overwrites a child's gamification counters with the
// values computed by the quiz engine.
func (s *Store) UpdateChildStats(id string, xp, stars, streak int) error {
	_, err := s.db.Exec(
		`UPDATE children SET xp = ?, stars = ?, streak = ? WHERE id = ?`,
		xp, stars, streak, id,
	)
	return err
}

// ChildCount returns the number of children in the database.
func (s *Store) ChildCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM children`).Scan(&count)
	return count, err
}
