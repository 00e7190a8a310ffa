package store

import (
	"database/sql"

	"github.com/educasense/educasense/internal/model"
)

// SeedClasses inserts class groups if missing. Classes are read-only after
// seeding.
func (s *Store) SeedClasses(classes []model.ClassGroup) error {
	for _, c := range classes {
		_, err := s.db.Exec(
			`INSERT OR IGNORE INTO classes (id, name, grade, student_count, engagement) VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.Name, c.Grade, c.StudentCount, c.Engagement,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetClass returns a class group by ID, or nil if not found.
func (s *Store) GetClass(id string) (*model.ClassGroup, error) {
	var c model.ClassGroup
	err := s.db.QueryRow(
		`SELECT id, name, grade, student_count, engagement FROM classes WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Grade, &c.StudentCount, &c.Engagement)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListClasses returns all class groups ordered by name.
func (s *Store) ListClasses() ([]model.ClassGroup, error) {
	rows, err := s.db.Query(`SELECT id, name, grade, student_count, engagement FROM classes ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var classes []model.ClassGroup
	for rows.Next() {
		var c model.ClassGroup
		if err := rows.Scan(&c.ID, &c.Name, &c.Grade, &c.StudentCount, &c.Engagement); err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}
