package store

import (
	"github.com/educasense/educasense/internal/model"
)

// AddCheckIn validates and appends a behavioral check-in. Check-ins are
// immutable once written.
func (s *Store) AddCheckIn(c model.DailyCheckIn) error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT INTO check_ins (id, child_id, date, mood, energy, sleep_quality, school_status, event)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ChildID, c.Date, c.Mood, c.Energy, c.SleepQuality, c.SchoolStatus, c.Event,
	)
	return err
}

const checkInColumns = `id, child_id, date, mood, energy, sleep_quality, school_status, event`

// ListCheckIns returns all check-ins, newest first.
func (s *Store) ListCheckIns() ([]model.DailyCheckIn, error) {
	return s.listCheckInsWhere(``)
}

// ListCheckInsForChild returns one child's check-ins, newest first.
func (s *Store) ListCheckInsForChild(childID string) ([]model.DailyCheckIn, error) {
	return s.listCheckInsWhere(`WHERE child_id = ?`, childID)
}

func (s *Store) listCheckInsWhere(where string, args ...any) ([]model.DailyCheckIn, error) {
	rows, err := s.db.Query(
		`SELECT `+checkInColumns+` FROM check_ins `+where+` ORDER BY date DESC, id DESC`, args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var checkIns []model.DailyCheckIn
	for rows.Next() {
		var c model.DailyCheckIn
		if err := rows.Scan(&c.ID, &c.ChildID, &c.Date, &c.Mood, &c.Energy, &c.SleepQuality, &c.SchoolStatus, &c.Event); err != nil {
			return nil, err
		}
		checkIns = append(checkIns, c)
	}
	return checkIns, rows.Err()
}
