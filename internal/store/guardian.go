package store

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/educasense/educasense/internal/model"
)

// CreateGuardian inserts a new guardian or teacher account.
func (s *Store) CreateGuardian(g model.Guardian) error {
	_, err := s.db.Exec(
		`INSERT INTO guardians (id, name, email, plan, avatar, role, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, g.Email, g.Plan, g.Avatar, g.Role, g.PasswordHash, time.Now(),
	)
	if err != nil {
		slog.Error("failed to create guardian", "email", g.Email, "error", err)
		return err
	}
	slog.Info("created guardian", "id", g.ID, "email", g.Email, "role", g.Role)
	return nil
}

const guardianColumns = `id, name, email, plan, avatar, role, password_hash, created_at`

func scanGuardian(row interface{ Scan(...any) error }) (*model.Guardian, error) {
	var g model.Guardian
	err := row.Scan(&g.ID, &g.Name, &g.Email, &g.Plan, &g.Avatar, &g.Role, &g.PasswordHash, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// GetGuardianByEmail returns a guardian by email, or nil if not found.
func (s *Store) GetGuardianByEmail(email string) (*model.Guardian, error) {
	g, err := scanGuardian(s.db.QueryRow(`SELECT `+guardianColumns+` FROM guardians WHERE email = ?`, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return g, err
}

// GetGuardianByID returns a guardian by ID, or nil if not found.
func (s *Store) GetGuardianByID(id string) (*model.Guardian, error) {
	g, err := scanGuardian(s.db.QueryRow(`SELECT `+guardianColumns+` FROM guardians WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return g, err
}

// UpdateGuardianProfile updates a guardian's display fields.
func (s *Store) UpdateGuardianProfile(g model.Guardian) error {
	_, err := s.db.Exec(
		`UPDATE guardians SET name = ?, avatar = ?, plan = ? WHERE id = ?`,
		g.Name, g.Avatar, g.Plan, g.ID,
	)
	return err
}

// GuardianCount returns the total number of accounts.
func (s *Store) GuardianCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM guardians`).Scan(&count)
	return count, err
}
