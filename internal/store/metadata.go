package store

import "database/sql"

const (
	metaSchemaVersion = "schema_version"
	metaDemoSeeded    = "demo_seeded"
)

// SetMetadata upserts a key-value pair in the metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// IsDemoSeeded reports whether demo data has already been written.
func (s *Store) IsDemoSeeded() (bool, error) {
	v, err := s.GetMetadata(metaDemoSeeded)
	return v == "1", err
}

// MarkDemoSeeded records that demo data was written, so restarts do not
// duplicate it.
func (s *Store) MarkDemoSeeded() error {
	return s.SetMetadata(metaDemoSeeded, "1")
}
