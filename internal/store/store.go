package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	_ "modernc.org/sqlite"
)

// SchemaVersion is bumped whenever the stored shape changes incompatibly.
// The version lives in the metadata table; a database written by a newer
// build is refused instead of being silently misread.
const SchemaVersion = 1

// ErrDuplicateAccessCode is returned when a child's access code collides
// with another child's. Codes are unique collection-wide.
var ErrDuplicateAccessCode = errors.New("access code already in use")

// ErrSchemaTooNew is returned when the database was written by a newer build.
var ErrSchemaTooNew = errors.New("database schema is newer than this build")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS guardians (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		plan TEXT NOT NULL DEFAULT 'Free',
		avatar TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'guardian',
		password_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		guardian_id TEXT NOT NULL DEFAULT '',
		child_id TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS children (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		age INTEGER NOT NULL,
		grade TEXT NOT NULL,
		avatar TEXT NOT NULL DEFAULT '',
		access_code TEXT NOT NULL UNIQUE,
		difficulty_subjects TEXT NOT NULL DEFAULT '[]',
		xp INTEGER NOT NULL DEFAULT 0,
		stars INTEGER NOT NULL DEFAULT 0,
		streak INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS exercises (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		child_id TEXT NOT NULL,
		child_name TEXT NOT NULL,
		child_age INTEGER NOT NULL,
		grade TEXT NOT NULL,
		subject TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		objective_text TEXT NOT NULL DEFAULT '',
		story_content TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		score REAL,
		completed INTEGER NOT NULL DEFAULT 0,
		image_url TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		teacher_name TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		exercise_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		text TEXT NOT NULL,
		type TEXT NOT NULL,
		options TEXT NOT NULL DEFAULT '[]',
		correct_answer TEXT NOT NULL DEFAULT '',
		explanation TEXT NOT NULL DEFAULT '',
		audio_data TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (exercise_id) REFERENCES exercises(id)
	);

	CREATE TABLE IF NOT EXISTS check_ins (
		id TEXT PRIMARY KEY,
		child_id TEXT NOT NULL,
		date DATETIME NOT NULL,
		mood TEXT NOT NULL,
		energy INTEGER NOT NULL,
		sleep_quality INTEGER NOT NULL,
		school_status TEXT NOT NULL DEFAULT '',
		event TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (child_id) REFERENCES children(id)
	);

	CREATE TABLE IF NOT EXISTS goals (
		id TEXT PRIMARY KEY,
		child_id TEXT NOT NULL,
		title TEXT NOT NULL,
		target_days INTEGER NOT NULL,
		completed_days TEXT NOT NULL DEFAULT '[]',
		FOREIGN KEY (child_id) REFERENCES children(id)
	);

	CREATE TABLE IF NOT EXISTS classes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		grade TEXT NOT NULL,
		student_count INTEGER NOT NULL DEFAULT 0,
		engagement INTEGER NOT NULL DEFAULT 0
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return s.checkSchemaVersion()
}

func (s *Store) checkSchemaVersion() error {
	raw, err := s.GetMetadata(metaSchemaVersion)
	if err != nil {
		return err
	}
	if raw == "" {
		return s.SetMetadata(metaSchemaVersion, strconv.Itoa(SchemaVersion))
	}
	stored, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("parse stored schema version %q: %w", raw, err)
	}
	if stored > SchemaVersion {
		return fmt.Errorf("%w: stored %d, supported %d", ErrSchemaTooNew, stored, SchemaVersion)
	}
	return nil
}
