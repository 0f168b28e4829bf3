package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// migrations[i] takes a journal from user_version i to i+1.
var migrations = []string{
	schemaSQL,
}

// schemaVersion is the user_version of an up-to-date journal.
var schemaVersion = len(migrations)

// memoryPath is the go-sqlite3 DSN of a private in-memory database.
const memoryPath = ":memory:"

// pragma is one connection setting and the value PRAGMA reads back once
// it is in effect.
type pragma struct {
	name  string
	value string
	want  string
}

var pragmas = []pragma{
	{"journal_mode", "WAL", "wal"},
	{"synchronous", "NORMAL", "1"},
	{"busy_timeout", "5000", "5000"},
	{"foreign_keys", "ON", "1"},
}

// Store is the run journal.
type Store struct {
	db *sql.DB
}

// Open opens the journal at path, creating the file when it does not exist,
// and brings its schema up to date.
//
// Writes go through a single connection. File journals run in WAL mode so
// history and trace can read while a run is being written.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	if err := configure(db, path == memoryPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure journal %s: %w", path, err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// OpenMemory opens a journal that lives as long as the Store. Scenario
// runs use it so every run is journaled without touching the disk.
func OpenMemory() (*Store, error) {
	return Open(memoryPath)
}

// Close closes the journal. Closing a zero Store is a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// configure applies every pragma and checks that it took. In-memory
// databases have no WAL, so journal_mode is not checked for them.
func configure(db *sql.DB, memory bool) error {
	for _, p := range pragmas {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			return fmt.Errorf("set %s: %w", p.name, err)
		}
		if memory && p.name == "journal_mode" {
			continue
		}
		got, err := readPragma(db, p.name)
		if err != nil {
			return err
		}
		if got != p.want {
			return fmt.Errorf("%s = %q, want %q", p.name, got, p.want)
		}
	}
	return nil
}

func readPragma(db *sql.DB, name string) (string, error) {
	var value string
	if err := db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return value, nil
}

// migrate runs the migrations a journal has not seen yet. A journal
// written by a newer version is refused rather than downgraded.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("journal schema version %d is newer than supported version %d", version, schemaVersion)
	}

	for v := version; v < schemaVersion; v++ {
		if _, err := db.Exec(migrations[v]); err != nil {
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			return fmt.Errorf("set user_version %d: %w", v+1, err)
		}
	}
	return nil
}
