package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding the exchange archive.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "animo.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// SaveExchange archives one completed exchange.
func (s *Store) SaveExchange(ex Exchange) error {
	risk := 0
	if ex.Risk {
		risk = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO exchanges (id, session_id, user_text, emotion, risk, advice, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ex.ID, ex.SessionID, ex.UserText, ex.Emotion, risk, ex.Advice,
		ex.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// ListBySession returns the most recent exchanges for a session in
// chronological order, up to limit.
func (s *Store) ListBySession(sessionID string, limit int) ([]Exchange, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, session_id, user_text, emotion, risk, advice, created_at
		FROM (
			SELECT id, session_id, user_text, emotion, risk, advice, created_at
			FROM exchanges WHERE session_id = ?
			ORDER BY created_at DESC LIMIT ?
		) ORDER BY created_at ASC`, sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Exchange
	for rows.Next() {
		ex, err := scanExchange(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, ex)
	}
	return results, rows.Err()
}

func scanExchange(rows *sql.Rows) (Exchange, error) {
	var ex Exchange
	var risk int
	var createdAt string
	if err := rows.Scan(&ex.ID, &ex.SessionID, &ex.UserText, &ex.Emotion, &risk, &ex.Advice, &createdAt); err != nil {
		return Exchange{}, err
	}
	ex.Risk = risk != 0
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Exchange{}, fmt.Errorf("parsing created_at: %w", err)
	}
	ex.CreatedAt = t
	return ex, nil
}

// RecentSessions returns per-session aggregates ordered by last activity.
func (s *Store) RecentSessions(limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT session_id, COUNT(*), MAX(created_at)
		FROM exchanges GROUP BY session_id
		ORDER BY MAX(created_at) DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		var last string
		if err := rows.Scan(&sum.SessionID, &sum.Exchanges, &last); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, last)
		if err != nil {
			return nil, fmt.Errorf("parsing last activity: %w", err)
		}
		sum.LastActivity = t
		results = append(results, sum)
	}
	return results, rows.Err()
}

// DeleteSession removes all archived exchanges for a session. Deleting a
// session with no archived exchanges is not an error.
func (s *Store) DeleteSession(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM exchanges WHERE session_id = ?`, sessionID)
	return err
}
