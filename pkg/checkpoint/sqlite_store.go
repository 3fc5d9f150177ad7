package checkpoint

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"dycrawler/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	id         TEXT PRIMARY KEY,
	platform   TEXT NOT NULL,
	mode       TEXT NOT NULL,
	data       TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_checkpoints_platform_mode
	ON checkpoints (platform, mode, created_at DESC);
`

// SQLiteStore persists checkpoints in a single SQLite database file.
// Each row holds the full checkpoint as JSON; platform, mode and
// timestamps are broken out for querying.
type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger
}

// NewSQLiteStore opens (and if needed initializes) the database at path.
func NewSQLiteStore(path string, log logger.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize checkpoint schema: %w", err)
	}

	return &SQLiteStore{db: db, logger: log}, nil
}

// Save upserts the checkpoint row. SQLite's transactional write gives
// the same crash guarantee as the file store's rename.
func (s *SQLiteStore) Save(cp *Checkpoint) error {
	cp.UpdatedAt = time.Now()

	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO checkpoints (id, platform, mode, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`,
		cp.ID, cp.Platform, string(cp.Mode), string(data),
		cp.CreatedAt.Unix(), cp.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	s.logger.DebugWithFields("checkpoint saved", map[string]interface{}{
		"id":    cp.ID,
		"mode":  string(cp.Mode),
		"items": len(cp.Items),
	})
	return nil
}

// Load returns the most recent checkpoint for the platform and mode.
func (s *SQLiteStore) Load(platform string, mode Mode) (*Checkpoint, error) {
	row := s.db.QueryRow(`
		SELECT data FROM checkpoints
		WHERE platform = ? AND mode = ?
		ORDER BY created_at DESC LIMIT 1`,
		platform, string(mode))
	return scanCheckpoint(row)
}

// LoadByID returns the checkpoint with the given ID, or nil.
func (s *SQLiteStore) LoadByID(id string) (*Checkpoint, error) {
	row := s.db.QueryRow(`SELECT data FROM checkpoints WHERE id = ?`, id)
	return scanCheckpoint(row)
}

func scanCheckpoint(row *sql.Row) (*Checkpoint, error) {
	var data string
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal([]byte(data), &cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return &cp, nil
}

// List returns all checkpoints for the platform, newest first.
func (s *SQLiteStore) List(platform string) ([]*Checkpoint, error) {
	rows, err := s.db.Query(`
		SELECT data FROM checkpoints
		WHERE platform = ? OR ? = ''
		ORDER BY created_at DESC`,
		platform, platform)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	var result []*Checkpoint
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to read checkpoint row: %w", err)
		}
		var cp Checkpoint
		if err := json.Unmarshal([]byte(data), &cp); err != nil {
			s.logger.WarnWithFields("skipping undecodable checkpoint row", map[string]interface{}{
				"error": err.Error(),
			})
			continue
		}
		result = append(result, &cp)
	}
	return result, rows.Err()
}

// Delete removes the checkpoint row if present.
func (s *SQLiteStore) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM checkpoints WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
