package agg

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/victhorio/compound/agg/core"
	"github.com/victhorio/compound/logger"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface with SQLite persistence.
// It uses an embedded EphemeralStore as a cache to reduce database reads
// during active conversations.
type SQLiteStore struct {
	db        *sql.DB
	ephemeral *EphemeralStore
	mu        sync.RWMutex
}

// NewSQLiteStore creates a new SQLite-backed store.
// The path parameter can be a file path or ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteStore: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteStore: failed to open database: %w", err)
	}

	// every connection to ":memory:" would get its own database
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewSQLiteStore: failed to enable WAL mode: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewSQLiteStore: failed to initialize schema: %w", err)
	}

	eph := NewEphemeralStore()
	return &SQLiteStore{
		db:        db,
		ephemeral: &eph,
	}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_messages_session_id_id
			ON messages(session_id, id);

		CREATE TABLE IF NOT EXISTS usage (
			session_id TEXT PRIMARY KEY,
			input_tokens INTEGER NOT NULL DEFAULT 0,
			output_tokens INTEGER NOT NULL DEFAULT 0,
			total_tokens INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Messages returns all messages for a given session.
// It uses the ephemeral cache if the session has already been loaded.
func (s *SQLiteStore) Messages(sessionID string) []core.Msg {
	s.mu.RLock()
	msgs := s.ephemeral.Messages(sessionID)
	s.mu.RUnlock()
	if len(msgs) > 0 {
		return msgs
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// double-check after acquiring write lock
	msgs = s.ephemeral.Messages(sessionID)
	if len(msgs) > 0 {
		return msgs
	}

	log := logger.Named("store").WithField("session", sessionID)

	msgs, err := s.loadMessages(sessionID)
	if err != nil {
		log.WithError(err).Error("failed to load messages")
		return []core.Msg{}
	}

	// Usage goes into the cache together with the messages, a cached session without its usage
	// would under-report from then on.
	usage, err := s.loadUsage(sessionID)
	if err != nil {
		log.WithError(err).Error("failed to load usage")
		return []core.Msg{}
	}

	if err := s.ephemeral.Extend(sessionID, msgs, usage); err != nil {
		log.WithError(err).Warn("failed to populate ephemeral cache")
	}

	return msgs
}

// Usage returns the accumulated usage for a given session.
// Unlike Messages it never populates the cache, only Messages and Extend load both together.
func (s *SQLiteStore) Usage(sessionID string) core.Usage {
	s.mu.RLock()
	usage := s.ephemeral.Usage(sessionID)
	s.mu.RUnlock()
	if !usage.IsZero() {
		return usage
	}

	usage, err := s.loadUsage(sessionID)
	if err != nil {
		logger.Named("store").WithField("session", sessionID).WithError(err).Error("failed to load usage")
		return core.Usage{}
	}

	return usage
}

// Extend appends messages and accumulates usage for a session.
// It writes through to both SQLite and the ephemeral cache.
func (s *SQLiteStore) Extend(sessionID string, msgs []core.Msg, usage core.Usage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("SQLiteStore.Extend: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT INTO messages (session_id, role, text) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("SQLiteStore.Extend: failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, msg := range msgs {
		if _, err := stmt.Exec(sessionID, string(msg.Role), msg.Text); err != nil {
			return fmt.Errorf("SQLiteStore.Extend: failed to insert message: %w", err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO usage (session_id, input_tokens, output_tokens, total_tokens)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			input_tokens = usage.input_tokens + excluded.input_tokens,
			output_tokens = usage.output_tokens + excluded.output_tokens,
			total_tokens = usage.total_tokens + excluded.total_tokens
	`, sessionID, usage.Input, usage.Output, usage.Total)
	if err != nil {
		return fmt.Errorf("SQLiteStore.Extend: failed to upsert usage: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("SQLiteStore.Extend: failed to commit transaction: %w", err)
	}

	// only update the cache after the database accepted the write
	if err := s.ephemeral.Extend(sessionID, msgs, usage); err != nil {
		return fmt.Errorf("SQLiteStore.Extend: failed to update ephemeral cache: %w", err)
	}

	return nil
}

func (s *SQLiteStore) loadMessages(sessionID string) ([]core.Msg, error) {
	rows, err := s.db.Query(
		"SELECT role, text FROM messages WHERE session_id = ? ORDER BY id ASC",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []core.Msg
	for rows.Next() {
		var role, text string
		if err := rows.Scan(&role, &text); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		msgs = append(msgs, core.Msg{Role: core.Role(role), Text: text})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return msgs, nil
}

func (s *SQLiteStore) loadUsage(sessionID string) (core.Usage, error) {
	var usage core.Usage
	err := s.db.QueryRow(`
		SELECT input_tokens, output_tokens, total_tokens
		FROM usage
		WHERE session_id = ?
	`, sessionID).Scan(&usage.Input, &usage.Output, &usage.Total)

	if err == sql.ErrNoRows {
		return core.Usage{}, nil
	}

	if err != nil {
		return core.Usage{}, fmt.Errorf("failed to query usage: %w", err)
	}

	return usage, nil
}
