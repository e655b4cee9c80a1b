// Package store provides storage backends for simulator sessions and transcripts.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/jothamO/prism-admin/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists sessions and transcripts in a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN (a file path).
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// SaveSession inserts or replaces a session record. The full session is kept
// as a JSON blob alongside queryable entity_type and state columns.
func (s *SQLiteStore) SaveSession(session models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		slog.Error("SQLiteStore SaveSession marshal failed", "error", err, "sessionID", session.ID)
		return fmt.Errorf("failed to marshal session %s: %w", session.ID, err)
	}
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO sessions (id, entity_type, state, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID, session.EntityType, session.State, string(data), session.CreatedAt, session.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveSession failed", "error", err, "sessionID", session.ID)
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	slog.Debug("SQLiteStore SaveSession succeeded", "sessionID", session.ID, "state", session.State)
	return nil
}

// GetSession retrieves a session by ID. Returns (nil, nil) when absent.
func (s *SQLiteStore) GetSession(id string) (*models.Session, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM sessions WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetSession not found", "sessionID", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetSession failed", "error", err, "sessionID", id)
		return nil, fmt.Errorf("failed to query session %s: %w", id, err)
	}

	var session models.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		slog.Error("SQLiteStore GetSession unmarshal failed", "error", err, "sessionID", id)
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", id, err)
	}
	slog.Debug("SQLiteStore GetSession found", "sessionID", id, "state", session.State)
	return &session, nil
}

// DeleteSession removes a session and its transcript.
func (s *SQLiteStore) DeleteSession(id string) error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		slog.Error("SQLiteStore DeleteSession failed", "error", err, "sessionID", id)
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	if _, err := s.db.Exec(`DELETE FROM messages WHERE session_id = ?`, id); err != nil {
		slog.Error("SQLiteStore DeleteSession transcript delete failed", "error", err, "sessionID", id)
		return fmt.Errorf("failed to delete transcript for %s: %w", id, err)
	}
	slog.Debug("SQLiteStore DeleteSession succeeded", "sessionID", id)
	return nil
}

// AddMessage appends one transcript message. The message body (buttons,
// sections, intent traceability included) is stored as JSON.
func (s *SQLiteStore) AddMessage(msg models.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		slog.Error("SQLiteStore AddMessage marshal failed", "error", err, "sessionID", msg.SessionID)
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO messages (id, session_id, sender, kind, body, time)
		VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, msg.Sender, msg.Kind, string(body), msg.Time)
	if err != nil {
		slog.Error("SQLiteStore AddMessage failed", "error", err, "sessionID", msg.SessionID)
		return fmt.Errorf("failed to insert message for %s: %w", msg.SessionID, err)
	}
	slog.Debug("SQLiteStore AddMessage succeeded", "sessionID", msg.SessionID, "sender", msg.Sender)
	return nil
}

// GetTranscript returns the transcript for a session in insertion order.
func (s *SQLiteStore) GetTranscript(sessionID string) ([]models.Message, error) {
	rows, err := s.db.Query(`SELECT body FROM messages WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		slog.Error("SQLiteStore GetTranscript query failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query transcript for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			slog.Error("SQLiteStore GetTranscript scan failed", "error", err, "sessionID", sessionID)
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		var msg models.Message
		if err := json.Unmarshal([]byte(body), &msg); err != nil {
			slog.Error("SQLiteStore GetTranscript unmarshal failed", "error", err, "sessionID", sessionID)
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore GetTranscript rows iteration failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}
	slog.Debug("SQLiteStore GetTranscript succeeded", "sessionID", sessionID, "count", len(msgs))
	return msgs, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	return s.db.Close()
}
