// Package store provides storage backends for simulator sessions and transcripts.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/jothamO/prism-admin/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants.
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database.
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool.
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused.
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists sessions and transcripts in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// SaveSession inserts or updates a session record.
func (s *PostgresStore) SaveSession(session models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		slog.Error("PostgresStore SaveSession marshal failed", "error", err, "sessionID", session.ID)
		return fmt.Errorf("failed to marshal session %s: %w", session.ID, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO sessions (id, entity_type, state, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			entity_type = EXCLUDED.entity_type,
			state = EXCLUDED.state,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at`,
		session.ID, session.EntityType, session.State, string(data), session.CreatedAt, session.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveSession failed", "error", err, "sessionID", session.ID)
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	slog.Debug("PostgresStore SaveSession succeeded", "sessionID", session.ID, "state", session.State)
	return nil
}

// GetSession retrieves a session by ID. Returns (nil, nil) when absent.
func (s *PostgresStore) GetSession(id string) (*models.Session, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM sessions WHERE id = $1`, id).Scan(&data)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetSession not found", "sessionID", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetSession failed", "error", err, "sessionID", id)
		return nil, fmt.Errorf("failed to query session %s: %w", id, err)
	}

	var session models.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		slog.Error("PostgresStore GetSession unmarshal failed", "error", err, "sessionID", id)
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", id, err)
	}
	return &session, nil
}

// DeleteSession removes a session and its transcript.
func (s *PostgresStore) DeleteSession(id string) error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE id = $1`, id); err != nil {
		slog.Error("PostgresStore DeleteSession failed", "error", err, "sessionID", id)
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	if _, err := s.db.Exec(`DELETE FROM messages WHERE session_id = $1`, id); err != nil {
		slog.Error("PostgresStore DeleteSession transcript delete failed", "error", err, "sessionID", id)
		return fmt.Errorf("failed to delete transcript for %s: %w", id, err)
	}
	slog.Debug("PostgresStore DeleteSession succeeded", "sessionID", id)
	return nil
}

// AddMessage appends one transcript message.
func (s *PostgresStore) AddMessage(msg models.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		slog.Error("PostgresStore AddMessage marshal failed", "error", err, "sessionID", msg.SessionID)
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO messages (id, session_id, sender, kind, body, time)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.ID, msg.SessionID, msg.Sender, msg.Kind, string(body), msg.Time)
	if err != nil {
		slog.Error("PostgresStore AddMessage failed", "error", err, "sessionID", msg.SessionID)
		return fmt.Errorf("failed to insert message for %s: %w", msg.SessionID, err)
	}
	return nil
}

// GetTranscript returns the transcript for a session in insertion order.
func (s *PostgresStore) GetTranscript(sessionID string) ([]models.Message, error) {
	rows, err := s.db.Query(`SELECT body FROM messages WHERE session_id = $1 ORDER BY seq`, sessionID)
	if err != nil {
		slog.Error("PostgresStore GetTranscript query failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query transcript for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			slog.Error("PostgresStore GetTranscript scan failed", "error", err, "sessionID", sessionID)
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		var msg models.Message
		if err := json.Unmarshal([]byte(body), &msg); err != nil {
			slog.Error("PostgresStore GetTranscript unmarshal failed", "error", err, "sessionID", sessionID)
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore GetTranscript rows iteration failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}
	slog.Debug("PostgresStore GetTranscript succeeded", "sessionID", sessionID, "count", len(msgs))
	return msgs, nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}
