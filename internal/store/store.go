// Package store provides storage backends for simulator sessions and transcripts.
//
// Three backends are available: an in-memory store for tests and ephemeral use,
// an SQLite store for single-node deployments, and a PostgreSQL store.
package store

import (
	"strings"
	"sync"

	"github.com/jothamO/prism-admin/internal/models"
)

// Store defines the persistence contract for sessions and their transcripts.
type Store interface {
	// SaveSession inserts or replaces a session record.
	SaveSession(session models.Session) error

	// GetSession retrieves a session by ID. Returns (nil, nil) when absent.
	GetSession(id string) (*models.Session, error)

	// DeleteSession removes a session and its transcript.
	DeleteSession(id string) error

	// AddMessage appends one transcript message.
	AddMessage(msg models.Message) error

	// GetTranscript returns the full transcript for a session in append order.
	GetTranscript(sessionID string) ([]models.Message, error)

	// Close releases any underlying resources.
	Close() error
}

// Opts holds configuration options for store construction.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store construction.
type Option func(*Opts)

// WithSQLiteDSN configures an SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN configures a PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType reports "postgres" for PostgreSQL-style DSNs and "sqlite3"
// for anything else (treated as a file path).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite3"
}

// InMemoryStore is a mutex-guarded map-backed store.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
	messages map[string][]models.Message
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]models.Session),
		messages: make(map[string][]models.Message),
	}
}

// SaveSession inserts or replaces a session record.
func (s *InMemoryStore) SaveSession(session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

// GetSession retrieves a session by ID.
func (s *InMemoryStore) GetSession(id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

// DeleteSession removes a session and its transcript.
func (s *InMemoryStore) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	delete(s.messages, id)
	return nil
}

// AddMessage appends one transcript message.
func (s *InMemoryStore) AddMessage(msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], msg)
	return nil
}

// GetTranscript returns the transcript in append order.
func (s *InMemoryStore) GetTranscript(sessionID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := make([]models.Message, len(s.messages[sessionID]))
	copy(msgs, s.messages[sessionID])
	return msgs, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
