// Package session owns the lifecycle of simulated conversations: creation,
// persistence, reset, and the registration state machine validators.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jothamO/prism-admin/internal/models"
	"github.com/jothamO/prism-admin/internal/store"
)

// Manager loads and saves sessions through a Store backend.
type Manager struct {
	store  store.Store
	policy models.Policy
}

// NewManager creates a session manager backed by a store.
func NewManager(st store.Store, policy models.Policy) *Manager {
	slog.Debug("session.NewManager: creating manager")
	return &Manager{store: st, policy: policy}
}

// Start creates a new session for the given entity type in StateNew.
func (m *Manager) Start(ctx context.Context, entityType models.EntityType) (*models.Session, error) {
	if !models.IsValidEntityType(entityType) {
		return nil, models.ErrInvalidEntityType
	}
	now := time.Now()
	session := models.Session{
		ID:         uuid.NewString(),
		EntityType: entityType,
		State:      models.StateNew,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := m.store.SaveSession(session); err != nil {
		slog.Error("session.Start: save failed", "error", err, "sessionID", session.ID)
		return nil, fmt.Errorf("failed to save new session: %w", err)
	}
	slog.Info("session.Start: session created", "sessionID", session.ID, "entityType", entityType)
	return &session, nil
}

// Get retrieves a session by ID. Missing sessions yield ErrSessionNotFound.
func (m *Manager) Get(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return nil, models.ErrEmptySessionID
	}
	session, err := m.store.GetSession(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	if session == nil {
		return nil, models.ErrSessionNotFound
	}
	return session, nil
}

// Save persists the session with a fresh UpdatedAt.
func (m *Manager) Save(ctx context.Context, session *models.Session) error {
	session.UpdatedAt = time.Now()
	if err := m.store.SaveSession(*session); err != nil {
		slog.Error("session.Save: save failed", "error", err, "sessionID", session.ID)
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

// Reset returns the session unconditionally to StateNew and clears all
// collected data. The turn counter is retained (and bumped) so results of
// any still-pending external call from before the reset are recognizably
// stale and dropped when they arrive.
func (m *Manager) Reset(ctx context.Context, session *models.Session) error {
	slog.Info("session.Reset: resetting session", "sessionID", session.ID, "fromState", session.State)
	turn := session.Turn + 1
	*session = models.Session{
		ID:         session.ID,
		EntityType: session.EntityType,
		State:      models.StateNew,
		Turn:       turn,
		CreatedAt:  session.CreatedAt,
		UpdatedAt:  time.Now(),
	}
	return m.Save(ctx, session)
}

// Policy exposes the configured policy constants.
func (m *Manager) Policy() models.Policy {
	return m.policy
}
