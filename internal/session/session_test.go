package session

import (
	"context"
	"errors"
	"testing"

	"github.com/jothamO/prism-admin/internal/models"
	"github.com/jothamO/prism-admin/internal/store"
)

func newTestManager() *Manager {
	return NewManager(store.NewInMemoryStore(), models.DefaultPolicy())
}

func TestStartAndGet(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	s, err := m.Start(ctx, models.EntityTypeIndividual)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if s.State != models.StateNew {
		t.Errorf("State = %s, want %s", s.State, models.StateNew)
	}
	if s.ID == "" {
		t.Error("session ID is empty")
	}

	got, err := m.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != s.ID {
		t.Errorf("Get returned ID %s, want %s", got.ID, s.ID)
	}
}

func TestStartRejectsInvalidEntityType(t *testing.T) {
	m := newTestManager()
	if _, err := m.Start(context.Background(), "charity"); !errors.Is(err, models.ErrInvalidEntityType) {
		t.Errorf("error = %v, want ErrInvalidEntityType", err)
	}
}

func TestGetUnknownSession(t *testing.T) {
	m := newTestManager()
	if _, err := m.Get(context.Background(), "missing"); !errors.Is(err, models.ErrSessionNotFound) {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}
	if _, err := m.Get(context.Background(), ""); !errors.Is(err, models.ErrEmptySessionID) {
		t.Errorf("error = %v, want ErrEmptySessionID", err)
	}
}

func TestResetClearsEverythingButBumpsTurn(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	s, err := m.Start(ctx, models.EntityTypeBusiness)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	s.State = models.StateAwaitingInvoiceConfirmation
	s.Profile = models.Profile{TIN: "1234567890", BusinessName: "Sunrise Ventures Ltd"}
	s.PendingInvoice = &models.Invoice{Total: 42_000}
	s.ActiveProject = &models.Project{Name: "Roof", Budget: 100_000}
	s.YTD = models.YTDSummary{Expenses: 10_000}
	s.Turn = 7
	s.AppendTurn("user", "confirm")
	if err := m.Save(ctx, s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := m.Reset(ctx, s); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	if s.State != models.StateNew {
		t.Errorf("State = %s, want %s", s.State, models.StateNew)
	}
	if s.Profile.TIN != "" || s.PendingInvoice != nil || s.ActiveProject != nil {
		t.Error("collected data survived reset")
	}
	if len(s.Window) != 0 {
		t.Error("conversation window survived reset")
	}
	if s.YTD != (models.YTDSummary{}) {
		t.Error("YTD figures survived reset")
	}
	if s.EntityType != models.EntityTypeBusiness {
		t.Error("entity type must survive reset")
	}
	// The turn counter keeps rising so in-flight results become stale.
	if s.Turn != 8 {
		t.Errorf("Turn = %d, want 8", s.Turn)
	}

	persisted, err := m.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get after reset failed: %v", err)
	}
	if persisted.State != models.StateNew || persisted.Turn != 8 {
		t.Errorf("persisted session = state %s turn %d, want NEW / 8", persisted.State, persisted.Turn)
	}
}
