package session

import (
	"strings"
	"testing"

	"github.com/jothamO/prism-admin/internal/models"
)

func newSession(entityType models.EntityType) *models.Session {
	return &models.Session{ID: "s1", EntityType: entityType, State: models.StateNew}
}

func advance(t *testing.T, s *models.Session, input string) *Prompt {
	t.Helper()
	prompt, handled := Advance(s, input, models.DefaultPolicy())
	if !handled {
		t.Fatalf("Advance(%q) in state %s not handled", input, s.State)
	}
	return prompt
}

func TestIndividualRegistrationFlow(t *testing.T) {
	s := newSession(models.EntityTypeIndividual)

	advance(t, s, "hello")
	if s.State != models.StateAwaitingNIN {
		t.Fatalf("State = %s, want AWAITING_NIN", s.State)
	}

	// Invalid NIN re-prompts without advancing.
	prompt := advance(t, s, "1234")
	if s.State != models.StateAwaitingNIN {
		t.Fatalf("short NIN advanced the state to %s", s.State)
	}
	if !strings.Contains(prompt.Text, "11-digit") {
		t.Errorf("re-prompt should mention the digit count, got %q", prompt.Text)
	}

	advance(t, s, "123-456-789 01") // digits extracted from noisy input
	if s.State != models.StateAwaitingFullName {
		t.Fatalf("State = %s, want AWAITING_FULL_NAME", s.State)
	}
	if s.Profile.NIN != "12345678901" {
		t.Errorf("NIN = %q, want digits only", s.Profile.NIN)
	}

	prompt = advance(t, s, "Adaeze Obi")
	if s.State != models.StateAwaitingEmploymentStatus {
		t.Fatalf("State = %s, want AWAITING_EMPLOYMENT_STATUS", s.State)
	}
	if prompt.Kind != models.RenderButtonChoice || len(prompt.Buttons) != 3 {
		t.Errorf("employment prompt should carry three buttons, got %+v", prompt)
	}

	// Garbage re-prompts with the same buttons.
	prompt = advance(t, s, "whatever")
	if s.State != models.StateAwaitingEmploymentStatus {
		t.Fatalf("invalid status advanced the state to %s", s.State)
	}
	if prompt.Kind != models.RenderButtonChoice {
		t.Error("re-prompt lost its buttons")
	}

	// A button ID is accepted as the selection.
	advance(t, s, "employment_self_employed")
	if s.State != models.StateRegistered {
		t.Fatalf("State = %s, want REGISTERED", s.State)
	}
	if s.Profile.EmploymentStatus != models.EmploymentSelfEmployed {
		t.Errorf("EmploymentStatus = %q", s.Profile.EmploymentStatus)
	}
}

func TestBusinessRegistrationFlow(t *testing.T) {
	s := newSession(models.EntityTypeBusiness)

	advance(t, s, "hi")
	if s.State != models.StateAwaitingTIN {
		t.Fatalf("State = %s, want AWAITING_TIN", s.State)
	}

	advance(t, s, "12345") // too short
	if s.State != models.StateAwaitingTIN {
		t.Fatalf("short TIN advanced the state to %s", s.State)
	}

	advance(t, s, "1234567890")
	if s.State != models.StateAwaitingBusinessName {
		t.Fatalf("State = %s, want AWAITING_BUSINESS_NAME", s.State)
	}

	advance(t, s, "Sunrise Ventures Ltd")
	if s.State != models.StateRegistered {
		t.Fatalf("State = %s, want REGISTERED", s.State)
	}
	if s.Profile.BusinessName != "Sunrise Ventures Ltd" {
		t.Errorf("BusinessName = %q", s.Profile.BusinessName)
	}
}

func TestDemoSeedSkipsRegistration(t *testing.T) {
	s := newSession(models.EntityTypeIndividual)
	advance(t, s, "demo")
	if s.State != models.StateRegistered {
		t.Fatalf("State = %s, want REGISTERED", s.State)
	}
	if s.Profile.NIN == "" || s.Profile.FullName == "" {
		t.Error("demo seed left the profile empty")
	}
}

func TestInvoiceConfirmationGate(t *testing.T) {
	s := newSession(models.EntityTypeIndividual)
	s.State = models.StateAwaitingInvoiceConfirmation
	s.PendingInvoice = &models.Invoice{Vendor: "PHCN", Total: 42_000}

	// Anything but confirm/edit re-prompts and keeps the invoice pending.
	for _, input := range []string{"maybe", "ok", "save it", "vat 50000"} {
		advance(t, s, input)
		if s.State != models.StateAwaitingInvoiceConfirmation {
			t.Fatalf("input %q escaped the confirmation gate to %s", input, s.State)
		}
		if s.PendingInvoice == nil {
			t.Fatalf("input %q cleared the pending invoice", input)
		}
	}

	// Confirm persists the total into the ledger and clears the invoice.
	advance(t, s, "confirm")
	if s.State != models.StateRegistered {
		t.Fatalf("State = %s, want REGISTERED", s.State)
	}
	if s.PendingInvoice != nil {
		t.Error("pending invoice survived confirmation")
	}
	if s.YTD.Expenses != 42_000 {
		t.Errorf("YTD.Expenses = %d, want 42000", s.YTD.Expenses)
	}
}

func TestInvoiceRejectionDiscards(t *testing.T) {
	s := newSession(models.EntityTypeIndividual)
	s.State = models.StateAwaitingInvoiceConfirmation
	s.PendingInvoice = &models.Invoice{Total: 42_000}

	advance(t, s, "edit")
	if s.State != models.StateRegistered {
		t.Fatalf("State = %s, want REGISTERED", s.State)
	}
	if s.PendingInvoice != nil {
		t.Error("pending invoice survived rejection")
	}
	if s.YTD.Expenses != 0 {
		t.Errorf("YTD.Expenses = %d, want 0 after rejection", s.YTD.Expenses)
	}
}

func TestCommandZonePassesThrough(t *testing.T) {
	for _, state := range []models.SessionState{models.StateRegistered, models.StateAwaitingInvoiceUpload} {
		s := newSession(models.EntityTypeIndividual)
		s.State = state
		if _, handled := Advance(s, "vat 50000 electronics", models.DefaultPolicy()); handled {
			t.Errorf("state %s should pass free-form input through to routing", state)
		}
	}
}
