package models

import "testing"

func TestAppendTurnEviction(t *testing.T) {
	s := &Session{ID: "s1", EntityType: EntityTypeIndividual, State: StateNew}

	for i, text := range []string{"one", "two", "three", "four", "five"} {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		s.AppendTurn(role, text)
	}
	if len(s.Window) != ConversationWindowSize {
		t.Fatalf("window length = %d, want %d", len(s.Window), ConversationWindowSize)
	}

	// A sixth turn evicts the oldest.
	s.AppendTurn("user", "six")
	if len(s.Window) != ConversationWindowSize {
		t.Fatalf("window length after overflow = %d, want %d", len(s.Window), ConversationWindowSize)
	}
	if s.Window[0].Text != "two" {
		t.Errorf("oldest turn = %q, want %q", s.Window[0].Text, "two")
	}
	if s.Window[len(s.Window)-1].Text != "six" {
		t.Errorf("newest turn = %q, want %q", s.Window[len(s.Window)-1].Text, "six")
	}
}

func TestSessionValidate(t *testing.T) {
	valid := Session{ID: "s1", EntityType: EntityTypeBusiness, State: StateRegistered}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid session rejected: %v", err)
	}

	missingID := Session{EntityType: EntityTypeBusiness, State: StateRegistered}
	if err := missingID.Validate(); err == nil {
		t.Error("expected error for missing ID")
	}

	badEntity := Session{ID: "s1", EntityType: "charity", State: StateRegistered}
	if err := badEntity.Validate(); err == nil {
		t.Error("expected error for invalid entity type")
	}

	badState := Session{ID: "s1", EntityType: EntityTypeBusiness, State: "LIMBO"}
	if err := badState.Validate(); err == nil {
		t.Error("expected error for invalid state")
	}

	// A pending invoice outside the confirmation state violates the invariant.
	strayInvoice := Session{
		ID: "s1", EntityType: EntityTypeBusiness, State: StateRegistered,
		PendingInvoice: &Invoice{Total: 100},
	}
	if err := strayInvoice.Validate(); err == nil {
		t.Error("expected error for pending invoice outside confirmation state")
	}

	held := Session{
		ID: "s1", EntityType: EntityTypeBusiness, State: StateAwaitingInvoiceConfirmation,
		PendingInvoice: &Invoice{Total: 100},
	}
	if err := held.Validate(); err != nil {
		t.Errorf("pending invoice in confirmation state rejected: %v", err)
	}
}

func TestBankTransactionValidate(t *testing.T) {
	ok := BankTransaction{Description: "x", Credit: 100}
	if err := ok.Validate(); err != nil {
		t.Errorf("credit-only transaction rejected: %v", err)
	}
	both := BankTransaction{Description: "x", Credit: 100, Debit: 100}
	if err := both.Validate(); err == nil {
		t.Error("expected error for credit and debit on one line")
	}
}

func TestCommandZone(t *testing.T) {
	zone := map[SessionState]bool{
		StateRegistered:                  true,
		StateAwaitingInvoiceUpload:       true,
		StateAwaitingInvoiceConfirmation: true,
	}
	for _, state := range []SessionState{
		StateNew, StateAwaitingNIN, StateAwaitingFullName, StateAwaitingEmploymentStatus,
		StateAwaitingTIN, StateAwaitingBusinessName, StateRegistered,
		StateAwaitingInvoiceUpload, StateAwaitingInvoiceConfirmation,
	} {
		if got := state.CommandZone(); got != zone[state] {
			t.Errorf("CommandZone(%s) = %v, want %v", state, got, zone[state])
		}
	}
}

func TestIntentEntity(t *testing.T) {
	intent := &Intent{Name: "calculate_vat", Entities: map[string]string{"amount": " 50000 ", "item": ""}}
	if v, ok := intent.Entity("amount"); !ok || v != "50000" {
		t.Errorf("Entity(amount) = %q, %v", v, ok)
	}
	if _, ok := intent.Entity("item"); ok {
		t.Error("empty entity should report absent")
	}
	if _, ok := intent.Entity("missing"); ok {
		t.Error("missing entity should report absent")
	}
	var nilIntent *Intent
	if _, ok := nilIntent.Entity("amount"); ok {
		t.Error("nil intent should report absent")
	}
}
