// Package models defines the core data structures shared across the simulator.
//
// It includes the session record, transcript messages, classified intents, and
// bank statement transaction types used by the engine and its components.
package models

import (
	"errors"
	"strings"
	"time"
)

// ConversationWindowSize bounds the rolling (role, text) history kept per
// session for classifier context. Oldest turns are evicted first.
const ConversationWindowSize = 5

// Error variables for input validation across components.
var (
	ErrEmptySessionID     = errors.New("session id cannot be empty")
	ErrInvalidEntityType  = errors.New("entity type must be 'individual' or 'business'")
	ErrEmptyMessage       = errors.New("message text cannot be empty")
	ErrSessionNotFound    = errors.New("session not found")
	ErrNoActiveProject    = errors.New("no active project in session")
	ErrProjectExists      = errors.New("a project is already active; complete it first")
	ErrEmptyStatement     = errors.New("bank statement contains no transactions")
	ErrInvalidTransaction = errors.New("transaction must carry exactly one of credit or debit")
)

// Sender identifies who authored a transcript message.
type Sender string

const (
	// SenderUser marks messages typed (or clicked) by the simulated user.
	SenderUser Sender = "user"
	// SenderBot marks engine-authored responses.
	SenderBot Sender = "bot"
)

// RenderKind determines how a bot message is presented.
type RenderKind string

const (
	// RenderPlain is a plain text message.
	RenderPlain RenderKind = "plain"
	// RenderButtonChoice presents a small set of tappable buttons.
	RenderButtonChoice RenderKind = "buttonChoice"
	// RenderListMenu presents a sectioned selection list.
	RenderListMenu RenderKind = "listMenu"
)

// Button is one tappable option on a buttonChoice message. The ID is what a
// structured reply carries back; it is routed ahead of grammar and classifier.
type Button struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ListSection groups rows in a listMenu message.
type ListSection struct {
	Title string   `json:"title"`
	Rows  []Button `json:"rows"`
}

// IntentSource records which routing layer produced an intent.
type IntentSource string

const (
	// IntentSourceClassifier marks intents returned by the external NLU collaborator.
	IntentSourceClassifier IntentSource = "classifier"
	// IntentSourceFallback marks intents synthesized from a grammar or regex match.
	IntentSourceFallback IntentSource = "fallback"
)

// Intent is the classifier's structured guess at what the user wants.
// Confidence and entities come from the external collaborator verbatim;
// the engine never recomputes them.
type Intent struct {
	Name       string            `json:"name"`
	Confidence float64           `json:"confidence"`
	Entities   map[string]string `json:"entities,omitempty"`
	Reasoning  string            `json:"reasoning,omitempty"`
	Source     IntentSource      `json:"source"`
}

// Entity returns the named entity value, trimmed, and whether it was present.
func (i *Intent) Entity(name string) (string, bool) {
	if i == nil || i.Entities == nil {
		return "", false
	}
	v, ok := i.Entities[name]
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// Message is one turn in a session transcript.
type Message struct {
	ID        string        `json:"id"`
	SessionID string        `json:"session_id"`
	Sender    Sender        `json:"sender"`
	Text      string        `json:"text"`
	Kind      RenderKind    `json:"kind"`
	Buttons   []Button      `json:"buttons,omitempty"`
	Sections  []ListSection `json:"sections,omitempty"`
	Intent    *Intent       `json:"intent,omitempty"` // attached for traceability
	Time      time.Time     `json:"time"`
}

// Turn is one (role, text) pair in the sliding classifier context window.
type Turn struct {
	Role string `json:"role"` // "user" or "assistant"
	Text string `json:"text"`
}

// Profile is the partial registration record collected by the state machine.
// Fields are populated incrementally and never retroactively cleared except
// on full session reset.
type Profile struct {
	NIN              string   `json:"nin,omitempty"`
	FullName         string   `json:"full_name,omitempty"`
	EmploymentStatus string   `json:"employment_status,omitempty"`
	TIN              string   `json:"tin,omitempty"`
	BusinessName     string   `json:"business_name,omitempty"`
	Reliefs          []string `json:"reliefs,omitempty"`
}

// Invoice is a pending OCR-extracted invoice awaiting confirmation. It exists
// only while the session is in StateAwaitingInvoiceConfirmation.
type Invoice struct {
	Vendor    string        `json:"vendor,omitempty"`
	Total     int64         `json:"total"`
	LineItems []InvoiceLine `json:"line_items,omitempty"`
}

// InvoiceLine is one extracted invoice line item.
type InvoiceLine struct {
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
}

// Project is a session-owned project fund. Spent grows monotonically through
// expense entries; balance is always budget minus spent.
type Project struct {
	Name   string `json:"name"`
	Source string `json:"source,omitempty"`
	Budget int64  `json:"budget"`
	Spent  int64  `json:"spent"`
}

// Balance returns the unspent portion of the budget. Negative means over budget.
func (p *Project) Balance() int64 {
	return p.Budget - p.Spent
}

// YTDSummary accumulates rolling year-to-date figures as the simulated user
// records income, expenses, and paid taxes during the session.
type YTDSummary struct {
	Revenue  int64 `json:"revenue"`
	Expenses int64 `json:"expenses"`
	VATPaid  int64 `json:"vat_paid"`
	PITPaid  int64 `json:"pit_paid"`
}

// TransactionCategory is a semantic bucket assigned by the statement categorizer.
type TransactionCategory string

const (
	CategorySales       TransactionCategory = "sales"
	CategoryTransfersIn TransactionCategory = "transfersIn"
	CategoryExpenses    TransactionCategory = "expenses"
	CategoryUtilities   TransactionCategory = "utilities"
	CategorySalaries    TransactionCategory = "salaries"
	CategoryOther       TransactionCategory = "other"
)

// Categories lists every bucket in a stable order, used for deterministic
// aggregation and reporting.
var Categories = []TransactionCategory{
	CategorySales, CategoryTransfersIn, CategoryExpenses,
	CategoryUtilities, CategorySalaries, CategoryOther,
}

// BankTransaction is one raw statement line. Exactly one of Credit or Debit
// is populated; amounts are whole naira.
type BankTransaction struct {
	Date        string `json:"date" csv:"date"`
	Description string `json:"description" csv:"description"`
	Credit      int64  `json:"credit,omitempty" csv:"credit"`
	Debit       int64  `json:"debit,omitempty" csv:"debit"`
}

// Validate checks the one-of credit/debit contract.
func (t *BankTransaction) Validate() error {
	if t.Credit > 0 && t.Debit > 0 {
		return ErrInvalidTransaction
	}
	return nil
}

// CategorizedTransaction is a statement line tagged with its semantic bucket
// and an optional advisory risk flag. Categorization is derived, never stored
// upstream, and is recomputed in full on every upload.
type CategorizedTransaction struct {
	BankTransaction
	Category TransactionCategory `json:"category"`
	RiskFlag string              `json:"risk_flag,omitempty"`
	Review   bool                `json:"review,omitempty"` // large credits always need human confirmation
}

// Session is the full mutable state of one simulated conversation. It is
// exclusively owned and mutated by the single in-flight turn.
type Session struct {
	ID         string       `json:"id"`
	EntityType EntityType   `json:"entity_type"`
	State      SessionState `json:"state"`
	Profile    Profile      `json:"profile"`

	// Window holds the last ConversationWindowSize turns for classifier context.
	Window []Turn `json:"window,omitempty"`

	PendingInvoice *Invoice   `json:"pending_invoice,omitempty"`
	ActiveProject  *Project   `json:"active_project,omitempty"`
	YTD            YTDSummary `json:"ytd"`

	// Turn increments on every accepted inbound message and acts as the
	// stale-result guard after a reset.
	Turn int64 `json:"turn"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppendTurn pushes a (role, text) pair onto the sliding window, evicting the
// oldest entry once the window is full.
func (s *Session) AppendTurn(role, text string) {
	s.Window = append(s.Window, Turn{Role: role, Text: text})
	if len(s.Window) > ConversationWindowSize {
		s.Window = s.Window[len(s.Window)-ConversationWindowSize:]
	}
}

// Validate performs basic invariant checks on a session record.
func (s *Session) Validate() error {
	if s.ID == "" {
		return ErrEmptySessionID
	}
	if !IsValidEntityType(s.EntityType) {
		return ErrInvalidEntityType
	}
	if !IsValidSessionState(s.State) {
		return errors.New("invalid session state: " + string(s.State))
	}
	if s.PendingInvoice != nil && s.State != StateAwaitingInvoiceConfirmation {
		return errors.New("pending invoice outside AWAITING_INVOICE_CONFIRMATION")
	}
	return nil
}
