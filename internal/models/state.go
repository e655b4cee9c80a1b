// Package models defines session state types for the simulator engine.
package models

// SessionState represents the current position of a simulated conversation
// in the registration and invoice state machine. A session has exactly one
// current state at any time.
type SessionState string

const (
	// StateNew indicates a freshly created or reset session.
	StateNew SessionState = "NEW"
	// StateAwaitingNIN waits for an 11-digit national identity number (individual track).
	StateAwaitingNIN SessionState = "AWAITING_NIN"
	// StateAwaitingFullName waits for the registrant's full name.
	StateAwaitingFullName SessionState = "AWAITING_FULL_NAME"
	// StateAwaitingEmploymentStatus waits for an employment status selection.
	StateAwaitingEmploymentStatus SessionState = "AWAITING_EMPLOYMENT_STATUS"
	// StateAwaitingTIN waits for a tax identification number (business track).
	StateAwaitingTIN SessionState = "AWAITING_TIN"
	// StateAwaitingBusinessName waits for the registered business name.
	StateAwaitingBusinessName SessionState = "AWAITING_BUSINESS_NAME"
	// StateRegistered is the free-form command/intent zone after registration.
	StateRegistered SessionState = "REGISTERED"
	// StateAwaitingInvoiceUpload waits for an invoice image to OCR.
	StateAwaitingInvoiceUpload SessionState = "AWAITING_INVOICE_UPLOAD"
	// StateAwaitingInvoiceConfirmation waits for confirm/edit of a pending invoice.
	StateAwaitingInvoiceConfirmation SessionState = "AWAITING_INVOICE_CONFIRMATION"
)

// IsValidSessionState checks if the given session state is one of the known states.
func IsValidSessionState(s SessionState) bool {
	switch s {
	case StateNew, StateAwaitingNIN, StateAwaitingFullName, StateAwaitingEmploymentStatus,
		StateAwaitingTIN, StateAwaitingBusinessName, StateRegistered,
		StateAwaitingInvoiceUpload, StateAwaitingInvoiceConfirmation:
		return true
	default:
		return false
	}
}

// CommandZone reports whether free-text commands and classified intents are
// accepted in this state. Structured collection states (ID numbers, names)
// are validated directly and never reach the grammar or classifier.
func (s SessionState) CommandZone() bool {
	switch s {
	case StateRegistered, StateAwaitingInvoiceUpload, StateAwaitingInvoiceConfirmation:
		return true
	default:
		return false
	}
}

// EntityType distinguishes the two registration tracks. Chosen at session
// start and immutable thereafter; changing it requires a full reset.
type EntityType string

const (
	// EntityTypeIndividual follows the NIN → full name → employment status track.
	EntityTypeIndividual EntityType = "individual"
	// EntityTypeBusiness follows the TIN → business name track.
	EntityTypeBusiness EntityType = "business"
)

// IsValidEntityType checks if the given entity type is supported.
func IsValidEntityType(e EntityType) bool {
	return e == EntityTypeIndividual || e == EntityTypeBusiness
}

// EmploymentStatus values accepted during registration.
const (
	EmploymentEmployed     = "employed"
	EmploymentSelfEmployed = "self-employed"
	EmploymentRetired      = "retired"
)
