package session

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jothamO/prism-admin/internal/models"
)

// Prompt is a state-machine reply the engine turns into a bot message.
type Prompt struct {
	Text    string
	Kind    models.RenderKind
	Buttons []models.Button
}

func plain(text string) *Prompt {
	return &Prompt{Text: text, Kind: models.RenderPlain}
}

// EmploymentButtons is the fixed choice set offered after the full name step.
var EmploymentButtons = []models.Button{
	{ID: "employment_employed", Label: "Employed"},
	{ID: "employment_self_employed", Label: "Self-employed"},
	{ID: "employment_retired", Label: "Retired"},
}

// confirmWords and rejectWords are the only inputs that move a session out
// of StateAwaitingInvoiceConfirmation.
var (
	confirmWords = map[string]bool{"confirm": true, "yes": true, "y": true}
	rejectWords  = map[string]bool{"edit": true, "no": true, "n": true}
)

// Advance runs the state-specific validator for the session's current state.
// It returns (prompt, true) when the state machine consumed the input —
// whether it advanced or re-prompted — and (nil, false) when the current
// state is a free-form command zone and routing should continue.
//
// Validators run before any intent classification, so structured collection
// (ID numbers, confirmations) is never hijacked by a misclassified intent.
func Advance(s *models.Session, input string, policy models.Policy) (*Prompt, bool) {
	text := strings.TrimSpace(input)

	switch s.State {
	case models.StateNew:
		return greet(s, text), true

	case models.StateAwaitingNIN:
		digits := digitsOnly(text)
		if len(digits) != policy.NINLength {
			return plain(fmt.Sprintf("That doesn't look like a NIN. Please enter your %d-digit National Identification Number.", policy.NINLength)), true
		}
		s.Profile.NIN = digits
		s.State = models.StateAwaitingFullName
		slog.Debug("session.Advance: NIN accepted", "sessionID", s.ID)
		return plain("Thanks! Now, what is your full name?"), true

	case models.StateAwaitingTIN:
		digits := digitsOnly(text)
		if len(digits) < policy.TINMinLength {
			return plain(fmt.Sprintf("That doesn't look like a TIN. Please enter your Tax Identification Number (at least %d digits).", policy.TINMinLength)), true
		}
		s.Profile.TIN = digits
		s.State = models.StateAwaitingBusinessName
		slog.Debug("session.Advance: TIN accepted", "sessionID", s.ID)
		return plain("Got it. What is your registered business name?"), true

	case models.StateAwaitingFullName:
		if text == "" {
			return plain("Please enter your full name."), true
		}
		s.Profile.FullName = text
		s.State = models.StateAwaitingEmploymentStatus
		return &Prompt{
			Text:    fmt.Sprintf("Nice to meet you, %s. What is your employment status?", text),
			Kind:    models.RenderButtonChoice,
			Buttons: EmploymentButtons,
		}, true

	case models.StateAwaitingEmploymentStatus:
		status, ok := parseEmploymentStatus(text)
		if !ok {
			return &Prompt{
				Text:    "Please choose one of the options below.",
				Kind:    models.RenderButtonChoice,
				Buttons: EmploymentButtons,
			}, true
		}
		s.Profile.EmploymentStatus = status
		s.State = models.StateRegistered
		slog.Info("session.Advance: registration complete", "sessionID", s.ID, "entityType", s.EntityType)
		return plain("You're all set! Type 'help' to see what I can do — VAT lookups, income tax, project funds, bank statement analysis and more."), true

	case models.StateAwaitingBusinessName:
		if text == "" {
			return plain("Please enter your registered business name."), true
		}
		s.Profile.BusinessName = text
		s.State = models.StateRegistered
		slog.Info("session.Advance: registration complete", "sessionID", s.ID, "entityType", s.EntityType)
		return plain("Your business is registered! Type 'help' to see what I can do."), true

	case models.StateAwaitingInvoiceConfirmation:
		return confirmInvoice(s, text), true

	default:
		// Free-form command zone: grammar and classifier take over.
		return nil, false
	}
}

// greet handles the first message of a session. The "demo" keyword seeds a
// complete test profile; anything else starts structured collection.
func greet(s *models.Session, text string) *Prompt {
	if strings.EqualFold(text, "demo") || strings.EqualFold(text, "test") {
		seedTestData(s)
		return plain("Demo profile loaded. You are registered — type 'help' to explore commands.")
	}

	if s.EntityType == models.EntityTypeBusiness {
		s.State = models.StateAwaitingTIN
		return plain("Welcome! Let's register your business. Please enter your Tax Identification Number (TIN).")
	}
	s.State = models.StateAwaitingNIN
	return plain("Welcome! Let's get you registered. Please enter your 11-digit National Identification Number (NIN).")
}

// confirmInvoice gates the pending invoice: only confirm/yes/y persist it and
// only edit/no/n discard it. Any other input re-prompts and leaves the
// pending invoice untouched.
func confirmInvoice(s *models.Session, text string) *Prompt {
	word := strings.ToLower(text)
	switch {
	case confirmWords[word]:
		if s.PendingInvoice != nil {
			s.YTD.Expenses += s.PendingInvoice.Total
		}
		s.PendingInvoice = nil
		s.State = models.StateRegistered
		slog.Info("session.confirmInvoice: invoice confirmed", "sessionID", s.ID)
		return plain("Invoice saved to your records.")
	case rejectWords[word]:
		s.PendingInvoice = nil
		s.State = models.StateRegistered
		slog.Info("session.confirmInvoice: invoice discarded", "sessionID", s.ID)
		return plain("Invoice discarded. Upload it again when it's ready.")
	default:
		return plain("Please reply 'confirm' to save this invoice or 'edit' to discard it.")
	}
}

func parseEmploymentStatus(text string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	normalized = strings.TrimPrefix(normalized, "employment_")
	normalized = strings.ReplaceAll(normalized, "_", "-")
	switch normalized {
	case models.EmploymentEmployed, models.EmploymentSelfEmployed, models.EmploymentRetired:
		return normalized, true
	case "self employed":
		return models.EmploymentSelfEmployed, true
	default:
		return "", false
	}
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// seedTestData fills a session with a plausible registered profile.
func seedTestData(s *models.Session) {
	if s.EntityType == models.EntityTypeBusiness {
		s.Profile = models.Profile{
			TIN:          "1234567890",
			BusinessName: "Sunrise Ventures Ltd",
		}
	} else {
		s.Profile = models.Profile{
			NIN:              "12345678901",
			FullName:         "Adaeze Obi",
			EmploymentStatus: models.EmploymentSelfEmployed,
		}
	}
	s.State = models.StateRegistered
}
