package engine

import (
	"log/slog"
	"strings"

	"github.com/jothamO/prism-admin/internal/classifier"
	"github.com/jothamO/prism-admin/internal/grammar"
	"github.com/jothamO/prism-admin/internal/models"
	"github.com/jothamO/prism-admin/internal/risk"
	"github.com/jothamO/prism-admin/internal/session"
	"github.com/jothamO/prism-admin/internal/taxapi"
)

// routeIntent dispatches a classifier result. Confidence and entities are
// used as returned; the engine never second-guesses the collaborator.
func (e *Engine) routeIntent(t *turn, res *classifier.Result) {
	t.intent = res.Intent
	defer func() { t.intent = nil }()

	slog.Debug("Engine.routeIntent: intent classified",
		"sessionID", t.s.ID, "intent", res.Intent.Name, "confidence", res.Intent.Confidence)

	if res.Check != nil && res.Check.IsSuspicious {
		warning := res.Check.Warning
		if warning == "" {
			warning = "This transaction pattern may be treated as artificial under anti-avoidance rules."
		}
		if res.Check.ActReference != "" {
			warning += " (" + res.Check.ActReference + ")"
		}
		t.sayf("⚠️ %s", warning)
	}

	switch res.Intent.Name {
	case "calculate_vat":
		if amount, ok := intentAmount(res.Intent); ok {
			desc, _ := res.Intent.Entity("item")
			e.calcVAT(t, amount, desc)
			return
		}
		t.say("I can calculate VAT for you. Try *vat <amount> <item>*, e.g. *vat 50000 electronics*.")

	case "calculate_income_tax":
		if amount, ok := intentAmount(res.Intent); ok {
			e.calcIncomeTax(t, taxapi.IncomeTaxRequest{GrossIncome: amount, Period: "annual", IncomeType: "employment"})
			return
		}
		t.say("I can calculate your income tax. Try *tax <annual income>*, e.g. *tax 3600000*.")

	case "relief_info":
		e.showReliefs(t)

	case "transaction_summary":
		e.showSummary(t)

	case "tax_calculation_menu":
		e.showCalculationMenu(t)

	case "upload_receipt":
		t.s.State = models.StateAwaitingInvoiceUpload
		t.say("Please upload your invoice or receipt image and I'll extract the details for you.")

	case "categorize_expense":
		e.categorizeExpense(t, res.Intent)

	case "verify_identity":
		t.sayButtons("Which identity number would you like to verify?", []models.Button{
			{ID: "verify_nin", Label: "Verify NIN"},
			{ID: "verify_tin", Label: "Verify TIN"},
		})

	case "connect_bank":
		t.sayButtons("Choose your bank to connect a statement feed (sandbox).", []models.Button{
			{ID: "bank_gtb", Label: "GTBank"},
			{ID: "bank_access", Label: "Access Bank"},
			{ID: "bank_zenith", Label: "Zenith Bank"},
			{ID: "bank_uba", Label: "UBA"},
		})

	case "set_reminder":
		t.sayButtons("What should I remind you about?", []models.Button{
			{ID: "remind_vat_monthly", Label: "Monthly VAT filing"},
			{ID: "remind_pit_annual", Label: "Annual income tax return"},
		})

	case "greeting":
		t.say("Hello! I'm the tax assistant simulator. Type 'help' to see what I can do.")

	default:
		t.notUnderstood()
	}
}

// intentAmount extracts and parses the "amount" entity.
func intentAmount(intent *models.Intent) (int64, bool) {
	raw, ok := intent.Entity("amount")
	if !ok {
		return 0, false
	}
	amount, err := grammar.ParseAmount(raw)
	if err != nil {
		return 0, false
	}
	return amount, true
}

// categorizeExpense runs the local risk heuristic over a described expense
// and records it in the year-to-date ledger when an amount was extracted.
func (e *Engine) categorizeExpense(t *turn, intent *models.Intent) {
	desc, _ := intent.Entity("description")
	if desc == "" {
		desc, _ = intent.Entity("item")
	}
	amount, hasAmount := intentAmount(intent)

	if desc == "" && !hasAmount {
		t.say("Tell me what you spent and on what, e.g. *project expense 25000 fuel*.")
		return
	}
	if desc == "" {
		desc = "unspecified"
	}
	for _, f := range risk.EvaluateExpense(desc, amount, e.policy) {
		t.sayf("⚠️ %s", f.Warning)
	}
	if hasAmount {
		t.s.YTD.Expenses += amount
		t.sayf("Recorded %s (%s) as a business expense. Expenses this year: %s.", naira(amount), desc, naira(t.s.YTD.Expenses))
		return
	}
	t.sayf("Noted: %s. Include an amount and I'll add it to your expenses.", desc)
}

// showCalculationMenu presents the calculator catalogue as a list menu.
func (e *Engine) showCalculationMenu(t *turn) {
	t.sayList("Which calculation would you like?", []models.ListSection{
		{
			Title: "VAT",
			Rows: []models.Button{
				{ID: "calc_vat", Label: "VAT on a purchase"},
			},
		},
		{
			Title: "Income tax",
			Rows: []models.Button{
				{ID: "calc_income_annual", Label: "Annual income tax"},
				{ID: "calc_income_monthly", Label: "Monthly income tax"},
				{ID: "calc_rental", Label: "Rental withholding"},
				{ID: "calc_pension", Label: "Pension exemption"},
			},
		},
	})
}

// selectionGuidance maps menu button IDs to follow-up guidance.
var selectionGuidance = map[string]string{
	"calc_vat":            "Send *vat <amount> <item>*, e.g. *vat 50000 electronics*.",
	"calc_income_annual":  "Send *tax <annual income>*, e.g. *tax 3600000*.",
	"calc_income_monthly": "Send *monthly tax <monthly income>*, e.g. *monthly tax 250000*.",
	"calc_rental":         "Send *rent <annual rental income>*, e.g. *rent 1200000*.",
	"calc_pension":        "Send *pension <amount>* to check the exemption.",
	"verify_nin":          "Send your 11-digit NIN and I'll check the format.",
	"verify_tin":          "Send your TIN (at least 10 digits) and I'll check the format.",
	"remind_vat_monthly":  "Done. I'll remind you before the 21st of each month to file VAT.",
	"remind_pit_annual":   "Done. I'll remind you ahead of the annual return deadline on 31 March.",
}

// bankLabels maps bank button IDs to display names.
var bankLabels = map[string]string{
	"bank_gtb":    "GTBank",
	"bank_access": "Access Bank",
	"bank_zenith": "Zenith Bank",
	"bank_uba":    "UBA",
}

// routeSelection dispatches a tapped button ID. Selection IDs are resolved
// ahead of every other routing tier.
func (e *Engine) routeSelection(t *turn, buttonID string) {
	id := strings.TrimSpace(buttonID)
	slog.Debug("Engine.routeSelection: selection received", "sessionID", t.s.ID, "buttonID", id)

	switch {
	case strings.HasPrefix(id, "employment_"):
		if prompt, handled := session.Advance(t.s, id, e.policy); handled {
			t.sayPrompt(prompt)
			return
		}
		t.notUnderstood()

	case id == "invoice_confirm":
		e.resolveInvoice(t, "confirm")

	case id == "invoice_edit":
		e.resolveInvoice(t, "edit")

	case strings.HasPrefix(id, "relief_"):
		e.addRelief(t, strings.ReplaceAll(strings.TrimPrefix(id, "relief_"), "_", " "))

	case strings.HasPrefix(id, "bank_"):
		label, ok := bankLabels[id]
		if !ok {
			t.notUnderstood()
			return
		}
		t.sayf("Connected to %s (sandbox). Upload a CSV statement and I'll categorize it for you.", label)

	default:
		if guidance, ok := selectionGuidance[id]; ok {
			t.say(guidance)
			return
		}
		t.notUnderstood()
	}
}

// resolveInvoice feeds a confirm/edit word through the invoice confirmation
// validator, so buttons and typed words share one code path.
func (e *Engine) resolveInvoice(t *turn, word string) {
	if t.s.State != models.StateAwaitingInvoiceConfirmation {
		t.say("There's no invoice awaiting confirmation. Type *upload* to submit one.")
		return
	}
	if prompt, handled := session.Advance(t.s, word, e.policy); handled {
		t.sayPrompt(prompt)
		return
	}
	t.notUnderstood()
}
