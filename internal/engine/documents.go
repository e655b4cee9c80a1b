package engine

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jothamO/prism-admin/internal/bankstmt"
	"github.com/jothamO/prism-admin/internal/models"
	"github.com/jothamO/prism-admin/internal/taxapi"
)

// invoiceButtons is the confirmation choice offered after extraction.
var invoiceButtons = []models.Button{
	{ID: "invoice_confirm", Label: "Confirm"},
	{ID: "invoice_edit", Label: "Edit"},
}

// HandleInvoiceUpload runs OCR over an uploaded invoice image and parks the
// extracted invoice pending explicit confirmation. Nothing is persisted to
// the ledger until the user confirms.
func (e *Engine) HandleInvoiceUpload(ctx context.Context, sessionID string, image []byte) ([]models.Message, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	t, err := e.beginTurn(ctx, s, "[invoice upload]")
	if err != nil {
		return nil, err
	}

	if s.State != models.StateAwaitingInvoiceUpload {
		t.say("I wasn't expecting a document. Type *upload* first and then send the invoice.")
		return e.finishTurn(t)
	}
	if e.tax == nil {
		t.serviceUnavailable()
		return e.finishTurn(t)
	}

	t.say("Reading your invoice...")
	res, err := e.tax.OCRDocument(ctx, taxapi.OCRRequest{Image: image, DocumentType: "invoice"})
	if err != nil {
		slog.Warn("Engine.HandleInvoiceUpload: OCR failed", "sessionID", sessionID, "error", err)
		t.say("I couldn't read that document. Please upload a clearer image.")
		return e.finishTurn(t)
	}
	if e.staleTurn(t) {
		return e.finishTurn(t)
	}

	invoice := &models.Invoice{Vendor: res.Vendor, Total: res.Total}
	for _, line := range res.LineItems {
		invoice.LineItems = append(invoice.LineItems, models.InvoiceLine{Description: line.Description, Amount: line.Amount})
	}
	s.PendingInvoice = invoice
	s.State = models.StateAwaitingInvoiceConfirmation

	var b strings.Builder
	b.WriteString("Here's what I extracted:\n")
	if invoice.Vendor != "" {
		b.WriteString("Vendor: " + invoice.Vendor + "\n")
	}
	for _, line := range invoice.LineItems {
		b.WriteString("- " + line.Description + ": " + naira(line.Amount) + "\n")
	}
	b.WriteString("Total: " + naira(invoice.Total) + "\n\nSave this to your expense records?")
	t.sayButtons(b.String(), invoiceButtons)
	return e.finishTurn(t)
}

// HandleStatement parses and categorizes an uploaded CSV bank statement.
// Categorization is derived in full on every upload: the statement replaces
// any previous one for the session and the raw lines are never mutated.
func (e *Engine) HandleStatement(ctx context.Context, sessionID string, r io.Reader) ([]models.Message, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	t, err := e.beginTurn(ctx, s, "[bank statement upload]")
	if err != nil {
		return nil, err
	}

	txns, err := bankstmt.ParseCSV(r)
	if err != nil {
		slog.Warn("Engine.HandleStatement: parse failed", "sessionID", sessionID, "error", err)
		t.say("I couldn't read that statement. Please upload a CSV with date, description, credit and debit columns.")
		return e.finishTurn(t)
	}

	st, err := bankstmt.Categorize(txns, e.policy)
	if err != nil {
		slog.Warn("Engine.HandleStatement: categorization failed", "sessionID", sessionID, "error", err)
		t.sayf("That statement couldn't be processed: %s.", err.Error())
		return e.finishTurn(t)
	}
	e.setStatement(sessionID, st)

	t.say(statementReport(st))
	for _, txn := range st.Review {
		t.sayf("⚠️ %s on %s (%s): %s", naira(txn.Credit), txn.Date, txn.Description, txn.RiskFlag)
	}
	return e.finishTurn(t)
}

// statementReport renders per-category totals and the estimated VAT position.
func statementReport(st *bankstmt.Statement) string {
	var b strings.Builder
	b.WriteString("*Statement analysis*\n")
	b.WriteString("Transactions: " + strconv.Itoa(len(st.Transactions)) + "\n\n")

	b.WriteString("*Credits*\n")
	for _, cat := range models.Categories {
		if v, ok := st.CreditTotals[cat]; ok && !v.IsZero() {
			b.WriteString(categoryLabel(cat) + ": " + nairaDecimalString(v.String()) + "\n")
		}
	}
	b.WriteString("Total in: " + nairaDecimalString(st.TotalCredits().String()) + "\n\n")

	b.WriteString("*Debits*\n")
	for _, cat := range models.Categories {
		if v, ok := st.DebitTotals[cat]; ok && !v.IsZero() {
			b.WriteString(categoryLabel(cat) + ": " + nairaDecimalString(v.String()) + "\n")
		}
	}
	b.WriteString("Total out: " + nairaDecimalString(st.TotalDebits().String()) + "\n\n")

	b.WriteString("*Estimated VAT position*\n")
	b.WriteString("Output VAT (on sales): " + nairaDecimalString(st.OutputVAT.String()) + "\n")
	b.WriteString("Input VAT (on expenses): " + nairaDecimalString(st.InputVAT.String()) + "\n")
	if st.NetVAT.IsNegative() {
		b.WriteString("Net position: " + nairaDecimalString(st.NetVAT.Abs().String()) + " credit")
	} else {
		b.WriteString("Net VAT payable: " + nairaDecimalString(st.NetVAT.String()))
	}
	return b.String()
}

// categoryLabel renders a category for display.
func categoryLabel(cat models.TransactionCategory) string {
	switch cat {
	case models.CategorySales:
		return "Sales"
	case models.CategoryTransfersIn:
		return "Transfers in"
	case models.CategoryExpenses:
		return "Expenses"
	case models.CategoryUtilities:
		return "Utilities"
	case models.CategorySalaries:
		return "Salaries"
	default:
		return "Other"
	}
}
