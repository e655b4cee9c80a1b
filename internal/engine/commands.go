package engine

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/jothamO/prism-admin/internal/grammar"
	"github.com/jothamO/prism-admin/internal/models"
	"github.com/jothamO/prism-admin/internal/projects"
	"github.com/jothamO/prism-admin/internal/risk"
	"github.com/jothamO/prism-admin/internal/taxapi"
)

const helpText = `Here's what I can do:

*Calculators*
- vat <amount> <item> - VAT on a purchase
- tax <amount> - annual income tax
- monthly tax <amount> - monthly income tax
- business <amount> expenses <amount>
- pension <amount> business <amount> - mixed income
- pension <amount> - pension exemption check
- rent <amount> - rental withholding
- minimum wage <amount> - exemption check

*Records*
- summary - year-to-date position
- paid <amount> vat|income - record a tax payment
- upload - submit an invoice for extraction
- reliefs / add relief <name>

*Project funds*
- new project <name> <budget> [from <source>]
- project expense <amount> <detail>
- project balance / complete project

Type *reset* at any time to start over.`

// runCommand executes a grammar-matched command. Matched commands never fall
// through to the classifier.
func (e *Engine) runCommand(t *turn, cmd *grammar.Command) {
	slog.Debug("Engine.runCommand: command matched", "sessionID", t.s.ID, "kind", cmd.Kind)

	switch cmd.Kind {
	case grammar.KindHelp:
		t.say(helpText)

	case grammar.KindReset:
		e.resetInTurn(t)

	case grammar.KindProfile:
		e.showProfile(t)

	case grammar.KindSummary:
		e.showSummary(t)

	case grammar.KindPaid:
		e.recordPayment(t, cmd)

	case grammar.KindUpload:
		t.s.State = models.StateAwaitingInvoiceUpload
		t.say("Please upload your invoice image and I'll extract the details for you.")

	case grammar.KindReliefList:
		e.showReliefs(t)

	case grammar.KindReliefAdd:
		e.addRelief(t, cmd.Name)

	case grammar.KindNewProject:
		e.newProject(t, cmd)

	case grammar.KindProjectExpense:
		e.projectExpense(t, cmd)

	case grammar.KindProjectBalance:
		e.projectBalance(t)

	case grammar.KindCompleteProject:
		e.completeProject(t)

	case grammar.KindVAT:
		e.calcVAT(t, cmd.Amount, cmd.Description)

	case grammar.KindAnnualTax:
		e.calcIncomeTax(t, taxapi.IncomeTaxRequest{GrossIncome: cmd.Amount, Period: "annual", IncomeType: "employment"})

	case grammar.KindMonthlyTax:
		e.calcIncomeTax(t, taxapi.IncomeTaxRequest{GrossIncome: cmd.Amount, Period: "monthly", IncomeType: "employment"})

	case grammar.KindBusinessIncome:
		e.calcIncomeTax(t, taxapi.IncomeTaxRequest{
			GrossIncome: cmd.Amount,
			Period:      "annual",
			IncomeType:  "business",
			Deductions:  taxapi.Deductions{BusinessExpenses: cmd.Expenses},
		})

	case grammar.KindMixedIncome:
		e.calcIncomeTax(t, taxapi.IncomeTaxRequest{
			GrossIncome:   cmd.Amount,
			Period:        "annual",
			IncomeType:    "mixed",
			PensionAmount: cmd.Pension,
		})

	case grammar.KindPension:
		t.sayf("Pension income of %s is fully exempt from personal income tax. No tax is due on it.", naira(cmd.Amount))

	case grammar.KindRental:
		wht := int64(float64(cmd.Amount) * e.policy.RentalWithholdingRate)
		t.sayf("Rental income of %s attracts a flat %s withholding tax: %s. Net to you: %s.",
			naira(cmd.Amount), percent(e.policy.RentalWithholdingRate), naira(wht), naira(cmd.Amount-wht))

	case grammar.KindMinimumWage:
		if cmd.Amount <= e.policy.MinimumWage {
			t.sayf("A monthly income of %s is at or below the national minimum wage (%s) and is fully exempt from personal income tax.",
				naira(cmd.Amount), naira(e.policy.MinimumWage))
		} else {
			t.sayf("A monthly income of %s is above the national minimum wage (%s), so it is taxable. Try *monthly tax %d* for the computation.",
				naira(cmd.Amount), naira(e.policy.MinimumWage), cmd.Amount)
		}

	default:
		t.notUnderstood()
	}
}

func (e *Engine) showProfile(t *turn) {
	p := t.s.Profile
	var b strings.Builder
	b.WriteString("*Your profile*\n")
	b.WriteString("Entity type: " + string(t.s.EntityType) + "\n")
	if p.FullName != "" {
		b.WriteString("Name: " + p.FullName + "\n")
	}
	if p.BusinessName != "" {
		b.WriteString("Business: " + p.BusinessName + "\n")
	}
	if p.NIN != "" {
		b.WriteString("NIN: " + p.NIN + "\n")
	}
	if p.TIN != "" {
		b.WriteString("TIN: " + p.TIN + "\n")
	}
	if p.EmploymentStatus != "" {
		b.WriteString("Employment: " + p.EmploymentStatus + "\n")
	}
	if len(p.Reliefs) > 0 {
		b.WriteString("Reliefs: " + strings.Join(p.Reliefs, ", ") + "\n")
	}
	if t.s.ActiveProject != nil {
		b.WriteString("Active project: " + t.s.ActiveProject.Name + " (balance " + naira(t.s.ActiveProject.Balance()) + ")\n")
	}
	t.say(strings.TrimRight(b.String(), "\n"))
}

// showSummary reports the local year-to-date figures, the in-memory
// statement position if one was uploaded, and (best effort) the
// collaborator's VAT reconciliation.
func (e *Engine) showSummary(t *turn) {
	ytd := t.s.YTD
	var b strings.Builder
	b.WriteString("*Year-to-date summary*\n")
	b.WriteString("Revenue: " + naira(ytd.Revenue) + "\n")
	b.WriteString("Expenses: " + naira(ytd.Expenses) + "\n")
	b.WriteString("VAT paid: " + naira(ytd.VATPaid) + "\n")
	b.WriteString("Income tax paid: " + naira(ytd.PITPaid))

	if st := e.Statement(t.s.ID); st != nil {
		b.WriteString("\n\n*Last bank statement*\n")
		b.WriteString("Credits: " + nairaDecimalString(st.TotalCredits().String()) + "\n")
		b.WriteString("Debits: " + nairaDecimalString(st.TotalDebits().String()) + "\n")
		b.WriteString("Estimated net VAT: " + nairaDecimalString(st.NetVAT.String()))
	}
	t.say(b.String())

	if e.tax == nil {
		return
	}
	rec, err := e.tax.ReconcileVAT(t.ctx, taxapi.ReconciliationRequest{UserID: t.s.ID, Period: "current"})
	if err != nil {
		slog.Warn("Engine.showSummary: reconciliation unavailable", "sessionID", t.s.ID, "error", err)
		return
	}
	if e.staleTurn(t) {
		return
	}
	t.sayf("*VAT reconciliation (%s)*\nOutput VAT: %s\nInput VAT: %s\nNet position: %s",
		rec.Status, nairaF(rec.OutputVAT), nairaF(rec.InputVAT), nairaF(rec.NetVAT))
}

func (e *Engine) recordPayment(t *turn, cmd *grammar.Command) {
	switch cmd.TaxType {
	case "vat":
		t.s.YTD.VATPaid += cmd.Amount
		t.sayf("Recorded a VAT payment of %s. VAT paid this year: %s.", naira(cmd.Amount), naira(t.s.YTD.VATPaid))
	default:
		t.s.YTD.PITPaid += cmd.Amount
		t.sayf("Recorded an income tax payment of %s. Income tax paid this year: %s.", naira(cmd.Amount), naira(t.s.YTD.PITPaid))
	}
}

// reliefCatalogue is the fixed set of claimable reliefs offered in menus.
var reliefCatalogue = []models.Button{
	{ID: "relief_pension", Label: "Pension contributions"},
	{ID: "relief_nhf", Label: "National Housing Fund"},
	{ID: "relief_insurance", Label: "Life insurance premium"},
	{ID: "relief_nhis", Label: "Health insurance (NHIS)"},
}

func (e *Engine) showReliefs(t *turn) {
	text := "Tax reliefs reduce your taxable income. Pick one to add it to your profile."
	if len(t.s.Profile.Reliefs) > 0 {
		text += "\nYou currently claim: " + strings.Join(t.s.Profile.Reliefs, ", ") + "."
	}
	t.sayList(text, []models.ListSection{{Title: "Available reliefs", Rows: reliefCatalogue}})
}

func (e *Engine) addRelief(t *turn, name string) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		e.showReliefs(t)
		return
	}
	for _, held := range t.s.Profile.Reliefs {
		if held == name {
			t.sayf("You already claim the %s relief.", name)
			return
		}
	}
	t.s.Profile.Reliefs = append(t.s.Profile.Reliefs, name)
	t.sayf("Added the %s relief to your profile. It will be reflected in future income tax calculations.", name)
}

func (e *Engine) newProject(t *turn, cmd *grammar.Command) {
	p, err := projects.Start(t.s, cmd.Name, cmd.Amount, cmd.Source)
	if errors.Is(err, models.ErrProjectExists) {
		t.sayf("You already have an active project (%s). Complete it first with *complete project*.", t.s.ActiveProject.Name)
		return
	}
	if err != nil {
		t.sayf("I couldn't create that project: %s. Try *new project <name> <budget>*.", err.Error())
		return
	}
	if p.Source != "" {
		t.sayf("Project *%s* created with a budget of %s, funded from %s. Record spending with *project expense <amount> <detail>*.", p.Name, naira(p.Budget), p.Source)
		return
	}
	t.sayf("Project *%s* created with a budget of %s. Record spending with *project expense <amount> <detail>*.", p.Name, naira(p.Budget))
}

func (e *Engine) projectExpense(t *turn, cmd *grammar.Command) {
	p := t.s.ActiveProject
	if p == nil {
		t.say("There's no active project. Start one with *new project <name> <budget>*.")
		return
	}
	detail := cmd.Description
	if detail == "" {
		detail = "unspecified"
	}
	for _, f := range risk.EvaluateExpense(detail, cmd.Amount, e.policy) {
		t.sayf("⚠️ %s", f.Warning)
	}
	if err := projects.AddExpense(p, cmd.Amount); err != nil {
		t.sayf("I couldn't record that expense: %s.", err.Error())
		return
	}
	balance := p.Balance()
	if balance < 0 {
		t.sayf("Recorded %s on %s. *%s* is now %s over budget.", naira(cmd.Amount), detail, p.Name, naira(-balance))
		return
	}
	t.sayf("Recorded %s on %s. *%s* balance: %s of %s remaining.", naira(cmd.Amount), detail, p.Name, naira(balance), naira(p.Budget))
}

func (e *Engine) projectBalance(t *turn) {
	p := t.s.ActiveProject
	if p == nil {
		t.say("There's no active project. Start one with *new project <name> <budget>*.")
		return
	}
	t.sayf("*%s*\nBudget: %s\nSpent: %s\nBalance: %s", p.Name, naira(p.Budget), naira(p.Spent), naira(p.Balance()))
}

func (e *Engine) completeProject(t *turn) {
	p := t.s.ActiveProject
	if p == nil {
		t.say("There's no active project to complete.")
		return
	}
	result, err := projects.Complete(p, e.policy)
	t.s.ActiveProject = nil
	if err != nil {
		t.sayf("I couldn't complete the project: %s.", err.Error())
		return
	}
	var b strings.Builder
	b.WriteString("Project *" + result.Name + "* completed.\n")
	b.WriteString("Budget: " + naira(result.Budget) + "\n")
	b.WriteString("Spent: " + naira(result.Spent) + "\n")
	if result.Excess <= 0 {
		b.WriteString("No unspent excess, so no completion tax is due.")
	} else {
		b.WriteString("Unspent excess: " + naira(result.Excess) + "\n")
		if result.Tax == 0 {
			b.WriteString("The excess is within the " + naira(e.policy.ExcessFreeBand) + " free band. No tax is due.")
		} else {
			b.WriteString("Tax due on excess above " + naira(e.policy.ExcessFreeBand) + " at " + percent(e.policy.ExcessRate) + ": " + naira(result.Tax) + ".")
		}
	}
	t.say(b.String())
}

// calcVAT relays the VAT collaborator's ruling verbatim.
func (e *Engine) calcVAT(t *turn, amount int64, description string) {
	if e.tax == nil {
		t.serviceUnavailable()
		return
	}
	if description == "" {
		description = "general goods"
	}
	t.sayf("Calculating VAT on %s for %s...", naira(amount), description)
	res, err := e.tax.CalculateVAT(t.ctx, taxapi.VATRequest{Amount: amount, ItemDescription: description})
	if err != nil {
		slog.Warn("Engine.calcVAT: collaborator failed", "sessionID", t.s.ID, "error", err)
		t.serviceUnavailable()
		return
	}
	if e.staleTurn(t) {
		return
	}

	var b strings.Builder
	b.WriteString("*VAT calculation*\n")
	b.WriteString("Item: " + description + " (" + res.Classification + ")\n")
	b.WriteString("Subtotal: " + nairaF(res.Subtotal) + "\n")
	b.WriteString("VAT at " + percent(res.VATRate) + ": " + nairaF(res.VATAmount) + "\n")
	b.WriteString("Total: " + nairaF(res.Total))
	if res.CanClaimInputVAT {
		b.WriteString("\nThis VAT is claimable as input VAT if the purchase is for your business.")
	}
	if res.ActReference != "" {
		b.WriteString("\n_" + res.ActReference + "_")
	}
	t.say(b.String())
}

// calcIncomeTax relays the income tax collaborator's computation verbatim.
func (e *Engine) calcIncomeTax(t *turn, req taxapi.IncomeTaxRequest) {
	if e.tax == nil {
		t.serviceUnavailable()
		return
	}
	t.sayf("Calculating income tax on %s (%s)...", naira(req.GrossIncome), req.Period)
	res, err := e.tax.CalculateIncomeTax(t.ctx, req)
	if err != nil {
		slog.Warn("Engine.calcIncomeTax: collaborator failed", "sessionID", t.s.ID, "error", err)
		t.serviceUnavailable()
		return
	}
	if e.staleTurn(t) {
		return
	}

	var b strings.Builder
	b.WriteString("*Income tax calculation*\n")
	if res.MinimumWageExempt {
		b.WriteString("This income is minimum-wage exempt. No tax is due.")
		t.say(b.String())
		return
	}
	if res.PensionExempt && req.PensionAmount > 0 {
		b.WriteString("Pension portion (" + naira(req.PensionAmount) + ") is fully exempt.\n")
	}
	for _, band := range res.TaxBreakdown {
		b.WriteString(band.Band + " at " + percent(band.Rate) + ": " + nairaF(band.TaxInBand) + "\n")
	}
	b.WriteString("Total tax: " + nairaF(res.TotalTax) + "\n")
	b.WriteString("Effective rate: " + percent(res.EffectiveRate))
	if res.MonthlyTax > 0 {
		b.WriteString("\nMonthly: " + nairaF(res.MonthlyTax))
	}
	if res.ActReference != "" {
		b.WriteString("\n_" + res.ActReference + "_")
	}
	t.say(b.String())
}
