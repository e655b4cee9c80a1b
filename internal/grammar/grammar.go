// Package grammar implements the deterministic command matcher that runs
// before intent classification in the free-form command zone.
//
// Matching is case-insensitive, whitespace-tolerant, and first-match-wins in
// the order patterns are listed. Grammar order is a correctness invariant:
// no pattern may match more permissively than a more specific pattern listed
// earlier, so ambiguous overlapping patterns are ordered narrowest-first.
package grammar

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// Kind identifies which command a pattern matched.
type Kind string

const (
	KindHelp            Kind = "help"
	KindProfile         Kind = "profile"
	KindSummary         Kind = "summary"
	KindReset           Kind = "reset"
	KindUpload          Kind = "upload"
	KindPaid            Kind = "paid"
	KindReliefList      Kind = "relief_list"
	KindReliefAdd       Kind = "relief_add"
	KindNewProject      Kind = "new_project"
	KindProjectExpense  Kind = "project_expense"
	KindProjectBalance  Kind = "project_balance"
	KindCompleteProject Kind = "complete_project"
	KindVAT             Kind = "vat"
	KindMixedIncome     Kind = "mixed_income"
	KindBusinessIncome  Kind = "business_income"
	KindPension         Kind = "pension"
	KindRental          Kind = "rental"
	KindMinimumWage     Kind = "minimum_wage"
	KindMonthlyTax      Kind = "monthly_tax"
	KindAnnualTax       Kind = "annual_tax"
)

// Command is a matched command with its typed parameters extracted.
type Command struct {
	Kind        Kind
	Amount      int64  // primary amount (gross income, VAT base, budget, ...)
	Expenses    int64  // deductible expenses for business/mixed income
	Pension     int64  // pension portion for mixed income
	Description string // free-text remainder (item description, expense detail)
	Name        string // project name or relief name
	Source      string // project funding source
	TaxType     string // for paid: "vat" or "income"
}

// currency-noise characters stripped before numeric parsing.
var amountCleaner = strings.NewReplacer("₦", "", ",", "", " ", "", "ngn", "", "NGN", "", "N", "", "n", "")

// ParseAmount extracts a whole-naira integer from a user-typed amount,
// tolerating thousands separators and a currency prefix: "50,000", "₦50000"
// and "50000" all parse to 50000.
func ParseAmount(raw string) (int64, error) {
	cleaned := amountCleaner.Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return 0, fmt.Errorf("no digits in amount %q", raw)
	}
	// Drop a trailing decimal fraction; the simulator works in whole naira.
	if i := strings.IndexByte(cleaned, '.'); i >= 0 {
		cleaned = cleaned[:i]
	}
	amount, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable amount %q: %w", raw, err)
	}
	if amount < 0 {
		return 0, fmt.Errorf("negative amount %q", raw)
	}
	return amount, nil
}

// amt is the sub-expression for an amount with optional currency prefix and separators.
const amt = `(?:₦|n|ngn)?\s*([\d][\d,. ]*)`

// pattern couples a compiled regex with a builder that turns its submatches
// into a typed Command. Builders return nil to reject a syntactic match whose
// parameters fail to parse, letting matching continue down the list.
type pattern struct {
	re    *regexp.Regexp
	build func(groups []string) *Command
}

// patterns is the prioritized matcher list. Order matters: meta-commands and
// multi-keyword forms come before the single-keyword calculators they overlap
// with (e.g. "complete project" before any pattern that could eat "project").
var patterns = []pattern{
	// Meta-commands.
	{regexp.MustCompile(`^help$`), func(g []string) *Command {
		return &Command{Kind: KindHelp}
	}},
	{regexp.MustCompile(`^(?:profile|my profile)$`), func(g []string) *Command {
		return &Command{Kind: KindProfile}
	}},
	{regexp.MustCompile(`^summary$`), func(g []string) *Command {
		return &Command{Kind: KindSummary}
	}},
	{regexp.MustCompile(`^(?:reset|start over|restart)$`), func(g []string) *Command {
		return &Command{Kind: KindReset}
	}},
	{regexp.MustCompile(`^upload(?:\s+(?:receipt|invoice))?$`), func(g []string) *Command {
		return &Command{Kind: KindUpload}
	}},
	{regexp.MustCompile(`^paid\s+` + amt + `(?:\s+(vat|income))?$`), func(g []string) *Command {
		amount, err := ParseAmount(g[1])
		if err != nil {
			return nil
		}
		return &Command{Kind: KindPaid, Amount: amount, TaxType: g[2]}
	}},

	// Reliefs. "relief add X" is narrower than the bare list form.
	{regexp.MustCompile(`^(?:relief|reliefs)\s+add\s+(.+)$`), func(g []string) *Command {
		return &Command{Kind: KindReliefAdd, Name: strings.TrimSpace(g[1])}
	}},
	{regexp.MustCompile(`^(?:relief|reliefs)(?:\s+list)?$`), func(g []string) *Command {
		return &Command{Kind: KindReliefList}
	}},

	// Project fund lifecycle. All forms carry the "project" keyword; the
	// parameterless forms are listed before the expense form so "project
	// balance" never parses as an expense named "balance".
	{regexp.MustCompile(`^complete\s+project$`), func(g []string) *Command {
		return &Command{Kind: KindCompleteProject}
	}},
	{regexp.MustCompile(`^project\s+(?:balance|status)$`), func(g []string) *Command {
		return &Command{Kind: KindProjectBalance}
	}},
	{regexp.MustCompile(`^project\s+expense\s+` + amt + `(?:\s+(.+))?$`), func(g []string) *Command {
		amount, err := ParseAmount(g[1])
		if err != nil {
			return nil
		}
		return &Command{Kind: KindProjectExpense, Amount: amount, Description: strings.TrimSpace(g[2])}
	}},
	{regexp.MustCompile(`^new\s+project\s+(.+?)\s+` + amt + `(?:\s+from\s+(.+))?$`), func(g []string) *Command {
		budget, err := ParseAmount(g[2])
		if err != nil {
			return nil
		}
		return &Command{
			Kind:   KindNewProject,
			Name:   strings.TrimSpace(g[1]),
			Amount: budget,
			Source: strings.TrimSpace(g[3]),
		}
	}},

	// Calculators. Mixed income carries both keywords, so it precedes the
	// single-source business and pension forms.
	{regexp.MustCompile(`^(?:mixed\s+)?pension\s+` + amt + `\s+business\s+` + amt + `(?:\s+expenses?\s+` + amt + `)?$`), func(g []string) *Command {
		pension, err := ParseAmount(g[1])
		if err != nil {
			return nil
		}
		income, err := ParseAmount(g[2])
		if err != nil {
			return nil
		}
		cmd := &Command{Kind: KindMixedIncome, Pension: pension, Amount: income}
		if g[3] != "" {
			expenses, err := ParseAmount(g[3])
			if err != nil {
				return nil
			}
			cmd.Expenses = expenses
		}
		return cmd
	}},
	{regexp.MustCompile(`^(?:freelance|freelancer|business)\s+` + amt + `(?:\s+expenses?\s+` + amt + `)?$`), func(g []string) *Command {
		income, err := ParseAmount(g[1])
		if err != nil {
			return nil
		}
		cmd := &Command{Kind: KindBusinessIncome, Amount: income}
		if g[2] != "" {
			expenses, err := ParseAmount(g[2])
			if err != nil {
				return nil
			}
			cmd.Expenses = expenses
		}
		return cmd
	}},
	{regexp.MustCompile(`^pension\s+` + amt + `$`), func(g []string) *Command {
		amount, err := ParseAmount(g[1])
		if err != nil {
			return nil
		}
		return &Command{Kind: KindPension, Amount: amount}
	}},
	{regexp.MustCompile(`^(?:rent|rental)\s+` + amt + `$`), func(g []string) *Command {
		amount, err := ParseAmount(g[1])
		if err != nil {
			return nil
		}
		return &Command{Kind: KindRental, Amount: amount}
	}},
	{regexp.MustCompile(`^(?:minimum\s+wage|wage)(?:\s+` + amt + `)?$`), func(g []string) *Command {
		cmd := &Command{Kind: KindMinimumWage}
		if g[1] != "" {
			amount, err := ParseAmount(g[1])
			if err != nil {
				return nil
			}
			cmd.Amount = amount
		}
		return cmd
	}},
	{regexp.MustCompile(`^vat\s+` + amt + `(?:\s+(.+))?$`), func(g []string) *Command {
		amount, err := ParseAmount(g[1])
		if err != nil {
			return nil
		}
		return &Command{Kind: KindVAT, Amount: amount, Description: strings.TrimSpace(g[2])}
	}},
	{regexp.MustCompile(`^monthly\s+tax\s+` + amt + `$`), func(g []string) *Command {
		amount, err := ParseAmount(g[1])
		if err != nil {
			return nil
		}
		return &Command{Kind: KindMonthlyTax, Amount: amount}
	}},
	// Bare "tax N" defaults to annual, so it is the widest tax form and last.
	{regexp.MustCompile(`^(?:annual\s+)?tax\s+` + amt + `$`), func(g []string) *Command {
		amount, err := ParseAmount(g[1])
		if err != nil {
			return nil
		}
		return &Command{Kind: KindAnnualTax, Amount: amount}
	}},
}

// Match runs the prioritized pattern list against a free-text message and
// returns the first matching command. The second return is false when no
// pattern matched and control should fall through to the classifier.
func Match(text string) (*Command, bool) {
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))
	if normalized == "" {
		return nil, false
	}
	for _, p := range patterns {
		groups := p.re.FindStringSubmatch(normalized)
		if groups == nil {
			continue
		}
		cmd := p.build(groups)
		if cmd == nil {
			// Syntactic match with unparseable parameters; keep scanning.
			continue
		}
		slog.Debug("grammar.Match: command matched", "kind", cmd.Kind, "text", text)
		return cmd, true
	}
	slog.Debug("grammar.Match: no pattern matched", "text", text)
	return nil, false
}
