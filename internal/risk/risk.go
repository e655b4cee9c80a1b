// Package risk implements the advisory compliance heuristic for described
// expenses and transactions.
//
// Flags are purely descriptive: they never block an operation, only annotate
// the response. The same (description, amount) pair always yields the same
// flag set.
package risk

import (
	"log/slog"
	"strings"

	"github.com/jothamO/prism-admin/internal/models"
)

// Flag is one advisory compliance warning.
type Flag struct {
	Code    string `json:"code"`
	Warning string `json:"warning"`
}

// Flag codes raised by EvaluateExpense.
const (
	CodeLargeCashExpense = "large_cash_expense"
	CodeVagueDescription = "vague_description"
)

// cashKeywords marks labor- or cash-settled expenses that combine with a
// large amount to suggest an artificial transaction.
var cashKeywords = []string{"labor", "labour", "cash", "worker"}

// vagueKeywords marks descriptions too unspecific to document a deduction.
var vagueKeywords = []string{"misc", "sundry", "various", "other", "general"}

// EvaluateExpense applies the keyword and magnitude checks in order and
// returns every flag that fires. Flags are additive, not mutually exclusive.
func EvaluateExpense(description string, amount int64, policy models.Policy) []Flag {
	desc := strings.ToLower(description)
	var flags []Flag

	if containsAny(desc, cashKeywords) && amount >= policy.LargeCreditThreshold {
		flags = append(flags, Flag{
			Code:    CodeLargeCashExpense,
			Warning: "Large cash-based expense: cash and labor payments at this size attract scrutiny. Keep signed receipts and payee identification.",
		})
	}

	if containsAny(desc, vagueKeywords) {
		flags = append(flags, Flag{
			Code:    CodeVagueDescription,
			Warning: "Vague expense description: deductions need specific documentation. Describe what was purchased and from whom.",
		})
	}

	if len(flags) > 0 {
		slog.Debug("risk.EvaluateExpense: flags raised", "count", len(flags), "amount", amount)
	}
	return flags
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
