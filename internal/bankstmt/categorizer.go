// Package bankstmt partitions raw bank statement lines into semantic buckets
// and computes aggregate VAT exposure.
//
// Categorization is applied independently per transaction with no
// cross-transaction state, so re-running it on the same input is idempotent
// and ordering-insensitive. Aggregate conservation holds by construction:
// every credit lands in exactly one bucket, and likewise every debit.
package bankstmt

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jothamO/prism-admin/internal/models"
	"github.com/shopspring/decimal"
)

// Statement is the categorized output of one statement upload. A session
// holds at most one; each new upload overwrites the previous one in full.
type Statement struct {
	Transactions []models.CategorizedTransaction                `json:"transactions"`
	CreditTotals map[models.TransactionCategory]decimal.Decimal `json:"credit_totals"`
	DebitTotals  map[models.TransactionCategory]decimal.Decimal `json:"debit_totals"`

	// Review is the subset of sales credits queued for human confirmation.
	// These transactions are still summed into sales.
	Review []models.CategorizedTransaction `json:"review"`

	OutputVAT decimal.Decimal `json:"output_vat"`
	InputVAT  decimal.Decimal `json:"input_vat"`
	NetVAT    decimal.Decimal `json:"net_vat"` // negative means a credit position
}

// transferKeywords match inbound transfer/payment credits.
var transferKeywords = []string{"transfer", "trf", "payment", "pmt", "pos trf", "inward"}

// salaryKeywords match payroll debits; checked first among debit rules.
var salaryKeywords = []string{"salary", "salaries", "payroll", "wages", "staff pay"}

// utilityKeywords match utility and known-provider debits.
var utilityKeywords = []string{
	"electricity", "phcn", "nepa", "ikeja electric", "eko disco", "water", "internet",
	"dstv", "gotv", "mtn", "glo", "airtel", "9mobile", "utility",
}

// expenseKeywords match point-of-sale, purchase, and vendor debits.
var expenseKeywords = []string{"pos", "purchase", "vendor", "supplies", "supplier", "store", "market", "fuel"}

// Categorize buckets every transaction, accumulates per-category totals, and
// derives VAT exposure from the sales and expenses totals.
func Categorize(txns []models.BankTransaction, policy models.Policy) (*Statement, error) {
	if len(txns) == 0 {
		return nil, models.ErrEmptyStatement
	}

	stmt := &Statement{
		Transactions: make([]models.CategorizedTransaction, 0, len(txns)),
		CreditTotals: zeroTotals(),
		DebitTotals:  zeroTotals(),
	}

	for i, txn := range txns {
		if err := txn.Validate(); err != nil {
			return nil, fmt.Errorf("transaction %d (%s): %w", i, txn.Description, err)
		}

		tagged := categorizeOne(txn, policy)
		stmt.Transactions = append(stmt.Transactions, tagged)

		if txn.Credit > 0 {
			stmt.CreditTotals[tagged.Category] = stmt.CreditTotals[tagged.Category].Add(decimal.NewFromInt(txn.Credit))
		} else {
			stmt.DebitTotals[tagged.Category] = stmt.DebitTotals[tagged.Category].Add(decimal.NewFromInt(txn.Debit))
		}
		if tagged.Review {
			stmt.Review = append(stmt.Review, tagged)
		}
	}

	vatRate := decimal.NewFromFloat(policy.VATRate)
	stmt.OutputVAT = stmt.CreditTotals[models.CategorySales].Mul(vatRate)
	stmt.InputVAT = stmt.DebitTotals[models.CategoryExpenses].Mul(vatRate)
	stmt.NetVAT = stmt.OutputVAT.Sub(stmt.InputVAT)

	slog.Debug("bankstmt.Categorize: statement categorized",
		"transactions", len(stmt.Transactions),
		"review", len(stmt.Review),
		"outputVAT", stmt.OutputVAT.String(),
		"inputVAT", stmt.InputVAT.String())
	return stmt, nil
}

// categorizeOne applies the credit and debit rules to a single line.
func categorizeOne(txn models.BankTransaction, policy models.Policy) models.CategorizedTransaction {
	tagged := models.CategorizedTransaction{BankTransaction: txn, Category: models.CategoryOther}
	desc := strings.ToLower(txn.Description)

	if txn.Credit > 0 {
		if containsAny(desc, transferKeywords) {
			if txn.Credit > policy.LargeCreditThreshold {
				// Large credits always need human confirmation regardless of category.
				tagged.Category = models.CategorySales
				tagged.Review = true
				tagged.RiskFlag = "large credit requires confirmation"
			} else {
				tagged.Category = models.CategoryTransfersIn
			}
		}
		return tagged
	}

	// Debit rules in priority order.
	switch {
	case containsAny(desc, salaryKeywords):
		tagged.Category = models.CategorySalaries
	case containsAny(desc, utilityKeywords):
		tagged.Category = models.CategoryUtilities
	case containsAny(desc, expenseKeywords):
		tagged.Category = models.CategoryExpenses
	}
	return tagged
}

// TotalCredits sums every credit bucket.
func (s *Statement) TotalCredits() decimal.Decimal {
	total := decimal.Zero
	for _, c := range models.Categories {
		total = total.Add(s.CreditTotals[c])
	}
	return total
}

// TotalDebits sums every debit bucket.
func (s *Statement) TotalDebits() decimal.Decimal {
	total := decimal.Zero
	for _, c := range models.Categories {
		total = total.Add(s.DebitTotals[c])
	}
	return total
}

func zeroTotals() map[models.TransactionCategory]decimal.Decimal {
	totals := make(map[models.TransactionCategory]decimal.Decimal, len(models.Categories))
	for _, c := range models.Categories {
		totals[c] = decimal.Zero
	}
	return totals
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
