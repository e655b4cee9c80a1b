package bankstmt

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/gocarina/gocsv"
	"github.com/jothamO/prism-admin/internal/models"
)

// csvRow maps the statement export columns the admin tool accepts. Amounts
// arrive as whole naira; empty cells mean the column does not apply.
type csvRow struct {
	Date        string `csv:"date"`
	Description string `csv:"description"`
	Credit      int64  `csv:"credit"`
	Debit       int64  `csv:"debit"`
}

// ParseCSV reads bank statement lines from CSV with a
// date,description,credit,debit header.
func ParseCSV(r io.Reader) ([]models.BankTransaction, error) {
	var rows []csvRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		slog.Error("bankstmt.ParseCSV: unmarshal failed", "error", err)
		return nil, fmt.Errorf("failed to parse statement CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, models.ErrEmptyStatement
	}

	txns := make([]models.BankTransaction, 0, len(rows))
	for i, row := range rows {
		txn := models.BankTransaction{
			Date:        row.Date,
			Description: row.Description,
			Credit:      row.Credit,
			Debit:       row.Debit,
		}
		if err := txn.Validate(); err != nil {
			return nil, fmt.Errorf("statement row %d: %w", i+1, err)
		}
		txns = append(txns, txn)
	}
	slog.Debug("bankstmt.ParseCSV: statement parsed", "rows", len(txns))
	return txns, nil
}
