package bankstmt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jothamO/prism-admin/internal/models"
)

func TestParseCSV(t *testing.T) {
	csv := `date,description,credit,debit
2025-01-03,TRANSFER from Dangote Stores,600000,
2025-01-09,January payroll,,300000
`
	txns, err := ParseCSV(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, txns, 2)

	assert.Equal(t, models.BankTransaction{
		Date: "2025-01-03", Description: "TRANSFER from Dangote Stores", Credit: 600_000,
	}, txns[0])
	assert.Equal(t, int64(300_000), txns[1].Debit)
	assert.Zero(t, txns[1].Credit)
}

func TestParseCSVRejectsBothSides(t *testing.T) {
	csv := `date,description,credit,debit
2025-01-03,weird line,100,100
`
	_, err := ParseCSV(strings.NewReader(csv))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidTransaction)
}

func TestParseCSVEmpty(t *testing.T) {
	csv := "date,description,credit,debit\n"
	_, err := ParseCSV(strings.NewReader(csv))
	assert.ErrorIs(t, err, models.ErrEmptyStatement)
}
