package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jothamO/prism-admin/internal/models"
)

func flagCodes(flags []Flag) []string {
	codes := make([]string, 0, len(flags))
	for _, f := range flags {
		codes = append(codes, f.Code)
	}
	return codes
}

func TestEvaluateExpenseLargeCash(t *testing.T) {
	policy := models.DefaultPolicy()

	// Cash keyword and amount at the threshold raises the advisory.
	flags := EvaluateExpense("casual labor payment", 500_000, policy)
	require.Len(t, flags, 1)
	assert.Equal(t, CodeLargeCashExpense, flags[0].Code)
	assert.NotEmpty(t, flags[0].Warning)

	// Same description below the threshold is clean.
	flags = EvaluateExpense("casual labor payment", 499_999, policy)
	assert.Empty(t, flags)

	// Large amount without a cash keyword is clean.
	flags = EvaluateExpense("office rent", 2_000_000, policy)
	assert.Empty(t, flags)
}

func TestEvaluateExpenseVagueDescription(t *testing.T) {
	policy := models.DefaultPolicy()

	// Vagueness flags regardless of amount.
	flags := EvaluateExpense("misc supplies", 1_000, policy)
	require.Len(t, flags, 1)
	assert.Equal(t, CodeVagueDescription, flags[0].Code)

	flags = EvaluateExpense("sundry items", 10_000_000, policy)
	require.Len(t, flags, 1)
	assert.Equal(t, CodeVagueDescription, flags[0].Code)
}

func TestEvaluateExpenseAdditiveFlags(t *testing.T) {
	policy := models.DefaultPolicy()

	// Both rules fire on the same expense; order is large-cash first.
	flags := EvaluateExpense("cash for various workers", 600_000, policy)
	assert.Equal(t, []string{CodeLargeCashExpense, CodeVagueDescription}, flagCodes(flags))
}

func TestEvaluateExpenseDeterministic(t *testing.T) {
	policy := models.DefaultPolicy()
	first := EvaluateExpense("cash for various workers", 600_000, policy)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, EvaluateExpense("cash for various workers", 600_000, policy))
	}
}

func TestEvaluateExpenseCaseInsensitive(t *testing.T) {
	policy := models.DefaultPolicy()
	flags := EvaluateExpense("CASH Advance To LABOUR Team", 750_000, policy)
	require.NotEmpty(t, flags)
	assert.Equal(t, CodeLargeCashExpense, flags[0].Code)
}
