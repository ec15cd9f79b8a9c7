package core

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTotals(t *testing.T) {
	tot := ComputeTotals(sampleTransactions())
	assert.Equal(t, int64(250000), tot.Income.Cents)
	assert.Equal(t, int64(1050), tot.Expenses.Cents)
	assert.Equal(t, int64(248950), tot.Balance.Cents)

	assert.Equal(t, Totals{}, ComputeTotals(nil))
}

func TestComputeMonthTotals(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	mt := ComputeMonthTotals(sampleTransactions(), now)
	assert.Equal(t, MonthTotals{Year: 2025, Month: 6, Income: Money{Cents: 250000}, Expenses: Money{Cents: 750}}, mt)
}

func TestComputeLast7Days(t *testing.T) {
	now := time.Date(2025, 6, 3, 23, 0, 0, 0, time.UTC)
	days := ComputeLast7Days(sampleTransactions(), now)
	require.Len(t, days, 7)

	labels := make([]string, len(days))
	for i, d := range days {
		labels[i] = d.Date.String() + " " + d.Label
	}
	want := []string{
		"2025-05-28 Wed", "2025-05-29 Thu", "2025-05-30 Fri", "2025-05-31 Sat",
		"2025-06-01 Sun", "2025-06-02 Mon", "2025-06-03 Tue",
	}
	if diff := cmp.Diff(want, labels); diff != "" {
		t.Fatalf("days mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, int64(300), days[0].Expense.Cents)
	assert.Equal(t, int64(250000), days[4].Income.Cents)
	assert.Equal(t, int64(300), days[4].Expense.Cents)
	assert.Equal(t, int64(450), days[6].Expense.Cents)

	assert.Equal(t, Money{Cents: 1050}, ComputeLast7DaysSpend(sampleTransactions(), now))
}

func TestLast7DaysUsesLocalDay(t *testing.T) {
	// 23:30 UTC on the 2nd is already the 3rd in Kigali.
	kigali := time.FixedZone("CAT", 2*3600)
	now := time.Date(2025, 6, 2, 23, 30, 0, 0, time.UTC).In(kigali)
	days := ComputeLast7Days(nil, now)
	assert.Equal(t, "2025-06-03", days[6].Date.String())
}

func TestComputeTopCategory(t *testing.T) {
	assert.Equal(t, "Food", ComputeTopCategory(sampleTransactions()))
	assert.Equal(t, NoCategory, ComputeTopCategory(nil))

	tie := []Transaction{
		{Category: "Books", Amount: Money{Cents: 100}, Type: Expense},
		{Category: "Fees", Amount: Money{Cents: 100}, Type: Expense},
	}
	assert.Equal(t, "Books", ComputeTopCategory(tie))
}

func TestComputeBreakdown(t *testing.T) {
	got := ComputeBreakdown(sampleTransactions())
	want := []CategoryAmount{
		{Name: "Food", Amount: Money{Cents: 750}},
		{Name: "Transport", Amount: Money{Cents: 300}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("breakdown mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeAverage(t *testing.T) {
	assert.Equal(t, Money{}, ComputeAverage(nil))
	txs := []Transaction{{Amount: Money{Cents: 100}}, {Amount: Money{Cents: 100}}, {Amount: Money{Cents: 101}}}
	// 301 / 3 = 100.33 cents
	assert.Equal(t, Money{Cents: 100}, ComputeAverage(txs))
	txs = append(txs, Transaction{Amount: Money{Cents: 1}})
	// 302 / 4 = 75.5 cents rounds half up
	assert.Equal(t, Money{Cents: 76}, ComputeAverage(txs))
}

func TestComputeCategories(t *testing.T) {
	assert.Equal(t, []string{"Food", "Salary", "Transport"}, ComputeCategories(sampleTransactions()))
	assert.Equal(t, []string{}, ComputeCategories(nil))
}

func TestComputeBudget(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	_, ok := ComputeBudget(sampleTransactions(), nil, now)
	assert.False(t, ok)

	budgetCap := Money{Cents: 500}
	st, ok := ComputeBudget(sampleTransactions(), &budgetCap, now)
	require.True(t, ok)
	assert.Equal(t, Money{Cents: 750}, st.Spent)
	assert.Equal(t, Money{Cents: -250}, st.Remaining)
	assert.True(t, st.Over)
	assert.True(t, decimal.NewFromInt(150).Equal(st.PercentUsed), "got %s", st.PercentUsed)
}
