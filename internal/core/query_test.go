package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func sampleTransactions() []Transaction {
	return []Transaction{
		{ID: "t1", Description: "Banana bread", Amount: Money{Cents: 450}, Category: "Food", Date: NewDate(2025, 6, 3), Type: Expense},
		{ID: "t2", Description: "apple juice", Amount: Money{Cents: 300}, Category: "Food", Date: NewDate(2025, 6, 1), Type: Expense},
		{ID: "t3", Description: "Salary June", Amount: Money{Cents: 250000}, Category: "Salary", Date: NewDate(2025, 6, 1), Type: Income},
		{ID: "t4", Description: "Bus pass", Amount: Money{Cents: 300}, Category: "Transport", Date: NewDate(2025, 5, 28), Type: Expense},
	}
}

func ids(txs []Transaction) []string {
	out := make([]string, len(txs))
	for i, t := range txs {
		out[i] = t.ID
	}
	return out
}

func TestApplySort(t *testing.T) {
	txs := sampleTransactions()
	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{"default newest first, stable ties", DefaultQuery(), []string{"t1", "t2", "t3", "t4"}},
		{"date asc", Query{SortKey: SortDate, SortDir: Asc}, []string{"t4", "t2", "t3", "t1"}},
		{"amount asc keeps ties in order", Query{SortKey: SortAmount, SortDir: Asc}, []string{"t2", "t4", "t1", "t3"}},
		{"description uses collation", Query{SortKey: SortDescription, SortDir: Asc}, []string{"t2", "t1", "t4", "t3"}},
		{"category desc", Query{SortKey: SortCategory, SortDir: Desc}, []string{"t4", "t3", "t1", "t2"}},
		{"unknown key falls back to date", Query{SortKey: "colour", SortDir: Asc}, []string{"t4", "t2", "t3", "t1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ids(Apply(txs, tt.q))); diff != "" {
				t.Fatalf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}
	assert.Equal(t, "t1", txs[0].ID, "input must not be reordered")
}

func TestApplyFilterAndSearch(t *testing.T) {
	txs := sampleTransactions()
	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{"income only", Query{FilterType: "income"}, []string{"t3"}},
		{"category", Query{FilterCategory: "Food", SortDir: Asc}, []string{"t2", "t1"}},
		{"regex on description", Query{Search: "^b", SortDir: Asc}, []string{"t4", "t1"}},
		{"case sensitive", Query{Search: "^b", CaseSensitive: true}, nil},
		{"matches amount", Query{Search: `^3\.00$`, SortDir: Asc}, []string{"t4", "t2"}},
		{"matches date", Query{Search: "2025-05"}, []string{"t4"}},
		{"invalid pattern searched literally", Query{Search: "(juice"}, nil},
		{"invalid pattern literal hit", Query{Search: "bread("}, nil},
		{"filters combine", Query{FilterType: "expense", Search: "food", SortDir: Asc}, []string{"t2", "t1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Apply(txs, tt.q))
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}

	txs[1].Description = "apple (juice"
	assert.Equal(t, []string{"t2"}, ids(Apply(txs, Query{Search: "(JUICE"})))
}

func TestToggleSort(t *testing.T) {
	assert.Equal(t, Desc, ToggleSort(Query{SortKey: SortAmount, SortDir: Asc}, SortAmount))
	assert.Equal(t, Asc, ToggleSort(Query{SortKey: SortAmount, SortDir: Desc}, SortAmount))
	assert.Equal(t, Asc, ToggleSort(Query{SortKey: SortDate, SortDir: Asc}, SortAmount))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, DefaultQuery(), Query{}.Normalize())
}
