package services

import (
	"github.com/shopspring/decimal"

	"flowfunds/internal/core"
)

// Derived metrics are recomputed from the collection on every call.

func (t *Tracker) Totals() core.Totals {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return core.ComputeTotals(t.transactions)
}

func (t *Tracker) MonthTotals() core.MonthTotals {
	now := t.Now()
	t.mu.RLock()
	defer t.mu.RUnlock()
	return core.ComputeMonthTotals(t.transactions, now)
}

func (t *Tracker) Last7Days() []core.DayTotals {
	now := t.Now()
	t.mu.RLock()
	defer t.mu.RUnlock()
	return core.ComputeLast7Days(t.transactions, now)
}

func (t *Tracker) Last7DaysSpend() core.Money {
	now := t.Now()
	t.mu.RLock()
	defer t.mu.RUnlock()
	return core.ComputeLast7DaysSpend(t.transactions, now)
}

func (t *Tracker) TopCategory() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return core.ComputeTopCategory(t.transactions)
}

func (t *Tracker) AverageTransaction() core.Money {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return core.ComputeAverage(t.transactions)
}

func (t *Tracker) Categories() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return core.ComputeCategories(t.transactions)
}

// CategoryOptions lists the defaults for typ followed by any other category in
// use, without duplicates.
func (t *Tracker) CategoryOptions(typ core.TransactionType) []string {
	defaults := core.DefaultCategories[typ]
	out := append([]string{}, defaults...)
	seen := make(map[string]bool, len(out))
	for _, c := range out {
		seen[c] = true
	}
	for _, c := range t.Categories() {
		if c != "" && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// Budget reports month spending against the cap; ok is false without a cap.
func (t *Tracker) Budget() (core.BudgetStatus, bool) {
	now := t.Now()
	t.mu.RLock()
	defer t.mu.RUnlock()
	return core.ComputeBudget(t.transactions, t.settings.BudgetCap, now)
}

func (t *Tracker) Breakdown() []core.CategoryAmount {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return core.ComputeBreakdown(t.transactions)
}

// Convert converts amount from the base to the alt currency.
func (t *Tracker) Convert(amount decimal.Decimal) (core.Conversion, error) {
	return core.Convert(amount, t.Settings())
}

// Stats bundles the dashboard figures.
type Stats struct {
	Totals         core.Totals           `json:"totals"`
	Month          core.MonthTotals      `json:"month"`
	Last7DaysSpend core.Money            `json:"last7DaysSpend"`
	TopCategory    string                `json:"topCategory"`
	Average        core.Money            `json:"averageTransaction"`
	Count          int                   `json:"count"`
	Budget         *core.BudgetStatus    `json:"budget,omitempty"`
	Breakdown      []core.CategoryAmount `json:"breakdown"`
}

// Stats computes every dashboard figure under one read lock.
func (t *Tracker) Stats() Stats {
	now := t.Now()
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := Stats{
		Totals:         core.ComputeTotals(t.transactions),
		Month:          core.ComputeMonthTotals(t.transactions, now),
		Last7DaysSpend: core.ComputeLast7DaysSpend(t.transactions, now),
		TopCategory:    core.ComputeTopCategory(t.transactions),
		Average:        core.ComputeAverage(t.transactions),
		Count:          len(t.transactions),
		Breakdown:      core.ComputeBreakdown(t.transactions),
	}
	if b, ok := core.ComputeBudget(t.transactions, t.settings.BudgetCap, now); ok {
		s.Budget = &b
	}
	return s
}
