package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// NoCategory is reported by TopCategory when nothing has been spent.
const NoCategory = "—"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

type (
	Totals struct {
		Income   Money `json:"income"`
		Expenses Money `json:"expenses"`
		Balance  Money `json:"balance"`
	}

	MonthTotals struct {
		Year     int   `json:"year"`
		Month    int   `json:"month"` // 1-12
		Income   Money `json:"income"`
		Expenses Money `json:"expenses"`
	}

	DayTotals struct {
		Date    Date   `json:"date"`
		Label   string `json:"label"` // short weekday, e.g. "Mon"
		Income  Money  `json:"income"`
		Expense Money  `json:"expense"`
	}

	BudgetStatus struct {
		Cap         Money           `json:"cap"`
		Spent       Money           `json:"spent"`
		Remaining   Money           `json:"remaining"`
		PercentUsed decimal.Decimal `json:"percentUsed"`
		Over        bool            `json:"over"`
	}
)

// ComputeTotals sums income and spending. Any type other than income counts
// as spending.
func ComputeTotals(txs []Transaction) Totals {
	var tot Totals
	for _, t := range txs {
		if t.IsIncome() {
			tot.Income = tot.Income.Add(t.Amount)
		} else {
			tot.Expenses = tot.Expenses.Add(t.Amount)
		}
	}
	tot.Balance = tot.Income.Sub(tot.Expenses)
	return tot
}

// ComputeMonthTotals sums the transactions dated in the calendar month of now.
func ComputeMonthTotals(txs []Transaction, now time.Time) MonthTotals {
	y, m, _ := now.Date()
	mt := MonthTotals{Year: y, Month: int(m)}
	for _, t := range txs {
		if t.Date.IsZero() || t.Date.Year() != y || t.Date.Month() != m {
			continue
		}
		if t.IsIncome() {
			mt.Income = mt.Income.Add(t.Amount)
		} else {
			mt.Expenses = mt.Expenses.Add(t.Amount)
		}
	}
	return mt
}

// ComputeLast7Days returns one entry per day, oldest first, ending on the day
// of now.
func ComputeLast7Days(txs []Transaction, now time.Time) []DayTotals {
	today := DateOf(now)
	days := make([]DayTotals, 7)
	index := make(map[string]int, 7)
	for i := range days {
		d := Date{Time: today.AddDate(0, 0, i-6)}
		days[i] = DayTotals{Date: d, Label: d.Weekday().String()[:3]}
		index[d.String()] = i
	}
	for _, t := range txs {
		i, ok := index[t.Date.String()]
		if !ok {
			continue
		}
		switch t.Type {
		case Income:
			days[i].Income = days[i].Income.Add(t.Amount)
		case Expense:
			days[i].Expense = days[i].Expense.Add(t.Amount)
		}
	}
	return days
}

// ComputeLast7DaysSpend is the expense total of ComputeLast7Days.
func ComputeLast7DaysSpend(txs []Transaction, now time.Time) Money {
	var sum Money
	for _, d := range ComputeLast7Days(txs, now) {
		sum = sum.Add(d.Expense)
	}
	return sum
}

// ComputeBreakdown sums expenses per category, largest first. Equal amounts
// keep the order in which the categories first appear.
func ComputeBreakdown(txs []Transaction) []CategoryAmount {
	index := map[string]int{}
	var out []CategoryAmount
	for _, t := range txs {
		if t.Type != Expense {
			continue
		}
		i, ok := index[t.Category]
		if !ok {
			i = len(out)
			index[t.Category] = i
			out = append(out, CategoryAmount{Name: t.Category})
		}
		out[i].Amount = out[i].Amount.Add(t.Amount)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Amount.Cents > out[j].Amount.Cents })
	return out
}

// ComputeTopCategory returns the category with the largest expense total, or
// NoCategory.
func ComputeTopCategory(txs []Transaction) string {
	b := ComputeBreakdown(txs)
	if len(b) == 0 {
		return NoCategory
	}
	return b[0].Name
}

// ComputeAverage is the mean amount over all transactions, rounded to cents.
func ComputeAverage(txs []Transaction) Money {
	if len(txs) == 0 {
		return Money{}
	}
	var total int64
	for _, t := range txs {
		total += t.Amount.Cents
	}
	avg := decimal.NewFromInt(total).Div(decimal.NewFromInt(int64(len(txs))))
	return Money{Cents: avg.Round(0).IntPart()}
}

// ComputeCategories lists the distinct categories in byte order.
func ComputeCategories(txs []Transaction) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, t := range txs {
		if _, ok := seen[t.Category]; ok {
			continue
		}
		seen[t.Category] = struct{}{}
		out = append(out, t.Category)
	}
	sort.Strings(out)
	return out
}

// ComputeBudget compares this month's spending with the cap. ok is false when
// no cap is set.
func ComputeBudget(txs []Transaction, budgetCap *Money, now time.Time) (BudgetStatus, bool) {
	if budgetCap == nil || budgetCap.Cents <= 0 {
		return BudgetStatus{}, false
	}
	spent := ComputeMonthTotals(txs, now).Expenses
	pct := spent.Decimal().Div(budgetCap.Decimal()).Mul(decimal.NewFromInt(100)).Round(1)
	return BudgetStatus{
		Cap:         *budgetCap,
		Spent:       spent,
		Remaining:   budgetCap.Sub(spent),
		PercentUsed: pct,
		Over:        spent.Cents > budgetCap.Cents,
	}, true
}

// DefaultCategories are offered for each type even before any transaction uses them.
var DefaultCategories = map[TransactionType][]string{
	Income:  {"Salary", "Scholarship", "Freelance", "Gift", "Other"},
	Expense: {"Food", "Books", "Transport", "Entertainment", "Fees", "Other"},
}
