package core

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldValidators(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) string
		in   string
		want string
	}{
		{"description ok", ValidateDescription, "Lunch at cafe", ""},
		{"description empty", ValidateDescription, "   ", "Description is required."},
		{"description leading space", ValidateDescription, " Lunch", "Description must not start or end with spaces."},
		{"description trailing space", ValidateDescription, "Lunch ", "Description must not start or end with spaces."},
		{"description too long", ValidateDescription, strings.Repeat("a", 201), "Description must be 200 characters or fewer."},
		{"description at limit", ValidateDescription, strings.Repeat("a", 200), ""},

		{"amount ok", ValidateAmount, "12.5", ""},
		{"amount two decimals", ValidateAmount, "0.99", ""},
		{"amount empty", ValidateAmount, "", "Amount is required."},
		{"amount leading zero", ValidateAmount, "012", "Enter a valid amount (e.g. 12.50)."},
		{"amount three decimals", ValidateAmount, "12.345", "Enter a valid amount (e.g. 12.50)."},
		{"amount letters", ValidateAmount, "abc", "Enter a valid amount (e.g. 12.50)."},
		{"amount negative", ValidateAmount, "-5", "Enter a valid amount (e.g. 12.50)."},
		{"amount zero", ValidateAmount, "0.00", "Amount must be greater than zero."},
		{"amount at max", ValidateAmount, "1000000", ""},
		{"amount over max", ValidateAmount, "1000000.01", "Amount must be below $1,000,000."},

		{"date ok", ValidateDate, "2025-06-01", ""},
		{"date empty", ValidateDate, "", "Date is required."},
		{"date short month", ValidateDate, "2025-6-01", "Enter a valid date (YYYY-MM-DD)."},
		{"date impossible day", ValidateDate, "2025-02-30", "Enter a valid date (YYYY-MM-DD)."},

		{"category ok", ValidateCategory, "Eating Out", ""},
		{"category hyphen", ValidateCategory, "Self-care", ""},
		{"category empty", ValidateCategory, "", "Please select a category."},
		{"category digits", ValidateCategory, "Food1", "Category may only contain letters, spaces, and hyphens."},
		{"category double space", ValidateCategory, "Eating  Out", "Category may only contain letters, spaces, and hyphens."},

		{"rate ok", ValidateRate, "0.92", ""},
		{"rate six decimals", ValidateRate, "0.000769", ""},
		{"rate empty", ValidateRate, "", "Rate is required."},
		{"rate zero", ValidateRate, "0", "Rate must be greater than zero."},
		{"rate negative", ValidateRate, "-1", "Enter a valid positive number (e.g. 0.92)."},
		{"rate seven decimals", ValidateRate, "1.1234567", "Enter a valid positive number (e.g. 0.92)."},

		{"cap empty", ValidateBudgetCap, "", ""},
		{"cap ok", ValidateBudgetCap, "500.00", ""},
		{"cap invalid", ValidateBudgetCap, "five", "Enter a valid amount (e.g. 500.00)."},
		{"cap zero", ValidateBudgetCap, "0", "Cap must be greater than zero."},

		{"name empty", ValidateName, "", ""},
		{"name apostrophe", ValidateName, "O'Brien", ""},
		{"name initials", ValidateName, "J. R. Smith", ""},
		{"name digits", ValidateName, "R2D2", "Name may only contain letters, spaces, apostrophes, hyphens and dots."},
		{"name too long", ValidateName, strings.Repeat("a", 51), "Name must be 50 characters or fewer."},

		{"currency ok", ValidateCurrency, "usd", ""},
		{"currency empty", ValidateCurrency, "", "Please select a currency."},
		{"currency unknown", ValidateCurrency, "ABC", "Unknown currency code."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fn(tt.in))
		})
	}
}

func TestCheckDuplicateWords(t *testing.T) {
	assert.Equal(t, `Duplicate word detected: "the"`, CheckDuplicateWords("pay the the rent"))
	assert.Equal(t, `Duplicate word detected: "Coffee"`, CheckDuplicateWords("Coffee coffee beans"))
	assert.Empty(t, CheckDuplicateWords("theme the"))
	assert.Empty(t, CheckDuplicateWords("Lunch"))
}

func TestValidateTransaction(t *testing.T) {
	ok := TransactionDraft{Description: "Lunch", Amount: "12.50", Date: "2025-06-01", Category: "Food", Type: Expense}
	assert.Nil(t, ValidateTransaction(ok))

	errs := ValidateTransaction(TransactionDraft{Description: " x", Amount: "0", Category: "F00d", Type: "gift"})
	require.NotNil(t, errs)
	assert.Equal(t, FieldErrors{
		"description": "Description must not start or end with spaces.",
		"amount":      "Amount must be greater than zero.",
		"date":        "Date is required.",
		"category":    "Category may only contain letters, spaces, and hyphens.",
		"type":        `Type must be "income" or "expense".`,
	}, errs)
	assert.Contains(t, errs.Error(), "amount: Amount must be greater than zero.")

	edit := TransactionDraft{Description: "Lunch", Amount: "3", Date: "2025-06-01"}
	assert.Nil(t, ValidateEdit(edit), "edits do not re-check the category")
}

func TestValidateTheme(t *testing.T) {
	assert.Empty(t, ValidateTheme(ThemeDark))
	assert.NotEmpty(t, ValidateTheme("blue"))
}

func TestSettingsInputUpdate(t *testing.T) {
	str := func(s string) *string { return &s }

	u, errs := SettingsInput{
		UserName:    str(" Ada "),
		BudgetCap:   str("500.00"),
		AltCurrency: str("eur"),
		Rate:        str("0.00072"),
		Theme:       str("Dark"),
	}.Update()
	require.Nil(t, errs)
	require.NotNil(t, u.UserName)
	assert.Equal(t, "Ada", *u.UserName)
	assert.Equal(t, int64(50000), u.BudgetCap.Cents)
	assert.Equal(t, "EUR", *u.AltCurrency)
	assert.True(t, decimal.RequireFromString("0.00072").Equal(*u.Rate))
	assert.Equal(t, ThemeDark, *u.Theme)
	assert.Nil(t, u.BaseCurrency)

	u, errs = SettingsInput{BudgetCap: str("")}.Update()
	require.Nil(t, errs)
	assert.True(t, u.ClearBudgetCap)

	_, errs = SettingsInput{Rate: str("-1"), BaseCurrency: str("XXX1"), Theme: str("blue")}.Update()
	require.NotNil(t, errs)
	assert.Len(t, errs, 3)
	assert.Contains(t, errs, "rate")
	assert.Contains(t, errs, "baseCurrency")
	assert.Contains(t, errs, "theme")
}
