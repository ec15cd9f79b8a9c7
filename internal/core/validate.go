package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Rhymond/go-money"
	"github.com/dlclark/regexp2"
	"github.com/shopspring/decimal"
)

const (
	MaxDescriptionLength = 200
	MaxNameLength        = 50
)

// MaxAmount is the largest amount a single transaction may carry.
var MaxAmount = decimal.NewFromInt(1_000_000)

// Patterns use ECMAScript semantics so that input accepted by a browser form is
// accepted here.
var (
	reDescription   = mustPattern(`^\S(?:.*\S)?$`, regexp2.None)
	reAmount        = mustPattern(`^(0|[1-9]\d*)(\.\d{1,2})?$`, regexp2.None)
	reDate          = mustPattern(`^\d{4}-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])$`, regexp2.None)
	reCategory      = mustPattern(`^[A-Za-z]+(?:[ -][A-Za-z]+)*$`, regexp2.None)
	reDuplicateWord = mustPattern(`\b(\w+)\s+\1\b`, regexp2.IgnoreCase)
	reRate          = mustPattern(`^\d+(\.\d{1,6})?$`, regexp2.None)
	reName          = mustPattern(`^[A-Za-z](?:[A-Za-z' .-]*[A-Za-z.])?$`, regexp2.None)
)

func mustPattern(expr string, opt regexp2.RegexOptions) *regexp2.Regexp {
	re := regexp2.MustCompile(expr, opt|regexp2.ECMAScript)
	re.MatchTimeout = 100 * time.Millisecond
	return re
}

func matches(re *regexp2.Regexp, s string) bool {
	ok, err := re.MatchString(s)
	return err == nil && ok
}

// FieldErrors maps a form field to its validation message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (fe FieldErrors) add(field, msg string) {
	if msg != "" {
		fe[field] = msg
	}
}

// ValidateDescription returns an error message or "".
func ValidateDescription(val string) string {
	if strings.TrimSpace(val) == "" {
		return "Description is required."
	}
	if !matches(reDescription, val) {
		return "Description must not start or end with spaces."
	}
	if utf8.RuneCountInString(val) > MaxDescriptionLength {
		return "Description must be 200 characters or fewer."
	}
	return ""
}

// CheckDuplicateWords returns a warning when a word is immediately repeated.
func CheckDuplicateWords(val string) string {
	m, err := reDuplicateWord.FindStringMatch(val)
	if err != nil || m == nil {
		return ""
	}
	return fmt.Sprintf("Duplicate word detected: %q", m.GroupByNumber(1).String())
}

func ValidateAmount(val string) string {
	val = strings.TrimSpace(val)
	if val == "" {
		return "Amount is required."
	}
	if !matches(reAmount, val) {
		return "Enter a valid amount (e.g. 12.50)."
	}
	num, err := decimal.NewFromString(val)
	if err != nil {
		return "Enter a valid amount (e.g. 12.50)."
	}
	if !num.IsPositive() {
		return "Amount must be greater than zero."
	}
	if num.GreaterThan(MaxAmount) {
		return "Amount must be below $1,000,000."
	}
	return ""
}

func ValidateDate(val string) string {
	val = strings.TrimSpace(val)
	if val == "" {
		return "Date is required."
	}
	if !matches(reDate, val) {
		return "Enter a valid date (YYYY-MM-DD)."
	}
	// The pattern admits days like 02-31; the calendar does not.
	if _, err := time.Parse(DateLayout, val); err != nil {
		return "Enter a valid date (YYYY-MM-DD)."
	}
	return ""
}

func ValidateCategory(val string) string {
	val = strings.TrimSpace(val)
	if val == "" {
		return "Please select a category."
	}
	if !matches(reCategory, val) {
		return "Category may only contain letters, spaces, and hyphens."
	}
	return ""
}

func ValidateRate(val string) string {
	val = strings.TrimSpace(val)
	if val == "" {
		return "Rate is required."
	}
	if !matches(reRate, val) {
		return "Enter a valid positive number (e.g. 0.92)."
	}
	if num, err := decimal.NewFromString(val); err != nil || !num.IsPositive() {
		return "Rate must be greater than zero."
	}
	return ""
}

// ValidateBudgetCap accepts the empty string, which clears the cap.
func ValidateBudgetCap(val string) string {
	val = strings.TrimSpace(val)
	if val == "" {
		return ""
	}
	if !matches(reAmount, val) {
		return "Enter a valid amount (e.g. 500.00)."
	}
	if num, err := decimal.NewFromString(val); err != nil || !num.IsPositive() {
		return "Cap must be greater than zero."
	}
	return ""
}

// ValidateName checks the optional display name.
func ValidateName(val string) string {
	val = strings.TrimSpace(val)
	if val == "" {
		return ""
	}
	if utf8.RuneCountInString(val) > MaxNameLength {
		return "Name must be 50 characters or fewer."
	}
	if !matches(reName, val) {
		return "Name may only contain letters, spaces, apostrophes, hyphens and dots."
	}
	return ""
}

func ValidateCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "Please select a currency."
	}
	if money.GetCurrency(code) == nil {
		return "Unknown currency code."
	}
	return ""
}

func ValidateTheme(t Theme) string {
	if t != ThemeLight && t != ThemeDark {
		return `Theme must be "light" or "dark".`
	}
	return ""
}

func ValidateType(t TransactionType) string {
	if !t.Valid() {
		return `Type must be "income" or "expense".`
	}
	return ""
}

// ValidateTransaction validates a full draft. A nil result means valid.
func ValidateTransaction(d TransactionDraft) FieldErrors {
	errs := FieldErrors{}
	errs.add("description", ValidateDescription(d.Description))
	errs.add("amount", ValidateAmount(d.Amount))
	errs.add("date", ValidateDate(d.Date))
	errs.add("category", ValidateCategory(d.Category))
	if d.Type != "" {
		errs.add("type", ValidateType(d.Type))
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidateEdit validates the fields an edit may change. Category is not
// re-validated on edit.
func ValidateEdit(d TransactionDraft) FieldErrors {
	errs := FieldErrors{}
	errs.add("description", ValidateDescription(d.Description))
	errs.add("amount", ValidateAmount(d.Amount))
	errs.add("date", ValidateDate(d.Date))
	if d.Type != "" {
		errs.add("type", ValidateType(d.Type))
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// SettingsInput is raw settings form input. Nil fields are left unchanged and
// an empty BudgetCap clears the cap.
type SettingsInput struct {
	UserName     *string
	BudgetCap    *string
	BaseCurrency *string
	AltCurrency  *string
	Rate         *string
	RateUSD      *string
	RateNGN      *string
	Theme        *string
}

// Update validates every present field and converts the input. A non-nil
// FieldErrors means nothing should be applied.
func (in SettingsInput) Update() (SettingsUpdate, FieldErrors) {
	var u SettingsUpdate
	errs := FieldErrors{}

	if in.UserName != nil {
		name := strings.TrimSpace(*in.UserName)
		if msg := ValidateName(name); msg != "" {
			errs.add("userName", msg)
		} else {
			u.UserName = &name
		}
	}
	if in.BudgetCap != nil {
		val := strings.TrimSpace(*in.BudgetCap)
		if msg := ValidateBudgetCap(val); msg != "" {
			errs.add("budgetCap", msg)
		} else if val == "" {
			u.ClearBudgetCap = true
		} else if m, err := ParseMoney(val); err == nil {
			u.BudgetCap = &m
		}
	}
	currency := func(field string, p *string) *string {
		if p == nil {
			return nil
		}
		code := strings.ToUpper(strings.TrimSpace(*p))
		if msg := ValidateCurrency(code); msg != "" {
			errs.add(field, msg)
			return nil
		}
		return &code
	}
	u.BaseCurrency = currency("baseCurrency", in.BaseCurrency)
	u.AltCurrency = currency("altCurrency", in.AltCurrency)

	rate := func(field string, p *string) *decimal.Decimal {
		if p == nil {
			return nil
		}
		val := strings.TrimSpace(*p)
		if msg := ValidateRate(val); msg != "" {
			errs.add(field, msg)
			return nil
		}
		d := decimal.RequireFromString(val)
		return &d
	}
	u.Rate = rate("rate", in.Rate)
	u.RateUSD = rate("rateUSD", in.RateUSD)
	u.RateNGN = rate("rateNGN", in.RateNGN)

	if in.Theme != nil {
		theme := Theme(strings.ToLower(strings.TrimSpace(*in.Theme)))
		if msg := ValidateTheme(theme); msg != "" {
			errs.add("theme", msg)
		} else {
			u.Theme = &theme
		}
	}

	if len(errs) > 0 {
		return SettingsUpdate{}, errs
	}
	return u, nil
}
