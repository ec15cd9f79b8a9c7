package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

type (
	Theme string

	// Rate is an optional conversion rate. It serialises as "" when unset, the
	// same placeholder older exports use.
	Rate struct {
		Value decimal.Decimal
		Valid bool
	}

	Settings struct {
		UserName     string `json:"userName"`
		BudgetCap    *Money `json:"budgetCap"`
		BaseCurrency string `json:"baseCurrency"`
		AltCurrency  string `json:"altCurrency"`
		Rate         Rate   `json:"rate"`    // 1 base = Rate alt
		RateUSD      Rate   `json:"rateUSD"` // 1 base = RateUSD USD
		RateNGN      Rate   `json:"rateNGN"` // 1 base = RateNGN NGN
		Theme        Theme  `json:"theme"`
	}

	// SettingsUpdate lists the settings fields to overwrite. BudgetCap and
	// ClearBudgetCap are exclusive; ClearBudgetCap wins.
	SettingsUpdate struct {
		UserName       *string
		BudgetCap      *Money
		ClearBudgetCap bool
		BaseCurrency   *string
		AltCurrency    *string
		Rate           *decimal.Decimal
		RateUSD        *decimal.Decimal
		RateNGN        *decimal.Decimal
		Theme          *Theme
	}
)

// DefaultSettings returns the settings of a fresh install.
func DefaultSettings() Settings {
	return Settings{
		UserName:     "",
		BudgetCap:    nil,
		BaseCurrency: "RWF",
		AltCurrency:  "USD",
		Theme:        ThemeLight,
	}
}

func NewRate(d decimal.Decimal) Rate {
	return Rate{Value: d, Valid: true}
}

func (r Rate) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte(`""`), nil
	}
	return []byte(r.Value.String()), nil
}

// UnmarshalJSON accepts null, "", a number or a numeric string.
func (r *Rate) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte(`""`)) {
		*r = Rate{}
		return nil
	}
	raw := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return fmt.Errorf("invalid rate %s: %w", b, err)
		}
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid rate %q: %w", raw, err)
	}
	*r = NewRate(d)
	return nil
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	if s.BudgetCap != nil {
		c := *s.BudgetCap
		s.BudgetCap = &c
	}
	return s
}

// Apply returns a copy of s with u merged in.
func (s Settings) Apply(u SettingsUpdate) Settings {
	s = s.Clone()
	if u.UserName != nil {
		s.UserName = *u.UserName
	}
	if u.BudgetCap != nil {
		c := *u.BudgetCap
		s.BudgetCap = &c
	}
	if u.ClearBudgetCap {
		s.BudgetCap = nil
	}
	if u.BaseCurrency != nil {
		s.BaseCurrency = strings.ToUpper(*u.BaseCurrency)
	}
	if u.AltCurrency != nil {
		s.AltCurrency = strings.ToUpper(*u.AltCurrency)
	}
	if u.Rate != nil {
		s.Rate = NewRate(*u.Rate)
	}
	if u.RateUSD != nil {
		s.RateUSD = NewRate(*u.RateUSD)
	}
	if u.RateNGN != nil {
		s.RateNGN = NewRate(*u.RateNGN)
	}
	if u.Theme != nil {
		s.Theme = *u.Theme
	}
	return s
}

// EffectiveRate picks the rate for the configured alt currency, falling back
// to the legacy per-currency rates.
func (s Settings) EffectiveRate() (decimal.Decimal, bool) {
	if s.Rate.Valid {
		return s.Rate.Value, true
	}
	switch strings.ToUpper(s.AltCurrency) {
	case "USD":
		return s.RateUSD.Value, s.RateUSD.Valid
	case "NGN":
		return s.RateNGN.Value, s.RateNGN.Valid
	}
	return decimal.Decimal{}, false
}
