package core

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Conversion is the result of converting an amount from the base to the alt
// currency.
type Conversion struct {
	Amount      decimal.Decimal `json:"amount"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	Rate        decimal.Decimal `json:"rate"`
	Result      decimal.Decimal `json:"result"`
	FromDisplay string          `json:"fromDisplay"`
	ToDisplay   string          `json:"toDisplay"`
}

// Convert turns amount (in the base currency) into the alt currency using the
// configured rate. The result is fixed to two decimals.
func Convert(amount decimal.Decimal, s Settings) (Conversion, error) {
	if amount.IsNegative() {
		return Conversion{}, fmt.Errorf("convert %s: %w", amount, ErrInvalidAmount)
	}
	rate, ok := s.EffectiveRate()
	if !ok || !rate.IsPositive() {
		return Conversion{}, ErrRateNotSet
	}
	from := strings.ToUpper(s.BaseCurrency)
	to := strings.ToUpper(s.AltCurrency)
	if money.GetCurrency(from) == nil {
		return Conversion{}, fmt.Errorf("convert from %q: %w", from, ErrUnknownCurrency)
	}
	if money.GetCurrency(to) == nil {
		return Conversion{}, fmt.Errorf("convert to %q: %w", to, ErrUnknownCurrency)
	}
	result := amount.Mul(rate).Round(2)
	return Conversion{
		Amount:      amount,
		From:        from,
		To:          to,
		Rate:        rate,
		Result:      result,
		FromDisplay: FormatAmount(amount, from),
		ToDisplay:   FormatAmount(result, to),
	}, nil
}

// ParseAmount parses a free-form amount for conversion.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// FormatAmount renders d with the symbol and grouping of currency code, always
// with two decimals. Unknown codes fall back to "<amount> <code>".
func FormatAmount(d decimal.Decimal, code string) string {
	cur := money.GetCurrency(strings.ToUpper(code))
	if cur == nil {
		return d.StringFixed(2) + " " + code
	}
	f := money.NewFormatter(2, cur.Decimal, cur.Thousand, cur.Grapheme, cur.Template)
	return f.Format(d.Shift(2).Round(0).IntPart())
}

// FormatMoney renders m in currency code.
func FormatMoney(m Money, code string) string {
	return FormatAmount(m.Decimal(), code)
}
