package core

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsJSON(t *testing.T) {
	b, err := json.Marshal(DefaultSettings())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"userName": "", "budgetCap": null, "baseCurrency": "RWF", "altCurrency": "USD",
		"rate": "", "rateUSD": "", "rateNGN": "", "theme": "light"
	}`, string(b))

	var s Settings
	require.NoError(t, json.Unmarshal([]byte(`{"rate": "0.92", "rateUSD": 0.0008, "rateNGN": null, "budgetCap": 500}`), &s))
	assert.True(t, s.Rate.Valid)
	assert.Equal(t, "0.92", s.Rate.Value.String())
	assert.Equal(t, "0.0008", s.RateUSD.Value.String())
	assert.False(t, s.RateNGN.Valid)
	require.NotNil(t, s.BudgetCap)
	assert.Equal(t, int64(50000), s.BudgetCap.Cents)

	assert.Error(t, json.Unmarshal([]byte(`{"rate": "fast"}`), &s))
}

func TestSettingsApply(t *testing.T) {
	base := DefaultSettings()
	budgetCap := Money{Cents: 1000}
	alt := "ngn"
	rate := decimal.RequireFromString("1.5")
	got := base.Apply(SettingsUpdate{BudgetCap: &budgetCap, AltCurrency: &alt, Rate: &rate})

	assert.Equal(t, "NGN", got.AltCurrency)
	assert.Equal(t, "RWF", got.BaseCurrency)
	require.NotNil(t, got.BudgetCap)
	assert.Nil(t, base.BudgetCap, "Apply must not touch the receiver")

	budgetCap.Cents = 1
	assert.Equal(t, int64(1000), got.BudgetCap.Cents, "cap must be copied")

	cleared := got.Apply(SettingsUpdate{ClearBudgetCap: true})
	assert.Nil(t, cleared.BudgetCap)
	assert.NotNil(t, got.BudgetCap)
}

func TestEffectiveRate(t *testing.T) {
	s := DefaultSettings()
	_, ok := s.EffectiveRate()
	assert.False(t, ok)

	s.RateUSD = NewRate(decimal.RequireFromString("0.0007"))
	r, ok := s.EffectiveRate()
	assert.True(t, ok)
	assert.Equal(t, "0.0007", r.String())

	s.Rate = NewRate(decimal.RequireFromString("0.0009"))
	r, _ = s.EffectiveRate()
	assert.Equal(t, "0.0009", r.String())
}
