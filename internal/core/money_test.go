package core

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(Money{Cents: 1250})
	if err != nil || string(b) != "12.50" {
		t.Fatalf("marshal: got %s err=%v", b, err)
	}

	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{`12.5`, 1250, true},
		{`"7.25"`, 725, true},
		{`0`, 0, true},
		{`1.005`, 101, true},
		{`null`, 0, true},
		{`"abc"`, 0, false},
		{`true`, 0, false},
		{`92233720368547758.07`, 9223372036854775807, true},
		{`92233720368547758.08`, 0, false},
		{`"1e20"`, 0, false},
	}
	for _, tc := range cases {
		var m Money
		err := json.Unmarshal([]byte(tc.in), &m)
		if tc.ok && (err != nil || m.Cents != tc.want) {
			t.Fatalf("%s: expected %d, got %d (err=%v)", tc.in, tc.want, m.Cents, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s: expected error", tc.in)
		}
	}
}

func TestMoneyString(t *testing.T) {
	if s := (Money{Cents: -305}).String(); s != "-3.05" {
		t.Fatalf("got %q", s)
	}
	if s := (Money{}).String(); s != "0.00" {
		t.Fatalf("got %q", s)
	}
}

func TestFitsCents(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"0", true},
		{"12.345", true},
		{"92233720368547758.07", true},
		{"92233720368547758.08", false},
		{"1e20", false},
	}
	for _, tc := range cases {
		if got := FitsCents(decimal.RequireFromString(tc.in)); got != tc.want {
			t.Errorf("FitsCents(%s) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
