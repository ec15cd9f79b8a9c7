package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// DateLayout is the on-disk and wire format of a transaction date.
const DateLayout = "2006-01-02"

// IDPrefix starts every generated transaction identifier.
const IDPrefix = "txn_"

type (
	TransactionType string

	// Date is a calendar day. The zero value means "no date".
	Date struct {
		time.Time
	}

	Transaction struct {
		ID          string          `json:"id"`
		Description string          `json:"description"`
		Amount      Money           `json:"amount"`
		Category    string          `json:"category"`
		Date        Date            `json:"date"`
		Type        TransactionType `json:"type"`
		CreatedAt   time.Time       `json:"createdAt"`
		UpdatedAt   time.Time       `json:"updatedAt"`
	}

	// TransactionUpdate carries the fields an edit replaces. Nil fields are kept.
	TransactionUpdate struct {
		Description *string
		Amount      *Money
		Category    *string
		Date        *Date
		Type        *TransactionType
	}

	// TransactionDraft is the raw user input for a new or edited transaction,
	// before validation.
	TransactionDraft struct {
		Description string
		Amount      string
		Date        string
		Category    string
		Type        TransactionType
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyID          = errors.New("empty transaction id")
	ErrNotFound         = errors.New("transaction not found")
	ErrRateNotSet       = errors.New("conversion rate not set")
	ErrUnknownCurrency  = errors.New("unknown currency")
)

// Valid reports whether t is one of the two known types.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string. The empty string yields the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// String returns the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Equal compares calendar days.
func (d Date) Equal(o Date) bool {
	return d.String() == o.String()
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, b)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate checks the invariants every stored transaction holds.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if t.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}

// IsIncome reports whether the transaction adds money. Anything else is spending.
func (t Transaction) IsIncome() bool {
	return t.Type == Income
}

// Apply returns a copy of t with the update merged in and UpdatedAt set to now.
func (t Transaction) Apply(u TransactionUpdate, now time.Time) Transaction {
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Amount != nil {
		t.Amount = *u.Amount
	}
	if u.Category != nil {
		t.Category = *u.Category
	}
	if u.Date != nil {
		t.Date = *u.Date
	}
	if u.Type != nil {
		t.Type = *u.Type
	}
	t.UpdatedAt = Timestamp(now)
	return t
}

// Build turns a validated draft into a transaction. Callers run
// ValidateTransaction first; Build only fails on input it cannot convert.
func (d TransactionDraft) Build(id string, now time.Time) (Transaction, error) {
	cents, err := ParseDecimalToCents(d.Amount)
	if err != nil {
		return Transaction{}, err
	}
	date, err := ParseDate(d.Date)
	if err != nil {
		return Transaction{}, err
	}
	typ := d.Type
	if typ == "" {
		typ = Expense
	}
	if !typ.Valid() {
		return Transaction{}, ErrInvalidType
	}
	ts := Timestamp(now)
	return Transaction{
		ID:          id,
		Description: strings.TrimSpace(d.Description),
		Amount:      Money{Cents: cents},
		Category:    strings.TrimSpace(d.Category),
		Date:        date,
		Type:        typ,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}, nil
}

// Timestamp normalises t to the UTC millisecond precision used by createdAt/updatedAt.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

const base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateID returns an identifier of the form txn_<base36 millis><4 random>.
// taken may be nil; when it reports a collision a fresh suffix is drawn.
func GenerateID(now time.Time, taken func(string) bool) string {
	stamp := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	for {
		var b strings.Builder
		b.Grow(len(IDPrefix) + len(stamp) + 4)
		b.WriteString(IDPrefix)
		b.WriteString(stamp)
		for i := 0; i < 4; i++ {
			b.WriteByte(base36[rand.IntN(len(base36))])
		}
		id := b.String()
		if taken == nil || !taken(id) {
			return id
		}
	}
}
