// Package backup encodes and decodes the JSON export file.
package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"

	"flowfunds/internal/core"
	"flowfunds/internal/storage"
)

const (
	AppName       = "FlowFunds"
	FormatVersion = "1.0"

	// maxListed is how many record errors an import failure spells out.
	maxListed = 5

	isoMillis = "2006-01-02T15:04:05.000Z07:00"
)

type (
	Meta struct {
		App         string `json:"app"`
		Version     string `json:"version"`
		ExportedAt  string `json:"exportedAt"`
		RecordCount int    `json:"recordCount"`
	}

	// Payload is the wrapped export document.
	Payload struct {
		Meta         Meta               `json:"_meta"`
		Transactions []core.Transaction `json:"transactions"`
		Settings     core.Settings      `json:"settings"`
	}

	// Result is an accepted import. Settings is nil when the file carried none.
	Result struct {
		Transactions []core.Transaction
		Settings     *core.Settings
	}

	// ImportError rejects a whole import. Records holds one error per bad
	// record when the failure came from record validation.
	ImportError struct {
		Message string
		Records *multierror.Error
	}

	// RecordError describes the first problem found in one record.
	RecordError struct {
		Index  int // 1-based
		Reason string
	}
)

func (e *ImportError) Error() string { return e.Message }

func (e *ImportError) Unwrap() error {
	if e.Records == nil {
		return nil
	}
	return e.Records
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("Record %d: %s", e.Index, e.Reason)
}

// NewPayload builds the export document for the given state.
func NewPayload(txs []core.Transaction, s core.Settings, now time.Time) Payload {
	if txs == nil {
		txs = []core.Transaction{}
	}
	return Payload{
		Meta: Meta{
			App:         AppName,
			Version:     FormatVersion,
			ExportedAt:  now.UTC().Format(isoMillis),
			RecordCount: len(txs),
		},
		Transactions: txs,
		Settings:     s,
	}
}

// Encode writes p indented by two spaces.
func Encode(p Payload) ([]byte, error) {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return b, nil
}

// FileName is the suggested download name for an export made at now.
func FileName(now time.Time) string {
	return "flowfunds-export-" + now.UTC().Format(core.DateLayout) + ".json"
}

// Parse validates an import file. It accepts a bare array of transactions or
// a wrapped Payload. Any bad record rejects the whole file.
func Parse(data []byte, now time.Time) (Result, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return Result{}, &ImportError{Message: "JSON parse error: " + err.Error()}
	}
	if dec.More() {
		return Result{}, &ImportError{Message: "JSON parse error: unexpected data after top-level value"}
	}

	var (
		records []any
		res     Result
	)
	switch v := doc.(type) {
	case []any:
		records = v
	case map[string]any:
		list, ok := v["transactions"].([]any)
		if !ok {
			return Result{}, &ImportError{Message: `Invalid format: missing "transactions" array.`}
		}
		records = list
		if raw, ok := v["settings"].(map[string]any); ok {
			s, err := parseSettings(raw)
			if err != nil {
				return Result{}, &ImportError{Message: "Invalid settings: " + err.Error()}
			}
			res.Settings = &s
		}
	default:
		return Result{}, &ImportError{Message: "Invalid JSON format."}
	}

	var merr *multierror.Error
	txs := make([]core.Transaction, 0, len(records))
	seen := make(map[string]int, len(records))
	for i, rec := range records {
		tx, reason := parseRecord(rec, now)
		if reason == "" {
			if first, dup := seen[tx.ID]; dup {
				reason = fmt.Sprintf("Duplicate 'id' %q (first used by record %d)", tx.ID, first)
			}
		}
		if reason != "" {
			merr = multierror.Append(merr, &RecordError{Index: i + 1, Reason: reason})
			continue
		}
		seen[tx.ID] = i + 1
		txs = append(txs, tx)
	}
	if merr != nil {
		merr.ErrorFormat = formatValidation
		return Result{}, &ImportError{Message: merr.Error(), Records: merr}
	}
	res.Transactions = txs
	return res, nil
}

func formatValidation(errs []error) string {
	lines := make([]string, 0, maxListed)
	for i, err := range errs {
		if i == maxListed {
			break
		}
		lines = append(lines, err.Error())
	}
	msg := "Validation failed:\n" + strings.Join(lines, "\n")
	if len(errs) > maxListed {
		msg += fmt.Sprintf("\n...and %d more", len(errs)-maxListed)
	}
	return msg
}

func parseSettings(raw map[string]any) (core.Settings, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return core.Settings{}, err
	}
	return storage.MergeSettings(core.DefaultSettings(), b)
}

// parseRecord returns the transaction or the reason the record is rejected.
func parseRecord(rec any, now time.Time) (core.Transaction, string) {
	var fields map[string]any
	switch v := rec.(type) {
	case map[string]any:
		fields = v
	case []any:
		// An array is an object without any of the required fields.
		fields = map[string]any{}
	default:
		return core.Transaction{}, "Not an object"
	}

	id, _ := fields["id"].(string)
	if id == "" {
		return core.Transaction{}, "Missing or invalid 'id'"
	}
	desc, _ := fields["description"].(string)
	if desc == "" {
		return core.Transaction{}, "Missing or invalid 'description'"
	}
	amount, ok := parseAmount(fields["amount"])
	if !ok {
		return core.Transaction{}, "Invalid 'amount'"
	}
	typ, _ := fields["type"].(string)
	if !core.TransactionType(typ).Valid() {
		return core.Transaction{}, `'type' must be "income" or "expense"`
	}
	var date core.Date
	if raw, present := fields["date"]; present && raw != nil {
		s, isString := raw.(string)
		parsed, err := core.ParseDate(s)
		if !isString || err != nil {
			return core.Transaction{}, "Invalid 'date'"
		}
		date = parsed
	}
	category, _ := fields["category"].(string)

	return core.Transaction{
		ID:          id,
		Description: desc,
		Amount:      core.MoneyFromDecimal(amount),
		Category:    category,
		Date:        date,
		Type:        core.TransactionType(typ),
		CreatedAt:   timestampOr(fields["createdAt"], now),
		UpdatedAt:   timestampOr(fields["updatedAt"], now),
	}, ""
}

func parseAmount(v any) (decimal.Decimal, bool) {
	var s string
	switch a := v.(type) {
	case json.Number:
		s = a.String()
	case string:
		s = strings.TrimSpace(a)
	default:
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() || !core.FitsCents(d) {
		return decimal.Decimal{}, false
	}
	return d, true
}

func timestampOr(v any, now time.Time) time.Time {
	if s, ok := v.(string); ok && s != "" {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return core.Timestamp(t)
		}
	}
	return core.Timestamp(now)
}
