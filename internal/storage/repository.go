package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"flowfunds/internal/core"
	"flowfunds/internal/log"
)

// Repository persists the whole transaction list and the settings object as
// JSON documents in a Store.
type Repository struct {
	store  Store
	logger *log.Logger
}

func NewRepository(store Store, logger *log.Logger) *Repository {
	if logger == nil {
		logger = log.Discard()
	}
	return &Repository{store: store, logger: logger.WithComponent(log.ComponentStorage)}
}

// Store returns the underlying store.
func (r *Repository) Store() Store { return r.store }

// LoadTransactions returns the stored list. A missing document, or one that is
// not a JSON array, yields an empty list. Records that fail to decode are
// skipped one by one. Only store failures are returned.
func (r *Repository) LoadTransactions(ctx context.Context) ([]core.Transaction, error) {
	raw, found, err := r.store.Get(ctx, KeyTransactions)
	if err != nil {
		return []core.Transaction{}, fmt.Errorf("load transactions: %w", err)
	}
	if !found {
		return []core.Transaction{}, nil
	}
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		r.logger.WarnContext(ctx, "Discarding unreadable transactions document",
			log.FieldKey, KeyTransactions,
			log.FieldBytes, len(raw),
			log.FieldError, err)
		return []core.Transaction{}, nil
	}
	txs := make([]core.Transaction, 0, len(records))
	for i, rec := range records {
		var tx core.Transaction
		if err := json.Unmarshal(rec, &tx); err != nil {
			r.logger.WarnContext(ctx, "Skipping unreadable transaction record",
				log.FieldKey, KeyTransactions,
				"index", i,
				log.FieldError, err)
			continue
		}
		txs = append(txs, tx)
	}
	r.logger.DebugContext(ctx, "Transactions loaded", log.FieldCount, len(txs))
	return txs, nil
}

// SaveTransactions replaces the stored list.
func (r *Repository) SaveTransactions(ctx context.Context, txs []core.Transaction) error {
	if txs == nil {
		txs = []core.Transaction{}
	}
	raw, err := json.Marshal(txs)
	if err != nil {
		return fmt.Errorf("encode transactions: %w", err)
	}
	if err := r.store.Set(ctx, KeyTransactions, raw); err != nil {
		r.logger.ErrorContext(ctx, "Failed to save transactions",
			log.FieldKey, KeyTransactions,
			log.FieldCount, len(txs),
			log.FieldError, err)
		return fmt.Errorf("save transactions: %w", err)
	}
	return nil
}

// LoadSettings returns the defaults overlaid with the stored fields. Old
// documents that carry rate1/rate2 have them moved to rateUSD/rateNGN.
func (r *Repository) LoadSettings(ctx context.Context) (core.Settings, error) {
	s := core.DefaultSettings()
	raw, found, err := r.store.Get(ctx, KeySettings)
	if err != nil {
		return s, fmt.Errorf("load settings: %w", err)
	}
	if !found {
		return s, nil
	}
	merged, err := MergeSettings(s, raw)
	if err != nil {
		r.logger.WarnContext(ctx, "Discarding unreadable settings document",
			log.FieldKey, KeySettings,
			log.FieldError, err)
		return core.DefaultSettings(), nil
	}
	return merged, nil
}

// MergeSettings decodes raw over base and applies the legacy rate renames.
func MergeSettings(base core.Settings, raw []byte) (core.Settings, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return base, fmt.Errorf("decode settings: %w", err)
	}
	if fields == nil {
		return base, fmt.Errorf("decode settings: not an object")
	}
	s := base.Clone()
	if err := json.Unmarshal(raw, &s); err != nil {
		return base, fmt.Errorf("decode settings: %w", err)
	}
	legacy := []struct {
		from string
		to   string
		dst  *core.Rate
	}{
		{"rate1", "rateUSD", &s.RateUSD},
		{"rate2", "rateNGN", &s.RateNGN},
	}
	for _, l := range legacy {
		old, hasOld := fields[l.from]
		if _, hasNew := fields[l.to]; hasNew || !hasOld {
			continue
		}
		var rate core.Rate
		if err := json.Unmarshal(old, &rate); err != nil {
			return base, fmt.Errorf("decode settings %s: %w", l.from, err)
		}
		*l.dst = rate
	}
	return s, nil
}

// SaveSettings replaces the stored settings.
func (r *Repository) SaveSettings(ctx context.Context, s core.Settings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := r.store.Set(ctx, KeySettings, raw); err != nil {
		r.logger.ErrorContext(ctx, "Failed to save settings",
			log.FieldKey, KeySettings,
			log.FieldError, err)
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// ClearAll removes both documents.
func (r *Repository) ClearAll(ctx context.Context) error {
	if err := r.store.Delete(ctx, KeyTransactions, KeySettings); err != nil {
		return fmt.Errorf("clear storage: %w", err)
	}
	r.logger.InfoContext(ctx, "Storage cleared", log.FieldOperation, log.OpClear)
	return nil
}
