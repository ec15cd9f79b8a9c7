package services

import (
	"strconv"

	"github.com/dlclark/regexp2"

	"flowfunds/internal/core"
)

// View returns the current table view.
func (t *Tracker) View() core.Query {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.view
}

// SetView replaces the whole view, normalising empty fields.
func (t *Tracker) SetView(q core.Query) core.Query {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.view = q.Normalize()
	return t.view
}

func (t *Tracker) SetSort(key core.SortKey, dir core.SortDir) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.view.SortKey = core.ParseSortKey(string(key))
	t.view.SortDir = core.ParseSortDir(string(dir))
}

func (t *Tracker) Sort() (core.SortKey, core.SortDir) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.view.SortKey, t.view.SortDir
}

// ToggleSort selects key, flipping the direction when key is already sorted
// ascending. It returns the new direction.
func (t *Tracker) ToggleSort(key core.SortKey) core.SortDir {
	t.mu.Lock()
	defer t.mu.Unlock()
	key = core.ParseSortKey(string(key))
	dir := core.ToggleSort(t.view, key)
	t.view.SortKey, t.view.SortDir = key, dir
	return dir
}

func (t *Tracker) SetSearch(pattern string, caseSensitive bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.view.Search = pattern
	t.view.CaseSensitive = caseSensitive
}

func (t *Tracker) Search() (pattern string, caseSensitive bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.view.Search, t.view.CaseSensitive
}

// SetFilterType accepts "all", "income" or "expense".
func (t *Tracker) SetFilterType(typ string) error {
	if typ == "" {
		typ = core.FilterAll
	}
	if typ != core.FilterAll && !core.TransactionType(typ).Valid() {
		return core.ErrInvalidType
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.view.FilterType = typ
	return nil
}

// SetFilterCategory accepts "all" or an exact category name.
func (t *Tracker) SetFilterCategory(category string) {
	if category == "" {
		category = core.FilterAll
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.view.FilterCategory = category
}

func (t *Tracker) Filters() (typ, category string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.view.FilterType, t.view.FilterCategory
}

// Visible applies the stored view to the collection.
func (t *Tracker) Visible() []core.Transaction {
	return t.VisibleWith(t.View())
}

// VisibleWith applies q to the collection without storing it.
func (t *Tracker) VisibleWith(q core.Query) []core.Transaction {
	re := t.Matcher(q)
	t.mu.RLock()
	defer t.mu.RUnlock()
	return core.ApplyWith(t.transactions, q, re)
}

// Matcher returns the compiled search of q, reusing earlier compilations of
// the same pattern.
func (t *Tracker) Matcher(q core.Query) *regexp2.Regexp {
	if q.Search == "" {
		return nil
	}
	key := strconv.FormatBool(q.CaseSensitive) + "\x00" + q.Search
	if re, ok := t.patterns.Get(key); ok {
		t.metrics.RegexLookup(true)
		return re
	}
	t.metrics.RegexLookup(false)
	re := q.Matcher()
	t.patterns.Set(key, re)
	return re
}
