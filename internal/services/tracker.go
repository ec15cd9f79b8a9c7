package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
	"golang.org/x/sync/errgroup"

	"flowfunds/internal/amqp"
	"flowfunds/internal/cache"
	"flowfunds/internal/core"
	"flowfunds/internal/log"
	"flowfunds/internal/metrics"
	"flowfunds/internal/storage"
)

var ErrDuplicateID = errors.New("transaction id already exists")

// Publisher receives a change event after every successful mutation.
type Publisher interface {
	Publish(ctx context.Context, ev amqp.Event) error
}

// Options configures a Tracker. Zero values pick sensible defaults.
type Options struct {
	Logger    *log.Logger
	Metrics   *metrics.Recorder
	Publisher Publisher
	// Location is where "today" is computed. Defaults to time.Local.
	Location *time.Location
	// Clock defaults to time.Now.
	Clock func() time.Time

	RegexCacheSize int
	RegexCacheTTL  time.Duration
}

// Tracker owns the in-memory transaction list, the settings and the table
// view. Every mutation is written through to the repository.
type Tracker struct {
	repo      *storage.Repository
	logger    *log.Logger
	audit     *log.StructuredLogger
	metrics   *metrics.Recorder
	publisher Publisher
	loc       *time.Location
	clock     func() time.Time
	patterns  *cache.LRUCache[*regexp2.Regexp]

	mu           sync.RWMutex
	transactions []core.Transaction
	settings     core.Settings
	view         core.Query
}

func NewTracker(repo *storage.Repository, opts Options) *Tracker {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.RegexCacheSize <= 0 {
		opts.RegexCacheSize = 64
	}
	if opts.RegexCacheTTL <= 0 {
		opts.RegexCacheTTL = 10 * time.Minute
	}
	logger := opts.Logger.WithComponent(log.ComponentTracker)
	return &Tracker{
		repo:         repo,
		logger:       logger,
		audit:        log.NewStructuredLogger(logger),
		metrics:      opts.Metrics,
		publisher:    opts.Publisher,
		loc:          opts.Location,
		clock:        opts.Clock,
		patterns:     cache.NewLRUCache[*regexp2.Regexp](opts.RegexCacheSize, opts.RegexCacheTTL),
		transactions: []core.Transaction{},
		settings:     core.DefaultSettings(),
		view:         core.DefaultQuery(),
	}
}

// PatternCache exposes the compiled search cache so it can be registered with
// a cache.Manager.
func (t *Tracker) PatternCache() *cache.LRUCache[*regexp2.Regexp] { return t.patterns }

// Now returns the current time in the tracker's location.
func (t *Tracker) Now() time.Time { return t.clock().In(t.loc) }

// Init loads transactions and settings from the repository.
func (t *Tracker) Init(ctx context.Context) error {
	var (
		txs      []core.Transaction
		settings core.Settings
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = t.repo.LoadTransactions(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		settings, err = t.repo.LoadSettings(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	t.mu.Lock()
	t.transactions = txs
	t.settings = settings
	t.recordGaugesLocked()
	t.mu.Unlock()

	t.logger.InfoContext(ctx, "State loaded",
		log.FieldOperation, log.OpLoad,
		log.FieldCount, len(txs))
	return nil
}

// Reload re-reads the repository, used when the store was edited externally.
// The view is kept.
func (t *Tracker) Reload(ctx context.Context) error {
	return t.Init(ctx)
}

// Transactions returns a copy of the collection, newest insert first.
func (t *Tracker) Transactions() []core.Transaction {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.transactions)
}

func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.transactions)
}

// Get returns a copy of the transaction with id, or nil.
func (t *Tracker) Get(id string) *core.Transaction {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i := t.indexLocked(id); i >= 0 {
		tx := t.transactions[i]
		return &tx
	}
	return nil
}

func (t *Tracker) indexLocked(id string) int {
	return slices.IndexFunc(t.transactions, func(tx core.Transaction) bool { return tx.ID == id })
}

func (t *Tracker) takenLocked(id string) bool { return t.indexLocked(id) >= 0 }

// Add places tx at the front of the collection and saves. An empty id is
// generated; timestamps default to now.
func (t *Tracker) Add(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	now := core.Timestamp(t.clock())

	t.mu.Lock()
	if tx.ID == "" {
		tx.ID = core.GenerateID(now, t.takenLocked)
	} else if t.takenLocked(tx.ID) {
		t.mu.Unlock()
		return core.Transaction{}, fmt.Errorf("add %s: %w", tx.ID, ErrDuplicateID)
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	if tx.UpdatedAt.IsZero() {
		tx.UpdatedAt = tx.CreatedAt
	}
	if err := tx.Validate(); err != nil {
		t.mu.Unlock()
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}
	t.transactions = slices.Insert(t.transactions, 0, tx)
	err := t.saveTransactionsLocked(ctx)
	t.mu.Unlock()

	t.logMutation(ctx, log.OpCreate, tx)
	t.publish(ctx, amqp.NewEvent(amqp.EventCreated, &tx))
	return tx, err
}

// Create validates raw form input, then adds the resulting transaction.
func (t *Tracker) Create(ctx context.Context, d core.TransactionDraft) (core.Transaction, error) {
	if errs := core.ValidateTransaction(d); errs != nil {
		return core.Transaction{}, errs
	}
	tx, err := d.Build("", t.clock())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("build transaction: %w", err)
	}
	return t.Add(ctx, tx)
}

// Update merges u into the transaction with id. ok is false when it does not exist.
func (t *Tracker) Update(ctx context.Context, id string, u core.TransactionUpdate) (tx core.Transaction, ok bool, err error) {
	t.mu.Lock()
	i := t.indexLocked(id)
	if i < 0 {
		t.mu.Unlock()
		return core.Transaction{}, false, nil
	}
	tx = t.transactions[i].Apply(u, t.clock())
	if verr := tx.Validate(); verr != nil {
		t.mu.Unlock()
		return core.Transaction{}, true, fmt.Errorf("update %s: %w", id, verr)
	}
	t.transactions[i] = tx
	err = t.saveTransactionsLocked(ctx)
	t.mu.Unlock()

	t.logMutation(ctx, log.OpUpdate, tx)
	t.publish(ctx, amqp.NewEvent(amqp.EventUpdated, &tx))
	return tx, true, err
}

// Edit validates a full edit form and applies it. The category is not
// re-validated so records with legacy categories stay editable.
func (t *Tracker) Edit(ctx context.Context, id string, d core.TransactionDraft) (core.Transaction, error) {
	if errs := core.ValidateEdit(d); errs != nil {
		return core.Transaction{}, errs
	}
	amount, err := core.ParseMoney(d.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := core.ParseDate(d.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	desc := strings.TrimSpace(d.Description)
	category := strings.TrimSpace(d.Category)
	u := core.TransactionUpdate{
		Description: &desc,
		Amount:      &amount,
		Category:    &category,
		Date:        &date,
	}
	if d.Type != "" {
		typ := d.Type
		u.Type = &typ
	}
	tx, ok, err := t.Update(ctx, id, u)
	if !ok {
		return core.Transaction{}, fmt.Errorf("edit %s: %w", id, core.ErrNotFound)
	}
	return tx, err
}

// Delete removes the transaction with id. Nothing is saved when it does not exist.
func (t *Tracker) Delete(ctx context.Context, id string) (bool, error) {
	t.mu.Lock()
	i := t.indexLocked(id)
	if i < 0 {
		t.mu.Unlock()
		return false, nil
	}
	removed := t.transactions[i]
	t.transactions = slices.Delete(t.transactions, i, i+1)
	err := t.saveTransactionsLocked(ctx)
	t.mu.Unlock()

	t.logMutation(ctx, log.OpDelete, removed)
	t.publish(ctx, amqp.NewEvent(amqp.EventDeleted, &removed))
	return true, err
}

// ReplaceAll swaps the whole collection and saves it.
func (t *Tracker) ReplaceAll(ctx context.Context, txs []core.Transaction) error {
	t.mu.Lock()
	t.transactions = slices.Clone(txs)
	if t.transactions == nil {
		t.transactions = []core.Transaction{}
	}
	err := t.saveTransactionsLocked(ctx)
	n := len(t.transactions)
	t.mu.Unlock()

	t.metrics.Mutation("replace")
	t.logger.InfoContext(ctx, "Transactions replaced", log.FieldCount, n)
	return err
}

// Settings returns a copy of the current settings.
func (t *Tracker) Settings() core.Settings {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.settings.Clone()
}

// UpdateSettings merges u into the settings and saves them.
func (t *Tracker) UpdateSettings(ctx context.Context, u core.SettingsUpdate) (core.Settings, error) {
	t.mu.Lock()
	t.settings = t.settings.Apply(u)
	s := t.settings.Clone()
	err := t.repo.SaveSettings(ctx, s)
	t.mu.Unlock()

	if err != nil {
		t.metrics.SaveFailure(storage.KeySettings)
	}
	t.metrics.Mutation("settings")
	return s, err
}

// ClearAll removes every persisted key and resets memory to a fresh install.
func (t *Tracker) ClearAll(ctx context.Context) error {
	t.mu.Lock()
	n := len(t.transactions)
	t.transactions = []core.Transaction{}
	t.settings = core.DefaultSettings()
	t.view = core.DefaultQuery()
	t.recordGaugesLocked()
	t.mu.Unlock()

	if err := t.repo.ClearAll(ctx); err != nil {
		return err
	}
	t.metrics.Mutation(log.OpClear)
	t.publish(ctx, amqp.NewBulkEvent(amqp.EventCleared, n))
	return nil
}

// saveTransactionsLocked writes the collection. The in-memory change stays
// applied when the write fails.
func (t *Tracker) saveTransactionsLocked(ctx context.Context) error {
	t.recordGaugesLocked()
	if err := t.repo.SaveTransactions(ctx, t.transactions); err != nil {
		t.metrics.SaveFailure(storage.KeyTransactions)
		return err
	}
	return nil
}

func (t *Tracker) recordGaugesLocked() {
	var (
		incomeN, expenseN int
		income, expenses  core.Money
	)
	for _, tx := range t.transactions {
		if tx.IsIncome() {
			incomeN++
			income = income.Add(tx.Amount)
		} else {
			expenseN++
			expenses = expenses.Add(tx.Amount)
		}
	}
	in, _ := income.Decimal().Float64()
	out, _ := expenses.Decimal().Float64()
	t.metrics.SetCollection(incomeN, expenseN, in, out)
}

func (t *Tracker) logMutation(ctx context.Context, op string, tx core.Transaction) {
	t.metrics.Mutation(op)
	t.audit.LogTransaction(ctx, op, tx.ID, string(tx.Type), tx.Category, tx.Amount.Cents)
}

// publish is best effort; a broker outage never fails a mutation.
func (t *Tracker) publish(ctx context.Context, ev amqp.Event) {
	if t.publisher == nil {
		return
	}
	if err := t.publisher.Publish(ctx, ev); err != nil {
		t.logger.WarnContext(ctx, "Failed to publish change event",
			"event", ev.Type,
			log.FieldError, err)
	}
}
