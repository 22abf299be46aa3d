// Package memory is the in-process store backend. It keeps every document
// in mutex-guarded maps and hands out copies, so readers always see an
// immutable snapshot. Used for tests and broker-less local runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"kakeibo/internal/core"
	"kakeibo/internal/store"
)

type userDoc struct {
	settings    *core.Settings
	budgets     map[int]core.AnnualBudget
	ledger      map[string]core.Transaction
	recurring   map[string]core.RecurringPayment
	lastPosted  map[string]core.Date
	subscribers map[int]chan []core.Transaction
	nextSubID   int
}

type Store struct {
	mu    sync.Mutex
	users map[string]*userDoc
}

var _ store.Backend = (*Store)(nil)
var _ store.LedgerWatcher = (*Store)(nil)

func New() *Store {
	return &Store{users: make(map[string]*userDoc)}
}

func (s *Store) user(userID string) *userDoc {
	doc, ok := s.users[userID]
	if !ok {
		doc = &userDoc{
			budgets:     make(map[int]core.AnnualBudget),
			ledger:      make(map[string]core.Transaction),
			recurring:   make(map[string]core.RecurringPayment),
			lastPosted:  make(map[string]core.Date),
			subscribers: make(map[int]chan []core.Transaction),
		}
		s.users[userID] = doc
	}
	return doc
}

// LoadSettings implements store.SettingsStore.
func (s *Store) LoadSettings(_ context.Context, userID string) (core.Settings, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.user(userID)
	if doc.settings == nil {
		return core.Settings{}, false, nil
	}
	return copySettings(*doc.settings), true, nil
}

// SaveSettings implements store.SettingsStore. Last write wins.
func (s *Store) SaveSettings(_ context.Context, userID string, settings core.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := copySettings(settings)
	s.user(userID).settings = &cp
	return nil
}

// BudgetForYear implements store.BudgetStore. Missing years are (nil, nil).
func (s *Store) BudgetForYear(_ context.Context, userID string, year int) (*core.AnnualBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.user(userID).budgets[year]
	if !ok {
		return nil, nil
	}
	cp := copyBudget(b)
	return &cp, nil
}

// SaveBudget implements store.BudgetStore.
func (s *Store) SaveBudget(_ context.Context, userID string, b core.AnnualBudget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(userID).budgets[b.Year] = copyBudget(b)
	return nil
}

// AppendTransaction implements store.LedgerStore.
func (s *Store) AppendTransaction(_ context.Context, userID string, tx core.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.user(userID)
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	doc.ledger[tx.ID] = copyTransaction(tx)
	s.notifyLocked(doc)
	return tx.ID, nil
}

// UpdateTransaction implements store.LedgerStore.
func (s *Store) UpdateTransaction(_ context.Context, userID string, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.user(userID)
	if _, ok := doc.ledger[tx.ID]; !ok {
		return store.ErrNotFound
	}
	doc.ledger[tx.ID] = copyTransaction(tx)
	s.notifyLocked(doc)
	return nil
}

// DeleteTransaction implements store.LedgerStore.
func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.user(userID)
	if _, ok := doc.ledger[id]; !ok {
		return store.ErrNotFound
	}
	delete(doc.ledger, id)
	s.notifyLocked(doc)
	return nil
}

// GetTransaction implements store.LedgerStore.
func (s *Store) GetTransaction(_ context.Context, userID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.user(userID).ledger[id]
	if !ok {
		return core.Transaction{}, store.ErrNotFound
	}
	return copyTransaction(tx), nil
}

// TransactionsInRange implements store.LedgerStore. Boundaries inclusive.
func (s *Store) TransactionsInRange(_ context.Context, userID string, from, to core.Date, order store.SortOrder) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Transaction
	for _, tx := range s.user(userID).ledger {
		if tx.Date.Before(from) || tx.Date.After(to) {
			continue
		}
		out = append(out, copyTransaction(tx))
	}
	sortTransactions(out, order)
	return out, nil
}

// ListRecurring implements store.RecurringStore.
func (s *Store) ListRecurring(_ context.Context, userID string) ([]core.RecurringPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.user(userID)
	out := make([]core.RecurringPayment, 0, len(doc.recurring))
	for _, rp := range doc.recurring {
		out = append(out, rp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PaymentDay != out[j].PaymentDay {
			return out[i].PaymentDay < out[j].PaymentDay
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// PutRecurring implements store.RecurringStore.
func (s *Store) PutRecurring(_ context.Context, userID string, rp core.RecurringPayment) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rp.ID == "" {
		rp.ID = uuid.NewString()
	}
	s.user(userID).recurring[rp.ID] = rp
	return rp.ID, nil
}

// DeleteRecurring implements store.RecurringStore.
func (s *Store) DeleteRecurring(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.user(userID)
	if _, ok := doc.recurring[id]; !ok {
		return store.ErrNotFound
	}
	delete(doc.recurring, id)
	delete(doc.lastPosted, id)
	return nil
}

// ReplaceSystemRecurring implements store.RecurringStore.
func (s *Store) ReplaceSystemRecurring(_ context.Context, userID string, entries []core.RecurringPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.user(userID)
	for id, rp := range doc.recurring {
		if rp.SystemGenerated {
			delete(doc.recurring, id)
			delete(doc.lastPosted, id)
		}
	}
	for _, rp := range entries {
		rp.SystemGenerated = true
		if rp.ID == "" {
			rp.ID = uuid.NewString()
		}
		doc.recurring[rp.ID] = rp
	}
	return nil
}

// LastPosted implements store.RecurringStore. Unposted entries return the
// zero date.
func (s *Store) LastPosted(_ context.Context, userID, recurringID string) (core.Date, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user(userID).lastPosted[recurringID], nil
}

// MarkPosted implements store.RecurringStore.
func (s *Store) MarkPosted(_ context.Context, userID, recurringID string, d core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(userID).lastPosted[recurringID] = d
	return nil
}

// WatchLedger implements store.LedgerWatcher. Each change delivers a full
// snapshot of the user's ledger; slow subscribers drop intermediate
// snapshots rather than block writers.
func (s *Store) WatchLedger(ctx context.Context, userID string) (<-chan []core.Transaction, func(), error) {
	s.mu.Lock()
	doc := s.user(userID)
	id := doc.nextSubID
	doc.nextSubID++
	ch := make(chan []core.Transaction, 1)
	doc.subscribers[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if sub, ok := doc.subscribers[id]; ok {
			delete(doc.subscribers, id)
			close(sub)
		}
		s.mu.Unlock()
	}

	go func() {
		<-ctx.Done()
		cancel()
	}()

	return ch, cancel, nil
}

func (s *Store) notifyLocked(doc *userDoc) {
	if len(doc.subscribers) == 0 {
		return
	}
	snapshot := make([]core.Transaction, 0, len(doc.ledger))
	for _, tx := range doc.ledger {
		snapshot = append(snapshot, copyTransaction(tx))
	}
	sortTransactions(snapshot, store.Ascending)
	for _, ch := range doc.subscribers {
		select {
		case ch <- snapshot:
		default:
			// Replace the stale pending snapshot with the newest one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

func sortTransactions(txs []core.Transaction, order store.SortOrder) {
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			if order == store.Descending {
				return txs[i].Date.After(txs[j].Date)
			}
			return txs[i].Date.Before(txs[j].Date)
		}
		return txs[i].ID < txs[j].ID
	})
}

func copySettings(s core.Settings) core.Settings {
	cp := s
	cp.Categories = append([]core.Category(nil), s.Categories...)
	return cp
}

func copyBudget(b core.AnnualBudget) core.AnnualBudget {
	cp := b
	cp.NormalMonthBudget = copyMoneyMap(b.NormalMonthBudget)
	cp.BonusMonthBudget = copyMoneyMap(b.BonusMonthBudget)
	return cp
}

func copyMoneyMap(m map[string]core.Money) map[string]core.Money {
	if m == nil {
		return nil
	}
	cp := make(map[string]core.Money, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

func copyTransaction(tx core.Transaction) core.Transaction {
	cp := tx
	cp.Tags = append([]string(nil), tx.Tags...)
	return cp
}
