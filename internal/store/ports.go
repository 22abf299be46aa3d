// Package store defines the narrow persistence ports the services depend
// on. Implementations live in the memory and sqlite subpackages; callers
// never assume read-after-write consistency across two separate queries.
package store

import (
	"context"
	"errors"

	"kakeibo/internal/core"
)

// Sort order for range queries. List views read descending, aggregation
// and time-series walks read ascending; callers must pick one explicitly.
const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

type SortOrder string

var (
	ErrNotFound = errors.New("not found")

	// ErrWatchUnsupported is returned when a backend has no change
	// notification; callers fall back to request-time reads.
	ErrWatchUnsupported = errors.New("ledger watch not supported")
)

type (
	// SettingsStore persists the per-user settings document. Save is a
	// merge-style whole-document write; concurrent edits are last-write-wins
	// at field level.
	SettingsStore interface {
		LoadSettings(ctx context.Context, userID string) (core.Settings, bool, error)
		SaveSettings(ctx context.Context, userID string, s core.Settings) error
	}

	// BudgetStore persists one AnnualBudget document per year. A missing
	// year returns (nil, nil): an expected condition, not an error.
	BudgetStore interface {
		BudgetForYear(ctx context.Context, userID string, year int) (*core.AnnualBudget, error)
		SaveBudget(ctx context.Context, userID string, b core.AnnualBudget) error
	}

	// LedgerStore is the transaction collection. Writes are atomic per
	// document; validation happens in the service layer before any call here.
	LedgerStore interface {
		AppendTransaction(ctx context.Context, userID string, tx core.Transaction) (string, error)
		UpdateTransaction(ctx context.Context, userID string, tx core.Transaction) error
		DeleteTransaction(ctx context.Context, userID, id string) error
		GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
		TransactionsInRange(ctx context.Context, userID string, from, to core.Date, order SortOrder) ([]core.Transaction, error)
	}

	// RecurringStore persists recurring payment entries plus the
	// last-posted marker that keeps the processor idempotent per month.
	RecurringStore interface {
		ListRecurring(ctx context.Context, userID string) ([]core.RecurringPayment, error)
		PutRecurring(ctx context.Context, userID string, rp core.RecurringPayment) (string, error)
		DeleteRecurring(ctx context.Context, userID, id string) error
		// ReplaceSystemRecurring swaps out every system-generated entry in
		// one call, leaving user-authored entries untouched.
		ReplaceSystemRecurring(ctx context.Context, userID string, entries []core.RecurringPayment) error
		LastPosted(ctx context.Context, userID, recurringID string) (core.Date, error)
		MarkPosted(ctx context.Context, userID, recurringID string, d core.Date) error
	}

	// LedgerWatcher delivers immutable ledger snapshots on change. The
	// stream carries whole snapshots, never partial patches; delivery order
	// relative to local writes is not guaranteed strictly monotonic.
	LedgerWatcher interface {
		WatchLedger(ctx context.Context, userID string) (<-chan []core.Transaction, func(), error)
	}
)

// Backend is the unified store surface a running service binds to.
type Backend interface {
	SettingsStore
	BudgetStore
	LedgerStore
	RecurringStore
}

// CleanupFunc releases backend resources on shutdown.
type CleanupFunc func() error
