package services

import (
	"context"
	"fmt"
	"log/slog"

	"kakeibo/internal/core"
	"kakeibo/internal/event"
	"kakeibo/internal/store"
)

// ChangePublisher fans change notifications out to the export worker.
// A nil publisher disables fan-out; local writes still succeed.
type ChangePublisher interface {
	PublishChange(ctx context.Context, msg *event.ChangeMessage) error
}

// LedgerService is the write chokepoint for the transaction ledger. Every
// mutation is validated against the user's category registry before it is
// persisted, and a change message is published after the local write commits.
type LedgerService struct {
	store  store.Backend
	events ChangePublisher
}

func NewLedgerService(st store.Backend, events ChangePublisher) *LedgerService {
	return &LedgerService{
		store:  st,
		events: events,
	}
}

// Append validates and persists a new transaction, returning its assigned ID.
func (s *LedgerService) Append(ctx context.Context, userID string, tx core.Transaction) (string, error) {
	cats, err := s.categories(ctx, userID)
	if err != nil {
		return "", err
	}
	if err := tx.Validate(cats); err != nil {
		return "", err
	}

	id, err := s.store.AppendTransaction(ctx, userID, tx)
	if err != nil {
		return "", fmt.Errorf("append transaction: %w", err)
	}

	s.publishLedgerChange(ctx, userID, id)
	return id, nil
}

// Update validates and replaces an existing transaction.
func (s *LedgerService) Update(ctx context.Context, userID string, tx core.Transaction) error {
	cats, err := s.categories(ctx, userID)
	if err != nil {
		return err
	}
	if err := tx.Validate(cats); err != nil {
		return err
	}

	if err := s.store.UpdateTransaction(ctx, userID, tx); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	s.publishLedgerChange(ctx, userID, tx.ID)
	return nil
}

// Delete removes a transaction from the ledger.
func (s *LedgerService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.publishLedgerChange(ctx, userID, id)
	return nil
}

// Get returns a single transaction by ID.
func (s *LedgerService) Get(ctx context.Context, userID, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, userID, id)
}

// InRange returns the transactions dated within [from, to], both inclusive.
func (s *LedgerService) InRange(ctx context.Context, userID string, from, to core.Date, order store.SortOrder) ([]core.Transaction, error) {
	return s.store.TransactionsInRange(ctx, userID, from, to, order)
}

// Watch streams full ledger snapshots for userID whenever the ledger
// changes, on backends that support change notification. Returns
// store.ErrWatchUnsupported otherwise; callers then stay with request-time
// reads.
func (s *LedgerService) Watch(ctx context.Context, userID string) (<-chan []core.Transaction, func(), error) {
	w, ok := s.store.(store.LedgerWatcher)
	if !ok {
		return nil, nil, store.ErrWatchUnsupported
	}
	return w.WatchLedger(ctx, userID)
}

func (s *LedgerService) categories(ctx context.Context, userID string) ([]core.Category, error) {
	settings, _, err := s.store.LoadSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return settings.Categories, nil
}

func (s *LedgerService) publishLedgerChange(ctx context.Context, userID, txID string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishChange(ctx, event.NewLedgerChanged(userID, txID)); err != nil {
		// The local write already committed; the mirror catches up on the
		// next change for this user.
		slog.ErrorContext(ctx, "Failed to publish ledger change",
			"user", userID, "tx_id", txID, "error", err)
	}
}
