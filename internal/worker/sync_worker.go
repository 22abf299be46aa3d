// Package worker mirrors committed ledger changes into the spreadsheet copy.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kakeibo/internal/core"
	"kakeibo/internal/event"
	"kakeibo/internal/export/sheets"
	"kakeibo/internal/store"
)

// SyncWorker applies change messages to the ledger mirror. It re-reads the
// transaction from the store for every message, so replays and out-of-order
// delivery converge on the current state.
type SyncWorker struct {
	store  store.Backend
	mirror sheets.Mirror
}

func NewSyncWorker(st store.Backend, mirror sheets.Mirror) *SyncWorker {
	return &SyncWorker{
		store:  st,
		mirror: mirror,
	}
}

// HandleChange processes one change message. Budget saves carry nothing to
// mirror and are acknowledged as-is.
func (w *SyncWorker) HandleChange(ctx context.Context, msg *event.ChangeMessage) error {
	switch msg.Kind {
	case event.KindLedgerChanged:
		return w.syncTransaction(ctx, msg.UserID, msg.Ref)
	case event.KindBudgetSaved:
		slog.InfoContext(ctx, "Budget saved, nothing to mirror",
			"user", msg.UserID, "year", msg.Ref)
		return nil
	default:
		slog.WarnContext(ctx, "Unknown change kind, dropping message", "kind", msg.Kind)
		return nil
	}
}

func (w *SyncWorker) syncTransaction(ctx context.Context, userID, txID string) error {
	tx, err := w.store.GetTransaction(ctx, userID, txID)
	if errors.Is(err, store.ErrNotFound) {
		// Deleted since the message was published; clear the mirrored row.
		if err := w.mirror.Remove(ctx, txID); err != nil {
			return fmt.Errorf("remove mirrored row: %w", err)
		}
		slog.InfoContext(ctx, "Removed mirrored transaction", "tx_id", txID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}

	if err := w.mirror.Upsert(ctx, tx, w.categoryName(ctx, userID, tx.CategoryID)); err != nil {
		return fmt.Errorf("mirror transaction: %w", err)
	}

	slog.InfoContext(ctx, "Mirrored transaction",
		"tx_id", tx.ID,
		"date", tx.Date.String(),
		"amount_cents", tx.Amount.Cents)
	return nil
}

// categoryName resolves the display name, falling back to the raw ID when
// the registry no longer knows the category.
func (w *SyncWorker) categoryName(ctx context.Context, userID, categoryID string) string {
	settings, _, err := w.store.LoadSettings(ctx, userID)
	if err != nil {
		slog.WarnContext(ctx, "Failed to load settings for category name",
			"user", userID, "error", err)
		return categoryID
	}
	if cat, ok := core.CategoryByID(settings.Categories, categoryID); ok {
		return cat.Name
	}
	return categoryID
}
