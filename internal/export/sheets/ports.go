package sheets

import (
	"context"

	"kakeibo/internal/core"
)

// Mirror is the outbound port for the spreadsheet copy of the ledger. Rows
// are keyed by transaction ID so replays of the same change are idempotent.
type Mirror interface {
	// Upsert writes or rewrites the row for tx.
	Upsert(ctx context.Context, tx core.Transaction, categoryName string) error

	// Remove clears the row for txID. Removing an unknown ID is a no-op.
	Remove(ctx context.Context, txID string) error
}
