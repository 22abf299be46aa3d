package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kakeibo/internal/core"
	"kakeibo/internal/store"
)

// DuenessChecker decides when a recurring payment posts. Each entry shape
// (salary, annual bonus, plain monthly) has its own strategy.
type DuenessChecker interface {
	// PostingDate returns the date rp posts on in the month of now, or
	// false when rp does not post that month.
	PostingDate(rp core.RecurringPayment, payday core.PaydaySettings, now core.Date) (core.Date, bool)
}

// SalaryChecker posts on the cycle-adjusted payday: the configured day,
// clamped to the month and rolled off weekends.
type SalaryChecker struct{}

func (SalaryChecker) PostingDate(_ core.RecurringPayment, payday core.PaydaySettings, now core.Date) (core.Date, bool) {
	due, err := core.PaydayForMonth(now, payday)
	if err != nil {
		return core.Date{}, false
	}
	return due, true
}

// AnnualChecker posts once a year, on the entry's clamped day in its own
// month. Bonus pay dates do not roll off weekends.
type AnnualChecker struct{}

func (AnnualChecker) PostingDate(rp core.RecurringPayment, _ core.PaydaySettings, now core.Date) (core.Date, bool) {
	if rp.Month != now.Month() {
		return core.Date{}, false
	}
	return core.PaymentDateFor(now.Year(), rp.Month, rp.PaymentDay), true
}

// MonthlyChecker posts every month on the entry's clamped payment day.
type MonthlyChecker struct{}

func (MonthlyChecker) PostingDate(rp core.RecurringPayment, _ core.PaydaySettings, now core.Date) (core.Date, bool) {
	return core.PaymentDateFor(now.Year(), now.Month(), rp.PaymentDay), true
}

func checkerFor(rp core.RecurringPayment) DuenessChecker {
	switch {
	case rp.Month != 0:
		return AnnualChecker{}
	case rp.SystemGenerated:
		return SalaryChecker{}
	default:
		return MonthlyChecker{}
	}
}

// RecurringProcessor posts due recurring payments into the ledger. Posting
// markers keep it idempotent: at most one transaction per entry per month,
// however often the worker ticks.
type RecurringProcessor struct {
	store  store.Backend
	ledger *LedgerService
}

func NewRecurringProcessor(st store.Backend, ledger *LedgerService) *RecurringProcessor {
	return &RecurringProcessor{
		store:  st,
		ledger: ledger,
	}
}

// ProcessDue posts every recurring payment of userID that is due at now.
// Returns the number of transactions created.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, userID string, now time.Time) (int, error) {
	if p.store == nil || p.ledger == nil {
		return 0, errors.New("processor not properly initialized")
	}

	settings, _, err := p.store.LoadSettings(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load settings: %w", err)
	}
	if settings.Payday.Payday == 0 {
		slog.InfoContext(ctx, "No payday configured, skipping recurring run", "user", userID)
		return 0, nil
	}

	entries, err := p.store.ListRecurring(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list recurring payments: %w", err)
	}

	today := core.DateOf(now)
	slog.InfoContext(ctx, "Processing recurring payments",
		"user", userID,
		"total", len(entries),
		"processing_date", today.String())

	posted := 0
	for _, rp := range entries {
		if rp.Amount.Cents <= 0 {
			continue
		}

		due, ok := checkerFor(rp).PostingDate(rp, settings.Payday, today)
		if !ok || today.Before(due) {
			continue
		}

		last, err := p.store.LastPosted(ctx, userID, rp.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to read posting marker",
				"recurring_id", rp.ID, "error", err)
			continue
		}
		if samePostingPeriod(last, due) {
			continue
		}

		tx := core.Transaction{
			Type:        rp.Type,
			Date:        due,
			Description: rp.Title,
			Amount:      rp.Amount,
			CategoryID:  rp.CategoryID,
		}
		id, err := p.ledger.Append(ctx, userID, tx)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to post recurring payment",
				"recurring_id", rp.ID,
				"title", rp.Title,
				"error", err)
			continue
		}

		if err := p.store.MarkPosted(ctx, userID, rp.ID, due); err != nil {
			// The transaction exists; without the marker the next tick
			// would duplicate it, so surface this loudly.
			slog.ErrorContext(ctx, "Failed to mark recurring payment as posted",
				"recurring_id", rp.ID, "tx_id", id, "error", err)
			continue
		}

		posted++
		slog.InfoContext(ctx, "Posted recurring payment",
			"recurring_id", rp.ID,
			"title", rp.Title,
			"amount_cents", rp.Amount.Cents,
			"date", due.String())
	}

	slog.InfoContext(ctx, "Recurring run complete",
		"user", userID, "posted", posted, "total_checked", len(entries))
	return posted, nil
}

// samePostingPeriod reports whether last already covers due's month.
func samePostingPeriod(last, due core.Date) bool {
	if last.Time.IsZero() {
		return false
	}
	return last.Year() == due.Year() && last.Month() == due.Month()
}
