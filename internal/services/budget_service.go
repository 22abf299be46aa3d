package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"kakeibo/internal/core"
	"kakeibo/internal/event"
	"kakeibo/internal/store"
)

// BudgetService owns the per-user settings document, the annual budgets and
// the recurring payment registry, and answers the derived cycle and calendar
// queries on top of them.
type BudgetService struct {
	store    store.Backend
	events   ChangePublisher
	defaults core.PaydaySettings
}

func NewBudgetService(st store.Backend, events ChangePublisher, defaults core.PaydaySettings) *BudgetService {
	return &BudgetService{
		store:    st,
		events:   events,
		defaults: defaults,
	}
}

// Settings returns the user's settings, falling back to the configured
// payday defaults when no document has been saved yet.
func (s *BudgetService) Settings(ctx context.Context, userID string) (core.Settings, error) {
	settings, found, err := s.store.LoadSettings(ctx, userID)
	if err != nil {
		return core.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	if !found {
		return core.Settings{Payday: s.defaults}, nil
	}
	if settings.Payday.Payday == 0 {
		settings.Payday = s.defaults
	}
	return settings, nil
}

// SaveSettings validates and persists the settings document. Last write wins
// on concurrent saves.
func (s *BudgetService) SaveSettings(ctx context.Context, userID string, settings core.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := s.store.SaveSettings(ctx, userID, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// BudgetForYear returns the annual budget, or nil when none is saved.
func (s *BudgetService) BudgetForYear(ctx context.Context, userID string, year int) (*core.AnnualBudget, error) {
	return s.store.BudgetForYear(ctx, userID, year)
}

// SaveBudget validates and persists an annual budget, then regenerates the
// system recurring entries derived from it: at most one salary entry and at
// most one entry per bonus season, each only when its amount is positive.
// User-authored entries are untouched. A bonus pay day left at zero is
// filled from the payday settings before the budget is stored, so every
// configured season carries a concrete day at rest.
func (s *BudgetService) SaveBudget(ctx context.Context, userID string, b core.AnnualBudget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	settings, err := s.Settings(ctx, userID)
	if err != nil {
		return err
	}
	if b.SummerBonusMonth >= 1 && b.SummerBonusPayday == 0 {
		b.SummerBonusPayday = settings.Payday.Payday
	}
	if b.WinterBonusMonth >= 1 && b.WinterBonusPayday == 0 {
		b.WinterBonusPayday = settings.Payday.Payday
	}
	if err := s.store.SaveBudget(ctx, userID, b); err != nil {
		return fmt.Errorf("save budget: %w", err)
	}

	entries := systemRecurring(b, settings.Payday, settings.Categories)
	if err := s.store.ReplaceSystemRecurring(ctx, userID, entries); err != nil {
		return fmt.Errorf("regenerate system recurring: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishChange(ctx, event.NewBudgetSaved(userID, b.Year)); err != nil {
			slog.ErrorContext(ctx, "Failed to publish budget change",
				"user", userID, "year", b.Year, "error", err)
		}
	}
	return nil
}

// SummaryFor returns the cycle summary for the payday cycle containing ref.
func (s *BudgetService) SummaryFor(ctx context.Context, userID string, ref core.Date) (core.CycleSummary, error) {
	settings, err := s.Settings(ctx, userID)
	if err != nil {
		return core.CycleSummary{}, err
	}
	cycle, err := core.CycleFor(ref, settings.Payday)
	if err != nil {
		return core.CycleSummary{}, err
	}
	budget, err := s.store.BudgetForYear(ctx, userID, cycle.Start.Year())
	if err != nil {
		return core.CycleSummary{}, fmt.Errorf("load budget: %w", err)
	}
	txs, err := s.store.TransactionsInRange(ctx, userID, cycle.Start, cycle.End, store.Ascending)
	if err != nil {
		return core.CycleSummary{}, fmt.Errorf("load transactions: %w", err)
	}
	return core.SummarizeCycle(cycle, budget, settings.Categories, txs), nil
}

// SummariesForYear returns one summary per payday cycle starting in year.
func (s *BudgetService) SummariesForYear(ctx context.Context, userID string, year int) ([]core.CycleSummary, error) {
	settings, err := s.Settings(ctx, userID)
	if err != nil {
		return nil, err
	}
	cycles, err := core.CyclesForYear(year, settings.Payday)
	if err != nil {
		return nil, err
	}
	if len(cycles) == 0 {
		return nil, nil
	}

	budget, err := s.store.BudgetForYear(ctx, userID, year)
	if err != nil {
		return nil, fmt.Errorf("load budget: %w", err)
	}
	from := cycles[0].Start
	to := cycles[len(cycles)-1].End
	txs, err := s.store.TransactionsInRange(ctx, userID, from, to, store.Ascending)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	out := make([]core.CycleSummary, 0, len(cycles))
	for _, cycle := range cycles {
		out = append(out, core.SummarizeCycle(cycle, budget, settings.Categories, txs))
	}
	return out, nil
}

// Calendar returns the running daily balances for the cycle containing ref.
func (s *BudgetService) Calendar(ctx context.Context, userID string, ref core.Date) ([]core.DayBalance, error) {
	settings, err := s.Settings(ctx, userID)
	if err != nil {
		return nil, err
	}
	cycle, err := core.CycleFor(ref, settings.Payday)
	if err != nil {
		return nil, err
	}
	budget, err := s.store.BudgetForYear(ctx, userID, cycle.Start.Year())
	if err != nil {
		return nil, fmt.Errorf("load budget: %w", err)
	}
	txs, err := s.store.TransactionsInRange(ctx, userID, cycle.Start, cycle.End, store.Ascending)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	opening := core.OpeningBalanceFor(cycle, budget)
	if opening.Cents == 0 {
		opening = settings.InitialBalance
	}
	return core.DailyBalances(cycle, opening, txs), nil
}

// AnnualTrend returns planned versus actual month-end balances for year, or
// nil when no budget is saved.
func (s *BudgetService) AnnualTrend(ctx context.Context, userID string, year int) ([]core.MonthBalance, error) {
	budget, err := s.store.BudgetForYear(ctx, userID, year)
	if err != nil {
		return nil, fmt.Errorf("load budget: %w", err)
	}
	if budget == nil {
		return nil, nil
	}
	from := core.NewDate(year, 1, 1)
	to := core.NewDate(year, 12, 31)
	txs, err := s.store.TransactionsInRange(ctx, userID, from, to, store.Ascending)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return core.AnnualTrend(budget, txs), nil
}

// ListRecurring returns all recurring payments, system and user entries alike.
func (s *BudgetService) ListRecurring(ctx context.Context, userID string) ([]core.RecurringPayment, error) {
	return s.store.ListRecurring(ctx, userID)
}

// PutRecurring validates and stores a user-authored recurring payment.
func (s *BudgetService) PutRecurring(ctx context.Context, userID string, rp core.RecurringPayment) (string, error) {
	settings, err := s.Settings(ctx, userID)
	if err != nil {
		return "", err
	}
	if err := rp.Validate(settings.Categories); err != nil {
		return "", err
	}
	rp.SystemGenerated = false
	return s.store.PutRecurring(ctx, userID, rp)
}

// DeleteRecurring removes a recurring payment and its posting marker.
func (s *BudgetService) DeleteRecurring(ctx context.Context, userID, id string) error {
	return s.store.DeleteRecurring(ctx, userID, id)
}

// systemRecurring derives the system entries from an annual budget. Salary
// lands on the configured payday; each bonus season contributes one entry in
// its own month. Zero-amount figures produce no entry: the ledger only takes
// positive amounts, so a budget without income yields nothing to post.
func systemRecurring(b core.AnnualBudget, payday core.PaydaySettings, cats []core.Category) []core.RecurringPayment {
	catID := incomeCategoryID(cats)

	var entries []core.RecurringPayment
	if b.MonthlyIncome.Cents > 0 {
		entries = append(entries, core.RecurringPayment{
			Title:           "Salary",
			Amount:          b.MonthlyIncome,
			PaymentDay:      payday.Payday,
			CategoryID:      catID,
			Type:            core.Income,
			SystemGenerated: true,
		})
	}

	if b.SummerBonus.Cents > 0 && b.SummerBonusMonth >= 1 {
		entries = append(entries, core.RecurringPayment{
			Title:           "Summer bonus",
			Amount:          b.SummerBonus,
			PaymentDay:      orDefault(b.SummerBonusPayday, payday.Payday),
			Month:           b.SummerBonusMonth,
			CategoryID:      catID,
			Type:            core.Income,
			SystemGenerated: true,
		})
	}
	if b.WinterBonus.Cents > 0 && b.WinterBonusMonth >= 1 {
		entries = append(entries, core.RecurringPayment{
			Title:           "Winter bonus",
			Amount:          b.WinterBonus,
			PaymentDay:      orDefault(b.WinterBonusPayday, payday.Payday),
			Month:           b.WinterBonusMonth,
			CategoryID:      catID,
			Type:            core.Income,
			SystemGenerated: true,
		})
	}
	return entries
}

func orDefault(day, fallback int) int {
	if day >= 1 {
		return day
	}
	return fallback
}

// incomeCategoryID prefers a category literally named for salary, then falls
// back to the first income category in the registry.
func incomeCategoryID(cats []core.Category) string {
	for _, c := range cats {
		name := strings.ToLower(c.Name)
		if c.Kind == core.Income && (name == "salary" || name == "income") {
			return c.ID
		}
	}
	for _, c := range cats {
		if c.Kind == core.Income {
			return c.ID
		}
	}
	return ""
}
