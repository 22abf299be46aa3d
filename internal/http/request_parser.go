package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kakeibo/internal/core"
)

const maxBodySize = 1 << 20 // 1 MiB

// decodeBody parses a JSON request body into dst, rejecting unknown fields
// and oversized payloads.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// parseDate accepts YYYY-MM-DD.
func parseDate(s string) (core.Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return core.Date{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return core.DateOf(t), nil
}

// parseYear parses a path year segment.
func parseYear(s string) (int, error) {
	year, err := strconv.Atoi(s)
	if err != nil || year < 1900 || year > 9999 {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	return year, nil
}

// parseAmount accepts a decimal string ("12.34", comma separator allowed).
func parseAmount(s string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(strings.TrimSpace(s))
	if err != nil {
		return core.Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return core.Money{Cents: cents}, nil
}

// sanitizeInput removes control characters and trims whitespace
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// transactionRequest is the write DTO for ledger entries.
type transactionRequest struct {
	Type        string   `json:"type"`
	Date        string   `json:"date"`
	Description string   `json:"description"`
	Amount      string   `json:"amount"`
	CategoryID  string   `json:"categoryId"`
	Tags        []string `json:"tags"`
}

func (req transactionRequest) toTransaction() (core.Transaction, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		Type:        core.TransactionType(strings.ToLower(strings.TrimSpace(req.Type))),
		Date:        date,
		Description: sanitizeInput(req.Description),
		Amount:      amount,
		CategoryID:  strings.TrimSpace(req.CategoryID),
		Tags:        req.Tags,
	}, nil
}

type recurringRequest struct {
	Title      string `json:"title"`
	Amount     string `json:"amount"`
	PaymentDay int    `json:"paymentDay"`
	Month      int    `json:"month"`
	CategoryID string `json:"categoryId"`
	Type       string `json:"type"`
}

func (req recurringRequest) toRecurring() (core.RecurringPayment, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return core.RecurringPayment{}, err
	}
	return core.RecurringPayment{
		Title:      sanitizeInput(req.Title),
		Amount:     amount,
		PaymentDay: req.PaymentDay,
		Month:      req.Month,
		CategoryID: strings.TrimSpace(req.CategoryID),
		Type:       core.TransactionType(strings.ToLower(strings.TrimSpace(req.Type))),
	}, nil
}

type categoryJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type paydayJSON struct {
	Payday   int    `json:"payday"`
	Rollover string `json:"rollover"`
}

type settingsJSON struct {
	Categories          []categoryJSON `json:"categories"`
	Payday              paydayJSON     `json:"payday"`
	InitialBalanceCents int64          `json:"initialBalanceCents"`
}

func (req settingsJSON) toSettings() (core.Settings, error) {
	cats := make([]core.Category, 0, len(req.Categories))
	for _, c := range req.Categories {
		cats = append(cats, core.Category{
			ID:   strings.TrimSpace(c.ID),
			Name: sanitizeInput(c.Name),
			Kind: core.TransactionType(strings.ToLower(strings.TrimSpace(c.Kind))),
		})
	}
	rollover := core.RolloverPolicy(strings.ToLower(strings.TrimSpace(req.Payday.Rollover)))
	if req.InitialBalanceCents < 0 {
		return core.Settings{}, errors.New("negative initial balance")
	}
	return core.Settings{
		Categories:     cats,
		Payday:         core.PaydaySettings{Payday: req.Payday.Payday, Rollover: rollover},
		InitialBalance: core.Money{Cents: req.InitialBalanceCents},
	}, nil
}

func settingsToJSON(s core.Settings) settingsJSON {
	cats := make([]categoryJSON, 0, len(s.Categories))
	for _, c := range s.Categories {
		cats = append(cats, categoryJSON{ID: c.ID, Name: c.Name, Kind: string(c.Kind)})
	}
	return settingsJSON{
		Categories:          cats,
		Payday:              paydayJSON{Payday: s.Payday.Payday, Rollover: string(s.Payday.Rollover)},
		InitialBalanceCents: s.InitialBalance.Cents,
	}
}

// budgetJSON carries money as integer cents so a save and re-load round
// trips exactly.
type budgetJSON struct {
	Year                 int              `json:"year"`
	StartingBalanceCents int64            `json:"startingBalanceCents"`
	PlannedBalanceCents  [12]int64        `json:"plannedBalanceCents"`
	NormalMonthBudget    map[string]int64 `json:"normalMonthBudgetCents"`
	BonusMonthBudget     map[string]int64 `json:"bonusMonthBudgetCents"`
	MonthlyIncomeCents   int64            `json:"monthlyIncomeCents"`
	SummerBonusCents     int64            `json:"summerBonusCents"`
	WinterBonusCents     int64            `json:"winterBonusCents"`
	SummerBonusMonth     int              `json:"summerBonusMonth"`
	WinterBonusMonth     int              `json:"winterBonusMonth"`
	SummerBonusPayday    int              `json:"summerBonusPayday"`
	WinterBonusPayday    int              `json:"winterBonusPayday"`
}

func (req budgetJSON) toBudget(year int) core.AnnualBudget {
	b := core.AnnualBudget{
		Year:              year,
		StartingBalance:   core.Money{Cents: req.StartingBalanceCents},
		MonthlyIncome:     core.Money{Cents: req.MonthlyIncomeCents},
		SummerBonus:       core.Money{Cents: req.SummerBonusCents},
		WinterBonus:       core.Money{Cents: req.WinterBonusCents},
		SummerBonusMonth:  req.SummerBonusMonth,
		WinterBonusMonth:  req.WinterBonusMonth,
		SummerBonusPayday: req.SummerBonusPayday,
		WinterBonusPayday: req.WinterBonusPayday,
		NormalMonthBudget: centsToMoneyMap(req.NormalMonthBudget),
		BonusMonthBudget:  centsToMoneyMap(req.BonusMonthBudget),
	}
	for i, cents := range req.PlannedBalanceCents {
		b.PlannedBalance[i] = core.Money{Cents: cents}
	}
	return b
}

func budgetToJSON(b *core.AnnualBudget) budgetJSON {
	out := budgetJSON{
		Year:                 b.Year,
		StartingBalanceCents: b.StartingBalance.Cents,
		MonthlyIncomeCents:   b.MonthlyIncome.Cents,
		SummerBonusCents:     b.SummerBonus.Cents,
		WinterBonusCents:     b.WinterBonus.Cents,
		SummerBonusMonth:     b.SummerBonusMonth,
		WinterBonusMonth:     b.WinterBonusMonth,
		SummerBonusPayday:    b.SummerBonusPayday,
		WinterBonusPayday:    b.WinterBonusPayday,
		NormalMonthBudget:    moneyToCentsMap(b.NormalMonthBudget),
		BonusMonthBudget:     moneyToCentsMap(b.BonusMonthBudget),
	}
	for i, m := range b.PlannedBalance {
		out.PlannedBalanceCents[i] = m.Cents
	}
	return out
}

func centsToMoneyMap(in map[string]int64) map[string]core.Money {
	if in == nil {
		return nil
	}
	out := make(map[string]core.Money, len(in))
	for k, v := range in {
		out[k] = core.Money{Cents: v}
	}
	return out
}

func moneyToCentsMap(in map[string]core.Money) map[string]int64 {
	if in == nil {
		return nil
	}
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v.Cents
	}
	return out
}

type transactionJSON struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Date        string   `json:"date"`
	Description string   `json:"description"`
	Amount      string   `json:"amount"`
	AmountCents int64    `json:"amountCents"`
	CategoryID  string   `json:"categoryId"`
	Tags        []string `json:"tags,omitempty"`
}

func transactionToJSON(tx core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          tx.ID,
		Type:        string(tx.Type),
		Date:        tx.Date.String(),
		Description: tx.Description,
		Amount:      tx.Amount.String(),
		AmountCents: tx.Amount.Cents,
		CategoryID:  tx.CategoryID,
		Tags:        tx.Tags,
	}
}

type recurringJSON struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Amount          string `json:"amount"`
	AmountCents     int64  `json:"amountCents"`
	PaymentDay      int    `json:"paymentDay"`
	Month           int    `json:"month,omitempty"`
	CategoryID      string `json:"categoryId"`
	Type            string `json:"type"`
	SystemGenerated bool   `json:"systemGenerated"`
}

func recurringToJSON(rp core.RecurringPayment) recurringJSON {
	return recurringJSON{
		ID:              rp.ID,
		Title:           rp.Title,
		Amount:          rp.Amount.String(),
		AmountCents:     rp.Amount.Cents,
		PaymentDay:      rp.PaymentDay,
		Month:           rp.Month,
		CategoryID:      rp.CategoryID,
		Type:            string(rp.Type),
		SystemGenerated: rp.SystemGenerated,
	}
}

type cycleJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type expenseDetailJSON struct {
	CategoryID  string `json:"categoryId"`
	Name        string `json:"name"`
	BudgetCents int64  `json:"budgetCents"`
	ActualCents int64  `json:"actualCents"`
}

type summaryJSON struct {
	Cycle               cycleJSON           `json:"cycle"`
	Configured          bool                `json:"configured"`
	IsBonusCycle        bool                `json:"isBonusCycle"`
	PlannedIncomeCents  int64               `json:"plannedIncomeCents"`
	PlannedExpenseCents int64               `json:"plannedExpenseCents"`
	ActualIncomeCents   int64               `json:"actualIncomeCents"`
	ActualExpenseCents  int64               `json:"actualExpenseCents"`
	ExpenseDetails      []expenseDetailJSON `json:"expenseDetails"`
}

func summaryToJSON(sum core.CycleSummary) summaryJSON {
	details := make([]expenseDetailJSON, 0, len(sum.ExpenseDetails))
	for _, d := range sum.ExpenseDetails {
		details = append(details, expenseDetailJSON{
			CategoryID:  d.CategoryID,
			Name:        d.Name,
			BudgetCents: d.Budget.Cents,
			ActualCents: d.Actual.Cents,
		})
	}
	return summaryJSON{
		Cycle:               cycleJSON{Start: sum.Cycle.Start.String(), End: sum.Cycle.End.String()},
		Configured:          sum.Configured,
		IsBonusCycle:        sum.IsBonusCycle,
		PlannedIncomeCents:  sum.PlannedIncome.Cents,
		PlannedExpenseCents: sum.PlannedExpense.Cents,
		ActualIncomeCents:   sum.ActualIncome.Cents,
		ActualExpenseCents:  sum.ActualExpense.Cents,
		ExpenseDetails:      details,
	}
}

type dayBalanceJSON struct {
	Date         string `json:"date"`
	NetCents     int64  `json:"netCents"`
	BalanceCents int64  `json:"balanceCents"`
}

func dayBalancesToJSON(days []core.DayBalance) []dayBalanceJSON {
	out := make([]dayBalanceJSON, 0, len(days))
	for _, d := range days {
		out = append(out, dayBalanceJSON{
			Date:         d.Date.String(),
			NetCents:     d.Net.Cents,
			BalanceCents: d.Balance.Cents,
		})
	}
	return out
}

type monthBalanceJSON struct {
	Month        int   `json:"month"`
	PlannedCents int64 `json:"plannedCents"`
	ActualCents  int64 `json:"actualCents"`
}

func monthBalancesToJSON(months []core.MonthBalance) []monthBalanceJSON {
	out := make([]monthBalanceJSON, 0, len(months))
	for _, m := range months {
		out = append(out, monthBalanceJSON{
			Month:        m.Month,
			PlannedCents: m.Planned.Cents,
			ActualCents:  m.Actual.Cents,
		})
	}
	return out
}
