package core

// ExpenseDetail pairs a category's budgeted and actual spend for one cycle.
type ExpenseDetail struct {
	CategoryID string
	Name       string
	Budget     Money
	Actual     Money
}

// CycleSummary is the planned-versus-actual view of a single budget cycle.
// Configured is false when no annual budget exists for the cycle's year;
// the caller renders a setup prompt instead of figures.
type CycleSummary struct {
	Cycle          Cycle
	Configured     bool
	IsBonusCycle   bool
	PlannedIncome  Money
	PlannedExpense Money
	ActualIncome   Money
	ActualExpense  Money
	ExpenseDetails []ExpenseDetail
}

// DayBalance is one point of a running-balance time series.
type DayBalance struct {
	Date    Date
	Net     Money // income minus expense on this day
	Balance Money // cumulative balance through this day
}

// MonthBalance pairs the planned end-of-month balance with the actual
// accumulated balance for one calendar month.
type MonthBalance struct {
	Month   int // 1..12
	Planned Money
	Actual  Money
}

// SummarizeCycle aggregates a cycle's budget and transactions into a
// planned-versus-actual summary. The transaction slice is expected to be a
// consistent snapshot restricted to [cycle.Start, cycle.End]; the function
// filters out-of-range rows itself, so re-invocation on fresh snapshots is safe.
// A nil budget is an expected condition, not an error: the actual sums from
// the ledger are still computed, only the planned figures are absent.
func SummarizeCycle(cycle Cycle, budget *AnnualBudget, cats []Category, txs []Transaction) CycleSummary {
	summary := CycleSummary{Cycle: cycle}

	var budgetByCategory map[string]Money
	if budget != nil {
		summary.Configured = true

		summary.IsBonusCycle = bonusInCycle(cycle, budget.SummerBonusMonth, budget.SummerBonusPayday) ||
			bonusInCycle(cycle, budget.WinterBonusMonth, budget.WinterBonusPayday)

		summary.PlannedIncome = budget.MonthlyIncome
		if bonusInCycle(cycle, budget.SummerBonusMonth, budget.SummerBonusPayday) {
			summary.PlannedIncome = summary.PlannedIncome.Add(budget.SummerBonus)
		}
		if bonusInCycle(cycle, budget.WinterBonusMonth, budget.WinterBonusPayday) {
			summary.PlannedIncome = summary.PlannedIncome.Add(budget.WinterBonus)
		}

		budgetByCategory = budget.NormalMonthBudget
		if summary.IsBonusCycle {
			budgetByCategory = budget.BonusMonthBudget
		}
		for _, m := range budgetByCategory {
			summary.PlannedExpense = summary.PlannedExpense.Add(m)
		}
	}

	actualByCategory := make(map[string]Money)
	for _, tx := range txs {
		if !cycle.Contains(tx.Date) {
			continue
		}
		switch tx.Type {
		case Income:
			summary.ActualIncome = summary.ActualIncome.Add(tx.Amount)
		case Expense:
			summary.ActualExpense = summary.ActualExpense.Add(tx.Amount)
			actualByCategory[tx.CategoryID] = actualByCategory[tx.CategoryID].Add(tx.Amount)
		}
	}

	// One row per expense category with a nonzero budget or nonzero spend,
	// in registry order. Zero-budget zero-spend categories are omitted.
	for _, cat := range cats {
		if cat.Kind != Expense {
			continue
		}
		b := budgetByCategory[cat.ID]
		a := actualByCategory[cat.ID]
		if b.Cents == 0 && a.Cents == 0 {
			continue
		}
		summary.ExpenseDetails = append(summary.ExpenseDetails, ExpenseDetail{
			CategoryID: cat.ID,
			Name:       cat.Name,
			Budget:     b,
			Actual:     a,
		})
	}
	return summary
}

func bonusInCycle(cycle Cycle, month, payday int) bool {
	if month == 0 || payday == 0 {
		return false
	}
	// The bonus is configured for a month of the cycle's calendar year;
	// a December-to-January cycle needs both years checked.
	for _, year := range []int{cycle.Start.Year(), cycle.End.Year()} {
		if cycle.Contains(PaymentDateFor(year, month, payday)) {
			return true
		}
	}
	return false
}

// DailyBalances walks every day of the cycle in order, adding each day's
// net transaction sum to the opening balance. Strictly left to right; a
// day's balance depends only on earlier days of the same walk.
func DailyBalances(cycle Cycle, opening Money, txs []Transaction) []DayBalance {
	netByDay := make(map[string]Money)
	for _, tx := range txs {
		if !cycle.Contains(tx.Date) {
			continue
		}
		switch tx.Type {
		case Income:
			netByDay[tx.Date.String()] = netByDay[tx.Date.String()].Add(tx.Amount)
		case Expense:
			netByDay[tx.Date.String()] = netByDay[tx.Date.String()].Sub(tx.Amount)
		}
	}

	var series []DayBalance
	balance := opening
	for d := cycle.Start; !d.After(cycle.End); d = d.AddDays(1) {
		net := netByDay[d.String()]
		balance = balance.Add(net)
		series = append(series, DayBalance{Date: d, Net: net, Balance: balance})
	}
	return series
}

// OpeningBalanceFor picks the running-balance starting point for a cycle:
// the planned balance of the month before the cycle starts when the budget
// defines one, else the budget's starting balance.
func OpeningBalanceFor(cycle Cycle, budget *AnnualBudget) Money {
	if budget == nil {
		return Money{}
	}
	prevMonth := cycle.Start.Month() - 1
	if prevMonth >= 1 && cycle.Start.Year() == budget.Year {
		if planned := budget.PlannedBalance[prevMonth-1]; planned.Cents != 0 {
			return planned
		}
	}
	return budget.StartingBalance
}

// AnnualTrend accumulates each calendar month's net transaction sum from
// the budget's starting balance, January through December in order, pairing
// the result with the planned end-of-month balance. Returns nil when no
// budget is configured for the year.
func AnnualTrend(budget *AnnualBudget, txs []Transaction) []MonthBalance {
	if budget == nil {
		return nil
	}
	netByMonth := make(map[int]Money)
	for _, tx := range txs {
		if tx.Date.Year() != budget.Year {
			continue
		}
		switch tx.Type {
		case Income:
			netByMonth[tx.Date.Month()] = netByMonth[tx.Date.Month()].Add(tx.Amount)
		case Expense:
			netByMonth[tx.Date.Month()] = netByMonth[tx.Date.Month()].Sub(tx.Amount)
		}
	}

	trend := make([]MonthBalance, 0, 12)
	balance := budget.StartingBalance
	for month := 1; month <= 12; month++ {
		balance = balance.Add(netByMonth[month])
		trend = append(trend, MonthBalance{
			Month:   month,
			Planned: budget.PlannedBalance[month-1],
			Actual:  balance,
		})
	}
	return trend
}
