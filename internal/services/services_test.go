package services

import (
	"context"
	"testing"

	"kakeibo/internal/core"
	"kakeibo/internal/event"
	"kakeibo/internal/store/memory"
)

type capturePublisher struct {
	msgs []*event.ChangeMessage
}

func (p *capturePublisher) PublishChange(_ context.Context, m *event.ChangeMessage) error {
	p.msgs = append(p.msgs, m)
	return nil
}

func testSettings() core.Settings {
	return core.Settings{
		Categories: []core.Category{
			{ID: "salary", Name: "Salary", Kind: core.Income},
			{ID: "food", Name: "Food", Kind: core.Expense},
			{ID: "rent", Name: "Rent", Kind: core.Expense},
		},
		Payday:         core.PaydaySettings{Payday: 25, Rollover: core.RollBefore},
		InitialBalance: core.Money{Cents: 150000},
	}
}

func seedSettings(t *testing.T, st *memory.Store, userID string) core.Settings {
	t.Helper()
	settings := testSettings()
	if err := st.SaveSettings(context.Background(), userID, settings); err != nil {
		t.Fatalf("seed settings: %v", err)
	}
	return settings
}

func testBudget(year int) core.AnnualBudget {
	return core.AnnualBudget{
		Year:              year,
		StartingBalance:   core.Money{Cents: 150000},
		MonthlyIncome:     core.Money{Cents: 300000},
		SummerBonus:       core.Money{Cents: 100000},
		WinterBonus:       core.Money{Cents: 80000},
		SummerBonusMonth:  7,
		WinterBonusMonth:  12,
		SummerBonusPayday: 10,
		WinterBonusPayday: 10,
		NormalMonthBudget: map[string]core.Money{
			"food": {Cents: 50000},
			"rent": {Cents: 80000},
		},
		BonusMonthBudget: map[string]core.Money{
			"food": {Cents: 60000},
			"rent": {Cents: 80000},
		},
	}
}
