package core

import (
	"errors"
	"testing"
)

func TestTransaction_Validate(t *testing.T) {
	cats := testCategories()
	valid := Transaction{
		ID:          "t1",
		Type:        Expense,
		Date:        NewDate(2024, 3, 1),
		Description: "groceries",
		Amount:      Money{Cents: 1200},
		CategoryID:  "food",
	}

	tests := []struct {
		name    string
		mutate  func(tx *Transaction)
		wantErr error
	}{
		{
			name:   "valid expense",
			mutate: func(*Transaction) {},
		},
		{
			name: "valid income",
			mutate: func(tx *Transaction) {
				tx.Type = Income
				tx.CategoryID = "salary"
			},
		},
		{
			name:    "zero amount",
			mutate:  func(tx *Transaction) { tx.Amount = Money{} },
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			mutate:  func(tx *Transaction) { tx.Amount = Money{Cents: -500} },
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "zero date",
			mutate:  func(tx *Transaction) { tx.Date = Date{} },
			wantErr: ErrInvalidDate,
		},
		{
			name:    "empty description",
			mutate:  func(tx *Transaction) { tx.Description = "   " },
			wantErr: ErrEmptyDescription,
		},
		{
			name:    "unknown category",
			mutate:  func(tx *Transaction) { tx.CategoryID = "nope" },
			wantErr: ErrUnknownCategory,
		},
		{
			name: "expense referencing income category",
			mutate: func(tx *Transaction) {
				tx.CategoryID = "salary"
			},
			wantErr: ErrCategoryKindMismatch,
		},
		{
			name: "income referencing expense category",
			mutate: func(tx *Transaction) {
				tx.Type = Income
				tx.CategoryID = "food"
			},
			wantErr: ErrCategoryKindMismatch,
		},
		{
			name:    "bad type",
			mutate:  func(tx *Transaction) { tx.Type = "transfer" },
			wantErr: ErrInvalidType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid
			tt.mutate(&tx)
			err := tx.Validate(cats)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPaydaySettings_Validate(t *testing.T) {
	tests := []struct {
		name     string
		settings PaydaySettings
		wantErr  bool
	}{
		{"valid before", PaydaySettings{Payday: 25, Rollover: RollBefore}, false},
		{"valid after", PaydaySettings{Payday: 1, Rollover: RollAfter}, false},
		{"day 31 allowed", PaydaySettings{Payday: 31, Rollover: RollBefore}, false},
		{"day zero", PaydaySettings{Payday: 0, Rollover: RollBefore}, true},
		{"day 32", PaydaySettings{Payday: 32, Rollover: RollAfter}, true},
		{"empty rollover", PaydaySettings{Payday: 25}, true},
		{"bogus rollover", PaydaySettings{Payday: 25, Rollover: "nearest"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.settings.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAnnualBudget_Validate(t *testing.T) {
	valid := AnnualBudget{
		Year:              2024,
		StartingBalance:   Money{Cents: 100000},
		MonthlyIncome:     Money{Cents: 300000},
		SummerBonus:       Money{Cents: 100000},
		SummerBonusMonth:  7,
		SummerBonusPayday: 10,
		NormalMonthBudget: map[string]Money{"food": {Cents: 50000}},
		BonusMonthBudget:  map[string]Money{"food": {Cents: 80000}},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v for valid budget", err)
	}

	negIncome := valid
	negIncome.MonthlyIncome = Money{Cents: -1}
	if !errors.Is(negIncome.Validate(), ErrNegativeMoney) {
		t.Errorf("negative income accepted")
	}

	negCategory := valid
	negCategory.NormalMonthBudget = map[string]Money{"food": {Cents: -100}}
	if !errors.Is(negCategory.Validate(), ErrNegativeMoney) {
		t.Errorf("negative category budget accepted")
	}

	badMonth := valid
	badMonth.WinterBonusMonth = 13
	if !errors.Is(badMonth.Validate(), ErrInvalidBonusMonth) {
		t.Errorf("bonus month 13 accepted")
	}

	badPayday := valid
	badPayday.SummerBonusPayday = 40
	if !errors.Is(badPayday.Validate(), ErrInvalidPayday) {
		t.Errorf("bonus payday 40 accepted")
	}

	unsetBonus := valid
	unsetBonus.SummerBonusMonth = 0
	unsetBonus.SummerBonusPayday = 0
	if err := unsetBonus.Validate(); err != nil {
		t.Errorf("unset bonus season rejected: %v", err)
	}
}

func TestSettings_Validate(t *testing.T) {
	valid := Settings{
		Categories:     testCategories(),
		Payday:         PaydaySettings{Payday: 25, Rollover: RollBefore},
		InitialBalance: Money{Cents: 500000},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v for valid settings", err)
	}

	dup := valid
	dup.Categories = append([]Category{}, valid.Categories...)
	dup.Categories = append(dup.Categories, Category{ID: "food", Name: "again", Kind: Expense})
	if dup.Validate() == nil {
		t.Errorf("duplicate category id accepted")
	}

	badPayday := valid
	badPayday.Payday.Payday = 0
	if badPayday.Validate() == nil {
		t.Errorf("invalid payday accepted")
	}
}

func TestRecurringPayment_Validate(t *testing.T) {
	cats := testCategories()
	valid := RecurringPayment{
		ID:         "r1",
		Title:      "rent",
		Amount:     Money{Cents: 90000},
		PaymentDay: 27,
		CategoryID: "rent",
		Type:       Expense,
	}
	if err := valid.Validate(cats); err != nil {
		t.Fatalf("Validate() error = %v for valid payment", err)
	}

	mismatch := valid
	mismatch.CategoryID = "salary"
	if !errors.Is(mismatch.Validate(cats), ErrCategoryKindMismatch) {
		t.Errorf("kind mismatch accepted")
	}

	badDay := valid
	badDay.PaymentDay = 0
	if !errors.Is(badDay.Validate(cats), ErrInvalidPayday) {
		t.Errorf("payment day 0 accepted")
	}
}
