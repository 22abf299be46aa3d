package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	RollBefore RolloverPolicy = "before"
	RollAfter  RolloverPolicy = "after"
)

type (
	// TransactionType tags a transaction or category as income or expense.
	TransactionType string

	// RolloverPolicy selects which adjacent business day absorbs a
	// payday that falls on a weekend.
	RolloverPolicy string

	// Date is a day-granular calendar date in UTC.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Category is a named income or expense bucket. IDs are stable and
	// never reused; slice order is the user's display order.
	Category struct {
		ID   string
		Name string
		Kind TransactionType
	}

	Transaction struct {
		ID          string
		Type        TransactionType
		Date        Date
		Description string
		Amount      Money
		CategoryID  string
		Tags        []string
	}

	// PaydaySettings configures the budget-cycle anchor day.
	PaydaySettings struct {
		Payday   int // day of month, 1..31, clamped to shorter months
		Rollover RolloverPolicy
	}

	// RecurringPayment is a fixed monthly entry. System-generated entries
	// mirror the annual budget (salary, bonuses) and are replaced wholesale
	// whenever the budget is saved; user entries persist independently.
	RecurringPayment struct {
		ID              string
		Title           string
		Amount          Money
		PaymentDay      int // 1..31, clamped to shorter months
		Month           int // 1..12 for annual entries, 0 for every month
		CategoryID      string
		Type            TransactionType
		SystemGenerated bool
	}

	// AnnualBudget holds one calendar year of planning figures.
	AnnualBudget struct {
		Year              int
		StartingBalance   Money
		PlannedBalance    [12]Money // planned balance at end of month i+1
		NormalMonthBudget map[string]Money
		BonusMonthBudget  map[string]Money
		MonthlyIncome     Money
		SummerBonus       Money
		WinterBonus       Money
		SummerBonusMonth  int // 1..12, 0 when unset
		WinterBonusMonth  int
		SummerBonusPayday int // 1..31
		WinterBonusPayday int
	}

	// Settings is the per-user configuration document.
	Settings struct {
		Categories     []Category
		Payday         PaydaySettings
		InitialBalance Money
	}
)

var (
	ErrInvalidDate          = errors.New("invalid date")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrEmptyDescription     = errors.New("empty description")
	ErrInvalidType          = errors.New("invalid transaction type")
	ErrUnknownCategory      = errors.New("unknown category")
	ErrCategoryKindMismatch = errors.New("category kind does not match transaction type")
	ErrInvalidPayday        = errors.New("payday must be between 1 and 31")
	ErrInvalidRollover      = errors.New("invalid rollover policy")
	ErrInvalidBonusMonth    = errors.New("bonus month must be between 1 and 12")
	ErrNegativeMoney        = errors.New("money amount cannot be negative")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month.
func (d Date) Day() int { return d.Time.Day() }

// Month returns the month as 1..12.
func (d Date) Month() int { return int(d.Time.Month()) }

// Year returns the calendar year.
func (d Date) Year() int { return d.Time.Year() }

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool { return d.Time.After(other.Time) }

// Equal reports whether d and other are the same calendar day.
func (d Date) Equal(other Date) bool { return d.Time.Equal(other.Time) }

// IsWeekend reports whether d falls on Saturday or Sunday.
func (d Date) IsWeekend() bool {
	wd := d.Time.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string { return d.Time.Format("2006-01-02") }

// LastDayOfMonth returns the number of days in the given month.
func LastDayOfMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidType
	}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns m + other.
func (m Money) Add(other Money) Money { return Money{Cents: m.Cents + other.Cents} }

// Sub returns m - other.
func (m Money) Sub(other Money) Money { return Money{Cents: m.Cents - other.Cents} }

func (c Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return errors.New("empty category id")
	}
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("empty category name")
	}
	return c.Kind.Validate()
}

// CategoryByID looks up a category in the registry.
func CategoryByID(cats []Category, id string) (Category, bool) {
	for _, c := range cats {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// Validate checks the write-boundary invariants: positive amount, valid
// date and type, and a category whose kind matches the transaction type.
func (t Transaction) Validate(cats []Category) error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	cat, ok := CategoryByID(cats, t.CategoryID)
	if !ok {
		return ErrUnknownCategory
	}
	if cat.Kind != t.Type {
		return ErrCategoryKindMismatch
	}
	return nil
}

func (p PaydaySettings) Validate() error {
	if p.Payday < 1 || p.Payday > 31 {
		return ErrInvalidPayday
	}
	switch p.Rollover {
	case RollBefore, RollAfter:
		return nil
	default:
		return ErrInvalidRollover
	}
}

func (r RecurringPayment) Validate(cats []Category) error {
	if len(strings.TrimSpace(r.Title)) == 0 {
		return errors.New("empty title")
	}
	if r.PaymentDay < 1 || r.PaymentDay > 31 {
		return ErrInvalidPayday
	}
	if r.Month < 0 || r.Month > 12 {
		return ErrInvalidBonusMonth
	}
	if err := r.Type.Validate(); err != nil {
		return err
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	cat, ok := CategoryByID(cats, r.CategoryID)
	if !ok {
		return ErrUnknownCategory
	}
	if cat.Kind != r.Type {
		return ErrCategoryKindMismatch
	}
	return nil
}

func (b AnnualBudget) Validate() error {
	if b.Year < 1900 || b.Year > 9999 {
		return errors.New("invalid year")
	}
	monies := []Money{b.StartingBalance, b.MonthlyIncome, b.SummerBonus, b.WinterBonus}
	monies = append(monies, b.PlannedBalance[:]...)
	for _, m := range monies {
		if m.Cents < 0 {
			return ErrNegativeMoney
		}
	}
	for _, m := range b.NormalMonthBudget {
		if m.Cents < 0 {
			return ErrNegativeMoney
		}
	}
	for _, m := range b.BonusMonthBudget {
		if m.Cents < 0 {
			return ErrNegativeMoney
		}
	}
	for _, month := range []int{b.SummerBonusMonth, b.WinterBonusMonth} {
		if month != 0 && (month < 1 || month > 12) {
			return ErrInvalidBonusMonth
		}
	}
	for _, day := range []int{b.SummerBonusPayday, b.WinterBonusPayday} {
		if day != 0 && (day < 1 || day > 31) {
			return ErrInvalidPayday
		}
	}
	return nil
}

func (s Settings) Validate() error {
	if err := s.Payday.Validate(); err != nil {
		return err
	}
	if s.InitialBalance.Cents < 0 {
		return ErrNegativeMoney
	}
	seen := make(map[string]struct{}, len(s.Categories))
	for _, c := range s.Categories {
		if err := c.Validate(); err != nil {
			return err
		}
		if _, dup := seen[c.ID]; dup {
			return errors.New("duplicate category id: " + c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}
