// Package sqlite persists the per-user documents in a local SQLite file.
// Settings and annual budgets are stored as one JSON document per key,
// matching the nested document layout of the hosted store they mirror;
// transactions and recurring payments are row-per-document collections.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"kakeibo/internal/core"
	"kakeibo/internal/store"
)

type Repository struct {
	db *sql.DB
}

var _ store.Backend = (*Repository)(nil)

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// settingsDoc is the JSON shape of the settings document.
type settingsDoc struct {
	Categories []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Kind string `json:"kind"`
	} `json:"categories"`
	Payday struct {
		Day      int    `json:"day"`
		Rollover string `json:"rollover"`
	} `json:"payday"`
	InitialBalanceCents int64 `json:"initialBalanceCents"`
}

// budgetDoc is the JSON shape of one annual budget document. Money values
// are integer cents, so the round trip is exact.
type budgetDoc struct {
	Year                 int              `json:"year"`
	StartingBalanceCents int64            `json:"startingBalanceCents"`
	PlannedBalanceCents  [12]int64        `json:"plannedBalanceCents"`
	NormalMonthBudget    map[string]int64 `json:"normalMonthBudget"`
	BonusMonthBudget     map[string]int64 `json:"bonusMonthBudget"`
	MonthlyIncomeCents   int64            `json:"monthlyIncomeCents"`
	SummerBonusCents     int64            `json:"summerBonusCents"`
	WinterBonusCents     int64            `json:"winterBonusCents"`
	SummerBonusMonth     int              `json:"summerBonusMonth"`
	WinterBonusMonth     int              `json:"winterBonusMonth"`
	SummerBonusPayday    int              `json:"summerBonusPayday"`
	WinterBonusPayday    int              `json:"winterBonusPayday"`
}

// LoadSettings implements store.SettingsStore.
func (r *Repository) LoadSettings(ctx context.Context, userID string) (core.Settings, bool, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT doc FROM settings WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Settings{}, false, nil
	}
	if err != nil {
		return core.Settings{}, false, fmt.Errorf("load settings: %w", err)
	}

	var doc settingsDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return core.Settings{}, false, fmt.Errorf("decode settings document: %w", err)
	}

	s := core.Settings{
		Payday: core.PaydaySettings{
			Payday:   doc.Payday.Day,
			Rollover: core.RolloverPolicy(doc.Payday.Rollover),
		},
		InitialBalance: core.Money{Cents: doc.InitialBalanceCents},
	}
	for _, c := range doc.Categories {
		s.Categories = append(s.Categories, core.Category{
			ID: c.ID, Name: c.Name, Kind: core.TransactionType(c.Kind),
		})
	}
	return s, true, nil
}

// SaveSettings implements store.SettingsStore. The whole document is
// rewritten; concurrent sessions are last-write-wins.
func (r *Repository) SaveSettings(ctx context.Context, userID string, s core.Settings) error {
	var doc settingsDoc
	doc.Payday.Day = s.Payday.Payday
	doc.Payday.Rollover = string(s.Payday.Rollover)
	doc.InitialBalanceCents = s.InitialBalance.Cents
	for _, c := range s.Categories {
		doc.Categories = append(doc.Categories, struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			Kind string `json:"kind"`
		}{ID: c.ID, Name: c.Name, Kind: string(c.Kind)})
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode settings document: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO settings (user_id, doc, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET doc = excluded.doc, updated_at = CURRENT_TIMESTAMP`,
		userID, string(raw))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// BudgetForYear implements store.BudgetStore. A missing year is (nil, nil).
func (r *Repository) BudgetForYear(ctx context.Context, userID string, year int) (*core.AnnualBudget, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		`SELECT doc FROM budgets WHERE user_id = ? AND year = ?`, userID, year).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load budget %d: %w", year, err)
	}

	var doc budgetDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode budget document: %w", err)
	}

	b := core.AnnualBudget{
		Year:              doc.Year,
		StartingBalance:   core.Money{Cents: doc.StartingBalanceCents},
		NormalMonthBudget: centsToMoney(doc.NormalMonthBudget),
		BonusMonthBudget:  centsToMoney(doc.BonusMonthBudget),
		MonthlyIncome:     core.Money{Cents: doc.MonthlyIncomeCents},
		SummerBonus:       core.Money{Cents: doc.SummerBonusCents},
		WinterBonus:       core.Money{Cents: doc.WinterBonusCents},
		SummerBonusMonth:  doc.SummerBonusMonth,
		WinterBonusMonth:  doc.WinterBonusMonth,
		SummerBonusPayday: doc.SummerBonusPayday,
		WinterBonusPayday: doc.WinterBonusPayday,
	}
	for i, cents := range doc.PlannedBalanceCents {
		b.PlannedBalance[i] = core.Money{Cents: cents}
	}
	return &b, nil
}

// SaveBudget implements store.BudgetStore.
func (r *Repository) SaveBudget(ctx context.Context, userID string, b core.AnnualBudget) error {
	doc := budgetDoc{
		Year:                 b.Year,
		StartingBalanceCents: b.StartingBalance.Cents,
		NormalMonthBudget:    moneyToCents(b.NormalMonthBudget),
		BonusMonthBudget:     moneyToCents(b.BonusMonthBudget),
		MonthlyIncomeCents:   b.MonthlyIncome.Cents,
		SummerBonusCents:     b.SummerBonus.Cents,
		WinterBonusCents:     b.WinterBonus.Cents,
		SummerBonusMonth:     b.SummerBonusMonth,
		WinterBonusMonth:     b.WinterBonusMonth,
		SummerBonusPayday:    b.SummerBonusPayday,
		WinterBonusPayday:    b.WinterBonusPayday,
	}
	for i, m := range b.PlannedBalance {
		doc.PlannedBalanceCents[i] = m.Cents
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode budget document: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO budgets (user_id, year, doc, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, year) DO UPDATE SET doc = excluded.doc, updated_at = CURRENT_TIMESTAMP`,
		userID, b.Year, string(raw))
	if err != nil {
		return fmt.Errorf("save budget %d: %w", b.Year, err)
	}
	return nil
}

// AppendTransaction implements store.LedgerStore.
func (r *Repository) AppendTransaction(ctx context.Context, userID string, tx core.Transaction) (string, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	tags, err := json.Marshal(tx.Tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, type, date, description, amount_cents, category_id, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, userID, string(tx.Type), tx.Date.String(), tx.Description,
		tx.Amount.Cents, tx.CategoryID, string(tags))
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}
	return tx.ID, nil
}

// UpdateTransaction implements store.LedgerStore.
func (r *Repository) UpdateTransaction(ctx context.Context, userID string, tx core.Transaction) error {
	tags, err := json.Marshal(tx.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET type = ?, date = ?, description = ?, amount_cents = ?, category_id = ?, tags = ?
		WHERE id = ? AND user_id = ?`,
		string(tx.Type), tx.Date.String(), tx.Description, tx.Amount.Cents,
		tx.CategoryID, string(tags), tx.ID, userID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRow(res)
}

// DeleteTransaction implements store.LedgerStore.
func (r *Repository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res)
}

// GetTransaction implements store.LedgerStore.
func (r *Repository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, type, date, description, amount_cents, category_id, tags
		FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// TransactionsInRange implements store.LedgerStore. Dates are stored as
// YYYY-MM-DD text, so lexicographic comparison matches date order.
func (r *Repository) TransactionsInRange(ctx context.Context, userID string, from, to core.Date, order store.SortOrder) ([]core.Transaction, error) {
	direction := "ASC"
	if order == store.Descending {
		direction = "DESC"
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, date, description, amount_cents, category_id, tags
		FROM transactions
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date `+direction+`, id `+direction,
		userID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// ListRecurring implements store.RecurringStore.
func (r *Repository) ListRecurring(ctx context.Context, userID string) ([]core.RecurringPayment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, amount_cents, payment_day, month, category_id, type, system_generated
		FROM recurring_payments WHERE user_id = ?
		ORDER BY payment_day ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query recurring payments: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringPayment
	for rows.Next() {
		var rp core.RecurringPayment
		var typ string
		var system int
		if err := rows.Scan(&rp.ID, &rp.Title, &rp.Amount.Cents, &rp.PaymentDay,
			&rp.Month, &rp.CategoryID, &typ, &system); err != nil {
			return nil, fmt.Errorf("scan recurring payment: %w", err)
		}
		rp.Type = core.TransactionType(typ)
		rp.SystemGenerated = system != 0
		out = append(out, rp)
	}
	return out, rows.Err()
}

// PutRecurring implements store.RecurringStore.
func (r *Repository) PutRecurring(ctx context.Context, userID string, rp core.RecurringPayment) (string, error) {
	if rp.ID == "" {
		rp.ID = uuid.NewString()
	}
	system := 0
	if rp.SystemGenerated {
		system = 1
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_payments (id, user_id, title, amount_cents, payment_day, month, category_id, type, system_generated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, amount_cents = excluded.amount_cents,
			payment_day = excluded.payment_day, month = excluded.month,
			category_id = excluded.category_id,
			type = excluded.type, system_generated = excluded.system_generated`,
		rp.ID, userID, rp.Title, rp.Amount.Cents, rp.PaymentDay, rp.Month,
		rp.CategoryID, string(rp.Type), system)
	if err != nil {
		return "", fmt.Errorf("put recurring payment: %w", err)
	}
	return rp.ID, nil
}

// DeleteRecurring implements store.RecurringStore.
func (r *Repository) DeleteRecurring(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM recurring_payments WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete recurring payment: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`DELETE FROM recurring_posts WHERE recurring_id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete recurring marker: %w", err)
	}
	return nil
}

// ReplaceSystemRecurring implements store.RecurringStore.
func (r *Repository) ReplaceSystemRecurring(ctx context.Context, userID string, entries []core.RecurringPayment) error {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer dbtx.Rollback()

	if _, err := dbtx.ExecContext(ctx, `
		DELETE FROM recurring_posts WHERE user_id = ? AND recurring_id IN
			(SELECT id FROM recurring_payments WHERE user_id = ? AND system_generated = 1)`,
		userID, userID); err != nil {
		return fmt.Errorf("clear system markers: %w", err)
	}
	if _, err := dbtx.ExecContext(ctx,
		`DELETE FROM recurring_payments WHERE user_id = ? AND system_generated = 1`,
		userID); err != nil {
		return fmt.Errorf("clear system entries: %w", err)
	}

	for _, rp := range entries {
		if rp.ID == "" {
			rp.ID = uuid.NewString()
		}
		if _, err := dbtx.ExecContext(ctx, `
			INSERT INTO recurring_payments (id, user_id, title, amount_cents, payment_day, month, category_id, type, system_generated)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)`,
			rp.ID, userID, rp.Title, rp.Amount.Cents, rp.PaymentDay, rp.Month,
			rp.CategoryID, string(rp.Type)); err != nil {
			return fmt.Errorf("insert system entry: %w", err)
		}
	}
	return dbtx.Commit()
}

// LastPosted implements store.RecurringStore.
func (r *Repository) LastPosted(ctx context.Context, userID, recurringID string) (core.Date, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `
		SELECT last_posted FROM recurring_posts WHERE user_id = ? AND recurring_id = ?`,
		userID, recurringID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Date{}, nil
	}
	if err != nil {
		return core.Date{}, fmt.Errorf("load posted marker: %w", err)
	}
	return parseDate(raw)
}

// MarkPosted implements store.RecurringStore.
func (r *Repository) MarkPosted(ctx context.Context, userID, recurringID string, d core.Date) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_posts (user_id, recurring_id, last_posted) VALUES (?, ?, ?)
		ON CONFLICT(user_id, recurring_id) DO UPDATE SET last_posted = excluded.last_posted`,
		userID, recurringID, d.String())
	if err != nil {
		return fmt.Errorf("save posted marker: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var tx core.Transaction
	var typ, date, tags string
	if err := row.Scan(&tx.ID, &typ, &date, &tx.Description,
		&tx.Amount.Cents, &tx.CategoryID, &tags); err != nil {
		return core.Transaction{}, err
	}
	tx.Type = core.TransactionType(typ)
	d, err := parseDate(date)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Date = d
	if err := json.Unmarshal([]byte(tags), &tx.Tags); err != nil {
		return core.Transaction{}, fmt.Errorf("decode tags: %w", err)
	}
	return tx, nil
}

func parseDate(s string) (core.Date, error) {
	var y, m, d int
	if _, err := fmt.Sscanf(s, "%d-%d-%d", &y, &m, &d); err != nil {
		return core.Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return core.NewDate(y, m, d), nil
}

func centsToMoney(in map[string]int64) map[string]core.Money {
	if in == nil {
		return nil
	}
	out := make(map[string]core.Money, len(in))
	for k, v := range in {
		out[k] = core.Money{Cents: v}
	}
	return out
}

func moneyToCents(in map[string]core.Money) map[string]int64 {
	if in == nil {
		return nil
	}
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v.Cents
	}
	return out
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
