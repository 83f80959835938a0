package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"scontrino/internal/core"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

var ErrNotFound = errors.New("not found")

// SQLiteRepository is the single persistent store: receipts, categories,
// income, recurring expenses, savings goals and user settings.
type SQLiteRepository struct {
	db *sql.DB

	// defaultDisplay is returned for users who never picked a currency.
	defaultDisplay core.Currency
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
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

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, defaultDisplay: "EUR"}, nil
}

// SetDefaultDisplayCurrency overrides the currency reported for users with
// no stored setting.
func (r *SQLiteRepository) SetDefaultDisplayCurrency(c core.Currency) {
	if c.Validate() == nil {
		r.defaultDisplay = c
	}
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// monthRange returns [first day, first day of next month) as date strings.
func monthRange(year, month int) (string, string) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start.Format(dateLayout), start.AddDate(0, 1, 0).Format(dateLayout)
}

// --- receipts ---

func (r *SQLiteRepository) CreateReceipt(ctx context.Context, rec core.Receipt) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO receipts (purchase_date, merchant, amount_cents, currency, category, warranty_months)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Date.Format(dateLayout), rec.Merchant, rec.Amount.Cents, string(rec.Currency), rec.Category, rec.WarrantyMonths)
	if err != nil {
		return 0, fmt.Errorf("insert receipt: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("receipt id: %w", err)
	}

	slog.InfoContext(ctx, "Receipt saved",
		"id", id,
		"merchant", rec.Merchant,
		"amount_cents", rec.Amount.Cents,
		"currency", rec.Currency)
	return id, nil
}

func (r *SQLiteRepository) GetReceipt(ctx context.Context, id int64) (core.Receipt, error) {
	var (
		rec      core.Receipt
		dateStr  string
		currency string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, purchase_date, merchant, amount_cents, currency, category, warranty_months
		 FROM receipts WHERE id = ? AND deleted = 0`, id).
		Scan(&rec.ID, &dateStr, &rec.Merchant, &rec.Amount.Cents, &currency, &rec.Category, &rec.WarrantyMonths)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Receipt{}, ErrNotFound
	}
	if err != nil {
		return core.Receipt{}, fmt.Errorf("get receipt %d: %w", id, err)
	}
	rec.Currency = core.Currency(currency)
	rec.Date, err = parseDate(dateStr)
	if err != nil {
		return core.Receipt{}, err
	}
	return rec, nil
}

func (r *SQLiteRepository) ListReceipts(ctx context.Context, year, month int) ([]core.Receipt, error) {
	from, to := monthRange(year, month)
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, purchase_date, merchant, amount_cents, currency, category, warranty_months
		 FROM receipts
		 WHERE deleted = 0 AND purchase_date >= ? AND purchase_date < ?
		 ORDER BY purchase_date DESC, id DESC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	defer rows.Close()

	var receipts []core.Receipt
	for rows.Next() {
		var (
			rec      core.Receipt
			dateStr  string
			currency string
		)
		if err := rows.Scan(&rec.ID, &dateStr, &rec.Merchant, &rec.Amount.Cents, &currency, &rec.Category, &rec.WarrantyMonths); err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		rec.Currency = core.Currency(currency)
		if rec.Date, err = parseDate(dateStr); err != nil {
			return nil, err
		}
		receipts = append(receipts, rec)
	}
	return receipts, rows.Err()
}

// SoftDeleteReceipt hides a receipt from all queries without losing it.
func (r *SQLiteRepository) SoftDeleteReceipt(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE receipts SET deleted = 1, version = version + 1 WHERE id = ? AND deleted = 0`, id)
	if err != nil {
		return fmt.Errorf("soft delete receipt %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete receipt %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- spend aggregates ---

// DailySpend returns one breakdown per day that had spend, split by the
// currency each receipt was recorded in.
func (r *SQLiteRepository) DailySpend(ctx context.Context, year, month int) ([]core.DailyBreakdown, error) {
	from, to := monthRange(year, month)
	rows, err := r.db.QueryContext(ctx,
		`SELECT purchase_date, currency, SUM(amount_cents)
		 FROM receipts
		 WHERE deleted = 0 AND purchase_date >= ? AND purchase_date < ?
		 GROUP BY purchase_date, currency
		 ORDER BY purchase_date`, from, to)
	if err != nil {
		return nil, fmt.Errorf("daily spend: %w", err)
	}
	defer rows.Close()

	byDay := map[string]*core.DailyBreakdown{}
	var order []string
	for rows.Next() {
		var (
			dateStr  string
			currency string
			cents    int64
		)
		if err := rows.Scan(&dateStr, &currency, &cents); err != nil {
			return nil, fmt.Errorf("scan daily spend: %w", err)
		}
		d, ok := byDay[dateStr]
		if !ok {
			date, err := parseDate(dateStr)
			if err != nil {
				return nil, err
			}
			d = &core.DailyBreakdown{Year: date.Year(), Month: date.Month(), Day: date.Day()}
			byDay[dateStr] = d
			order = append(order, dateStr)
		}
		d.Spend = append(d.Spend, core.CurrencyAmount{
			Currency: core.Currency(currency),
			Amount:   core.Money{Cents: cents}.Float(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	daily := make([]core.DailyBreakdown, 0, len(order))
	for _, k := range order {
		daily = append(daily, *byDay[k])
	}
	return daily, nil
}

// MonthlySpend returns per-currency totals for the "months" calendar months
// ending at the given year/month, oldest first. Months without spend are
// omitted.
func (r *SQLiteRepository) MonthlySpend(ctx context.Context, year, month, months int) ([]core.MonthlyBreakdown, error) {
	end := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	start := end.AddDate(0, -months, 0)

	rows, err := r.db.QueryContext(ctx,
		`SELECT substr(purchase_date, 1, 7), currency, SUM(amount_cents)
		 FROM receipts
		 WHERE deleted = 0 AND purchase_date >= ? AND purchase_date < ?
		 GROUP BY substr(purchase_date, 1, 7), currency
		 ORDER BY substr(purchase_date, 1, 7)`,
		start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("monthly spend: %w", err)
	}
	defer rows.Close()

	byMonth := map[string]*core.MonthlyBreakdown{}
	var order []string
	for rows.Next() {
		var (
			key      string // YYYY-MM
			currency string
			cents    int64
		)
		if err := rows.Scan(&key, &currency, &cents); err != nil {
			return nil, fmt.Errorf("scan monthly spend: %w", err)
		}
		m, ok := byMonth[key]
		if !ok {
			t, err := time.Parse("2006-01", key)
			if err != nil {
				return nil, fmt.Errorf("parse month key %q: %w", key, err)
			}
			m = &core.MonthlyBreakdown{Year: t.Year(), Month: int(t.Month())}
			byMonth[key] = m
			order = append(order, key)
		}
		m.Spend = append(m.Spend, core.CurrencyAmount{
			Currency: core.Currency(currency),
			Amount:   core.Money{Cents: cents}.Float(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	monthly := make([]core.MonthlyBreakdown, 0, len(order))
	for _, k := range order {
		monthly = append(monthly, *byMonth[k])
	}
	return monthly, nil
}

// CategorySpend returns each category's per-currency spend for a month,
// including its budget configuration. Categories with no spend and no
// budget are omitted.
func (r *SQLiteRepository) CategorySpend(ctx context.Context, year, month int) ([]core.CategorySpend, error) {
	from, to := monthRange(year, month)
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.name, c.budget_cents, c.budget_currency, r.currency, SUM(r.amount_cents)
		 FROM categories c
		 LEFT JOIN receipts r
		   ON r.category = c.name AND r.deleted = 0
		   AND r.purchase_date >= ? AND r.purchase_date < ?
		 GROUP BY c.name, r.currency
		 ORDER BY c.name`, from, to)
	if err != nil {
		return nil, fmt.Errorf("category spend: %w", err)
	}
	defer rows.Close()

	byName := map[string]*core.CategorySpend{}
	var order []string
	for rows.Next() {
		var (
			name           string
			budgetCents    sql.NullInt64
			budgetCurrency sql.NullString
			currency       sql.NullString
			cents          sql.NullInt64
		)
		if err := rows.Scan(&name, &budgetCents, &budgetCurrency, &currency, &cents); err != nil {
			return nil, fmt.Errorf("scan category spend: %w", err)
		}
		cs, ok := byName[name]
		if !ok {
			cs = &core.CategorySpend{Category: core.Category{Name: name}}
			if budgetCents.Valid {
				cs.Category.MonthlyBudget = &core.Money{Cents: budgetCents.Int64}
				cs.Category.BudgetCurrency = core.Currency(budgetCurrency.String)
			}
			byName[name] = cs
			order = append(order, name)
		}
		if currency.Valid && cents.Valid {
			cs.Spend = append(cs.Spend, core.CurrencyAmount{
				Currency: core.Currency(currency.String),
				Amount:   core.Money{Cents: cents.Int64}.Float(),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var spends []core.CategorySpend
	for _, name := range order {
		cs := byName[name]
		if len(cs.Spend) == 0 && cs.Category.MonthlyBudget == nil {
			continue
		}
		spends = append(spends, *cs)
	}
	return spends, nil
}

// --- categories ---

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, budget_cents, budget_currency FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var (
			cat            core.Category
			budgetCents    sql.NullInt64
			budgetCurrency sql.NullString
		)
		if err := rows.Scan(&cat.Name, &budgetCents, &budgetCurrency); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if budgetCents.Valid {
			cat.MonthlyBudget = &core.Money{Cents: budgetCents.Int64}
			cat.BudgetCurrency = core.Currency(budgetCurrency.String)
		}
		cats = append(cats, cat)
	}
	return cats, rows.Err()
}

// SetCategoryBudget configures or clears a category's monthly budget.
func (r *SQLiteRepository) SetCategoryBudget(ctx context.Context, name string, budget *core.Money, currency core.Currency) error {
	var (
		cents sql.NullInt64
		code  sql.NullString
	)
	if budget != nil {
		cents = sql.NullInt64{Int64: budget.Cents, Valid: true}
		code = sql.NullString{String: string(currency), Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET budget_cents = ?, budget_currency = ? WHERE name = ?`,
		cents, code, name)
	if err != nil {
		return fmt.Errorf("set category budget: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- income ---

func (r *SQLiteRepository) GetIncome(ctx context.Context, userID string) (*core.MonthlyIncome, error) {
	var (
		income   core.MonthlyIncome
		currency string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT amount_cents, currency FROM monthly_income WHERE user_id = ?`, userID).
		Scan(&income.Amount.Cents, &currency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // not configured, a valid state
	}
	if err != nil {
		return nil, fmt.Errorf("get income: %w", err)
	}
	income.Currency = core.Currency(currency)
	return &income, nil
}

func (r *SQLiteRepository) SetIncome(ctx context.Context, userID string, income core.MonthlyIncome) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO monthly_income (user_id, amount_cents, currency) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET amount_cents = excluded.amount_cents, currency = excluded.currency`,
		userID, income.Amount.Cents, string(income.Currency))
	if err != nil {
		return fmt.Errorf("set income: %w", err)
	}
	return nil
}

// --- recurring expenses ---

func (r *SQLiteRepository) CreateRecurring(ctx context.Context, re core.RecurringExpense) (int64, error) {
	var endDate sql.NullString
	if !re.EndDate.IsZero() {
		endDate = sql.NullString{String: re.EndDate.Format(dateLayout), Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_expenses (name, amount_cents, currency, start_date, end_date, frequency)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		re.Name, re.Amount.Cents, string(re.Currency), re.StartDate.Format(dateLayout), endDate, string(re.Every))
	if err != nil {
		return 0, fmt.Errorf("insert recurring expense: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) DeleteRecurring(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recurring expense %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ActiveRecurring returns recurring expenses whose schedule has not ended
// by the given day, with the date of their last recorded charge.
func (r *SQLiteRepository) ActiveRecurring(ctx context.Context, asOf time.Time) ([]RecurringRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, amount_cents, currency, start_date, end_date, frequency, last_paid
		 FROM recurring_expenses
		 WHERE end_date IS NULL OR end_date >= ?
		 ORDER BY id`, asOf.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("active recurring expenses: %w", err)
	}
	defer rows.Close()

	var result []RecurringRow
	for rows.Next() {
		var (
			row       RecurringRow
			currency  string
			startStr  string
			endStr    sql.NullString
			frequency string
			lastPaid  sql.NullString
		)
		if err := rows.Scan(&row.Expense.ID, &row.Expense.Name, &row.Expense.Amount.Cents,
			&currency, &startStr, &endStr, &frequency, &lastPaid); err != nil {
			return nil, fmt.Errorf("scan recurring expense: %w", err)
		}
		row.Expense.Currency = core.Currency(currency)
		row.Expense.Every = core.Frequency(frequency)
		if row.Expense.StartDate, err = parseDate(startStr); err != nil {
			return nil, err
		}
		if endStr.Valid {
			if row.Expense.EndDate, err = parseDate(endStr.String); err != nil {
				return nil, err
			}
		}
		if lastPaid.Valid {
			if row.LastPaid, err = parseDate(lastPaid.String); err != nil {
				return nil, err
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// MarkRecurringPaid records that a recurring expense was charged on a day.
func (r *SQLiteRepository) MarkRecurringPaid(ctx context.Context, id int64, on time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE recurring_expenses SET last_paid = ? WHERE id = ?`, on.Format(dateLayout), id)
	if err != nil {
		return fmt.Errorf("mark recurring paid: %w", err)
	}
	return nil
}

// RecurringRow pairs a recurring expense with its payment bookkeeping.
type RecurringRow struct {
	Expense  core.RecurringExpense
	LastPaid core.Date // zero when never charged
}

// --- savings goals ---

func (r *SQLiteRepository) ListSavingsGoals(ctx context.Context) ([]core.SavingsGoal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, target_cents, saved_cents, currency FROM savings_goals ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list savings goals: %w", err)
	}
	defer rows.Close()

	var goals []core.SavingsGoal
	for rows.Next() {
		var (
			g        core.SavingsGoal
			currency string
		)
		if err := rows.Scan(&g.ID, &g.Name, &g.Target.Cents, &g.Saved.Cents, &currency); err != nil {
			return nil, fmt.Errorf("scan savings goal: %w", err)
		}
		g.Currency = core.Currency(currency)
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (r *SQLiteRepository) CreateSavingsGoal(ctx context.Context, g core.SavingsGoal) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO savings_goals (name, target_cents, saved_cents, currency) VALUES (?, ?, ?, ?)`,
		g.Name, g.Target.Cents, g.Saved.Cents, string(g.Currency))
	if err != nil {
		return 0, fmt.Errorf("insert savings goal: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) UpdateSavedAmount(ctx context.Context, id int64, saved core.Money) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE savings_goals SET saved_cents = ? WHERE id = ?`, saved.Cents, id)
	if err != nil {
		return fmt.Errorf("update savings goal %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- warranties ---

// ExpiringWarranty is a receipt whose warranty runs out within the window.
type ExpiringWarranty struct {
	Receipt   core.Receipt
	ExpiresOn core.Date
}

// ExpiringWarranties returns receipts with warranties expiring within the
// given number of days from asOf, soonest first.
func (r *SQLiteRepository) ExpiringWarranties(ctx context.Context, asOf time.Time, withinDays int) ([]ExpiringWarranty, error) {
	from := asOf.Format(dateLayout)
	to := asOf.AddDate(0, 0, withinDays).Format(dateLayout)
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, purchase_date, merchant, amount_cents, currency, category, warranty_months,
		        date(purchase_date, '+' || warranty_months || ' months') AS expires_on
		 FROM receipts
		 WHERE deleted = 0 AND warranty_months > 0
		   AND expires_on >= ? AND expires_on <= ?
		 ORDER BY expires_on`, from, to)
	if err != nil {
		return nil, fmt.Errorf("expiring warranties: %w", err)
	}
	defer rows.Close()

	var result []ExpiringWarranty
	for rows.Next() {
		var (
			w          ExpiringWarranty
			dateStr    string
			currency   string
			expiresStr string
		)
		if err := rows.Scan(&w.Receipt.ID, &dateStr, &w.Receipt.Merchant, &w.Receipt.Amount.Cents,
			&currency, &w.Receipt.Category, &w.Receipt.WarrantyMonths, &expiresStr); err != nil {
			return nil, fmt.Errorf("scan expiring warranty: %w", err)
		}
		w.Receipt.Currency = core.Currency(currency)
		if w.Receipt.Date, err = parseDate(dateStr); err != nil {
			return nil, err
		}
		if w.ExpiresOn, err = parseDate(expiresStr); err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

// --- settings (session.Settings) ---

func (r *SQLiteRepository) DisplayCurrency(userID string) (core.Currency, error) {
	var currency string
	err := r.db.QueryRow(
		`SELECT display_currency FROM user_settings WHERE user_id = ?`, userID).Scan(&currency)
	if errors.Is(err, sql.ErrNoRows) {
		return r.defaultDisplay, nil
	}
	if err != nil {
		return "", fmt.Errorf("get display currency: %w", err)
	}
	return core.Currency(currency), nil
}

func (r *SQLiteRepository) SetDisplayCurrency(userID string, c core.Currency) error {
	_, err := r.db.Exec(
		`INSERT INTO user_settings (user_id, display_currency) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET display_currency = excluded.display_currency`,
		userID, string(c))
	if err != nil {
		return fmt.Errorf("set display currency: %w", err)
	}
	return nil
}

// --- sync bookkeeping ---

// PendingSyncReceipt is the minimal payload the sync queue needs.
type PendingSyncReceipt struct {
	ID      int64
	Version int64
}

func (r *SQLiteRepository) PendingSyncReceipts(ctx context.Context, limit int) ([]PendingSyncReceipt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, version FROM receipts WHERE sync_status = 'pending' AND deleted = 0
		 ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending sync receipts: %w", err)
	}
	defer rows.Close()

	var pending []PendingSyncReceipt
	for rows.Next() {
		var p PendingSyncReceipt
		if err := rows.Scan(&p.ID, &p.Version); err != nil {
			return nil, fmt.Errorf("scan pending receipt: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE receipts SET sync_status = 'synced' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark receipt synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE receipts SET sync_status = 'error' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark receipt sync error: %w", err)
	}
	slog.WarnContext(ctx, "Receipt marked with sync error", "id", id)
	return nil
}

func parseDate(s string) (core.Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return core.Date{Time: t}, nil
}
