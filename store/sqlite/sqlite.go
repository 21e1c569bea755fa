/*
Package sqlite provides a SQLite-backed implementation of store.Store.

PURPOSE:
  Persists the office's contracts, expenses, tax obligations and holiday
  calendar. Derived data (statuses, alerts) is never written here.

KEY TABLES:
  contracts:        Supplier contracts with remaining balance
  expenses:         Invoices under liquidation, optionally linked to a contract
  tax_obligations:  Recurring tax payments
  holidays:         Configured non-working days (exact or recurring)

MONEY:
  Amounts are stored as TEXT decimal strings and read back with
  decimal.NewFromString, so no value ever passes through float64.

DATES:
  Calendar dates are stored as TEXT YYYY-MM-DD; a zero date is ''.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single connection, which also
  keeps ":memory:" databases alive across calls.

USAGE:
  st, err := sqlite.New("./data/sgf.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

SEE ALSO:
  - store/store.go: Interface definition
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/tjpa/sgf-engine/calendar"
	"github.com/tjpa/sgf-engine/engine"
	"github.com/tjpa/sgf-engine/store"
)

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ store.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		contract_number TEXT NOT NULL,
		provider TEXT NOT NULL DEFAULT '',
		provider_identifier TEXT NOT NULL DEFAULT '',
		object TEXT NOT NULL DEFAULT '',
		global_value TEXT NOT NULL,
		balance TEXT NOT NULL,
		start_date TEXT NOT NULL DEFAULT '',
		end_date TEXT NOT NULL DEFAULT '',
		readjustment_date TEXT NOT NULL DEFAULT '',
		readjustment_index TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		fiscal_name TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_contracts_end_date
		ON contracts(end_date);

	-- contract_id is a soft link: an expense may outlive its contract and the
	-- engine treats an unresolved link as "no contract"
	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		expense_type TEXT NOT NULL,
		liquidation_date TEXT NOT NULL DEFAULT '',
		limit_date TEXT NOT NULL,
		contract_id TEXT,
		amount TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		paid BOOLEAN NOT NULL DEFAULT FALSE,
		provider_identifier TEXT NOT NULL DEFAULT '',
		invoice_number TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_expenses_limit_date
		ON expenses(limit_date);
	CREATE INDEX IF NOT EXISTS idx_expenses_contract
		ON expenses(contract_id) WHERE contract_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS tax_obligations (
		id TEXT PRIMARY KEY,
		tax_type TEXT NOT NULL,
		periodicity TEXT NOT NULL,
		fixed_due_date TEXT NOT NULL,
		revenue_code TEXT NOT NULL DEFAULT '',
		amount TEXT,
		paid BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		recurring BOOLEAN DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_date
		ON holidays(date);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CONTRACTS
// =============================================================================

const contractColumns = `id, contract_number, provider, provider_identifier, object, global_value, balance,
	start_date, end_date, readjustment_date, readjustment_index, category, fiscal_name`

// SaveContract inserts or replaces a contract.
func (s *Store) SaveContract(ctx context.Context, c engine.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO contracts (` + contractColumns + `, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			contract_number = excluded.contract_number,
			provider = excluded.provider,
			provider_identifier = excluded.provider_identifier,
			object = excluded.object,
			global_value = excluded.global_value,
			balance = excluded.balance,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			readjustment_date = excluded.readjustment_date,
			readjustment_index = excluded.readjustment_index,
			category = excluded.category,
			fiscal_name = excluded.fiscal_name,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.ContractNumber, c.Provider, c.ProviderIdentifier, c.Object,
		c.GlobalValue.String(), c.Balance.String(),
		formatDate(c.StartDate), formatDate(c.EndDate), formatDate(c.ReadjustmentDate),
		string(c.Index), c.Category, c.FiscalName,
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save contract %s: %w", c.ID, err)
	}
	return nil
}

// GetContract returns store.ErrNotFound when id is unknown.
func (s *Store) GetContract(ctx context.Context, id string) (engine.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = ?`, id)
	c, err := scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Contract{}, store.ErrNotFound
	}
	return c, err
}

func (s *Store) ListContracts(ctx context.Context) ([]engine.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+contractColumns+` FROM contracts ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	var out []engine.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteContract(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "contracts", id)
}

func scanContract(row scanner) (engine.Contract, error) {
	var (
		c                         engine.Contract
		global, balance           string
		start, end, readjust, idx string
	)
	err := row.Scan(&c.ID, &c.ContractNumber, &c.Provider, &c.ProviderIdentifier, &c.Object,
		&global, &balance, &start, &end, &readjust, &idx, &c.Category, &c.FiscalName)
	if err != nil {
		return engine.Contract{}, err
	}
	c.Index = engine.IndexType(idx)
	if c.GlobalValue, err = parseDecimal(global); err != nil {
		return engine.Contract{}, err
	}
	if c.Balance, err = parseDecimal(balance); err != nil {
		return engine.Contract{}, err
	}
	if c.StartDate, err = parseDate(start); err != nil {
		return engine.Contract{}, err
	}
	if c.EndDate, err = parseDate(end); err != nil {
		return engine.Contract{}, err
	}
	if c.ReadjustmentDate, err = parseDate(readjust); err != nil {
		return engine.Contract{}, err
	}
	return c, nil
}

// =============================================================================
// EXPENSES
// =============================================================================

const expenseColumns = `id, expense_type, liquidation_date, limit_date, contract_id, amount, description,
	paid, provider_identifier, invoice_number`

// SaveExpense inserts or replaces an expense.
func (s *Store) SaveExpense(ctx context.Context, e engine.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO expenses (` + expenseColumns + `, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			expense_type = excluded.expense_type,
			liquidation_date = excluded.liquidation_date,
			limit_date = excluded.limit_date,
			contract_id = excluded.contract_id,
			amount = excluded.amount,
			description = excluded.description,
			paid = excluded.paid,
			provider_identifier = excluded.provider_identifier,
			invoice_number = excluded.invoice_number,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID, string(e.Type), formatDate(e.LiquidationDate), formatDate(e.LimitDate),
		nullString(e.ContractID), e.Amount.String(), e.Description, e.Paid,
		e.ProviderIdentifier, e.InvoiceNumber,
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save expense %s: %w", e.ID, err)
	}
	return nil
}

func (s *Store) GetExpense(ctx context.Context, id string) (engine.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Expense{}, store.ErrNotFound
	}
	return e, err
}

// ListExpenses returns expenses ordered by limit date.
func (s *Store) ListExpenses(ctx context.Context) ([]engine.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+expenseColumns+` FROM expenses ORDER BY limit_date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []engine.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "expenses", id)
}

func scanExpense(row scanner) (engine.Expense, error) {
	var (
		e                  engine.Expense
		typ, amount        string
		liquidation, limit string
		contractID         sql.NullString
	)
	err := row.Scan(&e.ID, &typ, &liquidation, &limit, &contractID, &amount, &e.Description,
		&e.Paid, &e.ProviderIdentifier, &e.InvoiceNumber)
	if err != nil {
		return engine.Expense{}, err
	}
	e.Type = engine.ExpenseType(typ)
	e.ContractID = contractID.String
	if e.Amount, err = parseDecimal(amount); err != nil {
		return engine.Expense{}, err
	}
	if e.LiquidationDate, err = parseDate(liquidation); err != nil {
		return engine.Expense{}, err
	}
	if e.LimitDate, err = parseDate(limit); err != nil {
		return engine.Expense{}, err
	}
	return e, nil
}

// =============================================================================
// TAX OBLIGATIONS
// =============================================================================

func (s *Store) SaveTaxObligation(ctx context.Context, t engine.TaxObligation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var amount sql.NullString
	if t.Amount.Valid {
		amount = sql.NullString{String: t.Amount.Decimal.String(), Valid: true}
	}

	query := `
		INSERT INTO tax_obligations (id, tax_type, periodicity, fixed_due_date, revenue_code, amount, paid, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tax_type = excluded.tax_type,
			periodicity = excluded.periodicity,
			fixed_due_date = excluded.fixed_due_date,
			revenue_code = excluded.revenue_code,
			amount = excluded.amount,
			paid = excluded.paid,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		t.ID, string(t.Type), string(t.Periodicity), formatDate(t.FixedDueDate), t.RevenueCode,
		amount, t.Paid, time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save tax obligation %s: %w", t.ID, err)
	}
	return nil
}

func (s *Store) ListTaxObligations(ctx context.Context) ([]engine.TaxObligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tax_type, periodicity, fixed_due_date, revenue_code, amount, paid
		FROM tax_obligations
		ORDER BY fixed_due_date ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list tax obligations: %w", err)
	}
	defer rows.Close()

	var out []engine.TaxObligation
	for rows.Next() {
		var (
			t           engine.TaxObligation
			typ, period string
			due         string
			amount      sql.NullString
		)
		if err := rows.Scan(&t.ID, &typ, &period, &due, &t.RevenueCode, &amount, &t.Paid); err != nil {
			return nil, err
		}
		t.Type = engine.TaxType(typ)
		t.Periodicity = engine.Periodicity(period)
		if t.FixedDueDate, err = parseDate(due); err != nil {
			return nil, err
		}
		if amount.Valid {
			d, err := parseDecimal(amount.String)
			if err != nil {
				return nil, err
			}
			t.Amount = decimal.NewNullDecimal(d)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// =============================================================================
// HOLIDAY CALENDAR IMPLEMENTATION
// =============================================================================

// SaveHoliday saves a holiday to the database.
func (s *Store) SaveHoliday(ctx context.Context, h calendar.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO holidays (id, date, name, recurring, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			name = excluded.name,
			recurring = excluded.recurring
	`
	_, err := s.db.ExecContext(ctx, query,
		h.ID,
		h.Date.String(),
		h.Name,
		h.Recurring,
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save holiday %s: %w", h.ID, err)
	}
	return nil
}

// DeleteHoliday deletes a holiday by ID.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "holidays", id)
}

// IsHoliday checks if a date is a configured holiday.
// Lookup failures count as "not a holiday".
func (s *Store) IsHoliday(date calendar.Date) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT COUNT(*) FROM holidays
		WHERE (recurring = FALSE AND date = ?)
		   OR (recurring = TRUE AND strftime('%m-%d', date) = ?)
	`
	var count int
	err := s.db.QueryRow(query, date.String(), date.Time().Format("01-02")).Scan(&count)
	if err != nil {
		return false
	}
	return count > 0
}

// ListHolidays returns all holidays ordered by date.
func (s *Store) ListHolidays(ctx context.Context) ([]calendar.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, date, name, recurring FROM holidays ORDER BY date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	defer rows.Close()

	var holidays []calendar.Holiday
	for rows.Next() {
		var h calendar.Holiday
		var dateStr string
		if err := rows.Scan(&h.ID, &dateStr, &h.Name, &h.Recurring); err != nil {
			return nil, err
		}
		if h.Date, err = parseDate(dateStr); err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// =============================================================================
// ADMIN
// =============================================================================

// Reset removes every record.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"expenses", "contracts", "tax_obligations", "holidays"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return nil
}

func (s *Store) deleteByID(ctx context.Context, table, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Helper functions

type scanner interface {
	Scan(dest ...any) error
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatDate(d calendar.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func parseDate(s string) (calendar.Date, error) {
	if strings.TrimSpace(s) == "" {
		return calendar.Date{}, nil
	}
	return calendar.Parse(s)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt decimal %q: %w", s, err)
	}
	return d, nil
}
