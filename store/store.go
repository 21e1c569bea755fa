/*
Package store defines persistence for the collections the hosting
application owns: contracts, expenses, tax obligations and holidays.

PURPOSE:
  The rule engine never reads or writes storage. The API loads snapshots
  through Store, hands them to the engine and feed, and returns the results.
  Statuses and alerts are never stored; they are recomputed on every read.

IMPLEMENTATIONS:
  - store/memory: In-memory, for tests and demos
  - store/sqlite: SQLite, for the server

HOLIDAYS:
  Every Store is also a calendar.HolidayCalendar, so holidays added through
  the API are seen by the engine immediately.
*/
package store

import (
	"context"
	"errors"

	"github.com/tjpa/sgf-engine/calendar"
	"github.com/tjpa/sgf-engine/engine"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Store persists the office's records. Save is an upsert keyed by ID.
type Store interface {
	calendar.HolidayCalendar

	SaveContract(ctx context.Context, c engine.Contract) error
	GetContract(ctx context.Context, id string) (engine.Contract, error)
	ListContracts(ctx context.Context) ([]engine.Contract, error)
	DeleteContract(ctx context.Context, id string) error

	SaveExpense(ctx context.Context, e engine.Expense) error
	GetExpense(ctx context.Context, id string) (engine.Expense, error)
	ListExpenses(ctx context.Context) ([]engine.Expense, error)
	DeleteExpense(ctx context.Context, id string) error

	SaveTaxObligation(ctx context.Context, t engine.TaxObligation) error
	ListTaxObligations(ctx context.Context) ([]engine.TaxObligation, error)

	SaveHoliday(ctx context.Context, h calendar.Holiday) error
	DeleteHoliday(ctx context.Context, id string) error
	ListHolidays(ctx context.Context) ([]calendar.Holiday, error)

	// Reset removes every record.
	Reset(ctx context.Context) error
}
