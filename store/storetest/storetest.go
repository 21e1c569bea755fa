// Package storetest holds the behavior every store.Store must share.
// Implementations call Run from their own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjpa/sgf-engine/calendar"
	"github.com/tjpa/sgf-engine/engine"
	"github.com/tjpa/sgf-engine/store"
)

// Run exercises s. newStore must return an empty store each call.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("contracts", func(t *testing.T) { testContracts(t, newStore(t)) })
	t.Run("expenses", func(t *testing.T) { testExpenses(t, newStore(t)) })
	t.Run("taxes", func(t *testing.T) { testTaxes(t, newStore(t)) })
	t.Run("holidays", func(t *testing.T) { testHolidays(t, newStore(t)) })
	t.Run("reset", func(t *testing.T) { testReset(t, newStore(t)) })
}

func sampleContract() engine.Contract {
	return engine.Contract{
		ID:                 "c1",
		ContractNumber:     "PE-045/2023",
		Provider:           "Tech Solutions LTDA",
		ProviderIdentifier: "45.123.456/0001-89",
		Object:             "Manutenção de Datacenter",
		GlobalValue:        decimal.RequireFromString("1200000.00"),
		Balance:            decimal.RequireFromString("450000.55"),
		StartDate:          calendar.NewDate(2023, time.January, 1),
		EndDate:            calendar.NewDate(2024, time.December, 31),
		Index:              engine.IndexIPCA,
		Category:           "Tecnologia da Informação",
		FiscalName:         "Dr. Roberto Santos",
	}
}

func testContracts(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetContract(ctx, "c1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	c := sampleContract()
	require.NoError(t, s.SaveContract(ctx, c))

	got, err := s.GetContract(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, c.ContractNumber, got.ContractNumber)
	assert.True(t, c.Balance.Equal(got.Balance), "balance %s", got.Balance)
	assert.True(t, c.GlobalValue.Equal(got.GlobalValue))
	assert.Equal(t, c.EndDate, got.EndDate)
	assert.True(t, got.ReadjustmentDate.IsZero(), "zero dates survive")
	assert.Equal(t, engine.IndexIPCA, got.Index)

	// Save is an upsert
	c.Balance = decimal.NewFromInt(10)
	require.NoError(t, s.SaveContract(ctx, c))
	require.NoError(t, s.SaveContract(ctx, engine.Contract{ID: "c0", ContractNumber: "DL-012/2024"}))

	list, err := s.ListContracts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c0", list[0].ID)
	assert.True(t, decimal.NewFromInt(10).Equal(list[1].Balance))

	require.NoError(t, s.DeleteContract(ctx, "c1"))
	assert.ErrorIs(t, s.DeleteContract(ctx, "c1"), store.ErrNotFound)
}

func testExpenses(t *testing.T, s store.Store) {
	ctx := context.Background()

	late := engine.Expense{
		ID: "e2", Type: engine.ExpensePayroll, LimitDate: calendar.NewDate(2024, time.May, 30),
		Amount: decimal.NewFromInt(2500000), Description: "Folha Mensal",
	}
	early := engine.Expense{
		ID: "e1", Type: engine.ExpenseSuppliers, LimitDate: calendar.NewDate(2024, time.May, 20),
		LiquidationDate: calendar.NewDate(2024, time.May, 13), ContractID: "c1",
		Amount: decimal.RequireFromString("45000.10"), Description: "Fatura Telecom",
		Paid: true, ProviderIdentifier: "45.123.456/0001-89", InvoiceNumber: "202400102",
	}
	require.NoError(t, s.SaveExpense(ctx, late))
	require.NoError(t, s.SaveExpense(ctx, early))

	got, err := s.GetExpense(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ContractID)
	assert.True(t, got.Paid)
	assert.True(t, early.Amount.Equal(got.Amount))
	assert.Equal(t, early.LiquidationDate, got.LiquidationDate)
	assert.Equal(t, "202400102", got.InvoiceNumber)

	unlinked, err := s.GetExpense(ctx, "e2")
	require.NoError(t, err)
	assert.Empty(t, unlinked.ContractID)

	list, err := s.ListExpenses(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "e1", list[0].ID, "ordered by limit date")

	require.NoError(t, s.DeleteExpense(ctx, "e2"))
	_, err = s.GetExpense(ctx, "e2")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteExpense(ctx, "nope"), store.ErrNotFound)
}

func testTaxes(t *testing.T, s store.Store) {
	ctx := context.Background()

	require.NoError(t, s.SaveTaxObligation(ctx, engine.TaxObligation{
		ID: "t1", Type: engine.TaxDARF, Periodicity: engine.PeriodicityMonthly,
		FixedDueDate: calendar.NewDate(2024, time.June, 20), RevenueCode: "0561",
		Amount: decimal.NewNullDecimal(decimal.NewFromInt(125000)),
	}))
	require.NoError(t, s.SaveTaxObligation(ctx, engine.TaxObligation{
		ID: "t2", Type: engine.TaxISS, Periodicity: engine.PeriodicityYearly,
		FixedDueDate: calendar.NewDate(2024, time.June, 10),
	}))

	list, err := s.ListTaxObligations(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "t2", list[0].ID)
	assert.False(t, list[0].Amount.Valid, "absent amount stays absent")
	assert.True(t, list[1].Amount.Valid)
	assert.True(t, decimal.NewFromInt(125000).Equal(list[1].Amount.Decimal))
	assert.Equal(t, engine.TaxDARF, list[1].Type)
}

func testHolidays(t *testing.T, s store.Store) {
	ctx := context.Background()

	require.NoError(t, s.SaveHoliday(ctx, calendar.Holiday{
		ID: "labor-2024", Date: calendar.NewDate(2024, time.May, 1), Name: "Dia do Trabalho",
	}))
	require.NoError(t, s.SaveHoliday(ctx, calendar.Holiday{
		ID: "natal", Date: calendar.NewDate(2024, time.December, 25), Name: "Natal", Recurring: true,
	}))

	assert.True(t, s.IsHoliday(calendar.NewDate(2024, time.May, 1)))
	assert.False(t, s.IsHoliday(calendar.NewDate(2025, time.May, 1)))
	assert.True(t, s.IsHoliday(calendar.NewDate(2026, time.December, 25)))
	assert.False(t, s.IsHoliday(calendar.NewDate(2024, time.May, 2)))

	list, err := s.ListHolidays(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "labor-2024", list[0].ID)
	assert.True(t, list[1].Recurring)

	// The store drives a business calendar directly
	cal := calendar.New(s)
	assert.Equal(t, calendar.NewDate(2024, time.April, 30), cal.AdjustToWorkingDay(calendar.NewDate(2024, time.May, 1)))

	require.NoError(t, s.DeleteHoliday(ctx, "labor-2024"))
	assert.False(t, s.IsHoliday(calendar.NewDate(2024, time.May, 1)))
	assert.ErrorIs(t, s.DeleteHoliday(ctx, "labor-2024"), store.ErrNotFound)
}

func testReset(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveContract(ctx, sampleContract()))
	require.NoError(t, s.SaveExpense(ctx, engine.Expense{ID: "e1", LimitDate: calendar.NewDate(2024, time.May, 1)}))
	require.NoError(t, s.SaveHoliday(ctx, calendar.Holiday{ID: "h", Date: calendar.NewDate(2024, time.May, 1), Name: "x"}))

	require.NoError(t, s.Reset(ctx))

	contracts, err := s.ListContracts(ctx)
	require.NoError(t, err)
	assert.Empty(t, contracts)
	expenses, err := s.ListExpenses(ctx)
	require.NoError(t, err)
	assert.Empty(t, expenses)
	assert.False(t, s.IsHoliday(calendar.NewDate(2024, time.May, 1)))
}
