package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjpa/sgf-engine/calendar"
	"github.com/tjpa/sgf-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestEngine(t *testing.T, holidays ...calendar.Holiday) *engine.Engine {
	t.Helper()
	e, err := engine.New(calendar.New(calendar.NewSet(holidays...)), engine.NewSequence("alert"), engine.DefaultOptions())
	require.NoError(t, err)
	return e
}

func date(y int, m time.Month, d int) calendar.Date {
	return calendar.NewDate(y, m, d)
}

func brl(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// =============================================================================
// DEADLINE ALERTS
// =============================================================================

func TestGenerateDeadlineAlerts_PlainMonday(t *testing.T) {
	// GIVEN: due date 2024-05-20 (Monday), no holidays nearby
	// WHEN: generating deadline alerts
	// THEN: 10th/15th are working days and stay; the 19th is a Sunday and
	//       moves back to Friday the 17th
	e := newTestEngine(t)

	alerts := e.GenerateDeadlineAlerts(date(2024, time.May, 20), "exp-1", "Fatura Telecom")
	require.Len(t, alerts, 3)

	assert.Equal(t, date(2024, time.May, 10).Time(), alerts[0].Date)
	assert.Equal(t, engine.SeverityLow, alerts[0].Severity)

	assert.Equal(t, date(2024, time.May, 15).Time(), alerts[1].Date)
	assert.Equal(t, engine.SeverityMedium, alerts[1].Severity)

	assert.Equal(t, date(2024, time.May, 17).Time(), alerts[2].Date)
	assert.Equal(t, engine.SeverityHigh, alerts[2].Severity)

	for _, a := range alerts {
		assert.Equal(t, engine.AlertDeadlines, a.Type)
		assert.Equal(t, "exp-1", a.RelatedEntityID)
	}
	assert.Equal(t, "Alerta Antecipado: Fatura Telecom vence em 10 dias.", alerts[0].Message)
	assert.Equal(t, "Alerta Antecipado: Fatura Telecom vence em 1 dias.", alerts[2].Message)
}

func TestGenerateDeadlineAlerts_RawDatesKeptOnWorkingDays(t *testing.T) {
	// Due Thursday 2024-05-23: raw dates 13 (Mon), 18 (Sat), 22 (Wed)
	e := newTestEngine(t)

	alerts := e.GenerateDeadlineAlerts(date(2024, time.May, 23), "exp-2", "Folha")
	require.Len(t, alerts, 3)
	assert.Equal(t, date(2024, time.May, 13).Time(), alerts[0].Date)
	assert.Equal(t, date(2024, time.May, 17).Time(), alerts[1].Date, "saturday moves to friday")
	assert.Equal(t, date(2024, time.May, 22).Time(), alerts[2].Date)
}

func TestGenerateDeadlineAlerts_HolidayMondayWalksPastWeekend(t *testing.T) {
	// GIVEN: due Tuesday 2024-02-13 and a holiday on Monday 2024-02-12
	// WHEN: the 1-day alert lands on the holiday
	// THEN: it walks back past the holiday and the weekend to Friday 2024-02-09
	e := newTestEngine(t, calendar.Holiday{ID: "carnaval", Date: date(2024, time.February, 12), Name: "Carnaval"})

	alerts := e.GenerateDeadlineAlerts(date(2024, time.February, 13), "exp-3", "Diárias")
	require.Len(t, alerts, 3)
	assert.Equal(t, engine.SeverityHigh, alerts[2].Severity)
	assert.Equal(t, date(2024, time.February, 9).Time(), alerts[2].Date)
}

func TestGenerateDeadlineAlerts_OrderAndUniqueness(t *testing.T) {
	// For every due date of 2024, Low < Medium < High in date order and
	// no alert lands on a non-working day.
	holidays := []calendar.Holiday{
		{ID: "h1", Date: date(2024, time.January, 1)},
		{ID: "h2", Date: date(2024, time.May, 1)},
		{ID: "h3", Date: date(2024, time.September, 7)},
		{ID: "h4", Date: date(2024, time.October, 12)},
		{ID: "h5", Date: date(2024, time.December, 25)},
	}
	e := newTestEngine(t, holidays...)
	cal := e.Calendar()
	seen := map[string]bool{}

	for d := date(2024, time.January, 1); d.Year() == 2024; d = d.AddDays(1) {
		alerts := e.GenerateDeadlineAlerts(d, "x", "x")
		require.Len(t, alerts, 3)
		assert.True(t, alerts[0].Date.Before(alerts[1].Date), "low before medium for %s", d)
		assert.True(t, alerts[1].Date.Before(alerts[2].Date), "medium before high for %s", d)
		assert.True(t, alerts[2].Date.Before(d.Time()), "all alerts before the due date")
		for _, a := range alerts {
			assert.False(t, cal.IsNonWorkingDay(calendar.FromTime(a.Date)))
			assert.False(t, seen[a.ID], "duplicate id %s", a.ID)
			seen[a.ID] = true
		}
	}
}

func TestGenerateDeadlineAlerts_RepeatedCallsNotDeduplicated(t *testing.T) {
	e := newTestEngine(t)
	due := date(2024, time.May, 20)

	first := e.GenerateDeadlineAlerts(due, "exp-1", "Fatura")
	second := e.GenerateDeadlineAlerts(due, "exp-1", "Fatura")

	require.Len(t, second, len(first))
	for i := range first {
		assert.NotEqual(t, first[i].ID, second[i].ID)
		first[i].ID, second[i].ID = "", ""
		assert.Equal(t, first[i], second[i])
	}
}

func TestGenerateDeadlineAlertsFor_InvalidDate(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.GenerateDeadlineAlertsFor("20/05/2024", "exp-1", "Fatura")
	require.Error(t, err)
	var invalid *calendar.InvalidDateError
	assert.ErrorAs(t, err, &invalid)

	alerts, err := e.GenerateDeadlineAlertsFor("2024-05-20T00:00:00.000Z", "exp-1", "Fatura")
	require.NoError(t, err)
	assert.Len(t, alerts, 3)
}

func TestGenerateDeadlineAlerts_CustomSchedule(t *testing.T) {
	opts := engine.Options{
		Offsets:            []int{30, 3},
		SeverityByOffset:   map[int]engine.Severity{30: engine.SeverityMedium, 3: engine.SeverityHigh},
		CriticalWindowDays: 5,
	}
	e, err := engine.New(calendar.New(nil), engine.NewSequence("c"), opts)
	require.NoError(t, err)

	alerts := e.GenerateDeadlineAlerts(date(2024, time.June, 28), "exp-9", "Obra")
	require.Len(t, alerts, 2)
	assert.Equal(t, date(2024, time.May, 29).Time(), alerts[0].Date)
	assert.Equal(t, engine.SeverityMedium, alerts[0].Severity)
	assert.Equal(t, date(2024, time.June, 25).Time(), alerts[1].Date)
	assert.Equal(t, "c-1", alerts[0].ID)
	assert.Equal(t, "c-2", alerts[1].ID)
}

// =============================================================================
// OPTIONS
// =============================================================================

func TestOptions_Validate(t *testing.T) {
	require.NoError(t, engine.DefaultOptions().Validate())

	cases := map[string]engine.Options{
		"empty":        {SeverityByOffset: map[int]engine.Severity{}},
		"non-positive": {Offsets: []int{0}, SeverityByOffset: map[int]engine.Severity{0: engine.SeverityLow}},
		"repeated":     {Offsets: []int{5, 5}, SeverityByOffset: map[int]engine.Severity{5: engine.SeverityLow}},
		"unmapped":     {Offsets: []int{7}, SeverityByOffset: map[int]engine.Severity{}},
		"bad severity": {Offsets: []int{7}, SeverityByOffset: map[int]engine.Severity{7: "Extreme"}},
		"negative window": {
			Offsets: []int{1}, SeverityByOffset: map[int]engine.Severity{1: engine.SeverityHigh}, CriticalWindowDays: -1,
		},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			err := opts.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, engine.ErrInvalidOptions))

			_, err = engine.New(nil, nil, opts)
			assert.ErrorIs(t, err, engine.ErrInvalidOptions)
		})
	}
}

func TestEngine_OptionsAreCopied(t *testing.T) {
	opts := engine.DefaultOptions()
	e, err := engine.New(nil, nil, opts)
	require.NoError(t, err)

	opts.Offsets[0] = 99
	opts.SeverityByOffset[1] = engine.SeverityLow

	got := e.Options()
	assert.Equal(t, []int{10, 5, 1}, got.Offsets)
	assert.Equal(t, engine.SeverityHigh, got.SeverityByOffset[1])
}

// =============================================================================
// STATUS CLASSIFIER
// =============================================================================

func TestDeriveStatus_Boundaries(t *testing.T) {
	e := newTestEngine(t)
	today := date(2024, time.May, 15)

	assert.Equal(t, engine.StatusCritical, e.DeriveStatus(date(2024, time.May, 17), false, today), "2 days left")
	assert.Equal(t, engine.StatusUpcoming, e.DeriveStatus(date(2024, time.May, 18), false, today), "3 days left")
	assert.Equal(t, engine.StatusOverdue, e.DeriveStatus(date(2024, time.May, 14), false, today), "1 day late")
	assert.Equal(t, engine.StatusCritical, e.DeriveStatus(today, false, today), "due today")
}

func TestDeriveStatus_PaidShortCircuits(t *testing.T) {
	e := newTestEngine(t)
	today := date(2024, time.May, 15)

	for _, limit := range []calendar.Date{date(2020, time.January, 1), today, date(2030, time.December, 31)} {
		assert.Equal(t, engine.StatusPaid, e.DeriveStatus(limit, true, today))
	}
}

func TestDeriveStatus_Deterministic(t *testing.T) {
	e := newTestEngine(t)
	today := date(2024, time.May, 15)
	limit := date(2024, time.May, 16)
	assert.Equal(t, e.DeriveStatus(limit, false, today), e.DeriveStatus(limit, false, today))
}

func TestClassifyStatus_CustomWindow(t *testing.T) {
	today := date(2024, time.May, 15)
	assert.Equal(t, engine.StatusCritical, engine.ClassifyStatus(date(2024, time.May, 22), false, today, 7))
	assert.Equal(t, engine.StatusUpcoming, engine.ClassifyStatus(date(2024, time.May, 23), false, today, 7))
	assert.Equal(t, engine.StatusCritical, engine.ClassifyStatus(today, false, today, 0))
	assert.Equal(t, engine.StatusUpcoming, engine.ClassifyStatus(date(2024, time.May, 16), false, today, 0))
}

func TestExpenseAndTaxStatus(t *testing.T) {
	e := newTestEngine(t)
	today := date(2024, time.May, 15)

	exp := engine.Expense{ID: "e1", LimitDate: date(2024, time.May, 10)}
	assert.Equal(t, engine.StatusOverdue, e.ExpenseStatus(exp, today))
	exp.Paid = true
	assert.Equal(t, engine.StatusPaid, e.ExpenseStatus(exp, today))

	tax := engine.TaxObligation{ID: "t1", FixedDueDate: date(2024, time.June, 4)}
	assert.Equal(t, engine.StatusUpcoming, e.TaxStatus(tax, today))
}

func TestParseStatus(t *testing.T) {
	s, ok := engine.ParseStatus("EM_ATRASO")
	assert.True(t, ok)
	assert.Equal(t, engine.StatusOverdue, s)

	s, ok = engine.ParseStatus("Crítico")
	assert.True(t, ok)
	assert.Equal(t, engine.StatusCritical, s)

	_, ok = engine.ParseStatus("late")
	assert.False(t, ok)
}

// =============================================================================
// BALANCE COMPLIANCE
// =============================================================================

func TestValidateCompliance_Overrun(t *testing.T) {
	e := newTestEngine(t)
	now := time.Date(2024, time.May, 15, 10, 30, 0, 0, time.UTC)

	exp := engine.Expense{ID: "e1", Amount: brl(500000), ContractID: "c1"}
	contract := &engine.Contract{ID: "c1", ContractNumber: "PE-045/2023", Balance: brl(450000)}

	alert := e.ValidateCompliance(exp, contract, now)
	require.NotNil(t, alert)
	assert.Equal(t, engine.AlertCompliance, alert.Type)
	assert.Equal(t, engine.SeverityHigh, alert.Severity)
	assert.Equal(t, "e1", alert.RelatedEntityID)
	assert.Equal(t, now, alert.Date)
	assert.NotEmpty(t, alert.ID)
	assert.Equal(t,
		"Risco de Compliance: Despesa de R$ 500.000,00 excede o saldo do contrato PE-045/2023 (Saldo: R$ 450.000,00).",
		alert.Message)
}

func TestValidateCompliance_EqualIsCompliant(t *testing.T) {
	e := newTestEngine(t)
	exp := engine.Expense{ID: "e1", Amount: brl(450000)}
	contract := &engine.Contract{ID: "c1", Balance: brl(450000)}
	assert.Nil(t, e.ValidateCompliance(exp, contract, time.Now()))
}

func TestValidateCompliance_NoContract(t *testing.T) {
	e := newTestEngine(t)
	exp := engine.Expense{ID: "e1", Amount: brl(1)}
	assert.Nil(t, e.ValidateCompliance(exp, nil, time.Now()))
}

func TestValidateCompliance_FractionalCents(t *testing.T) {
	e := newTestEngine(t)
	exp := engine.Expense{ID: "e1", Amount: decimal.RequireFromString("450000.01")}
	contract := &engine.Contract{ID: "c1", ContractNumber: "X", Balance: brl(450000)}
	assert.NotNil(t, e.ValidateCompliance(exp, contract, time.Now()))
}

func TestValidateCompliance_NegativeValuesComparedAsGiven(t *testing.T) {
	// Value sanity belongs to the owning layer; the checker only compares.
	e := newTestEngine(t)
	now := time.Now()

	negAmount := engine.Expense{ID: "e1", Amount: brl(-10)}
	assert.Nil(t, e.ValidateCompliance(negAmount, &engine.Contract{Balance: brl(0)}, now))

	negBalance := engine.Expense{ID: "e2", Amount: brl(0)}
	assert.NotNil(t, e.ValidateCompliance(negBalance, &engine.Contract{Balance: brl(-1)}, now))
}

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "R$ 0,00", engine.FormatBRL(decimal.Zero))
	assert.Equal(t, "R$ 999,50", engine.FormatBRL(decimal.RequireFromString("999.5")))
	assert.Equal(t, "R$ 1.000,00", engine.FormatBRL(brl(1000)))
	assert.Equal(t, "R$ 2.500.000,00", engine.FormatBRL(brl(2500000)))
	assert.Equal(t, "R$ -45.000,00", engine.FormatBRL(brl(-45000)))
}

// =============================================================================
// ID GENERATORS
// =============================================================================

func TestIDGenerators(t *testing.T) {
	seq := engine.NewSequence("a")
	assert.Equal(t, "a-1", seq.NewID())
	assert.Equal(t, "a-2", seq.NewID())

	u := engine.UUIDs{}
	assert.Len(t, u.NewID(), 36)
	assert.NotEqual(t, u.NewID(), u.NewID())
}
