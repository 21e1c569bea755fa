package engine

import (
	"github.com/tjpa/sgf-engine/calendar"
)

// =============================================================================
// STATUS CLASSIFIER
// =============================================================================

// DeriveStatus classifies an obligation due on limit as of today.
//
//	paid                               -> PAGO
//	days remaining < 0                 -> EM_ATRASO
//	0 <= days remaining <= window      -> CRITICO
//	days remaining > window            -> A_VENCER
//
// Due today is CRITICO, not overdue.
func (e *Engine) DeriveStatus(limit calendar.Date, paid bool, today calendar.Date) EntryStatus {
	return ClassifyStatus(limit, paid, today, e.opts.CriticalWindowDays)
}

// ClassifyStatus is DeriveStatus with an explicit critical window.
func ClassifyStatus(limit calendar.Date, paid bool, today calendar.Date, criticalWindowDays int) EntryStatus {
	if paid {
		return StatusPaid
	}
	diff := calendar.DaysBetween(today, limit)
	switch {
	case diff < 0:
		return StatusOverdue
	case diff <= criticalWindowDays:
		return StatusCritical
	default:
		return StatusUpcoming
	}
}

// ExpenseStatus derives the status of an expense.
func (e *Engine) ExpenseStatus(exp Expense, today calendar.Date) EntryStatus {
	return e.DeriveStatus(exp.LimitDate, exp.Paid, today)
}

// TaxStatus derives the status of a tax obligation.
func (e *Engine) TaxStatus(tax TaxObligation, today calendar.Date) EntryStatus {
	return e.DeriveStatus(tax.FixedDueDate, tax.Paid, today)
}
