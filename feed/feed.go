/*
Package feed assembles the compliance and alert feed shown on the dashboard.

PURPOSE:
  Given a snapshot of contracts, expenses and tax obligations, runs the rule
  engine over every entry and returns the alerts that are active today,
  the derived status of every obligation and the dashboard KPIs.

ALERT SOURCES:
  1. Deadline alerts for unpaid obligations that are not yet overdue; only
     alerts whose trigger date has arrived are active
  2. Compliance alerts for unpaid expenses that overrun their contract
  3. Contract expiry alerts for contracts ending inside the expiry window
  4. Readjustment risk alerts for contracts due for index readjustment

The feed is a pure function of (snapshot, now). Nothing is cached or
persisted; building twice yields equal feeds with different alert ids.
*/
package feed

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tjpa/sgf-engine/calendar"
	"github.com/tjpa/sgf-engine/engine"
)

// Options controls the contract-level alerts.
type Options struct {
	// ExpiryWindowDays: contracts ending within this many days raise an
	// expiry alert and count as "expiring soon".
	ExpiryWindowDays int
	// ExpiryHighDays and ExpiryMediumDays grade expiry alerts.
	ExpiryHighDays   int
	ExpiryMediumDays int
	// ReadjustmentWindowDays: contracts whose readjustment date falls within
	// this many days raise a Risk alert.
	ReadjustmentWindowDays int
}

func DefaultOptions() Options {
	return Options{
		ExpiryWindowDays:       60,
		ExpiryHighDays:         15,
		ExpiryMediumDays:       30,
		ReadjustmentWindowDays: 30,
	}
}

// Snapshot is the state the feed is computed from.
type Snapshot struct {
	Contracts []engine.Contract
	Expenses  []engine.Expense
	Taxes     []engine.TaxObligation
}

// EntryKind distinguishes the obligations carried in a feed.
type EntryKind string

const (
	KindExpense EntryKind = "expense"
	KindTax     EntryKind = "tax"
)

// Entry is one obligation with its derived status.
type Entry struct {
	EntityID      string
	Kind          EntryKind
	Description   string
	LimitDate     calendar.Date
	Amount        decimal.Decimal
	Status        engine.EntryStatus
	DaysRemaining int
}

// Summary carries the dashboard KPIs.
type Summary struct {
	CriticalAlerts    int
	ExpiringContracts int
	PendingExpenses   int
	OverdueEntries    int
	TotalGlobalValue  decimal.Decimal
	TotalBalance      decimal.Decimal
	PendingTaxAmount  decimal.Decimal
}

// Feed is the result of a build.
type Feed struct {
	GeneratedAt time.Time
	Today       calendar.Date
	Alerts      []engine.Alert
	Entries     []Entry
	Summary     Summary
}

// Builder runs the engine over snapshots.
type Builder struct {
	Engine  *engine.Engine
	Options Options
}

func NewBuilder(e *engine.Engine, opts Options) *Builder {
	return &Builder{Engine: e, Options: opts}
}

// Build computes the feed as of now. today is the calendar day of now in
// now's own location.
func (b *Builder) Build(s Snapshot, now time.Time) Feed {
	today := calendar.FromTime(now)
	f := Feed{
		GeneratedAt: now,
		Today:       today,
		Summary: Summary{
			TotalGlobalValue: decimal.Zero,
			TotalBalance:     decimal.Zero,
			PendingTaxAmount: decimal.Zero,
		},
	}

	contracts := make(map[string]*engine.Contract, len(s.Contracts))
	for i := range s.Contracts {
		c := &s.Contracts[i]
		contracts[c.ID] = c
		f.Summary.TotalGlobalValue = f.Summary.TotalGlobalValue.Add(c.GlobalValue)
		f.Summary.TotalBalance = f.Summary.TotalBalance.Add(c.Balance)
		f.Alerts = append(f.Alerts, b.contractAlerts(*c, today, &f.Summary)...)
	}

	for _, exp := range s.Expenses {
		status := b.Engine.ExpenseStatus(exp, today)
		f.Entries = append(f.Entries, Entry{
			EntityID:      exp.ID,
			Kind:          KindExpense,
			Description:   exp.Description,
			LimitDate:     exp.LimitDate,
			Amount:        exp.Amount,
			Status:        status,
			DaysRemaining: calendar.DaysBetween(today, exp.LimitDate),
		})
		if exp.Paid {
			continue
		}
		f.Summary.PendingExpenses++
		if status == engine.StatusOverdue {
			f.Summary.OverdueEntries++
		} else {
			f.Alerts = append(f.Alerts, b.activeDeadlines(exp.LimitDate, exp.ID, exp.Description, today)...)
		}
		if exp.ContractID != "" {
			if alert := b.Engine.ValidateCompliance(exp, contracts[exp.ContractID], now); alert != nil {
				f.Alerts = append(f.Alerts, *alert)
			}
		}
	}

	for _, tax := range s.Taxes {
		status := b.Engine.TaxStatus(tax, today)
		amount := decimal.Zero
		if tax.Amount.Valid {
			amount = tax.Amount.Decimal
		}
		desc := taxDescription(tax)
		f.Entries = append(f.Entries, Entry{
			EntityID:      tax.ID,
			Kind:          KindTax,
			Description:   desc,
			LimitDate:     tax.FixedDueDate,
			Amount:        amount,
			Status:        status,
			DaysRemaining: calendar.DaysBetween(today, tax.FixedDueDate),
		})
		if tax.Paid {
			continue
		}
		f.Summary.PendingTaxAmount = f.Summary.PendingTaxAmount.Add(amount)
		if status == engine.StatusOverdue {
			f.Summary.OverdueEntries++
			continue
		}
		f.Alerts = append(f.Alerts, b.activeDeadlines(tax.FixedDueDate, tax.ID, desc, today)...)
	}

	SortAlerts(f.Alerts)
	for _, a := range f.Alerts {
		if a.Severity == engine.SeverityHigh {
			f.Summary.CriticalAlerts++
		}
	}
	sort.SliceStable(f.Entries, func(i, j int) bool {
		return f.Entries[i].LimitDate.Before(f.Entries[j].LimitDate)
	})
	return f
}

// activeDeadlines keeps the deadline alerts whose trigger date has arrived.
func (b *Builder) activeDeadlines(due calendar.Date, entityID, description string, today calendar.Date) []engine.Alert {
	var out []engine.Alert
	for _, a := range b.Engine.GenerateDeadlineAlerts(due, entityID, description) {
		if !calendar.FromTime(a.Date).After(today) {
			out = append(out, a)
		}
	}
	return out
}

func (b *Builder) contractAlerts(c engine.Contract, today calendar.Date, sum *Summary) []engine.Alert {
	var out []engine.Alert

	if !c.EndDate.IsZero() {
		left := calendar.DaysBetween(today, c.EndDate)
		if left > 0 && left <= b.Options.ExpiryWindowDays {
			sum.ExpiringContracts++
			out = append(out, engine.Alert{
				ID:              b.Engine.NewID(),
				Type:            engine.AlertDeadlines,
				Severity:        b.expirySeverity(left),
				Message:         fmt.Sprintf("Prazo Fatal: O contrato %s expira em %d dias.", c.ContractNumber, left),
				Date:            today.Time(),
				RelatedEntityID: c.ID,
			})
		}
	}

	if !c.ReadjustmentDate.IsZero() {
		left := calendar.DaysBetween(today, c.ReadjustmentDate)
		if left >= 0 && left <= b.Options.ReadjustmentWindowDays {
			out = append(out, engine.Alert{
				ID:       b.Engine.NewID(),
				Type:     engine.AlertRisk,
				Severity: engine.SeverityMedium,
				Message: fmt.Sprintf("Aviso de Reajuste: O contrato %s tem reajuste pelo índice %s em %s. Necessária revisão de equilíbrio econômico-financeiro.",
					c.ContractNumber, c.Index, c.ReadjustmentDate.Display()),
				Date:            c.ReadjustmentDate.Time(),
				RelatedEntityID: c.ID,
			})
		}
	}
	return out
}

func (b *Builder) expirySeverity(daysLeft int) engine.Severity {
	switch {
	case daysLeft <= b.Options.ExpiryHighDays:
		return engine.SeverityHigh
	case daysLeft <= b.Options.ExpiryMediumDays:
		return engine.SeverityMedium
	default:
		return engine.SeverityLow
	}
}

func taxDescription(t engine.TaxObligation) string {
	if t.RevenueCode == "" {
		return fmt.Sprintf("%s %s", t.Type, t.Periodicity)
	}
	return fmt.Sprintf("%s %s (código %s)", t.Type, t.Periodicity, t.RevenueCode)
}

// SortAlerts orders alerts by severity (High first), then date, then entity.
func SortAlerts(alerts []engine.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.RelatedEntityID < b.RelatedEntityID
	})
}

// Filter returns the alerts matching severity and type. Empty values match all.
func Filter(alerts []engine.Alert, severity engine.Severity, typ engine.AlertType) []engine.Alert {
	out := make([]engine.Alert, 0, len(alerts))
	for _, a := range alerts {
		if severity != "" && a.Severity != severity {
			continue
		}
		if typ != "" && a.Type != typ {
			continue
		}
		out = append(out, a)
	}
	return out
}

// EntriesWithStatus returns the entries with the given status.
func EntriesWithStatus(entries []Entry, status engine.EntryStatus) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out
}
