/*
Package engine implements the deadline and compliance rules of the finance
office.

PURPOSE:
  Three independent, deterministic computations over snapshots handed in by
  the caller:
  1. Deadline alerts: a retroaction schedule of pre-due notices
  2. Status classification: where an obligation stands relative to today
  3. Balance compliance: whether an expense overruns its contract's balance

KEY CONCEPTS IN THIS FILE (types.go):
  - AlertType, Severity, EntryStatus: closed enumerations
  - Alert: computed notice, created fresh on every call
  - Contract, Expense, TaxObligation: read-only inputs owned by the caller

DESIGN PRINCIPLES:
  1. No hidden clock: "now" and "today" are parameters
  2. No hidden randomness: alert ids come from an injected IDGenerator
  3. Precision: money is decimal.Decimal, never float64

SEE ALSO:
  - options.go: Retroaction offsets, severity mapping, critical window
  - deadlines.go, status.go, compliance.go: The rules themselves
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tjpa/sgf-engine/calendar"
)

// =============================================================================
// ENUMERATIONS
// =============================================================================

type AlertType string

const (
	AlertDeadlines  AlertType = "Deadlines"
	AlertCompliance AlertType = "Compliance"
	AlertRisk       AlertType = "Risk"
)

func (t AlertType) Valid() bool {
	switch t {
	case AlertDeadlines, AlertCompliance, AlertRisk:
		return true
	}
	return false
}

type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// Rank orders severities: High > Medium > Low. Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// EntryStatus is the timeliness of a financial obligation. It is always
// derived, never stored.
type EntryStatus string

const (
	StatusUpcoming EntryStatus = "A Vencer"
	StatusPaid     EntryStatus = "Pago"
	StatusOverdue  EntryStatus = "Em Atraso"
	StatusCritical EntryStatus = "Crítico"
)

func (s EntryStatus) Valid() bool {
	switch s {
	case StatusUpcoming, StatusPaid, StatusOverdue, StatusCritical:
		return true
	}
	return false
}

// ParseStatus accepts the display label ("Em Atraso") or the constant name
// ("EM_ATRASO").
func ParseStatus(s string) (EntryStatus, bool) {
	switch s {
	case string(StatusUpcoming), "A_VENCER":
		return StatusUpcoming, true
	case string(StatusPaid), "PAGO":
		return StatusPaid, true
	case string(StatusOverdue), "EM_ATRASO":
		return StatusOverdue, true
	case string(StatusCritical), "CRITICO":
		return StatusCritical, true
	}
	return "", false
}

// =============================================================================
// ALERT - Engine output
// =============================================================================

// Alert is a computed notice. Date is the alert's own trigger date, not the
// date of the obligation that produced it.
type Alert struct {
	ID              string
	Type            AlertType
	Severity        Severity
	Message         string
	Date            time.Time
	RelatedEntityID string
}

// =============================================================================
// INPUTS - Snapshots owned by the hosting application
// =============================================================================

type IndexType string

const (
	IndexIPCA  IndexType = "IPCA"
	IndexIGPM  IndexType = "IGPM"
	IndexSELIC IndexType = "SELIC"
)

// Contract is a supplier contract. Balance is what remains of GlobalValue.
type Contract struct {
	ID                 string
	ContractNumber     string
	Provider           string
	ProviderIdentifier string // CNPJ or CPF
	Object             string
	GlobalValue        decimal.Decimal
	Balance            decimal.Decimal
	StartDate          calendar.Date
	EndDate            calendar.Date
	ReadjustmentDate   calendar.Date
	Index              IndexType
	Category           string
	FiscalName         string
}

type ExpenseType string

const (
	ExpenseSuppliers ExpenseType = "Fornecedores"
	ExpensePayroll   ExpenseType = "Folha"
	ExpenseDaily     ExpenseType = "Diárias"
)

// Expense is an invoice or payment document under liquidation.
type Expense struct {
	ID                 string
	Type               ExpenseType
	LiquidationDate    calendar.Date
	LimitDate          calendar.Date
	ContractID         string // empty when not linked
	Amount             decimal.Decimal
	Description        string
	Paid               bool
	ProviderIdentifier string
	InvoiceNumber      string
}

type TaxType string

const (
	TaxDARF      TaxType = "DARF"
	TaxGPS       TaxType = "GPS"
	TaxISS       TaxType = "ISS"
	TaxPISCOFINS TaxType = "PIS/COFINS"
	TaxINSS      TaxType = "INSS"
)

type Periodicity string

const (
	PeriodicityMonthly   Periodicity = "Mensal"
	PeriodicityQuarterly Periodicity = "Trimestral"
	PeriodicityYearly    Periodicity = "Anual"
)

// TaxObligation is a recurring tax payment with a fixed due date.
type TaxObligation struct {
	ID           string
	Type         TaxType
	Periodicity  Periodicity
	FixedDueDate calendar.Date
	RevenueCode  string
	Amount       decimal.NullDecimal
	Paid         bool
}
