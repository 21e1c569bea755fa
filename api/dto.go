/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Engine types carry no
  JSON tags; everything that crosses the wire is mapped here.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

DATES:
  Calendar dates are "YYYY-MM-DD". Alert timestamps are RFC3339. Both come
  with a "display" twin in dd/MM/yyyy where the dashboard shows them.

MONEY:
  decimal.Decimal marshals as a JSON string ("450000.55") and accepts both
  strings and numbers on input.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tjpa/sgf-engine/calendar"
	"github.com/tjpa/sgf-engine/engine"
	"github.com/tjpa/sgf-engine/feed"
)

// =============================================================================
// CONTRACTS
// =============================================================================

// ContractDTO represents a contract in API responses.
type ContractDTO struct {
	ID                 string          `json:"id"`
	ContractNumber     string          `json:"contract_number"`
	Provider           string          `json:"provider"`
	ProviderIdentifier string          `json:"provider_identifier"`
	Object             string          `json:"object"`
	GlobalValue        decimal.Decimal `json:"global_value"`
	Balance            decimal.Decimal `json:"balance"`
	StartDate          calendar.Date   `json:"start_date"`
	EndDate            calendar.Date   `json:"end_date"`
	EndDateDisplay     string          `json:"end_date_display,omitempty"`
	ReadjustmentDate   calendar.Date   `json:"readjustment_date"`
	Index              string          `json:"index"`
	Category           string          `json:"category"`
	FiscalName         string          `json:"fiscal_name"`
	DaysToExpiry       *int            `json:"days_to_expiry,omitempty"`
}

// ContractRequest is the body of contract create/update.
type ContractRequest struct {
	ID                 string          `json:"id"`
	ContractNumber     string          `json:"contract_number"`
	Provider           string          `json:"provider"`
	ProviderIdentifier string          `json:"provider_identifier"`
	Object             string          `json:"object"`
	GlobalValue        decimal.Decimal `json:"global_value"`
	Balance            decimal.Decimal `json:"balance"`
	StartDate          calendar.Date   `json:"start_date"`
	EndDate            calendar.Date   `json:"end_date"`
	ReadjustmentDate   calendar.Date   `json:"readjustment_date"`
	Index              string          `json:"index"`
	Category           string          `json:"category"`
	FiscalName         string          `json:"fiscal_name"`
}

func (r ContractRequest) toContract() engine.Contract {
	return engine.Contract{
		ID:                 r.ID,
		ContractNumber:     r.ContractNumber,
		Provider:           r.Provider,
		ProviderIdentifier: r.ProviderIdentifier,
		Object:             r.Object,
		GlobalValue:        r.GlobalValue,
		Balance:            r.Balance,
		StartDate:          r.StartDate,
		EndDate:            r.EndDate,
		ReadjustmentDate:   r.ReadjustmentDate,
		Index:              engine.IndexType(r.Index),
		Category:           r.Category,
		FiscalName:         r.FiscalName,
	}
}

func toContractDTO(c engine.Contract, today calendar.Date) ContractDTO {
	dto := ContractDTO{
		ID:                 c.ID,
		ContractNumber:     c.ContractNumber,
		Provider:           c.Provider,
		ProviderIdentifier: c.ProviderIdentifier,
		Object:             c.Object,
		GlobalValue:        c.GlobalValue,
		Balance:            c.Balance,
		StartDate:          c.StartDate,
		EndDate:            c.EndDate,
		ReadjustmentDate:   c.ReadjustmentDate,
		Index:              string(c.Index),
		Category:           c.Category,
		FiscalName:         c.FiscalName,
	}
	if !c.EndDate.IsZero() {
		days := calendar.DaysBetween(today, c.EndDate)
		dto.DaysToExpiry = &days
		dto.EndDateDisplay = c.EndDate.Display()
	}
	return dto
}

// =============================================================================
// EXPENSES
// =============================================================================

// ExpenseDTO represents an expense with its derived status.
type ExpenseDTO struct {
	ID                 string             `json:"id"`
	Type               string             `json:"type"`
	LiquidationDate    calendar.Date      `json:"liquidation_date"`
	LimitDate          calendar.Date      `json:"limit_date"`
	LimitDateDisplay   string             `json:"limit_date_display"`
	ContractID         string             `json:"contract_id,omitempty"`
	Amount             decimal.Decimal    `json:"amount"`
	Description        string             `json:"description"`
	Paid               bool               `json:"paid"`
	ProviderIdentifier string             `json:"provider_identifier,omitempty"`
	InvoiceNumber      string             `json:"invoice_number,omitempty"`
	Status             engine.EntryStatus `json:"status"`
	DaysRemaining      int                `json:"days_remaining"`
}

// ExpenseRequest is the body of expense create/update. Status is never
// accepted; it is derived.
type ExpenseRequest struct {
	ID                 string          `json:"id"`
	Type               string          `json:"type"`
	LiquidationDate    calendar.Date   `json:"liquidation_date"`
	LimitDate          calendar.Date   `json:"limit_date"`
	ContractID         string          `json:"contract_id"`
	Amount             decimal.Decimal `json:"amount"`
	Description        string          `json:"description"`
	Paid               bool            `json:"paid"`
	ProviderIdentifier string          `json:"provider_identifier"`
	InvoiceNumber      string          `json:"invoice_number"`
}

func (r ExpenseRequest) toExpense() engine.Expense {
	return engine.Expense{
		ID:                 r.ID,
		Type:               engine.ExpenseType(r.Type),
		LiquidationDate:    r.LiquidationDate,
		LimitDate:          r.LimitDate,
		ContractID:         r.ContractID,
		Amount:             r.Amount,
		Description:        r.Description,
		Paid:               r.Paid,
		ProviderIdentifier: r.ProviderIdentifier,
		InvoiceNumber:      r.InvoiceNumber,
	}
}

func toExpenseDTO(e engine.Expense, status engine.EntryStatus, today calendar.Date) ExpenseDTO {
	return ExpenseDTO{
		ID:                 e.ID,
		Type:               string(e.Type),
		LiquidationDate:    e.LiquidationDate,
		LimitDate:          e.LimitDate,
		LimitDateDisplay:   e.LimitDate.Display(),
		ContractID:         e.ContractID,
		Amount:             e.Amount,
		Description:        e.Description,
		Paid:               e.Paid,
		ProviderIdentifier: e.ProviderIdentifier,
		InvoiceNumber:      e.InvoiceNumber,
		Status:             status,
		DaysRemaining:      calendar.DaysBetween(today, e.LimitDate),
	}
}

// =============================================================================
// TAX OBLIGATIONS
// =============================================================================

type TaxObligationDTO struct {
	ID             string              `json:"id"`
	Type           string              `json:"type"`
	Periodicity    string              `json:"periodicity"`
	FixedDueDate   calendar.Date       `json:"fixed_due_date"`
	DueDateDisplay string              `json:"fixed_due_date_display"`
	RevenueCode    string              `json:"revenue_code"`
	Amount         decimal.NullDecimal `json:"amount"`
	Paid           bool                `json:"paid"`
	Status         engine.EntryStatus  `json:"status"`
	DaysRemaining  int                 `json:"days_remaining"`
}

type TaxObligationRequest struct {
	ID           string              `json:"id"`
	Type         string              `json:"type"`
	Periodicity  string              `json:"periodicity"`
	FixedDueDate calendar.Date       `json:"fixed_due_date"`
	RevenueCode  string              `json:"revenue_code"`
	Amount       decimal.NullDecimal `json:"amount"`
	Paid         bool                `json:"paid"`
}

func (r TaxObligationRequest) toTaxObligation() engine.TaxObligation {
	return engine.TaxObligation{
		ID:           r.ID,
		Type:         engine.TaxType(r.Type),
		Periodicity:  engine.Periodicity(r.Periodicity),
		FixedDueDate: r.FixedDueDate,
		RevenueCode:  r.RevenueCode,
		Amount:       r.Amount,
		Paid:         r.Paid,
	}
}

func toTaxObligationDTO(t engine.TaxObligation, status engine.EntryStatus, today calendar.Date) TaxObligationDTO {
	return TaxObligationDTO{
		ID:             t.ID,
		Type:           string(t.Type),
		Periodicity:    string(t.Periodicity),
		FixedDueDate:   t.FixedDueDate,
		DueDateDisplay: t.FixedDueDate.Display(),
		RevenueCode:    t.RevenueCode,
		Amount:         t.Amount,
		Paid:           t.Paid,
		Status:         status,
		DaysRemaining:  calendar.DaysBetween(today, t.FixedDueDate),
	}
}

// =============================================================================
// ALERTS & DASHBOARD
// =============================================================================

// AlertDTO represents an alert. Date is the alert's trigger moment.
type AlertDTO struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	Severity        string `json:"severity"`
	Message         string `json:"message"`
	Date            string `json:"date"`
	Display         string `json:"display"`
	RelatedEntityID string `json:"related_entity_id"`
}

func toAlertDTO(a engine.Alert) AlertDTO {
	return AlertDTO{
		ID:              a.ID,
		Type:            string(a.Type),
		Severity:        string(a.Severity),
		Message:         a.Message,
		Date:            a.Date.Format(time.RFC3339),
		Display:         a.Date.Format("02/01/2006"),
		RelatedEntityID: a.RelatedEntityID,
	}
}

func toAlertDTOs(alerts []engine.Alert) []AlertDTO {
	dtos := make([]AlertDTO, len(alerts))
	for i, a := range alerts {
		dtos[i] = toAlertDTO(a)
	}
	return dtos
}

// EntryDTO is one row of the status table.
type EntryDTO struct {
	EntityID         string             `json:"entity_id"`
	Kind             string             `json:"kind"`
	Description      string             `json:"description"`
	LimitDate        calendar.Date      `json:"limit_date"`
	LimitDateDisplay string             `json:"limit_date_display"`
	Amount           decimal.Decimal    `json:"amount"`
	Status           engine.EntryStatus `json:"status"`
	DaysRemaining    int                `json:"days_remaining"`
}

// SummaryDTO carries the dashboard KPIs.
type SummaryDTO struct {
	CriticalAlerts    int             `json:"critical_alerts"`
	ExpiringContracts int             `json:"expiring_contracts"`
	PendingExpenses   int             `json:"pending_expenses"`
	OverdueEntries    int             `json:"overdue_entries"`
	TotalGlobalValue  decimal.Decimal `json:"total_global_value"`
	TotalBalance      decimal.Decimal `json:"total_balance"`
	PendingTaxAmount  decimal.Decimal `json:"pending_tax_amount"`
	TotalBalanceBRL   string          `json:"total_balance_brl"`
}

// DashboardDTO is the full feed.
type DashboardDTO struct {
	GeneratedAt string        `json:"generated_at"`
	Today       calendar.Date `json:"today"`
	Summary     SummaryDTO    `json:"summary"`
	Alerts      []AlertDTO    `json:"alerts"`
	Entries     []EntryDTO    `json:"entries"`
}

func toDashboardDTO(f feed.Feed) DashboardDTO {
	entries := make([]EntryDTO, len(f.Entries))
	for i, e := range f.Entries {
		entries[i] = EntryDTO{
			EntityID:         e.EntityID,
			Kind:             string(e.Kind),
			Description:      e.Description,
			LimitDate:        e.LimitDate,
			LimitDateDisplay: e.LimitDate.Display(),
			Amount:           e.Amount,
			Status:           e.Status,
			DaysRemaining:    e.DaysRemaining,
		}
	}
	return DashboardDTO{
		GeneratedAt: f.GeneratedAt.Format(time.RFC3339),
		Today:       f.Today,
		Summary: SummaryDTO{
			CriticalAlerts:    f.Summary.CriticalAlerts,
			ExpiringContracts: f.Summary.ExpiringContracts,
			PendingExpenses:   f.Summary.PendingExpenses,
			OverdueEntries:    f.Summary.OverdueEntries,
			TotalGlobalValue:  f.Summary.TotalGlobalValue,
			TotalBalance:      f.Summary.TotalBalance,
			PendingTaxAmount:  f.Summary.PendingTaxAmount,
			TotalBalanceBRL:   engine.FormatBRL(f.Summary.TotalBalance),
		},
		Alerts:  toAlertDTOs(f.Alerts),
		Entries: entries,
	}
}

// =============================================================================
// ENGINE ENDPOINTS
// =============================================================================

type DeadlinesRequest struct {
	DueDate     string `json:"due_date"`
	EntityID    string `json:"entity_id"`
	Description string `json:"description"`
}

type DeadlinesResponse struct {
	DueDate calendar.Date `json:"due_date"`
	Alerts  []AlertDTO    `json:"alerts"`
}

// StatusRequest classifies one entry. Today defaults to the server clock.
type StatusRequest struct {
	LimitDate string `json:"limit_date"`
	Paid      bool   `json:"paid"`
	Today     string `json:"today,omitempty"`
}

type StatusResponse struct {
	Status        engine.EntryStatus `json:"status"`
	DaysRemaining int                `json:"days_remaining"`
	Today         calendar.Date      `json:"today"`
}

type ComplianceRequest struct {
	Expense  ExpenseRequest   `json:"expense"`
	Contract *ContractRequest `json:"contract,omitempty"`
}

type ComplianceResponse struct {
	Compliant bool      `json:"compliant"`
	Alert     *AlertDTO `json:"alert,omitempty"`
}

// =============================================================================
// CALENDAR
// =============================================================================

type HolidayDTO struct {
	ID        string        `json:"id"`
	Date      calendar.Date `json:"date"`
	Display   string        `json:"display"`
	Name      string        `json:"name"`
	Recurring bool          `json:"recurring"`
}

func toHolidayDTO(h calendar.Holiday) HolidayDTO {
	return HolidayDTO{
		ID:        h.ID,
		Date:      h.Date,
		Display:   h.Date.Display(),
		Name:      h.Name,
		Recurring: h.Recurring,
	}
}

type CreateHolidayRequest struct {
	Date      string `json:"date"`
	Name      string `json:"name"`
	Recurring bool   `json:"recurring"`
}

type AdjustDTO struct {
	Date          calendar.Date `json:"date"`
	Adjusted      calendar.Date `json:"adjusted"`
	Display       string        `json:"display"`
	NonWorkingDay bool          `json:"non_working_day"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
