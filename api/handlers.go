/*
handlers.go - HTTP API handlers for the deadline and compliance engine

PURPOSE:
  Exposes the office's records and the rule engine via REST API. Handles
  HTTP request/response and JSON serialization, and delegates every decision
  to the engine and feed packages.

ENDPOINTS:
  Contracts:
    GET    /api/contracts              List contracts
    POST   /api/contracts              Create contract
    GET    /api/contracts/{id}         Get contract
    PUT    /api/contracts/{id}         Update contract
    DELETE /api/contracts/{id}         Delete contract

  Expenses:
    GET    /api/expenses               List expenses (?status=EM_ATRASO)
    POST   /api/expenses               Create expense
    GET    /api/expenses/{id}          Get expense
    PUT    /api/expenses/{id}          Update expense
    DELETE /api/expenses/{id}          Delete expense
    GET    /api/expenses/{id}/alerts   Deadline and compliance alerts

  Taxes:
    GET    /api/taxes                  List tax obligations
    POST   /api/taxes                  Create tax obligation

  Feed:
    GET    /api/alerts                 Active alerts (?severity=, ?type=)
    GET    /api/dashboard              KPIs, alerts and status rows

  Engine:
    POST   /api/engine/deadlines       Retroaction alerts for a due date
    POST   /api/engine/status          Status of one entry
    POST   /api/engine/compliance      Balance check of one expense

  Calendar:
    GET    /api/holidays               List holidays
    POST   /api/holidays               Create holiday
    DELETE /api/holidays/{id}          Delete holiday
    GET    /api/calendar/adjust        Business-day adjustment (?date=)

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Records and holidays (also the engine's holiday calendar)
  - Engine: Pure rule engine
  - Feed: Snapshot-to-dashboard builder
  - Now: Clock, replaced in tests

  Statuses and alerts are recomputed on every request and never stored.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid dates, invalid input
  - 404: Resource not found
  - 500: Internal errors (logged)

SEE ALSO:
  - dto.go: Request/response data structures
  - demo.go: Demo data loader
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tjpa/sgf-engine/calendar"
	"github.com/tjpa/sgf-engine/engine"
	"github.com/tjpa/sgf-engine/feed"
	"github.com/tjpa/sgf-engine/store"
)

// errInvalidInput marks request payloads rejected at the boundary.
var errInvalidInput = errors.New("invalid input")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errInvalidInput, fmt.Sprintf(format, args...))
}

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  store.Store
	Engine *engine.Engine
	Feed   *feed.Builder
	Now    func() time.Time
	Logger *slog.Logger

	// Holidays are re-seeded after a demo load or reset.
	Holidays []calendar.Holiday
}

// NewHandler creates a new handler. The engine should be built on a
// calendar backed by s so holidays edited through the API take effect.
func NewHandler(s store.Store, e *engine.Engine, f *feed.Builder, log *slog.Logger) *Handler {
	return &Handler{
		Store:  s,
		Engine: e,
		Feed:   f,
		Now:    time.Now,
		Logger: log,
	}
}

func (h *Handler) today() calendar.Date {
	return calendar.FromTime(h.Now())
}

func (h *Handler) snapshot(ctx context.Context) (feed.Snapshot, error) {
	contracts, err := h.Store.ListContracts(ctx)
	if err != nil {
		return feed.Snapshot{}, fmt.Errorf("list contracts: %w", err)
	}
	expenses, err := h.Store.ListExpenses(ctx)
	if err != nil {
		return feed.Snapshot{}, fmt.Errorf("list expenses: %w", err)
	}
	taxes, err := h.Store.ListTaxObligations(ctx)
	if err != nil {
		return feed.Snapshot{}, fmt.Errorf("list tax obligations: %w", err)
	}
	return feed.Snapshot{Contracts: contracts, Expenses: expenses, Taxes: taxes}, nil
}

// =============================================================================
// CONTRACT HANDLERS
// =============================================================================

// ListContracts returns all contracts.
func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	contracts, err := h.Store.ListContracts(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list contracts", err)
		return
	}

	today := h.today()
	dtos := make([]ContractDTO, len(contracts))
	for i, c := range contracts {
		dtos[i] = toContractDTO(c, today)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetContract returns a single contract.
func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	c, err := h.Store.GetContract(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Contract not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(c, h.today()))
}

// CreateContract creates a contract. A missing id is generated.
func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	var req ContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	c := req.toContract()
	if c.ID == "" {
		c.ID = h.Engine.NewID()
	}
	if err := validateContract(c); err != nil {
		h.fail(w, r, "Invalid contract", err)
		return
	}

	if err := h.Store.SaveContract(r.Context(), c); err != nil {
		h.fail(w, r, "Failed to create contract", err)
		return
	}
	writeJSON(w, http.StatusCreated, toContractDTO(c, h.today()))
}

// UpdateContract replaces an existing contract.
func (h *Handler) UpdateContract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if _, err := h.Store.GetContract(ctx, id); err != nil {
		h.fail(w, r, "Contract not found", err)
		return
	}

	var req ContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	c := req.toContract()
	c.ID = id
	if err := validateContract(c); err != nil {
		h.fail(w, r, "Invalid contract", err)
		return
	}

	if err := h.Store.SaveContract(ctx, c); err != nil {
		h.fail(w, r, "Failed to update contract", err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(c, h.today()))
}

// DeleteContract deletes a contract. Linked expenses keep their contract id
// and simply stop producing compliance alerts.
func (h *Handler) DeleteContract(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteContract(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "Failed to delete contract", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

func validateContract(c engine.Contract) error {
	if c.ContractNumber == "" {
		return invalidf("contract_number is required")
	}
	if c.GlobalValue.IsNegative() {
		return invalidf("global_value must not be negative")
	}
	if c.Balance.IsNegative() {
		return invalidf("balance must not be negative")
	}
	if !c.StartDate.IsZero() && !c.EndDate.IsZero() && c.EndDate.Before(c.StartDate) {
		return invalidf("end_date is before start_date")
	}
	return nil
}

// =============================================================================
// EXPENSE HANDLERS
// =============================================================================

// ListExpenses returns all expenses with their derived status.
// GET /api/expenses?status=EM_ATRASO
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	var want engine.EntryStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, ok := engine.ParseStatus(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "Unknown status", invalidf("status %q", raw))
			return
		}
		want = status
	}

	expenses, err := h.Store.ListExpenses(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list expenses", err)
		return
	}

	today := h.today()
	dtos := make([]ExpenseDTO, 0, len(expenses))
	for _, e := range expenses {
		status := h.Engine.ExpenseStatus(e, today)
		if want != "" && status != want {
			continue
		}
		dtos = append(dtos, toExpenseDTO(e, status, today))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetExpense returns a single expense.
func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := h.Store.GetExpense(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Expense not found", err)
		return
	}
	today := h.today()
	writeJSON(w, http.StatusOK, toExpenseDTO(e, h.Engine.ExpenseStatus(e, today), today))
}

// CreateExpense creates an expense. A missing id is generated.
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req ExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	e := req.toExpense()
	if e.ID == "" {
		e.ID = h.Engine.NewID()
	}
	if err := validateExpense(e); err != nil {
		h.fail(w, r, "Invalid expense", err)
		return
	}

	if err := h.Store.SaveExpense(r.Context(), e); err != nil {
		h.fail(w, r, "Failed to create expense", err)
		return
	}
	today := h.today()
	writeJSON(w, http.StatusCreated, toExpenseDTO(e, h.Engine.ExpenseStatus(e, today), today))
}

// UpdateExpense replaces an existing expense. Marking it paid is an update
// with paid=true.
func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if _, err := h.Store.GetExpense(ctx, id); err != nil {
		h.fail(w, r, "Expense not found", err)
		return
	}

	var req ExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	e := req.toExpense()
	e.ID = id
	if err := validateExpense(e); err != nil {
		h.fail(w, r, "Invalid expense", err)
		return
	}

	if err := h.Store.SaveExpense(ctx, e); err != nil {
		h.fail(w, r, "Failed to update expense", err)
		return
	}
	today := h.today()
	writeJSON(w, http.StatusOK, toExpenseDTO(e, h.Engine.ExpenseStatus(e, today), today))
}

// DeleteExpense deletes an expense.
func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteExpense(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "Failed to delete expense", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// GetExpenseAlerts returns the full retroaction schedule of an expense plus
// its compliance alert, if any. Unlike the feed, it does not filter by
// trigger date.
// GET /api/expenses/{id}/alerts
func (h *Handler) GetExpenseAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	e, err := h.Store.GetExpense(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Expense not found", err)
		return
	}

	alerts := h.Engine.GenerateDeadlineAlerts(e.LimitDate, e.ID, e.Description)

	if e.ContractID != "" {
		var contract *engine.Contract
		c, err := h.Store.GetContract(ctx, e.ContractID)
		switch {
		case err == nil:
			contract = &c
		case !errors.Is(err, store.ErrNotFound):
			h.fail(w, r, "Failed to load contract", err)
			return
		}
		if alert := h.Engine.ValidateCompliance(e, contract, h.Now()); alert != nil {
			alerts = append(alerts, *alert)
		}
	}

	writeJSON(w, http.StatusOK, toAlertDTOs(alerts))
}

func validateExpense(e engine.Expense) error {
	if e.LimitDate.IsZero() {
		return invalidf("limit_date is required")
	}
	if e.Amount.IsNegative() {
		return invalidf("amount must not be negative")
	}
	return nil
}

// =============================================================================
// TAX HANDLERS
// =============================================================================

// ListTaxObligations returns all tax obligations with their derived status.
func (h *Handler) ListTaxObligations(w http.ResponseWriter, r *http.Request) {
	taxes, err := h.Store.ListTaxObligations(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list tax obligations", err)
		return
	}

	today := h.today()
	dtos := make([]TaxObligationDTO, len(taxes))
	for i, t := range taxes {
		dtos[i] = toTaxObligationDTO(t, h.Engine.TaxStatus(t, today), today)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTaxObligation creates a tax obligation. A missing id is generated.
func (h *Handler) CreateTaxObligation(w http.ResponseWriter, r *http.Request) {
	var req TaxObligationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	t := req.toTaxObligation()
	if t.ID == "" {
		t.ID = h.Engine.NewID()
	}
	if t.FixedDueDate.IsZero() {
		h.fail(w, r, "Invalid tax obligation", invalidf("fixed_due_date is required"))
		return
	}
	if t.Amount.Valid && t.Amount.Decimal.IsNegative() {
		h.fail(w, r, "Invalid tax obligation", invalidf("amount must not be negative"))
		return
	}

	if err := h.Store.SaveTaxObligation(r.Context(), t); err != nil {
		h.fail(w, r, "Failed to create tax obligation", err)
		return
	}
	today := h.today()
	writeJSON(w, http.StatusCreated, toTaxObligationDTO(t, h.Engine.TaxStatus(t, today), today))
}

// =============================================================================
// FEED HANDLERS
// =============================================================================

// ListAlerts returns the active alerts, most severe first.
// GET /api/alerts?severity=High&type=Compliance
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	severity := engine.Severity(q.Get("severity"))
	if severity != "" && !severity.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown severity", invalidf("severity %q", severity))
		return
	}
	typ := engine.AlertType(q.Get("type"))
	if typ != "" && !typ.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown alert type", invalidf("type %q", typ))
		return
	}

	snap, err := h.snapshot(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to build alerts", err)
		return
	}
	f := h.Feed.Build(snap, h.Now())
	writeJSON(w, http.StatusOK, toAlertDTOs(feed.Filter(f.Alerts, severity, typ)))
}

// GetDashboard returns KPIs, active alerts and status rows.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshot(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to build dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(h.Feed.Build(snap, h.Now())))
}

// =============================================================================
// ENGINE HANDLERS
// =============================================================================

// GenerateDeadlines runs the retroaction schedule for an arbitrary due date.
// POST /api/engine/deadlines
func (h *Handler) GenerateDeadlines(w http.ResponseWriter, r *http.Request) {
	var req DeadlinesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	alerts, err := h.Engine.GenerateDeadlineAlertsFor(req.DueDate, req.EntityID, req.Description)
	if err != nil {
		h.fail(w, r, "Invalid due_date", err)
		return
	}
	due, _ := calendar.Parse(req.DueDate)
	writeJSON(w, http.StatusOK, DeadlinesResponse{DueDate: due, Alerts: toAlertDTOs(alerts)})
}

// ClassifyStatus derives the status of one entry.
// POST /api/engine/status
func (h *Handler) ClassifyStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	limit, err := calendar.Parse(req.LimitDate)
	if err != nil {
		h.fail(w, r, "Invalid limit_date", err)
		return
	}
	today := h.today()
	if req.Today != "" {
		if today, err = calendar.Parse(req.Today); err != nil {
			h.fail(w, r, "Invalid today", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		Status:        h.Engine.DeriveStatus(limit, req.Paid, today),
		DaysRemaining: calendar.DaysBetween(today, limit),
		Today:         today,
	})
}

// CheckCompliance compares one expense against an optional contract.
// POST /api/engine/compliance
func (h *Handler) CheckCompliance(w http.ResponseWriter, r *http.Request) {
	var req ComplianceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var contract *engine.Contract
	if req.Contract != nil {
		c := req.Contract.toContract()
		contract = &c
	}

	resp := ComplianceResponse{Compliant: true}
	if alert := h.Engine.ValidateCompliance(req.Expense.toExpense(), contract, h.Now()); alert != nil {
		dto := toAlertDTO(*alert)
		resp.Compliant = false
		resp.Alert = &dto
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HOLIDAY ENDPOINTS
// =============================================================================

// ListHolidays returns all holidays.
// GET /api/holidays
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Store.ListHolidays(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to get holidays", err)
		return
	}

	dtos := make([]HolidayDTO, len(holidays))
	for i, hol := range holidays {
		dtos[i] = toHolidayDTO(hol)
	}
	writeJSON(w, http.StatusOK, map[string]any{"holidays": dtos})
}

// CreateHoliday creates a new holiday.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Date == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Date and name are required", nil)
		return
	}

	date, err := calendar.Parse(req.Date)
	if err != nil {
		h.fail(w, r, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	holiday := calendar.Holiday{
		ID:        h.Engine.NewID(),
		Date:      date,
		Name:      req.Name,
		Recurring: req.Recurring,
	}
	if err := h.Store.SaveHoliday(r.Context(), holiday); err != nil {
		h.fail(w, r, "Failed to create holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, toHolidayDTO(holiday))
}

// DeleteHoliday deletes a holiday.
// DELETE /api/holidays/{id}
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteHoliday(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "Failed to delete holiday", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// AdjustDate moves a date back to the nearest working day.
// GET /api/calendar/adjust?date=2024-05-19
func (h *Handler) AdjustDate(w http.ResponseWriter, r *http.Request) {
	date, err := calendar.Parse(r.URL.Query().Get("date"))
	if err != nil {
		h.fail(w, r, "Invalid date", err)
		return
	}

	cal := h.Engine.Calendar()
	adjusted := cal.AdjustToWorkingDay(date)
	writeJSON(w, http.StatusOK, AdjustDTO{
		Date:          date,
		Adjusted:      adjusted,
		Display:       adjusted.Display(),
		NonWorkingDay: cal.IsNonWorkingDay(date),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// fail maps err to a status code and writes it. Internal errors are logged.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error(message,
			"err", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
		)
	}
	writeError(w, status, message, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, calendar.ErrInvalidDate),
		errors.Is(err, engine.ErrInvalidOptions),
		errors.Is(err, errInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
