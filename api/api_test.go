/*
api_test.go - HTTP tests against the real router

All tests run on the memory store with a fixed clock of Wednesday
2024-05-15 10:00 UTC and sequential ids.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjpa/sgf-engine/calendar"
	"github.com/tjpa/sgf-engine/engine"
	"github.com/tjpa/sgf-engine/feed"
	"github.com/tjpa/sgf-engine/logging"
	"github.com/tjpa/sgf-engine/store/memory"
)

var testNow = time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)

type testServer struct {
	handler *Handler
	router  http.Handler
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	s := memory.New()
	holidays := []calendar.Holiday{
		{ID: "carnaval-2024", Date: calendar.NewDate(2024, 2, 12), Name: "Carnaval"},
		{ID: "labor-2024", Date: calendar.NewDate(2024, 5, 1), Name: "Dia do Trabalho"},
	}
	require.NoError(t, SeedHolidays(context.Background(), s, holidays))

	eng, err := engine.New(calendar.New(s), engine.NewSequence("id"), engine.DefaultOptions())
	require.NoError(t, err)

	h := NewHandler(s, eng, feed.NewBuilder(eng, feed.DefaultOptions()), logging.Discard())
	h.Now = func() time.Time { return testNow }
	h.Holidays = holidays

	return &testServer{handler: h, router: NewRouter(h, nil)}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func alertKeys(alerts []AlertDTO) []string {
	keys := make([]string, len(alerts))
	for i, a := range alerts {
		keys[i] = a.RelatedEntityID + "/" + a.Type + "/" + a.Severity
	}
	return keys
}

// =============================================================================
// DEMO SCENARIOS & FEED
// =============================================================================

func TestDemo_DashboardScenario(t *testing.T) {
	// GIVEN: The dashboard scenario loaded on 2024-05-15
	ts := setupTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/demo/load", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// WHEN: The dashboard is requested
	rec = ts.do(t, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dash := decode[DashboardDTO](t, rec)

	// THEN: The expiring contract leads, followed by the active deadline alerts
	assert.Equal(t, "2024-05-15", dash.Today.String())
	assert.Equal(t, []string{
		"1/Deadlines/High",
		"e1/Deadlines/Medium",
		"e1/Deadlines/Low",
		"e2/Deadlines/Low",
	}, alertKeys(dash.Alerts))
	assert.Equal(t, "Prazo Fatal: O contrato PE-045/2023 expira em 15 dias.", dash.Alerts[0].Message)
	assert.Equal(t, "2024-05-10T00:00:00Z", dash.Alerts[2].Date)
	assert.Equal(t, "10/05/2024", dash.Alerts[2].Display)

	assert.Equal(t, 1, dash.Summary.CriticalAlerts)
	assert.Equal(t, 1, dash.Summary.ExpiringContracts)
	assert.Equal(t, 2, dash.Summary.PendingExpenses)
	assert.Equal(t, 0, dash.Summary.OverdueEntries)
	assert.Equal(t, "2000000", dash.Summary.TotalGlobalValue.String())
	assert.Equal(t, "1230000", dash.Summary.TotalBalance.String())
	assert.Equal(t, "125000", dash.Summary.PendingTaxAmount.String())
	assert.Equal(t, "R$ 1.230.000,00", dash.Summary.TotalBalanceBRL)

	require.Len(t, dash.Entries, 3)
	assert.Equal(t, "e1", dash.Entries[0].EntityID)
	assert.Equal(t, "e2", dash.Entries[1].EntityID)
	assert.Equal(t, "t1", dash.Entries[2].EntityID)
	assert.Equal(t, "DARF Mensal (código 0561)", dash.Entries[2].Description)
	for _, e := range dash.Entries {
		assert.Equal(t, engine.StatusUpcoming, e.Status, e.EntityID)
	}
}

func TestDemo_BudgetOverrunScenario(t *testing.T) {
	// GIVEN: The budget-overrun scenario
	ts := setupTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/demo/load", map[string]string{"scenario_id": "budget-overrun"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// WHEN: Only compliance alerts are requested
	rec = ts.do(t, http.MethodGet, "/api/alerts?type=Compliance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	alerts := decode[[]AlertDTO](t, rec)

	// THEN: The oversized invoice is flagged
	require.Len(t, alerts, 1)
	assert.Equal(t, "e-overrun", alerts[0].RelatedEntityID)
	assert.Equal(t, "High", alerts[0].Severity)
	assert.Equal(t, "Risco de Compliance: Despesa de R$ 500.000,00 excede o saldo do contrato PE-101/2024 (Saldo: R$ 450.000,00).", alerts[0].Message)
	assert.Equal(t, testNow.Format(time.RFC3339), alerts[0].Date)

	// AND: The full feed is ordered by severity, then date
	rec = ts.do(t, http.MethodGet, "/api/alerts", nil)
	assert.Equal(t, []string{
		"e-overrun/Compliance/High",
		"e-overrun/Deadlines/Medium",
		"c-overrun/Risk/Medium",
		"e-overrun/Deadlines/Low",
		"c-overrun/Deadlines/Low",
	}, alertKeys(decode[[]AlertDTO](t, rec)))

	// AND: The allowance past its limit date is overdue
	rec = ts.do(t, http.MethodGet, "/api/expenses?status=EM_ATRASO", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	overdue := decode[[]ExpenseDTO](t, rec)
	require.Len(t, overdue, 1)
	assert.Equal(t, "e-diarias", overdue[0].ID)
	assert.Equal(t, engine.StatusOverdue, overdue[0].Status)
	assert.Equal(t, -4, overdue[0].DaysRemaining)
}

func TestDemo_ResetKeepsConfiguredHolidays(t *testing.T) {
	// GIVEN: A loaded scenario
	ts := setupTestServer(t)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/demo/load", nil).Code)

	// WHEN: The store is reset
	rec := ts.do(t, http.MethodPost, "/api/demo/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// THEN: Records are gone but the holiday calendar survives
	assert.Empty(t, decode[[]ContractDTO](t, ts.do(t, http.MethodGet, "/api/contracts", nil)))
	holidays := decode[map[string][]HolidayDTO](t, ts.do(t, http.MethodGet, "/api/holidays", nil))
	assert.Len(t, holidays["holidays"], 2)
}

func TestDemo_UnknownScenario(t *testing.T) {
	ts := setupTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/demo/load", map[string]string{"scenario_id": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDemo_ListScenarios(t *testing.T) {
	ts := setupTestServer(t)
	list := decode[[]ScenarioDTO](t, ts.do(t, http.MethodGet, "/api/demo", nil))
	assert.Len(t, list, 2)
}

func TestAlerts_InvalidFilters(t *testing.T) {
	ts := setupTestServer(t)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/alerts?severity=Urgent", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/alerts?type=Budget", nil).Code)
}

// =============================================================================
// CONTRACTS
// =============================================================================

func TestContracts_CRUD(t *testing.T) {
	ts := setupTestServer(t)

	// GIVEN: A new contract without id, numbers given as JSON numbers
	rec := ts.do(t, http.MethodPost, "/api/contracts", map[string]any{
		"contract_number": "PE-045/2023",
		"provider":        "Tech Solutions LTDA",
		"global_value":    1200000,
		"balance":         "450000.50",
		"start_date":      "2023-01-01",
		"end_date":        "2024-05-30",
		"index":           "IPCA",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[ContractDTO](t, rec)

	// THEN: An id is generated and the expiry countdown is derived
	assert.Equal(t, "id-1", created.ID)
	require.NotNil(t, created.DaysToExpiry)
	assert.Equal(t, 15, *created.DaysToExpiry)
	assert.Equal(t, "30/05/2024", created.EndDateDisplay)

	// WHEN: The balance is updated
	rec = ts.do(t, http.MethodPut, "/api/contracts/id-1", map[string]any{
		"contract_number": "PE-045/2023",
		"global_value":    "1200000",
		"balance":         "300000",
		"end_date":        "2024-05-30",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[ContractDTO](t, ts.do(t, http.MethodGet, "/api/contracts/id-1", nil))
	assert.Equal(t, "300000", got.Balance.String())

	// WHEN: It is deleted
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodDelete, "/api/contracts/id-1", nil).Code)

	// THEN: It is gone
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/contracts/id-1", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, "/api/contracts/id-1", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPut, "/api/contracts/id-1", map[string]any{"contract_number": "x"}).Code)
}

func TestContracts_RejectsInvalidPayloads(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing number", map[string]any{"balance": "10"}},
		{"negative balance", map[string]any{"contract_number": "X", "balance": "-1"}},
		{"negative global value", map[string]any{"contract_number": "X", "global_value": -5}},
		{"end before start", map[string]any{"contract_number": "X", "start_date": "2024-02-01", "end_date": "2024-01-01"}},
		{"bad date", map[string]any{"contract_number": "X", "end_date": "30/05/2024"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/contracts", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}
}

// =============================================================================
// EXPENSES
// =============================================================================

func TestExpenses_StatusAndAlerts(t *testing.T) {
	ts := setupTestServer(t)

	// GIVEN: A contract with 450k left and a 500k invoice due Monday the 20th
	rec := ts.do(t, http.MethodPost, "/api/contracts", map[string]any{
		"id": "c1", "contract_number": "PE-045/2023", "balance": "450000",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/expenses", map[string]any{
		"id":          "e1",
		"type":        "Fornecedores",
		"limit_date":  "2024-05-20",
		"contract_id": "c1",
		"amount":      "500000",
		"description": "Fatura Telecom",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[ExpenseDTO](t, rec)
	assert.Equal(t, engine.StatusUpcoming, created.Status)
	assert.Equal(t, 5, created.DaysRemaining)
	assert.Equal(t, "20/05/2024", created.LimitDateDisplay)

	// WHEN: Its alerts are requested
	rec = ts.do(t, http.MethodGet, "/api/expenses/e1/alerts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	alerts := decode[[]AlertDTO](t, rec)

	// THEN: The full schedule (the 19th is a Sunday) plus the overrun
	require.Len(t, alerts, 4)
	assert.Equal(t, "2024-05-10T00:00:00Z", alerts[0].Date)
	assert.Equal(t, "2024-05-15T00:00:00Z", alerts[1].Date)
	assert.Equal(t, "2024-05-17T00:00:00Z", alerts[2].Date)
	assert.Equal(t, "Alerta Antecipado: Fatura Telecom vence em 1 dias.", alerts[2].Message)
	assert.Equal(t, "Compliance", alerts[3].Type)

	// WHEN: It is marked paid
	rec = ts.do(t, http.MethodPut, "/api/expenses/e1", map[string]any{
		"limit_date": "2024-05-20", "contract_id": "c1", "amount": "500000", "paid": true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, engine.StatusPaid, decode[ExpenseDTO](t, rec).Status)

	// THEN: It filters as paid
	paid := decode[[]ExpenseDTO](t, ts.do(t, http.MethodGet, "/api/expenses?status=Pago", nil))
	require.Len(t, paid, 1)
	assert.Equal(t, "e1", paid[0].ID)
}

func TestExpenses_UnlinkedContractHasNoComplianceAlert(t *testing.T) {
	// GIVEN: An expense pointing at a contract that does not exist
	ts := setupTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/expenses", map[string]any{
		"id": "e1", "limit_date": "2024-05-20", "contract_id": "ghost", "amount": "999999999",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// THEN: Only the deadline alerts are returned
	alerts := decode[[]AlertDTO](t, ts.do(t, http.MethodGet, "/api/expenses/e1/alerts", nil))
	assert.Len(t, alerts, 3)
	for _, a := range alerts {
		assert.Equal(t, "Deadlines", a.Type)
	}
}

func TestExpenses_Errors(t *testing.T) {
	ts := setupTestServer(t)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/expenses/nope", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/expenses/nope/alerts", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, "/api/expenses/nope", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/expenses?status=LATE", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/expenses", map[string]any{"amount": "10"}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/expenses", map[string]any{"limit_date": "2024-05-20", "amount": "-10"}).Code)
}

// =============================================================================
// TAXES
// =============================================================================

func TestTaxes_CreateAndList(t *testing.T) {
	ts := setupTestServer(t)

	// GIVEN: A DARF due tomorrow without a known amount
	rec := ts.do(t, http.MethodPost, "/api/taxes", map[string]any{
		"id": "t1", "type": "DARF", "periodicity": "Mensal", "fixed_due_date": "2024-05-16", "revenue_code": "0561", "amount": nil,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// THEN: It is critical and its amount stays null
	taxes := decode[[]TaxObligationDTO](t, ts.do(t, http.MethodGet, "/api/taxes", nil))
	require.Len(t, taxes, 1)
	assert.Equal(t, engine.StatusCritical, taxes[0].Status)
	assert.False(t, taxes[0].Amount.Valid)
	assert.Equal(t, 1, taxes[0].DaysRemaining)

	// AND: Negative amounts and missing due dates are rejected
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/taxes", map[string]any{"fixed_due_date": "2024-05-16", "amount": "-1"}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/taxes", map[string]any{"type": "GPS"}).Code)
}

// =============================================================================
// ENGINE ENDPOINTS
// =============================================================================

func TestEngine_Deadlines(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/engine/deadlines", DeadlinesRequest{
		DueDate: "2024-02-22", EntityID: "x1", Description: "Fatura",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[DeadlinesResponse](t, rec)

	// Feb 12 2024 is Carnaval, so the 10-day alert moves back to Friday the 9th.
	require.Len(t, resp.Alerts, 3)
	assert.Equal(t, "2024-02-09T00:00:00Z", resp.Alerts[0].Date)
	assert.Equal(t, "Low", resp.Alerts[0].Severity)
	assert.Equal(t, "2024-02-16T00:00:00Z", resp.Alerts[1].Date)
	assert.Equal(t, "2024-02-21T00:00:00Z", resp.Alerts[2].Date)
	assert.Equal(t, "High", resp.Alerts[2].Severity)
}

func TestEngine_DeadlinesInvalidDate(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/engine/deadlines", DeadlinesRequest{DueDate: "not-a-date"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Details, "not-a-date")
}

func TestEngine_Status(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name string
		req  StatusRequest
		want engine.EntryStatus
	}{
		{"two days left is critical", StatusRequest{LimitDate: "2024-05-17"}, engine.StatusCritical},
		{"three days left is upcoming", StatusRequest{LimitDate: "2024-05-18"}, engine.StatusUpcoming},
		{"yesterday is overdue", StatusRequest{LimitDate: "2024-05-14"}, engine.StatusOverdue},
		{"paid wins", StatusRequest{LimitDate: "2024-05-14", Paid: true}, engine.StatusPaid},
		{"explicit today", StatusRequest{LimitDate: "2024-05-17", Today: "2024-05-01"}, engine.StatusUpcoming},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/engine/status", tt.req)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.want, decode[StatusResponse](t, rec).Status)
		})
	}

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/engine/status", StatusRequest{LimitDate: "2024-13-40"}).Code)
}

func TestEngine_Compliance(t *testing.T) {
	ts := setupTestServer(t)

	check := func(amount, balance string, withContract bool) ComplianceResponse {
		req := map[string]any{"expense": map[string]any{"id": "e1", "amount": amount}}
		if withContract {
			req["contract"] = map[string]any{"contract_number": "PE-1", "balance": balance}
		}
		rec := ts.do(t, http.MethodPost, "/api/engine/compliance", req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decode[ComplianceResponse](t, rec)
	}

	over := check("500000", "450000", true)
	assert.False(t, over.Compliant)
	require.NotNil(t, over.Alert)
	assert.Equal(t, "High", over.Alert.Severity)
	assert.Equal(t, "e1", over.Alert.RelatedEntityID)

	assert.True(t, check("450000", "450000", true).Compliant)
	assert.True(t, check("500000", "", false).Compliant)
}

// =============================================================================
// CALENDAR
// =============================================================================

func TestHolidays_AffectEngineImmediately(t *testing.T) {
	ts := setupTestServer(t)
	deadlines := func() []AlertDTO {
		rec := ts.do(t, http.MethodPost, "/api/engine/deadlines", DeadlinesRequest{DueDate: "2024-05-20", EntityID: "x"})
		require.Equal(t, http.StatusOK, rec.Code)
		return decode[DeadlinesResponse](t, rec).Alerts
	}

	// GIVEN: Friday the 17th is declared a holiday
	rec := ts.do(t, http.MethodPost, "/api/holidays", CreateHolidayRequest{Date: "2024-05-17", Name: "Ponto facultativo"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[HolidayDTO](t, rec)
	assert.Equal(t, "17/05/2024", created.Display)

	// THEN: The 1-day alert falls on Thursday
	assert.Equal(t, "2024-05-16T00:00:00Z", deadlines()[2].Date)

	// WHEN: The holiday is removed
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodDelete, "/api/holidays/"+created.ID, nil).Code)

	// THEN: Friday is a working day again
	assert.Equal(t, "2024-05-17T00:00:00Z", deadlines()[2].Date)
}

func TestHolidays_Validation(t *testing.T) {
	ts := setupTestServer(t)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/holidays", CreateHolidayRequest{Name: "x"}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/holidays", CreateHolidayRequest{Date: "2024-02-30", Name: "x"}).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, "/api/holidays/unknown", nil).Code)
}

func TestCalendar_Adjust(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/calendar/adjust?date=2024-05-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	adj := decode[AdjustDTO](t, rec)
	assert.Equal(t, "2024-04-30", adj.Adjusted.String())
	assert.Equal(t, "30/04/2024", adj.Display)
	assert.True(t, adj.NonWorkingDay)

	adj = decode[AdjustDTO](t, ts.do(t, http.MethodGet, "/api/calendar/adjust?date=2024-05-15", nil))
	assert.Equal(t, "2024-05-15", adj.Adjusted.String())
	assert.False(t, adj.NonWorkingDay)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/calendar/adjust", nil).Code)
}
