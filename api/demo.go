/*
demo.go - Demo data loaders for demonstrations and manual testing

PURPOSE:
  Populates the store with realistic office data so the dashboard has
  something to show. All dates are relative to the handler clock, so the
  same scenario always produces the same alerts on the day it is loaded.

AVAILABLE SCENARIOS:
  dashboard:       Two contracts (one expiring in 15 days), a supplier
                   invoice, the payroll and a monthly DARF
  budget-overrun:  An invoice larger than its contract balance plus an
                   overdue daily allowance

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Re-seed the configured holidays
 3. Save contracts, expenses and tax obligations

USAGE VIA API:
  POST /api/demo/load
  {"scenario_id": "budget-overrun"}    (empty body loads "dashboard")

NOTE:
  Scenarios reset the store. Only use in development/demo environments.
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/tjpa/sgf-engine/calendar"
	"github.com/tjpa/sgf-engine/engine"
)

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

const defaultScenario = "dashboard"

var scenarios = []ScenarioDTO{
	{
		ID:          "dashboard",
		Name:        "Painel",
		Description: "Contracts, pending invoices and a monthly DARF",
	},
	{
		ID:          "budget-overrun",
		Name:        "Estouro de Saldo",
		Description: "Invoice above its contract balance and an overdue allowance",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ScenarioID == "" {
		req.ScenarioID = defaultScenario
	}

	var load func(context.Context, calendar.Date) error
	switch req.ScenarioID {
	case "dashboard":
		load = h.loadDashboardScenario
	case "budget-overrun":
		load = h.loadBudgetOverrunScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	if err := h.resetStore(ctx); err != nil {
		h.fail(w, r, "Failed to reset store", err)
		return
	}
	if err := load(ctx, h.today()); err != nil {
		h.fail(w, r, fmt.Sprintf("Failed to load scenario %s", req.ScenarioID), err)
		return
	}

	h.Logger.Info("demo scenario loaded", "scenario", req.ScenarioID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears every record and restores the configured holidays.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.resetStore(r.Context()); err != nil {
		h.fail(w, r, "Failed to reset store", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) resetStore(ctx context.Context) error {
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	return SeedHolidays(ctx, h.Store, h.Holidays)
}

// HolidaySaver is the part of store.Store needed to seed holidays.
type HolidaySaver interface {
	SaveHoliday(ctx context.Context, h calendar.Holiday) error
}

// SeedHolidays saves every holiday. Saving is an upsert, so seeding twice is
// harmless.
func SeedHolidays(ctx context.Context, s HolidaySaver, holidays []calendar.Holiday) error {
	for _, hol := range holidays {
		if err := s.SaveHoliday(ctx, hol); err != nil {
			return fmt.Errorf("seed holiday %s: %w", hol.ID, err)
		}
	}
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadDashboardScenario(ctx context.Context, today calendar.Date) error {
	contracts := []engine.Contract{
		{
			ID:                 "1",
			ContractNumber:     "PE-045/2023",
			Provider:           "Tech Solutions LTDA",
			ProviderIdentifier: "45.123.456/0001-89",
			Object:             "Manutenção de Datacenter e Infraestrutura de Rede Core",
			GlobalValue:        decimal.NewFromInt(1200000),
			Balance:            decimal.NewFromInt(450000),
			StartDate:          calendar.NewDate(2023, 1, 1),
			EndDate:            today.AddDays(15),
			ReadjustmentDate:   calendar.NewDate(2024, 1, 1),
			Index:              engine.IndexIPCA,
			Category:           "Tecnologia da Informação",
			FiscalName:         "Dr. Roberto Santos",
		},
		{
			ID:                 "2",
			ContractNumber:     "DL-012/2024",
			Provider:           "CleanServices Gestão Ambiental",
			ProviderIdentifier: "12.888.777/0001-22",
			Object:             "Serviços de Limpeza, Conservação e Higienização Predial",
			GlobalValue:        decimal.NewFromInt(800000),
			Balance:            decimal.NewFromInt(780000),
			StartDate:          calendar.NewDate(2024, 2, 1),
			EndDate:            today.AddDays(365),
			ReadjustmentDate:   today.AddDays(365),
			Index:              engine.IndexIGPM,
			Category:           "Manutenção Predial",
			FiscalName:         "Dra. Márcia Oliveira",
		},
	}
	expenses := []engine.Expense{
		{
			ID:                 "e1",
			Type:               engine.ExpenseSuppliers,
			Amount:             decimal.NewFromInt(45000),
			Description:        "Fatura Telecom Jan/24 - Operadora OI",
			LimitDate:          today.AddDays(5),
			LiquidationDate:    today.AddDays(-2),
			ContractID:         "1",
			ProviderIdentifier: "45.123.456/0001-89",
			InvoiceNumber:      "202400102",
		},
		{
			ID:                 "e2",
			Type:               engine.ExpensePayroll,
			Amount:             decimal.NewFromInt(2500000),
			Description:        "Folha Mensal - Servidores Administrativos",
			LimitDate:          today.AddDays(10),
			LiquidationDate:    today.AddDays(-3),
			ProviderIdentifier: "00.000.000/0001-91",
		},
	}
	taxes := []engine.TaxObligation{
		{
			ID:           "t1",
			Type:         engine.TaxDARF,
			Periodicity:  engine.PeriodicityMonthly,
			FixedDueDate: today.AddDays(20),
			RevenueCode:  "0561",
			Amount:       decimal.NewNullDecimal(decimal.NewFromInt(125000)),
		},
	}
	return h.saveAll(ctx, contracts, expenses, taxes)
}

func (h *Handler) loadBudgetOverrunScenario(ctx context.Context, today calendar.Date) error {
	contracts := []engine.Contract{
		{
			ID:                 "c-overrun",
			ContractNumber:     "PE-101/2024",
			Provider:           "Rede Norte Telecomunicações S.A.",
			ProviderIdentifier: "33.000.118/0001-79",
			Object:             "Links de dados para as comarcas do interior",
			GlobalValue:        decimal.NewFromInt(900000),
			Balance:            decimal.NewFromInt(450000),
			StartDate:          today.AddMonths(-10),
			EndDate:            today.AddDays(40),
			ReadjustmentDate:   today.AddDays(20),
			Index:              engine.IndexIPCA,
			Category:           "Tecnologia da Informação",
			FiscalName:         "Dr. Paulo Henrique",
		},
	}
	expenses := []engine.Expense{
		{
			ID:                 "e-overrun",
			Type:               engine.ExpenseSuppliers,
			Amount:             decimal.NewFromInt(500000),
			Description:        "Fatura consolidada do trimestre",
			LimitDate:          today.AddDays(3),
			LiquidationDate:    today.AddDays(-1),
			ContractID:         "c-overrun",
			ProviderIdentifier: "33.000.118/0001-79",
			InvoiceNumber:      "2024-0031",
		},
		{
			ID:              "e-diarias",
			Type:            engine.ExpenseDaily,
			Amount:          decimal.RequireFromString("1840.50"),
			Description:     "Diárias - Correição na comarca de Humaitá",
			LimitDate:       today.AddDays(-4),
			LiquidationDate: today.AddDays(-9),
		},
	}
	return h.saveAll(ctx, contracts, expenses, nil)
}

func (h *Handler) saveAll(ctx context.Context, contracts []engine.Contract, expenses []engine.Expense, taxes []engine.TaxObligation) error {
	for _, c := range contracts {
		if err := h.Store.SaveContract(ctx, c); err != nil {
			return fmt.Errorf("save contract %s: %w", c.ID, err)
		}
	}
	for _, e := range expenses {
		if err := h.Store.SaveExpense(ctx, e); err != nil {
			return fmt.Errorf("save expense %s: %w", e.ID, err)
		}
	}
	for _, t := range taxes {
		if err := h.Store.SaveTaxObligation(ctx, t); err != nil {
			return fmt.Errorf("save tax obligation %s: %w", t.ID, err)
		}
	}
	return nil
}
