// Package memory provides an in-memory store.Store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tjpa/sgf-engine/calendar"
	"github.com/tjpa/sgf-engine/engine"
	"github.com/tjpa/sgf-engine/store"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	contracts map[string]engine.Contract
	expenses  map[string]engine.Expense
	taxes     map[string]engine.TaxObligation
	holidays  map[string]calendar.Holiday
}

var _ store.Store = (*Memory)(nil)

func New() *Memory {
	m := &Memory{}
	m.init()
	return m
}

func (m *Memory) init() {
	m.contracts = make(map[string]engine.Contract)
	m.expenses = make(map[string]engine.Expense)
	m.taxes = make(map[string]engine.TaxObligation)
	m.holidays = make(map[string]calendar.Holiday)
}

// Contracts

func (m *Memory) SaveContract(_ context.Context, c engine.Contract) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contracts[c.ID] = c
	return nil
}

func (m *Memory) GetContract(_ context.Context, id string) (engine.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contracts[id]
	if !ok {
		return engine.Contract{}, store.ErrNotFound
	}
	return c, nil
}

func (m *Memory) ListContracts(_ context.Context) ([]engine.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]engine.Contract, 0, len(m.contracts))
	for _, c := range m.contracts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DeleteContract(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.contracts[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.contracts, id)
	return nil
}

// Expenses

func (m *Memory) SaveExpense(_ context.Context, e engine.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expenses[e.ID] = e
	return nil
}

func (m *Memory) GetExpense(_ context.Context, id string) (engine.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.expenses[id]
	if !ok {
		return engine.Expense{}, store.ErrNotFound
	}
	return e, nil
}

func (m *Memory) ListExpenses(_ context.Context) ([]engine.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]engine.Expense, 0, len(m.expenses))
	for _, e := range m.expenses {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LimitDate.Equal(out[j].LimitDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].LimitDate.Before(out[j].LimitDate)
	})
	return out, nil
}

func (m *Memory) DeleteExpense(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.expenses[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.expenses, id)
	return nil
}

// Tax obligations

func (m *Memory) SaveTaxObligation(_ context.Context, t engine.TaxObligation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.taxes[t.ID] = t
	return nil
}

func (m *Memory) ListTaxObligations(_ context.Context) ([]engine.TaxObligation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]engine.TaxObligation, 0, len(m.taxes))
	for _, t := range m.taxes {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FixedDueDate.Equal(out[j].FixedDueDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].FixedDueDate.Before(out[j].FixedDueDate)
	})
	return out, nil
}

// Holidays

func (m *Memory) SaveHoliday(_ context.Context, h calendar.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays[h.ID] = h
	return nil
}

func (m *Memory) DeleteHoliday(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.holidays[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.holidays, id)
	return nil
}

func (m *Memory) ListHolidays(_ context.Context) ([]calendar.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]calendar.Holiday, 0, len(m.holidays))
	for _, h := range m.holidays {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// IsHoliday implements calendar.HolidayCalendar.
func (m *Memory) IsHoliday(date calendar.Date) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, h := range m.holidays {
		if h.Matches(date) {
			return true
		}
	}
	return false
}

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	return nil
}
