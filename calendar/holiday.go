package calendar

import (
	"sort"
	"sync"
)

// =============================================================================
// HOLIDAY CALENDAR - Configured non-working days
// =============================================================================

// Holiday is a configured non-working day.
// Recurring holidays match the same month/day every year; the others only
// match their exact date.
type Holiday struct {
	ID        string `json:"id"`
	Date      Date   `json:"date"`
	Name      string `json:"name"`
	Recurring bool   `json:"recurring"`
}

// Matches reports whether the holiday falls on date.
func (h Holiday) Matches(date Date) bool {
	if h.Recurring {
		return h.Date.Month() == date.Month() && h.Date.Day() == date.Day()
	}
	return h.Date.Equal(date)
}

// HolidayCalendar answers holiday lookups. Implemented by Set and by the
// memory and sqlite stores.
type HolidayCalendar interface {
	IsHoliday(date Date) bool
}

// NoHolidays treats every weekday as a working day.
type NoHolidays struct{}

func (NoHolidays) IsHoliday(Date) bool { return false }

// Set is an in-memory holiday calendar. Safe for concurrent use.
type Set struct {
	mu        sync.RWMutex
	exact     map[Date]Holiday
	recurring map[string]Holiday
}

// NewSet returns a set holding the given holidays.
func NewSet(holidays ...Holiday) *Set {
	s := &Set{
		exact:     make(map[Date]Holiday),
		recurring: make(map[string]Holiday),
	}
	for _, h := range holidays {
		s.Add(h)
	}
	return s
}

// Add registers a holiday. Adding the same day twice keeps the last entry;
// membership is what counts, not the number of entries.
func (s *Set) Add(h Holiday) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.Recurring {
		s.recurring[h.Date.monthDay()] = h
		return
	}
	s.exact[h.Date] = h
}

// Remove drops the holiday with the given id.
func (s *Set) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for d, h := range s.exact {
		if h.ID == id {
			delete(s.exact, d)
			return true
		}
	}
	for md, h := range s.recurring {
		if h.ID == id {
			delete(s.recurring, md)
			return true
		}
	}
	return false
}

func (s *Set) IsHoliday(date Date) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.exact[date]; ok {
		return true
	}
	_, ok := s.recurring[date.monthDay()]
	return ok
}

// Holidays returns the holidays falling in year, recurring ones projected
// onto that year, ordered by date.
func (s *Set) Holidays(year int) []Holiday {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Holiday
	for _, h := range s.exact {
		if h.Date.Year() == year {
			out = append(out, h)
		}
	}
	for _, h := range s.recurring {
		h.Date = NewDate(year, h.Date.Month(), h.Date.Day())
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].Name < out[j].Name
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}
