package calendar

// =============================================================================
// BUSINESS CALENDAR - Working-day classification and adjustment
// =============================================================================

// Calendar classifies days as working or non-working.
// A non-working day is a Saturday, a Sunday, or a configured holiday.
type Calendar struct {
	holidays HolidayCalendar
}

// New returns a calendar backed by holidays. A nil source means weekends only.
func New(holidays HolidayCalendar) *Calendar {
	if holidays == nil {
		holidays = NoHolidays{}
	}
	return &Calendar{holidays: holidays}
}

// IsNonWorkingDay reports whether date is a weekend day or a holiday.
// A holiday on a weekend is still a single non-working day.
func (c *Calendar) IsNonWorkingDay(date Date) bool {
	return date.IsWeekend() || c.holidays.IsHoliday(date)
}

// PreviousWorkingDay returns the first working day strictly before date.
// Runs of consecutive non-working days are walked entirely.
// Terminates as long as the holiday source is finite per week, which any
// real calendar is.
func (c *Calendar) PreviousWorkingDay(date Date) Date {
	current := date.AddDays(-1)
	for c.IsNonWorkingDay(current) {
		current = current.AddDays(-1)
	}
	return current
}

// AdjustToWorkingDay returns date itself when it is a working day, otherwise
// the previous working day. Never returns a later date.
func (c *Calendar) AdjustToWorkingDay(date Date) Date {
	if c.IsNonWorkingDay(date) {
		return c.PreviousWorkingDay(date)
	}
	return date
}
