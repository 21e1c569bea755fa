package engine

import (
	"fmt"

	"github.com/tjpa/sgf-engine/calendar"
)

// =============================================================================
// DEADLINE ALERTS - Retroaction schedule
// =============================================================================

// GenerateDeadlineAlerts emits one Deadlines alert per configured offset, in
// offset order. Each alert date is the due date minus the offset, moved back
// to the previous working day when it lands on a weekend or holiday.
//
// With the default schedule a due date of the 20th yields alerts on the
// 10th (Low), 15th (Medium) and 19th (High). Repeated calls yield equal
// alerts with distinct ids; nothing is deduplicated.
func (e *Engine) GenerateDeadlineAlerts(due calendar.Date, entityID, description string) []Alert {
	alerts := make([]Alert, 0, len(e.opts.Offsets))
	for _, offset := range e.opts.Offsets {
		raw := due.AddDays(-offset)
		adjusted := e.calendar.AdjustToWorkingDay(raw)

		alerts = append(alerts, Alert{
			ID:              e.ids.NewID(),
			Type:            AlertDeadlines,
			Severity:        e.opts.SeverityByOffset[offset],
			Message:         fmt.Sprintf("Alerta Antecipado: %s vence em %d dias.", description, offset),
			Date:            adjusted.Time(),
			RelatedEntityID: entityID,
		})
	}
	return alerts
}

// GenerateDeadlineAlertsFor parses due first. Unparseable input yields a
// *calendar.InvalidDateError.
func (e *Engine) GenerateDeadlineAlertsFor(due, entityID, description string) ([]Alert, error) {
	d, err := calendar.Parse(due)
	if err != nil {
		return nil, err
	}
	return e.GenerateDeadlineAlerts(d, entityID, description), nil
}
