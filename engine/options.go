package engine

import "fmt"

// =============================================================================
// OPTIONS - Retroaction schedule and thresholds
// =============================================================================

// Options configures the rule engine. The defaults reproduce the office's
// current behavior; none of the numbers carry regulatory weight.
type Options struct {
	// Offsets are the days before a due date at which deadline alerts fire,
	// in emission order.
	Offsets []int

	// SeverityByOffset maps every offset to its alert severity.
	SeverityByOffset map[int]Severity

	// CriticalWindowDays is the largest number of days remaining for which
	// an unpaid entry is CRITICO.
	CriticalWindowDays int
}

func DefaultOptions() Options {
	return Options{
		Offsets: []int{10, 5, 1},
		SeverityByOffset: map[int]Severity{
			10: SeverityLow,
			5:  SeverityMedium,
			1:  SeverityHigh,
		},
		CriticalWindowDays: 2,
	}
}

// Validate checks that every offset is positive, unique and mapped to a
// known severity.
func (o Options) Validate() error {
	if len(o.Offsets) == 0 {
		return &OptionsError{Field: "offsets", Reason: "at least one offset is required"}
	}
	seen := make(map[int]bool, len(o.Offsets))
	for _, off := range o.Offsets {
		if off <= 0 {
			return &OptionsError{Field: "offsets", Reason: fmt.Sprintf("offset %d must be positive", off)}
		}
		if seen[off] {
			return &OptionsError{Field: "offsets", Reason: fmt.Sprintf("offset %d repeated", off)}
		}
		seen[off] = true

		sev, ok := o.SeverityByOffset[off]
		if !ok {
			return &OptionsError{Field: "severityByOffset", Reason: fmt.Sprintf("no severity for offset %d", off)}
		}
		if !sev.Valid() {
			return &OptionsError{Field: "severityByOffset", Reason: fmt.Sprintf("unknown severity %q", sev)}
		}
	}
	if o.CriticalWindowDays < 0 {
		return &OptionsError{Field: "criticalWindowDays", Reason: "must not be negative"}
	}
	return nil
}

func (o Options) clone() Options {
	c := Options{
		Offsets:            append([]int(nil), o.Offsets...),
		SeverityByOffset:   make(map[int]Severity, len(o.SeverityByOffset)),
		CriticalWindowDays: o.CriticalWindowDays,
	}
	for k, v := range o.SeverityByOffset {
		c.SeverityByOffset[k] = v
	}
	return c
}
