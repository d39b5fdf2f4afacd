package models

import (
	"errors"
	"time"
)

// Frequency is the unit of a recurrence rule.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// RecurrenceRule is a compact description of a repeating due-date pattern.
type RecurrenceRule struct {
	Frequency Frequency `json:"frequency" validate:"required,oneof=daily weekly monthly"`

	// Interval repeats every N units. Note: the weekly expansion intentionally
	// ignores Interval (see Expand); this mirrors the behavior the rest of the
	// application was built against and is kept until product decides otherwise.
	Interval int `json:"interval" validate:"min=1"`

	// DaysOfWeek selects qualifying weekdays for weekly rules (0=Sunday..6=Saturday).
	DaysOfWeek []time.Weekday `json:"days_of_week,omitempty"`

	// DayOfMonth selects the due day for monthly rules (1..31, clipped to the
	// month's last day).
	DayOfMonth int `json:"day_of_month,omitempty"`

	StartDate time.Time  `json:"start_date" validate:"required"`
	EndDate   *time.Time `json:"end_date,omitempty"` // inclusive, nil = unbounded
}

var (
	// ErrInvalidRecurrence is returned when recurrence rule validation fails.
	ErrInvalidRecurrence = errors.New("invalid recurrence rule")
)

// Validate performs structural validation of the rule. Expansion itself never
// returns errors; a malformed rule expands to no occurrences.
func (r *RecurrenceRule) Validate() error {
	if r.Interval < 1 {
		return ErrInvalidRecurrence
	}

	switch r.Frequency {
	case FrequencyDaily:
	case FrequencyWeekly:
		if len(r.DaysOfWeek) == 0 {
			return ErrInvalidRecurrence
		}

		for _, day := range r.DaysOfWeek {
			if day < time.Sunday || day > time.Saturday {
				return ErrInvalidRecurrence
			}
		}
	case FrequencyMonthly:
		if r.DayOfMonth < 1 || r.DayOfMonth > 31 {
			return ErrInvalidRecurrence
		}
	default:
		return ErrInvalidRecurrence
	}

	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return ErrInvalidRecurrence
	}

	return nil
}

// Expand returns the ordered occurrence dates of the rule inside
// [windowStart, windowEnd], at day granularity in UTC. It is a pure function
// of its inputs. maxResults bounds the result size; maxResults <= 0 means
// unbounded within the window. A malformed rule expands to an empty slice:
// "nothing is due" is the safe reading of a rule the engine cannot interpret.
func (r *RecurrenceRule) Expand(windowStart, windowEnd time.Time, maxResults int) []time.Time {
	start := dateOf(r.StartDate)
	windowStart = dateOf(windowStart)
	windowEnd = dateOf(windowEnd)

	if windowEnd.Before(windowStart) || r.Interval < 1 {
		return nil
	}

	// Scanning starts at the later of the rule start and the window start and
	// stops at the earlier of the rule end and the window end.
	effectiveStart := start
	if windowStart.After(effectiveStart) {
		effectiveStart = windowStart
	}

	clamp := windowEnd
	if r.EndDate != nil {
		if end := dateOf(*r.EndDate); end.Before(clamp) {
			clamp = end
		}
	}

	if clamp.Before(effectiveStart) {
		return nil
	}

	switch r.Frequency {
	case FrequencyDaily:
		return r.expandDaily(effectiveStart, clamp, maxResults)
	case FrequencyWeekly:
		return r.expandWeekly(effectiveStart, clamp, maxResults)
	case FrequencyMonthly:
		return r.expandMonthly(effectiveStart, clamp, maxResults)
	default:
		return nil
	}
}

func (r *RecurrenceRule) expandDaily(from, clamp time.Time, maxResults int) []time.Time {
	var dates []time.Time

	for d := from; !d.After(clamp); d = d.AddDate(0, 0, r.Interval) {
		dates = append(dates, d)
		if maxResults > 0 && len(dates) >= maxResults {
			break
		}
	}

	return dates
}

// expandWeekly scans day-by-day and includes every day whose weekday is
// selected. Interval is deliberately not applied here; every qualifying
// weekday of every week is included.
func (r *RecurrenceRule) expandWeekly(from, clamp time.Time, maxResults int) []time.Time {
	if len(r.DaysOfWeek) == 0 {
		return nil
	}

	selected := make(map[time.Weekday]bool, len(r.DaysOfWeek))
	for _, day := range r.DaysOfWeek {
		selected[day] = true
	}

	var dates []time.Time

	for d := from; !d.After(clamp); d = d.AddDate(0, 0, 1) {
		if !selected[d.Weekday()] {
			continue
		}

		dates = append(dates, d)
		if maxResults > 0 && len(dates) >= maxResults {
			break
		}
	}

	return dates
}

// expandMonthly steps month-by-month from the effective start, clipping the
// due day to the last day of short months (day 31 in February lands on
// February's last day).
func (r *RecurrenceRule) expandMonthly(from, clamp time.Time, maxResults int) []time.Time {
	if r.DayOfMonth < 1 || r.DayOfMonth > 31 {
		return nil
	}

	var dates []time.Time

	year, month := from.Year(), from.Month()

	for {
		day := r.DayOfMonth
		if last := lastDayOfMonth(year, month); day > last {
			day = last
		}

		d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if d.After(clamp) {
			break
		}

		if !d.Before(from) {
			dates = append(dates, d)
			if maxResults > 0 && len(dates) >= maxResults {
				break
			}
		}

		month += time.Month(r.Interval)
		for month > time.December {
			month -= 12
			year++
		}
	}

	return dates
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// dateOf truncates an instant to its UTC calendar date.
func dateOf(t time.Time) time.Time {
	t = t.UTC()

	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
