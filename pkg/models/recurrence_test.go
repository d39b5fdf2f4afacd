package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRecurrenceRule_Expand_DailyInterval(t *testing.T) {
	rule := &RecurrenceRule{
		Frequency: FrequencyDaily,
		Interval:  3,
		StartDate: date(2024, time.June, 1),
	}

	dates := rule.Expand(date(2024, time.June, 1), date(2024, time.June, 10), 0)

	assert.Equal(t, []time.Time{
		date(2024, time.June, 1),
		date(2024, time.June, 4),
		date(2024, time.June, 7),
		date(2024, time.June, 10),
	}, dates)
}

func TestRecurrenceRule_Expand_DailyStartBeforeWindow(t *testing.T) {
	// Scanning re-anchors at the window start when the rule started in the past.
	rule := &RecurrenceRule{
		Frequency: FrequencyDaily,
		Interval:  2,
		StartDate: date(2024, time.January, 1),
	}

	dates := rule.Expand(date(2024, time.June, 5), date(2024, time.June, 9), 0)

	assert.Equal(t, []time.Time{
		date(2024, time.June, 5),
		date(2024, time.June, 7),
		date(2024, time.June, 9),
	}, dates)
}

func TestRecurrenceRule_Expand_MonthlyClipping(t *testing.T) {
	rule := &RecurrenceRule{
		Frequency:  FrequencyMonthly,
		Interval:   1,
		DayOfMonth: 31,
		StartDate:  date(2025, time.January, 1),
	}

	dates := rule.Expand(date(2025, time.January, 1), date(2025, time.March, 31), 0)

	assert.Equal(t, []time.Time{
		date(2025, time.January, 31),
		date(2025, time.February, 28),
		date(2025, time.March, 31),
	}, dates)
}

func TestRecurrenceRule_Expand_MonthlyClippingLeapYear(t *testing.T) {
	rule := &RecurrenceRule{
		Frequency:  FrequencyMonthly,
		Interval:   1,
		DayOfMonth: 30,
		StartDate:  date(2024, time.February, 1),
	}

	dates := rule.Expand(date(2024, time.February, 1), date(2024, time.February, 29), 0)

	assert.Equal(t, []time.Time{date(2024, time.February, 29)}, dates)
}

func TestRecurrenceRule_Expand_MonthlyYearWrap(t *testing.T) {
	rule := &RecurrenceRule{
		Frequency:  FrequencyMonthly,
		Interval:   2,
		DayOfMonth: 15,
		StartDate:  date(2024, time.November, 1),
	}

	dates := rule.Expand(date(2024, time.November, 1), date(2025, time.March, 31), 0)

	assert.Equal(t, []time.Time{
		date(2024, time.November, 15),
		date(2025, time.January, 15),
		date(2025, time.March, 15),
	}, dates)
}

func TestRecurrenceRule_Expand_WeeklyDayFilter(t *testing.T) {
	rule := &RecurrenceRule{
		Frequency:  FrequencyWeekly,
		Interval:   1,
		DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
		StartDate:  date(2024, time.June, 3), // a Monday
	}

	// 14-day window starting on a Monday: exactly 6 qualifying days.
	dates := rule.Expand(date(2024, time.June, 3), date(2024, time.June, 16), 0)

	require.Len(t, dates, 6)

	for _, d := range dates {
		assert.Contains(t, []time.Weekday{time.Monday, time.Wednesday, time.Friday}, d.Weekday())
	}
}

func TestRecurrenceRule_Expand_WeeklyIgnoresInterval(t *testing.T) {
	// Interval is not applied for weekly rules: every qualifying weekday of
	// every week is included, even with interval=2.
	rule := &RecurrenceRule{
		Frequency:  FrequencyWeekly,
		Interval:   2,
		DaysOfWeek: []time.Weekday{time.Monday},
		StartDate:  date(2024, time.June, 3),
	}

	dates := rule.Expand(date(2024, time.June, 3), date(2024, time.June, 24), 0)

	assert.Equal(t, []time.Time{
		date(2024, time.June, 3),
		date(2024, time.June, 10),
		date(2024, time.June, 17),
		date(2024, time.June, 24),
	}, dates)
}

func TestRecurrenceRule_Expand_FailsClosed(t *testing.T) {
	tests := []struct {
		name string
		rule RecurrenceRule
	}{
		{
			name: "weekly with no days selected",
			rule: RecurrenceRule{Frequency: FrequencyWeekly, Interval: 1, StartDate: date(2024, time.January, 1)},
		},
		{
			name: "monthly with no day of month",
			rule: RecurrenceRule{Frequency: FrequencyMonthly, Interval: 1, StartDate: date(2024, time.January, 1)},
		},
		{
			name: "unknown frequency",
			rule: RecurrenceRule{Frequency: "yearly", Interval: 1, StartDate: date(2024, time.January, 1)},
		},
		{
			name: "zero interval",
			rule: RecurrenceRule{Frequency: FrequencyDaily, Interval: 0, StartDate: date(2024, time.January, 1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dates := tt.rule.Expand(date(2024, time.January, 1), date(2026, time.January, 1), 0)
			assert.Empty(t, dates)
		})
	}
}

func TestRecurrenceRule_Expand_EndDateClamps(t *testing.T) {
	end := date(2024, time.June, 5)
	rule := &RecurrenceRule{
		Frequency: FrequencyDaily,
		Interval:  1,
		StartDate: date(2024, time.June, 1),
		EndDate:   &end,
	}

	dates := rule.Expand(date(2024, time.June, 1), date(2024, time.June, 30), 0)

	require.Len(t, dates, 5)
	assert.Equal(t, end, dates[len(dates)-1])
}

func TestRecurrenceRule_Expand_MaxResults(t *testing.T) {
	rule := &RecurrenceRule{
		Frequency: FrequencyDaily,
		Interval:  1,
		StartDate: date(2024, time.June, 1),
	}

	dates := rule.Expand(date(2024, time.June, 1), date(2024, time.December, 31), 3)

	assert.Equal(t, []time.Time{
		date(2024, time.June, 1),
		date(2024, time.June, 2),
		date(2024, time.June, 3),
	}, dates)
}

func TestRecurrenceRule_Expand_WindowBeforeStart(t *testing.T) {
	rule := &RecurrenceRule{
		Frequency: FrequencyDaily,
		Interval:  1,
		StartDate: date(2024, time.June, 1),
	}

	dates := rule.Expand(date(2024, time.January, 1), date(2024, time.January, 31), 0)

	assert.Empty(t, dates)
}

func TestRecurrenceRule_Validate(t *testing.T) {
	badEnd := date(2024, time.January, 1)

	tests := []struct {
		name    string
		rule    RecurrenceRule
		wantErr bool
	}{
		{
			name: "valid daily",
			rule: RecurrenceRule{Frequency: FrequencyDaily, Interval: 1, StartDate: date(2024, time.June, 1)},
		},
		{
			name: "valid weekly",
			rule: RecurrenceRule{
				Frequency:  FrequencyWeekly,
				Interval:   1,
				DaysOfWeek: []time.Weekday{time.Tuesday},
				StartDate:  date(2024, time.June, 1),
			},
		},
		{
			name:    "weekly without days",
			rule:    RecurrenceRule{Frequency: FrequencyWeekly, Interval: 1, StartDate: date(2024, time.June, 1)},
			wantErr: true,
		},
		{
			name:    "monthly day out of range",
			rule:    RecurrenceRule{Frequency: FrequencyMonthly, Interval: 1, DayOfMonth: 32, StartDate: date(2024, time.June, 1)},
			wantErr: true,
		},
		{
			name: "end before start",
			rule: RecurrenceRule{
				Frequency: FrequencyDaily,
				Interval:  1,
				StartDate: date(2024, time.June, 1),
				EndDate:   &badEnd,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRecurrence)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
