package calendar

import (
	"testing"
	"time"

	"salonbook/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weekdaySchedule() models.WeeklySchedule {
	open := models.DayHours{
		Enabled: true,
		Start:   "09:00",
		End:     "17:00",
		Breaks:  []models.TimeRange{{Start: "13:00", End: "13:30"}},
	}
	return models.WeeklySchedule{
		time.Sunday:    {Enabled: false},
		time.Monday:    open,
		time.Tuesday:   open,
		time.Wednesday: open,
		time.Thursday:  open,
		time.Friday:    {Enabled: true, Start: "09:00", End: "13:00"},
		time.Saturday:  {Enabled: false},
	}
}

func TestIsClosedAllDay_WeekendsAndPartialFriday(t *testing.T) {
	cal := New(weekdaySchedule(), nil)

	start, err := ParseDate("2026-01-01")
	require.NoError(t, err)
	for d := start; d.Before(start.AddDate(0, 2, 0)); d = d.AddDate(0, 0, 1) {
		date := d.Format(DateLayout)
		closed, err := cal.IsClosedAllDay(date)
		require.NoError(t, err)

		weekend := d.Weekday() == time.Saturday || d.Weekday() == time.Sunday
		assert.Equal(t, weekend, closed, "date %s (%s)", date, d.Weekday())
	}
}

func TestIsClosedAllDay_ClosedDateOverridesOpenWeekday(t *testing.T) {
	cal := New(weekdaySchedule(), []models.ClosedDate{
		{Date: "2026-04-20", Label: "Holiday"},
		{Date: "2026-04-20"},
	})

	closed, err := cal.IsClosedAllDay("2026-04-20") // Monday
	require.NoError(t, err)
	assert.True(t, closed)

	closed, err = cal.IsClosedAllDay("2026-04-21")
	require.NoError(t, err)
	assert.False(t, closed)
}

func TestIsClosedAllDay_UnconfiguredWeekdayIsClosed(t *testing.T) {
	cal := New(models.WeeklySchedule{time.Monday: {Enabled: true, Start: "09:00", End: "17:00"}}, nil)

	closed, err := cal.IsClosedAllDay("2026-04-22") // Wednesday
	require.NoError(t, err)
	assert.True(t, closed)
}

func TestIsClosedAllDay_MalformedDate(t *testing.T) {
	cal := New(weekdaySchedule(), nil)
	_, err := cal.IsClosedAllDay("22/04/2026")
	assert.Error(t, err)
}

func TestIsOpen(t *testing.T) {
	cal := New(weekdaySchedule(), nil)
	monday := "2026-04-20"

	tests := []struct {
		name   string
		date   string
		window models.TimeWindow
		want   bool
	}{
		{"morning", monday, models.TimeWindow{Start: 9 * 60, End: 10 * 60}, true},
		{"ends at break", monday, models.TimeWindow{Start: 12 * 60, End: 13 * 60}, true},
		{"spans break", monday, models.TimeWindow{Start: 12*60 + 30, End: 13*60 + 30}, false},
		{"past close", monday, models.TimeWindow{Start: 16*60 + 30, End: 17*60 + 30}, false},
		{"before open", monday, models.TimeWindow{Start: 8 * 60, End: 9*60 + 30}, false},
		{"sunday", "2026-04-19", models.TimeWindow{Start: 10 * 60, End: 11 * 60}, false},
		{"short friday", "2026-04-24", models.TimeWindow{Start: 12 * 60, End: 13 * 60}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cal.IsOpen(tt.date, tt.window)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDayConfig(t *testing.T) {
	schedule := weekdaySchedule()
	day := DayConfig(schedule, time.Friday)
	require.NotNil(t, day)
	assert.Equal(t, "13:00", day.End)

	assert.Nil(t, DayConfig(models.WeeklySchedule{}, time.Monday))
}

func TestValidateDay(t *testing.T) {
	tests := []struct {
		name    string
		day     models.DayHours
		wantErr bool
	}{
		{"valid", models.DayHours{Enabled: true, Start: "09:00", End: "17:00"}, false},
		{"inverted", models.DayHours{Enabled: true, Start: "17:00", End: "09:00"}, true},
		{"break outside", models.DayHours{Enabled: true, Start: "09:00", End: "17:00",
			Breaks: []models.TimeRange{{Start: "16:30", End: "17:30"}}}, true},
		{"overlapping breaks", models.DayHours{Enabled: true, Start: "09:00", End: "17:00",
			Breaks: []models.TimeRange{{Start: "12:00", End: "13:00"}, {Start: "12:30", End: "13:30"}}}, true},
		{"bad clock", models.DayHours{Enabled: true, Start: "9am", End: "17:00"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDay(tt.day)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSubtract(t *testing.T) {
	free := []models.TimeWindow{{Start: 540, End: 1020}}
	busy := []models.TimeWindow{{Start: 600, End: 660}, {Start: 780, End: 810}}

	got := Subtract(free, busy)
	assert.Equal(t, []models.TimeWindow{
		{Start: 540, End: 600},
		{Start: 660, End: 780},
		{Start: 810, End: 1020},
	}, got)
}

func TestWeekdayAt_UsesTenantTimezone(t *testing.T) {
	jerusalem, err := time.LoadLocation("Asia/Jerusalem")
	require.NoError(t, err)

	// 22:30 UTC on Saturday is already Sunday in Jerusalem.
	instant := time.Date(2026, 4, 18, 22, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Saturday, instant.Weekday())
	assert.Equal(t, time.Sunday, WeekdayAt(instant, jerusalem))
	assert.Equal(t, "2026-04-19", CivilDate(instant, jerusalem))
}

func TestInstant(t *testing.T) {
	jerusalem, err := time.LoadLocation("Asia/Jerusalem")
	require.NoError(t, err)

	got, err := Instant("2026-04-20", "09:30", jerusalem)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 4, 20, 6, 30, 0, 0, time.UTC), got.UTC())

	_, err = Instant("2026-04-20", "25:00", jerusalem)
	assert.Error(t, err)
}
