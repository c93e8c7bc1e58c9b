// Package calendar answers "is the site open" questions over a weekly
// schedule and a set of closed dates. It performs no I/O.
package calendar

import (
	"fmt"
	"sort"
	"time"

	"salonbook/models"
)

const DateLayout = "2006-01-02"

// Calendar is a read-only view of one schedule plus its closed dates.
type Calendar struct {
	schedule models.WeeklySchedule
	closed   map[string]struct{}
}

// New builds a Calendar. Duplicate closed dates collapse.
func New(schedule models.WeeklySchedule, closedDates []models.ClosedDate) Calendar {
	closed := make(map[string]struct{}, len(closedDates))
	for _, cd := range closedDates {
		closed[cd.Date] = struct{}{}
	}
	return Calendar{schedule: schedule, closed: closed}
}

// DayConfig returns the hours for a weekday, or nil when none are configured.
func (c Calendar) DayConfig(weekday time.Weekday) *models.DayHours {
	return DayConfig(c.schedule, weekday)
}

// DayConfig returns the hours for a weekday, or nil when none are configured.
func DayConfig(schedule models.WeeklySchedule, weekday time.Weekday) *models.DayHours {
	day, ok := schedule[weekday]
	if !ok {
		return nil
	}
	return &day
}

// IsClosedAllDay is true for explicit closed dates and for weekdays that are
// disabled or unconfigured. Shortened days are not closed.
func (c Calendar) IsClosedAllDay(date string) (bool, error) {
	weekday, err := Weekday(date)
	if err != nil {
		return false, err
	}
	if _, closed := c.closed[date]; closed {
		return true, nil
	}
	day := c.DayConfig(weekday)
	return day == nil || !day.Enabled, nil
}

// IsOpen reports whether the whole window falls inside working hours on the
// date without touching a break.
func (c Calendar) IsOpen(date string, window models.TimeWindow) (bool, error) {
	open, err := c.OpenWindows(date)
	if err != nil {
		return false, err
	}
	for _, w := range open {
		if w.Contains(window) {
			return true, nil
		}
	}
	return false, nil
}

// OpenWindows returns the working intervals of a date with breaks removed,
// in chronological order. A closed day yields no windows.
func (c Calendar) OpenWindows(date string) ([]models.TimeWindow, error) {
	closed, err := c.IsClosedAllDay(date)
	if err != nil || closed {
		return nil, err
	}
	weekday, _ := Weekday(date)
	return DayWindows(*c.DayConfig(weekday))
}

// DayWindows splits a day's hours around its breaks.
func DayWindows(day models.DayHours) ([]models.TimeWindow, error) {
	if err := ValidateDay(day); err != nil {
		return nil, err
	}
	hours, _ := models.TimeRange{Start: day.Start, End: day.End}.Window()
	breaks, _ := sortedBreaks(day.Breaks)
	return Subtract([]models.TimeWindow{hours}, breaks), nil
}

// ValidateDay checks start < end and that breaks are contained and disjoint.
func ValidateDay(day models.DayHours) error {
	hours, err := models.TimeRange{Start: day.Start, End: day.End}.Window()
	if err != nil {
		return err
	}
	if hours.Start >= hours.End {
		return fmt.Errorf("day start %s must be before end %s", day.Start, day.End)
	}
	breaks, err := sortedBreaks(day.Breaks)
	if err != nil {
		return err
	}
	for i, b := range breaks {
		if b.Start >= b.End {
			return fmt.Errorf("break %s must start before it ends", models.FormatClock(b.Start))
		}
		if !hours.Contains(b) {
			return fmt.Errorf("break %s-%s lies outside working hours", models.FormatClock(b.Start), models.FormatClock(b.End))
		}
		if i > 0 && breaks[i-1].Overlaps(b) {
			return fmt.Errorf("breaks overlap at %s", models.FormatClock(b.Start))
		}
	}
	return nil
}

// ValidateSchedule validates every configured weekday.
func ValidateSchedule(schedule models.WeeklySchedule) error {
	for weekday, day := range schedule {
		if weekday < time.Sunday || weekday > time.Saturday {
			return fmt.Errorf("invalid weekday index %d", weekday)
		}
		if !day.Enabled {
			continue
		}
		if err := ValidateDay(day); err != nil {
			return fmt.Errorf("%s: %w", weekday, err)
		}
	}
	return nil
}

func sortedBreaks(ranges []models.TimeRange) ([]models.TimeWindow, error) {
	out := make([]models.TimeWindow, 0, len(ranges))
	for _, r := range ranges {
		w, err := r.Window()
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

// Subtract removes every busy window from the free windows. Both inputs may
// be unsorted; the result is sorted and contains no empty windows.
func Subtract(free, busy []models.TimeWindow) []models.TimeWindow {
	result := append([]models.TimeWindow(nil), free...)
	for _, b := range busy {
		var next []models.TimeWindow
		for _, f := range result {
			if !f.Overlaps(b) {
				next = append(next, f)
				continue
			}
			if f.Start < b.Start {
				next = append(next, models.TimeWindow{Start: f.Start, End: b.Start})
			}
			if b.End < f.End {
				next = append(next, models.TimeWindow{Start: b.End, End: f.End})
			}
		}
		result = next
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Start < result[j].Start })
	return result
}
