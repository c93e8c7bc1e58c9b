package calendar

import (
	"fmt"
	"time"

	"salonbook/models"
)

// ParseDate validates a YYYY-MM-DD civil date.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return t, nil
}

// Weekday returns the weekday of a civil date. A civil date has one weekday
// regardless of timezone.
func Weekday(date string) (time.Weekday, error) {
	t, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	return t.Weekday(), nil
}

// CivilDate converts an instant to the date it falls on in loc.
func CivilDate(instant time.Time, loc *time.Location) string {
	return instant.In(loc).Format(DateLayout)
}

// WeekdayAt returns the weekday an instant falls on in loc.
func WeekdayAt(instant time.Time, loc *time.Location) time.Weekday {
	return instant.In(loc).Weekday()
}

// Instant resolves a tenant-local date and "HH:MM" to an absolute time.
// Wall times skipped by a DST jump resolve the way time.Date normalizes them.
func Instant(date, clock string, loc *time.Location) (time.Time, error) {
	day, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	minutes, err := models.ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, loc), nil
}

// AddDays shifts a civil date by n days.
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(DateLayout), nil
}
