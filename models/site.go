package models

import (
	"fmt"
	"time"
)

// TimeRange is a "HH:MM" pair, used for working hours and breaks.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Window parses the range into minutes from midnight.
func (r TimeRange) Window() (TimeWindow, error) {
	start, err := ParseClock(r.Start)
	if err != nil {
		return TimeWindow{}, err
	}
	end, err := ParseClock(r.End)
	if err != nil {
		return TimeWindow{}, err
	}
	return TimeWindow{Start: start, End: end}, nil
}

// DayHours is one weekday's working hours.
type DayHours struct {
	Enabled bool        `json:"enabled"`
	Start   string      `json:"start"`
	End     string      `json:"end"`
	Breaks  []TimeRange `json:"breaks,omitempty"`
}

// WeeklySchedule is keyed by weekday, Sunday = 0.
type WeeklySchedule map[time.Weekday]DayHours

// ClosedDate removes a whole civil date from availability.
type ClosedDate struct {
	Date  string `json:"date"`
	Label string `json:"label,omitempty"`
}

// Worker is a staff member. An empty ServiceIDs list qualifies the worker for
// every service; a nil Schedule falls back to the site schedule.
type Worker struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	ServiceIDs []string       `json:"serviceIds,omitempty"`
	Active     bool           `json:"active"`
	Schedule   WeeklySchedule `json:"weeklySchedule,omitempty"`
}

func (w Worker) Qualified(serviceID string) bool {
	if len(w.ServiceIDs) == 0 || serviceID == "" {
		return true
	}
	for _, id := range w.ServiceIDs {
		if id == serviceID {
			return true
		}
	}
	return false
}

// FollowUpStep is a subsequent step of a multi-step service. GapMinutes is
// the wait between the end of the previous step and this one.
type FollowUpStep struct {
	ServiceID       string `json:"serviceId"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"durationMinutes"`
	GapMinutes      int    `json:"gapMinutes"`
}

// Service is a bookable service. The last FollowUps entry is the trailing
// finish step of a chain.
type Service struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	DurationMinutes int            `json:"durationMinutes"`
	FollowUps       []FollowUpStep `json:"followUps,omitempty"`
}

// ChainDuration is the total time a chain occupies: every step plus every gap.
func (s Service) ChainDuration() int {
	total := s.DurationMinutes
	for _, f := range s.FollowUps {
		total += f.GapMinutes + f.DurationMinutes
	}
	return total
}

var allowedGranularities = map[int]bool{15: true, 30: true, 60: true}

const DefaultSlotGranularity = 30

// SiteSettings is the slice of a tenant's settings the engine reads.
type SiteSettings struct {
	TenantID               string         `json:"tenantId"`
	Name                   string         `json:"name"`
	Timezone               string         `json:"timezone"`
	SlotGranularityMinutes int            `json:"slotGranularityMinutes"`
	WeeklySchedule         WeeklySchedule `json:"weeklySchedule"`
	ClosedDates            []ClosedDate   `json:"closedDates,omitempty"`
	Workers                []Worker       `json:"workers,omitempty"`
	Services               []Service      `json:"services,omitempty"`
	OwnerPushToken         string         `json:"-"`
}

// Location resolves the tenant timezone, defaulting to UTC when unset.
func (s SiteSettings) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q for site %s: %w", s.Timezone, s.TenantID, err)
	}
	return loc, nil
}

// Granularity returns the slot step in minutes.
func (s SiteSettings) Granularity() int {
	if allowedGranularities[s.SlotGranularityMinutes] {
		return s.SlotGranularityMinutes
	}
	return DefaultSlotGranularity
}

func (s SiteSettings) Service(id string) (Service, bool) {
	for _, svc := range s.Services {
		if svc.ID == id {
			return svc, true
		}
	}
	return Service{}, false
}

func (s SiteSettings) Worker(id string) (Worker, bool) {
	for _, w := range s.Workers {
		if w.ID == id {
			return w, true
		}
	}
	return Worker{}, false
}

// ScheduleFor returns the schedule that governs a worker.
func (s SiteSettings) ScheduleFor(w Worker) WeeklySchedule {
	if w.Schedule != nil {
		return w.Schedule
	}
	return s.WeeklySchedule
}
