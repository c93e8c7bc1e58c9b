package models

import (
	"sort"
	"strings"
	"time"
)

// BookingStatus is the canonical lifecycle state of a booking.
type BookingStatus string

const (
	StatusBooked               BookingStatus = "booked"
	StatusAwaitingConfirmation BookingStatus = "awaiting_confirmation"
	StatusConfirmed            BookingStatus = "confirmed"
	StatusCancelled            BookingStatus = "cancelled"
	StatusCancelledBySalon     BookingStatus = "cancelled_by_salon"
	StatusNoShow               BookingStatus = "no_show"
)

var legacyStatusAliases = map[string]BookingStatus{
	"booked":                StatusBooked,
	"scheduled":             StatusBooked,
	"pending":               StatusAwaitingConfirmation,
	"awaiting_confirmation": StatusAwaitingConfirmation,
	"awaitingconfirmation":  StatusAwaitingConfirmation,
	"pending_confirmation":  StatusAwaitingConfirmation,
	"confirmed":             StatusConfirmed,
	"cancelled":             StatusCancelled,
	"canceled":              StatusCancelled,
	"cancelled_by_salon":    StatusCancelledBySalon,
	"canceled_by_salon":     StatusCancelledBySalon,
	"cancelledbysalon":      StatusCancelledBySalon,
	"no_show":               StatusNoShow,
	"noshow":                StatusNoShow,
	"no-show":               StatusNoShow,
}

// ParseBookingStatus maps a stored value onto the canonical enum.
func ParseBookingStatus(raw string) (BookingStatus, bool) {
	s, ok := legacyStatusAliases[strings.ToLower(strings.TrimSpace(raw))]
	return s, ok
}

// ResolveLegacyStatus applies the stored fallback chain
// status -> statusAtArchive -> booked. defaulted reports that neither field
// held a usable value.
func ResolveLegacyStatus(status, statusAtArchive string) (resolved BookingStatus, defaulted bool) {
	if s, ok := ParseBookingStatus(status); ok {
		return s, false
	}
	if s, ok := ParseBookingStatus(statusAtArchive); ok {
		return s, false
	}
	return StatusBooked, true
}

// StatusAliases returns every stored spelling that maps onto one of the
// given statuses, for use in store "in" filters.
func StatusAliases(statuses ...BookingStatus) []string {
	var out []string
	for raw, canonical := range legacyStatusAliases {
		for _, s := range statuses {
			if canonical == s {
				out = append(out, raw)
			}
		}
	}
	sort.Strings(out)
	return out
}

func (s BookingStatus) IsCancelled() bool {
	return s == StatusCancelled || s == StatusCancelledBySalon
}

// BlocksCalendar reports whether a booking in this state occupies its worker's time.
func (s BookingStatus) BlocksCalendar() bool {
	return !s.IsCancelled()
}

// Booking is one row of an appointment chain. Follow-ups point at their
// anchor through AnchorID; the anchor lists them in FollowUpIDs.
type Booking struct {
	ID                     string        `json:"id"`
	TenantID               string        `json:"tenantId"`
	Date                   string        `json:"date"` // YYYY-MM-DD, tenant local
	Time                   string        `json:"time"` // HH:MM, tenant local
	DurationMinutes        int           `json:"durationMinutes"`
	WorkerID               string        `json:"workerId,omitempty"`
	WorkerName             string        `json:"workerName,omitempty"`
	ServiceID              string        `json:"serviceId"`
	ServiceName            string        `json:"serviceName,omitempty"`
	CustomerPhone          string        `json:"customerPhone"`
	CustomerName           string        `json:"customerName"`
	Status                 BookingStatus `json:"status"`
	IsFollowUp             bool          `json:"isFollowUp"`
	AnchorID               string        `json:"anchorId,omitempty"`
	FollowUpIDs            []string      `json:"followUpIds,omitempty"`
	AppointmentAt          time.Time     `json:"appointmentAt"`
	ConfirmationReceivedAt *time.Time    `json:"confirmationReceivedAt,omitempty"`
	CreatedAt              time.Time     `json:"createdAt"`
	UpdatedAt              time.Time     `json:"updatedAt"`

	// StatusDefaulted is set when the stored status was unusable and Status
	// fell back to booked.
	StatusDefaulted bool `json:"-"`
}

// StartMinute returns the start as minutes from midnight.
func (b Booking) StartMinute() (int, error) {
	return ParseClock(b.Time)
}

// Window returns [start, end) in minutes from midnight.
func (b Booking) Window() (TimeWindow, error) {
	start, err := b.StartMinute()
	if err != nil {
		return TimeWindow{}, err
	}
	return TimeWindow{Start: start, End: start + b.DurationMinutes}, nil
}

// BookingRequest is the payload for committing a new appointment.
type BookingRequest struct {
	Date          string `json:"date" binding:"required"`
	Time          string `json:"time" binding:"required"`
	ServiceID     string `json:"serviceId" binding:"required"`
	WorkerID      string `json:"workerId"`
	CustomerName  string `json:"customerName" binding:"required"`
	CustomerPhone string `json:"customerPhone" binding:"required"`
}
