package booking

import (
	"sort"
	"time"

	"salonbook/models"
	"salonbook/services/calendar"
	"salonbook/utils"
)

// SlotQuery selects what AvailableSlots computes. A ServiceID that names a
// multi-step service fits the whole chain; DurationMinutes is used when no
// service is given. An empty WorkerID means any qualified worker.
type SlotQuery struct {
	Date            string
	ServiceID       string
	DurationMinutes int
	WorkerID        string
	// Now, when set, drops start times that are not in the future.
	Now time.Time
}

// candidate is one worker whose calendar the resolver walks. The zero value
// stands for the site itself when no workers are configured.
type candidate struct {
	worker models.Worker
	order  int
}

// AvailableSlots returns the bookable start times of a date in chronological
// order. It performs no I/O: existing holds every booking of the tenant on
// that date. Unassigned bookings block every worker.
func AvailableSlots(settings models.SiteSettings, existing []models.Booking, q SlotQuery) ([]models.Slot, error) {
	if _, err := calendar.ParseDate(q.Date); err != nil {
		return nil, utils.NewValidationError("invalid_date", "date must be YYYY-MM-DD, got %q", q.Date)
	}
	duration, serviceID, err := resolveDuration(settings, q)
	if err != nil {
		return nil, err
	}
	candidates, err := resolveCandidates(settings, q.WorkerID, serviceID)
	if err != nil {
		return nil, err
	}
	loc, err := settings.Location()
	if err != nil {
		return nil, utils.NewValidationError("invalid_timezone", "%v", err)
	}
	notBefore, pastDay := cutoffMinute(q, loc)
	if pastDay {
		return []models.Slot{}, nil
	}

	load := bookingLoad(existing)
	best := make(map[int]candidate)
	for _, c := range candidates {
		starts, err := workerStarts(settings, c.worker, existing, q.Date, duration, len(settings.Workers) == 0)
		if err != nil {
			return nil, err
		}
		for _, start := range starts {
			if start <= notBefore {
				continue
			}
			current, taken := best[start]
			if !taken || fewerBookings(c, current, load) {
				best[start] = c
			}
		}
	}

	starts := make([]int, 0, len(best))
	for start := range best {
		starts = append(starts, start)
	}
	sort.Ints(starts)

	slots := make([]models.Slot, 0, len(starts))
	for _, start := range starts {
		slots = append(slots, models.Slot{
			Time:     models.FormatClock(start),
			End:      models.FormatClock(start + duration),
			WorkerID: best[start].worker.ID,
		})
	}
	return slots, nil
}

func resolveDuration(settings models.SiteSettings, q SlotQuery) (int, string, error) {
	duration := q.DurationMinutes
	if q.ServiceID != "" {
		svc, ok := settings.Service(q.ServiceID)
		if !ok {
			return 0, "", utils.NewNotFoundError("service_not_found", "service %s not found", q.ServiceID)
		}
		duration = svc.ChainDuration()
	}
	if duration <= 0 {
		return 0, "", utils.NewValidationError("invalid_duration", "duration must be positive, got %d", duration)
	}
	if duration > models.MinutesPerDay {
		return 0, "", utils.NewValidationError("invalid_duration", "duration %d exceeds one day", duration)
	}
	return duration, q.ServiceID, nil
}

func resolveCandidates(settings models.SiteSettings, workerID, serviceID string) ([]candidate, error) {
	if workerID != "" {
		for i, w := range settings.Workers {
			if w.ID != workerID {
				continue
			}
			if !w.Active || !w.Qualified(serviceID) {
				return nil, nil
			}
			return []candidate{{worker: w, order: i}}, nil
		}
		return nil, utils.NewNotFoundError("worker_not_found", "worker %s not found", workerID)
	}
	if len(settings.Workers) == 0 {
		return []candidate{{}}, nil
	}
	var out []candidate
	for i, w := range settings.Workers {
		if w.Active && w.Qualified(serviceID) {
			out = append(out, candidate{worker: w, order: i})
		}
	}
	return out, nil
}

// cutoffMinute returns the last minute of the date that is not bookable
// because it has already passed, and whether the whole date is past.
func cutoffMinute(q SlotQuery, loc *time.Location) (int, bool) {
	if q.Now.IsZero() {
		return -1, false
	}
	today := calendar.CivilDate(q.Now, loc)
	switch {
	case q.Date < today:
		return 0, true
	case q.Date > today:
		return -1, false
	}
	local := q.Now.In(loc)
	return local.Hour()*60 + local.Minute(), false
}

// workerStarts walks one worker's free windows on the granularity grid,
// anchored at the worker's opening time.
func workerStarts(settings models.SiteSettings, w models.Worker, existing []models.Booking, date string, duration int, siteWide bool) ([]int, error) {
	schedule := settings.ScheduleFor(w)
	cal := calendar.New(schedule, settings.ClosedDates)
	open, err := cal.OpenWindows(date)
	if err != nil {
		return nil, utils.NewValidationError("invalid_schedule", "%v", err)
	}
	if len(open) == 0 {
		return nil, nil
	}
	weekday, _ := calendar.Weekday(date)
	anchor, _ := models.ParseClock(cal.DayConfig(weekday).Start)

	var busy []models.TimeWindow
	for _, b := range existing {
		if !b.Status.BlocksCalendar() || b.Date != date {
			continue
		}
		if !siteWide && b.WorkerID != "" && b.WorkerID != w.ID {
			continue
		}
		window, err := b.Window()
		if err != nil || window.End <= window.Start {
			continue
		}
		busy = append(busy, window)
	}

	step := settings.Granularity()
	var starts []int
	for _, free := range calendar.Subtract(open, busy) {
		start := anchor
		if free.Start > anchor {
			start = anchor + (free.Start-anchor+step-1)/step*step
		}
		for ; start+duration <= free.End; start += step {
			starts = append(starts, start)
		}
	}
	return starts, nil
}

func bookingLoad(existing []models.Booking) map[string]int {
	load := make(map[string]int)
	for _, b := range existing {
		if b.WorkerID != "" && b.Status.BlocksCalendar() && !b.IsFollowUp {
			load[b.WorkerID]++
		}
	}
	return load
}

func fewerBookings(a, b candidate, load map[string]int) bool {
	la, lb := load[a.worker.ID], load[b.worker.ID]
	if la != lb {
		return la < lb
	}
	return a.order < b.order
}
