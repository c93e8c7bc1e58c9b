package siteRepo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"salonbook/database/docstore"
	"salonbook/database/repository/paths"
	"salonbook/models"
	"salonbook/services/calendar"
)

func (r *docSiteRepo) GetByID(ctx context.Context, tenantID string) (*models.SiteSettings, error) {
	doc, err := r.store.Get(ctx, paths.Sites, tenantID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error fetching site %s: %w", tenantID, err)
	}
	settings := DecodeSettings(*doc)
	return &settings, nil
}

func (r *docSiteRepo) ListIDs(ctx context.Context) ([]string, error) {
	docs, err := r.store.Query(ctx, docstore.Query{Collection: paths.Sites})
	if err != nil {
		return nil, fmt.Errorf("error listing sites: %w", err)
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

// Save rejects schedules the slot resolver could not use, for the site and
// for every worker override.
func (r *docSiteRepo) Save(ctx context.Context, settings models.SiteSettings) error {
	if err := calendar.ValidateSchedule(settings.WeeklySchedule); err != nil {
		return fmt.Errorf("invalid schedule for site %s: %w", settings.TenantID, err)
	}
	for _, w := range settings.Workers {
		if err := calendar.ValidateSchedule(w.Schedule); err != nil {
			return fmt.Errorf("invalid schedule for worker %s: %w", w.ID, err)
		}
	}
	op := docstore.Set(paths.Sites, settings.TenantID, EncodeSettings(settings))
	if err := r.store.BatchWrite(ctx, []docstore.WriteOp{op}); err != nil {
		return fmt.Errorf("error saving site %s: %w", settings.TenantID, err)
	}
	return nil
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
}

// parseWeekdayKey accepts "0".."6" and English day names.
func parseWeekdayKey(key string) (time.Weekday, bool) {
	if n, err := strconv.Atoi(key); err == nil {
		if n >= 0 && n <= 6 {
			return time.Weekday(n), true
		}
		return 0, false
	}
	wd, ok := weekdayNames[strings.ToLower(key)]
	return wd, ok
}

func decodeSchedule(f docstore.Fields) models.WeeklySchedule {
	if f == nil {
		return nil
	}
	schedule := models.WeeklySchedule{}
	for key := range f {
		wd, ok := parseWeekdayKey(key)
		if !ok {
			continue
		}
		day := f.Map(key)
		if day == nil {
			continue
		}
		hours := models.DayHours{
			Enabled: day.Bool("enabled"),
			Start:   day.String("start"),
			End:     day.String("end"),
		}
		for _, b := range day.Maps("breaks") {
			hours.Breaks = append(hours.Breaks, models.TimeRange{Start: b.String("start"), End: b.String("end")})
		}
		schedule[wd] = hours
	}
	return schedule
}

func encodeSchedule(s models.WeeklySchedule) docstore.Fields {
	out := docstore.Fields{}
	for wd, day := range s {
		breaks := make([]any, 0, len(day.Breaks))
		for _, b := range day.Breaks {
			breaks = append(breaks, docstore.Fields{"start": b.Start, "end": b.End})
		}
		out[strconv.Itoa(int(wd))] = docstore.Fields{
			"enabled": day.Enabled,
			"start":   day.Start,
			"end":     day.End,
			"breaks":  breaks,
		}
	}
	return out
}

// DecodeSettings maps a site document onto SiteSettings.
func DecodeSettings(doc docstore.Document) models.SiteSettings {
	f := doc.Data
	s := models.SiteSettings{
		TenantID:               doc.ID,
		Name:                   f.String("name"),
		Timezone:               f.String("timezone"),
		SlotGranularityMinutes: int(f.Int("slotGranularityMinutes")),
		WeeklySchedule:         decodeSchedule(f.Map("weeklySchedule")),
		OwnerPushToken:         f.String("ownerPushToken"),
	}
	for _, cd := range f.Maps("closedDates") {
		s.ClosedDates = append(s.ClosedDates, models.ClosedDate{Date: cd.String("date"), Label: cd.String("label")})
	}
	// Older sites store closed dates as plain strings.
	for _, d := range f.Strings("closedDates") {
		s.ClosedDates = append(s.ClosedDates, models.ClosedDate{Date: d})
	}
	for _, w := range f.Maps("workers") {
		worker := models.Worker{
			ID:         w.String("id"),
			Name:       w.String("name"),
			ServiceIDs: w.Strings("serviceIds"),
			Active:     !w.Has("active") || w.Bool("active"),
			Schedule:   decodeSchedule(w.Map("weeklySchedule")),
		}
		s.Workers = append(s.Workers, worker)
	}
	for _, sv := range f.Maps("services") {
		svc := models.Service{
			ID:              sv.String("id"),
			Name:            sv.String("name"),
			DurationMinutes: int(sv.Int("durationMinutes")),
		}
		for _, fu := range sv.Maps("followUps") {
			svc.FollowUps = append(svc.FollowUps, models.FollowUpStep{
				ServiceID:       fu.String("serviceId"),
				Name:            fu.String("name"),
				DurationMinutes: int(fu.Int("durationMinutes")),
				GapMinutes:      int(fu.Int("gapMinutes")),
			})
		}
		s.Services = append(s.Services, svc)
	}
	return s
}

// EncodeSettings is the inverse of DecodeSettings.
func EncodeSettings(s models.SiteSettings) docstore.Fields {
	f := docstore.Fields{
		"name":                   s.Name,
		"timezone":               s.Timezone,
		"slotGranularityMinutes": int64(s.SlotGranularityMinutes),
		"weeklySchedule":         encodeSchedule(s.WeeklySchedule),
	}
	if s.OwnerPushToken != "" {
		f["ownerPushToken"] = s.OwnerPushToken
	}

	closed := make([]any, 0, len(s.ClosedDates))
	for _, cd := range s.ClosedDates {
		closed = append(closed, docstore.Fields{"date": cd.Date, "label": cd.Label})
	}
	f["closedDates"] = closed

	workers := make([]any, 0, len(s.Workers))
	for _, w := range s.Workers {
		wf := docstore.Fields{"id": w.ID, "name": w.Name, "active": w.Active}
		if len(w.ServiceIDs) > 0 {
			ids := make([]any, len(w.ServiceIDs))
			for i, id := range w.ServiceIDs {
				ids[i] = id
			}
			wf["serviceIds"] = ids
		}
		if w.Schedule != nil {
			wf["weeklySchedule"] = encodeSchedule(w.Schedule)
		}
		workers = append(workers, wf)
	}
	f["workers"] = workers

	services := make([]any, 0, len(s.Services))
	for _, svc := range s.Services {
		followUps := make([]any, 0, len(svc.FollowUps))
		for _, fu := range svc.FollowUps {
			followUps = append(followUps, docstore.Fields{
				"serviceId":       fu.ServiceID,
				"name":            fu.Name,
				"durationMinutes": int64(fu.DurationMinutes),
				"gapMinutes":      int64(fu.GapMinutes),
			})
		}
		services = append(services, docstore.Fields{
			"id":              svc.ID,
			"name":            svc.Name,
			"durationMinutes": int64(svc.DurationMinutes),
			"followUps":       followUps,
		})
	}
	f["services"] = services
	return f
}
