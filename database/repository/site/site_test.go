package siteRepo

import (
	"context"
	"testing"
	"time"

	"salonbook/database/docstore"
	"salonbook/database/docstore/memstore"
	"salonbook/database/repository/paths"
	"salonbook/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndGet_RoundTripsSchedule(t *testing.T) {
	repo := NewSiteRepo(memstore.New())
	ctx := context.Background()
	settings := models.SiteSettings{
		TenantID:               "s1",
		Timezone:               "Asia/Jerusalem",
		SlotGranularityMinutes: 15,
		WeeklySchedule: models.WeeklySchedule{
			time.Monday: {Enabled: true, Start: "09:00", End: "17:00", Breaks: []models.TimeRange{{Start: "13:00", End: "13:30"}}},
			time.Sunday: {Enabled: false},
		},
		ClosedDates: []models.ClosedDate{{Date: "2026-04-20", Label: "Holiday"}},
		Workers:     []models.Worker{{ID: "w1", Name: "Dana", Active: true, ServiceIDs: []string{"cut"}}},
		Services: []models.Service{{ID: "color", DurationMinutes: 60,
			FollowUps: []models.FollowUpStep{{ServiceID: "finish", DurationMinutes: 30, GapMinutes: 30}}}},
	}
	require.NoError(t, repo.Save(ctx, settings))

	got, err := repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, settings.WeeklySchedule, got.WeeklySchedule)
	assert.Equal(t, settings.ClosedDates, got.ClosedDates)
	assert.Equal(t, settings.Workers, got.Workers)
	assert.Equal(t, 120, got.Services[0].ChainDuration())
	assert.Equal(t, 15, got.Granularity())

	ids, err := repo.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)
}

func TestSave_RejectsUnusableSchedules(t *testing.T) {
	repo := NewSiteRepo(memstore.New())
	ctx := context.Background()

	err := repo.Save(ctx, models.SiteSettings{TenantID: "s1", WeeklySchedule: models.WeeklySchedule{
		time.Monday: {Enabled: true, Start: "17:00", End: "09:00"},
	}})
	assert.ErrorContains(t, err, "invalid schedule for site s1")

	err = repo.Save(ctx, models.SiteSettings{TenantID: "s1", Workers: []models.Worker{{
		ID: "w1",
		Schedule: models.WeeklySchedule{
			time.Tuesday: {Enabled: true, Start: "09:00", End: "12:00", Breaks: []models.TimeRange{{Start: "11:30", End: "12:30"}}},
		},
	}}})
	assert.ErrorContains(t, err, "invalid schedule for worker w1")

	_, err = repo.GetByID(ctx, "s1")
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	// Disabled days are not checked.
	require.NoError(t, repo.Save(ctx, models.SiteSettings{TenantID: "s1", WeeklySchedule: models.WeeklySchedule{
		time.Sunday: {Enabled: false, Start: "bad"},
	}}))
}

func TestDecodeSettings_LegacyShapes(t *testing.T) {
	store := memstore.New()
	store.Put(paths.Sites, "s1", docstore.Fields{
		"weeklySchedule": map[string]any{
			"friday": map[string]any{"enabled": true, "start": "09:00", "end": "13:00"},
		},
		"closedDates": []any{"2026-05-01"},
		"workers":     []any{map[string]any{"id": "w1"}},
	})

	got, err := NewSiteRepo(store).GetByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "13:00", got.WeeklySchedule[time.Friday].End)
	assert.Equal(t, []models.ClosedDate{{Date: "2026-05-01"}}, got.ClosedDates)
	assert.True(t, got.Workers[0].Active)
	assert.Equal(t, models.DefaultSlotGranularity, got.Granularity())
}
