package schedulerRepo

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

func TestDecodeBooking_LegacyStatus(t *testing.T) {
	tests := []struct {
		name          string
		data          docstore.Fields
		wantStatus    models.BookingStatus
		wantDefaulted bool
	}{
		{"canonical", docstore.Fields{"status": "confirmed"}, models.StatusConfirmed, false},
		{"american spelling", docstore.Fields{"status": "canceled"}, models.StatusCancelled, false},
		{"falls back to statusAtArchive", docstore.Fields{"statusAtArchive": "no_show"}, models.StatusNoShow, false},
		{"missing defaults to booked", docstore.Fields{}, models.StatusBooked, true},
		{"garbage defaults to booked", docstore.Fields{"status": "???"}, models.StatusBooked, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := DecodeBooking(docstore.Document{ID: "b1", Path: "sites/s1/bookings/b1", Data: tt.data})
			assert.Equal(t, tt.wantStatus, b.Status)
			assert.Equal(t, tt.wantDefaulted, b.StatusDefaulted)
			assert.Equal(t, "s1", b.TenantID)
		})
	}
}

func seedChain(t *testing.T, repo BookingRepository, status models.BookingStatus) {
	t.Helper()
	appt := time.Date(2026, 4, 21, 7, 0, 0, 0, time.UTC)
	chain := []models.Booking{
		{ID: "a1", TenantID: "s1", Date: "2026-04-21", Time: "10:00", DurationMinutes: 60, ServiceID: "color",
			CustomerPhone: "+972501234567", Status: status, FollowUpIDs: []string{"f1"}, AppointmentAt: appt},
		{ID: "f1", TenantID: "s1", Date: "2026-04-21", Time: "11:30", DurationMinutes: 30, ServiceID: "finish",
			CustomerPhone: "+972501234567", Status: status, IsFollowUp: true, AnchorID: "a1", AppointmentAt: appt.Add(90 * time.Minute)},
	}
	require.NoError(t, repo.CreateChain(context.Background(), chain))
}

func TestTransitionChain_CascadesAndIsIdempotent(t *testing.T) {
	store := memstore.New()
	repo := NewBookingRepo(store)
	seedChain(t, repo, models.StatusAwaitingConfirmation)
	ctx := context.Background()
	at := time.Date(2026, 4, 20, 12, 0, 0, 0, time.UTC)

	anchor, changed, err := repo.TransitionChain(ctx, "s1", "a1", models.StatusAwaitingConfirmation, models.StatusConfirmed, at)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.StatusConfirmed, anchor.Status)
	require.NotNil(t, anchor.ConfirmationReceivedAt)

	fu, err := repo.GetByID(ctx, "s1", "f1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, fu.Status)

	writes := store.Writes()
	anchor, changed, err = repo.TransitionChain(ctx, "s1", "a1", models.StatusAwaitingConfirmation, models.StatusConfirmed, at.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, models.StatusConfirmed, anchor.Status)
	assert.Equal(t, writes, store.Writes())
}

func TestTransitionChain_UnknownBooking(t *testing.T) {
	repo := NewBookingRepo(memstore.New())
	_, _, err := repo.TransitionChain(context.Background(), "s1", "nope", models.StatusAwaitingConfirmation, models.StatusConfirmed, time.Now())
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestListAwaitingByPhone_AcrossTenantsExcludesFollowUps(t *testing.T) {
	store := memstore.New()
	repo := NewBookingRepo(store)
	seedChain(t, repo, models.StatusAwaitingConfirmation)

	store.Put(paths.Bookings("s2"), "x1", docstore.Fields{
		"customerPhone": "+972501234567",
		"status":        "pending",
		"isFollowUp":    false,
		"appointmentAt": time.Date(2026, 4, 22, 7, 0, 0, 0, time.UTC),
	})
	store.Put(paths.Bookings("s2"), "past", docstore.Fields{
		"customerPhone": "+972501234567",
		"status":        "awaiting_confirmation",
		"isFollowUp":    false,
		"appointmentAt": time.Date(2026, 4, 1, 7, 0, 0, 0, time.UTC),
	})

	got, err := repo.ListAwaitingByPhone(context.Background(), "+972501234567", time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC), 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a1", got[0].ID)
	assert.Equal(t, "s1", got[0].TenantID)
	assert.Equal(t, "x1", got[1].ID)
	assert.Equal(t, "s2", got[1].TenantID)
	assert.Equal(t, models.StatusAwaitingConfirmation, got[1].Status)
}

func TestListExpiredAndCancelled(t *testing.T) {
	store := memstore.New()
	repo := NewBookingRepo(store)
	ctx := context.Background()
	coll := paths.Bookings("s1")
	store.Put(coll, "old", docstore.Fields{"date": "2026-04-20", "status": "booked"})
	store.Put(coll, "future", docstore.Fields{"date": "2026-04-23", "status": "booked"})
	store.Put(coll, "futureCancelled", docstore.Fields{"date": "2026-04-25", "status": "canceled_by_salon"})

	expired, err := repo.ListExpired(ctx, "s1", "2026-04-22", 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "old", expired[0].ID)

	cancelled, err := repo.ListCancelled(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, models.StatusCancelledBySalon, cancelled[0].Status)
}
