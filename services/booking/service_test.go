package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"salonbook/database/docstore/memstore"
	"salonbook/database/repository"
	"salonbook/models"
	"salonbook/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T, now time.Time, workers ...models.Worker) (*DefaultBookingService, repository.Repositories) {
	t.Helper()
	repos := repository.New(memstore.New())
	site := mondaySite(workers...)
	site.Timezone = "Asia/Jerusalem"
	require.NoError(t, repos.Sites.Save(context.Background(), site))

	svc := NewBookingService(repos.Sites, repos.Bookings, zap.NewNop(), "IL")
	svc.Now = func() time.Time { return now }
	return svc, repos
}

func TestBook_WritesChainAndBlocksSlot(t *testing.T) {
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	svc, repos := newTestService(t, now, models.Worker{ID: "W", Name: "Dana", Active: true})
	ctx := context.Background()

	chain, err := svc.Book(ctx, "s1", models.BookingRequest{
		Date: monday, Time: "10:00", ServiceID: "color",
		CustomerName: "Noa", CustomerPhone: "050-123-4567",
	})
	require.NoError(t, err)
	require.Len(t, chain, 2)

	anchor, fu := chain[0], chain[1]
	assert.Equal(t, "+972501234567", anchor.CustomerPhone)
	assert.Equal(t, models.StatusBooked, anchor.Status)
	assert.Equal(t, "W", anchor.WorkerID)
	assert.Equal(t, "Dana", anchor.WorkerName)
	assert.Equal(t, []string{fu.ID}, anchor.FollowUpIDs)
	assert.True(t, fu.IsFollowUp)
	assert.Equal(t, anchor.ID, fu.AnchorID)
	assert.Equal(t, "11:30", fu.Time)
	// 10:00 in Jerusalem (UTC+3 in April).
	assert.Equal(t, time.Date(2026, 4, 20, 7, 0, 0, 0, time.UTC), anchor.AppointmentAt)

	stored, err := repos.Bookings.ListByDate(ctx, "s1", monday)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	_, err = svc.Book(ctx, "s1", models.BookingRequest{
		Date: monday, Time: "10:00", ServiceID: "cut",
		CustomerName: "Other", CustomerPhone: "+972521111111",
	})
	assert.True(t, errors.Is(err, utils.ErrConflict), "got %v", err)
}

func TestBook_WithinDayAwaitsConfirmation(t *testing.T) {
	now := time.Date(2026, 4, 19, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, now)

	chain, err := svc.Book(context.Background(), "s1", models.BookingRequest{
		Date: monday, Time: "09:00", ServiceID: "cut",
		CustomerName: "Noa", CustomerPhone: "+972501234567",
	})
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, models.StatusAwaitingConfirmation, chain[0].Status)
}

func TestBook_Validation(t *testing.T) {
	svc, _ := newTestService(t, time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := svc.Book(ctx, "s1", models.BookingRequest{Date: monday, Time: "10:00", ServiceID: "cut", CustomerName: "x", CustomerPhone: "abc"})
	assert.True(t, errors.Is(err, utils.ErrValidation), "got %v", err)

	_, err = svc.Book(ctx, "missing", models.BookingRequest{Date: monday, Time: "10:00", ServiceID: "cut", CustomerName: "x", CustomerPhone: "+972501234567"})
	assert.True(t, errors.Is(err, utils.ErrNotFound), "got %v", err)

	_, err = svc.GetSlots(ctx, "s1", SlotQuery{Date: "tomorrow", DurationMinutes: 30})
	assert.True(t, errors.Is(err, utils.ErrValidation), "got %v", err)
}
