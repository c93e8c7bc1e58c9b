package retention

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"salonbook/database/docstore"
	"salonbook/database/docstore/memstore"
	"salonbook/database/repository"
	"salonbook/database/repository/paths"
	retentionRepo "salonbook/database/repository/retention"
	"salonbook/models"
	"salonbook/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// 2026-04-21 22:30 UTC is already 2026-04-22 in Jerusalem.
var testNow = time.Date(2026, 4, 21, 22, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, cfg Config) (*DefaultRetentionService, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	repos := repository.New(store)
	require.NoError(t, repos.Sites.Save(context.Background(), models.SiteSettings{TenantID: "s1", Timezone: "Asia/Jerusalem"}))

	if cfg.BatchSize == 0 {
		cfg.BatchSize = 400
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = 50
	}
	if cfg.LockMaxAge == 0 {
		cfg.LockMaxAge = 10 * time.Minute
	}
	cfg.DefaultRegion = "IL"

	svc := NewRetentionService(repos, cfg, zap.NewNop())
	svc.Now = func() time.Time { return testNow }
	return svc, store
}

func putBooking(store *memstore.Store, id, date, status string) {
	data := docstore.Fields{
		"date":          date,
		"time":          "10:00",
		"serviceId":     "cut",
		"customerPhone": "+972501234567",
		"customerName":  "Noa",
		"isFollowUp":    false,
	}
	if status != "" {
		data["status"] = status
	}
	store.Put(paths.Bookings("s1"), id, data)
}

func archiveIDs(t *testing.T, store *memstore.Store) []string {
	t.Helper()
	docs, err := store.Query(context.Background(), docstore.Query{Collection: paths.Archives("s1")})
	require.NoError(t, err)
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	sort.Strings(ids)
	return ids
}

func TestRunCleanup_ArchivesPastCancelledAndKeepsFuture(t *testing.T) {
	svc, store := newTestService(t, Config{})
	putBooking(store, "past", "2026-04-20", "cancelled")
	putBooking(store, "future", "2026-04-23", "booked")
	ctx := context.Background()

	res, err := svc.RunCleanup(ctx, "s1", "2026-04-22", false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DeletedBookings)
	assert.Equal(t, "2026-04-22", res.BeforeDate)
	assert.False(t, res.DryRun)

	_, err = svc.Repos.Bookings.GetByID(ctx, "s1", "past")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
	_, err = svc.Repos.Bookings.GetByID(ctx, "s1", "future")
	require.NoError(t, err)

	ids := archiveIDs(t, store)
	require.Len(t, ids, 1)
	rec, err := svc.Repos.Archives.GetByID(ctx, "s1", ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, rec.StatusAtArchive)
	assert.Equal(t, "past", rec.BookingID)
	assert.Equal(t, "+972501234567", rec.ClientKey)
	assert.Equal(t, models.ArchiveReasonExpired, rec.ArchivedReason)
}

func TestRunCleanup_FutureCancelledIsArchived(t *testing.T) {
	svc, store := newTestService(t, Config{})
	putBooking(store, "gone", "2026-05-01", "cancelled_by_salon")

	res, err := svc.RunCleanup(context.Background(), "s1", "2026-04-22", false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DeletedBookings)

	ids := archiveIDs(t, store)
	require.Len(t, ids, 1)
	rec, err := svc.Repos.Archives.GetByID(context.Background(), "s1", ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.ArchiveReasonCancelled, rec.ArchivedReason)
	assert.Equal(t, models.StatusCancelledBySalon, rec.StatusAtArchive)
}

func putFollowUp(store *memstore.Store, id, anchorID, date string) {
	data := docstore.Fields{
		"date":          date,
		"time":          "11:00",
		"serviceId":     "blowdry",
		"customerPhone": "+972501234567",
		"customerName":  "Noa",
		"isFollowUp":    true,
		"status":        "booked",
	}
	if anchorID != "" {
		data["anchorId"] = anchorID
	}
	store.Put(paths.Bookings("s1"), id, data)
}

func TestRunCleanup_CancelledAnchorTakesFollowUps(t *testing.T) {
	svc, store := newTestService(t, Config{BatchSize: 2})
	store.Put(paths.Bookings("s1"), "gone", docstore.Fields{
		"date":          "2026-05-01",
		"time":          "10:00",
		"serviceId":     "color",
		"customerPhone": "+972501234567",
		"isFollowUp":    false,
		"status":        "cancelled_by_salon",
		"followUpIds":   []string{"fu1", "missing"},
	})
	putFollowUp(store, "fu1", "", "2026-05-01")
	putFollowUp(store, "fu2", "gone", "2026-05-01")
	putFollowUp(store, "other", "kept", "2026-05-01")
	ctx := context.Background()

	dry, err := svc.RunCleanup(ctx, "s1", "2026-04-22", true)
	require.NoError(t, err)
	assert.Equal(t, 3, dry.DeletedBookings)

	res, err := svc.RunCleanup(ctx, "s1", "2026-04-22", false)
	require.NoError(t, err)
	assert.Equal(t, 3, res.DeletedBookings)
	// One booking per batch at this size.
	assert.Equal(t, 3, res.Iterations)

	for _, id := range []string{"gone", "fu1", "fu2"} {
		_, err := svc.Repos.Bookings.GetByID(ctx, "s1", id)
		assert.ErrorIs(t, err, docstore.ErrNotFound, id)
	}
	_, err = svc.Repos.Bookings.GetByID(ctx, "s1", "other")
	assert.NoError(t, err)

	ids := archiveIDs(t, store)
	require.Len(t, ids, 3)
	for _, id := range ids {
		rec, err := svc.Repos.Archives.GetByID(ctx, "s1", id)
		require.NoError(t, err)
		assert.Equal(t, models.ArchiveReasonCancelled, rec.ArchivedReason)
		if rec.BookingID != "gone" {
			assert.True(t, rec.IsFollowUp)
			assert.Equal(t, models.StatusBooked, rec.StatusAtArchive)
		}
	}
}

func TestRunCleanup_FailedChainKeepsAnchorForReplay(t *testing.T) {
	svc, store := newTestService(t, Config{BatchSize: 2})
	store.Put(paths.Bookings("s1"), "gone", docstore.Fields{
		"date": "2026-05-01", "time": "10:00", "serviceId": "color",
		"isFollowUp": false, "status": "cancelled", "followUpIds": []string{"fu1"},
	})
	putFollowUp(store, "fu1", "gone", "2026-05-01")
	ctx := context.Background()

	calls := 0
	store.BeforeBatch = func([]docstore.WriteOp) error {
		calls++
		if calls == 2 {
			return errors.New("injected")
		}
		return nil
	}
	_, err := svc.RunCleanup(ctx, "s1", "2026-04-22", false)
	require.Error(t, err)

	_, err = svc.Repos.Bookings.GetByID(ctx, "s1", "fu1")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
	_, err = svc.Repos.Bookings.GetByID(ctx, "s1", "gone")
	require.NoError(t, err)

	store.BeforeBatch = nil
	res, err := svc.RunCleanup(ctx, "s1", "2026-04-22", false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DeletedBookings)
	assert.Zero(t, store.Len(paths.Bookings("s1")))
	assert.Len(t, archiveIDs(t, store), 2)
}

func TestRunCleanup_TwiceIsIdempotent(t *testing.T) {
	svc, store := newTestService(t, Config{})
	for i := 0; i < 7; i++ {
		putBooking(store, fmt.Sprintf("b%d", i), "2026-04-1"+fmt.Sprint(i), "confirmed")
	}
	ctx := context.Background()

	first, err := svc.RunCleanup(ctx, "s1", "2026-04-22", false)
	require.NoError(t, err)
	assert.Equal(t, 7, first.DeletedBookings)
	before := archiveIDs(t, store)

	second, err := svc.RunCleanup(ctx, "s1", "2026-04-22", false)
	require.NoError(t, err)
	assert.Equal(t, 0, second.DeletedBookings)
	assert.Equal(t, before, archiveIDs(t, store))
}

func TestRunCleanup_BatchesAndReplaysAfterFailure(t *testing.T) {
	// Two writes per booking: three bookings per batch.
	svc, store := newTestService(t, Config{BatchSize: 6})
	for i := 0; i < 8; i++ {
		putBooking(store, fmt.Sprintf("b%d", i), "2026-04-01", "booked")
	}
	ctx := context.Background()

	calls := 0
	store.BeforeBatch = func(ops []docstore.WriteOp) error {
		assert.LessOrEqual(t, len(ops), 6)
		calls++
		if calls == 2 {
			return errors.New("unavailable")
		}
		return nil
	}
	_, err := svc.RunCleanup(ctx, "s1", "2026-04-22", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrStorage))

	state, err := svc.Repos.Retention.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, state.Lock, "lease must be released after a failed batch")
	assert.Empty(t, state.LastCleanupDate)

	store.BeforeBatch = nil
	res, err := svc.RunCleanup(ctx, "s1", "2026-04-22", false)
	require.NoError(t, err)
	assert.Equal(t, 5, res.DeletedBookings)
	assert.Equal(t, 2, res.Iterations)
	assert.Len(t, archiveIDs(t, store), 8)
	assert.Equal(t, 0, store.Len(paths.Bookings("s1")))
}

func TestRunCleanup_StopsAtIterationBudget(t *testing.T) {
	svc, store := newTestService(t, Config{BatchSize: 2, MaxIterations: 3})
	for i := 0; i < 10; i++ {
		putBooking(store, fmt.Sprintf("b%d", i), "2026-04-01", "booked")
	}
	res, err := svc.RunCleanup(context.Background(), "s1", "2026-04-22", false)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, 7, store.Len(paths.Bookings("s1")))

	state, err := svc.Repos.Retention.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, state.Lock)
}

func TestRunCleanup_DryRunWritesNothing(t *testing.T) {
	svc, store := newTestService(t, Config{BatchSize: 4})
	putBooking(store, "a", "2026-04-01", "booked")
	putBooking(store, "b", "2026-04-02", "cancelled")
	putBooking(store, "c", "2026-04-30", "canceled")
	putBooking(store, "d", "2026-04-30", "booked")
	writes := store.Writes()

	res, err := svc.RunCleanup(context.Background(), "s1", "2026-04-22", true)
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, 3, res.DeletedBookings)
	assert.Equal(t, 2, res.Iterations)
	assert.Equal(t, writes, store.Writes())
}

func TestRunCleanup_LeaseHeldPerformsNoWrites(t *testing.T) {
	svc, store := newTestService(t, Config{})
	putBooking(store, "a", "2026-04-01", "booked")
	ctx := context.Background()

	_, err := svc.Repos.Retention.Acquire(ctx, retentionRepo.AcquireRequest{
		TenantID: "s1", Holder: "other-admin", Now: testNow.Add(-time.Minute), MaxAge: 10 * time.Minute,
	})
	require.NoError(t, err)
	writes := store.Writes()

	_, err = svc.RunCleanup(ctx, "s1", "2026-04-22", false)
	assert.True(t, errors.Is(err, utils.ErrConflict), "got %v", err)

	daily, err := svc.EnsureDaily(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, daily.Ran)
	assert.Equal(t, models.EnsureReasonLocked, daily.Reason)
	assert.Equal(t, writes, store.Writes())
}

func TestRunCleanup_StaleLeaseIsIgnored(t *testing.T) {
	svc, store := newTestService(t, Config{})
	putBooking(store, "a", "2026-04-01", "booked")
	ctx := context.Background()

	_, err := svc.Repos.Retention.Acquire(ctx, retentionRepo.AcquireRequest{
		TenantID: "s1", Holder: "crashed", Now: testNow.Add(-time.Hour), MaxAge: 10 * time.Minute,
	})
	require.NoError(t, err)

	res, err := svc.RunCleanup(ctx, "s1", "2026-04-22", false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DeletedBookings)
}

func TestEnsureDaily_RunsOncePerTenantDay(t *testing.T) {
	svc, store := newTestService(t, Config{})
	putBooking(store, "yesterday", "2026-04-21", "confirmed")
	putBooking(store, "today", "2026-04-22", "confirmed")
	ctx := context.Background()

	first, err := svc.EnsureDaily(ctx, "s1")
	require.NoError(t, err)
	require.True(t, first.Ran)
	assert.Equal(t, "2026-04-22", first.Result.BeforeDate)
	assert.Equal(t, 1, first.Result.DeletedBookings)

	state, err := svc.Repos.Retention.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "2026-04-22", state.LastCleanupDate)
	assert.Nil(t, state.Lock)

	second, err := svc.EnsureDaily(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, second.Ran)
	assert.Equal(t, models.EnsureReasonAlreadyRan, second.Reason)
}

func TestRunCleanup_DefaultsMissingStatus(t *testing.T) {
	svc, store := newTestService(t, Config{})
	putBooking(store, "legacy", "2026-04-01", "")

	res, err := svc.RunCleanup(context.Background(), "s1", "2026-04-22", false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DefaultedStatuses)

	ids := archiveIDs(t, store)
	require.Len(t, ids, 1)
	rec, err := svc.Repos.Archives.GetByID(context.Background(), "s1", ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.StatusBooked, rec.StatusAtArchive)
}

func TestRunCleanup_PurgesOldArchives(t *testing.T) {
	svc, store := newTestService(t, Config{ArchiveRetentionDays: 30})
	store.Put(paths.Archives("s1"), "ancient", docstore.Fields{"date": "2026-01-10", "bookingId": "x"})
	store.Put(paths.Archives("s1"), "recent", docstore.Fields{"date": "2026-04-01", "bookingId": "y"})

	res, err := svc.RunCleanup(context.Background(), "s1", "2026-04-22", false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DeletedArchivedServiceTypeDocs)
	assert.Equal(t, []string{"recent"}, archiveIDs(t, store))
}

func TestRunCleanup_Validation(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	ctx := context.Background()

	_, err := svc.RunCleanup(ctx, "s1", "22-04-2026", false)
	assert.True(t, errors.Is(err, utils.ErrValidation))

	_, err = svc.RunCleanup(ctx, "", "", false)
	assert.True(t, errors.Is(err, utils.ErrValidation))

	_, err = svc.RunCleanup(ctx, "ghost", "", false)
	assert.True(t, errors.Is(err, utils.ErrNotFound))
}

func TestArchiveRecord_DeterministicID(t *testing.T) {
	b := models.Booking{ID: "b1", ServiceID: "cut", CustomerPhone: "050-123-4567", Date: "2026-04-20"}
	a := ArchiveRecord(b, "2026-04-22", "IL", testNow)
	c := ArchiveRecord(b, "2026-04-22", "IL", testNow.Add(time.Hour))
	assert.Equal(t, a.ID, c.ID)
	assert.Len(t, a.ID, 32)
	assert.Equal(t, "+972501234567", a.ClientKey)

	anon := ArchiveRecord(models.Booking{ID: "b1", ServiceID: "cut"}, "2026-04-22", "IL", testNow)
	assert.Equal(t, "anon", anon.ClientKey)
	assert.NotEqual(t, a.ID, anon.ID)
}
