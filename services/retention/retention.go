// Package retention archives and deletes expired and cancelled bookings,
// at most once per tenant per local calendar day.
package retention

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"salonbook/database/docstore"
	"salonbook/database/repository"
	recordsRepo "salonbook/database/repository/records"
	retentionRepo "salonbook/database/repository/retention"
	"salonbook/models"
	"salonbook/services/calendar"
	"salonbook/services/metrics"
	"salonbook/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config bounds a cleanup run. BatchSize counts store writes per batch;
// archiving one booking costs two.
type Config struct {
	BatchSize            int
	MaxIterations        int
	LockMaxAge           time.Duration
	ArchiveRetentionDays int
	DefaultRegion        string
}

func (c Config) bookingsPerBatch() int {
	size := c.BatchSize
	if size <= 0 || size > docstore.MaxBatchOps {
		size = docstore.MaxBatchOps
	}
	if size < 2 {
		return 1
	}
	return size / 2
}

func (c Config) archivesPerBatch() int {
	if c.BatchSize <= 0 || c.BatchSize > docstore.MaxBatchOps {
		return docstore.MaxBatchOps
	}
	return c.BatchSize
}

type RetentionService interface {
	RunCleanup(ctx context.Context, tenantID, cutoffDate string, dryRun bool) (*models.CleanupResult, error)
	EnsureDaily(ctx context.Context, tenantID string) (*models.EnsureDailyResult, error)
}

type DefaultRetentionService struct {
	Repos  repository.Repositories
	Cfg    Config
	Logger *zap.Logger
	Now    func() time.Time

	host string
}

func NewRetentionService(repos repository.Repositories, cfg Config, logger *zap.Logger) *DefaultRetentionService {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "salonbook"
	}
	return &DefaultRetentionService{Repos: repos, Cfg: cfg, Logger: logger, Now: time.Now, host: host}
}

// RunCleanup archives and deletes every booking dated before cutoffDate and
// every cancelled booking, then purges archived records past the retention
// period. An empty cutoffDate means the start of today in the tenant's
// timezone. A dry run takes no lease and writes nothing.
func (s *DefaultRetentionService) RunCleanup(ctx context.Context, tenantID, cutoffDate string, dryRun bool) (*models.CleanupResult, error) {
	loc, err := s.tenantLocation(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	today := calendar.CivilDate(s.Now(), loc)
	if cutoffDate == "" {
		cutoffDate = today
	}
	if _, err := calendar.ParseDate(cutoffDate); err != nil {
		return nil, utils.NewValidationError("invalid_date", "beforeDate must be YYYY-MM-DD, got %q", cutoffDate)
	}

	if dryRun {
		res, err := s.count(ctx, tenantID, cutoffDate)
		if err == nil {
			metrics.IncCleanupRun("dry_run")
		}
		return res, err
	}

	stampDate := ""
	if cutoffDate == today {
		stampDate = today
	}
	res, err := s.runLeased(ctx, tenantID, cutoffDate, "", stampDate)
	if errors.Is(err, retentionRepo.ErrLeaseHeld) {
		metrics.IncCleanupRun("locked")
		return nil, utils.NewConflictError("cleanup_locked", "cleanup already running for site %s", tenantID)
	}
	return res, err
}

// EnsureDaily runs the cleanup for today unless it already completed today
// or another runner holds the lease. Both short-circuits are benign.
func (s *DefaultRetentionService) EnsureDaily(ctx context.Context, tenantID string) (*models.EnsureDailyResult, error) {
	loc, err := s.tenantLocation(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	today := calendar.CivilDate(s.Now(), loc)

	res, err := s.runLeased(ctx, tenantID, today, today, today)
	switch {
	case errors.Is(err, retentionRepo.ErrAlreadyRan):
		metrics.IncCleanupRun("already_ran")
		return &models.EnsureDailyResult{Ran: false, Reason: models.EnsureReasonAlreadyRan}, nil
	case errors.Is(err, retentionRepo.ErrLeaseHeld):
		metrics.IncCleanupRun("locked")
		s.Logger.Info("Cleanup skipped, lease held", zap.String("tenantID", tenantID))
		return &models.EnsureDailyResult{Ran: false, Reason: models.EnsureReasonLocked}, nil
	case err != nil:
		return nil, err
	}
	return &models.EnsureDailyResult{Ran: true, Result: res}, nil
}

func (s *DefaultRetentionService) tenantLocation(ctx context.Context, tenantID string) (*time.Location, error) {
	if tenantID == "" {
		return nil, utils.NewValidationError("missing_tenant", "tenantId is required")
	}
	site, err := s.Repos.Sites.GetByID(ctx, tenantID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, utils.NewNotFoundError("site_not_found", "site %s not found", tenantID)
	}
	if err != nil {
		return nil, utils.NewStorageError("site_unavailable", err)
	}
	loc, err := site.Location()
	if err != nil {
		return nil, utils.NewValidationError("invalid_timezone", "%v", err)
	}
	return loc, nil
}

// runLeased holds the lease around one sweep. On failure the lease is
// released and the date is not stamped, so the next trigger retries.
func (s *DefaultRetentionService) runLeased(ctx context.Context, tenantID, cutoffDate, skipIfRanOn, stampDate string) (*models.CleanupResult, error) {
	holder := fmt.Sprintf("%s/%s", s.host, uuid.NewString())
	if _, err := s.Repos.Retention.Acquire(ctx, retentionRepo.AcquireRequest{
		TenantID:    tenantID,
		Holder:      holder,
		Now:         s.Now(),
		MaxAge:      s.Cfg.LockMaxAge,
		SkipIfRanOn: skipIfRanOn,
	}); err != nil {
		if errors.Is(err, retentionRepo.ErrAlreadyRan) || errors.Is(err, retentionRepo.ErrLeaseHeld) {
			return nil, err
		}
		return nil, utils.NewStorageError("lease_unavailable", err)
	}

	started := time.Now()
	res, err := s.sweep(ctx, tenantID, cutoffDate)
	metrics.ObserveCleanupDuration(time.Since(started))
	if err != nil {
		metrics.IncCleanupRun("failed")
		// The run context may be the reason for the failure.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if relErr := s.Repos.Retention.Release(releaseCtx, tenantID, holder); relErr != nil {
			s.Logger.Error("Failed to release cleanup lease", zap.String("tenantID", tenantID), zap.Error(relErr))
		}
		s.Logger.Error("Cleanup failed",
			zap.String("tenantID", tenantID),
			zap.Int("iterations", res.Iterations),
			zap.Int("deletedBookings", res.DeletedBookings),
			zap.Error(err))
		return nil, err
	}

	if stampDate != "" {
		err = s.Repos.Retention.Complete(ctx, tenantID, holder, stampDate)
	} else {
		err = s.Repos.Retention.Release(ctx, tenantID, holder)
	}
	if err != nil {
		// The work is done and replayable; a stale lease expires on its own.
		s.Logger.Error("Failed to finish cleanup lease", zap.String("tenantID", tenantID), zap.Error(err))
	}

	metrics.IncCleanupRun("completed")
	metrics.AddBookingsArchived(res.DeletedBookings)
	metrics.AddArchivesPurged(res.DeletedArchivedServiceTypeDocs)
	s.Logger.Info("Cleanup completed",
		zap.String("tenantID", tenantID),
		zap.String("beforeDate", cutoffDate),
		zap.Int("deletedBookings", res.DeletedBookings),
		zap.Int("deletedArchivedServiceTypeDocs", res.DeletedArchivedServiceTypeDocs),
		zap.Int("iterations", res.Iterations))
	return res, nil
}

// sweep runs the expired, cancelled and purge phases strictly in sequence.
// The returned result is never nil.
func (s *DefaultRetentionService) sweep(ctx context.Context, tenantID, cutoffDate string) (*models.CleanupResult, error) {
	res := &models.CleanupResult{BeforeDate: cutoffDate}
	limit := s.Cfg.bookingsPerBatch()

	phases := []struct {
		list    func(ctx context.Context) ([]models.Booking, error)
		cascade bool
	}{
		{list: func(ctx context.Context) ([]models.Booking, error) {
			return s.Repos.Bookings.ListExpired(ctx, tenantID, cutoffDate, limit)
		}},
		{list: func(ctx context.Context) ([]models.Booking, error) {
			return s.Repos.Bookings.ListCancelled(ctx, tenantID, limit)
		}, cascade: true},
	}
	for _, phase := range phases {
		for {
			if err := s.checkBudget(ctx, res); err != nil {
				return res, err
			}
			batch, err := phase.list(ctx)
			if err != nil {
				return res, utils.NewStorageError("cleanup_query_failed", err)
			}
			if len(batch) == 0 {
				break
			}
			fetched := len(batch)
			if phase.cascade {
				if batch, err = s.withFollowUps(ctx, batch); err != nil {
					return res, utils.NewStorageError("cleanup_query_failed", err)
				}
			}
			records := s.archiveRecords(tenantID, cutoffDate, batch, res)
			for start := 0; start < len(records); start += limit {
				if start > 0 {
					if err := s.checkBudget(ctx, res); err != nil {
						return res, err
					}
				}
				chunk := records[start:min(start+limit, len(records))]
				if err := s.Repos.Archives.ArchiveAndDelete(ctx, tenantID, chunk); err != nil {
					return res, utils.NewStorageError("cleanup_batch_failed", err)
				}
				res.Iterations++
				res.DeletedBookings += len(chunk)
			}
			if fetched < limit {
				break
			}
		}
	}

	purgeBefore, ok := s.purgeBefore(cutoffDate)
	if !ok {
		return res, nil
	}
	purgeLimit := s.Cfg.archivesPerBatch()
	for {
		if err := s.checkBudget(ctx, res); err != nil {
			return res, err
		}
		old, err := s.Repos.Archives.ListOlderThan(ctx, tenantID, purgeBefore, purgeLimit)
		if err != nil {
			return res, utils.NewStorageError("cleanup_query_failed", err)
		}
		if len(old) == 0 {
			break
		}
		ids := make([]string, len(old))
		for i, rec := range old {
			ids[i] = rec.ID
		}
		if err := s.Repos.Archives.DeleteMany(ctx, tenantID, ids); err != nil {
			return res, utils.NewStorageError("cleanup_batch_failed", err)
		}
		res.Iterations++
		res.DeletedArchivedServiceTypeDocs += len(ids)
		if len(old) < purgeLimit {
			break
		}
	}
	return res, nil
}

// withFollowUps adds the follow-ups of every anchor in batch, so a cancelled
// anchor never leaves its chain holding the worker's calendar. Follow-ups come
// first: if a later chunk fails, the anchor survives and the replay finds the
// rest of the chain through it.
func (s *DefaultRetentionService) withFollowUps(ctx context.Context, batch []models.Booking) ([]models.Booking, error) {
	seen := make(map[string]bool, len(batch))
	for _, b := range batch {
		seen[b.ID] = true
	}
	var followUps []models.Booking
	for _, b := range batch {
		if b.IsFollowUp {
			continue
		}
		chain, err := s.Repos.Bookings.ListFollowUps(ctx, b)
		if err != nil {
			return nil, err
		}
		for _, fu := range chain {
			if !seen[fu.ID] {
				seen[fu.ID] = true
				followUps = append(followUps, fu)
			}
		}
	}
	return append(followUps, batch...), nil
}

func (s *DefaultRetentionService) checkBudget(ctx context.Context, res *models.CleanupResult) error {
	if err := ctx.Err(); err != nil {
		return utils.NewStorageError("cleanup_interrupted", err)
	}
	if s.Cfg.MaxIterations > 0 && res.Iterations >= s.Cfg.MaxIterations {
		return utils.NewStorageError("cleanup_budget_exhausted",
			fmt.Errorf("stopped after %d iterations with work remaining", res.Iterations))
	}
	return nil
}

func (s *DefaultRetentionService) purgeBefore(cutoffDate string) (string, bool) {
	if s.Cfg.ArchiveRetentionDays <= 0 {
		return "", false
	}
	date, err := calendar.AddDays(cutoffDate, -s.Cfg.ArchiveRetentionDays)
	if err != nil {
		return "", false
	}
	return date, true
}

func (s *DefaultRetentionService) archiveRecords(tenantID, cutoffDate string, batch []models.Booking, res *models.CleanupResult) []models.ArchivedBookingRecord {
	now := s.Now().UTC()
	records := make([]models.ArchivedBookingRecord, 0, len(batch))
	for _, b := range batch {
		if b.StatusDefaulted {
			res.DefaultedStatuses++
			s.Logger.Warn("Archiving booking without a usable status as booked",
				zap.String("tenantID", tenantID),
				zap.String("bookingID", b.ID))
		}
		records = append(records, ArchiveRecord(b, cutoffDate, s.Cfg.DefaultRegion, now))
	}
	return records
}

// ArchiveRecord projects a live booking onto its archived form. The record
// id depends only on client, service and booking id.
func ArchiveRecord(b models.Booking, cutoffDate, region string, archivedAt time.Time) models.ArchivedBookingRecord {
	phone, err := utils.NormalizePhone(b.CustomerPhone, region)
	if err != nil {
		phone = b.CustomerPhone
	}
	clientKey := recordsRepo.ClientKey(phone)
	reason := models.ArchiveReasonExpired
	if b.Date >= cutoffDate {
		reason = models.ArchiveReasonCancelled
	}
	return models.ArchivedBookingRecord{
		ID:              recordsRepo.ArchiveID(clientKey, b.ServiceID, b.ID),
		TenantID:        b.TenantID,
		BookingID:       b.ID,
		ClientKey:       clientKey,
		Date:            b.Date,
		Time:            b.Time,
		ServiceID:       b.ServiceID,
		ServiceName:     b.ServiceName,
		WorkerID:        b.WorkerID,
		WorkerName:      b.WorkerName,
		CustomerName:    b.CustomerName,
		CustomerPhone:   b.CustomerPhone,
		IsFollowUp:      b.IsFollowUp,
		StatusAtArchive: b.Status,
		ArchivedAt:      archivedAt,
		ArchivedReason:  reason,
	}
}

// count computes what a run would do without writing.
func (s *DefaultRetentionService) count(ctx context.Context, tenantID, cutoffDate string) (*models.CleanupResult, error) {
	res := &models.CleanupResult{BeforeDate: cutoffDate, DryRun: true}

	expired, err := s.Repos.Bookings.ListExpired(ctx, tenantID, cutoffDate, 0)
	if err != nil {
		return nil, utils.NewStorageError("cleanup_query_failed", err)
	}
	cancelled, err := s.Repos.Bookings.ListCancelled(ctx, tenantID, 0)
	if err != nil {
		return nil, utils.NewStorageError("cleanup_query_failed", err)
	}
	seen := make(map[string]bool, len(expired))
	for _, b := range expired {
		seen[b.ID] = true
		if b.StatusDefaulted {
			res.DefaultedStatuses++
		}
	}
	var pending []models.Booking
	for _, b := range cancelled {
		if !seen[b.ID] {
			pending = append(pending, b)
		}
	}
	chained, err := s.withFollowUps(ctx, pending)
	if err != nil {
		return nil, utils.NewStorageError("cleanup_query_failed", err)
	}
	remaining := 0
	for _, b := range chained {
		if seen[b.ID] {
			continue
		}
		if b.StatusDefaulted {
			res.DefaultedStatuses++
		}
		remaining++
	}
	per := s.Cfg.bookingsPerBatch()
	res.DeletedBookings = len(expired) + remaining
	res.Iterations = batches(len(expired), per) + batches(remaining, per)

	if purgeBefore, ok := s.purgeBefore(cutoffDate); ok {
		old, err := s.Repos.Archives.ListOlderThan(ctx, tenantID, purgeBefore, 0)
		if err != nil {
			return nil, utils.NewStorageError("cleanup_query_failed", err)
		}
		res.DeletedArchivedServiceTypeDocs = len(old)
		res.Iterations += batches(len(old), s.Cfg.archivesPerBatch())
	}
	return res, nil
}

func batches(n, size int) int {
	if n == 0 {
		return 0
	}
	return (n + size - 1) / size
}
