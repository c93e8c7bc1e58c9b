package booking

import (
	"context"
	"errors"
	"time"

	"salonbook/database/docstore"
	"salonbook/database/repository"
	"salonbook/models"
	"salonbook/services/calendar"
	"salonbook/services/metrics"
	"salonbook/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConfirmationWindow is how close to the appointment a new booking must be
// to start out awaiting confirmation.
const ConfirmationWindow = 24 * time.Hour

// BookingService answers availability questions and commits bookings.
type BookingService interface {
	GetSlots(ctx context.Context, tenantID string, q SlotQuery) ([]models.Slot, error)
	Book(ctx context.Context, tenantID string, req models.BookingRequest) ([]models.Booking, error)
}

type DefaultBookingService struct {
	Sites         repository.SiteRepository
	Bookings      repository.BookingRepository
	Logger        *zap.Logger
	DefaultRegion string
	Now           func() time.Time
}

func NewBookingService(sites repository.SiteRepository, bookings repository.BookingRepository, logger *zap.Logger, defaultRegion string) *DefaultBookingService {
	return &DefaultBookingService{
		Sites:         sites,
		Bookings:      bookings,
		Logger:        logger,
		DefaultRegion: defaultRegion,
		Now:           time.Now,
	}
}

func (s *DefaultBookingService) GetSlots(ctx context.Context, tenantID string, q SlotQuery) ([]models.Slot, error) {
	if _, err := calendar.ParseDate(q.Date); err != nil {
		return nil, utils.NewValidationError("invalid_date", "date must be YYYY-MM-DD, got %q", q.Date)
	}
	settings, err := s.loadSite(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	existing, err := s.Bookings.ListByDate(ctx, tenantID, q.Date)
	if err != nil {
		return nil, utils.NewStorageError("bookings_unavailable", err)
	}
	q.Now = s.Now()
	return AvailableSlots(*settings, existing, q)
}

// Book re-resolves availability for the requested start and writes the
// anchor and its follow-ups.
func (s *DefaultBookingService) Book(ctx context.Context, tenantID string, req models.BookingRequest) ([]models.Booking, error) {
	phone, err := utils.NormalizePhone(req.CustomerPhone, s.DefaultRegion)
	if err != nil {
		return nil, utils.NewValidationError("invalid_phone", "%v", err)
	}
	if _, err := models.ParseClock(req.Time); err != nil {
		return nil, utils.NewValidationError("invalid_time", "%v", err)
	}

	settings, err := s.loadSite(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	svc, ok := settings.Service(req.ServiceID)
	if !ok {
		return nil, utils.NewNotFoundError("service_not_found", "service %s not found", req.ServiceID)
	}

	slots, err := s.GetSlots(ctx, tenantID, SlotQuery{Date: req.Date, ServiceID: req.ServiceID, WorkerID: req.WorkerID})
	if err != nil {
		return nil, err
	}
	var slot *models.Slot
	for i := range slots {
		if slots[i].Time == req.Time {
			slot = &slots[i]
			break
		}
	}
	if slot == nil {
		return nil, utils.NewConflictError("slot_unavailable", "%s %s is no longer available", req.Date, req.Time)
	}

	loc, _ := settings.Location()
	chain, err := buildChain(*settings, svc, *slot, req, phone, loc, s.Now())
	if err != nil {
		return nil, err
	}
	if err := s.Bookings.CreateChain(ctx, chain); err != nil {
		s.Logger.Error("Failed to write booking chain", zap.String("tenantID", tenantID), zap.Error(err))
		return nil, utils.NewStorageError("booking_write_failed", err)
	}
	for _, b := range chain {
		metrics.IncBookingCreated(string(b.Status))
	}
	s.Logger.Info("Booking committed",
		zap.String("tenantID", tenantID),
		zap.String("bookingID", chain[0].ID),
		zap.String("workerID", slot.WorkerID),
		zap.Int("rows", len(chain)))
	return chain, nil
}

func (s *DefaultBookingService) loadSite(ctx context.Context, tenantID string) (*models.SiteSettings, error) {
	settings, err := s.Sites.GetByID(ctx, tenantID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, utils.NewNotFoundError("site_not_found", "site %s not found", tenantID)
	}
	if err != nil {
		return nil, utils.NewStorageError("site_unavailable", err)
	}
	return settings, nil
}

// buildChain lays the anchor and every follow-up step back to back,
// separated by each step's gap.
func buildChain(settings models.SiteSettings, svc models.Service, slot models.Slot, req models.BookingRequest, phone string, loc *time.Location, now time.Time) ([]models.Booking, error) {
	start, _ := models.ParseClock(slot.Time)
	workerName := ""
	if w, ok := settings.Worker(slot.WorkerID); ok {
		workerName = w.Name
	}

	appointmentAt, err := calendar.Instant(req.Date, slot.Time, loc)
	if err != nil {
		return nil, utils.NewValidationError("invalid_time", "%v", err)
	}
	status := models.StatusBooked
	if appointmentAt.Sub(now) < ConfirmationWindow {
		status = models.StatusAwaitingConfirmation
	}

	row := func(serviceID, serviceName string, at, duration int) (models.Booking, error) {
		clock := models.FormatClock(at)
		instant, err := calendar.Instant(req.Date, clock, loc)
		if err != nil {
			return models.Booking{}, utils.NewValidationError("invalid_time", "%v", err)
		}
		return models.Booking{
			ID:              uuid.New().String(),
			TenantID:        settings.TenantID,
			Date:            req.Date,
			Time:            clock,
			DurationMinutes: duration,
			WorkerID:        slot.WorkerID,
			WorkerName:      workerName,
			ServiceID:       serviceID,
			ServiceName:     serviceName,
			CustomerPhone:   phone,
			CustomerName:    req.CustomerName,
			Status:          status,
			AppointmentAt:   instant.UTC(),
			CreatedAt:       now.UTC(),
			UpdatedAt:       now.UTC(),
		}, nil
	}

	anchor, err := row(svc.ID, svc.Name, start, svc.DurationMinutes)
	if err != nil {
		return nil, err
	}
	chain := []models.Booking{anchor}
	cursor := start + svc.DurationMinutes
	for _, step := range svc.FollowUps {
		cursor += step.GapMinutes
		fu, err := row(step.ServiceID, step.Name, cursor, step.DurationMinutes)
		if err != nil {
			return nil, err
		}
		fu.IsFollowUp = true
		fu.AnchorID = anchor.ID
		chain = append(chain, fu)
		chain[0].FollowUpIDs = append(chain[0].FollowUpIDs, fu.ID)
		cursor += step.DurationMinutes
	}
	return chain, nil
}
