package schedulerRepo

import (
	"context"
	"time"

	"salonbook/database/docstore"
	"salonbook/models"
)

// BookingRepository reads and writes live bookings.
type BookingRepository interface {
	GetByID(ctx context.Context, tenantID, bookingID string) (*models.Booking, error)
	ListByDate(ctx context.Context, tenantID, date string) ([]models.Booking, error)
	// ListAwaitingByPhone searches every tenant for anchor bookings awaiting
	// confirmation from phone with an appointment after the given instant,
	// soonest first.
	ListAwaitingByPhone(ctx context.Context, phone string, after time.Time, limit int) ([]models.Booking, error)
	ListExpired(ctx context.Context, tenantID, cutoffDate string, limit int) ([]models.Booking, error)
	ListCancelled(ctx context.Context, tenantID string, limit int) ([]models.Booking, error)
	ListFollowUps(ctx context.Context, anchor models.Booking) ([]models.Booking, error)
	CreateChain(ctx context.Context, chain []models.Booking) error
	TransitionChain(ctx context.Context, tenantID, anchorID string, from, to models.BookingStatus, at time.Time) (*models.Booking, bool, error)
}

type docBookingRepo struct {
	store docstore.Store
}

// NewBookingRepo constructs a BookingRepository over the document store.
func NewBookingRepo(store docstore.Store) BookingRepository {
	return &docBookingRepo{store: store}
}
