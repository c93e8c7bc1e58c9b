package schedulerRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salonbook/database/docstore"
	"salonbook/database/repository/paths"
	"salonbook/models"
)

func (r *docBookingRepo) GetByID(ctx context.Context, tenantID, bookingID string) (*models.Booking, error) {
	doc, err := r.store.Get(ctx, paths.Bookings(tenantID), bookingID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error fetching booking %s: %w", bookingID, err)
	}
	b := DecodeBooking(*doc)
	return &b, nil
}

// ListByDate returns every booking of a tenant on a civil date, cancelled
// ones included.
func (r *docBookingRepo) ListByDate(ctx context.Context, tenantID, date string) ([]models.Booking, error) {
	docs, err := r.store.Query(ctx, docstore.Query{
		Collection: paths.Bookings(tenantID),
		Filters:    []docstore.Filter{docstore.Where("date", docstore.OpEq, date)},
	})
	if err != nil {
		return nil, fmt.Errorf("error listing bookings for %s on %s: %w", tenantID, date, err)
	}
	return decodeAll(docs), nil
}

func (r *docBookingRepo) ListAwaitingByPhone(ctx context.Context, phone string, after time.Time, limit int) ([]models.Booking, error) {
	docs, err := r.store.Query(ctx, docstore.Query{
		Collection: paths.BookingsID,
		Group:      true,
		Filters: []docstore.Filter{
			docstore.Where("customerPhone", docstore.OpEq, phone),
			docstore.Where("status", docstore.OpIn, models.StatusAliases(models.StatusAwaitingConfirmation)),
			docstore.Where("isFollowUp", docstore.OpEq, false),
			docstore.Where("appointmentAt", docstore.OpGt, after.UTC()),
		},
		OrderBy: []docstore.Order{{Field: "appointmentAt"}},
		Limit:   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("error querying pending confirmations: %w", err)
	}
	return decodeAll(docs), nil
}

// ListExpired returns up to limit bookings dated strictly before cutoffDate.
func (r *docBookingRepo) ListExpired(ctx context.Context, tenantID, cutoffDate string, limit int) ([]models.Booking, error) {
	docs, err := r.store.Query(ctx, docstore.Query{
		Collection: paths.Bookings(tenantID),
		Filters:    []docstore.Filter{docstore.Where("date", docstore.OpLt, cutoffDate)},
		OrderBy:    []docstore.Order{{Field: "date"}},
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("error listing expired bookings for %s: %w", tenantID, err)
	}
	return decodeAll(docs), nil
}

// ListCancelled returns up to limit cancelled bookings regardless of date.
func (r *docBookingRepo) ListCancelled(ctx context.Context, tenantID string, limit int) ([]models.Booking, error) {
	docs, err := r.store.Query(ctx, docstore.Query{
		Collection: paths.Bookings(tenantID),
		Filters: []docstore.Filter{
			docstore.Where("status", docstore.OpIn, models.StatusAliases(models.StatusCancelled, models.StatusCancelledBySalon)),
		},
		Limit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("error listing cancelled bookings for %s: %w", tenantID, err)
	}
	return decodeAll(docs), nil
}

// ListFollowUps returns the live follow-ups of an anchor, found through its
// FollowUpIDs and through their anchorId back-reference.
func (r *docBookingRepo) ListFollowUps(ctx context.Context, anchor models.Booking) ([]models.Booking, error) {
	if anchor.IsFollowUp {
		return nil, nil
	}
	docs, err := r.store.Query(ctx, docstore.Query{
		Collection: paths.Bookings(anchor.TenantID),
		Filters:    []docstore.Filter{docstore.Where("anchorId", docstore.OpEq, anchor.ID)},
	})
	if err != nil {
		return nil, fmt.Errorf("error listing follow-ups of %s: %w", anchor.ID, err)
	}
	out := decodeAll(docs)
	seen := make(map[string]bool, len(out))
	for _, b := range out {
		seen[b.ID] = true
	}
	for _, id := range anchor.FollowUpIDs {
		if id == "" || id == anchor.ID || seen[id] {
			continue
		}
		b, err := r.GetByID(ctx, anchor.TenantID, id)
		if errors.Is(err, docstore.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		seen[id] = true
		out = append(out, *b)
	}
	return out, nil
}

func decodeAll(docs []docstore.Document) []models.Booking {
	out := make([]models.Booking, 0, len(docs))
	for _, d := range docs {
		out = append(out, DecodeBooking(d))
	}
	return out
}
