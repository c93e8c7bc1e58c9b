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

// CreateChain writes an anchor and its follow-ups in one batch.
func (r *docBookingRepo) CreateChain(ctx context.Context, chain []models.Booking) error {
	if len(chain) == 0 {
		return nil
	}
	ops := make([]docstore.WriteOp, 0, len(chain))
	for _, b := range chain {
		ops = append(ops, docstore.Set(paths.Bookings(b.TenantID), b.ID, EncodeBooking(b)))
	}
	if err := r.store.BatchWrite(ctx, ops); err != nil {
		return fmt.Errorf("error creating booking chain: %w", err)
	}
	return nil
}

// TransitionChain moves an anchor and its follow-ups from one status to
// another in a single transaction, stamping the received-at time. Rows that
// are not in the from status are left untouched, so replaying a reply
// changes nothing. It returns the anchor as it stands after the call and
// whether the anchor changed.
func (r *docBookingRepo) TransitionChain(ctx context.Context, tenantID, anchorID string, from, to models.BookingStatus, at time.Time) (*models.Booking, bool, error) {
	coll := paths.Bookings(tenantID)
	var (
		result  models.Booking
		changed bool
	)
	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		changed = false
		anchor, err := tx.Get(ctx, coll, anchorID)
		if err != nil {
			return err
		}
		result = DecodeBooking(*anchor)
		if result.Status != from {
			return nil
		}

		// Reads first: Firestore rejects reads after writes.
		var followUps []*docstore.Document
		for _, id := range result.FollowUpIDs {
			doc, err := tx.Get(ctx, coll, id)
			if errors.Is(err, docstore.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			followUps = append(followUps, doc)
		}

		tx.Set(coll, anchorID, stamp(anchor.Data, to, at))
		for _, doc := range followUps {
			fu := DecodeBooking(*doc)
			if fu.Status.IsCancelled() || fu.Status == to {
				continue
			}
			tx.Set(coll, doc.ID, stamp(doc.Data, to, at))
		}

		result.Status = to
		received := at.UTC()
		result.ConfirmationReceivedAt = &received
		result.UpdatedAt = received
		changed = true
		return nil
	})
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("error transitioning booking %s: %w", anchorID, err)
	}
	return &result, changed, nil
}
