package recordsRepo

import (
	"context"
	"errors"
	"fmt"

	"salonbook/database/docstore"
	"salonbook/database/repository/paths"
	"salonbook/models"
	"salonbook/utils"
)

const anonymousClient = "anon"

// ClientKey identifies the customer of an archived booking.
func ClientKey(normalizedPhone string) string {
	if normalizedPhone == "" {
		return anonymousClient
	}
	return normalizedPhone
}

// ArchiveID derives the archive document id from client, service and
// booking id.
func ArchiveID(clientKey, serviceID, bookingID string) string {
	return utils.HashKey(clientKey, serviceID, bookingID)[:32]
}

func (r *docArchiveRepo) ArchiveAndDelete(ctx context.Context, tenantID string, records []models.ArchivedBookingRecord) error {
	if len(records) == 0 {
		return nil
	}
	ops := make([]docstore.WriteOp, 0, 2*len(records))
	for _, rec := range records {
		ops = append(ops,
			docstore.Set(paths.Archives(tenantID), rec.ID, encodeRecord(rec)),
			docstore.Delete(paths.Bookings(tenantID), rec.BookingID),
		)
	}
	if err := r.store.BatchWrite(ctx, ops); err != nil {
		return fmt.Errorf("error archiving %d bookings for %s: %w", len(records), tenantID, err)
	}
	return nil
}

func (r *docArchiveRepo) GetByID(ctx context.Context, tenantID, id string) (*models.ArchivedBookingRecord, error) {
	doc, err := r.store.Get(ctx, paths.Archives(tenantID), id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error fetching archived record %s: %w", id, err)
	}
	rec := decodeRecord(*doc)
	return &rec, nil
}

// ListOlderThan returns archived records whose booking date is before date.
func (r *docArchiveRepo) ListOlderThan(ctx context.Context, tenantID, date string, limit int) ([]models.ArchivedBookingRecord, error) {
	docs, err := r.store.Query(ctx, docstore.Query{
		Collection: paths.Archives(tenantID),
		Filters:    []docstore.Filter{docstore.Where("date", docstore.OpLt, date)},
		OrderBy:    []docstore.Order{{Field: "date"}},
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("error listing archived records for %s: %w", tenantID, err)
	}
	out := make([]models.ArchivedBookingRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, decodeRecord(d))
	}
	return out, nil
}

func (r *docArchiveRepo) DeleteMany(ctx context.Context, tenantID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	ops := make([]docstore.WriteOp, 0, len(ids))
	for _, id := range ids {
		ops = append(ops, docstore.Delete(paths.Archives(tenantID), id))
	}
	if err := r.store.BatchWrite(ctx, ops); err != nil {
		return fmt.Errorf("error purging archived records for %s: %w", tenantID, err)
	}
	return nil
}

func encodeRecord(rec models.ArchivedBookingRecord) docstore.Fields {
	return docstore.Fields{
		"tenantId":        rec.TenantID,
		"bookingId":       rec.BookingID,
		"clientKey":       rec.ClientKey,
		"date":            rec.Date,
		"time":            rec.Time,
		"serviceId":       rec.ServiceID,
		"serviceName":     rec.ServiceName,
		"workerId":        rec.WorkerID,
		"workerName":      rec.WorkerName,
		"customerName":    rec.CustomerName,
		"customerPhone":   rec.CustomerPhone,
		"isFollowUp":      rec.IsFollowUp,
		"statusAtArchive": string(rec.StatusAtArchive),
		"archivedAt":      rec.ArchivedAt.UTC(),
		"archivedReason":  rec.ArchivedReason,
	}
}

func decodeRecord(doc docstore.Document) models.ArchivedBookingRecord {
	f := doc.Data
	status, _ := models.ResolveLegacyStatus(f.String("statusAtArchive"), f.String("status"))
	return models.ArchivedBookingRecord{
		ID:              doc.ID,
		TenantID:        f.String("tenantId"),
		BookingID:       f.String("bookingId"),
		ClientKey:       f.String("clientKey"),
		Date:            f.String("date"),
		Time:            f.String("time"),
		ServiceID:       f.String("serviceId"),
		ServiceName:     f.String("serviceName"),
		WorkerID:        f.String("workerId"),
		WorkerName:      f.String("workerName"),
		CustomerName:    f.String("customerName"),
		CustomerPhone:   f.String("customerPhone"),
		IsFollowUp:      f.Bool("isFollowUp"),
		StatusAtArchive: status,
		ArchivedAt:      f.Time("archivedAt"),
		ArchivedReason:  f.String("archivedReason"),
	}
}
