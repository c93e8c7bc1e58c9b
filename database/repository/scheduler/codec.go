package schedulerRepo

import (
	"time"

	"salonbook/database/docstore"
	"salonbook/database/repository/paths"
	"salonbook/models"
)

// DecodeBooking maps a stored document onto a Booking. Legacy status values
// are resolved here and nowhere else.
func DecodeBooking(doc docstore.Document) models.Booking {
	f := doc.Data
	b := models.Booking{
		ID:            doc.ID,
		TenantID:      f.String("tenantId"),
		Date:          f.String("date"),
		Time:          f.String("time"),
		WorkerID:      f.String("workerId"),
		WorkerName:    f.String("workerName"),
		ServiceID:     f.String("serviceId"),
		ServiceName:   f.String("serviceName"),
		CustomerPhone: f.String("customerPhone"),
		CustomerName:  f.String("customerName"),
		IsFollowUp:    f.Bool("isFollowUp"),
		AnchorID:      f.String("anchorId"),
		FollowUpIDs:   f.Strings("followUpIds"),
		AppointmentAt: f.Time("appointmentAt"),
		CreatedAt:     f.Time("createdAt"),
		UpdatedAt:     f.Time("updatedAt"),
	}
	if b.TenantID == "" {
		b.TenantID = paths.TenantOf(doc.Path)
	}

	b.DurationMinutes = int(f.Int("durationMinutes"))
	if b.DurationMinutes == 0 {
		b.DurationMinutes = int(f.Int("duration"))
	}

	b.Status, b.StatusDefaulted = models.ResolveLegacyStatus(f.String("status"), f.String("statusAtArchive"))

	if f.Has("confirmationReceivedAt") {
		t := f.Time("confirmationReceivedAt")
		b.ConfirmationReceivedAt = &t
	}
	return b
}

// EncodeBooking is the inverse of DecodeBooking for new rows.
func EncodeBooking(b models.Booking) docstore.Fields {
	f := docstore.Fields{
		"tenantId":        b.TenantID,
		"date":            b.Date,
		"time":            b.Time,
		"durationMinutes": int64(b.DurationMinutes),
		"serviceId":       b.ServiceID,
		"customerPhone":   b.CustomerPhone,
		"customerName":    b.CustomerName,
		"status":          string(b.Status),
		"isFollowUp":      b.IsFollowUp,
		"appointmentAt":   b.AppointmentAt.UTC(),
		"createdAt":       b.CreatedAt.UTC(),
		"updatedAt":       b.UpdatedAt.UTC(),
	}
	setIf(f, "workerId", b.WorkerID)
	setIf(f, "workerName", b.WorkerName)
	setIf(f, "serviceName", b.ServiceName)
	setIf(f, "anchorId", b.AnchorID)
	if len(b.FollowUpIDs) > 0 {
		ids := make([]any, len(b.FollowUpIDs))
		for i, id := range b.FollowUpIDs {
			ids[i] = id
		}
		f["followUpIds"] = ids
	}
	if b.ConfirmationReceivedAt != nil {
		f["confirmationReceivedAt"] = b.ConfirmationReceivedAt.UTC()
	}
	return f
}

func setIf(f docstore.Fields, key, value string) {
	if value != "" {
		f[key] = value
	}
}

func stamp(data docstore.Fields, status models.BookingStatus, at time.Time) docstore.Fields {
	out := data.Clone()
	out["status"] = string(status)
	out["confirmationReceivedAt"] = at.UTC()
	out["updatedAt"] = at.UTC()
	return out
}
