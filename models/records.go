// File: models/records.go
package models

import "time"

const (
	ArchiveReasonExpired   = "expired"
	ArchiveReasonCancelled = "cancelled"
)

// ArchivedBookingRecord is the minimal projection written before a live
// booking is deleted. Its ID is derived from client, service and booking id.
type ArchivedBookingRecord struct {
	ID              string        `json:"id"`
	TenantID        string        `json:"tenantId"`
	BookingID       string        `json:"bookingId"`
	ClientKey       string        `json:"clientKey"`
	Date            string        `json:"date"`
	Time            string        `json:"time"`
	ServiceID       string        `json:"serviceId"`
	ServiceName     string        `json:"serviceName,omitempty"`
	WorkerID        string        `json:"workerId,omitempty"`
	WorkerName      string        `json:"workerName,omitempty"`
	CustomerName    string        `json:"customerName"`
	CustomerPhone   string        `json:"customerPhone"`
	IsFollowUp      bool          `json:"isFollowUp"`
	StatusAtArchive BookingStatus `json:"statusAtArchive"`
	ArchivedAt      time.Time     `json:"archivedAt"`
	ArchivedReason  string        `json:"archivedReason"`
}
