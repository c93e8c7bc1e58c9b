// Package paths names the document-store collections the engine uses.
package paths

import (
	"strings"

	"salonbook/database/docstore"
)

const (
	Sites          = "sites"
	RateLimits     = "rateLimits"
	BookingsID     = "bookings"
	ArchivesID     = "archivedServiceTypes"
	engineID       = "engine"
	RetentionDocID = "retention"
)

// Bookings is the live booking collection of a tenant.
func Bookings(tenantID string) string {
	return docstore.Join(Sites, tenantID, BookingsID)
}

// Archives holds the archived booking records of a tenant.
func Archives(tenantID string) string {
	return docstore.Join(Sites, tenantID, ArchivesID)
}

// Engine holds per-tenant engine state documents.
func Engine(tenantID string) string {
	return docstore.Join(Sites, tenantID, engineID)
}

// TenantOf extracts the tenant id from a document path under "sites/{id}/...".
func TenantOf(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) >= 2 && parts[0] == Sites {
		return parts[1]
	}
	return ""
}
