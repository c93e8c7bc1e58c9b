package recordsRepo

import (
	"context"

	"salonbook/database/docstore"
	"salonbook/models"
)

// ArchiveRepository owns the archived booking records of every tenant.
type ArchiveRepository interface {
	// ArchiveAndDelete writes each record and deletes its live booking in one
	// batch. Records are keyed by their deterministic ID, so a replay
	// overwrites instead of duplicating.
	ArchiveAndDelete(ctx context.Context, tenantID string, records []models.ArchivedBookingRecord) error
	GetByID(ctx context.Context, tenantID, id string) (*models.ArchivedBookingRecord, error)
	ListOlderThan(ctx context.Context, tenantID, date string, limit int) ([]models.ArchivedBookingRecord, error)
	DeleteMany(ctx context.Context, tenantID string, ids []string) error
}

type docArchiveRepo struct {
	store docstore.Store
}

// NewArchiveRepo returns an ArchiveRepository over the document store.
func NewArchiveRepo(store docstore.Store) ArchiveRepository {
	return &docArchiveRepo{store: store}
}
