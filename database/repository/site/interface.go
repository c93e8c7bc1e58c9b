package siteRepo

import (
	"context"

	"salonbook/database/docstore"
	"salonbook/models"
)

// SiteRepository reads tenant settings. The engine never writes them outside
// of seeding.
type SiteRepository interface {
	GetByID(ctx context.Context, tenantID string) (*models.SiteSettings, error)
	ListIDs(ctx context.Context) ([]string, error)
	Save(ctx context.Context, settings models.SiteSettings) error
}

type docSiteRepo struct {
	store docstore.Store
}

func NewSiteRepo(store docstore.Store) SiteRepository {
	return &docSiteRepo{store: store}
}
