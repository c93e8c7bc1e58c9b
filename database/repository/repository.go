package repository

import (
	"salonbook/database/docstore"
	ratelimitRepo "salonbook/database/repository/ratelimit"
	recordsRepo "salonbook/database/repository/records"
	retentionRepo "salonbook/database/repository/retention"
	schedulerRepo "salonbook/database/repository/scheduler"
	siteRepo "salonbook/database/repository/site"
)

// Re-export the repository interfaces and constructors.
type BookingRepository = schedulerRepo.BookingRepository

var NewBookingRepo = schedulerRepo.NewBookingRepo

type SiteRepository = siteRepo.SiteRepository

var NewSiteRepo = siteRepo.NewSiteRepo

type ArchiveRepository = recordsRepo.ArchiveRepository

var NewArchiveRepo = recordsRepo.NewArchiveRepo

type StateRepository = retentionRepo.StateRepository

var NewStateRepo = retentionRepo.NewStateRepo

type CounterRepository = ratelimitRepo.CounterRepository

var NewCounterRepo = ratelimitRepo.NewCounterRepo

// Repositories groups every repository built over one store.
type Repositories struct {
	Bookings  BookingRepository
	Sites     SiteRepository
	Archives  ArchiveRepository
	Retention StateRepository
	Counters  CounterRepository
}

func New(store docstore.Store) Repositories {
	return Repositories{
		Bookings:  NewBookingRepo(store),
		Sites:     NewSiteRepo(store),
		Archives:  NewArchiveRepo(store),
		Retention: NewStateRepo(store),
		Counters:  NewCounterRepo(store),
	}
}
