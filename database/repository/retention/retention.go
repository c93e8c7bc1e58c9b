// Package retentionRepo stores the per-tenant retention state: the date of
// the last completed cleanup and the cleanup lease. Nothing outside the
// retention engine reads or writes it.
package retentionRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salonbook/database/docstore"
	"salonbook/database/repository/paths"
	"salonbook/models"
)

var (
	ErrAlreadyRan = errors.New("cleanup already completed for this date")
	ErrLeaseHeld  = errors.New("cleanup lease held by another runner")
)

// AcquireRequest describes a lease attempt. SkipIfRanOn, when set, makes the
// attempt fail with ErrAlreadyRan if the last cleanup date equals it.
type AcquireRequest struct {
	TenantID    string
	Holder      string
	Now         time.Time
	MaxAge      time.Duration
	SkipIfRanOn string
}

type StateRepository interface {
	Get(ctx context.Context, tenantID string) (*models.RetentionState, error)
	Acquire(ctx context.Context, req AcquireRequest) (*models.CleanupLease, error)
	Release(ctx context.Context, tenantID, holder string) error
	Complete(ctx context.Context, tenantID, holder, date string) error
}

type docStateRepo struct {
	store docstore.Store
}

func NewStateRepo(store docstore.Store) StateRepository {
	return &docStateRepo{store: store}
}

func (r *docStateRepo) Get(ctx context.Context, tenantID string) (*models.RetentionState, error) {
	doc, err := r.store.Get(ctx, paths.Engine(tenantID), paths.RetentionDocID)
	if errors.Is(err, docstore.ErrNotFound) {
		return &models.RetentionState{TenantID: tenantID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching retention state for %s: %w", tenantID, err)
	}
	state := decodeState(tenantID, doc.Data)
	return &state, nil
}

// Acquire takes the cleanup lease with a check-then-act inside one store
// transaction. A lease older than its MaxAgeMs is overwritten.
func (r *docStateRepo) Acquire(ctx context.Context, req AcquireRequest) (*models.CleanupLease, error) {
	lease := &models.CleanupLease{
		AcquiredAt: req.Now.UTC(),
		AcquiredBy: req.Holder,
		MaxAgeMs:   req.MaxAge.Milliseconds(),
	}
	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		state, data, err := readState(ctx, tx, req.TenantID)
		if err != nil {
			return err
		}
		if req.SkipIfRanOn != "" && state.LastCleanupDate == req.SkipIfRanOn {
			return ErrAlreadyRan
		}
		if state.Lock != nil && !state.Lock.Stale(req.Now) {
			return ErrLeaseHeld
		}
		data["tenantId"] = req.TenantID
		data["cleanupLock"] = encodeLease(*lease)
		tx.Set(paths.Engine(req.TenantID), paths.RetentionDocID, data)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyRan) || errors.Is(err, ErrLeaseHeld) {
			return nil, err
		}
		return nil, fmt.Errorf("error acquiring cleanup lease for %s: %w", req.TenantID, err)
	}
	return lease, nil
}

// Release drops the lease if holder still owns it.
func (r *docStateRepo) Release(ctx context.Context, tenantID, holder string) error {
	return r.update(ctx, tenantID, holder, "")
}

// Complete stamps the last cleanup date and drops the lease in one write.
func (r *docStateRepo) Complete(ctx context.Context, tenantID, holder, date string) error {
	return r.update(ctx, tenantID, holder, date)
}

func (r *docStateRepo) update(ctx context.Context, tenantID, holder, date string) error {
	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		state, data, err := readState(ctx, tx, tenantID)
		if err != nil {
			return err
		}
		dirty := false
		if state.Lock != nil && state.Lock.AcquiredBy == holder {
			delete(data, "cleanupLock")
			dirty = true
		}
		if date != "" {
			data["lastCleanupDate"] = date
			dirty = true
		}
		if !dirty {
			return nil
		}
		data["tenantId"] = tenantID
		tx.Set(paths.Engine(tenantID), paths.RetentionDocID, data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("error updating retention state for %s: %w", tenantID, err)
	}
	return nil
}

func readState(ctx context.Context, tx docstore.Tx, tenantID string) (models.RetentionState, docstore.Fields, error) {
	doc, err := tx.Get(ctx, paths.Engine(tenantID), paths.RetentionDocID)
	if errors.Is(err, docstore.ErrNotFound) {
		return models.RetentionState{TenantID: tenantID}, docstore.Fields{}, nil
	}
	if err != nil {
		return models.RetentionState{}, nil, err
	}
	return decodeState(tenantID, doc.Data), doc.Data.Clone(), nil
}

func decodeState(tenantID string, f docstore.Fields) models.RetentionState {
	state := models.RetentionState{TenantID: tenantID, LastCleanupDate: f.String("lastCleanupDate")}
	if lock := f.Map("cleanupLock"); lock != nil {
		state.Lock = &models.CleanupLease{
			AcquiredAt: lock.Time("acquiredAt"),
			AcquiredBy: lock.String("acquiredBy"),
			MaxAgeMs:   lock.Int("maxAgeMs"),
		}
	}
	return state
}

func encodeLease(l models.CleanupLease) docstore.Fields {
	return docstore.Fields{
		"acquiredAt": l.AcquiredAt.UTC(),
		"acquiredBy": l.AcquiredBy,
		"maxAgeMs":   l.MaxAgeMs,
	}
}
