package ratelimitRepo

import (
	"context"
	"errors"
	"fmt"

	"salonbook/database/docstore"
	"salonbook/database/repository/paths"
	"salonbook/models"
)

// CounterRepository persists rate limit windows keyed by a hashed key.
type CounterRepository interface {
	// Update reads the counter for key, lets fn mutate it and writes it back,
	// all inside one transaction. A missing counter is passed as the zero
	// value with Key set. fn returning false skips the write.
	Update(ctx context.Context, key string, fn func(c *models.RateLimitCounter) bool) error
}

type docCounterRepo struct {
	store docstore.Store
}

func NewCounterRepo(store docstore.Store) CounterRepository {
	return &docCounterRepo{store: store}
}

func (r *docCounterRepo) Update(ctx context.Context, key string, fn func(c *models.RateLimitCounter) bool) error {
	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		counter := models.RateLimitCounter{Key: key}
		doc, err := tx.Get(ctx, paths.RateLimits, key)
		switch {
		case errors.Is(err, docstore.ErrNotFound):
		case err != nil:
			return err
		default:
			counter.Count = doc.Data.Int("count")
			counter.WindowStart = doc.Data.Int("windowStart")
		}
		if !fn(&counter) {
			return nil
		}
		tx.Set(paths.RateLimits, key, docstore.Fields{
			"count":       counter.Count,
			"windowStart": counter.WindowStart,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("error updating rate limit counter: %w", err)
	}
	return nil
}
