package mongostore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"salonbook/database/docstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Transactions need a replica set, e.g. mongodb://localhost:27017/?replicaSet=rs0.
func connectTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := Connect(ctx, uri, "salonbook_test_"+uuid.NewString()[:8])
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.db.Drop(context.Background())
		_ = store.Close(context.Background())
	})
	return store
}

func TestRunTransaction_ConcurrentIncrementsAllLand(t *testing.T) {
	store := connectTestStore(t)
	ctx := context.Background()
	const workers = 8

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
				var n int64
				doc, err := tx.Get(ctx, "rateLimits", "k")
				switch {
				case err == nil:
					n = doc.Data.Int("count")
				case !errors.Is(err, docstore.ErrNotFound):
					return err
				}
				tx.Set("rateLimits", "k", docstore.Fields{"count": n + 1})
				return nil
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	doc, err := store.Get(ctx, "rateLimits", "k")
	require.NoError(t, err)
	assert.Equal(t, int64(workers), doc.Data.Int("count"))
}

func TestBatchWrite_SetAndDelete(t *testing.T) {
	store := connectTestStore(t)
	ctx := context.Background()

	ops := []docstore.WriteOp{docstore.Delete("sites/s1/bookings", "old")}
	for i := 0; i < 3; i++ {
		ops = append(ops, docstore.Set("sites/s1/bookings", fmt.Sprint("b", i), docstore.Fields{"date": "2026-04-20"}))
	}
	require.NoError(t, store.BatchWrite(ctx, ops))

	docs, err := store.Query(ctx, docstore.Query{
		Collection: "sites/s1/bookings",
		Filters:    []docstore.Filter{docstore.Where("date", docstore.OpEq, "2026-04-20")},
	})
	require.NoError(t, err)
	assert.Len(t, docs, 3)
}
