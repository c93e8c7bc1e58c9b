// Package memstore is an in-process docstore.Store used for local runs and tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"salonbook/database/docstore"
)

// Store keeps documents in a map keyed by full document path.
type Store struct {
	mu   sync.Mutex
	docs map[string]docstore.Fields

	// BeforeBatch, when set, runs before every BatchWrite and can fail it.
	BeforeBatch func(ops []docstore.WriteOp) error

	writes int
}

func New() *Store {
	return &Store{docs: make(map[string]docstore.Fields)}
}

// Writes returns the number of write operations applied so far.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Put seeds a document directly.
func (s *Store) Put(collection, id string, data docstore.Fields) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[docstore.Join(collection, id)] = data.Clone()
}

// Len counts the documents stored under a collection path.
func (s *Store) Len(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for path := range s.docs {
		if parentOf(path) == collection {
			n++
		}
	}
	return n
}

func (s *Store) Get(_ context.Context, collection, id string) (*docstore.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(collection, id)
}

func (s *Store) getLocked(collection, id string) (*docstore.Document, error) {
	path := docstore.Join(collection, id)
	data, ok := s.docs[path]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return &docstore.Document{ID: id, Path: path, Data: data.Clone()}, nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []docstore.Document
	for path, data := range s.docs {
		parent := parentOf(path)
		if q.Group {
			if docstore.CollectionID(parent) != q.Collection {
				continue
			}
		} else if parent != q.Collection {
			continue
		}
		if !matches(data, q) {
			continue
		}
		out = append(out, docstore.Document{ID: path[len(parent)+1:], Path: path, Data: data.Clone()})
	}

	sort.SliceStable(out, func(i, j int) bool {
		for _, o := range q.OrderBy {
			c, _ := docstore.Compare(out[i].Data[o.Field], out[j].Data[o.Field])
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return out[i].Path < out[j].Path
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func matches(data docstore.Fields, q docstore.Query) bool {
	for _, f := range q.Filters {
		v, ok := data[f.Field]
		if !ok || !docstore.Match(v, f) {
			return false
		}
	}
	// Ordering on a missing field excludes the document.
	for _, o := range q.OrderBy {
		if _, ok := data[o.Field]; !ok {
			return false
		}
	}
	return true
}

func (s *Store) BatchWrite(ctx context.Context, ops []docstore.WriteOp) error {
	if err := docstore.CheckBatch(ops); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.BeforeBatch != nil {
		if err := s.BeforeBatch(ops); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(ops)
	return nil
}

func (s *Store) applyLocked(ops []docstore.WriteOp) {
	for _, op := range ops {
		path := docstore.Join(op.Collection, op.ID)
		switch op.Kind {
		case docstore.WriteSet:
			s.docs[path] = op.Data.Clone()
		case docstore.WriteDelete:
			delete(s.docs, path)
		}
		s.writes++
	}
}

type tx struct {
	store  *Store
	writes []docstore.WriteOp
}

func (t *tx) Get(_ context.Context, collection, id string) (*docstore.Document, error) {
	return t.store.getLocked(collection, id)
}

func (t *tx) Set(collection, id string, data docstore.Fields) {
	t.writes = append(t.writes, docstore.Set(collection, id, data))
}

func (t *tx) Delete(collection, id string) {
	t.writes = append(t.writes, docstore.Delete(collection, id))
}

// RunTransaction serializes transactions behind the store mutex. The
// function must only use the supplied Tx.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{store: s}
	if err := fn(ctx, t); err != nil {
		return err
	}
	s.applyLocked(t.writes)
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close(context.Context) error {
	return nil
}

func parentOf(path string) string {
	if i := strings.LastIndex(path, "/"); i > 0 {
		return path[:i]
	}
	return ""
}
