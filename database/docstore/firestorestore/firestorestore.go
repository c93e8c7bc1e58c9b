// Package firestorestore implements docstore.Store on Cloud Firestore through
// the firebase admin SDK. Collection paths map one to one onto Firestore
// collection paths, and group queries use collection group queries.
package firestorestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"salonbook/database/docstore"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Store implements docstore.Store using Firestore.
type Store struct {
	client *firestore.Client
}

func New(client *firestore.Client) *Store {
	return &Store{client: client}
}

// FromApp opens a Firestore client from an initialized firebase app.
func FromApp(ctx context.Context, app *firebase.App) (*Store, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: error getting Firestore client: %w", err)
	}
	return New(client), nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	return fromSnapshot(snap, err)
}

func fromSnapshot(snap *firestore.DocumentSnapshot, err error) (*docstore.Document, error) {
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, docstore.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching document: %w", err)
	}
	if !snap.Exists() {
		return nil, docstore.ErrNotFound
	}
	doc := toDocument(snap)
	return &doc, nil
}

func toDocument(snap *firestore.DocumentSnapshot) docstore.Document {
	data := docstore.Fields{}
	for k, v := range snap.Data() {
		data[k] = normalize(v)
	}
	return docstore.Document{ID: snap.Ref.ID, Path: relativePath(snap.Ref.Path), Data: data}
}

// relativePath strips the "projects/<p>/databases/<d>/documents/" prefix.
func relativePath(full string) string {
	const marker = "/documents/"
	if i := strings.Index(full, marker); i >= 0 {
		return full[i+len(marker):]
	}
	return full
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	var fq firestore.Query
	if q.Group {
		fq = s.client.CollectionGroup(q.Collection).Query
	} else {
		fq = s.client.Collection(q.Collection).Query
	}
	for _, f := range q.Filters {
		fq = fq.Where(f.Field, string(f.Op), f.Value)
	}
	for _, o := range q.OrderBy {
		dir := firestore.Asc
		if o.Desc {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(o.Field, dir)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}

	iter := fq.Documents(ctx)
	defer iter.Stop()

	var out []docstore.Document
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error querying %s: %w", q.Collection, err)
		}
		out = append(out, toDocument(snap))
	}
	return out, nil
}

func (s *Store) BatchWrite(ctx context.Context, ops []docstore.WriteOp) error {
	if err := docstore.CheckBatch(ops); err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}
	batch := s.client.Batch()
	for _, op := range ops {
		ref := s.client.Collection(op.Collection).Doc(op.ID)
		switch op.Kind {
		case docstore.WriteSet:
			batch.Set(ref, map[string]any(op.Data))
		case docstore.WriteDelete:
			batch.Delete(ref)
		}
	}
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("batch commit failed: %w", err)
	}
	return nil
}

type tx struct {
	client *firestore.Client
	ftx    *firestore.Transaction
	writes []docstore.WriteOp
}

func (t *tx) Get(_ context.Context, collection, id string) (*docstore.Document, error) {
	snap, err := t.ftx.Get(t.client.Collection(collection).Doc(id))
	return fromSnapshot(snap, err)
}

func (t *tx) Set(collection, id string, data docstore.Fields) {
	t.writes = append(t.writes, docstore.Set(collection, id, data))
}

func (t *tx) Delete(collection, id string) {
	t.writes = append(t.writes, docstore.Delete(collection, id))
}

// RunTransaction buffers writes so every read precedes every write, as
// Firestore transactions require.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, ftx *firestore.Transaction) error {
		t := &tx{client: s.client, ftx: ftx}
		if err := fn(ctx, t); err != nil {
			return err
		}
		for _, op := range t.writes {
			ref := s.client.Collection(op.Collection).Doc(op.ID)
			var err error
			switch op.Kind {
			case docstore.WriteSet:
				err = ftx.Set(ref, map[string]any(op.Data))
			case docstore.WriteDelete:
				err = ftx.Delete(ref)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := s.Get(ctx, "_health", "ping")
	if errors.Is(err, docstore.ErrNotFound) {
		return nil
	}
	return err
}

func (s *Store) Close(context.Context) error {
	return s.client.Close()
}

func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := docstore.Fields{}
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = normalize(t[i])
		}
		return out
	case time.Time:
		return t.UTC()
	}
	return v
}
