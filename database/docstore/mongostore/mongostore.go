// Package mongostore implements docstore.Store on MongoDB. Every collection
// path maps to the MongoDB collection named by its last segment; documents
// carry their full path as _id and their collection path as _parent so that
// per-tenant queries and cross-tenant (group) queries share one collection.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salonbook/database/docstore"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	fieldID     = "_id"
	fieldParent = "_parent"
	fieldDocID  = "_docId"

	opTimeout = 5 * time.Second
)

// Store implements docstore.Store using MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New wraps an already connected client.
func New(client *mongo.Client, database string) *Store {
	return &Store{client: client, db: client.Database(database)}
}

// Connect opens and pings a MongoDB connection.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return New(client, database), nil
}

func (s *Store) coll(collection string) *mongo.Collection {
	return s.db.Collection(docstore.CollectionID(collection))
}

func (s *Store) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return s.get(ctx, collection, id)
}

func (s *Store) get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	path := docstore.Join(collection, id)
	var raw bson.M
	if err := s.coll(collection).FindOne(ctx, bson.M{fieldID: path}).Decode(&raw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, docstore.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching document %s: %w", path, err)
	}
	doc := fromBSON(raw)
	return &doc, nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{}
	if !q.Group {
		filter[fieldParent] = q.Collection
	}
	for _, f := range q.Filters {
		cond, err := condition(f)
		if err != nil {
			return nil, err
		}
		if existing, ok := filter[f.Field].(bson.M); ok {
			for k, v := range cond {
				existing[k] = v
			}
			continue
		}
		filter[f.Field] = cond
	}

	opts := options.Find()
	if len(q.OrderBy) > 0 {
		sortSpec := bson.D{}
		for _, o := range q.OrderBy {
			dir := 1
			if o.Desc {
				dir = -1
			}
			sortSpec = append(sortSpec, bson.E{Key: o.Field, Value: dir})
			// Match Firestore: ordering on a missing field excludes the document.
			if _, ok := filter[o.Field]; !ok {
				filter[o.Field] = bson.M{"$exists": true}
			}
		}
		opts.SetSort(sortSpec)
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := s.coll(q.Collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error querying %s: %w", q.Collection, err)
	}
	defer cursor.Close(ctx)

	var out []docstore.Document
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("error decoding document: %w", err)
		}
		out = append(out, fromBSON(raw))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return out, nil
}

func condition(f docstore.Filter) (bson.M, error) {
	switch f.Op {
	case docstore.OpEq:
		return bson.M{"$eq": f.Value}, nil
	case docstore.OpLt:
		return bson.M{"$lt": f.Value}, nil
	case docstore.OpLte:
		return bson.M{"$lte": f.Value}, nil
	case docstore.OpGt:
		return bson.M{"$gt": f.Value}, nil
	case docstore.OpGte:
		return bson.M{"$gte": f.Value}, nil
	case docstore.OpIn:
		return bson.M{"$in": f.Value}, nil
	}
	return nil, fmt.Errorf("unsupported filter operator %q", f.Op)
}

// BatchWrite applies the writes inside one multi-document transaction.
func (s *Store) BatchWrite(ctx context.Context, ops []docstore.WriteOp) error {
	if err := docstore.CheckBatch(ops); err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}
	return s.withTransaction(ctx, func(sc mongo.SessionContext) error {
		return s.apply(sc, ops)
	})
}

func (s *Store) apply(ctx context.Context, ops []docstore.WriteOp) error {
	byColl := make(map[string][]mongo.WriteModel)
	var order []string
	for _, op := range ops {
		name := docstore.CollectionID(op.Collection)
		if _, seen := byColl[name]; !seen {
			order = append(order, name)
		}
		path := docstore.Join(op.Collection, op.ID)
		switch op.Kind {
		case docstore.WriteSet:
			byColl[name] = append(byColl[name], mongo.NewReplaceOneModel().
				SetFilter(bson.M{fieldID: path}).
				SetReplacement(toBSON(op)).
				SetUpsert(true))
		case docstore.WriteDelete:
			byColl[name] = append(byColl[name], mongo.NewDeleteOneModel().SetFilter(bson.M{fieldID: path}))
		}
	}

	for _, name := range order {
		if _, err := s.db.Collection(name).BulkWrite(ctx, byColl[name], options.BulkWrite().SetOrdered(true)); err != nil {
			return fmt.Errorf("bulk write to %s failed: %w", name, err)
		}
	}
	return nil
}

type tx struct {
	store  *Store
	sc     mongo.SessionContext
	writes []docstore.WriteOp
}

func (t *tx) Get(_ context.Context, collection, id string) (*docstore.Document, error) {
	return t.store.get(t.sc, collection, id)
}

func (t *tx) Set(collection, id string, data docstore.Fields) {
	t.writes = append(t.writes, docstore.Set(collection, id, data))
}

func (t *tx) Delete(collection, id string) {
	t.writes = append(t.writes, docstore.Delete(collection, id))
}

func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	return s.withTransaction(ctx, func(sc mongo.SessionContext) error {
		t := &tx{store: s, sc: sc}
		if err := fn(sc, t); err != nil {
			return err
		}
		if len(t.writes) == 0 {
			return nil
		}
		return s.apply(sc, t.writes)
	})
}

// withTransaction runs fn through the driver's retry loop, which repeats it
// on transient errors such as write conflicts. fn must not keep state across
// attempts.
func (s *Store) withTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func toBSON(op docstore.WriteOp) bson.M {
	doc := bson.M{}
	for k, v := range op.Data {
		doc[k] = v
	}
	doc[fieldID] = docstore.Join(op.Collection, op.ID)
	doc[fieldParent] = op.Collection
	doc[fieldDocID] = op.ID
	return doc
}

func fromBSON(raw bson.M) docstore.Document {
	doc := docstore.Document{Data: docstore.Fields{}}
	for k, v := range raw {
		switch k {
		case fieldID:
			doc.Path, _ = v.(string)
		case fieldDocID:
			doc.ID, _ = v.(string)
		case fieldParent:
		default:
			doc.Data[k] = normalize(v)
		}
	}
	return doc
}

func normalize(v any) any {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC()
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case primitive.M:
		out := docstore.Fields{}
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[string]any:
		out := docstore.Fields{}
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case primitive.D:
		out := docstore.Fields{}
		for _, e := range t {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case primitive.A:
		out := make([]any, len(t))
		for i := range t {
			out[i] = normalize(t[i])
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = normalize(t[i])
		}
		return out
	}
	return v
}
