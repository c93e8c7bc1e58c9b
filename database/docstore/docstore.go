// Package docstore is the narrow document-store contract the booking engine
// talks to. Backends live in the mongostore, firestorestore and memstore
// subpackages.
package docstore

import (
	"context"
	"errors"
	"strings"
)

// MaxBatchOps is the largest number of writes a single BatchWrite accepts.
const MaxBatchOps = 500

var (
	ErrNotFound      = errors.New("docstore: document not found")
	ErrBatchTooLarge = errors.New("docstore: batch exceeds MaxBatchOps")
)

// Document is a single stored record. Path is the full slash separated
// document path, e.g. "sites/s1/bookings/b1".
type Document struct {
	ID   string
	Path string
	Data Fields
}

// Parent returns the collection path the document lives in.
func (d Document) Parent() string {
	if i := strings.LastIndex(d.Path, "/"); i > 0 {
		return d.Path[:i]
	}
	return ""
}

type Op string

const (
	OpEq  Op = "=="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
	OpIn  Op = "in"
)

type Filter struct {
	Field string
	Op    Op
	Value any
}

func Where(field string, op Op, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

type Order struct {
	Field string
	Desc  bool
}

// Query selects documents from one collection path, or from every
// collection with the given id when Group is set.
type Query struct {
	Collection string
	Group      bool
	Filters    []Filter
	OrderBy    []Order
	Limit      int
}

type WriteKind int

const (
	WriteSet WriteKind = iota
	WriteDelete
)

// WriteOp is one element of a batch. Set replaces the whole document.
type WriteOp struct {
	Kind       WriteKind
	Collection string
	ID         string
	Data       Fields
}

func Set(collection, id string, data Fields) WriteOp {
	return WriteOp{Kind: WriteSet, Collection: collection, ID: id, Data: data}
}

func Delete(collection, id string) WriteOp {
	return WriteOp{Kind: WriteDelete, Collection: collection, ID: id}
}

// Tx is the view of the store inside RunTransaction. Reads happen
// immediately; writes are applied when the transaction function returns nil.
type Tx interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	Set(collection, id string, data Fields)
	Delete(collection, id string)
}

// Store is implemented by every backend.
type Store interface {
	// Get returns ErrNotFound when the document does not exist.
	Get(ctx context.Context, collection, id string) (*Document, error)
	Query(ctx context.Context, q Query) ([]Document, error)
	// BatchWrite applies at most MaxBatchOps writes atomically.
	BatchWrite(ctx context.Context, ops []WriteOp) error
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Join builds a slash separated path.
func Join(parts ...string) string {
	return strings.Join(parts, "/")
}

// CollectionID returns the last segment of a collection path.
func CollectionID(collection string) string {
	if i := strings.LastIndex(collection, "/"); i >= 0 {
		return collection[i+1:]
	}
	return collection
}

// CheckBatch validates the size of a batch before it reaches a backend.
func CheckBatch(ops []WriteOp) error {
	if len(ops) > MaxBatchOps {
		return ErrBatchTooLarge
	}
	return nil
}
