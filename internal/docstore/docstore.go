// Package docstore provides a small document-collection client: named
// collections of schemaless documents with list/get/create/update/delete.
// Two backends exist, Postgres for deployments and an in-memory store for
// dev and tests.
package docstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a document id does not exist in a collection.
var ErrNotFound = errors.New("docstore: document not found")

// Document is one record in a collection.
type Document struct {
	ID        string
	Fields    map[string]any
	CreatedAt time.Time
}

// Filter restricts List to documents whose field equals the given value.
type Filter struct {
	Field  string
	Equals any
}

// Store is the abstraction over document-store backends.
type Store interface {
	// List returns documents in creation order, optionally filtered.
	List(ctx context.Context, collection string, filters ...Filter) ([]Document, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	// Create inserts a document. An empty id gets a generated one.
	Create(ctx context.Context, collection, id string, fields map[string]any) (Document, error)
	// Update replaces a document's fields.
	Update(ctx context.Context, collection, id string, fields map[string]any) (Document, error)
	Delete(ctx context.Context, collection, id string) error
}

// String reads a string field, tolerating missing or mistyped values.
func (d Document) String(field string) string {
	if v, ok := d.Fields[field].(string); ok {
		return v
	}
	return ""
}
