package docstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is a mutex-guarded in-memory store for dev/testing. List preserves
// insertion order, matching the Postgres backend's creation-order listing.
type Memory struct {
	mu    sync.RWMutex
	colls map[string][]Document
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{colls: make(map[string][]Document)}
}

func matches(doc Document, filters []Filter) bool {
	for _, f := range filters {
		if fmt.Sprintf("%v", doc.Fields[f.Field]) != fmt.Sprintf("%v", f.Equals) {
			return false
		}
	}
	return true
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// List returns documents in insertion order, optionally filtered.
func (m *Memory) List(_ context.Context, collection string, filters ...Filter) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Document
	for _, doc := range m.colls[collection] {
		if matches(doc, filters) {
			doc.Fields = copyFields(doc.Fields)
			out = append(out, doc)
		}
	}
	return out, nil
}

// Get returns a single document by id.
func (m *Memory) Get(_ context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, doc := range m.colls[collection] {
		if doc.ID == id {
			doc.Fields = copyFields(doc.Fields)
			return doc, nil
		}
	}
	return Document{}, ErrNotFound
}

// Create appends a new document, generating an id when none is given.
func (m *Memory) Create(_ context.Context, collection, id string, fields map[string]any) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == "" {
		id = uuid.NewString()
	}
	for _, doc := range m.colls[collection] {
		if doc.ID == id {
			return Document{}, fmt.Errorf("docstore: duplicate id %s in %s", id, collection)
		}
	}
	doc := Document{ID: id, Fields: copyFields(fields), CreatedAt: time.Now().UTC()}
	m.colls[collection] = append(m.colls[collection], doc)
	return doc, nil
}

// Update replaces a document's fields.
func (m *Memory) Update(_ context.Context, collection, id string, fields map[string]any) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, doc := range m.colls[collection] {
		if doc.ID == id {
			doc.Fields = copyFields(fields)
			m.colls[collection][i] = doc
			return doc, nil
		}
	}
	return Document{}, ErrNotFound
}

// Delete removes a document.
func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := m.colls[collection]
	for i, doc := range docs {
		if doc.ID == id {
			m.colls[collection] = append(docs[:i:i], docs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
