package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres keeps every collection in a single documents table with a JSONB
// fields column.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a Postgres-backed store with sane connection defaults.
func NewPostgres(connString string) (*Postgres, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return &Postgres{db: db}, db.PingContext(context.Background())
}

// EnsureSchema creates the documents table when missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id         TEXT NOT NULL,
			fields     JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (collection, id)
		)
	`)
	return err
}

// Close closes the underlying connection pool.
func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// Healthy verifies database connectivity.
func (p *Postgres) Healthy(ctx context.Context) bool {
	if p == nil || p.db == nil {
		return false
	}
	return p.db.PingContext(ctx) == nil
}

// List returns documents in creation order. Filters match on JSONB text values.
func (p *Postgres) List(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	query := `SELECT id, fields, created_at FROM documents WHERE collection = $1`
	args := []any{collection}
	for _, f := range filters {
		args = append(args, f.Field, fmt.Sprintf("%v", f.Equals))
		query += fmt.Sprintf(" AND fields->>$%d = $%d", len(args)-1, len(args))
	}
	query += " ORDER BY created_at, id"

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var raw []byte
		if err := rows.Scan(&doc.ID, &raw, &doc.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &doc.Fields); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", doc.ID, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Get returns a single document by id.
func (p *Postgres) Get(ctx context.Context, collection, id string) (Document, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, fields, created_at FROM documents WHERE collection = $1 AND id = $2
	`, collection, id)
	var doc Document
	var raw []byte
	if err := row.Scan(&doc.ID, &raw, &doc.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	if err := json.Unmarshal(raw, &doc.Fields); err != nil {
		return Document{}, fmt.Errorf("decode document %s: %w", doc.ID, err)
	}
	return doc, nil
}

// Create inserts a new document, generating an id when none is given.
func (p *Postgres) Create(ctx context.Context, collection, id string, fields map[string]any) (Document, error) {
	if id == "" {
		id = uuid.NewString()
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return Document{}, err
	}
	doc := Document{ID: id, Fields: fields}
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO documents (collection, id, fields)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, collection, id, raw)
	if err := row.Scan(&doc.CreatedAt); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Update replaces a document's fields.
func (p *Postgres) Update(ctx context.Context, collection, id string, fields map[string]any) (Document, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return Document{}, err
	}
	doc := Document{ID: id, Fields: fields}
	row := p.db.QueryRowContext(ctx, `
		UPDATE documents SET fields = $3
		WHERE collection = $1 AND id = $2
		RETURNING created_at
	`, collection, id, raw)
	if err := row.Scan(&doc.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// Delete removes a document.
func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	res, err := p.db.ExecContext(ctx, `
		DELETE FROM documents WHERE collection = $1 AND id = $2
	`, collection, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
