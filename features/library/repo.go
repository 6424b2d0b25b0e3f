package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

// Repository persists library items keyed by id. Load returns items in
// registration order.
type Repository interface {
	Load(ctx context.Context) ([]Item, error)
	Put(ctx context.Context, item Item) error
	Delete(ctx context.Context, id string) error
	Close() error
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Load(ctx context.Context) ([]Item, error) {
	query := `SELECT id, type, title, path, url, content, chunks, embeddings, status, error, created_at FROM library_items ORDER BY seq`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var rec record
		var embeddings []byte
		if err := rows.Scan(&rec.ID, &rec.Type, &rec.Title, &rec.Path, &rec.URL, &rec.Content, pq.Array(&rec.Chunks), &embeddings, &rec.Status, &rec.Error, &rec.Timestamp); err != nil {
			return nil, err
		}
		if len(embeddings) > 0 {
			if err := json.Unmarshal(embeddings, &rec.Embeddings); err != nil {
				return nil, fmt.Errorf("decode embeddings of %s: %w", rec.ID, err)
			}
		}
		item, err := rec.toItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *PostgresRepo) Put(ctx context.Context, item Item) error {
	rec := item.toRecord()
	encoded, err := encodeEmbeddings(rec.Embeddings)
	if err != nil {
		return err
	}
	var embeddings interface{}
	if encoded != nil {
		embeddings = encoded
	}

	query := `INSERT INTO library_items (id, type, title, path, url, content, chunks, embeddings, status, error, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, content = EXCLUDED.content, chunks = EXCLUDED.chunks, embeddings = EXCLUDED.embeddings, status = EXCLUDED.status, error = EXCLUDED.error, updated_at = NOW()`
	_, err = r.db.ExecContext(ctx, query, rec.ID, rec.Type, rec.Title, rec.Path, rec.URL, rec.Content, pq.Array(rec.Chunks), embeddings, rec.Status, rec.Error, rec.Timestamp)
	return err
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM library_items WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// Close is a no-op; the connection pool belongs to the caller.
func (r *PostgresRepo) Close() error { return nil }

func encodeEmbeddings(e [][]float32) ([]byte, error) {
	if e == nil {
		return nil, nil
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode embeddings: %w", err)
	}
	return b, nil
}
