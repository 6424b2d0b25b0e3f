package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS library_items (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    title TEXT NOT NULL,
    path TEXT NOT NULL DEFAULT '',
    url TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    chunks TEXT NOT NULL DEFAULT '[]',
    embeddings TEXT,
    status TEXT NOT NULL,
    error TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);`

// SQLiteRepo stores items in an embedded database file, one row per item.
type SQLiteRepo struct {
	db *sql.DB
}

func OpenSQLiteRepo(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", sqliteSchema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
	}
	return &SQLiteRepo{db: db}, nil
}

func (r *SQLiteRepo) Load(ctx context.Context) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, type, title, path, url, content, chunks, embeddings, status, error, created_at FROM library_items ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var rec record
		var chunks, createdAt string
		var embeddings sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Type, &rec.Title, &rec.Path, &rec.URL, &rec.Content, &chunks, &embeddings, &rec.Status, &rec.Error, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(chunks), &rec.Chunks); err != nil {
			return nil, fmt.Errorf("decode chunks of %s: %w", rec.ID, err)
		}
		if embeddings.Valid {
			if err := json.Unmarshal([]byte(embeddings.String), &rec.Embeddings); err != nil {
				return nil, fmt.Errorf("decode embeddings of %s: %w", rec.ID, err)
			}
		}
		if rec.Timestamp, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("decode timestamp of %s: %w", rec.ID, err)
		}
		item, err := rec.toItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *SQLiteRepo) Put(ctx context.Context, item Item) error {
	rec := item.toRecord()
	chunks, err := json.Marshal(rec.Chunks)
	if err != nil {
		return fmt.Errorf("encode chunks: %w", err)
	}
	var embeddings sql.NullString
	if rec.Embeddings != nil {
		b, err := encodeEmbeddings(rec.Embeddings)
		if err != nil {
			return err
		}
		embeddings = sql.NullString{String: string(b), Valid: true}
	}

	// Upserting keeps the rowid, and with it the registration order.
	query := `INSERT INTO library_items (id, type, title, path, url, content, chunks, embeddings, status, error, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET title = excluded.title, content = excluded.content, chunks = excluded.chunks, embeddings = excluded.embeddings, status = excluded.status, error = excluded.error`
	_, err = r.db.ExecContext(ctx, query, rec.ID, string(rec.Type), rec.Title, rec.Path, rec.URL, rec.Content, string(chunks), embeddings, string(rec.Status), rec.Error, rec.Timestamp.UTC().Format(time.RFC3339Nano))
	return err
}

func (r *SQLiteRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM library_items WHERE id = ?`, id)
	return err
}

func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}
