package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileRepo keeps the whole library as a JSON array on disk. Every mutation
// rewrites the snapshot through a temp file and a rename, so readers never
// see a partially written file.
type FileRepo struct {
	path string

	mu    sync.Mutex
	items []Item
}

func NewFileRepo(path string) *FileRepo {
	return &FileRepo{path: path}
}

func (r *FileRepo) Load(ctx context.Context) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = nil
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse %s: %w", r.path, err)
	}
	r.items = items
	return append([]Item(nil), items...), nil
}

func (r *FileRepo) Put(ctx context.Context, item Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]Item, 0, len(r.items)+1)
	replaced := false
	for _, it := range r.items {
		if it.ID == item.ID {
			next = append(next, item)
			replaced = true
			continue
		}
		next = append(next, it)
	}
	if !replaced {
		next = append(next, item)
	}

	if err := r.write(next); err != nil {
		return err
	}
	r.items = next
	return nil
}

func (r *FileRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]Item, 0, len(r.items))
	for _, it := range r.items {
		if it.ID != id {
			next = append(next, it)
		}
	}
	if len(next) == len(r.items) {
		return nil
	}

	if err := r.write(next); err != nil {
		return err
	}
	r.items = next
	return nil
}

func (r *FileRepo) Close() error { return nil }

func (r *FileRepo) write(items []Item) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	if items == nil {
		items = []Item{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, r.path)
}
