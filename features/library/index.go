package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"devwell/backend/internal/middleware"
	"devwell/backend/internal/retrieval"
)

// Update carries the fields written by a terminal status transition.
// Empty Title keeps the current title.
type Update struct {
	Title       string
	Content     string
	Chunks      []string
	Embeddings  [][]float32
	ErrorDetail string
}

// Stats is a point-in-time summary of the index.
type Stats struct {
	Total      int `json:"total"`
	Processing int `json:"processing"`
	Ready      int `json:"ready"`
	Error      int `json:"error"`
	Chunks     int `json:"chunks"`
}

// Index is the authoritative in-memory library. Every mutation is persisted
// through the repository while the write lock is held, so concurrent
// transitions can never overwrite each other's snapshot.
type Index struct {
	repo Repository

	mu    sync.RWMutex
	items []Item
	dim   int
}

func NewIndex(repo Repository) *Index {
	return &Index{repo: repo}
}

// Load replaces the working set with the repository contents. On failure the
// index is left empty and the error is returned for logging.
func (x *Index) Load(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.items = nil
	x.dim = 0

	items, err := x.repo.Load(ctx)
	if err != nil {
		return &StorageError{Op: "load", Err: err}
	}
	x.items = items
	x.dim = dimensionOf(items)
	slog.InfoContext(ctx, "library index loaded", "items", len(items), "dimension", x.dim)
	return nil
}

func (x *Index) List(ctx context.Context) []Summary {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]Summary, 0, len(x.items))
	for _, it := range x.items {
		out = append(out, it.Summary())
	}
	return out
}

func (x *Index) Get(ctx context.Context, id string) (Item, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	i := x.find(id)
	if i < 0 {
		return Item{}, ErrNotFound
	}
	return x.items[i], nil
}

func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.items)
}

func (x *Index) Add(ctx context.Context, item Item) error {
	if item.ID == "" || item.Locator == nil {
		return fmt.Errorf("%w: item needs an id and a locator", ErrInvalidInput)
	}
	item.Status = StatusProcessing
	item.Embeddings = nil
	item.ErrorDetail = ""

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.find(item.ID) >= 0 {
		return fmt.Errorf("%w: duplicate item id %s", ErrInvalidInput, item.ID)
	}
	if err := x.repo.Put(ctx, item); err != nil {
		return &StorageError{Op: "add", Err: err}
	}
	x.items = append(x.items, item)
	return nil
}

// UpdateStatus performs the single terminal transition of an item. Unknown
// ids are ignored so that work finishing after a delete is dropped quietly.
func (x *Index) UpdateStatus(ctx context.Context, id string, status Status, u Update) error {
	if !status.Terminal() {
		return fmt.Errorf("%w: cannot transition to %q", ErrInvalidInput, status)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	i := x.find(id)
	if i < 0 {
		slog.InfoContext(middleware.WithItemID(ctx, id), "status update for unknown item ignored", "status", status)
		return nil
	}
	current := x.items[i]
	if current.Status.Terminal() {
		return fmt.Errorf("%w: item %s is %s", ErrAlreadyFinal, id, current.Status)
	}

	next := current
	if u.Title != "" {
		next.Title = u.Title
	}
	next.Content = u.Content
	next.Chunks = u.Chunks
	next.Status = status

	dim := x.dim
	switch status {
	case StatusReady:
		if len(u.Chunks) != len(u.Embeddings) {
			return fmt.Errorf("%w: %d chunks but %d embeddings", ErrInvalidInput, len(u.Chunks), len(u.Embeddings))
		}
		for _, v := range u.Embeddings {
			if dim == 0 {
				dim = len(v)
			}
			if len(v) == 0 || len(v) != dim {
				return fmt.Errorf("%w: got %d, index uses %d", ErrDimensionMismatch, len(v), dim)
			}
		}
		next.Embeddings = u.Embeddings
		if next.Embeddings == nil {
			next.Embeddings = [][]float32{}
		}
		next.ErrorDetail = ""
	case StatusError:
		next.Embeddings = nil
		next.ErrorDetail = u.ErrorDetail
		if next.ErrorDetail == "" {
			next.ErrorDetail = "processing failed"
		}
	}

	if err := x.repo.Put(ctx, next); err != nil {
		return &StorageError{Op: "update", Err: err}
	}
	x.items[i] = next
	x.dim = dim
	return nil
}

// Delete removes an item and, for uploads, its backing file. Unknown ids are
// a no-op.
func (x *Index) Delete(ctx context.Context, id string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	i := x.find(id)
	if i < 0 {
		return nil
	}
	item := x.items[i]
	if err := x.repo.Delete(ctx, id); err != nil {
		return &StorageError{Op: "delete", Err: err}
	}
	x.items = append(x.items[:i:i], x.items[i+1:]...)
	x.dim = dimensionOf(x.items)

	if loc, ok := item.Locator.(FileLocator); ok {
		if err := os.Remove(loc.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.WarnContext(middleware.WithItemID(ctx, id), "failed to remove uploaded file", "path", loc.Path, "error", err)
		}
	}
	return nil
}

func (x *Index) Stats(ctx context.Context) Stats {
	x.mu.RLock()
	defer x.mu.RUnlock()

	s := Stats{Total: len(x.items)}
	for _, it := range x.items {
		switch it.Status {
		case StatusProcessing:
			s.Processing++
		case StatusReady:
			s.Ready++
		case StatusError:
			s.Error++
		}
		s.Chunks += len(it.Chunks)
	}
	return s
}

// Documents returns the searchable items in registration order.
func (x *Index) Documents() []retrieval.Document {
	x.mu.RLock()
	defer x.mu.RUnlock()

	docs := make([]retrieval.Document, 0, len(x.items))
	for _, it := range x.items {
		if !it.Searchable() {
			continue
		}
		docs = append(docs, retrieval.Document{
			ID:         it.ID,
			Title:      it.Title,
			Chunks:     it.Chunks,
			Embeddings: it.Embeddings,
		})
	}
	return docs
}

func (x *Index) find(id string) int {
	for i := range x.items {
		if x.items[i].ID == id {
			return i
		}
	}
	return -1
}

func dimensionOf(items []Item) int {
	for _, it := range items {
		if it.Status != StatusReady {
			continue
		}
		for _, v := range it.Embeddings {
			if len(v) > 0 {
				return len(v)
			}
		}
	}
	return 0
}
