package library

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidRecord     = errors.New("invalid library record")
	ErrNotFound          = errors.New("library item not found")
	ErrAlreadyFinal      = errors.New("library item already finished processing")
	ErrUnsupportedLink   = errors.New("unsupported link type")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// ExtractionError means no text could be derived from an item's locator.
type ExtractionError struct {
	Locator string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Locator, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingError means the embedding backend failed. Chunk is -1 for queries.
type EmbeddingError struct {
	Chunk int
	Err   error
}

func (e *EmbeddingError) Error() string {
	if e.Chunk < 0 {
		return fmt.Sprintf("embed query: %v", e.Err)
	}
	return fmt.Sprintf("embed chunk %d: %v", e.Chunk, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// StorageError means the persisted index could not be read or written.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("library storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
