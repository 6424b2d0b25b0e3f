package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"devwell/backend/internal/middleware"
	"devwell/backend/internal/text"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type ContentExtractor interface {
	Extract(ctx context.Context, item Item) (Extraction, error)
}

// Processor runs the ingestion pipeline for one item: extract, chunk, embed
// every chunk, then write exactly one terminal status.
type Processor struct {
	index     *Index
	extractor ContentExtractor
	embedder  Embedder
	chunkSize int
	timeout   time.Duration
}

func NewProcessor(index *Index, extractor ContentExtractor, embedder Embedder, chunkSize int, timeout time.Duration) *Processor {
	if chunkSize <= 0 {
		chunkSize = text.DefaultChunkSize
	}
	return &Processor{index: index, extractor: extractor, embedder: embedder, chunkSize: chunkSize, timeout: timeout}
}

// Process returns the pipeline failure, if any, after recording it on the item.
func (p *Processor) Process(ctx context.Context, id string) error {
	ctx = middleware.WithItemID(ctx, id)

	item, err := p.index.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		slog.InfoContext(ctx, "item deleted before processing")
		return nil
	}
	if item.Status != StatusProcessing {
		slog.InfoContext(ctx, "item already processed", "status", item.Status)
		return nil
	}

	parent := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	update, err := p.run(ctx, item)
	if err == nil {
		err = p.index.UpdateStatus(ctx, id, StatusReady, update)
	}
	if errors.Is(err, ErrAlreadyFinal) {
		slog.InfoContext(ctx, "item finished elsewhere", "error", err)
		return nil
	}
	if err != nil && parent.Err() != nil {
		// Stopped from outside, not failed: the item stays processing and is
		// picked up again on the next start.
		slog.WarnContext(ctx, "item processing interrupted", "error", err, "duration", time.Since(start))
		return fmt.Errorf("processing interrupted: %w", parent.Err())
	}
	if err != nil {
		slog.ErrorContext(ctx, "item processing failed", "error", err, "duration", time.Since(start))
		// The terminal write must not depend on the pipeline deadline.
		failCtx := context.WithoutCancel(ctx)
		if uerr := p.index.UpdateStatus(failCtx, id, StatusError, Update{
			Title:       update.Title,
			Content:     update.Content,
			Chunks:      update.Chunks,
			ErrorDetail: err.Error(),
		}); uerr != nil {
			slog.ErrorContext(ctx, "failed to record processing error", "error", uerr)
			return errors.Join(err, uerr)
		}
		return err
	}

	slog.InfoContext(ctx, "item ready", "chunks", len(update.Chunks), "duration", time.Since(start))
	return nil
}

func (p *Processor) run(ctx context.Context, item Item) (Update, error) {
	ex, err := p.extractor.Extract(ctx, item)
	if err != nil {
		return Update{}, err
	}

	update := Update{
		Title:   ex.Title,
		Content: ex.Text,
		Chunks:  text.Split(ex.Text, p.chunkSize),
	}

	embeddings := make([][]float32, 0, len(update.Chunks))
	for i, chunk := range update.Chunks {
		if err := ctx.Err(); err != nil {
			return update, &EmbeddingError{Chunk: i, Err: err}
		}
		vec, err := p.embedder.Embed(ctx, chunk)
		if err != nil {
			return update, &EmbeddingError{Chunk: i, Err: err}
		}
		if len(vec) == 0 {
			return update, &EmbeddingError{Chunk: i, Err: fmt.Errorf("empty embedding received")}
		}
		embeddings = append(embeddings, vec)
	}
	update.Embeddings = embeddings
	return update, nil
}
