package retrieval

import (
	"context"
	"log/slog"
	"time"

	"devwell/backend/internal/vector"
)

const (
	DefaultLimit = 3
	// Threshold is exclusive: a chunk must score strictly above it.
	Threshold = 0.5
)

// Document is one searchable item: its chunks and their embeddings, index
// aligned.
type Document struct {
	ID         string
	Title      string
	Chunks     []string
	Embeddings [][]float32
}

type Result struct {
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
	Source string  `json:"source"`
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Corpus yields documents in registration order.
type Corpus interface {
	Len() int
	Documents() []Document
}

type Service struct {
	embedder Embedder
	corpus   Corpus
	logger   *QueryLogger
}

func NewService(e Embedder, c Corpus, l *QueryLogger) *Service {
	return &Service{embedder: e, corpus: c, logger: l}
}

// Search never fails: any problem is logged and yields an empty result.
func (s *Service) Search(ctx context.Context, query string, limit int) []Result {
	if limit <= 0 {
		limit = DefaultLimit
	}
	start := time.Now()
	results := []Result{}
	var searchErr error

	defer func() {
		if s.logger == nil {
			return
		}
		entry := QueryLogEntry{
			Query:      query,
			Limit:      limit,
			NumResults: len(results),
			Duration:   time.Since(start),
		}
		if len(results) > 0 {
			entry.TopScore = results[0].Score
		}
		if searchErr != nil {
			entry.Error = searchErr.Error()
		}
		s.logger.Log(ctx, entry)
	}()

	if s.corpus.Len() == 0 {
		return results
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		searchErr = err
		slog.ErrorContext(ctx, "query embedding failed", "error", err)
		return results
	}
	if len(vec) == 0 {
		slog.ErrorContext(ctx, "query embedding is empty")
		return results
	}

	var matches []vector.Match[Result]
	for _, doc := range s.corpus.Documents() {
		n := min(len(doc.Chunks), len(doc.Embeddings))
		for i := 0; i < n; i++ {
			matches = append(matches, vector.Match[Result]{
				Ref:   Result{Text: doc.Chunks[i], Source: doc.Title},
				Score: vector.Cosine(vec, doc.Embeddings[i]),
			})
		}
	}

	for _, m := range vector.TopK(matches, Threshold, limit) {
		r := m.Ref
		r.Score = m.Score
		results = append(results, r)
	}
	return results
}
