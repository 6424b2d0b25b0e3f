package library

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"devwell/backend/internal/middleware"
	"devwell/backend/internal/retrieval"
)

// Dispatcher hands an item id to background processing without blocking.
type Dispatcher interface {
	Dispatch(ctx context.Context, id string) error
}

type Searcher interface {
	Search(ctx context.Context, query string, limit int) []retrieval.Result
}

type Service struct {
	index      *Index
	dispatcher Dispatcher
	searcher   Searcher
	now        func() time.Time
	newID      func() string
}

func NewService(index *Index, dispatcher Dispatcher, searcher Searcher) *Service {
	return &Service{
		index:      index,
		dispatcher: dispatcher,
		searcher:   searcher,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// RegisterFile records an uploaded file and schedules its processing. The
// returned summary is always in the processing state unless dispatch failed.
func (s *Service) RegisterFile(ctx context.Context, path, filename string) (Summary, error) {
	path = strings.TrimSpace(path)
	filename = strings.TrimSpace(filename)
	if path == "" || filename == "" {
		return Summary{}, fmt.Errorf("%w: file path and filename are required", ErrInvalidInput)
	}
	return s.register(ctx, filename, FileLocator{Path: path, Filename: filename})
}

func (s *Service) RegisterLink(ctx context.Context, link string) (Summary, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return Summary{}, fmt.Errorf("%w: url is required", ErrInvalidInput)
	}
	u, err := url.Parse(link)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return Summary{}, fmt.Errorf("%w: %q is not an http(s) url", ErrInvalidInput, link)
	}
	return s.register(ctx, link, LinkLocator{URL: link})
}

func (s *Service) register(ctx context.Context, title string, loc Locator) (Summary, error) {
	item := Item{
		ID:        s.newID(),
		Title:     title,
		Locator:   loc,
		CreatedAt: s.now().UTC(),
		Status:    StatusProcessing,
	}
	if err := s.index.Add(ctx, item); err != nil {
		return Summary{}, err
	}
	logCtx := middleware.WithItemID(ctx, item.ID)
	slog.InfoContext(logCtx, "library item registered", "type", loc.Kind())

	if err := s.dispatcher.Dispatch(ctx, item.ID); err != nil {
		slog.ErrorContext(logCtx, "failed to dispatch library item", "error", err)
		detail := fmt.Sprintf("could not schedule processing: %v", err)
		if uerr := s.index.UpdateStatus(ctx, item.ID, StatusError, Update{ErrorDetail: detail}); uerr != nil {
			return Summary{}, fmt.Errorf("dispatch failed: %w", uerr)
		}
		item.Status = StatusError
		item.ErrorDetail = detail
	}
	return item.Summary(), nil
}

func (s *Service) List(ctx context.Context) []Summary {
	return s.index.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (Summary, error) {
	item, err := s.index.Get(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	return item.Summary(), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.index.Delete(ctx, id)
}

func (s *Service) Search(ctx context.Context, query string, limit int) []retrieval.Result {
	return s.searcher.Search(ctx, query, limit)
}

func (s *Service) Stats(ctx context.Context) Stats {
	return s.index.Stats(ctx)
}
