package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/nsqio/go-nsq"
	"golang.org/x/time/rate"

	"devwell/backend/features/chatbot"
	"devwell/backend/features/library"
	"devwell/backend/features/mcp"
	"devwell/backend/features/stats"
	"devwell/backend/internal/adapter/gemini"
	"devwell/backend/internal/adapter/openrouter"
	"devwell/backend/internal/adapter/pdf"
	"devwell/backend/internal/adapter/web"
	"devwell/backend/internal/adapter/youtube"
	"devwell/backend/internal/config"
	"devwell/backend/internal/middleware"
	"devwell/backend/internal/retrieval"
	"devwell/backend/internal/worker"
)

const shutdownTimeout = 30 * time.Second

// Embedder serves both chunk embedding during ingestion and query embedding
// during search, so both sides share one vector space.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Option func(*options)

type options struct {
	embedder   Embedder
	extractor  library.ContentExtractor
	gemini     chatbot.Provider
	openRouter chatbot.Provider
}

func WithEmbedder(e Embedder) Option {
	return func(o *options) { o.embedder = e }
}

func WithExtractor(x library.ContentExtractor) Option {
	return func(o *options) { o.extractor = x }
}

// WithChatProviders replaces the Gemini and OpenRouter chat backends.
func WithChatProviders(gem, openRouter chatbot.Provider) Option {
	return func(o *options) {
		o.gemini = gem
		o.openRouter = openRouter
	}
}

type App struct {
	Handler   http.Handler
	Index     *library.Index
	Library   *library.Service
	Processor *library.Processor
	// Pool is nil when ingestion goes through NSQ.
	Pool *worker.Pool

	cfg        *config.Config
	deps       *Dependencies
	dispatcher library.Dispatcher
	gemini     *gemini.Client
}

func New(ctx context.Context, cfg *config.Config, deps *Dependencies, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	index := library.NewIndex(deps.Repo)
	if err := index.Load(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to load library index, starting empty", "error", err)
	}

	geminiClient := gemini.NewClient(cfg.GeminiAPIKey)
	if o.embedder == nil {
		limiter := rate.NewLimiter(rate.Limit(cfg.EmbedRatePerSecond), cfg.EmbedBurst)
		o.embedder = gemini.NewEmbedder(geminiClient, cfg.EmbeddingModel, limiter)
	}
	if o.extractor == nil {
		o.extractor = library.NewExtractor(pdf.NewReader(), youtube.NewTranscriptClient("en"), web.NewFetcher())
	}

	processor := library.NewProcessor(index, o.extractor, o.embedder, cfg.ChunkSize, cfg.ProcessingTimeout)

	a := &App{
		Index:     index,
		Processor: processor,
		cfg:       cfg,
		deps:      deps,
		gemini:    geminiClient,
	}

	switch cfg.WorkerMode {
	case config.WorkerModeNSQ:
		if deps.NSQProducer == nil {
			return nil, errors.New("nsq worker mode requires a producer")
		}
		a.dispatcher = worker.NewNSQDispatcher(deps.NSQProducer)
	default:
		a.Pool = worker.NewPool(processor, cfg.IngestionConcurrency, cfg.IngestionQueueSize)
		a.dispatcher = a.Pool
	}

	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.WarnContext(ctx, "failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}
	searcher := retrieval.NewService(o.embedder, index, queryLogger)

	// Feature: Library
	a.Library = library.NewService(index, a.dispatcher, searcher)
	libraryHandler := library.NewHandler(a.Library, cfg.UploadDir, int(cfg.MaxUploadSizeMB))

	// Feature: Chatbot
	openRouterClient := openrouter.NewClient(cfg.OpenRouterAPIKey, cfg.OpenRouterURL)
	chatOpts := chatbot.Options{
		Gemini:            gemini.NewChat(geminiClient, cfg.ChatModel),
		GeminiModel:       cfg.ChatModel,
		GeminiEnabled:     geminiClient.Configured(),
		OpenRouter:        openRouterClient,
		OpenRouterEnabled: openRouterClient.Configured(),
	}
	if o.gemini != nil {
		chatOpts.Gemini, chatOpts.GeminiEnabled = o.gemini, true
	}
	if o.openRouter != nil {
		chatOpts.OpenRouter, chatOpts.OpenRouterEnabled = o.openRouter, true
	}
	chatHandler := chatbot.NewHandler(chatbot.NewService(a.Library, chatOpts))

	// Feature: Stats
	var queue stats.Queue
	if a.Pool != nil {
		queue = a.Pool
	}
	statsHandler := stats.NewHandler(a.Library, queue)

	// Feature: MCP
	mcpServer := mcp.NewServer(a.Library)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /library/upload", libraryHandler.Upload)
	mux.HandleFunc("POST /library/link", libraryHandler.AddLink)
	mux.HandleFunc("POST /library/search", libraryHandler.Search)
	mux.HandleFunc("GET /library", libraryHandler.List)
	mux.HandleFunc("GET /library/{id}", libraryHandler.Get)
	mux.HandleFunc("DELETE /library/{id}", libraryHandler.Delete)

	mux.HandleFunc("POST /chatbot/message", chatHandler.Message)
	mux.HandleFunc("GET /chatbot/health", chatHandler.Health)
	mux.HandleFunc("GET /chatbot/capabilities", chatHandler.Capabilities)

	mux.HandleFunc("GET /stats", statsHandler.GetStats)

	mux.Handle("/mcp", mcpServer.Handler())

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	a.Handler = middleware.CorrelationID(middleware.CORS(mux))
	return a, nil
}

// Resume re-queues items left in processing by a previous run. Items that
// cannot be queued are marked as failed.
func (a *App) Resume(ctx context.Context) int {
	resumed := 0
	for _, item := range a.Library.List(ctx) {
		if item.Status != library.StatusProcessing {
			continue
		}
		if err := a.dispatcher.Dispatch(ctx, item.ID); err != nil {
			itemCtx := middleware.WithItemID(ctx, item.ID)
			slog.WarnContext(itemCtx, "failed to resume item", "error", err)
			detail := fmt.Sprintf("could not schedule processing: %v", err)
			if uerr := a.Index.UpdateStatus(ctx, item.ID, library.StatusError, library.Update{ErrorDetail: detail}); uerr != nil {
				slog.ErrorContext(itemCtx, "failed to mark unresumable item", "error", uerr)
			}
			continue
		}
		resumed++
	}
	if resumed > 0 {
		slog.InfoContext(ctx, "resumed interrupted items", "count", resumed)
	}
	return resumed
}

// StartConsumer subscribes this process to the ingest topic. It is only
// used in nsq worker mode.
func (a *App) StartConsumer() (*nsq.Consumer, error) {
	consumer, err := worker.NewConsumer(a.cfg, a.Processor)
	if err != nil {
		return nil, fmt.Errorf("nsq consumer error: %w", err)
	}
	if a.cfg.NSQLookupd != "" {
		err = consumer.ConnectToNSQLookupd(a.cfg.NSQLookupd)
	} else {
		err = consumer.ConnectToNSQD(a.cfg.NSQDHost)
	}
	if err != nil {
		consumer.Stop()
		return nil, fmt.Errorf("nsq connect error: %w", err)
	}
	slog.Info("NSQ ingest consumer connected", "topic", config.TopicLibraryIngest)
	return consumer, nil
}

func (a *App) Run(ctx context.Context) error {
	if a.cfg.WorkerMode == config.WorkerModeNSQ {
		consumer, err := a.StartConsumer()
		if err != nil {
			return err
		}
		defer func() {
			consumer.Stop()
			<-consumer.StopChan
		}()
	}

	a.Resume(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.ServerPort),
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", a.cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	if err := a.Close(shutdownCtx); err != nil {
		slog.Error("worker shutdown failed", "error", err)
	}
	return runErr
}

// Close drains the local pool and releases the Gemini client. The
// dependencies are owned by the caller.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Pool != nil {
		if err := a.Pool.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.gemini.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
