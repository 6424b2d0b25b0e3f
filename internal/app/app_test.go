package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devwell/backend/features/chatbot"
	"devwell/backend/features/library"
	"devwell/backend/internal/app"
	"devwell/backend/internal/config"
)

type stubEmbedder struct {
	calls atomic.Int32
}

func (e *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	e.calls.Add(1)
	return []float32{1, 0, 0}, nil
}

type stubExtractor struct {
	err error
}

func (x stubExtractor) Extract(_ context.Context, _ library.Item) (library.Extraction, error) {
	if x.err != nil {
		return library.Extraction{}, x.err
	}
	return library.Extraction{Title: "Sitting well", Text: "Keep your back straight."}, nil
}

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		DataDir:              dir,
		UploadDir:            filepath.Join(dir, "uploads"),
		QueryLogPath:         filepath.Join(dir, "logs", "query.log"),
		LibraryStore:         config.StoreFile,
		LibraryIndexFile:     "library_index.json",
		MaxUploadSizeMB:      5,
		ChunkSize:            10,
		IngestionConcurrency: 2,
		IngestionQueueSize:   8,
		ProcessingTimeout:    time.Minute,
		WorkerMode:           config.WorkerModeLocal,
		EmbedRatePerSecond:   5,
		EmbedBurst:           5,
	}
}

func newTestApp(t *testing.T, cfg *config.Config, opts ...app.Option) *app.App {
	t.Helper()
	deps := &app.Dependencies{Repo: library.NewFileRepo(cfg.IndexFilePath())}
	opts = append([]app.Option{app.WithEmbedder(&stubEmbedder{}), app.WithExtractor(stubExtractor{})}, opts...)

	a, err := app.New(context.Background(), cfg, deps, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = a.Close(context.Background())
	})
	return a
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestApp_Health(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	w := do(t, a.Handler, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
}

func TestApp_CORSPreflight(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	w := do(t, a.Handler, http.MethodOptions, "/library/link", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestApp_LinkIngestionEndToEnd(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	w := do(t, a.Handler, http.MethodPost, "/library/link", map[string]string{"url": "https://example.com/posture"})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data library.Summary `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.Equal(t, library.StatusProcessing, created.Data.Status)

	require.Eventually(t, func() bool {
		item, err := a.Index.Get(context.Background(), created.Data.ID)
		return err == nil && item.Status == library.StatusReady
	}, 5*time.Second, 20*time.Millisecond)

	w = do(t, a.Handler, http.MethodPost, "/library/search", map[string]interface{}{"query": "posture", "limit": 2})
	require.Equal(t, http.StatusOK, w.Code)
	var found struct {
		Data []struct {
			Text   string  `json:"text"`
			Score  float64 `json:"score"`
			Source string  `json:"source"`
		} `json:"data"`
		Meta struct {
			Count int `json:"count"`
		} `json:"meta"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&found))
	assert.Equal(t, 2, found.Meta.Count)
	assert.Equal(t, "Sitting well", found.Data[0].Source)

	w = do(t, a.Handler, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ready":1`)

	w = do(t, a.Handler, http.MethodDelete, "/library/"+created.Data.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, a.Handler, http.MethodGet, "/library/"+created.Data.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApp_ExtractionFailureMarksError(t *testing.T) {
	a := newTestApp(t, testConfig(t), app.WithExtractor(stubExtractor{err: errors.New("no captions")}))

	w := do(t, a.Handler, http.MethodPost, "/library/link", map[string]string{"url": "https://youtu.be/abc"})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data library.Summary `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))

	require.Eventually(t, func() bool {
		item, err := a.Index.Get(context.Background(), created.Data.ID)
		return err == nil && item.Status == library.StatusError
	}, 5*time.Second, 20*time.Millisecond)

	item, err := a.Index.Get(context.Background(), created.Data.ID)
	require.NoError(t, err)
	assert.Contains(t, item.ErrorDetail, "no captions")
	assert.Nil(t, item.Embeddings)
}

func TestApp_ResumeRequeuesProcessingItems(t *testing.T) {
	cfg := testConfig(t)
	seed := library.NewFileRepo(cfg.IndexFilePath())
	require.NoError(t, seed.Put(context.Background(), library.Item{
		ID:        "interrupted",
		Title:     "https://example.com/a",
		Locator:   library.LinkLocator{URL: "https://example.com/a"},
		CreatedAt: time.Now(),
		Status:    library.StatusProcessing,
	}))

	a := newTestApp(t, cfg)
	assert.Equal(t, 1, a.Resume(context.Background()))

	require.Eventually(t, func() bool {
		item, err := a.Index.Get(context.Background(), "interrupted")
		return err == nil && item.Status == library.StatusReady
	}, 5*time.Second, 20*time.Millisecond)
}

func TestApp_NSQModeRequiresProducer(t *testing.T) {
	cfg := testConfig(t)
	cfg.WorkerMode = config.WorkerModeNSQ

	_, err := app.New(context.Background(), cfg, &app.Dependencies{Repo: library.NewFileRepo(cfg.IndexFilePath())})
	assert.Error(t, err)
}

type stubProvider struct{ reply string }

func (p stubProvider) Reply(_ context.Context, _ chatbot.Request) (string, error) {
	return p.reply, nil
}

func TestApp_ChatbotUsesInjectedProviders(t *testing.T) {
	a := newTestApp(t, testConfig(t), app.WithChatProviders(stubProvider{reply: "Stand up and stretch."}, nil))

	w := do(t, a.Handler, http.MethodGet, "/chatbot/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"geminiAvailable":true`)

	w = do(t, a.Handler, http.MethodPost, "/chatbot/message", map[string]string{"message": "my back hurts", "model": "gemini"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Stand up and stretch.")
}

func TestApp_ChatbotWithoutKeysIsUnavailable(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	for _, model := range []string{"gemini", "auto", "llama"} {
		w := do(t, a.Handler, http.MethodPost, "/chatbot/message", map[string]string{"message": "hi", "model": model})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, model)
		assert.Contains(t, w.Body.String(), "NOT_CONFIGURED", model)
	}
}

type slowExtractor struct{ delay time.Duration }

func (x slowExtractor) Extract(ctx context.Context, _ library.Item) (library.Extraction, error) {
	select {
	case <-time.After(x.delay):
		return library.Extraction{Title: "Slow page", Text: "Take a break."}, nil
	case <-ctx.Done():
		return library.Extraction{}, ctx.Err()
	}
}

func TestApp_ShutdownLeavesUnfinishedItemsForResume(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.IngestionConcurrency = 1

	first := newTestApp(t, cfg, app.WithExtractor(slowExtractor{delay: 200 * time.Millisecond}))
	var ids []string
	for _, u := range []string{"https://example.com/1", "https://example.com/2", "https://example.com/3", "https://example.com/4"} {
		item, err := first.Library.RegisterLink(ctx, u)
		require.NoError(t, err)
		ids = append(ids, item.ID)
	}

	closeCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, first.Close(closeCtx), context.DeadlineExceeded)

	for _, id := range ids {
		item, err := first.Index.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, library.StatusProcessing, item.Status, id)
	}

	second := newTestApp(t, cfg)
	assert.Equal(t, len(ids), second.Resume(ctx))

	require.Eventually(t, func() bool {
		for _, id := range ids {
			item, err := second.Index.Get(ctx, id)
			if err != nil || item.Status != library.StatusReady {
				return false
			}
		}
		return true
	}, 5*time.Second, 20*time.Millisecond)
}
