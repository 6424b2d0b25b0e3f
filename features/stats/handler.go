package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"devwell/backend/features/library"
	"devwell/backend/internal/middleware"
)

type Library interface {
	Stats(ctx context.Context) library.Stats
}

// Queue is implemented by the in-process worker pool. It is nil when
// ingestion runs in separate NSQ workers.
type Queue interface {
	Pending() int
}

type Handler struct {
	library Library
	queue   Queue
}

func NewHandler(l Library, q Queue) *Handler {
	return &Handler{library: l, queue: q}
}

type StatsResponse struct {
	Items      int  `json:"items"`
	Processing int  `json:"processing"`
	Ready      int  `json:"ready"`
	Failed     int  `json:"failed"`
	Chunks     int  `json:"chunks"`
	QueueDepth *int `json:"queue_depth,omitempty"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	slog.InfoContext(ctx, "getting stats", "correlationId", correlationID)

	s := h.library.Stats(ctx)
	resp := StatsResponse{
		Items:      s.Total,
		Processing: s.Processing,
		Ready:      s.Ready,
		Failed:     s.Error,
		Chunks:     s.Chunks,
	}
	if h.queue != nil {
		depth := h.queue.Pending()
		resp.QueueDepth = &depth
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
