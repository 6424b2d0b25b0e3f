package chatbot

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"devwell/backend/internal/middleware"
)

const quotaMessage = "API quota exceeded. Please wait a few minutes or try a different model."

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message             string `json:"message"`
		Model               string `json:"model"`
		ConversationHistory []Turn `json:"conversationHistory"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Invalid JSON body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Chat(r.Context(), req.Message, req.Model, req.ConversationHistory)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrInvalidModel):
			h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrNotConfigured):
			h.writeError(r.Context(), w, "NOT_CONFIGURED", err.Error(), http.StatusServiceUnavailable)
		case strings.Contains(strings.ToLower(err.Error()), "quota"):
			slog.WarnContext(r.Context(), "chat provider quota exceeded", "error", err)
			h.writeError(r.Context(), w, "QUOTA_EXCEEDED", quotaMessage, http.StatusTooManyRequests)
		default:
			slog.ErrorContext(r.Context(), "chat failed", "error", err)
			h.writeError(r.Context(), w, "UPSTREAM_ERROR", "Chatbot error", http.StatusBadGateway)
		}
		return
	}

	h.writeJSON(r.Context(), w, http.StatusOK, map[string]interface{}{"data": resp})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(r.Context(), w, http.StatusOK, map[string]interface{}{"data": h.service.Health()})
}

func (h *Handler) Capabilities(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(r.Context(), w, http.StatusOK, map[string]interface{}{"data": h.service.Capabilities()})
}

func (h *Handler) writeJSON(ctx context.Context, w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	h.writeJSON(ctx, w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	})
}
