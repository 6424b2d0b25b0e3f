package chatbot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"devwell/backend/internal/retrieval"
)

const systemPromptBase = `You are DevWell, an expert AI developer companion.
Your goal is to help the developer with health, productivity, and coding.

If the user asks a question that can be answered using the "Relevant Context" provided below, use it to answer accurately.
If the context is not relevant, ignore it.`

type Searcher interface {
	Search(ctx context.Context, query string, limit int) []retrieval.Result
}

type Service struct {
	searcher    Searcher
	gemini      Provider
	geminiModel string
	openRouter  Provider
	// openRouterEnabled decides where "auto" goes.
	openRouterEnabled bool
	geminiEnabled     bool
}

type Options struct {
	Gemini            Provider
	GeminiModel       string
	GeminiEnabled     bool
	OpenRouter        Provider
	OpenRouterEnabled bool
}

func NewService(searcher Searcher, opts Options) *Service {
	return &Service{
		searcher:          searcher,
		gemini:            opts.Gemini,
		geminiModel:       opts.GeminiModel,
		geminiEnabled:     opts.GeminiEnabled,
		openRouter:        opts.OpenRouter,
		openRouterEnabled: opts.OpenRouterEnabled,
	}
}

// ValidateModel accepts the fixed model names and "openrouter:<model>".
func ValidateModel(model string) error {
	switch model {
	case ModelAuto, ModelGemini, ModelLlama, ModelOpenRouter:
		return nil
	}
	if strings.HasPrefix(model, openRouterPrefix) {
		return nil
	}
	return fmt.Errorf("%w: must be one of %s, %s, %s, %s or %s<model-name>",
		ErrInvalidModel, ModelGemini, ModelLlama, ModelOpenRouter, ModelAuto, openRouterPrefix)
}

// SystemPrompt embeds library search results as context blocks.
func SystemPrompt(results []retrieval.Result) string {
	if len(results) == 0 {
		return systemPromptBase
	}
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, fmt.Sprintf("[Source: %s]\n%s", r.Source, r.Text))
	}
	return systemPromptBase + "\n\nRelevant Context from Personal Library:\n" + strings.Join(blocks, "\n\n")
}

func (s *Service) Chat(ctx context.Context, prompt, model string, history []Turn) (Response, error) {
	if strings.TrimSpace(prompt) == "" {
		return Response{}, ErrEmptyMessage
	}
	if model == "" {
		model = ModelAuto
	}
	if err := ValidateModel(model); err != nil {
		return Response{}, err
	}

	provider, modelName := s.route(model)
	if provider == nil {
		return Response{}, fmt.Errorf("%w: %s", ErrNotConfigured, model)
	}

	var results []retrieval.Result
	if s.searcher != nil {
		results = s.searcher.Search(ctx, prompt, retrieval.DefaultLimit)
	}
	req := Request{Model: modelName, System: SystemPrompt(results), History: history, Prompt: prompt}

	slog.InfoContext(ctx, "chat request routed", "requested", model, "model", req.Model, "context_chunks", len(results))
	reply, err := provider.Reply(ctx, req)
	if err != nil {
		return Response{}, err
	}
	return Response{Response: reply, Model: req.Model, Sources: len(results)}, nil
}

// route picks the backend for a model name. A backend without credentials
// yields a nil provider.
func (s *Service) route(model string) (Provider, string) {
	if model == ModelGemini || (model == ModelAuto && !s.openRouterEnabled) {
		if !s.geminiEnabled {
			return nil, s.geminiModel
		}
		return s.gemini, s.geminiModel
	}

	name := DefaultOpenRouterModel
	if n, ok := strings.CutPrefix(model, openRouterPrefix); ok && n != "" {
		name = n
	}
	if !s.openRouterEnabled {
		return nil, name
	}
	return s.openRouter, name
}

func (s *Service) Health() Health {
	return Health{
		Status:          "healthy",
		GeminiAvailable: s.geminiEnabled,
		LlamaAvailable:  s.openRouterEnabled,
	}
}

func (s *Service) Capabilities() Capabilities {
	return Capabilities{
		Models: []ModelInfo{
			{
				ID:          ModelAuto,
				Name:        "Auto (Recommended)",
				Description: "OpenRouter when configured, Gemini otherwise",
				Features:    []string{"Best availability", "Fast responses"},
			},
			{
				ID:          ModelGemini,
				Name:        "Gemini",
				Description: "Google Gemini " + s.geminiModel,
				Features:    []string{"Long context", "Multi-turn chat"},
			},
			{
				ID:          ModelOpenRouter,
				Name:        "OpenRouter",
				Description: "Access to many models through one API, default " + DefaultOpenRouterModel,
				Features:    []string{"Multiple models", "High availability"},
			},
		},
		Features: []string{
			"Health & productivity tips",
			"Fatigue management advice",
			"Ergonomics guidance",
			"Work-life balance suggestions",
			"Answers grounded in your personal library",
		},
	}
}
