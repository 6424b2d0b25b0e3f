package chatbot

import (
	"context"
	"errors"
)

const (
	ModelAuto       = "auto"
	ModelGemini     = "gemini"
	ModelLlama      = "llama"
	ModelOpenRouter = "openrouter"

	openRouterPrefix       = "openrouter:"
	DefaultOpenRouterModel = "meta-llama/llama-3.3-70b-instruct:free"
)

var (
	ErrInvalidModel  = errors.New("invalid model")
	ErrEmptyMessage  = errors.New("message is required")
	ErrNotConfigured = errors.New("chat provider not configured")
)

// Turn is one prior message of the conversation. Role is "user" or
// "assistant".
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	Model   string
	System  string
	History []Turn
	Prompt  string
}

// Provider produces one assistant reply.
type Provider interface {
	Reply(ctx context.Context, req Request) (string, error)
}

type Response struct {
	Response string `json:"response"`
	Model    string `json:"model"`
	Sources  int    `json:"sources"`
}

type Health struct {
	Status          string `json:"status"`
	GeminiAvailable bool   `json:"geminiAvailable"`
	LlamaAvailable  bool   `json:"llamaAvailable"`
}

type ModelInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
}

type Capabilities struct {
	Models   []ModelInfo `json:"models"`
	Features []string    `json:"features"`
}
