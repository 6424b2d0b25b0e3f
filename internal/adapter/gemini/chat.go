package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"devwell/backend/features/chatbot"
)

const DefaultChatModel = "gemini-2.0-flash"

type Chat struct {
	client *Client
	model  string
}

func NewChat(client *Client, model string) *Chat {
	if model == "" {
		model = DefaultChatModel
	}
	return &Chat{client: client, model: model}
}

func (c *Chat) Model() string { return c.model }

func (c *Chat) Reply(ctx context.Context, req chatbot.Request) (string, error) {
	client, err := c.client.get(ctx)
	if err != nil {
		return "", err
	}

	model := client.GenerativeModel(c.model)
	if req.System != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}

	session := model.StartChat()
	for _, turn := range req.History {
		role := "user"
		if turn.Role == "assistant" || turn.Role == "model" {
			role = "model"
		}
		session.History = append(session.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(turn.Content)},
		})
	}

	resp, err := session.SendMessage(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		break
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini: empty response")
	}
	return sb.String(), nil
}
