package agent

import (
	"context"

	"google.golang.org/genai"
)

// Chat is a conversation with a model that keeps its history.
// *genai.Chat implements it.
type Chat interface {
	Send(ctx context.Context, parts ...*genai.Part) (*genai.GenerateContentResponse, error)
}

// Starter starts new chats.
type Starter interface {
	StartChat(ctx context.Context, model string, config *genai.GenerateContentConfig) (Chat, error)
}

// Gemini starts chats on a genai client.
type Gemini struct {
	Client *genai.Client
}

// NewGemini creates a genai client configured from the environment
// (GEMINI_API_KEY or GOOGLE_API_KEY).
func NewGemini(ctx context.Context) (*Gemini, error) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Gemini{Client: client}, nil
}

func (g *Gemini) StartChat(ctx context.Context, model string, config *genai.GenerateContentConfig) (Chat, error) {
	chat, err := g.Client.Chats.Create(ctx, model, config, nil)
	if err != nil {
		return nil, err
	}
	return chat, nil
}
