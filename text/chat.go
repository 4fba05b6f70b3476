package text

import (
	"context"
	"sync"

	"google.golang.org/genai"

	"github.com/divaparadises/studio/internal/genaiapi"
)

// Chat is a multi-turn conversation. The history grows only when a turn
// succeeds.
type Chat struct {
	client *Client
	opts   *GenerateOptions

	mu      sync.Mutex
	history []*genai.Content
}

// StartChat opens a conversation seeded with history.
func (c *Client) StartChat(history []*genai.Content, opts *GenerateOptions) *Chat {
	return &Chat{
		client:  c,
		opts:    opts,
		history: append([]*genai.Content(nil), history...),
	}
}

// Send adds message to the conversation and returns the model's answer.
func (ch *Chat) Send(ctx context.Context, message string) (string, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	userTurn := genai.NewContentFromText(message, genai.RoleUser)
	contents := append(append([]*genai.Content(nil), ch.history...), userTurn)
	resp, err := ch.client.GenerateContent(ctx, contents, ch.opts)
	if err != nil {
		return "", err
	}
	modelTurn := resp.Candidates[0].Content
	if modelTurn == nil {
		modelTurn = genai.NewContentFromParts(nil, genai.RoleModel)
	}
	ch.history = append(ch.history, userTurn, modelTurn)

	_, answer := genaiapi.ResponseText(resp)
	return answer, nil
}

// History returns a copy of the turns exchanged so far.
func (ch *Chat) History() []*genai.Content {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return append([]*genai.Content(nil), ch.history...)
}
