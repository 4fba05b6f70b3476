// Package tokens counts prompt tokens before sending and reads usage after.
package tokens

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/divaparadises/studio/files"
	"github.com/divaparadises/studio/internal/genaiapi"
)

// Counter asks the model how many tokens a request would use.
type Counter struct {
	models genaiapi.Models
	files  *files.Handler
	model  string
}

// NewCounter returns a counter for model. fh is only needed by File.
func NewCounter(models genaiapi.Models, fh *files.Handler, model string) *Counter {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Counter{models: models, files: fh, model: model}
}

func (c *Counter) count(ctx context.Context, contents []*genai.Content) (int32, error) {
	resp, err := c.models.CountTokens(ctx, c.model, contents, nil)
	if err != nil {
		return 0, fmt.Errorf("counting tokens with %s: %w", c.model, err)
	}
	return resp.TotalTokens, nil
}

// Text counts a plain text prompt.
func (c *Counter) Text(ctx context.Context, text string) (int32, error) {
	return c.count(ctx, genai.Text(text))
}

// Chat counts history plus an optional new user message.
func (c *Counter) Chat(ctx context.Context, history []*genai.Content, newMessage string) (int32, error) {
	contents := append([]*genai.Content(nil), history...)
	if newMessage != "" {
		contents = append(contents, genai.NewContentFromText(newMessage, genai.RoleUser))
	}
	return c.count(ctx, contents)
}

// Multimodal counts a prompt together with an already uploaded file.
func (c *Counter) Multimodal(ctx context.Context, prompt, fileURI, mimeType string) (int32, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt), genai.NewPartFromURI(fileURI, mimeType)}
	return c.count(ctx, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)})
}

// File uploads the file at path and counts it on its own.
func (c *Counter) File(ctx context.Context, path string) (int32, error) {
	if c.files == nil {
		return 0, fmt.Errorf("counting %s: no file handler", path)
	}
	file, err := c.files.UploadAndWait(ctx, path, nil)
	if err != nil {
		return 0, err
	}
	return c.count(ctx, []*genai.Content{genai.NewContentFromParts([]*genai.Part{files.Part(file)}, genai.RoleUser)})
}

// Usage is the token accounting of one generate call.
type Usage struct {
	Prompt     int32 `json:"prompt_tokens"`
	Candidates int32 `json:"candidates_tokens"`
	Thoughts   int32 `json:"thoughts_tokens"`
	Cached     int32 `json:"cached_tokens"`
	Total      int32 `json:"total_tokens"`
}

// UsageOf extracts usage metadata from resp. A response without metadata
// yields the zero Usage.
func UsageOf(resp *genai.GenerateContentResponse) Usage {
	if resp == nil || resp.UsageMetadata == nil {
		return Usage{}
	}
	m := resp.UsageMetadata
	return Usage{
		Prompt:     m.PromptTokenCount,
		Candidates: m.CandidatesTokenCount,
		Thoughts:   m.ThoughtsTokenCount,
		Cached:     m.CachedContentTokenCount,
		Total:      m.TotalTokenCount,
	}
}

// Usage is UsageOf, kept on the counter for callers holding one.
func (c *Counter) Usage(resp *genai.GenerateContentResponse) Usage {
	return UsageOf(resp)
}
