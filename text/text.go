// Package text generates text with Gemini models: single prompts, thinking,
// structured JSON output, multimodal prompts and chat sessions.
package text

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/divaparadises/studio/internal/genaiapi"
	"github.com/divaparadises/studio/internal/log"
	"github.com/divaparadises/studio/internal/media"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// ErrEmptyResponse is returned when the model produced no candidate,
// typically because the prompt was blocked.
var ErrEmptyResponse = errors.New("model returned no content")

// Client generates text with one model.
type Client struct {
	models            genaiapi.Models
	model             string
	systemInstruction string
}

// Option configures a Client.
type Option func(*Client)

// WithModel overrides DefaultModel.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithSystemInstruction sets the instruction sent with every request.
func WithSystemInstruction(s string) Option {
	return func(c *Client) { c.systemInstruction = s }
}

// New returns a client over models.
func New(models genaiapi.Models, opts ...Option) *Client {
	c := &Client{models: models, model: DefaultModel}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the model name requests are sent to.
func (c *Client) Model() string { return c.model }

// GenerateOptions tunes a single request. The zero value is valid.
type GenerateOptions struct {
	// ThinkingBudget caps thinking tokens; 0 disables thinking, nil lets
	// the model decide.
	ThinkingBudget  *int32
	IncludeThoughts bool
	Temperature     *float32
	MaxOutputTokens int32
	Tools           []*genai.Tool
	// ResponseSchema switches the response to JSON conforming to it.
	ResponseSchema *genai.Schema
	// CachedContent references a cachedContents/... resource.
	CachedContent string
}

func (c *Client) config(opts *GenerateOptions) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if opts == nil {
		opts = &GenerateOptions{}
	}
	// The API rejects a system instruction alongside cached content; the
	// cache carries its own.
	if c.systemInstruction != "" && opts.CachedContent == "" {
		cfg.SystemInstruction = genai.NewContentFromText(c.systemInstruction, genai.RoleUser)
	}
	if opts.ThinkingBudget != nil || opts.IncludeThoughts {
		cfg.ThinkingConfig = &genai.ThinkingConfig{
			ThinkingBudget:  opts.ThinkingBudget,
			IncludeThoughts: opts.IncludeThoughts,
		}
	}
	cfg.Temperature = opts.Temperature
	cfg.MaxOutputTokens = opts.MaxOutputTokens
	cfg.Tools = opts.Tools
	cfg.CachedContent = opts.CachedContent
	if opts.ResponseSchema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = opts.ResponseSchema
	}
	return cfg
}

// GenerateContent sends contents as is and returns the raw response.
func (c *Client) GenerateContent(ctx context.Context, contents []*genai.Content, opts *GenerateOptions) (*genai.GenerateContentResponse, error) {
	resp, err := c.models.GenerateContent(ctx, c.model, contents, c.config(opts))
	if err != nil {
		return nil, fmt.Errorf("generate content with %s: %w", c.model, err)
	}
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("%w: blocked (%s)", ErrEmptyResponse, resp.PromptFeedback.BlockReason)
		}
		return nil, ErrEmptyResponse
	}
	if u := resp.UsageMetadata; u != nil {
		log.Debugf("%s: prompt=%d candidates=%d thoughts=%d cached=%d tokens",
			c.model, u.PromptTokenCount, u.CandidatesTokenCount, u.ThoughtsTokenCount, u.CachedContentTokenCount)
	}
	return resp, nil
}

// Generate answers a text prompt. When thoughts are included in the
// response the result is laid out by FormatThoughts.
func (c *Client) Generate(ctx context.Context, prompt string, opts *GenerateOptions) (string, error) {
	resp, err := c.GenerateContent(ctx, []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, opts)
	if err != nil {
		return "", err
	}
	return FormatThoughts(genaiapi.ResponseText(resp)), nil
}

// FormatThoughts renders a thought summary ahead of the answer. Without
// thoughts the answer is returned unchanged.
func FormatThoughts(thoughts, answer string) string {
	if thoughts == "" {
		return answer
	}
	return "[THOUGHTS]\n" + thoughts + "\n\n[ANSWER]\n" + answer
}

// GenerateJSON asks for a response matching schema and decodes it into out.
func (c *Client) GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema, out any) error {
	resp, err := c.GenerateContent(ctx, []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&GenerateOptions{ResponseSchema: schema})
	if err != nil {
		return err
	}
	_, answer := genaiapi.ResponseText(resp)
	if err := json.Unmarshal([]byte(answer), out); err != nil {
		return fmt.Errorf("decoding structured response: %w", err)
	}
	return nil
}

// GenerateWithImage answers prompt about the local image at imagePath,
// sent inline.
func (c *Client) GenerateWithImage(ctx context.Context, prompt, imagePath string) (string, error) {
	data, mimeType, err := media.Load(imagePath)
	if err != nil {
		return "", err
	}
	content := genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromBytes(data, mimeType),
		genai.NewPartFromText(prompt),
	}, genai.RoleUser)
	resp, err := c.GenerateContent(ctx, []*genai.Content{content}, nil)
	if err != nil {
		return "", err
	}
	_, answer := genaiapi.ResponseText(resp)
	return answer, nil
}

// GenerateWithContext answers question from a long context blob sent in the
// prompt itself, for when context caching is unavailable.
func (c *Client) GenerateWithContext(ctx context.Context, question, contextText string) (string, error) {
	return c.Generate(ctx, ContextPrompt(contextText, question), nil)
}

// ContextPrompt lays out a retrieved context ahead of a question.
func ContextPrompt(contextText, question string) string {
	return "Use the following context to answer the question.\n\nCONTEXT:\n" + contextText + "\n\nQUESTION:\n" + question
}
