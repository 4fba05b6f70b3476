// Package docs summarizes and compares PDF documents.
package docs

import (
	"context"
	"fmt"
	"path/filepath"

	"google.golang.org/genai"

	"github.com/divaparadises/studio/files"
	"github.com/divaparadises/studio/internal/genaiapi"
)

// Processor runs prompts over uploaded documents.
type Processor struct {
	files  *files.Handler
	models genaiapi.Models
	model  string
}

// NewProcessor returns a processor asking model.
func NewProcessor(fh *files.Handler, models genaiapi.Models, model string) *Processor {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Processor{files: fh, models: models, model: model}
}

// Upload sends the document at path as a PDF and waits until it is usable.
func (p *Processor) Upload(ctx context.Context, path, displayName string) (*genai.File, error) {
	if displayName == "" {
		displayName = filepath.Base(path)
	}
	return p.files.UploadAndWait(ctx, path, &files.UploadOptions{MIMEType: "application/pdf", DisplayName: displayName})
}

// Analyze uploads the document at path and answers prompt about it.
func (p *Processor) Analyze(ctx context.Context, path, prompt string) (string, error) {
	if prompt == "" {
		prompt = "Summarize this document."
	}
	file, err := p.Upload(ctx, path, "")
	if err != nil {
		return "", err
	}
	return p.ask(ctx, []*genai.Part{files.Part(file), genai.NewPartFromText(prompt)})
}

// Compare uploads every document in paths and answers prompt across them.
func (p *Processor) Compare(ctx context.Context, paths []string, prompt string) (string, error) {
	if len(paths) < 2 {
		return "", fmt.Errorf("compare needs at least two documents, got %d", len(paths))
	}
	if prompt == "" {
		prompt = "Compare these documents."
	}
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	for _, path := range paths {
		file, err := p.Upload(ctx, path, "")
		if err != nil {
			return "", err
		}
		parts = append(parts, files.Part(file))
	}
	return p.ask(ctx, parts)
}

func (p *Processor) ask(ctx context.Context, parts []*genai.Part) (string, error) {
	resp, err := p.models.GenerateContent(ctx, p.model, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil)
	if err != nil {
		return "", fmt.Errorf("document prompt to %s: %w", p.model, err)
	}
	_, answer := genaiapi.ResponseText(resp)
	return answer, nil
}
