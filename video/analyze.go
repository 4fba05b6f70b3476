package video

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/divaparadises/studio/files"
	"github.com/divaparadises/studio/internal/genaiapi"
)

// Analyzer answers questions about uploaded videos.
type Analyzer struct {
	files  *files.Handler
	models genaiapi.Models
	model  string
}

// NewAnalyzer returns an analyzer asking model.
func NewAnalyzer(fh *files.Handler, models genaiapi.Models, model string) *Analyzer {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Analyzer{files: fh, models: models, model: model}
}

// Upload sends a local video and waits until it is processed.
func (a *Analyzer) Upload(ctx context.Context, path string) (*genai.File, error) {
	return a.files.UploadAndWait(ctx, path, nil)
}

// AnalyzeFile asks prompt about an already uploaded video.
func (a *Analyzer) AnalyzeFile(ctx context.Context, file *genai.File, prompt string) (string, error) {
	if prompt == "" {
		prompt = "Describe this video in detail."
	}
	content := genai.NewContentFromParts([]*genai.Part{files.Part(file), genai.NewPartFromText(prompt)}, genai.RoleUser)
	resp, err := a.models.GenerateContent(ctx, a.model, []*genai.Content{content}, nil)
	if err != nil {
		return "", fmt.Errorf("analyzing %s: %w", file.Name, err)
	}
	_, answer := genaiapi.ResponseText(resp)
	return answer, nil
}

// Analyze uploads the video at path and asks prompt about it.
func (a *Analyzer) Analyze(ctx context.Context, path, prompt string) (string, error) {
	file, err := a.Upload(ctx, path)
	if err != nil {
		return "", err
	}
	return a.AnalyzeFile(ctx, file, prompt)
}
