// Package genaiapi narrows *genai.Client down to the calls studio makes, so
// that clients can be exercised against fakes.
package genaiapi

import (
	"context"
	"fmt"
	"io"

	"google.golang.org/genai"

	"github.com/divaparadises/studio/internal/config"
)

// Models is the subset of genai.Models used by studio.
type Models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content,
		config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateImages(ctx context.Context, model, prompt string,
		config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
	GenerateVideos(ctx context.Context, model, prompt string, image *genai.Image,
		config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content,
		config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
	CountTokens(ctx context.Context, model string, contents []*genai.Content,
		config *genai.CountTokensConfig) (*genai.CountTokensResponse, error)
	List(ctx context.Context, config *genai.ListModelsConfig) (genai.Page[genai.Model], error)
	Get(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error)
}

// Files is the subset of genai.Files used by studio.
type Files interface {
	Upload(ctx context.Context, r io.Reader, config *genai.UploadFileConfig) (*genai.File, error)
	Get(ctx context.Context, name string, config *genai.GetFileConfig) (*genai.File, error)
	Delete(ctx context.Context, name string, config *genai.DeleteFileConfig) (*genai.DeleteFileResponse, error)
	List(ctx context.Context, config *genai.ListFilesConfig) (genai.Page[genai.File], error)
	Download(ctx context.Context, uri genai.DownloadURI, config *genai.DownloadFileConfig) ([]byte, error)
}

// Operations is the subset of genai.Operations used by studio.
type Operations interface {
	GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation,
		config *genai.GetOperationConfig) (*genai.GenerateVideosOperation, error)
}

// SDK groups the services of one client.
type SDK struct {
	Models     Models
	Files      Files
	Operations Operations
}

// Wrap exposes client through the narrow interfaces.
func Wrap(client *genai.Client) SDK {
	return SDK{
		Models:     modelsWrapper{models: client.Models},
		Files:      filesWrapper{files: client.Files},
		Operations: operationsWrapper{ops: client.Operations},
	}
}

// NewClient builds a genai client for the Gemini API or, when enabled in
// cfg, for Vertex AI.
func NewClient(ctx context.Context, cfg *config.Config) (*genai.Client, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Vertex.Enabled {
		cc = &genai.ClientConfig{
			Backend:  genai.BackendVertexAI,
			Project:  cfg.Vertex.Project,
			Location: cfg.Vertex.Location,
		}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return client, nil
}

// modelsWrapper implements Models
type modelsWrapper struct {
	models *genai.Models
}

func (m modelsWrapper) GenerateContent(ctx context.Context, model string, contents []*genai.Content,
	config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return m.models.GenerateContent(ctx, model, contents, config)
}

func (m modelsWrapper) GenerateImages(ctx context.Context, model, prompt string,
	config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	return m.models.GenerateImages(ctx, model, prompt, config)
}

func (m modelsWrapper) GenerateVideos(ctx context.Context, model, prompt string, image *genai.Image,
	config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	return m.models.GenerateVideos(ctx, model, prompt, image, config)
}

func (m modelsWrapper) EmbedContent(ctx context.Context, model string, contents []*genai.Content,
	config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	return m.models.EmbedContent(ctx, model, contents, config)
}

func (m modelsWrapper) CountTokens(ctx context.Context, model string, contents []*genai.Content,
	config *genai.CountTokensConfig) (*genai.CountTokensResponse, error) {
	return m.models.CountTokens(ctx, model, contents, config)
}

func (m modelsWrapper) List(ctx context.Context, config *genai.ListModelsConfig) (genai.Page[genai.Model], error) {
	return m.models.List(ctx, config)
}

func (m modelsWrapper) Get(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error) {
	return m.models.Get(ctx, model, config)
}

// filesWrapper implements Files
type filesWrapper struct {
	files *genai.Files
}

func (f filesWrapper) Upload(ctx context.Context, r io.Reader, config *genai.UploadFileConfig) (*genai.File, error) {
	return f.files.Upload(ctx, r, config)
}

func (f filesWrapper) Get(ctx context.Context, name string, config *genai.GetFileConfig) (*genai.File, error) {
	return f.files.Get(ctx, name, config)
}

func (f filesWrapper) Delete(ctx context.Context, name string, config *genai.DeleteFileConfig) (*genai.DeleteFileResponse, error) {
	return f.files.Delete(ctx, name, config)
}

func (f filesWrapper) List(ctx context.Context, config *genai.ListFilesConfig) (genai.Page[genai.File], error) {
	return f.files.List(ctx, config)
}

func (f filesWrapper) Download(ctx context.Context, uri genai.DownloadURI, config *genai.DownloadFileConfig) ([]byte, error) {
	return f.files.Download(ctx, uri, config)
}

// operationsWrapper implements Operations
type operationsWrapper struct {
	ops *genai.Operations
}

func (o operationsWrapper) GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation,
	config *genai.GetOperationConfig) (*genai.GenerateVideosOperation, error) {
	return o.ops.GetVideosOperation(ctx, op, config)
}

// ResponseText splits the first candidate of resp into its thought summary
// and its answer text.
func ResponseText(resp *genai.GenerateContentResponse) (thoughts, answer string) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ""
	}
	var t, a []byte
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Text == "" {
			continue
		}
		if part.Thought {
			t = append(t, part.Text...)
		} else {
			a = append(a, part.Text...)
		}
	}
	return string(t), string(a)
}
