// Package models lists the models a key can use for content generation.
package models

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"google.golang.org/genai"

	"github.com/divaparadises/studio/internal/genaiapi"
	"github.com/divaparadises/studio/internal/log"
)

// GenerateContent is the action a model must support to be listed.
const GenerateContent = "generateContent"

// Info summarizes one model.
type Info struct {
	Name             string   `json:"name"`
	Version          string   `json:"version,omitempty"`
	DisplayName      string   `json:"display_name"`
	Description      string   `json:"description,omitempty"`
	InputTokenLimit  int32    `json:"input_limit"`
	OutputTokenLimit int32    `json:"output_limit"`
	SupportedActions []string `json:"supported_methods"`
	Temperature      float32  `json:"temperature,omitempty"`
	TopP             float32  `json:"top_p,omitempty"`
	TopK             int32    `json:"top_k,omitempty"`
	Thinking         bool     `json:"thinking,omitempty"`
}

func infoOf(m *genai.Model) Info {
	return Info{
		Name:             m.Name,
		Version:          m.Version,
		DisplayName:      m.DisplayName,
		Description:      m.Description,
		InputTokenLimit:  m.InputTokenLimit,
		OutputTokenLimit: m.OutputTokenLimit,
		SupportedActions: m.SupportedActions,
		Temperature:      m.Temperature,
		TopP:             m.TopP,
		TopK:             m.TopK,
		Thinking:         m.Thinking,
	}
}

// Short returns the name without its "models/" prefix.
func (i Info) Short() string {
	return strings.TrimPrefix(i.Name, "models/")
}

// Registry queries the models service.
type Registry struct {
	models genaiapi.Models
}

// NewRegistry returns a registry backed by models.
func NewRegistry(models genaiapi.Models) *Registry {
	return &Registry{models: models}
}

// List pages through every model and keeps those supporting generateContent.
func (r *Registry) List(ctx context.Context) ([]Info, error) {
	page, err := r.models.List(ctx, &genai.ListModelsConfig{PageSize: 100})
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	var out []Info
	for {
		for _, m := range page.Items {
			if slices.Contains(m.SupportedActions, GenerateContent) {
				out = append(out, infoOf(m))
			}
		}
		page, err = page.Next(ctx)
		if errors.Is(err, genai.ErrPageDone) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing models: %w", err)
		}
	}
	log.Debugf("found %d generative models", len(out))
	return out, nil
}

// Get returns details for one model.
func (r *Registry) Get(ctx context.Context, name string) (Info, error) {
	m, err := r.models.Get(ctx, name, nil)
	if err != nil {
		return Info{}, fmt.Errorf("getting model %s: %w", name, err)
	}
	return infoOf(m), nil
}
