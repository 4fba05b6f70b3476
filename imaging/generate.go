// Package imaging generates images with Gemini image models and Imagen, and
// runs vision tasks (detection, segmentation, description) on local images.
package imaging

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/genai"

	"github.com/divaparadises/studio/internal/genaiapi"
	"github.com/divaparadises/studio/internal/log"
	"github.com/divaparadises/studio/internal/media"
)

// ErrNoImage is returned when a response carries no image data.
var ErrNoImage = errors.New("response contains no image")

// Quality selects between the fast draft model and the high resolution one.
type Quality string

const (
	Flash Quality = "flash"
	Pro   Quality = "pro"
)

// ParseQuality accepts "flash" or "pro", case-insensitively.
func ParseQuality(s string) (Quality, error) {
	switch q := Quality(strings.ToLower(s)); q {
	case Flash, Pro:
		return q, nil
	}
	return "", fmt.Errorf("unknown image quality %q (want flash or pro)", s)
}

// Image is generated image data.
type Image struct {
	Data     []byte
	MIMEType string
	// Caption is any text the model returned alongside the image.
	Caption string
}

// Save writes the image to path, creating parent directories.
func (img *Image) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, img.Data, 0o644)
}

// Generator produces images.
type Generator struct {
	models genaiapi.Models
	flash  string
	pro    string
	imagen string
}

// NewGenerator returns a generator using the given model names. Empty names
// fall back to defaults.
func NewGenerator(models genaiapi.Models, flash, pro, imagen string) *Generator {
	g := &Generator{
		models: models,
		flash:  "gemini-2.5-flash-image",
		pro:    "gemini-3-pro-image-preview",
		imagen: "imagen-4.0-generate-001",
	}
	if flash != "" {
		g.flash = flash
	}
	if pro != "" {
		g.pro = pro
	}
	if imagen != "" {
		g.imagen = imagen
	}
	return g
}

func (g *Generator) model(q Quality) string {
	if q == Pro {
		return g.pro
	}
	return g.flash
}

// Generate renders prompt with a Gemini image model. aspectRatio such as
// "16:9" is optional.
func (g *Generator) Generate(ctx context.Context, prompt string, q Quality, aspectRatio string) (*Image, error) {
	return g.generate(ctx, q, aspectRatio, genai.NewPartFromText(prompt))
}

// Edit reworks the image at sourcePath following prompt.
func (g *Generator) Edit(ctx context.Context, prompt, sourcePath string, q Quality) (*Image, error) {
	data, mimeType, err := media.Load(sourcePath)
	if err != nil {
		return nil, err
	}
	return g.generate(ctx, q, "", genai.NewPartFromBytes(data, mimeType), genai.NewPartFromText(prompt))
}

func (g *Generator) generate(ctx context.Context, q Quality, aspectRatio string, parts ...*genai.Part) (*Image, error) {
	model := g.model(q)
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityText), string(genai.ModalityImage)},
	}
	if aspectRatio != "" {
		cfg.ImageConfig = &genai.ImageConfig{AspectRatio: aspectRatio}
	}
	resp, err := g.models.GenerateContent(ctx, model, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, cfg)
	if err != nil {
		return nil, fmt.Errorf("generating image with %s: %w", model, err)
	}
	img, err := firstImage(resp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", model, err)
	}
	log.Debugf("%s returned %d bytes of %s", model, len(img.Data), img.MIMEType)
	return img, nil
}

func firstImage(resp *genai.GenerateContentResponse) (*Image, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrNoImage
	}
	var img *Image
	var caption []string
	for _, part := range resp.Candidates[0].Content.Parts {
		switch {
		case part.InlineData != nil && img == nil && strings.HasPrefix(part.InlineData.MIMEType, "image/"):
			img = &Image{Data: part.InlineData.Data, MIMEType: part.InlineData.MIMEType}
		case part.Text != "" && !part.Thought:
			caption = append(caption, part.Text)
		}
	}
	if img == nil {
		return nil, ErrNoImage
	}
	img.Caption = strings.Join(caption, "\n")
	return img, nil
}

// GenerateImagen renders n images of prompt with Imagen.
func (g *Generator) GenerateImagen(ctx context.Context, prompt string, n int32, aspectRatio string) ([]*Image, error) {
	if n <= 0 {
		n = 1
	}
	resp, err := g.models.GenerateImages(ctx, g.imagen, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: n,
		AspectRatio:    aspectRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("generating images with %s: %w", g.imagen, err)
	}
	var out []*Image
	for _, gi := range resp.GeneratedImages {
		if gi.Image == nil || len(gi.Image.ImageBytes) == 0 {
			if gi.RAIFilteredReason != "" {
				log.Warnf("image filtered: %s", gi.RAIFilteredReason)
			}
			continue
		}
		mt := gi.Image.MIMEType
		if mt == "" {
			mt = media.Detect(gi.Image.ImageBytes, "")
		}
		out = append(out, &Image{Data: gi.Image.ImageBytes, MIMEType: mt, Caption: gi.EnhancedPrompt})
	}
	if len(out) == 0 {
		return nil, ErrNoImage
	}
	return out, nil
}
