package imaging

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"strings"

	"google.golang.org/genai"

	"github.com/divaparadises/studio/internal/genaiapi"
	"github.com/divaparadises/studio/internal/media"
)

// BoundingBox is a detected object. Box2D is [ymin, xmin, ymax, xmax]
// normalized to 0-1000.
type BoundingBox struct {
	Box2D [4]int `json:"box_2d"`
	Label string `json:"label"`
}

// Rect converts the normalized box to pixel coordinates of a width x height
// image.
func (b BoundingBox) Rect(width, height int) image.Rectangle {
	return image.Rect(
		b.Box2D[1]*width/1000,
		b.Box2D[0]*height/1000,
		b.Box2D[3]*width/1000,
		b.Box2D[2]*height/1000,
	)
}

// Segment is a detected object with its mask.
type Segment struct {
	BoundingBox
	// Mask is a base64 PNG, possibly as a data URL, covering the box.
	Mask string `json:"mask"`
}

// MaskPNG decodes Mask.
func (s Segment) MaskPNG() ([]byte, error) {
	m := s.Mask
	if i := strings.Index(m, "base64,"); i >= 0 {
		m = m[i+len("base64,"):]
	}
	return base64.StdEncoding.DecodeString(m)
}

// Intelligence runs vision prompts against local images.
type Intelligence struct {
	models genaiapi.Models
	model  string
}

// NewIntelligence returns a vision client for model.
func NewIntelligence(models genaiapi.Models, model string) *Intelligence {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Intelligence{models: models, model: model}
}

func (in *Intelligence) ask(ctx context.Context, imagePath, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	data, mimeType, err := media.Load(imagePath)
	if err != nil {
		return "", err
	}
	content := genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromBytes(data, mimeType),
		genai.NewPartFromText(prompt),
	}, genai.RoleUser)
	resp, err := in.models.GenerateContent(ctx, in.model, []*genai.Content{content}, cfg)
	if err != nil {
		return "", fmt.Errorf("vision request to %s: %w", in.model, err)
	}
	_, answer := genaiapi.ResponseText(resp)
	return answer, nil
}

// Analyze answers a free-form prompt about the image.
func (in *Intelligence) Analyze(ctx context.Context, imagePath, prompt string) (string, error) {
	return in.ask(ctx, imagePath, prompt, nil)
}

// DetectObjects returns bounding boxes of the objects described by prompt.
func (in *Intelligence) DetectObjects(ctx context.Context, imagePath, prompt string) ([]BoundingBox, error) {
	if prompt == "" {
		prompt = "Detect all prominent items."
	}
	full := prompt + " Output a JSON list of bounding boxes with keys: box_2d [ymin, xmin, ymax, xmax] (0-1000 scale), label."
	answer, err := in.ask(ctx, imagePath, full, &genai.GenerateContentConfig{ResponseMIMEType: "application/json"})
	if err != nil {
		return nil, err
	}
	var boxes []BoundingBox
	if err := json.Unmarshal([]byte(ParseJSONBlock(answer)), &boxes); err != nil {
		return nil, fmt.Errorf("decoding bounding boxes: %w", err)
	}
	return boxes, nil
}

// SegmentObjects returns boxes and masks of the objects described by
// prompt. Thinking is disabled, which segmentation does better without.
func (in *Intelligence) SegmentObjects(ctx context.Context, imagePath, prompt string) ([]Segment, error) {
	if prompt == "" {
		prompt = "Segment the main objects."
	}
	full := prompt + " Output a JSON list where each entry contains: 'box_2d', 'label', and 'mask' (base64 png)."
	cfg := &genai.GenerateContentConfig{
		ThinkingConfig: &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)},
	}
	answer, err := in.ask(ctx, imagePath, full, cfg)
	if err != nil {
		return nil, err
	}
	var segs []Segment
	if err := json.Unmarshal([]byte(ParseJSONBlock(answer)), &segs); err != nil {
		return nil, fmt.Errorf("decoding segments: %w", err)
	}
	return segs, nil
}

// ParseJSONBlock extracts the body of a ```json fenced block, or returns
// text trimmed when there is no fence.
func ParseJSONBlock(text string) string {
	_, after, found := strings.Cut(text, "```json")
	if !found {
		_, after, found = strings.Cut(text, "```")
	}
	if !found {
		return strings.TrimSpace(text)
	}
	body, _, _ := strings.Cut(after, "```")
	return strings.TrimSpace(body)
}
