// Package embed computes text embeddings and ranks documents by cosine
// similarity for small in-memory retrieval.
package embed

import (
	"context"
	"fmt"
	"math"
	"strings"

	"google.golang.org/genai"

	"github.com/divaparadises/studio/internal/genaiapi"
)

// DefaultModel is the embedding model used when none is configured.
const DefaultModel = "text-embedding-004"

// TaskType tells the model what the embedding is for.
type TaskType string

const (
	RetrievalDocument  TaskType = "RETRIEVAL_DOCUMENT"
	RetrievalQuery     TaskType = "RETRIEVAL_QUERY"
	SemanticSimilarity TaskType = "SEMANTIC_SIMILARITY"
	Classification     TaskType = "CLASSIFICATION"
	Clustering         TaskType = "CLUSTERING"
	QuestionAnswering  TaskType = "QUESTION_ANSWERING"
	FactVerification   TaskType = "FACT_VERIFICATION"
	CodeRetrievalQuery TaskType = "CODE_RETRIEVAL_QUERY"
)

// ParseTaskType accepts names such as "retrieval_document" in any case.
func ParseTaskType(s string) (TaskType, error) {
	t := TaskType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case RetrievalDocument, RetrievalQuery, SemanticSimilarity, Classification,
		Clustering, QuestionAnswering, FactVerification, CodeRetrievalQuery:
		return t, nil
	}
	return "", fmt.Errorf("unknown task type %q", s)
}

// Options tunes an embedding request.
type Options struct {
	TaskType TaskType
	// Title only applies to RetrievalDocument.
	Title                string
	OutputDimensionality int32
}

func (o *Options) config() *genai.EmbedContentConfig {
	cfg := &genai.EmbedContentConfig{TaskType: string(RetrievalDocument)}
	if o == nil {
		return cfg
	}
	if o.TaskType != "" {
		cfg.TaskType = string(o.TaskType)
	}
	if o.Title != "" && cfg.TaskType == string(RetrievalDocument) {
		cfg.Title = o.Title
	}
	if o.OutputDimensionality > 0 {
		cfg.OutputDimensionality = genai.Ptr(o.OutputDimensionality)
	}
	return cfg
}

// Client embeds text.
type Client struct {
	models genaiapi.Models
	model  string
}

// NewClient returns a client for model.
func NewClient(models genaiapi.Models, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{models: models, model: model}
}

// Embed returns the embedding of text.
func (c *Client) Embed(ctx context.Context, text string, opts *Options) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text}, opts)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds every text in one request, preserving order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string, opts *Options) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}
	resp, err := c.models.EmbedContent(ctx, c.model, contents, opts.config())
	if err != nil {
		return nil, fmt.Errorf("embedding with %s: %w", c.model, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding with %s: got %d vectors for %d texts", c.model, len(resp.Embeddings), len(texts))
	}
	out := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if e == nil {
			return nil, fmt.Errorf("embedding with %s: no vector for text %d", c.model, i)
		}
		out[i] = e.Values
	}
	return out, nil
}

// CosineSimilarity of a and b, over their common length. It is 0 when
// either vector has zero magnitude.
func CosineSimilarity(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, ma, mb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		ma += x * x
		mb += y * y
	}
	if ma == 0 || mb == 0 {
		return 0
	}
	return dot / (math.Sqrt(ma) * math.Sqrt(mb))
}
