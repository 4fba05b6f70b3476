package embed

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/divaparadises/studio/internal/genaiapi/genaiapitest"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 1}, []float32{-1, -1}, -1},
		{"zero magnitude", []float32{0, 0}, []float32{1, 2}, 0},
		{"empty", nil, nil, 0},
		{"uneven lengths use common prefix", []float32{1, 0, 5}, []float32{1, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestParseTaskType(t *testing.T) {
	tt, err := ParseTaskType("retrieval_query")
	require.NoError(t, err)
	assert.Equal(t, RetrievalQuery, tt)
	_, err = ParseTaskType("dance")
	assert.Error(t, err)
}

func TestEmbedOptions(t *testing.T) {
	var got *genai.EmbedContentConfig
	fake := &genaiapitest.Models{EmbedContentFunc: func(_ context.Context, model string, contents []*genai.Content, cfg *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
		assert.Equal(t, DefaultModel, model)
		got = cfg
		return &genai.EmbedContentResponse{Embeddings: []*genai.ContentEmbedding{{Values: []float32{0.5}}}}, nil
	}}
	c := NewClient(fake, "")
	ctx := context.Background()

	v, err := c.Embed(ctx, "hello", &Options{Title: "Greeting", OutputDimensionality: 768})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5}, v)
	assert.Equal(t, "RETRIEVAL_DOCUMENT", got.TaskType)
	assert.Equal(t, "Greeting", got.Title)
	assert.EqualValues(t, 768, *got.OutputDimensionality)

	// title is dropped for other task types
	_, err = c.Embed(ctx, "hello", &Options{TaskType: RetrievalQuery, Title: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "RETRIEVAL_QUERY", got.TaskType)
	assert.Empty(t, got.Title)
	assert.Nil(t, got.OutputDimensionality)
}

func TestEmbedBatchMismatch(t *testing.T) {
	fake := &genaiapitest.Models{EmbedContentFunc: func(context.Context, string, []*genai.Content, *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
		return &genai.EmbedContentResponse{}, nil
	}}
	_, err := NewClient(fake, "").EmbedBatch(context.Background(), []string{"a", "b"}, nil)
	assert.Error(t, err)
}

func TestEmbedBatchNilVector(t *testing.T) {
	fake := &genaiapitest.Models{EmbedContentFunc: func(context.Context, string, []*genai.Content, *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
		return &genai.EmbedContentResponse{Embeddings: []*genai.ContentEmbedding{{Values: []float32{1}}, nil}}, nil
	}}
	_, err := NewClient(fake, "").EmbedBatch(context.Background(), []string{"a", "b"}, nil)
	assert.ErrorContains(t, err, "no vector for text 1")
}

// keywordEmbedder maps texts onto a tiny vocabulary so that ranking is
// predictable.
func keywordEmbedder(vocab ...string) func(context.Context, string, []*genai.Content, *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	return func(_ context.Context, _ string, contents []*genai.Content, _ *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
		resp := &genai.EmbedContentResponse{}
		for _, c := range contents {
			text := strings.ToLower(c.Parts[0].Text)
			vec := make([]float32, len(vocab))
			for i, w := range vocab {
				if strings.Contains(text, w) {
					vec[i] = 1
				}
			}
			resp.Embeddings = append(resp.Embeddings, &genai.ContentEmbedding{Values: vec})
		}
		return resp, nil
	}
}

func TestIndexSearch(t *testing.T) {
	fake := &genaiapitest.Models{EmbedContentFunc: keywordEmbedder("music", "context", "vector", "tools")}
	ix := NewIndex(NewClient(fake, ""))
	ctx := context.Background()

	_, err := ix.Search(ctx, "anything", 1)
	assert.ErrorIs(t, err, ErrEmptyIndex)

	require.NoError(t, ix.Add(ctx,
		Document{Title: "Project Diva", Text: "A platform for AI-generated music videos."},
		Document{Title: "Gemini Model", Text: "Gemini has a 2 million token context window."},
		Document{Title: "Embeddings", Text: "Embeddings are vector representations of text."},
		Document{Title: "Agentic AI", Text: "Agents can use tools."},
	))
	assert.Equal(t, 4, ix.Len())

	results, err := ix.Search(ctx, "What is the context window size?", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Gemini Model", results[0].Document.Title)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)

	all, err := ix.Search(ctx, "tools", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "Agentic AI", all[0].Document.Title)
}
