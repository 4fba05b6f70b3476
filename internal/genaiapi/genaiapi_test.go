package genaiapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: "Hello, "},
				{InlineData: &genai.Blob{MIMEType: "image/png"}},
				{Text: "world"},
			}},
		}},
	}
	thoughts, answer := ResponseText(resp)
	assert.Equal(t, "thinking...", thoughts)
	assert.Equal(t, "Hello, world", answer)
}

func TestResponseTextEmpty(t *testing.T) {
	for _, resp := range []*genai.GenerateContentResponse{
		nil,
		{},
		{Candidates: []*genai.Candidate{{}}},
	} {
		thoughts, answer := ResponseText(resp)
		assert.Empty(t, thoughts)
		assert.Empty(t, answer)
	}
}
