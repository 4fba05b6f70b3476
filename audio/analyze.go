package audio

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/divaparadises/studio/files"
	"github.com/divaparadises/studio/internal/genaiapi"
)

// Segment is one diarized stretch of a transcript.
type Segment struct {
	Timestamp  string `json:"timestamp"` // MM:SS
	Speaker    string `json:"speaker"`
	Transcript string `json:"transcript"`
	Emotion    string `json:"emotion"`
	Language   string `json:"language"`
}

// Transcript is the structured transcription of a recording.
type Transcript struct {
	Segments []Segment `json:"segments"`
}

var transcriptSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"segments": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"timestamp":  {Type: genai.TypeString, Description: "MM:SS"},
					"speaker":    {Type: genai.TypeString, Description: "Speaker 1, Speaker 2, ..."},
					"transcript": {Type: genai.TypeString},
					"emotion":    {Type: genai.TypeString, Description: "Happy, Sad, Angry, Neutral, Excited, ..."},
					"language":   {Type: genai.TypeString, Description: "language code such as en or es"},
				},
				Required:         []string{"timestamp", "speaker", "transcript"},
				PropertyOrdering: []string{"timestamp", "speaker", "transcript", "emotion", "language"},
			},
		},
	},
	Required: []string{"segments"},
}

const transcribePrompt = `Analyze this audio.
Output a JSON object with a 'segments' list.
Each segment must have a timestamp (MM:SS), the speaker (Speaker 1, 2 etc),
the transcript, the emotion (Happy, Sad, Angry, Neutral, Excited, etc) and
the language code (e.g. en, es).`

// Analyzer transcribes and describes audio recordings.
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

func (a *Analyzer) ask(ctx context.Context, path, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	file, err := a.files.UploadAndWait(ctx, path, nil)
	if err != nil {
		return "", err
	}
	content := genai.NewContentFromParts([]*genai.Part{files.Part(file), genai.NewPartFromText(prompt)}, genai.RoleUser)
	resp, err := a.models.GenerateContent(ctx, a.model, []*genai.Content{content}, cfg)
	if err != nil {
		return "", fmt.Errorf("analyzing %s: %w", path, err)
	}
	_, answer := genaiapi.ResponseText(resp)
	return answer, nil
}

// Transcribe returns a diarized transcript of the recording at path.
func (a *Analyzer) Transcribe(ctx context.Context, path string) (*Transcript, error) {
	answer, err := a.ask(ctx, path, transcribePrompt, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   transcriptSchema,
	})
	if err != nil {
		return nil, err
	}
	var t Transcript
	if err := json.Unmarshal([]byte(answer), &t); err != nil {
		return nil, fmt.Errorf("decoding transcript: %w", err)
	}
	return &t, nil
}

// Describe answers a free-form prompt about the recording at path.
func (a *Analyzer) Describe(ctx context.Context, path, prompt string) (string, error) {
	return a.ask(ctx, path, prompt, nil)
}
