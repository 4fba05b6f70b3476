package live

import (
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const (
	// DefaultModel is the Live model used when none is configured.
	DefaultModel = "models/gemini-2.0-flash-exp"
	// DefaultInstruction is the system instruction of a new session.
	DefaultInstruction = "You are a helpful AI assistant."
)

// GenerationConfig is the generation part of a Live setup.
type GenerationConfig struct {
	ResponseModalities []string            `json:"responseModalities,omitempty"`
	CandidateCount     int32               `json:"candidateCount,omitempty"`
	MaxOutputTokens    int32               `json:"maxOutputTokens,omitempty"`
	Temperature        *float32            `json:"temperature,omitempty"`
	TopP               *float32            `json:"topP,omitempty"`
	SpeechConfig       *genai.SpeechConfig `json:"speechConfig,omitempty"`
}

// SessionConfig describes a Live session before it is opened.
type SessionConfig struct {
	Model             string
	SystemInstruction string
	Generation        GenerationConfig
	Tools             []*genai.Tool
	// Transcribe asks the server to transcribe both the user's and the
	// model's audio.
	Transcribe bool
}

// DefaultSessionConfig returns an audio-answering session on DefaultModel.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Model:             DefaultModel,
		SystemInstruction: DefaultInstruction,
		Generation: GenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			CandidateCount:     1,
			MaxOutputTokens:    2048,
			Temperature:        genai.Ptr[float32](0.7),
			TopP:               genai.Ptr[float32](0.95),
		},
	}
}

// SetResponseModality switches the answers to "AUDIO" or "TEXT".
func (c *SessionConfig) SetResponseModality(modality string) error {
	m := strings.ToUpper(strings.TrimSpace(modality))
	if m != "AUDIO" && m != "TEXT" {
		return fmt.Errorf("invalid response modality %q, want AUDIO or TEXT", modality)
	}
	c.Generation.ResponseModalities = []string{m}
	return nil
}

// SetVoice selects a prebuilt voice for audio answers.
func (c *SessionConfig) SetVoice(name string) {
	c.Generation.SpeechConfig = &genai.SpeechConfig{
		VoiceConfig: &genai.VoiceConfig{
			PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: name},
		},
	}
}

// Setup is the body of the first message a client sends.
type Setup struct {
	Model                    string            `json:"model"`
	GenerationConfig         *GenerationConfig `json:"generationConfig,omitempty"`
	SystemInstruction        *genai.Content    `json:"systemInstruction,omitempty"`
	Tools                    []*genai.Tool     `json:"tools,omitempty"`
	InputAudioTranscription  *struct{}         `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *struct{}         `json:"outputAudioTranscription,omitempty"`
}

// SetupMessage builds the setup handshake for c.
func (c SessionConfig) SetupMessage() *Setup {
	model := c.Model
	if model == "" {
		model = DefaultModel
	}
	if !strings.Contains(model, "/") {
		model = "models/" + model
	}
	gen := c.Generation
	s := &Setup{
		Model:            model,
		GenerationConfig: &gen,
		Tools:            c.Tools,
	}
	if c.SystemInstruction != "" {
		s.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: c.SystemInstruction}}}
	}
	if c.Transcribe {
		s.InputAudioTranscription = &struct{}{}
		s.OutputAudioTranscription = &struct{}{}
	}
	return s
}

// clientMessage is the envelope of everything sent on a Live socket.
type clientMessage struct {
	Setup         *Setup                   `json:"setup,omitempty"`
	ClientContent *clientContent           `json:"clientContent,omitempty"`
	RealtimeInput *genai.LiveRealtimeInput `json:"realtimeInput,omitempty"`
	ToolResponse  *toolResponse            `json:"toolResponse,omitempty"`
}

type clientContent struct {
	Turns        []*genai.Content `json:"turns"`
	TurnComplete bool             `json:"turnComplete"`
}

type toolResponse struct {
	FunctionResponses []*genai.FunctionResponse `json:"functionResponses"`
}
