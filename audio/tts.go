// Package audio synthesizes speech with Gemini TTS models and transcribes
// recordings.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/divaparadises/studio/internal/genaiapi"
	"github.com/divaparadises/studio/internal/log"
)

// ErrNoAudio is returned when a TTS response carries no audio data.
var ErrNoAudio = errors.New("response contains no audio")

const (
	DefaultModel = "gemini-2.5-flash-preview-tts"
	DefaultVoice = "Kore"
)

// Speaker assigns a prebuilt voice to a name used in a script.
type Speaker struct {
	Name  string
	Voice string
}

// Generator turns text into speech.
type Generator struct {
	models genaiapi.Models
	model  string
}

// NewGenerator returns a TTS generator for model.
func NewGenerator(models genaiapi.Models, model string) *Generator {
	if model == "" {
		model = DefaultModel
	}
	return &Generator{models: models, model: model}
}

func voice(name string) *genai.VoiceConfig {
	return &genai.VoiceConfig{PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: name}}
}

// Synthesize returns raw PCM (TTSFormat) for text spoken by voiceName.
func (g *Generator) Synthesize(ctx context.Context, text, voiceName string) ([]byte, error) {
	if voiceName == "" {
		voiceName = DefaultVoice
	}
	return g.synthesize(ctx, text, &genai.SpeechConfig{VoiceConfig: voice(voiceName)})
}

// Speak synthesizes text and writes a WAV file to outPath.
func (g *Generator) Speak(ctx context.Context, text, voiceName, outPath string) (string, error) {
	pcm, err := g.Synthesize(ctx, text, voiceName)
	if err != nil {
		return "", err
	}
	if err := SaveWAV(outPath, pcm, TTSFormat); err != nil {
		return "", err
	}
	log.Infof("saved %.1fs of speech to %s", TTSFormat.Duration(len(pcm)), outPath)
	return outPath, nil
}

// Podcast voices a multi-speaker transcript whose lines are prefixed with
// the speaker names ("Nova: ...") and writes a WAV file to outPath.
func (g *Generator) Podcast(ctx context.Context, transcript string, speakers []Speaker, outPath string) (string, error) {
	if len(speakers) == 0 {
		return "", errors.New("podcast needs at least one speaker")
	}
	var cfgs []*genai.SpeakerVoiceConfig
	for _, s := range speakers {
		cfgs = append(cfgs, &genai.SpeakerVoiceConfig{Speaker: s.Name, VoiceConfig: voice(s.Voice)})
	}
	pcm, err := g.synthesize(ctx, transcript, &genai.SpeechConfig{
		MultiSpeakerVoiceConfig: &genai.MultiSpeakerVoiceConfig{SpeakerVoiceConfigs: cfgs},
	})
	if err != nil {
		return "", err
	}
	if err := SaveWAV(outPath, pcm, TTSFormat); err != nil {
		return "", err
	}
	log.Infof("saved %.1fs podcast to %s", TTSFormat.Duration(len(pcm)), outPath)
	return outPath, nil
}

func (g *Generator) synthesize(ctx context.Context, text string, speech *genai.SpeechConfig) ([]byte, error) {
	resp, err := g.models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{string(genai.ModalityAudio)},
			SpeechConfig:       speech,
		})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis with %s: %w", g.model, err)
	}
	return extractPCM(resp)
}

func extractPCM(resp *genai.GenerateContentResponse) ([]byte, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrNoAudio
	}
	var pcm []byte
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && strings.HasPrefix(part.InlineData.MIMEType, "audio/") {
			pcm = append(pcm, part.InlineData.Data...)
		}
	}
	if len(pcm) == 0 {
		return nil, ErrNoAudio
	}
	return pcm, nil
}
