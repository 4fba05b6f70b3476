package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/divaparadises/studio/files"
	"github.com/divaparadises/studio/internal/genaiapi/genaiapitest"
)

func TestWriteWAV(t *testing.T) {
	pcm := make([]byte, 48000) // one second of TTSFormat
	var buf bytes.Buffer
	require.NoError(t, WriteWAV(&buf, pcm, TTSFormat))

	b := buf.Bytes()
	require.Len(t, b, 44+len(pcm))
	assert.Equal(t, "RIFF", string(b[0:4]))
	assert.Equal(t, uint32(36+len(pcm)), binary.LittleEndian.Uint32(b[4:8]))
	assert.Equal(t, "WAVE", string(b[8:12]))
	assert.Equal(t, "fmt ", string(b[12:16]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(b[20:22]))     // PCM
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(b[22:24]))     // channels
	assert.Equal(t, uint32(24000), binary.LittleEndian.Uint32(b[24:28])) // rate
	assert.Equal(t, uint32(48000), binary.LittleEndian.Uint32(b[28:32])) // byte rate
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(b[32:34]))     // block align
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(b[34:36]))
	assert.Equal(t, "data", string(b[36:40]))
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(b[40:44]))

	assert.InDelta(t, 1.0, TTSFormat.Duration(len(pcm)), 1e-9)
}

func audioResponse(chunks ...[]byte) *genai.GenerateContentResponse {
	var parts []*genai.Part
	for _, c := range chunks {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: "audio/L16;codec=pcm;rate=24000", Data: c}})
	}
	return genaiapitest.PartsResponse(parts...)
}

func TestSpeak(t *testing.T) {
	fake := &genaiapitest.Models{GenerateContentFunc: genaiapitest.ReplyWith(audioResponse([]byte{1, 2}, []byte{3, 4}))}
	g := NewGenerator(fake, "")

	out := filepath.Join(t.TempDir(), "hello.wav")
	got, err := g.Speak(context.Background(), "Hello", "", out)
	require.NoError(t, err)
	assert.Equal(t, out, got)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data[44:])

	call := fake.LastCall()
	assert.Equal(t, DefaultModel, call.Model)
	assert.Equal(t, []string{"AUDIO"}, call.Config.ResponseModalities)
	assert.Equal(t, DefaultVoice, call.Config.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)
}

func TestPodcast(t *testing.T) {
	fake := &genaiapitest.Models{GenerateContentFunc: genaiapitest.ReplyWith(audioResponse([]byte{0, 0}))}
	g := NewGenerator(fake, "")

	out := filepath.Join(t.TempDir(), "pod.wav")
	_, err := g.Podcast(context.Background(), "Nova: hi\nZen: hello", []Speaker{
		{Name: "Nova", Voice: "Puck"},
		{Name: "Zen", Voice: "Charon"},
	}, out)
	require.NoError(t, err)

	cfgs := fake.LastCall().Config.SpeechConfig.MultiSpeakerVoiceConfig.SpeakerVoiceConfigs
	require.Len(t, cfgs, 2)
	assert.Equal(t, "Zen", cfgs[1].Speaker)
	assert.Equal(t, "Charon", cfgs[1].VoiceConfig.PrebuiltVoiceConfig.VoiceName)

	_, err = g.Podcast(context.Background(), "x", nil, out)
	assert.Error(t, err)
}

func TestSpeakNoAudio(t *testing.T) {
	fake := &genaiapitest.Models{GenerateContentFunc: genaiapitest.ReplyWith(genaiapitest.TextResponse("cannot"))}
	_, err := NewGenerator(fake, "").Speak(context.Background(), "x", "Kore", filepath.Join(t.TempDir(), "x.wav"))
	assert.ErrorIs(t, err, ErrNoAudio)
}

func TestTranscribe(t *testing.T) {
	fake := &genaiapitest.Models{GenerateContentFunc: genaiapitest.ReplyWith(genaiapitest.TextResponse(
		`{"segments":[{"timestamp":"00:01","speaker":"Speaker 1","transcript":"Hola","emotion":"Happy","language":"es"}]}`))}
	a := NewAnalyzer(files.NewHandler(&genaiapitest.Files{}, time.Millisecond), fake, "")

	path := filepath.Join(t.TempDir(), "talk.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF...."), 0o600))

	tr, err := a.Transcribe(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, tr.Segments, 1)
	assert.Equal(t, Segment{Timestamp: "00:01", Speaker: "Speaker 1", Transcript: "Hola", Emotion: "Happy", Language: "es"}, tr.Segments[0])

	cfg := fake.LastCall().Config
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	assert.Same(t, transcriptSchema, cfg.ResponseSchema)
}

func TestDescribe(t *testing.T) {
	fake := &genaiapitest.Models{GenerateContentFunc: genaiapitest.ReplyWith(genaiapitest.TextResponse("A piano piece."))}
	a := NewAnalyzer(files.NewHandler(&genaiapitest.Files{}, time.Millisecond), fake, "")

	path := filepath.Join(t.TempDir(), "song.mp3")
	require.NoError(t, os.WriteFile(path, []byte("ID3"), 0o600))
	got, err := a.Describe(context.Background(), path, "What instrument?")
	require.NoError(t, err)
	assert.Equal(t, "A piano piece.", got)
}
