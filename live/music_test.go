package live

import (
	"context"
	"math"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMusicConfigValidate(t *testing.T) {
	require.NoError(t, DefaultMusicConfig().Validate())

	for name, mutate := range map[string]func(*MusicConfig){
		"temperature": func(c *MusicConfig) { c.Temperature = 3.5 },
		"topK":        func(c *MusicConfig) { c.TopK = 0 },
		"guidance":    func(c *MusicConfig) { c.Guidance = -1 },
		"bpm low":     func(c *MusicConfig) { c.BPM = 59 },
		"bpm high":    func(c *MusicConfig) { c.BPM = 201 },
		"density":     func(c *MusicConfig) { c.Density = 1.5 },
		"brightness":  func(c *MusicConfig) { c.Brightness = -0.1 },
		"nan":         func(c *MusicConfig) { c.Temperature = math.NaN() },
		"inf":         func(c *MusicConfig) { c.Density = math.Inf(1) },
		"scale":       func(c *MusicConfig) { c.Scale = "H_MAJOR" },
		"mode":        func(c *MusicConfig) { c.Mode = "LOUD" },
	} {
		t.Run(name, func(t *testing.T) {
			c := DefaultMusicConfig()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestMusicConfigSet(t *testing.T) {
	c := DefaultMusicConfig()
	require.NoError(t, c.Set("bpm", 140))
	assert.Equal(t, 140, c.BPM)
	assert.Error(t, c.Set("bpm", 300))
	assert.Equal(t, 140, c.BPM)
	assert.Error(t, c.Set("volume", 1))
	assert.Error(t, c.Set("temperature", math.NaN()))
	assert.Error(t, c.Set("bpm", math.Inf(-1)))
	assert.Equal(t, DefaultMusicConfig().Temperature, c.Temperature)
	assert.Equal(t, 140, c.BPM)
}

func TestParseMusicCommand(t *testing.T) {
	for _, tc := range []struct {
		line string
		want MusicCommand
	}{
		{"play", MusicCommand{Control: Play}},
		{" PAUSE ", MusicCommand{Control: Pause}},
		{"stop", MusicCommand{Control: Stop}},
		{"reset", MusicCommand{Control: ResetContext}},
		{"exit", MusicCommand{Exit: true}},
		{"p: cyberpunk, heavy drums", MusicCommand{Prompt: &WeightedPrompt{Text: "cyberpunk, heavy drums", Weight: 1}}},
		{"p: dreamy synths:0.5", MusicCommand{Prompt: &WeightedPrompt{Text: "dreamy synths", Weight: 0.5}}},
		{"bpm: 140", MusicCommand{Param: "bpm", Value: 140}},
		{"density: 0.2", MusicCommand{Param: "density", Value: 0.2}},
	} {
		got, err := ParseMusicCommand(tc.line)
		require.NoError(t, err, tc.line)
		assert.Equal(t, tc.want, got, tc.line)
	}

	for _, bad := range []string{"dance", "bpm: fast", "volume: 3", "p: ",
		"temperature: nan", "density: inf", "guidance: -Inf", "p: drums:NaN"} {
		_, err := ParseMusicCommand(bad)
		assert.Error(t, err, bad)
	}
}

func TestRunMusic(t *testing.T) {
	fs := newFakeServer(t, func(ws *websocket.Conn, msg map[string]any) {
		if msg["playback_control"] == "PLAY" {
			_ = ws.WriteJSON(map[string]any{"serverContent": map[string]any{
				"audioChunks": []any{map[string]any{"data": "AQI=", "mimeType": "audio/l16;rate=48000;channels=2"}},
			}})
		}
	})
	s, err := NewMusicClient("test-key", "", WithEndpoint(fs.url)).Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultMusicModel, fs.Setup()["setup"].(map[string]any)["model"])

	played := make(chan []byte, 1)
	lines := make(chan string, 4)
	for _, l := range []string{"p: ambient piano", "bogus", "bpm: 90", "play"} {
		lines <- l
	}
	err = RunMusic(context.Background(), s, lines, func(msg *MusicMessage) error {
		if audio := msg.Audio(); len(audio) > 0 {
			played <- audio
			return ErrStop
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, <-played)

	var keys []string
	for _, m := range fs.Received() {
		for k := range m {
			keys = append(keys, k)
		}
	}
	assert.Equal(t, []string{"client_content", "music_generation_config", "client_content", "music_generation_config", "playback_control"}, keys)

	first := fs.Received()[0]["client_content"].(map[string]any)["weightedPrompts"].([]any)[0].(map[string]any)
	assert.Equal(t, "ambient piano", first["text"])
}

func TestRunMusicExit(t *testing.T) {
	fs := newFakeServer(t, nil)
	s, err := NewMusicClient("test-key", "models/lyria-test", WithEndpoint(fs.url)).Connect(context.Background())
	require.NoError(t, err)

	lines := make(chan string, 2)
	lines <- "pause"
	lines <- "exit"
	err = RunMusic(context.Background(), s, lines, func(*MusicMessage) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "models/lyria-test", fs.Setup()["setup"].(map[string]any)["model"])
}
