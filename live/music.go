package live

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/divaparadises/studio/internal/log"
)

const (
	// MusicEndpoint is the Lyria realtime music WebSocket.
	MusicEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1alpha.GenerativeService.BidiGenerateMusic"
	// DefaultMusicModel is the realtime music model.
	DefaultMusicModel = "models/lyria-realtime-exp"
)

// PlaybackControl starts, pauses or stops generation.
type PlaybackControl string

const (
	Play         PlaybackControl = "PLAY"
	Pause        PlaybackControl = "PAUSE"
	Stop         PlaybackControl = "STOP"
	ResetContext PlaybackControl = "RESET_CONTEXT"
)

// Generation modes.
const (
	ModeUnspecified  = "MUSIC_GENERATION_MODE_UNSPECIFIED"
	ModeQuality      = "QUALITY"
	ModeDiversity    = "DIVERSITY"
	ModeVocalization = "VOCALIZATION"
)

// ScaleUnspecified lets the model pick the key.
const ScaleUnspecified = "SCALE_UNSPECIFIED"

// Scales lists the keys the model accepts, as major/relative minor pairs.
var Scales = []string{
	ScaleUnspecified,
	"C_MAJOR_A_MINOR",
	"D_FLAT_MAJOR_B_FLAT_MINOR",
	"D_MAJOR_B_MINOR",
	"E_FLAT_MAJOR_C_MINOR",
	"E_MAJOR_D_FLAT_MINOR",
	"F_MAJOR_D_MINOR",
	"G_FLAT_MAJOR_E_FLAT_MINOR",
	"G_MAJOR_E_MINOR",
	"A_FLAT_MAJOR_F_MINOR",
	"A_MAJOR_G_FLAT_MINOR",
	"B_FLAT_MAJOR_G_MINOR",
	"B_MAJOR_A_FLAT_MINOR",
}

// WeightedPrompt steers generation; weights are relative to each other.
type WeightedPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

// MusicConfig controls the generated music.
type MusicConfig struct {
	Temperature      float64 `json:"temperature"`
	TopK             int     `json:"topK"`
	Guidance         float64 `json:"guidance"`
	BPM              int     `json:"bpm"`
	Density          float64 `json:"density"`
	Brightness       float64 `json:"brightness"`
	MuteBass         bool    `json:"muteBass"`
	MuteDrums        bool    `json:"muteDrums"`
	OnlyBassAndDrums bool    `json:"onlyBassAndDrums"`
	Scale            string  `json:"scale"`
	Mode             string  `json:"musicGenerationMode"`
}

// DefaultMusicConfig returns the model's defaults.
func DefaultMusicConfig() MusicConfig {
	return MusicConfig{
		Temperature: 1.1,
		TopK:        40,
		Guidance:    4.0,
		BPM:         120,
		Density:     0.5,
		Brightness:  0.5,
		Scale:       ScaleUnspecified,
		Mode:        ModeQuality,
	}
}

// Validate checks every field against the range the API accepts.
func (c MusicConfig) Validate() error {
	var errs []error
	check := func(name string, v, lo, hi float64) {
		if math.IsNaN(v) || v < lo || v > hi {
			errs = append(errs, fmt.Errorf("%s %v out of range [%v, %v]", name, v, lo, hi))
		}
	}
	check("temperature", c.Temperature, 0, 3)
	check("topK", float64(c.TopK), 1, 1000)
	check("guidance", c.Guidance, 0, 6)
	check("bpm", float64(c.BPM), 60, 200)
	check("density", c.Density, 0, 1)
	check("brightness", c.Brightness, 0, 1)
	if c.Scale != "" && !slices.Contains(Scales, c.Scale) {
		errs = append(errs, fmt.Errorf("unknown scale %q", c.Scale))
	}
	switch c.Mode {
	case "", ModeUnspecified, ModeQuality, ModeDiversity, ModeVocalization:
	default:
		errs = append(errs, fmt.Errorf("unknown generation mode %q", c.Mode))
	}
	return errors.Join(errs...)
}

// musicParams are the names accepted by MusicConfig.Set.
var musicParams = []string{"temperature", "temp", "topk", "guidance", "bpm", "density", "brightness"}

// Set changes one numeric parameter by name and validates the result; on
// error c is left unchanged.
func (c *MusicConfig) Set(param string, v float64) error {
	if !finite(v) {
		return fmt.Errorf("%s %v is not a finite number", param, v)
	}
	next := *c
	switch strings.ToLower(param) {
	case "temperature", "temp":
		next.Temperature = v
	case "topk":
		next.TopK = int(v)
	case "guidance":
		next.Guidance = v
	case "bpm":
		next.BPM = int(v)
	case "density":
		next.Density = v
	case "brightness":
		next.Brightness = v
	default:
		return fmt.Errorf("unknown music parameter %q", param)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

type musicClientMessage struct {
	Setup                 *Setup              `json:"setup,omitempty"`
	ClientContent         *musicClientContent `json:"client_content,omitempty"`
	MusicGenerationConfig *MusicConfig        `json:"music_generation_config,omitempty"`
	PlaybackControl       PlaybackControl     `json:"playback_control,omitempty"`
}

type musicClientContent struct {
	WeightedPrompts []WeightedPrompt `json:"weightedPrompts"`
}

// AudioChunk is a piece of generated music, 48 kHz stereo PCM16.
type AudioChunk struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mimeType"`
}

// MusicMessage is one message from the music server.
type MusicMessage struct {
	SetupComplete *struct{} `json:"setupComplete,omitempty"`
	ServerContent *struct {
		AudioChunks []AudioChunk `json:"audioChunks"`
	} `json:"serverContent,omitempty"`
	FilteredPrompt *struct {
		Text           string `json:"text"`
		FilteredReason string `json:"filteredReason"`
	} `json:"filteredPrompt,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// Audio returns the PCM carried by m.
func (m *MusicMessage) Audio() []byte {
	if m == nil || m.ServerContent == nil {
		return nil
	}
	var b []byte
	for _, c := range m.ServerContent.AudioChunks {
		b = append(b, c.Data...)
	}
	return b
}

// MusicClient opens realtime music sessions.
type MusicClient struct {
	apiKey string
	model  string
	opts   dialOptions
}

// NewMusicClient returns a client for model (DefaultMusicModel when empty).
func NewMusicClient(apiKey, model string, opts ...Option) *MusicClient {
	if model == "" {
		model = DefaultMusicModel
	}
	return &MusicClient{apiKey: apiKey, model: model, opts: newDialOptions(MusicEndpoint, opts)}
}

// Connect opens a session and completes the setup handshake.
func (c *MusicClient) Connect(ctx context.Context) (*MusicSession, error) {
	cn, err := dial(ctx, c.opts, c.apiKey)
	if err != nil {
		return nil, err
	}
	if err := cn.handshake(ctx, musicClientMessage{Setup: &Setup{Model: c.model}}); err != nil {
		_ = cn.close()
		return nil, err
	}
	log.Infof("music session open on %s", c.model)
	return &MusicSession{conn: cn}, nil
}

// MusicSession is an open music connection.
type MusicSession struct {
	conn *conn
}

// SetPrompts replaces the steering prompts.
func (s *MusicSession) SetPrompts(prompts ...WeightedPrompt) error {
	if len(prompts) == 0 {
		return errors.New("at least one weighted prompt is required")
	}
	return s.conn.writeJSON(musicClientMessage{ClientContent: &musicClientContent{WeightedPrompts: prompts}})
}

// SetConfig validates and sends cfg.
func (s *MusicSession) SetConfig(cfg MusicConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return s.conn.writeJSON(musicClientMessage{MusicGenerationConfig: &cfg})
}

// Control sends a playback command.
func (s *MusicSession) Control(pc PlaybackControl) error {
	return s.conn.writeJSON(musicClientMessage{PlaybackControl: pc})
}

// Receive blocks for the next server message.
func (s *MusicSession) Receive() (*MusicMessage, error) {
	var msg MusicMessage
	if err := s.conn.readJSON(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Close ends the session.
func (s *MusicSession) Close() error {
	return s.conn.close()
}

// MusicCommand is one parsed line of the interactive music console.
type MusicCommand struct {
	Control PlaybackControl
	Prompt  *WeightedPrompt
	Param   string
	Value   float64
	Exit    bool
}

// ParseMusicCommand parses lines such as "play", "p: dreamy synths:0.8"
// or "bpm: 140".
func ParseMusicCommand(line string) (MusicCommand, error) {
	line = strings.TrimSpace(line)
	switch strings.ToLower(line) {
	case "play":
		return MusicCommand{Control: Play}, nil
	case "pause":
		return MusicCommand{Control: Pause}, nil
	case "stop":
		return MusicCommand{Control: Stop}, nil
	case "reset":
		return MusicCommand{Control: ResetContext}, nil
	case "exit", "quit":
		return MusicCommand{Exit: true}, nil
	}
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return MusicCommand{}, fmt.Errorf("unknown command %q", line)
	}
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)
	if key == "p" || key == "prompt" {
		wp := WeightedPrompt{Text: value, Weight: 1.0}
		if i := strings.LastIndex(value, ":"); i >= 0 {
			if w, err := strconv.ParseFloat(strings.TrimSpace(value[i+1:]), 64); err == nil {
				if !finite(w) {
					return MusicCommand{}, fmt.Errorf("invalid prompt weight %v", w)
				}
				wp = WeightedPrompt{Text: strings.TrimSpace(value[:i]), Weight: w}
			}
		}
		if wp.Text == "" {
			return MusicCommand{}, errors.New("empty prompt")
		}
		return MusicCommand{Prompt: &wp}, nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || !finite(v) {
		return MusicCommand{}, fmt.Errorf("invalid %s value %q", key, value)
	}
	if !slices.Contains(musicParams, key) {
		return MusicCommand{}, fmt.Errorf("unknown music parameter %q", key)
	}
	return MusicCommand{Param: key, Value: v}, nil
}

// finite rejects NaN and the infinities, which JSON cannot carry.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
