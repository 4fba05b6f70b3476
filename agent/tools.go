package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// ErrDivisionByZero is returned by the calculator.
var ErrDivisionByZero = errors.New("division by zero")

type calcArgs struct {
	A         float64 `json:"a"`
	B         float64 `json:"b"`
	Operation string  `json:"operation"`
}

// Calculator performs add, subtract, multiply and divide.
func Calculator() Tool {
	params := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"a":         {Type: genai.TypeNumber, Description: "First number."},
			"b":         {Type: genai.TypeNumber, Description: "Second number."},
			"operation": {Type: genai.TypeString, Enum: []string{"add", "subtract", "multiply", "divide"}},
		},
		Required: []string{"a", "b"},
	}
	return NewFunction("calculator", "Performs basic arithmetic operations.", params,
		func(_ context.Context, in calcArgs) (float64, error) {
			switch in.Operation {
			case "", "add":
				return in.A + in.B, nil
			case "subtract":
				return in.A - in.B, nil
			case "multiply":
				return in.A * in.B, nil
			case "divide":
				if in.B == 0 {
					return 0, ErrDivisionByZero
				}
				return in.A / in.B, nil
			}
			return 0, fmt.Errorf("unknown operation %q", in.Operation)
		})
}

// SystemTime reports the current local time from now.
func SystemTime(now func() time.Time) Tool {
	return NewFunction("get_system_time", "Returns the current system time and date.", nil,
		func(context.Context, struct{}) (string, error) {
			return now().Format(time.DateTime), nil
		})
}

// Record is one knowledge base entry, matched when its Key appears in a query.
type Record struct {
	Key  string
	Text string
}

// SearchDatabase looks query up in a small in-memory knowledge base. The
// first record whose key the query contains wins.
func SearchDatabase(records []Record) Tool {
	params := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: map[string]*genai.Schema{"query": {Type: genai.TypeString, Description: "The search term."}},
		Required:   []string{"query"},
	}
	return NewFunction("search_database", "Searches the internal database.", params,
		func(_ context.Context, in struct {
			Query string `json:"query"`
		}) (string, error) {
			q := strings.ToLower(in.Query)
			for _, r := range records {
				if strings.Contains(q, r.Key) {
					return r.Text, nil
				}
			}
			return "No records found.", nil
		})
}

// DefaultRecords backs SearchDatabase in the demo registry.
var DefaultRecords = []Record{
	{Key: "diva", Text: "Divaparadises is a cutting-edge AI platform for Creators."},
	{Key: "gemini", Text: "Gemini is a multimodal AI model from Google."},
}

// Home is the state of the simulated smart home.
type Home struct {
	Brightness int
	ColorTemp  string
	DiscoBall  bool
	Music      string
	Volume     string
}

// SmartHome returns the light, disco ball and music tools operating on h.
func SmartHome(h *Home) []Tool {
	lights := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"brightness": {Type: genai.TypeInteger, Description: "Light level from 0 to 100. Zero is off."},
			"color_temp": {Type: genai.TypeString, Enum: []string{"daylight", "cool", "warm"}},
		},
		Required: []string{"brightness", "color_temp"},
	}
	disco := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: map[string]*genai.Schema{"power": {Type: genai.TypeBoolean, Description: "True to turn on, false to turn off."}},
		Required:   []string{"power"},
	}
	music := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"energetic": {Type: genai.TypeBoolean, Description: "True for high energy music."},
			"loud":      {Type: genai.TypeBoolean, Description: "True for high volume."},
		},
		Required: []string{"energetic", "loud"},
	}
	type lightArgs struct {
		Brightness int    `json:"brightness"`
		ColorTemp  string `json:"color_temp"`
	}
	type lightState struct {
		Brightness       int    `json:"brightness"`
		ColorTemperature string `json:"colorTemperature"`
	}
	type musicState struct {
		MusicType string `json:"music_type"`
		Volume    string `json:"volume"`
	}
	return []Tool{
		NewFunction("set_light_values", "Set the brightness and color temperature of a room light.", lights,
			func(_ context.Context, in lightArgs) (lightState, error) {
				if in.Brightness < 0 || in.Brightness > 100 {
					return lightState{}, fmt.Errorf("brightness %d out of range [0, 100]", in.Brightness)
				}
				h.Brightness, h.ColorTemp = in.Brightness, in.ColorTemp
				return lightState{Brightness: in.Brightness, ColorTemperature: in.ColorTemp}, nil
			}),
		NewFunction("power_disco_ball", "Powers the spinning disco ball.", disco,
			func(_ context.Context, in struct {
				Power bool `json:"power"`
			}) (map[string]string, error) {
				h.DiscoBall = in.Power
				state := "OFF"
				if in.Power {
					state = "ON"
				}
				return map[string]string{"status": "Disco ball powered " + state}, nil
			}),
		NewFunction("start_music", "Play music matching parameters.", music,
			func(_ context.Context, in struct {
				Energetic bool `json:"energetic"`
				Loud      bool `json:"loud"`
			}) (musicState, error) {
				s := musicState{MusicType: "Lo-Fi", Volume: "Medium"}
				if in.Energetic {
					s.MusicType = "Techno"
				}
				if in.Loud {
					s.Volume = "MAX"
				}
				h.Music, h.Volume = s.MusicType, s.Volume
				return s, nil
			}),
	}
}

// DefaultRegistry holds every built-in tool, the smart home ones acting on h.
func DefaultRegistry(h *Home) *Registry {
	r := NewRegistry(Calculator(), SystemTime(time.Now), SearchDatabase(DefaultRecords))
	for _, t := range SmartHome(h) {
		r.Register(t)
	}
	return r
}
