// Package interactions drives the Interactions API: server-side stateful
// turns against a model or a managed agent such as Deep Research.
package interactions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/launchdarkly/eventsource"

	"github.com/divaparadises/studio/internal/log"
	"github.com/divaparadises/studio/internal/poll"
	"github.com/divaparadises/studio/internal/rest"
)

// ErrInteractionFailed is returned by Wait when the interaction ends in the
// failed or cancelled status.
var ErrInteractionFailed = errors.New("interaction failed")

// DefaultPollInterval is how often Wait refetches an interaction.
const DefaultPollInterval = 5 * time.Second

// DeepResearchAgent is the managed research agent.
const DeepResearchAgent = "deep-research-pro-preview-12-2025"

// Status is the lifecycle state of an interaction.
type Status string

const (
	StatusInProgress     Status = "in_progress"
	StatusRequiresAction Status = "requires_action"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
	StatusCancelled      Status = "cancelled"
)

// AgentConfig configures a managed agent.
type AgentConfig struct {
	Type              string `json:"type"`
	ThinkingSummaries string `json:"thinking_summaries,omitempty"`
}

// DeepResearch is the agent configuration for DeepResearchAgent.
func DeepResearch() *AgentConfig {
	return &AgentConfig{Type: "deep-research", ThinkingSummaries: "auto"}
}

// Tool is a tool declaration, e.g. {"type": "google_search"}.
type Tool map[string]any

// Config selects who answers and how. Set exactly one of Model and Agent.
type Config struct {
	Model                 string
	Agent                 string
	AgentConfig           *AgentConfig
	Tools                 []Tool
	SystemInstruction     string
	PreviousInteractionID string
	// Background runs agents asynchronously; Create returns immediately and
	// Wait collects the result.
	Background bool
}

type createRequest struct {
	Model                 string       `json:"model,omitempty"`
	Agent                 string       `json:"agent,omitempty"`
	AgentConfig           *AgentConfig `json:"agent_config,omitempty"`
	Tools                 []Tool       `json:"tools,omitempty"`
	SystemInstruction     string       `json:"system_instruction,omitempty"`
	PreviousInteractionID string       `json:"previous_interaction_id,omitempty"`
	Background            bool         `json:"background,omitempty"`
	Stream                bool         `json:"stream,omitempty"`
	Input                 string       `json:"input"`
}

func (c Config) request(input string, stream bool) (createRequest, error) {
	if (c.Model == "") == (c.Agent == "") {
		return createRequest{}, fmt.Errorf("interaction needs exactly one of model and agent")
	}
	r := createRequest{
		Model:                 c.Model,
		Agent:                 c.Agent,
		Tools:                 c.Tools,
		SystemInstruction:     c.SystemInstruction,
		PreviousInteractionID: c.PreviousInteractionID,
		Background:            c.Background,
		Stream:                stream,
		Input:                 input,
	}
	if c.Agent != "" {
		r.AgentConfig = c.AgentConfig
	}
	return r, nil
}

// Output is one item produced by an interaction.
type Output struct {
	Type    string          `json:"type"`
	Text    string          `json:"text,omitempty"`
	Summary json.RawMessage `json:"summary,omitempty"`
	Name    string          `json:"name,omitempty"`
	ID      string          `json:"id,omitempty"`
	Args    map[string]any  `json:"arguments,omitempty"`
}

// Interaction is an interactions resource.
type Interaction struct {
	ID                    string    `json:"id"`
	Status                Status    `json:"status"`
	Model                 string    `json:"model,omitempty"`
	Agent                 string    `json:"agent,omitempty"`
	PreviousInteractionID string    `json:"previous_interaction_id,omitempty"`
	Created               time.Time `json:"created,omitempty"`
	Updated               time.Time `json:"updated,omitempty"`
	Outputs               []Output  `json:"outputs,omitempty"`
	Usage                 struct {
		TotalInputTokens  int32 `json:"total_input_tokens"`
		TotalOutputTokens int32 `json:"total_output_tokens"`
		TotalTokens       int32 `json:"total_tokens"`
	} `json:"usage"`
}

// OutputText joins the text outputs of it with newlines.
func (it *Interaction) OutputText() string {
	var texts []string
	for _, o := range it.Outputs {
		if o.Type == "text" {
			texts = append(texts, o.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// Event is one server-sent event of a streamed interaction.
type Event struct {
	Type        string       `json:"event_type"`
	ID          string       `json:"event_id,omitempty"`
	Index       int          `json:"index,omitempty"`
	Interaction *Interaction `json:"interaction,omitempty"`
	Delta       *Output      `json:"delta,omitempty"`
	Error       *rest.Status `json:"error,omitempty"`
}

// Client talks to the interactions endpoint.
type Client struct {
	rest     *rest.Client
	interval time.Duration
}

// NewClient returns a client whose Wait polls every interval.
func NewClient(rc *rest.Client, interval time.Duration) *Client {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Client{rest: rc, interval: interval}
}

// Create starts an interaction with input and returns it as created. For
// models this is usually already completed; background agents return
// in_progress.
func (c *Client) Create(ctx context.Context, input string, cfg Config) (*Interaction, error) {
	in, err := cfg.request(input, false)
	if err != nil {
		return nil, err
	}
	var it Interaction
	if err := c.rest.Do(ctx, http.MethodPost, "interactions", nil, in, &it); err != nil {
		return nil, fmt.Errorf("creating interaction: %w", err)
	}
	log.Debugf("interaction %s: %s", it.ID, it.Status)
	return &it, nil
}

// Stream starts an interaction and calls fn for every event until the
// stream ends. The interaction carried by the last event that has one is
// returned.
func (c *Client) Stream(ctx context.Context, input string, cfg Config, fn func(Event) error) (*Interaction, error) {
	in, err := cfg.request(input, true)
	if err != nil {
		return nil, err
	}
	body, err := c.rest.Stream(ctx, http.MethodPost, "interactions", nil, in)
	if err != nil {
		return nil, fmt.Errorf("streaming interaction: %w", err)
	}
	defer body.Close()

	var last *Interaction
	decoder := eventsource.NewDecoder(body)
	for {
		if err := ctx.Err(); err != nil {
			return last, err
		}
		ev, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			return last, nil
		}
		if err != nil {
			return last, fmt.Errorf("interaction stream: %w", err)
		}
		data := ev.Data()
		if data == "" || data == "[DONE]" {
			continue
		}
		var e Event
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			log.Warnf("skipping malformed interaction event: %v", err)
			continue
		}
		if e.Type == "" {
			e.Type = ev.Event()
		}
		if e.Error != nil {
			return last, fmt.Errorf("%w: %s", ErrInteractionFailed, e.Error.Message)
		}
		if e.Interaction != nil {
			last = e.Interaction
		}
		if fn != nil {
			if err := fn(e); err != nil {
				return last, err
			}
		}
	}
}

// Get fetches an interaction by id.
func (c *Client) Get(ctx context.Context, id string) (*Interaction, error) {
	var it Interaction
	if err := c.rest.Do(ctx, http.MethodGet, "interactions/"+id, nil, nil, &it); err != nil {
		return nil, fmt.Errorf("getting interaction %s: %w", id, err)
	}
	return &it, nil
}

// Wait polls the interaction until it completes or needs a tool result.
// Failed and cancelled interactions yield ErrInteractionFailed.
func (c *Client) Wait(ctx context.Context, id string) (*Interaction, error) {
	var it *Interaction
	err := poll.Until(ctx, c.interval, func(ctx context.Context) (bool, error) {
		var err error
		it, err = c.Get(ctx, id)
		if err != nil {
			return false, err
		}
		switch it.Status {
		case StatusCompleted:
			return true, nil
		case StatusRequiresAction:
			log.Infof("interaction %s requires action", id)
			return true, nil
		case StatusFailed, StatusCancelled:
			return false, fmt.Errorf("%w: %s is %s", ErrInteractionFailed, id, it.Status)
		}
		log.Debugf("interaction %s still %s", id, it.Status)
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return it, nil
}

// Conversation is a multi-turn chat whose history lives on the server:
// every turn points at the previous one.
type Conversation struct {
	client *Client
	cfg    Config
	lastID string
}

// NewConversation starts an empty conversation with cfg.
func (c *Client) NewConversation(cfg Config) *Conversation {
	return &Conversation{client: c, cfg: cfg}
}

// LastID returns the id of the latest turn, empty before the first.
func (cv *Conversation) LastID() string { return cv.lastID }

// Send adds a user turn and returns the answer text.
func (cv *Conversation) Send(ctx context.Context, text string) (string, error) {
	cfg := cv.cfg
	cfg.PreviousInteractionID = cv.lastID
	it, err := cv.client.Create(ctx, text, cfg)
	if err != nil {
		return "", err
	}
	if it.Status == StatusInProgress {
		if it, err = cv.client.Wait(ctx, it.ID); err != nil {
			return "", err
		}
	}
	cv.lastID = it.ID
	return it.OutputText(), nil
}
