package agent

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"

	"github.com/divaparadises/studio/internal/genaiapi"
	"github.com/divaparadises/studio/internal/log"
)

const (
	// DefaultModel drives the loop when none is given.
	DefaultModel = "gemini-2.5-flash"
	// DefaultMaxTurns bounds the model round trips of one Run.
	DefaultMaxTurns = 10
	// DefaultThinkingBudget is the thinking token cap of every turn.
	DefaultThinkingBudget int32 = 1024
)

// ErrTooManyTurns is returned when the model still asks for tools after
// MaxTurns round trips.
var ErrTooManyTurns = errors.New("agent: too many turns")

// Orchestrator runs a task with the tools of a registry.
type Orchestrator struct {
	Models            genaiapi.Models
	Registry          *Registry
	Model             string
	SystemInstruction string
	MaxTurns          int
	ThinkingBudget    int32
}

// NewOrchestrator returns an orchestrator with the default model and limits.
func NewOrchestrator(models genaiapi.Models, registry *Registry) *Orchestrator {
	return &Orchestrator{
		Models:         models,
		Registry:       registry,
		Model:          DefaultModel,
		MaxTurns:       DefaultMaxTurns,
		ThinkingBudget: DefaultThinkingBudget,
	}
}

// Result is the outcome of Run.
type Result struct {
	Text string
	// Calls lists the function calls in the order the model made them.
	Calls   []*genai.FunctionCall
	History []*genai.Content
}

func (o *Orchestrator) config() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Tools:          []*genai.Tool{o.Registry.Tool()},
		ThinkingConfig: &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(o.ThinkingBudget)},
	}
	if o.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(o.SystemInstruction, genai.RoleUser)
	}
	return cfg
}

// Run sends task and keeps executing the requested functions until the
// model answers without calling any. Calls of one turn run concurrently.
func (o *Orchestrator) Run(ctx context.Context, task string) (*Result, error) {
	model := o.Model
	if model == "" {
		model = DefaultModel
	}
	maxTurns := o.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	cfg := o.config()
	res := &Result{History: []*genai.Content{genai.NewContentFromText(task, genai.RoleUser)}}

	for turn := 0; turn < maxTurns; turn++ {
		resp, err := o.Models.GenerateContent(ctx, model, slices.Clone(res.History), cfg)
		if err != nil {
			return res, fmt.Errorf("turn %d: %w", turn+1, err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return res, fmt.Errorf("turn %d: model returned no content", turn+1)
		}
		res.History = append(res.History, resp.Candidates[0].Content)

		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			res.Text = resp.Text()
			return res, nil
		}
		res.Calls = append(res.Calls, calls...)
		log.Debugf("turn %d: %d function calls", turn+1, len(calls))

		responses := make([]*genai.FunctionResponse, len(calls))
		g, gctx := errgroup.WithContext(ctx)
		for i, call := range calls {
			g.Go(func() error {
				responses[i] = o.Registry.Execute(gctx, call)
				// Tool failures travel back to the model inside the response;
				// only cancellation aborts the turn.
				return gctx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			return res, err
		}

		parts := make([]*genai.Part, len(responses))
		for i, r := range responses {
			parts[i] = &genai.Part{FunctionResponse: r}
		}
		res.History = append(res.History, genai.NewContentFromParts(parts, genai.RoleUser))
	}
	return res, ErrTooManyTurns
}
