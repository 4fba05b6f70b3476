// Package agent runs function-calling loops: the model asks for tools, the
// registry executes them and the answers go back until the model replies in
// plain text.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"github.com/divaparadises/studio/internal/log"
)

// Tool is a function the model can call.
type Tool interface {
	Declaration() *genai.FunctionDeclaration
	Call(ctx context.Context, args map[string]any) (map[string]any, error)
}

// Function adapts a typed Go function to Tool. Arguments are decoded from
// JSON into I; results that do not encode as a JSON object are wrapped as
// {"result": ...}.
type Function[I, O any] struct {
	decl *genai.FunctionDeclaration
	fn   func(context.Context, I) (O, error)
}

// NewFunction declares fn under name with the given parameter schema.
func NewFunction[I, O any](name, description string, params *genai.Schema, fn func(context.Context, I) (O, error)) *Function[I, O] {
	return &Function[I, O]{
		decl: &genai.FunctionDeclaration{Name: name, Description: description, Parameters: params},
		fn:   fn,
	}
}

func (f *Function[I, O]) Declaration() *genai.FunctionDeclaration { return f.decl }

func (f *Function[I, O]) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	var in I
	if len(args) > 0 {
		b, err := json.Marshal(args)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(b, &in); err != nil {
			return nil, fmt.Errorf("invalid arguments for %s: %w", f.decl.Name, err)
		}
	}
	out, err := f.fn(ctx, in)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if json.Unmarshal(b, &obj) == nil && obj != nil {
		return obj, nil
	}
	var v any
	_ = json.Unmarshal(b, &v)
	return map[string]any{"result": v}, nil
}

// Registry holds the tools offered to the model.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry returns a registry holding tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: map[string]Tool{}}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds t, replacing any tool with the same name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := t.Declaration().Name
	if _, ok := r.tools[name]; !ok {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

// Names lists the registered tools in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Tool returns the declarations of every registered tool.
func (r *Registry) Tool() *genai.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	decls := make([]*genai.FunctionDeclaration, 0, len(r.order))
	for _, name := range r.order {
		decls = append(decls, r.tools[name].Declaration())
	}
	return &genai.Tool{FunctionDeclarations: decls}
}

// Execute runs call. Failures are reported to the model as {"error": ...}
// rather than aborting the loop.
func (r *Registry) Execute(ctx context.Context, call *genai.FunctionCall) *genai.FunctionResponse {
	r.mu.RLock()
	t, ok := r.tools[call.Name]
	r.mu.RUnlock()

	resp := &genai.FunctionResponse{ID: call.ID, Name: call.Name}
	if !ok {
		resp.Response = map[string]any{"error": fmt.Sprintf("unknown function %q", call.Name)}
		return resp
	}
	log.Infof("tool %s(%v)", call.Name, call.Args)
	out, err := t.Call(ctx, call.Args)
	if err != nil {
		log.Warnf("tool %s failed: %v", call.Name, err)
		resp.Response = map[string]any{"error": err.Error()}
		return resp
	}
	resp.Response = out
	return resp
}
