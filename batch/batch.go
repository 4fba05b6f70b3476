// Package batch submits and tracks asynchronous batch generation jobs.
//
// Batches run at a lower cost than interactive calls and complete within 24
// hours. The SDK's batch surface is still moving, so jobs go through the REST
// API directly.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"google.golang.org/genai"

	"github.com/divaparadises/studio/internal/log"
	"github.com/divaparadises/studio/internal/poll"
	"github.com/divaparadises/studio/internal/rest"
)

// DefaultPollInterval is how often Monitor refetches a job.
const DefaultPollInterval = 10 * time.Second

// State is the lifecycle state of a job.
type State string

const (
	StateUnspecified State = "BATCH_STATE_UNSPECIFIED"
	StatePending     State = "BATCH_STATE_PENDING"
	StateRunning     State = "BATCH_STATE_RUNNING"
	StateSucceeded   State = "BATCH_STATE_SUCCEEDED"
	StateFailed      State = "BATCH_STATE_FAILED"
	StateCancelled   State = "BATCH_STATE_CANCELLED"
	StateExpired     State = "BATCH_STATE_EXPIRED"
)

// Terminal reports whether a job in state s will not change anymore.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCancelled, StateExpired:
		return true
	}
	return false
}

// Request is one generateContent call of a batch.
type Request struct {
	Model            string                  `json:"model,omitempty"`
	Contents         []*genai.Content        `json:"contents"`
	GenerationConfig *genai.GenerationConfig `json:"generation_config,omitempty"`
}

// TextRequest builds a single-turn request for prompt.
func TextRequest(prompt string) Request {
	return Request{Contents: genai.Text(prompt)}
}

// Stats counts the requests of a job by outcome.
type Stats struct {
	RequestCount           rest.Int64 `json:"requestCount"`
	SuccessfulRequestCount rest.Int64 `json:"successfulRequestCount"`
	FailedRequestCount     rest.Int64 `json:"failedRequestCount"`
	PendingRequestCount    rest.Int64 `json:"pendingRequestCount"`
}

// Response is the outcome of one inlined request.
type Response struct {
	Response *genai.GenerateContentResponse `json:"response,omitempty"`
	Error    *rest.Status                   `json:"error,omitempty"`
}

// Job is a batch resource.
type Job struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName,omitempty"`
	Model       string    `json:"model,omitempty"`
	State       State     `json:"state,omitempty"`
	CreateTime  time.Time `json:"createTime,omitempty"`
	UpdateTime  time.Time `json:"updateTime,omitempty"`
	EndTime     time.Time `json:"endTime,omitempty"`
	Stats       Stats     `json:"batchStats"`
	Output      Output    `json:"output"`
}

// Output is where the results of a finished job live.
type Output struct {
	ResponsesFile    string `json:"responsesFile,omitempty"`
	InlinedResponses struct {
		InlinedResponses []Response `json:"inlinedResponses"`
	} `json:"inlinedResponses"`
}

// Responses returns the inlined results of a finished job.
func (j *Job) Responses() []Response {
	return j.Output.InlinedResponses.InlinedResponses
}

// decodeJob accepts either a bare batch or the long-running operation
// wrapping it, whose metadata carries the batch and whose response, once
// done, carries the output.
func decodeJob(raw json.RawMessage) (*Job, error) {
	var env struct {
		Metadata *Job            `json:"metadata"`
		Response json.RawMessage `json:"response"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding batch: %w", err)
	}
	if env.Metadata == nil || env.Metadata.Name == "" {
		var job Job
		if err := json.Unmarshal(raw, &job); err != nil {
			return nil, fmt.Errorf("decoding batch: %w", err)
		}
		return &job, nil
	}
	job := env.Metadata
	if len(env.Response) > 0 && len(job.Responses()) == 0 && job.Output.ResponsesFile == "" {
		// Depending on the API version the response is the whole batch or
		// only its output.
		var full Job
		if err := json.Unmarshal(env.Response, &full); err == nil && full.Name != "" {
			return &full, nil
		}
		if err := json.Unmarshal(env.Response, &job.Output); err != nil {
			return nil, fmt.Errorf("decoding batch output: %w", err)
		}
	}
	return job, nil
}

// Client manages batch jobs.
type Client struct {
	rest     *rest.Client
	interval time.Duration
}

// NewClient returns a client whose Monitor polls every interval.
func NewClient(rc *rest.Client, interval time.Duration) *Client {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Client{rest: rc, interval: interval}
}

// Create submits requests as one inlined batch for model.
func (c *Client) Create(ctx context.Context, model string, requests []Request, displayName string) (*Job, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("creating batch: no requests")
	}
	if displayName == "" {
		displayName = "batch_job"
	}
	model = rest.ModelPath(model)
	type inlined struct {
		Request Request `json:"request"`
	}
	items := make([]inlined, len(requests))
	for i, r := range requests {
		if r.Model == "" {
			r.Model = model
		}
		items[i] = inlined{Request: r}
	}
	payload := map[string]any{
		"batch": map[string]any{
			"displayName": displayName,
			"inputConfig": map[string]any{
				"requests": map[string]any{"requests": items},
			},
		},
	}
	var raw json.RawMessage
	if err := c.rest.Do(ctx, http.MethodPost, model+":batchGenerateContent", nil, payload, &raw); err != nil {
		return nil, fmt.Errorf("creating batch %q: %w", displayName, err)
	}
	job, err := decodeJob(raw)
	if err != nil {
		return nil, err
	}
	log.Infof("created batch %s with %d requests", job.Name, len(requests))
	return job, nil
}

// List returns every batch job.
func (c *Client) List(ctx context.Context) ([]*Job, error) {
	var out []*Job
	q := url.Values{}
	for {
		var page struct {
			Operations    []json.RawMessage `json:"operations"`
			Batches       []json.RawMessage `json:"batches"`
			NextPageToken string            `json:"nextPageToken"`
		}
		if err := c.rest.Do(ctx, http.MethodGet, "batches", q, nil, &page); err != nil {
			return nil, fmt.Errorf("listing batches: %w", err)
		}
		for _, raw := range append(page.Batches, page.Operations...) {
			job, err := decodeJob(raw)
			if err != nil {
				return nil, err
			}
			out = append(out, job)
		}
		if page.NextPageToken == "" {
			return out, nil
		}
		q.Set("pageToken", page.NextPageToken)
	}
}

// Get fetches a job by name ("batches/123").
func (c *Client) Get(ctx context.Context, name string) (*Job, error) {
	var raw json.RawMessage
	if err := c.rest.Do(ctx, http.MethodGet, name, nil, nil, &raw); err != nil {
		return nil, fmt.Errorf("getting %s: %w", name, err)
	}
	return decodeJob(raw)
}

// Cancel asks the service to stop a running job.
func (c *Client) Cancel(ctx context.Context, name string) error {
	if err := c.rest.Do(ctx, http.MethodPost, name+":cancel", nil, nil, nil); err != nil {
		return fmt.Errorf("cancelling %s: %w", name, err)
	}
	return nil
}

// Delete removes a job.
func (c *Client) Delete(ctx context.Context, name string) error {
	if err := c.rest.Do(ctx, http.MethodDelete, name, nil, nil, nil); err != nil {
		return fmt.Errorf("deleting %s: %w", name, err)
	}
	return nil
}

// Monitor polls the job until it reaches a terminal state and returns it.
func (c *Client) Monitor(ctx context.Context, name string) (*Job, error) {
	log.Infof("monitoring batch %s", name)
	var job *Job
	err := poll.Until(ctx, c.interval, func(ctx context.Context) (bool, error) {
		var err error
		job, err = c.Get(ctx, name)
		if err != nil {
			return false, err
		}
		log.Infof("batch %s: %s, %d/%d succeeded", name, job.State, job.Stats.SuccessfulRequestCount, job.Stats.RequestCount)
		return job.State.Terminal(), nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}
