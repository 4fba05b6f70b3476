// Package rest is a small JSON client for the Generative Language REST API,
// used for the endpoints the SDK does not cover (batches, cached contents,
// file search stores, interactions).
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/divaparadises/studio/internal/log"
)

// DefaultBaseURL is the public Gemini API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Status     string // google.rpc status, e.g. RESOURCE_EXHAUSTED
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gemini api: %d %s: %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini api: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Temporary reports whether retrying the same request may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// idempotent reports whether repeating method cannot duplicate server-side
// work. A POST or PATCH is only retried on 429, which the API answers before
// acting on the request.
func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	}
	return false
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client performs authenticated JSON requests.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
	maxTries   uint
	newBackOff func() backoff.BackOff
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxRetries sets how many times a temporary failure is retried.
func WithMaxRetries(n uint) Option {
	return func(c *Client) { c.maxTries = n + 1 }
}

// WithTimeout bounds each Do call, retries included. Streams are not bounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithBackOff sets the retry delay policy.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = f }
}

// New returns a client for baseURL authenticated with apiKey.
func New(baseURL, apiKey string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
		maxTries:   4,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// URL resolves an API path such as "batches/123" or
// "models/gemini-2.5-flash:batchGenerateContent".
func (c *Client) URL(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Do sends in as the JSON body (when non-nil) and decodes the answer into
// out (when non-nil). Temporary failures are retried with exponential
// backoff; a POST or PATCH is retried only when rate limited.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	body, err := encode(in)
	if err != nil {
		return err
	}

	op := func() (struct{}, error) {
		resp, err := c.send(ctx, method, path, query, body, "application/json")
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return struct{}{}, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return struct{}{}, backoff.Permanent(fmt.Errorf("decoding %s %s: %w", method, path, err))
		}
		return struct{}{}, nil
	}
	_, err = backoff.Retry(ctx, op,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(func(err error, d time.Duration) {
			log.Warnf("%s %s failed, retrying in %s: %v", method, path, d, err)
		}),
	)
	return err
}

// Stream sends the request and returns the open response body for the
// caller to consume, e.g. as server-sent events. Only establishing the
// connection is retried.
func (c *Client) Stream(ctx context.Context, method, path string, query url.Values, in any) (io.ReadCloser, error) {
	body, err := encode(in)
	if err != nil {
		return nil, err
	}
	op := func() (io.ReadCloser, error) {
		resp, err := c.send(ctx, method, path, query, body, "text/event-stream")
		if err != nil {
			return nil, err
		}
		return resp.Body, nil
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.maxTries),
	)
}

func encode(in any) ([]byte, error) {
	if in == nil {
		return nil, nil
	}
	b, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	return b, nil
}

// send performs one attempt. Non-temporary failures are marked permanent so
// that backoff.Retry gives up on them.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body []byte, accept string) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.URL(path, query), rd)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", accept)
	if c.apiKey != "" {
		req.Header.Set("x-goog-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil || !idempotent(method) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	apiErr := parseError(resp)
	if apiErr.Temporary() && (idempotent(method) || apiErr.StatusCode == http.StatusTooManyRequests) {
		return nil, apiErr
	}
	return nil, backoff.Permanent(apiErr)
}

func parseError(resp *http.Response) *APIError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	apiErr := &APIError{StatusCode: resp.StatusCode, Body: data}
	var envelope struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &envelope) == nil {
		apiErr.Message = envelope.Error.Message
		apiErr.Status = envelope.Error.Status
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}

// ModelPath prefixes name with "models/" unless it already is a resource name.
func ModelPath(name string) string {
	if strings.Contains(name, "/") {
		return name
	}
	return "models/" + name
}

// Int64 decodes the proto3 JSON encoding of int64, which may arrive as a
// string or as a number.
type Int64 int64

func (n *Int64) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	var v int64
	if _, err := fmt.Sscan(s, &v); err != nil {
		return fmt.Errorf("invalid int64 %s: %w", b, err)
	}
	*n = Int64(v)
	return nil
}

// Operation is a google.longrunning.Operation.
type Operation struct {
	Name     string          `json:"name"`
	Done     bool            `json:"done"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
	Response json.RawMessage `json:"response,omitempty"`
	Error    *Status         `json:"error,omitempty"`
}

// Status is a google.rpc.Status.
type Status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *Status) Error() string {
	return fmt.Sprintf("operation failed (%d): %s", s.Code, s.Message)
}
