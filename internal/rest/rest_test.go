package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(ts *httptest.Server, opts ...Option) *Client {
	opts = append([]Option{
		WithHTTPClient(ts.Client()),
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	}, opts...)
	return New(ts.URL+"/v1beta", "secret", opts...)
}

func TestDoRoundTrip(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash:batchGenerateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.Query().Get("key"))
		assert.Equal(t, "50", r.URL.Query().Get("pageSize"))

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "hello", in["msg"])

		_, _ = w.Write([]byte(`{"name":"batches/1"}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	var out struct{ Name string }
	err := c.Do(context.Background(), http.MethodPost, "models/gemini-2.5-flash:batchGenerateContent",
		url.Values{"pageSize": {"50"}}, map[string]string{"msg": "hello"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "batches/1", out.Name)
}

func TestDoRetriesTemporary(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	err := newTestClient(ts).Do(context.Background(), http.MethodGet, "batches", nil, nil, &struct{}{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load())
}

func TestDoPostRetriedOnlyWhenRateLimited(t *testing.T) {
	for _, tc := range []struct {
		status int
		calls  int32
	}{
		{http.StatusServiceUnavailable, 1},
		{http.StatusInternalServerError, 1},
		{http.StatusTooManyRequests, 3},
	} {
		var calls atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(tc.status)
		}))

		err := newTestClient(ts, WithMaxRetries(2)).Do(context.Background(), http.MethodPost,
			"models/gemini-2.5-flash:batchGenerateContent", nil, map[string]string{"msg": "hi"}, nil)
		ts.Close()

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr), tc.status)
		assert.Equal(t, tc.status, apiErr.StatusCode)
		assert.Equal(t, tc.calls, calls.Load(), tc.status)
	}
}

func TestDoPermanentErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad prompt","status":"INVALID_ARGUMENT"}}`))
	}))
	defer ts.Close()

	err := newTestClient(ts).Do(context.Background(), http.MethodGet, "batches", nil, nil, nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "INVALID_ARGUMENT", apiErr.Status)
	assert.Equal(t, "bad prompt", apiErr.Message)
	assert.False(t, apiErr.Temporary())
	assert.EqualValues(t, 1, calls.Load())
}

func TestDoGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	err := newTestClient(ts, WithMaxRetries(2)).Do(context.Background(), http.MethodGet, "batches", nil, nil, nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.Temporary())
	assert.EqualValues(t, 3, calls.Load())
}

func TestIsNotFound(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	err := newTestClient(ts).Do(context.Background(), http.MethodGet, "cachedContents/x", nil, nil, nil)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsNotFound(errors.New("other")))
}

func TestStream(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		_, _ = w.Write([]byte("data: {}\n\n"))
	}))
	defer ts.Close()

	body, err := newTestClient(ts).Stream(context.Background(), http.MethodPost, "interactions", nil, map[string]bool{"stream": true})
	require.NoError(t, err)
	defer body.Close()
	buf := make([]byte, 64)
	n, _ := body.Read(buf)
	assert.Equal(t, "data: {}\n\n", string(buf[:n]))
}

func TestModelPath(t *testing.T) {
	assert.Equal(t, "models/gemini-2.5-flash", ModelPath("gemini-2.5-flash"))
	assert.Equal(t, "models/gemini-2.5-flash", ModelPath("models/gemini-2.5-flash"))
	assert.Equal(t, "tunedModels/x", ModelPath("tunedModels/x"))
}

func TestInt64(t *testing.T) {
	var v struct {
		A Int64 `json:"a"`
		B Int64 `json:"b"`
		C Int64 `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"12","b":34,"c":null}`), &v))
	assert.EqualValues(t, 12, v.A)
	assert.EqualValues(t, 34, v.B)
	assert.EqualValues(t, 0, v.C)

	assert.Error(t, json.Unmarshal([]byte(`{"a":"x"}`), &v))
}
