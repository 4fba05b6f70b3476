package cache

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/divaparadises/studio/internal/rest"
)

func newClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return NewClient(rest.New(ts.URL, "key", rest.WithHTTPClient(ts.Client()), rest.WithMaxRetries(0)))
}

func TestCreate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /cachedContents", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "models/gemini-2.5-flash", in["model"])
		assert.Equal(t, "600s", in["ttl"])
		assert.Equal(t, "manual", in["displayName"])
		assert.NotNil(t, in["systemInstruction"])
		assert.NotContains(t, in, "expireTime")
		_, _ = w.Write([]byte(`{"name":"cachedContents/abc","model":"models/gemini-2.5-flash",
			"expireTime":"2026-01-01T00:10:00Z","usageMetadata":{"totalTokenCount":40960}}`))
	})
	c := newClient(t, mux)

	e, err := c.Create(context.Background(), Config{
		Model:             "gemini-2.5-flash",
		Contents:          genai.Text("a very long manual"),
		TTL:               10 * time.Minute,
		DisplayName:       "manual",
		SystemInstruction: genai.NewContentFromText("Answer from the manual.", genai.RoleUser),
	})
	require.NoError(t, err)
	assert.Equal(t, "cachedContents/abc", e.Name)
	assert.EqualValues(t, 40960, e.UsageMetadata.TotalTokenCount)
	assert.Equal(t, 2026, e.ExpireTime.Year())

	_, err = c.Create(context.Background(), Config{Model: "m", TTL: time.Minute, ExpireTime: time.Now()})
	assert.Error(t, err)
}

func TestListPages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /cachedContents", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "50", r.URL.Query().Get("pageSize"))
		if r.URL.Query().Get("pageToken") == "" {
			_, _ = w.Write([]byte(`{"cachedContents":[{"name":"cachedContents/1"}],"nextPageToken":"t"}`))
			return
		}
		_, _ = w.Write([]byte(`{"cachedContents":[{"name":"cachedContents/2"}]}`))
	})
	entries, err := newClient(t, mux).List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "cachedContents/2", entries[1].Name)
}

func TestUpdate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /cachedContents/abc", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ttl", r.URL.Query().Get("updateMask"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "3600s", in["ttl"])
		_, _ = w.Write([]byte(`{"name":"cachedContents/abc"}`))
	})
	c := newClient(t, mux)

	e, err := c.Update(context.Background(), "cachedContents/abc", time.Hour, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "cachedContents/abc", e.Name)

	_, err = c.Update(context.Background(), "cachedContents/abc", 0, time.Time{})
	assert.Error(t, err)
}

func TestGetDeleteGenerate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /cachedContents/abc", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"cachedContents/abc","displayName":"manual"}`))
	})
	mux.HandleFunc("DELETE /cachedContents/abc", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("POST /models/gemini-2.5-flash:generateContent", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			CachedContent string `json:"cachedContent"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "cachedContents/abc", in.CachedContent)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Chapter 3."}]}}],
			"usageMetadata":{"promptTokenCount":41000,"cachedContentTokenCount":40960}}`))
	})
	c := newClient(t, mux)
	ctx := context.Background()

	e, err := c.Get(ctx, "cachedContents/abc")
	require.NoError(t, err)
	assert.Equal(t, "manual", e.DisplayName)

	resp, err := c.Generate(ctx, "gemini-2.5-flash", "cachedContents/abc", "Where is the reset procedure?")
	require.NoError(t, err)
	assert.Equal(t, "Chapter 3.", resp.Text())
	assert.EqualValues(t, 40960, resp.UsageMetadata.CachedContentTokenCount)

	require.NoError(t, c.Delete(ctx, "cachedContents/abc"))
}
