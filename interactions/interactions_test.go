package interactions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divaparadises/studio/internal/rest"
)

func newClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return NewClient(rest.New(ts.URL, "key", rest.WithHTTPClient(ts.Client()), rest.WithMaxRetries(0)), time.Millisecond)
}

func TestConfigRequest(t *testing.T) {
	_, err := Config{}.request("hi", false)
	assert.Error(t, err)
	_, err = Config{Model: "m", Agent: "a"}.request("hi", false)
	assert.Error(t, err)

	r, err := Config{Model: "gemini-2.5-flash", AgentConfig: DeepResearch()}.request("hi", true)
	require.NoError(t, err)
	assert.Nil(t, r.AgentConfig)
	assert.True(t, r.Stream)

	r, err = Config{Agent: DeepResearchAgent, AgentConfig: DeepResearch(), Background: true}.request("topic", false)
	require.NoError(t, err)
	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"agent":"deep-research-pro-preview-12-2025",
		"agent_config":{"type":"deep-research","thinking_summaries":"auto"},
		"background":true,"input":"topic"}`, string(b))
}

func TestOutputText(t *testing.T) {
	it := &Interaction{Outputs: []Output{
		{Type: "thought", Summary: json.RawMessage(`"planning"`)},
		{Type: "text", Text: "first"},
		{Type: "text", Text: "second"},
	}}
	assert.Equal(t, "first\nsecond", it.OutputText())
	assert.Empty(t, (&Interaction{}).OutputText())
}

func TestConversationChainsTurns(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
		n    atomic.Int32
	)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /interactions", func(w http.ResponseWriter, r *http.Request) {
		var in createRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		mu.Lock()
		seen = append(seen, in.PreviousInteractionID)
		mu.Unlock()
		id := fmt.Sprintf("int-%d", n.Add(1))
		_ = json.NewEncoder(w).Encode(Interaction{ID: id, Status: StatusCompleted,
			Outputs: []Output{{Type: "text", Text: "echo " + in.Input}}})
	})
	c := newClient(t, mux)
	cv := c.NewConversation(Config{Model: "gemini-3-flash-preview"})
	ctx := context.Background()

	got, err := cv.Send(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "echo hello", got)
	got, err = cv.Send(ctx, "again")
	require.NoError(t, err)
	assert.Equal(t, "echo again", got)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"", "int-1"}, seen)
	assert.Equal(t, "int-2", cv.LastID())
}

func TestWait(t *testing.T) {
	statuses := []Status{StatusInProgress, StatusInProgress, StatusCompleted}
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /interactions/{id}", func(w http.ResponseWriter, r *http.Request) {
		i := min(int(calls.Add(1))-1, len(statuses)-1)
		status := statuses[i]
		if r.PathValue("id") == "bad" {
			status = StatusFailed
		}
		_ = json.NewEncoder(w).Encode(Interaction{ID: r.PathValue("id"), Status: status,
			Outputs: []Output{{Type: "text", Text: "report"}}})
	})
	c := newClient(t, mux)

	it, err := c.Wait(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "report", it.OutputText())
	assert.EqualValues(t, 3, calls.Load())

	_, err = c.Wait(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrInteractionFailed)
}

func TestStream(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /interactions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		var in createRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.True(t, in.Stream)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: interaction.start\n")
		fmt.Fprint(w, `data: {"event_type":"interaction.start","interaction":{"id":"s1","status":"in_progress"}}`+"\n\n")
		fmt.Fprint(w, `data: {"event_type":"content.delta","delta":{"type":"text","text":"Hel"}}`+"\n\n")
		fmt.Fprint(w, `data: {"event_type":"content.delta","delta":{"type":"text","text":"lo"}}`+"\n\n")
		fmt.Fprint(w, `data: {"event_type":"interaction.complete","interaction":{"id":"s1","status":"completed"}}`+"\n\n")
	})
	c := newClient(t, mux)

	var text string
	var types []string
	it, err := c.Stream(context.Background(), "hi", Config{Model: "gemini-2.5-flash"}, func(e Event) error {
		types = append(types, e.Type)
		if e.Delta != nil {
			text += e.Delta.Text
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello", text)
	assert.Equal(t, []string{"interaction.start", "content.delta", "content.delta", "interaction.complete"}, types)
	require.NotNil(t, it)
	assert.Equal(t, StatusCompleted, it.Status)
}
