package live

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"google.golang.org/genai"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeServer accepts one socket per connection, answers the setup and then
// hands every client message to serve.
type fakeServer struct {
	t        *testing.T
	url      string
	mu       sync.Mutex
	setup    map[string]any
	received []map[string]any
}

func newFakeServer(t *testing.T, serve func(ws *websocket.Conn, msg map[string]any)) *fakeServer {
	t.Helper()
	fs := &fakeServer{t: t}
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		var setup map[string]any
		if err := ws.ReadJSON(&setup); err != nil {
			return
		}
		fs.mu.Lock()
		fs.setup = setup
		fs.mu.Unlock()
		if err := ws.WriteJSON(map[string]any{"setupComplete": map[string]any{}}); err != nil {
			return
		}
		for {
			var msg map[string]any
			if err := ws.ReadJSON(&msg); err != nil {
				return
			}
			fs.mu.Lock()
			fs.received = append(fs.received, msg)
			fs.mu.Unlock()
			if serve != nil {
				serve(ws, msg)
			}
		}
	}))
	t.Cleanup(ts.Close)
	fs.url = "ws" + strings.TrimPrefix(ts.URL, "http")
	return fs
}

func (fs *fakeServer) Setup() map[string]any {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.setup
}

func (fs *fakeServer) Received() []map[string]any {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]map[string]any(nil), fs.received...)
}

func modelText(ws *websocket.Conn, text string, complete bool) {
	_ = ws.WriteJSON(map[string]any{"serverContent": map[string]any{
		"modelTurn":    map[string]any{"role": "model", "parts": []any{map[string]any{"text": text}}},
		"turnComplete": complete,
	}})
}

func TestSetResponseModality(t *testing.T) {
	cfg := DefaultSessionConfig()
	require.NoError(t, cfg.SetResponseModality("text"))
	assert.Equal(t, []string{"TEXT"}, cfg.Generation.ResponseModalities)
	assert.Error(t, cfg.SetResponseModality("VIDEO"))
	assert.Equal(t, []string{"TEXT"}, cfg.Generation.ResponseModalities)
}

func TestSetupMessage(t *testing.T) {
	cfg := DefaultSessionConfig()
	cfg.SetVoice("Puck")
	b, err := json.Marshal(clientMessage{Setup: cfg.SetupMessage()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"setup":{
		"model":"models/gemini-2.0-flash-exp",
		"generationConfig":{"responseModalities":["AUDIO"],"candidateCount":1,"maxOutputTokens":2048,
			"temperature":0.7,"topP":0.95,
			"speechConfig":{"voiceConfig":{"prebuiltVoiceConfig":{"voiceName":"Puck"}}}},
		"systemInstruction":{"parts":[{"text":"You are a helpful AI assistant."}]}}}`, string(b))

	cfg = SessionConfig{Model: "gemini-live-2.5-flash-preview", Transcribe: true}
	s := cfg.SetupMessage()
	assert.Equal(t, "models/gemini-live-2.5-flash-preview", s.Model)
	assert.Nil(t, s.SystemInstruction)
	assert.NotNil(t, s.InputAudioTranscription)
}

func TestSessionTextRoundTrip(t *testing.T) {
	fs := newFakeServer(t, func(ws *websocket.Conn, msg map[string]any) {
		if in, ok := msg["realtimeInput"].(map[string]any); ok && in["text"] != nil {
			modelText(ws, "echo: "+in["text"].(string), true)
		}
	})
	c := NewClient("test-key", WithEndpoint(fs.url))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := c.Connect(ctx, DefaultSessionConfig())
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "models/gemini-2.0-flash-exp", fs.Setup()["setup"].(map[string]any)["model"])

	require.NoError(t, s.SendText("hello"))
	msg, err := s.Receive()
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", MessageText(msg))
	assert.True(t, msg.ServerContent.TurnComplete)

	require.NoError(t, s.Close())
	_, err = s.Receive()
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.NoError(t, s.Close())
}

func TestSendAudioPayload(t *testing.T) {
	got := make(chan map[string]any, 1)
	fs := newFakeServer(t, func(_ *websocket.Conn, msg map[string]any) { got <- msg })
	s, err := NewClient("test-key", WithEndpoint(fs.url)).Connect(context.Background(), DefaultSessionConfig())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SendAudio([]byte{1, 2, 3, 4}))
	msg := <-got
	audio := msg["realtimeInput"].(map[string]any)["audio"].(map[string]any)
	assert.Equal(t, "audio/pcm;rate=16000", audio["mimeType"])
	assert.Equal(t, "AQIDBA==", audio["data"])
}

func TestConnectSetupTimeout(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := NewClient("", WithEndpoint("ws"+strings.TrimPrefix(ts.URL, "http"))).Connect(ctx, DefaultSessionConfig())
	assert.Error(t, err)
}

func TestAudioStreamChunks(t *testing.T) {
	a := NewAudioStream()
	assert.Equal(t, 1024, a.ChunkBytes())
	assert.Equal(t, "audio/pcm;rate=16000", a.MIMEType())

	var sizes []int
	for chunk, err := range a.Chunks(bytes.NewReader(make([]byte, 2500))) {
		require.NoError(t, err)
		sizes = append(sizes, len(chunk))
	}
	assert.Equal(t, []int{1024, 1024, 452}, sizes)

	var out bytes.Buffer
	require.NoError(t, a.Play(&out, []byte{9, 9}))
	assert.Equal(t, []byte{9, 9}, out.Bytes())
}

func TestRun(t *testing.T) {
	fs := newFakeServer(t, func(ws *websocket.Conn, msg map[string]any) {
		in, _ := msg["realtimeInput"].(map[string]any)
		if in["audioStreamEnd"] == true {
			_ = ws.WriteJSON(map[string]any{"serverContent": map[string]any{
				"modelTurn": map[string]any{"parts": []any{map[string]any{
					"inlineData": map[string]any{"mimeType": "audio/pcm;rate=24000", "data": "AAE="},
				}}},
			}})
			modelText(ws, "done", true)
		}
	})
	s, err := NewClient("test-key", WithEndpoint(fs.url)).Connect(context.Background(), DefaultSessionConfig())
	require.NoError(t, err)

	var played bytes.Buffer
	stream := NewAudioStream()
	err = Run(context.Background(), s, stream.Chunks(bytes.NewReader(make([]byte, 3000))), func(msg *genai.LiveServerMessage) error {
		assert.NoError(t, stream.Play(&played, MessageAudio(msg)))
		if msg.ServerContent != nil && msg.ServerContent.TurnComplete {
			return ErrStop
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1}, played.Bytes())

	var audioChunks int
	for _, m := range fs.Received() {
		if in, ok := m["realtimeInput"].(map[string]any); ok && in["audio"] != nil {
			audioChunks++
		}
	}
	assert.Equal(t, 3, audioChunks)

	_, err = s.Receive()
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestRunReturnsWhileInputBlocked(t *testing.T) {
	fs := newFakeServer(t, func(ws *websocket.Conn, msg map[string]any) {
		if in, ok := msg["realtimeInput"].(map[string]any); ok && in["audio"] != nil {
			modelText(ws, "heard you", true)
		}
	})
	s, err := NewClient("test-key", WithEndpoint(fs.url)).Connect(context.Background(), DefaultSessionConfig())
	require.NoError(t, err)

	release := make(chan struct{})
	defer close(release)
	idle := func(yield func([]byte, error) bool) {
		if !yield([]byte{1, 2}, nil) {
			return
		}
		<-release
	}

	done := make(chan error, 1)
	go func() {
		done <- Run(context.Background(), s, idle, func(msg *genai.LiveServerMessage) error {
			if msg.ServerContent != nil && msg.ServerContent.TurnComplete {
				return ErrStop
			}
			return nil
		})
	}()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run blocked on idle input")
	}
}

func TestRunInputError(t *testing.T) {
	fs := newFakeServer(t, nil)
	s, err := NewClient("test-key", WithEndpoint(fs.url)).Connect(context.Background(), DefaultSessionConfig())
	require.NoError(t, err)

	broken := func(yield func([]byte, error) bool) {
		yield(nil, errors.New("mic unplugged"))
	}
	err = Run(context.Background(), s, broken, func(*genai.LiveServerMessage) error { return nil })
	assert.ErrorContains(t, err, "mic unplugged")
}

func TestRunParentCancelled(t *testing.T) {
	fs := newFakeServer(t, nil)
	s, err := NewClient("test-key", WithEndpoint(fs.url)).Connect(context.Background(), DefaultSessionConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = Run(ctx, s, NewAudioStream().Chunks(bytes.NewReader(nil)), func(*genai.LiveServerMessage) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
