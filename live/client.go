// Package live holds bidirectional WebSocket sessions with the Gemini Live
// API and the Lyria realtime music API, plus the PCM framing used to feed
// them.
package live

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"github.com/divaparadises/studio/internal/log"
)

// LiveEndpoint is the BidiGenerateContent WebSocket of the Gemini API.
const LiveEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

// InputMIMEType is the format of audio sent to a session.
const InputMIMEType = "audio/pcm;rate=16000"

// Client opens Live sessions.
type Client struct {
	apiKey string
	opts   dialOptions
}

// NewClient returns a client authenticating with apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	return &Client{apiKey: apiKey, opts: newDialOptions(LiveEndpoint, opts)}
}

// Connect dials the endpoint, sends the setup for cfg and waits until the
// server acknowledges it.
func (c *Client) Connect(ctx context.Context, cfg SessionConfig) (*Session, error) {
	cn, err := dial(ctx, c.opts, c.apiKey)
	if err != nil {
		return nil, err
	}
	setup := cfg.SetupMessage()
	if err := cn.handshake(ctx, clientMessage{Setup: setup}); err != nil {
		_ = cn.close()
		return nil, err
	}
	log.Infof("live session open on %s", setup.Model)
	return &Session{conn: cn, model: setup.Model}, nil
}

// Session is an open Live connection. Sends may be called concurrently
// with Receive; Receive itself must not be called concurrently.
type Session struct {
	conn  *conn
	model string
}

// Model returns the model the session talks to.
func (s *Session) Model() string { return s.model }

// SendRealtime sends one realtime input, e.g. audio, video frame or text.
func (s *Session) SendRealtime(in genai.LiveRealtimeInput) error {
	return s.conn.writeJSON(clientMessage{RealtimeInput: &in})
}

// SendText sends text as realtime input.
func (s *Session) SendText(text string) error {
	return s.SendRealtime(genai.LiveRealtimeInput{Text: text})
}

// SendAudio sends one chunk of 16 kHz mono PCM16.
func (s *Session) SendAudio(pcm []byte) error {
	return s.SendRealtime(genai.LiveRealtimeInput{Audio: &genai.Blob{Data: pcm, MIMEType: InputMIMEType}})
}

// SendAudioEnd tells the server the audio stream paused, so that it flushes
// what it buffered.
func (s *Session) SendAudioEnd() error {
	return s.SendRealtime(genai.LiveRealtimeInput{AudioStreamEnd: true})
}

// SendTurn sends a complete user turn in order with the conversation.
func (s *Session) SendTurn(text string) error {
	return s.conn.writeJSON(clientMessage{ClientContent: &clientContent{
		Turns:        []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		TurnComplete: true,
	}})
}

// SendToolResponse answers the function calls of a toolCall message.
func (s *Session) SendToolResponse(responses ...*genai.FunctionResponse) error {
	return s.conn.writeJSON(clientMessage{ToolResponse: &toolResponse{FunctionResponses: responses}})
}

// Receive blocks for the next server message. It returns an error wrapping
// ErrSessionClosed once the connection is gone.
func (s *Session) Receive() (*genai.LiveServerMessage, error) {
	var msg genai.LiveServerMessage
	if err := s.conn.readJSON(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Close ends the session.
func (s *Session) Close() error {
	return s.conn.close()
}

// MessageText returns the text parts of the model turn in msg, if any.
func MessageText(msg *genai.LiveServerMessage) string {
	if msg == nil || msg.ServerContent == nil || msg.ServerContent.ModelTurn == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range msg.ServerContent.ModelTurn.Parts {
		if p != nil && !p.Thought {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// MessageAudio returns the concatenated audio of the model turn in msg.
func MessageAudio(msg *genai.LiveServerMessage) []byte {
	if msg == nil || msg.ServerContent == nil || msg.ServerContent.ModelTurn == nil {
		return nil
	}
	var b []byte
	for _, p := range msg.ServerContent.ModelTurn.Parts {
		if p != nil && p.InlineData != nil && strings.HasPrefix(p.InlineData.MIMEType, "audio/") {
			b = append(b, p.InlineData.Data...)
		}
	}
	return b
}
