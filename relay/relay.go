// Package relay serves a browser page that talks to a Gemini Live model
// through this server: audio from the microphone goes up the page's
// WebSocket, model messages come back down it.
package relay

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"

	"github.com/divaparadises/studio/internal/log"
)

const (
	DefaultModel       = "gemini-live-2.5-flash-preview"
	DefaultInstruction = "You are Diva, a friendly creative assistant. Keep your answers short and conversational."
	DefaultVoice       = "Puck"
)

// Session is one live conversation with a model.
type Session interface {
	SendRealtimeInput(input genai.LiveRealtimeInput) error
	Receive() (*genai.LiveServerMessage, error)
	Close() error
}

// Connector opens live sessions.
type Connector interface {
	Connect(ctx context.Context, model string, cfg *genai.LiveConnectConfig) (Session, error)
}

// SDKConnector opens sessions with the genai client.
type SDKConnector struct {
	Client *genai.Client
}

func (c SDKConnector) Connect(ctx context.Context, model string, cfg *genai.LiveConnectConfig) (Session, error) {
	return c.Client.Live.Connect(ctx, model, cfg)
}

// Config tunes the sessions opened by a Server.
type Config struct {
	Model             string
	SystemInstruction string
	Voice             string
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.SystemInstruction == "" {
		c.SystemInstruction = DefaultInstruction
	}
	if c.Voice == "" {
		c.Voice = DefaultVoice
	}
	return c
}

// liveConfig answers in audio with both sides transcribed. Voice activity
// detection is tuned for quick turn taking.
func (c Config) liveConfig() *genai.LiveConnectConfig {
	short := int32(100)
	return &genai.LiveConnectConfig{
		SystemInstruction: genai.NewContentFromText(c.SystemInstruction, genai.RoleUser),
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: c.Voice},
			},
		},
		ResponseModalities:       []genai.Modality{genai.ModalityAudio},
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
		RealtimeInputConfig: &genai.RealtimeInputConfig{
			AutomaticActivityDetection: &genai.AutomaticActivityDetection{
				StartOfSpeechSensitivity: genai.StartSensitivityHigh,
				EndOfSpeechSensitivity:   genai.EndSensitivityHigh,
				PrefixPaddingMs:          &short,
				SilenceDurationMs:        &short,
			},
		},
	}
}

// Server bridges browser WebSockets to live sessions.
type Server struct {
	connector Connector
	cfg       Config
	upgrader  websocket.Upgrader
	page      *template.Template
}

//go:embed assets/live.html
var pageHTML string

// NewServer returns a server opening sessions through connector.
func NewServer(connector Connector, cfg Config) *Server {
	return &Server{
		connector: connector,
		cfg:       cfg.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:   4 * 1024,
			WriteBufferSize:  32 * 1024,
			HandshakeTimeout: 5 * time.Second,
			CheckOrigin:      func(r *http.Request) bool { return true },
		},
		page: template.Must(template.New("live").Parse(pageHTML)),
	}
}

// Handler routes / to the page, /live/{model} to the bridge and /healthz
// to a liveness probe. The model "default" selects the configured one.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.servePage).Methods(http.MethodGet)
	r.HandleFunc("/live/{model}", s.serveLive)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct{ Model, Voice string }{s.cfg.Model, s.cfg.Voice}
	if err := s.page.Execute(w, data); err != nil {
		http.Error(w, "Error executing template", http.StatusInternalServerError)
	}
}

func (s *Server) serveLive(w http.ResponseWriter, r *http.Request) {
	model := mux.Vars(r)["model"]
	if model == "default" {
		model = s.cfg.Model
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		log.Warnf("upgrade: %v", err)
		return
	}
	defer ws.Close()

	logger := log.With("session", uuid.NewString(), "model", model)
	logger.Info("session started")

	session, err := s.connector.Connect(r.Context(), model, s.cfg.liveConfig())
	if err != nil {
		logger.Errorw("connect to model", zap.Error(err))
		ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "model unavailable"))
		return
	}

	err = bridge(r.Context(), ws, session, logger)
	if err != nil {
		logger.Warnw("session ended", zap.Error(err))
		return
	}
	logger.Info("session ended")
}

// bridge pumps browser input to session and session output to the browser
// until either side goes away. Both ends are closed on return.
func bridge(ctx context.Context, ws *websocket.Conn, session Session, logger *zap.SugaredLogger) error {
	g, gctx := errgroup.WithContext(ctx)

	// Every loop below ends with an error, which cancels gctx.
	g.Go(func() error {
		<-gctx.Done()
		session.Close()
		ws.Close()
		return nil
	})

	g.Go(func() error {
		// Browser to model.
		for {
			_, msg, err := ws.ReadMessage()
			if err != nil {
				return clientGone(err)
			}
			var in genai.LiveRealtimeInput
			if err := json.Unmarshal(msg, &in); err != nil {
				logger.Warnw("dropping malformed client message", zap.Error(err))
				continue
			}
			if err := session.SendRealtimeInput(in); err != nil {
				return fmt.Errorf("send to model: %w", err)
			}
		}
	})

	g.Go(func() error {
		// Model to browser.
		for {
			msg, err := session.Receive()
			if err != nil {
				return modelGone(err)
			}
			if sc := msg.ServerContent; sc != nil && sc.OutputTranscription != nil {
				logger.Debugf("model says %q", sc.OutputTranscription.Text)
			}
			b, err := json.Marshal(msg)
			if err != nil {
				return err
			}
			if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
				return clientGone(err)
			}
		}
	})

	if err := g.Wait(); !errors.Is(err, errEnded) {
		return err
	}
	return nil
}

var errEnded = errors.New("relay: peer closed")

func clientGone(err error) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) ||
		errors.Is(err, net.ErrClosed) {
		return errEnded
	}
	return fmt.Errorf("client: %w", err)
}

func modelGone(err error) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
		errors.Is(err, net.ErrClosed) {
		return errEnded
	}
	return fmt.Errorf("model: %w", err)
}
