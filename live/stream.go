package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"

	"github.com/divaparadises/studio/internal/log"
)

// AudioStream frames raw PCM16 for a session.
type AudioStream struct {
	Rate      int // samples per second
	ChunkSize int // samples per chunk
	Channels  int
}

// NewAudioStream returns the microphone format Live expects: 16 kHz mono,
// 512-sample chunks.
func NewAudioStream() *AudioStream {
	return &AudioStream{Rate: 16000, ChunkSize: 512, Channels: 1}
}

// ChunkBytes is the size in bytes of a full chunk.
func (a *AudioStream) ChunkBytes() int {
	return a.ChunkSize * a.Channels * 2
}

// MIMEType describes the stream's samples.
func (a *AudioStream) MIMEType() string {
	return fmt.Sprintf("audio/pcm;rate=%d", a.Rate)
}

// Chunks reads r chunk by chunk. The last chunk may be short; a clean EOF
// ends the sequence without an error.
func (a *AudioStream) Chunks(r io.Reader) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for {
			buf := make([]byte, a.ChunkBytes())
			n, err := io.ReadFull(r, buf)
			if n > 0 && !yield(buf[:n], nil) {
				return
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

// Play writes decoded PCM to the output device w.
func (a *AudioStream) Play(w io.Writer, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	_, err := w.Write(data)
	return err
}

// ErrStop may be returned by a Run handler to end the session cleanly.
var ErrStop = errors.New("stop session")

// Run streams the audio chunks of in to s while handing every server message
// to handle. The send loop and the receive loop share one context: when
// either ends, the other is cancelled and s is closed. A send loop that
// exhausts in first signals the end of the audio stream and keeps the session
// open for the answer; handle returns ErrStop to finish.
//
// in is drained on its own goroutine, so Run returns as soon as the session
// ends even when in is blocked on a read; that goroutine exits once the
// pending read returns.
func Run(ctx context.Context, s *Session, in iter.Seq2[[]byte, error], handle func(*genai.LiveServerMessage) error) error {
	return runLoops(ctx, s.conn,
		func(ctx context.Context) error {
			chunks, readErr := pump(ctx, in)
		send:
			for {
				select {
				case <-ctx.Done():
					return nil
				case chunk, ok := <-chunks:
					if !ok {
						break send
					}
					if err := s.SendAudio(chunk); err != nil {
						return err
					}
				}
			}
			if ctx.Err() != nil {
				return nil
			}
			select {
			case err := <-readErr:
				return fmt.Errorf("reading audio: %w", err)
			default:
			}
			if err := s.SendAudioEnd(); err != nil {
				return err
			}
			<-ctx.Done()
			return nil
		},
		func(context.Context) error {
			for {
				msg, err := s.Receive()
				if err != nil {
					return err
				}
				if msg.GoAway != nil {
					log.Warnf("server will close the session in %s", msg.GoAway.TimeLeft)
				}
				if err := handle(msg); err != nil {
					return err
				}
			}
		})
}

// pump forwards the chunks of in until it is exhausted or ctx is done. A read
// error is delivered on the second channel before the first one closes.
func pump(ctx context.Context, in iter.Seq2[[]byte, error]) (<-chan []byte, <-chan error) {
	chunks := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		defer close(chunks)
		for chunk, err := range in {
			if err != nil {
				readErr <- err
				return
			}
			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return chunks, readErr
}

// RunMusic drives s from console lines (see ParseMusicCommand) while handing
// every server message to handle. "exit" or closing lines ends the session.
func RunMusic(ctx context.Context, s *MusicSession, lines <-chan string, handle func(*MusicMessage) error) error {
	prompts := []WeightedPrompt{{Text: "upbeat lofi hip hop", Weight: 1.0}}
	cfg := DefaultMusicConfig()
	return runLoops(ctx, s.conn,
		func(ctx context.Context) error {
			for {
				var line string
				select {
				case <-ctx.Done():
					return nil
				case l, ok := <-lines:
					if !ok {
						return nil
					}
					line = l
				}
				cmd, err := ParseMusicCommand(line)
				if err != nil {
					log.Warnf("%v", err)
					continue
				}
				switch {
				case cmd.Exit:
					return nil
				case cmd.Control == Play:
					// The model needs prompts and config before it can start.
					if err := s.SetPrompts(prompts...); err != nil {
						return err
					}
					if err := s.SetConfig(cfg); err != nil {
						return err
					}
					err = s.Control(Play)
				case cmd.Control != "":
					err = s.Control(cmd.Control)
				case cmd.Prompt != nil:
					prompts[0] = *cmd.Prompt
					err = s.SetPrompts(prompts...)
				default:
					if err := cfg.Set(cmd.Param, cmd.Value); err != nil {
						log.Warnf("%v", err)
						continue
					}
					err = s.SetConfig(cfg)
				}
				if err != nil {
					return err
				}
			}
		},
		func(context.Context) error {
			for {
				msg, err := s.Receive()
				if err != nil {
					return err
				}
				if msg.Warning != "" {
					log.Warnf("music server: %s", msg.Warning)
				}
				if f := msg.FilteredPrompt; f != nil {
					log.Warnf("prompt %q filtered: %s", f.Text, f.FilteredReason)
				}
				if err := handle(msg); err != nil {
					return err
				}
			}
		})
}

// runLoops runs send and recv in an errgroup. Whichever returns first
// cancels the other and closes the socket, which unblocks the reader. Errors
// a loop sees after the other one ended are the teardown, not failures.
func runLoops(parent context.Context, c *conn, send, recv func(context.Context) error) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	loop := func(fn func(context.Context) error) func() error {
		return func() error {
			defer cancel()
			err := fn(gctx)
			if gctx.Err() != nil || errors.Is(err, ErrStop) || errors.Is(err, ErrSessionClosed) {
				return nil
			}
			return err
		}
	}
	g.Go(loop(send))
	g.Go(loop(recv))
	g.Go(func() error {
		<-gctx.Done()
		if err := c.close(); err != nil {
			log.Debugf("closing session: %v", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return parent.Err()
}
