package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"google.golang.org/genai"

	"github.com/divaparadises/studio/agent"
	"github.com/divaparadises/studio/internal/log"
	"github.com/divaparadises/studio/live"
)

var (
	liveIn     string
	liveOut    string
	liveVoice  string
	liveSystem string
	liveTools  bool
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Talk to a model over a Live session",
}

var liveTalkCmd = &cobra.Command{
	Use:   "talk",
	Short: "Stream 16 kHz mono PCM16 in and write the spoken answer out",
	Long: `Stream raw 16 kHz mono PCM16 audio from --in (stdin by default) to a
Live session and write the model's 24 kHz PCM16 answer to --out (stdout by
default), e.g.

  arecord -f S16_LE -r 16000 -c 1 -t raw | studio live talk | aplay -f S16_LE -r 24000 -c 1`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		in, closeIn, err := openInput(liveIn)
		if err != nil {
			return err
		}
		defer closeIn()
		out, closeOut, err := openOutput(liveOut)
		if err != nil {
			return err
		}
		defer closeOut()

		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		sc := liveSessionConfig()
		sc.Transcribe = true
		sess, err := s.Live.Connect(cmd.Context(), sc)
		if err != nil {
			return err
		}
		defer sess.Close()

		stream := live.NewAudioStream()
		return live.Run(cmd.Context(), sess, stream.Chunks(in), func(msg *genai.LiveServerMessage) error {
			if c := msg.ServerContent; c != nil {
				if c.InputTranscription != nil && c.InputTranscription.Text != "" {
					log.Infof("you: %s", c.InputTranscription.Text)
				}
				if c.OutputTranscription != nil && c.OutputTranscription.Text != "" {
					log.Infof("model: %s", c.OutputTranscription.Text)
				}
			}
			return stream.Play(out, live.MessageAudio(msg))
		})
	},
}

var liveChatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat in text over a Live session, one message per line",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		sc := liveSessionConfig()
		if err := sc.SetResponseModality("TEXT"); err != nil {
			return err
		}
		var registry *agent.Registry
		if liveTools {
			registry = agent.DefaultRegistry(&agent.Home{})
			sc.Tools = []*genai.Tool{registry.Tool()}
		}
		sess, err := s.Live.Connect(cmd.Context(), sc)
		if err != nil {
			return err
		}
		defer sess.Close()

		in := bufio.NewScanner(os.Stdin)
		fmt.Print("> ")
		for in.Scan() {
			line := strings.TrimSpace(in.Text())
			if line == "exit" || line == "quit" {
				return nil
			}
			if line != "" {
				if err := sess.SendTurn(line); err != nil {
					return err
				}
				if err := readTurn(cmd, sess, registry); err != nil {
					return err
				}
				fmt.Println()
			}
			fmt.Print("> ")
		}
		return in.Err()
	},
}

// readTurn prints the model's answer until the turn completes, running
// any tool calls on the way.
func readTurn(cmd *cobra.Command, sess *live.Session, registry *agent.Registry) error {
	for {
		msg, err := sess.Receive()
		if err != nil {
			return err
		}
		if tc := msg.ToolCall; tc != nil && registry != nil {
			responses := make([]*genai.FunctionResponse, 0, len(tc.FunctionCalls))
			for _, call := range tc.FunctionCalls {
				log.Infof("tool call %s(%v)", call.Name, call.Args)
				responses = append(responses, registry.Execute(cmd.Context(), call))
			}
			if err := sess.SendToolResponse(responses...); err != nil {
				return err
			}
			continue
		}
		fmt.Print(live.MessageText(msg))
		if msg.ServerContent != nil && msg.ServerContent.TurnComplete {
			return nil
		}
	}
}

var musicCmd = &cobra.Command{
	Use:   "music",
	Short: "Steer a realtime music session from the keyboard",
	Long: `Open a Lyria realtime session and write its 48 kHz stereo PCM16 to --out.
Commands are read from stdin, one per line:

  play | pause | stop | reset | quit
  p: <prompt>[:weight]      replace the prompt
  bpm: 140                  set a parameter (bpm, temperature, guidance, density, brightness, topk)`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, closeOut, err := openOutput(liveOut)
		if err != nil {
			return err
		}
		defer closeOut()

		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		sess, err := s.Music.Connect(cmd.Context())
		if err != nil {
			return err
		}
		defer sess.Close()

		lines := make(chan string)
		go func() {
			defer close(lines)
			in := bufio.NewScanner(os.Stdin)
			for in.Scan() {
				select {
				case lines <- in.Text():
				case <-cmd.Context().Done():
					return
				}
			}
		}()
		return live.RunMusic(cmd.Context(), sess, lines, func(msg *live.MusicMessage) error {
			if msg.FilteredPrompt != nil {
				log.Warnf("prompt %q filtered: %s", msg.FilteredPrompt.Text, msg.FilteredPrompt.FilteredReason)
			}
			_, err := out.Write(msg.Audio())
			return err
		})
	},
}

func liveSessionConfig() live.SessionConfig {
	sc := live.DefaultSessionConfig()
	if cfg.Models.Live != "" {
		sc.Model = cfg.Models.Live
	}
	if liveSystem != "" {
		sc.SystemInstruction = liveSystem
	}
	if liveVoice != "" {
		sc.SetVoice(liveVoice)
	}
	return sc
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func init() {
	liveTalkCmd.Flags().StringVar(&liveIn, "in", "-", "raw PCM input file")
	for _, c := range []*cobra.Command{liveTalkCmd, musicCmd} {
		c.Flags().StringVarP(&liveOut, "out", "o", "-", "raw PCM output file")
	}
	for _, c := range []*cobra.Command{liveTalkCmd, liveChatCmd} {
		c.Flags().StringVar(&liveVoice, "voice", "", "prebuilt voice name")
		c.Flags().StringVar(&liveSystem, "system", "", "system instruction")
	}
	liveChatCmd.Flags().BoolVar(&liveTools, "tools", false, "let the model call the built-in tools")

	liveCmd.AddCommand(liveTalkCmd, liveChatCmd)
	rootCmd.AddCommand(liveCmd, musicCmd)
}
