package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/divaparadises/studio/audio"
	"github.com/divaparadises/studio/storage"
)

var (
	audioVoice    string
	audioOut      string
	audioStore    bool
	audioSpeakers []string
)

var audioCmd = &cobra.Command{
	Use:   "audio",
	Short: "Synthesize speech and analyze audio",
}

var audioSpeakCmd = &cobra.Command{
	Use:   "speak <text>",
	Short: "Read text aloud into a WAV file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		input := strings.Join(args, " ")
		path, err := s.Speech.Speak(cmd.Context(), input, audioVoice, audioOut)
		if err != nil {
			return err
		}
		return storeAudio(path, input)
	},
}

var audioDialogueCmd = &cobra.Command{
	Use:   "dialogue <transcript-file>",
	Short: "Voice a two-speaker transcript",
	Long: `Voice a transcript whose lines start with "Name:". Speakers are given
as name=voice pairs, e.g. --speaker Nova=Puck --speaker Zen=Charon.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		speakers, err := parseSpeakers(audioSpeakers)
		if err != nil {
			return err
		}
		script, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		path, err := s.Speech.Podcast(cmd.Context(), string(script), speakers, audioOut)
		if err != nil {
			return err
		}
		return storeAudio(path, string(script))
	},
}

var audioTranscribeCmd = &cobra.Command{
	Use:   "transcribe <audio>",
	Short: "Transcribe speech with speakers, timestamps and emotions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		t, err := s.Transcriber.Transcribe(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(t)
		}
		for _, seg := range t.Segments {
			fmt.Printf("[%s] %s (%s): %s\n", seg.Timestamp, seg.Speaker, seg.Emotion, seg.Transcript)
		}
		return nil
	},
}

var audioDescribeCmd = &cobra.Command{
	Use:   "describe <audio> [prompt]",
	Short: "Ask about an audio file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		prompt := strings.Join(args[1:], " ")
		if prompt == "" {
			prompt = "Describe this audio clip."
		}
		answer, err := s.Transcriber.Describe(cmd.Context(), args[0], prompt)
		if err != nil {
			return err
		}
		fmt.Println(answer)
		return nil
	},
}

func parseSpeakers(pairs []string) ([]audio.Speaker, error) {
	speakers := make([]audio.Speaker, 0, len(pairs))
	for _, p := range pairs {
		name, voice, ok := strings.Cut(p, "=")
		if !ok || name == "" || voice == "" {
			return nil, fmt.Errorf("invalid speaker %q: expected NAME=VOICE", p)
		}
		speakers = append(speakers, audio.Speaker{Name: name, Voice: voice})
	}
	return speakers, nil
}

func storeAudio(path, prompt string) error {
	fmt.Println(path)
	if !audioStore {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return keep(storage.Audio, data, prompt, map[string]any{"path": path})
}

func init() {
	for _, c := range []*cobra.Command{audioSpeakCmd, audioDialogueCmd} {
		c.Flags().StringVarP(&audioOut, "out", "o", "outputs/speech.wav", "output WAV file")
		c.Flags().BoolVar(&audioStore, "store", false, "also keep the result in the media store")
	}
	audioSpeakCmd.Flags().StringVar(&audioVoice, "voice", "Kore", "prebuilt voice name")
	audioDialogueCmd.Flags().StringArrayVar(&audioSpeakers, "speaker", []string{"Nova=Puck", "Zen=Charon"}, "speaker as NAME=VOICE")

	audioCmd.AddCommand(audioSpeakCmd, audioDialogueCmd, audioTranscribeCmd, audioDescribeCmd)
	rootCmd.AddCommand(audioCmd)
}
