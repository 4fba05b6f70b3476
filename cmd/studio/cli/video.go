package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/divaparadises/studio/storage"
	"github.com/divaparadises/studio/video"
)

var (
	videoOpts  video.Options
	videoOut   string
	videoStore bool
)

var videoCmd = &cobra.Command{
	Use:   "video",
	Short: "Generate and analyze videos",
}

var videoGenerateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "Generate a video from a prompt",
	Long:  `Generate a video with Veo. The command waits for the operation to finish, which takes minutes.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		prompt := strings.Join(args, " ")
		path, err := s.Video.Generate(cmd.Context(), prompt, &videoOpts, videoOut)
		if err != nil {
			return err
		}
		return storeVideo(path, prompt)
	},
}

var videoAnimateCmd = &cobra.Command{
	Use:   "animate <image> <prompt>",
	Short: "Animate a still image",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		prompt := strings.Join(args[1:], " ")
		path, err := s.Video.Animate(cmd.Context(), args[0], prompt, &videoOpts, videoOut)
		if err != nil {
			return err
		}
		return storeVideo(path, prompt)
	},
}

var videoAnalyzeCmd = &cobra.Command{
	Use:   "analyze <video> <prompt>",
	Short: "Upload a video and ask about it",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		answer, err := s.VideoAnalyzer.Analyze(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Println(answer)
		return nil
	},
}

func storeVideo(path, prompt string) error {
	fmt.Println(path)
	if !videoStore {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return keep(storage.Video, data, prompt, map[string]any{"path": path})
}

func init() {
	for _, c := range []*cobra.Command{videoGenerateCmd, videoAnimateCmd} {
		c.Flags().StringVarP(&videoOut, "out", "o", "outputs/video.mp4", "output file")
		c.Flags().StringVar(&videoOpts.AspectRatio, "aspect", "16:9", "16:9 or 9:16")
		c.Flags().StringVar(&videoOpts.Resolution, "resolution", "", "720p or 1080p")
		c.Flags().StringVar(&videoOpts.NegativePrompt, "negative", "", "what the video should not contain")
		c.Flags().Int32Var(&videoOpts.DurationSeconds, "duration", 0, "length in seconds")
		c.Flags().BoolVar(&videoStore, "store", false, "also keep the result in the media store")
	}

	videoCmd.AddCommand(videoGenerateCmd, videoAnimateCmd, videoAnalyzeCmd)
	rootCmd.AddCommand(videoCmd)
}
