package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/divaparadises/studio"
	"github.com/divaparadises/studio/embed"
)

var (
	flowOut    string
	songMood   string
	songGenre  string
	nanoDrafts int
	nanoSelect int
)

var flowCmd = &cobra.Command{
	Use:   "flow",
	Short: "Run workflows that chain several models",
}

var flowImagePromptCmd = &cobra.Command{
	Use:   "image-prompt <concept>",
	Short: "Expand a concept into a detailed image prompt",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		prompt, err := s.ImagePrompt(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Println(prompt)
		return nil
	},
}

var flowVideoPromptsCmd = &cobra.Command{
	Use:   "video-prompts <script-file>",
	Short: "Turn a script into one video prompt per scene",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		script, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		prompts, err := s.ScriptToVideoPrompts(cmd.Context(), string(script))
		if err != nil {
			return err
		}
		fmt.Println(prompts)
		return nil
	},
}

var flowSongCmd = &cobra.Command{
	Use:   "song",
	Short: "Write lyrics and chords for a song",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		song, err := s.SongStructure(cmd.Context(), songMood, songGenre)
		if err != nil {
			return err
		}
		fmt.Println(song)
		return nil
	},
}

var flowPodcastCmd = &cobra.Command{
	Use:   "podcast [topic]",
	Short: "Script and record a two-host podcast",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		res, err := s.Podcast(cmd.Context(), strings.Join(args, " "), flowOut)
		if err != nil {
			return err
		}
		fmt.Println(res.Script)
		fmt.Println()
		fmt.Println(res.Path)
		return nil
	},
}

var flowRAGCmd = &cobra.Command{
	Use:   "rag <question>",
	Short: "Answer from the sample knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		index := embed.NewIndex(s.Embed)
		if err := index.Add(cmd.Context(), studio.KnowledgeBase...); err != nil {
			return err
		}
		ans, err := s.AskWithRAG(cmd.Context(), index, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Printf("[source: %s, score %.3f]\n%s\n", ans.Source.Document.Title, ans.Source.Score, ans.Answer)
		return nil
	},
}

var flowNanoCmd = &cobra.Command{
	Use:   "nano [concept]",
	Short: "Draft images quickly, then render the chosen one in detail",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		res, err := s.NanoBanana(cmd.Context(), strings.Join(args, " "), &studio.NanoBananaOptions{
			Drafts: nanoDrafts,
			Select: nanoSelect,
			OutDir: flowOut,
		})
		if err != nil {
			return err
		}
		for _, d := range res.Drafts {
			fmt.Println(d)
		}
		fmt.Println(res.FinalPrompt)
		fmt.Println(res.Final)
		return nil
	},
}

func init() {
	flowPodcastCmd.Flags().StringVarP(&flowOut, "out", "o", "", "output WAV file")
	flowNanoCmd.Flags().StringVarP(&flowOut, "out", "o", "", "output directory")
	flowNanoCmd.Flags().IntVar(&nanoDrafts, "drafts", 4, "number of drafts")
	flowNanoCmd.Flags().IntVar(&nanoSelect, "select", 2, "draft to refine")
	flowSongCmd.Flags().StringVar(&songMood, "mood", "Melancholic", "mood")
	flowSongCmd.Flags().StringVar(&songGenre, "genre", "Synthwave", "genre")

	flowCmd.AddCommand(flowImagePromptCmd, flowVideoPromptsCmd, flowSongCmd, flowPodcastCmd, flowRAGCmd, flowNanoCmd)
	rootCmd.AddCommand(flowCmd)
}
