package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var docsPrompt string

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Analyze PDFs and other documents",
}

var docsAnalyzeCmd = &cobra.Command{
	Use:   "analyze <file> [prompt]",
	Short: "Ask about a document",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		prompt := strings.Join(args[1:], " ")
		if prompt == "" {
			prompt = "Summarize this document."
		}
		answer, err := s.Docs.Analyze(cmd.Context(), args[0], prompt)
		if err != nil {
			return err
		}
		fmt.Println(answer)
		return nil
	},
}

var docsCompareCmd = &cobra.Command{
	Use:   "compare <file> <file>...",
	Short: "Compare several documents",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		answer, err := s.Docs.Compare(cmd.Context(), args, docsPrompt)
		if err != nil {
			return err
		}
		fmt.Println(answer)
		return nil
	},
}

func init() {
	docsCompareCmd.Flags().StringVarP(&docsPrompt, "prompt", "p", "What are the key differences between these documents?", "question")

	docsCmd.AddCommand(docsAnalyzeCmd, docsCompareCmd)
	rootCmd.AddCommand(docsCmd)
}
