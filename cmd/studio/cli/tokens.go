package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"google.golang.org/genai"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Count tokens before sending a request",
}

var tokensTextCmd = &cobra.Command{
	Use:   "text <text>",
	Short: "Count the tokens of a text prompt",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		n, err := s.Tokens.Text(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}

var tokensFileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Upload a file and count its tokens",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		n, err := s.Tokens.File(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}

var tokensUsageCmd = &cobra.Command{
	Use:   "usage <prompt>",
	Short: "Answer a prompt and print the tokens it used",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		prompt := strings.Join(args, " ")
		resp, err := s.Text.GenerateContent(cmd.Context(), genai.Text(prompt), nil)
		if err != nil {
			return err
		}
		u := s.Tokens.Usage(resp)
		if jsonOut {
			return printJSON(u)
		}
		fmt.Printf("prompt=%d candidates=%d thoughts=%d cached=%d total=%d\n",
			u.Prompt, u.Candidates, u.Thoughts, u.Cached, u.Total)
		return nil
	},
}

func init() {
	tokensCmd.AddCommand(tokensTextCmd, tokensFileCmd, tokensUsageCmd)
	rootCmd.AddCommand(tokensCmd)
}
