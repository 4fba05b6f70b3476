package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/divaparadises/studio/text"
)

var (
	textTemperature float32
	textThinking    int32
	textThoughts    bool
	textMaxTokens   int32
	textSystem      string
)

var textCmd = &cobra.Command{
	Use:   "text",
	Short: "Generate text",
}

var textGenerateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "Answer a prompt",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		opts := &text.GenerateOptions{
			IncludeThoughts: textThoughts,
			MaxOutputTokens: textMaxTokens,
		}
		if cmd.Flags().Changed("temperature") {
			opts.Temperature = &textTemperature
		}
		if cmd.Flags().Changed("thinking-budget") {
			opts.ThinkingBudget = &textThinking
		}
		answer, err := s.Text.Generate(cmd.Context(), strings.Join(args, " "), opts)
		if err != nil {
			return err
		}
		fmt.Println(answer)
		return nil
	},
}

var textImageCmd = &cobra.Command{
	Use:   "image <image> <prompt>",
	Short: "Ask about a local image",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		answer, err := s.Text.GenerateWithImage(cmd.Context(), strings.Join(args[1:], " "), args[0])
		if err != nil {
			return err
		}
		fmt.Println(answer)
		return nil
	},
}

var textContextCmd = &cobra.Command{
	Use:   "context <file> <question>",
	Short: "Answer a question from the contents of a text file",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		answer, err := s.Text.GenerateWithContext(cmd.Context(), strings.Join(args[1:], " "), string(data))
		if err != nil {
			return err
		}
		fmt.Println(answer)
		return nil
	},
}

var textChatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat interactively, one message per line",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		client := s.Text
		if textSystem != "" {
			client = text.New(s.SDK.Models, text.WithModel(cfg.Models.Text), text.WithSystemInstruction(textSystem))
		}
		chat := client.StartChat(nil, nil)

		in := bufio.NewScanner(os.Stdin)
		fmt.Print("> ")
		for in.Scan() {
			line := strings.TrimSpace(in.Text())
			if line == "exit" || line == "quit" {
				return nil
			}
			if line != "" {
				answer, err := chat.Send(cmd.Context(), line)
				if err != nil {
					return err
				}
				fmt.Println(answer)
			}
			fmt.Print("> ")
		}
		return in.Err()
	},
}

func init() {
	textGenerateCmd.Flags().Float32Var(&textTemperature, "temperature", 1.0, "sampling temperature")
	textGenerateCmd.Flags().Int32Var(&textThinking, "thinking-budget", 0, "thinking token budget (0 disables thinking)")
	textGenerateCmd.Flags().BoolVar(&textThoughts, "thoughts", false, "include a summary of the model's thoughts")
	textGenerateCmd.Flags().Int32Var(&textMaxTokens, "max-tokens", 0, "maximum output tokens")
	textChatCmd.Flags().StringVar(&textSystem, "system", "", "system instruction")

	textCmd.AddCommand(textGenerateCmd, textImageCmd, textContextCmd, textChatCmd)
	rootCmd.AddCommand(textCmd)
}
