package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/divaparadises/studio/interactions"
)

var (
	interactModel  string
	interactStream bool
	interactSearch bool
	researchBG     bool
)

var interactCmd = &cobra.Command{
	Use:   "interact",
	Short: "Use the Interactions API",
}

var interactAskCmd = &cobra.Command{
	Use:   "ask <input>",
	Short: "Start one interaction",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		ic := interactions.Config{Model: interactModelName()}
		if interactSearch {
			ic.Tools = []interactions.Tool{{"type": "google_search"}}
		}
		input := strings.Join(args, " ")
		if interactStream {
			_, err := s.Interactions.Stream(cmd.Context(), input, ic, printDelta)
			fmt.Println()
			return err
		}
		it, err := s.Interactions.Create(cmd.Context(), input, ic)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(it)
		}
		fmt.Println(it.OutputText())
		return nil
	},
}

var interactChatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with history kept on the server, one message per line",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		conv := s.Interactions.NewConversation(interactions.Config{Model: interactModelName()})
		in := bufio.NewScanner(os.Stdin)
		fmt.Print("> ")
		for in.Scan() {
			line := strings.TrimSpace(in.Text())
			if line == "exit" || line == "quit" {
				return nil
			}
			if line != "" {
				answer, err := conv.Send(cmd.Context(), line)
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

var interactResearchCmd = &cobra.Command{
	Use:   "research <question>",
	Short: "Run the deep research agent",
	Long: `Run the deep research agent. By default the report is streamed as it
is written; with --background the command polls until the agent is done.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		ic := interactions.Config{
			Agent:       interactions.DeepResearchAgent,
			AgentConfig: interactions.DeepResearch(),
			Background:  researchBG,
		}
		input := strings.Join(args, " ")
		if !researchBG {
			_, err := s.Interactions.Stream(cmd.Context(), input, ic, printDelta)
			fmt.Println()
			return err
		}
		it, err := s.Interactions.Create(cmd.Context(), input, ic)
		if err != nil {
			return err
		}
		it, err = s.Interactions.Wait(cmd.Context(), it.ID)
		if err != nil {
			return err
		}
		fmt.Println(it.OutputText())
		return nil
	},
}

var interactGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show an interaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		it, err := s.Interactions.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(it)
	},
}

// printDelta writes streamed text as it arrives.
func printDelta(e interactions.Event) error {
	if e.Delta != nil && e.Delta.Type == "text" {
		fmt.Print(e.Delta.Text)
	}
	return nil
}

func interactModelName() string {
	if interactModel != "" {
		return interactModel
	}
	return cfg.Models.Text
}

func init() {
	for _, c := range []*cobra.Command{interactAskCmd, interactChatCmd} {
		c.Flags().StringVar(&interactModel, "model", "", "model (default: the configured text model)")
	}
	interactAskCmd.Flags().BoolVar(&interactStream, "stream", false, "stream the answer")
	interactAskCmd.Flags().BoolVar(&interactSearch, "search", false, "let the model use Google Search")
	interactResearchCmd.Flags().BoolVar(&researchBG, "background", false, "run in the background and poll")

	interactCmd.AddCommand(interactAskCmd, interactChatCmd, interactResearchCmd, interactGetCmd)
	rootCmd.AddCommand(interactCmd)
}
