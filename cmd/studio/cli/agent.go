package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/divaparadises/studio/agent"
)

var agentMaxTurns int

var agentCmd = &cobra.Command{
	Use:   "agent <task>",
	Short: "Let the model solve a task with the built-in tools",
	Long: `Let the model solve a task by calling the built-in tools: calculator,
get_system_time, search_database and the smart-home controls.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		home := &agent.Home{}
		o := s.Agent(home)
		o.MaxTurns = agentMaxTurns
		res, err := o.Run(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		for _, c := range res.Calls {
			fmt.Printf("-> %s(%v)\n", c.Name, c.Args)
		}
		fmt.Println(res.Text)
		return nil
	},
}

func init() {
	agentCmd.Flags().IntVar(&agentMaxTurns, "max-turns", agent.DefaultMaxTurns, "maximum model turns")
	rootCmd.AddCommand(agentCmd)
}
