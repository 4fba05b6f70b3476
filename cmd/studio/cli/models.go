package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect the available models",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List models that support content generation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		list, err := s.Models.List(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(list)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "MODEL\tDISPLAY NAME\tINPUT\tOUTPUT\tTHINKING")
		for _, m := range list {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%t\n", m.Short(), m.DisplayName, m.InputTokenLimit, m.OutputTokenLimit, m.Thinking)
		}
		return w.Flush()
	},
}

var modelsGetCmd = &cobra.Command{
	Use:   "get <model>",
	Short: "Show one model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		info, err := s.Models.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(info)
	},
}

func init() {
	modelsCmd.AddCommand(modelsListCmd, modelsGetCmd)
	rootCmd.AddCommand(modelsCmd)
}
