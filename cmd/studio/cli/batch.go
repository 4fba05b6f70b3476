package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/divaparadises/studio/batch"
	"github.com/divaparadises/studio/internal/genaiapi"
)

var (
	batchModel string
	batchName  string
	batchWait  bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run prompts as asynchronous batch jobs",
}

var batchCreateCmd = &cobra.Command{
	Use:   "create <prompts-file>",
	Short: "Submit one request per non-empty line of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requests, err := readRequests(args[0])
		if err != nil {
			return err
		}
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		model := batchModel
		if model == "" {
			model = cfg.Models.Text
		}
		job, err := s.Batch.Create(cmd.Context(), model, requests, batchName)
		if err != nil {
			return err
		}
		fmt.Println(job.Name)
		if !batchWait {
			return nil
		}
		job, err = s.Batch.Monitor(cmd.Context(), job.Name)
		if err != nil {
			return err
		}
		return printResponses(job)
	},
}

var batchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List batch jobs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		jobs, err := s.Batch.List(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(jobs)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDISPLAY NAME\tSTATE\tREQUESTS\tCREATED")
		for _, j := range jobs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", j.Name, j.DisplayName, j.State, j.Stats.RequestCount, j.CreateTime.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var batchGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Show a batch job and its results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		var job *batch.Job
		if batchWait {
			job, err = s.Batch.Monitor(cmd.Context(), args[0])
		} else {
			job, err = s.Batch.Get(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(job)
		}
		fmt.Printf("%s\t%s\n", job.Name, job.State)
		return printResponses(job)
	},
}

var batchCancelCmd = &cobra.Command{
	Use:   "cancel <name>",
	Short: "Cancel a running batch job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		return s.Batch.Cancel(cmd.Context(), args[0])
	},
}

var batchDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a batch job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		return s.Batch.Delete(cmd.Context(), args[0])
	},
}

func readRequests(path string) ([]batch.Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var requests []batch.Request
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			requests = append(requests, batch.TextRequest(line))
		}
	}
	return requests, sc.Err()
}

func printResponses(job *batch.Job) error {
	for i, r := range job.Responses() {
		switch {
		case r.Error != nil:
			fmt.Printf("[%d] error: %s\n", i, r.Error.Message)
		case r.Response != nil:
			_, answer := genaiapi.ResponseText(r.Response)
			fmt.Printf("[%d] %s\n", i, answer)
		}
	}
	return nil
}

func init() {
	batchCreateCmd.Flags().StringVar(&batchModel, "model", "", "model (default: the configured text model)")
	batchCreateCmd.Flags().StringVar(&batchName, "name", "", "display name")
	batchCreateCmd.Flags().BoolVar(&batchWait, "wait", false, "wait for the job and print its results")
	batchGetCmd.Flags().BoolVar(&batchWait, "wait", false, "wait until the job finishes")

	batchCmd.AddCommand(batchCreateCmd, batchListCmd, batchGetCmd, batchCancelCmd, batchDeleteCmd)
	rootCmd.AddCommand(batchCmd)
}
