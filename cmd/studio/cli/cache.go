package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/genai"

	"github.com/divaparadises/studio/cache"
	"github.com/divaparadises/studio/files"
	"github.com/divaparadises/studio/internal/genaiapi"
)

var (
	cacheModel  string
	cacheTTL    time.Duration
	cacheName   string
	cacheSystem string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Cache large contexts and query them cheaply",
}

var cacheCreateCmd = &cobra.Command{
	Use:   "create <file>",
	Short: "Upload a file and cache it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		f, err := s.Files.UploadAndWait(cmd.Context(), args[0], nil)
		if err != nil {
			return err
		}
		cc := cache.Config{
			Model:       cacheModelName(),
			Contents:    []*genai.Content{genai.NewContentFromParts([]*genai.Part{files.Part(f)}, genai.RoleUser)},
			TTL:         cacheTTL,
			DisplayName: cacheName,
		}
		if cacheSystem != "" {
			cc.SystemInstruction = genai.NewContentFromText(cacheSystem, genai.RoleUser)
		}
		e, err := s.Cache.Create(cmd.Context(), cc)
		if err != nil {
			return err
		}
		fmt.Println(e.Name)
		return nil
	},
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List caches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		entries, err := s.Cache.List(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(entries)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDISPLAY NAME\tMODEL\tTOKENS\tEXPIRES")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", e.Name, e.DisplayName, e.Model, e.UsageMetadata.TotalTokenCount, e.ExpireTime.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

var cacheGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Show a cache",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		e, err := s.Cache.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(e)
	},
}

var cacheExtendCmd = &cobra.Command{
	Use:   "extend <name>",
	Short: "Set a new time to live",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		e, err := s.Cache.Update(cmd.Context(), args[0], cacheTTL, time.Time{})
		if err != nil {
			return err
		}
		fmt.Println(e.ExpireTime.Format(time.RFC3339))
		return nil
	},
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a cache",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		return s.Cache.Delete(cmd.Context(), args[0])
	},
}

var cacheAskCmd = &cobra.Command{
	Use:   "ask <name> <prompt>",
	Short: "Answer a prompt against a cache",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		resp, err := s.Cache.Generate(cmd.Context(), cacheModelName(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		_, answer := genaiapi.ResponseText(resp)
		fmt.Println(answer)
		return nil
	},
}

func cacheModelName() string {
	if cacheModel != "" {
		return cacheModel
	}
	return cfg.Models.Text
}

func init() {
	for _, c := range []*cobra.Command{cacheCreateCmd, cacheAskCmd} {
		c.Flags().StringVar(&cacheModel, "model", "", "model (default: the configured text model)")
	}
	for _, c := range []*cobra.Command{cacheCreateCmd, cacheExtendCmd} {
		c.Flags().DurationVar(&cacheTTL, "ttl", time.Hour, "time to live")
	}
	cacheCreateCmd.Flags().StringVar(&cacheName, "name", "", "display name")
	cacheCreateCmd.Flags().StringVar(&cacheSystem, "system", "", "system instruction")

	cacheCmd.AddCommand(cacheCreateCmd, cacheListCmd, cacheGetCmd, cacheExtendCmd, cacheDeleteCmd, cacheAskCmd)
	rootCmd.AddCommand(cacheCmd)
}
