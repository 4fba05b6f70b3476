package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/divaparadises/studio/storage"
)

var (
	storageKind   string
	storageLimit  int
	storageOffset int
	storagePrompt string
	storageAge    time.Duration
)

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Manage the local media store",
}

func openStore() (*storage.Store, error) {
	return storage.Open(cfg.Storage.BaseDir)
}

// keep copies generated media into the store.
func keep(kind storage.Kind, data []byte, prompt string, extra map[string]any) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	it, err := st.Save(kind, data, prompt, "", extra)
	if err != nil {
		return err
	}
	fmt.Printf("stored as %s (%s)\n", it.ID, it.Path)
	return nil
}

var storageSaveCmd = &cobra.Command{
	Use:   "save <kind> <file-or-url>",
	Short: "Add an image, video or audio file to the store",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := storage.Kind(args[0])
		st, err := openStore()
		if err != nil {
			return err
		}
		var it *storage.Item
		if strings.HasPrefix(args[1], "http://") || strings.HasPrefix(args[1], "https://") {
			it, err = st.SaveFromURL(cmd.Context(), kind, args[1], storagePrompt, nil)
		} else {
			var data []byte
			data, err = os.ReadFile(args[1])
			if err != nil {
				return err
			}
			it, err = st.Save(kind, data, storagePrompt, strings.TrimPrefix(filepath.Ext(args[1]), "."), nil)
		}
		if err != nil {
			return err
		}
		fmt.Println(it.ID)
		return nil
	},
}

var storageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored items, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		return printItems(st.List(storage.Kind(storageKind), storageLimit, storageOffset))
	},
}

var storageSearchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Find items whose prompt contains the text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		return printItems(st.Search(strings.Join(args, " "), storageLimit))
	},
}

var storageGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		it, err := st.Get(args[0])
		if err != nil {
			return err
		}
		return printJSON(it)
	},
}

var storageDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete items and their files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		for _, id := range args {
			if err := st.Delete(id); err != nil {
				return err
			}
		}
		return nil
	},
}

var storageStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show counts and disk usage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		stats, err := st.Stats()
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(stats)
		}
		for _, k := range storage.Kinds {
			fmt.Printf("%-6s %d\n", k, stats.Counts[k])
		}
		fmt.Printf("disk   %.2f MB\n", stats.DiskUsageMB)
		return nil
	},
}

var storageCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete items older than --older-than",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		deleted, err := st.Cleanup(storageAge)
		if err != nil {
			return err
		}
		for _, k := range storage.Kinds {
			fmt.Printf("%-6s %d deleted\n", k, deleted[k])
		}
		return nil
	},
}

func printItems(items []*storage.Item) error {
	if jsonOut {
		return printJSON(items)
	}
	if len(items) == 0 {
		fmt.Println("No items found")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tFILE\tSIZE\tCREATED\tPROMPT")
	for _, it := range items {
		prompt := it.Prompt
		if len(prompt) > 40 {
			prompt = prompt[:40] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", it.ID, it.Kind, it.Filename, it.Size, it.CreatedAt.Format("2006-01-02 15:04"), prompt)
	}
	return w.Flush()
}

func init() {
	storageSaveCmd.Flags().StringVar(&storagePrompt, "prompt", "", "prompt the media was generated from")
	storageListCmd.Flags().StringVar(&storageKind, "kind", "", "image, video or audio")
	storageListCmd.Flags().IntVar(&storageOffset, "offset", 0, "items to skip")
	for _, c := range []*cobra.Command{storageListCmd, storageSearchCmd} {
		c.Flags().IntVar(&storageLimit, "limit", 50, "maximum items")
	}
	storageCleanupCmd.Flags().DurationVar(&storageAge, "older-than", 30*24*time.Hour, "age of the items to delete")

	storageCmd.AddCommand(storageSaveCmd, storageListCmd, storageSearchCmd, storageGetCmd, storageDeleteCmd, storageStatsCmd, storageCleanupCmd)
	rootCmd.AddCommand(storageCmd)
}
