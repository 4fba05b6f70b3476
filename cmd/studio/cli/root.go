// Package cli implements the studio command-line interface using Cobra.
// Each command group wraps one client of the studio package; results go to
// stdout, diagnostics to the logger.
package cli

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/divaparadises/studio"
	"github.com/divaparadises/studio/internal/config"
	"github.com/divaparadises/studio/internal/log"
)

var (
	configPath string
	verbose    bool
	jsonOut    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "studio",
	Short: "Studio - a toolkit for the Gemini API",
	Long: `Studio wraps the Gemini API: text, images, video, speech, embeddings,
files, batches, caches, live sessions and agents, plus Google Drive backups
and a local media store.

The API key is read from GEMINI_API_KEY (or GOOGLE_API_KEY), or from
~/.studio/config.yaml.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		log.SetLevel(cfg.LogLevel)
		if verbose {
			log.SetLevel(log.LevelDebug)
		}
		return nil
	},
}

// Execute runs the root command. An interrupt cancels the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Errorf("%v", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.studio/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output in JSON format")
}

// newStudio connects to the configured backend.
func newStudio(cmd *cobra.Command) (*studio.Studio, error) {
	return studio.New(cmd.Context(), cfg)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
