package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/divaparadises/studio"
	"github.com/divaparadises/studio/embed"
)

var (
	embedTask string
	embedDims int32
	embedTopK int
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Compute embeddings and search by meaning",
}

var embedTextCmd = &cobra.Command{
	Use:   "text <text>...",
	Short: "Print the embedding of each argument",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := &embed.Options{OutputDimensionality: embedDims}
		if embedTask != "" {
			t, err := embed.ParseTaskType(embedTask)
			if err != nil {
				return err
			}
			opts.TaskType = t
		}
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		vectors, err := s.Embed.EmbedBatch(cmd.Context(), args, opts)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(vectors)
		}
		for i, v := range vectors {
			fmt.Printf("%q: %d dimensions, first values %v\n", args[i], len(v), v[:min(5, len(v))])
		}
		return nil
	},
}

var embedSimilarityCmd = &cobra.Command{
	Use:   "similarity <a> <b>",
	Short: "Print the cosine similarity of two texts",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		vectors, err := s.Embed.EmbedBatch(cmd.Context(), args, &embed.Options{TaskType: embed.SemanticSimilarity})
		if err != nil {
			return err
		}
		fmt.Printf("%.4f\n", embed.CosineSimilarity(vectors[0], vectors[1]))
		return nil
	},
}

var embedSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the sample knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		index := embed.NewIndex(s.Embed)
		if err := index.Add(cmd.Context(), studio.KnowledgeBase...); err != nil {
			return err
		}
		results, err := index.Search(cmd.Context(), strings.Join(args, " "), embedTopK)
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Printf("%.4f\t%s\t%s\n", r.Score, r.Document.Title, r.Document.Text)
		}
		return nil
	},
}

func init() {
	embedTextCmd.Flags().StringVar(&embedTask, "task", "", "task type, e.g. RETRIEVAL_QUERY")
	embedTextCmd.Flags().Int32Var(&embedDims, "dims", 0, "output dimensionality")
	embedSearchCmd.Flags().IntVarP(&embedTopK, "top", "k", 3, "number of results")

	embedCmd.AddCommand(embedTextCmd, embedSimilarityCmd, embedSearchCmd)
	rootCmd.AddCommand(embedCmd)
}
