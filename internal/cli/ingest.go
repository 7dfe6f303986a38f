package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"featurerag/internal/usecase"
)

var ingestFromJSONL bool

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Embed the knowledge base and load it into the vector index",
	Long: `Load the knowledge base, embed every feature, write the embedding data
file, reset the collection and insert every line of the file.

Malformed lines of the embedding data file are logged and skipped. A
knowledge base that cannot be parsed or embedded aborts the run.

Examples:
  featurerag ingest                # Full pipeline
  featurerag ingest --from-jsonl   # Index an existing embedding data file`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(GetConfig())
		if err != nil {
			return err
		}
		result, err := runIngestion(cmd.Context(), svc, ingestFromJSONL, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		printIngestResult(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().BoolVar(&ingestFromJSONL, "from-jsonl", false, "index the existing embedding data file without re-embedding")
}

// runIngestion runs the ingestion pipeline on its own index connection and
// closes it before returning, so that queries can open the index afterwards.
// fromJSONL skips embedding and indexes the existing embedding data file.
func runIngestion(ctx context.Context, svc *services, fromJSONL bool, progressOut io.Writer) (*usecase.RunResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c := GetConfig()

	index, err := svc.dialer.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}
	defer index.Close()

	ingestor := usecase.NewIngestor(index, svc.embedder, logger)
	result, err := ingestor.Run(ctx, usecase.RunOptions{
		KnowledgeBase: c.KnowledgeBase.Path,
		EmbeddingData: c.KnowledgeBase.EmbeddingDataPath,
		Collection:    c.Index.Collection,
		BatchSize:     c.Embedding.BatchSize,
		FromJSONL:     fromJSONL,
		Progress:      newProgress(progressOut),
	})
	if err != nil {
		return nil, fmt.Errorf("ingestion failed: %w", err)
	}
	return result, nil
}

// newProgress returns a progress callback drawing a bar on w. The bar is
// created on the first call, once the total is known.
func newProgress(w io.Writer) usecase.ProgressFunc {
	var (
		bar *progressbar.ProgressBar
		mu  sync.Mutex
	)
	return func(done, total int, name string) {
		mu.Lock()
		defer mu.Unlock()

		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(w)
				}),
			)
		}
		bar.Describe(fmt.Sprintf("[cyan]Embedding[reset] %s", name))
		_ = bar.Set(done)
	}
}

func printIngestResult(w io.Writer, r *usecase.RunResult) {
	c := GetConfig()
	fmt.Fprintf(w, "Ingestion complete:\n")
	if r.Records > 0 {
		fmt.Fprintf(w, "  Features embedded: %d\n", r.Records)
	}
	fmt.Fprintf(w, "  Dimension:         %d\n", r.Dimension)
	fmt.Fprintf(w, "  Lines inserted:    %d\n", r.Insert.Inserted)
	fmt.Fprintf(w, "  Lines skipped:     %d\n", r.Insert.Skipped)
	fmt.Fprintf(w, "  Lines failed:      %d\n", r.Insert.Failed)
	if r.Insert.Duplicates > 0 {
		fmt.Fprintf(w, "  Duplicate ids:     %d (last one kept)\n", r.Insert.Duplicates)
	}
	fmt.Fprintf(w, "\nCollection %s stored with the %s backend\n", c.Index.Collection, c.Index.Backend)
}
