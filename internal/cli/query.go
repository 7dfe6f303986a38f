package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"featurerag/internal/domain"
	"featurerag/internal/usecase"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Find the features most relevant to a question",
	Long: `Embed the question, search the collection for the nearest features by
cosine distance, and print each match as a one-line summary.

With --json the output is {"results": "<summary>"} for the top match,
{"results": []} when nothing matches, or {"error": "<message>"}.

Examples:
  featurerag query -q "how do I tag tickets automatically"
  featurerag query -q "customer surveys" -k 3 --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(GetConfig())
		if err != nil {
			return err
		}
		return runQuery(cmd.Context(), cmd.OutOrStdout(), svc, queryText, queryTopK, queryJSON)
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	addQueryFlags(queryCmd)
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&queryText, "query", "q", "", "question to answer (required)")
	cmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	cmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	cmd.MarkFlagRequired("query")
}

// queryResponse mirrors the response body of the feature lookup endpoint.
// Results is a summary string, or an empty array when nothing matched.
type queryResponse struct {
	Results any    `json:"results,omitempty"`
	Error   string `json:"error,omitempty"`
}

func runQuery(ctx context.Context, w io.Writer, svc *services, text string, topK int, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c := GetConfig()
	if topK <= 0 {
		topK = c.Retrieve.TopK
	}

	q := usecase.NewQuerier(svc.dialer, svc.embedder, logger)
	results, err := q.Query(ctx, text, c.Index.Collection, topK)

	if asJSON {
		return writeJSON(w, results, err)
	}
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "No matching feature found.")
		return nil
	}
	if len(results) == 1 {
		fmt.Fprintln(w, usecase.FormatResult(results[0].Properties))
		return nil
	}
	for i, r := range results {
		fmt.Fprintf(w, "[%d] %s (distance: %.4f)\n", i+1, usecase.FormatResult(r.Properties), r.Distance)
	}
	return nil
}

func writeJSON(w io.Writer, results []domain.QueryResult, queryErr error) error {
	var resp queryResponse
	switch {
	case queryErr != nil:
		resp.Error = queryErr.Error()
	case len(results) == 0:
		resp.Results = []string{}
	case len(results) == 1:
		resp.Results = usecase.FormatResult(results[0].Properties)
	default:
		summaries := make([]string, len(results))
		for i, r := range results {
			summaries[i] = usecase.FormatResult(r.Properties)
		}
		resp.Results = summaries
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(resp); err != nil {
		return err
	}
	if queryErr != nil {
		return fmt.Errorf("query failed: %w", queryErr)
	}
	return nil
}
