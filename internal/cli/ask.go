package cli

import (
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ingest the knowledge base, then answer one question",
	Long: `Run the full ingestion and then answer a single question. Ingestion
failure is fatal and no question is answered.

This is the only way to query the in-memory chromem backend, which does not
outlive the process.

Examples:
  featurerag ask -q "how do I tag tickets automatically"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(GetConfig())
		if err != nil {
			return err
		}
		if _, err := runIngestion(cmd.Context(), svc, false, cmd.ErrOrStderr()); err != nil {
			return err
		}
		return runQuery(cmd.Context(), cmd.OutOrStdout(), svc, queryText, queryTopK, queryJSON)
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	addQueryFlags(askCmd)
}
