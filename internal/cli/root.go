package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"featurerag/config"
	"featurerag/internal/adapter/embedding"
	"featurerag/internal/adapter/vectorindex"
	"featurerag/internal/logging"
	"featurerag/internal/port"
)

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	logLevel string
	logger   *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "featurerag",
	Short: "Feature lookup - answer questions with the most relevant product feature",
	Long: `featurerag embeds a knowledge base of product features, stores the vectors
in a vector index, and answers natural-language questions with the single
most relevant feature.

Example usage:
  featurerag config init                         # Write default configuration
  featurerag ingest                              # Embed and index the knowledge base
  featurerag query -q "how do I tag tickets"     # Find the matching feature
  featurerag ask -q "how do I tag tickets"       # Ingest, then answer one question`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg.Resolve(rootDir)

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to set up logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./featurerag.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

// services are the dependencies built once per command from the config.
type services struct {
	dialer   port.IndexDialer
	embedder port.Embedder
}

func newServices(c *config.Config) (*services, error) {
	dialer, err := vectorindex.New(c.Index)
	if err != nil {
		return nil, err
	}
	embedder, err := embedding.New(c.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return &services{dialer: dialer, embedder: embedder}, nil
}
