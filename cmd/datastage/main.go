package main

import (
	"context"
	"fmt"
	"os"

	"datastage/pkg/config"
	"datastage/pkg/dataset"
	"datastage/pkg/registry"
	"datastage/pkg/resolver"
	"datastage/pkg/types"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configFile string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "datastage",
		Short: "Tiered dataset staging for shared compute clusters",
		Long: `Resolves where a dataset's files live among the cluster's storage tiers
(read-only network store, shared scratch, node-local disk) and promotes them
to the fastest tier before a job reads them.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "cluster profile path (defaults to SLURM environment tiers)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(
		resolveCmd(),
		stageCmd(),
		statusCmd(),
		verifyCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadRegistry() (*registry.Registry, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadConfig(configFile)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return nil, err
	}
	return registry.New(cfg)
}

func resolveCmd() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "resolve <dataset>",
		Short: "Show where a dataset would be read from, without copying anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(verbose)
			defer logger.Sync()

			reg, err := loadRegistry()
			if err != nil {
				return err
			}

			loc, err := resolver.New(reg, logger).Resolve(types.DatasetID(args[0]), root)
			if err != nil {
				return err
			}

			if !loc.Found {
				fmt.Printf("dataset %s: not found in any tier\n", args[0])
				return nil
			}
			if loc.Tier != nil {
				fmt.Printf("tier: %s\n", loc.Tier.Name)
			}
			fmt.Printf("root: %s\n", loc.Root)
			if loc.Promotion != nil {
				fmt.Printf("pending promotion: %s -> %s (%d paths)\n",
					loc.Promotion.Source, loc.Promotion.Dest, len(loc.Promotion.Files))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "caller-supplied root to consider as a fallback")
	return cmd
}

func stageCmd() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "stage <dataset>",
		Short: "Resolve a dataset and promote its files to the fastest tier",
		Long: `Resolves the dataset, runs any needed promotion, and prints the final
root directory on stdout. Logs go to stderr, so the output is usable in
scripts: DATA_ROOT=$(datastage stage mnist).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(verbose)
			defer logger.Sync()

			reg, err := loadRegistry()
			if err != nil {
				return err
			}

			adapter := dataset.NewAdapter(reg, logger)
			resolved, err := adapter.Materialize(context.Background(), types.DatasetID(args[0]), root)
			if err != nil {
				return err
			}

			fmt.Println(resolved)
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "caller-supplied root to consider as a fallback")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("datastage v0.1.0")
		},
	}
}

func setupLogger(verbose bool) *zap.Logger {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, _ := config.Build()
	return logger
}
