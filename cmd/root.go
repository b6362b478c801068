package cmd

import (
	"github.com/maxkimambo/depsched/internal/logger"
	"github.com/spf13/cobra"
)

var (
	debug    bool
	verbose  bool
	jsonLogs bool
	quiet    bool
	version  = "v0.1.0"

	rootCmd = &cobra.Command{
		Use:   "depsched",
		Short: "A dependency-aware task scheduler",
		Long: `Run a graph of tasks declared in a YAML plan. Tasks start once every task they
depend on has completed; independent tasks run in parallel on a bounded worker pool.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Setup(verbose || debug, jsonLogs, quiet)
			if debug {
				logger.Op.Debug("Debug logging enabled")
			}
		},
	}
)

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")

	rootCmd.AddCommand(orderCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(runCmd)
}
