// reharmonize transforms legacy scientific-metadata records into
// schema-compliant form through a deterministic four-phase rule pipeline,
// and ships the companion tooling curators use around it: mapping and schema
// generators and the review pass over transformed output.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose bool

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "reharmonize",
	Short: "Transform legacy metadata into schema-compliant records",
	Long: `reharmonize processes legacy metadata files through a four-phase
transformation pipeline:

  0. Conditional patching - apply patch rules based on metadata conditions
  1. Field mapping        - rename legacy field names to target schema names
  2. Value mapping        - rewrite legacy field values to standardized values
  3. Schema compliance    - project onto the target schema with defaults

Every transformation emits a structured processing log and an RFC 6902
JSON patch, so curators can audit and fully reconstruct any decision.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(findNonstandardCmd)
	rootCmd.AddCommand(valuesForReviewCmd)
	rootCmd.AddCommand(summaryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
