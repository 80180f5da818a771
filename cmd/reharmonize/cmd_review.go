package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/review"
	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/schema"
)

// findNonstandardCmd runs all four detectors over transformed output
var findNonstandardCmd = &cobra.Command{
	Use:   "find-nonstandard [output-dir] [schema.json] [result.json]",
	Short: "Find non-standard values in transformed output for curator review",
	Long: `Analyzes transformed metadata files with four detectors: values
standardized to null, values outside the schema's permissible set, required
fields that are missing or empty, and values violating regex constraints.
The merged findings are the curators' work queue.

Example:
  reharmonize find-nonstandard metadata/rnaseq/output schemas/rnaseq.json nonstandard-values.json`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := schema.New(logger)
		if err := target.Load(args[1]); err != nil {
			return err
		}
		result, err := review.FindNonstandard(args[0], target, logger)
		if err != nil {
			return err
		}
		if err := writeResult(args[2], result); err != nil {
			return err
		}
		fmt.Printf("Non-standard values saved to: %s (%d fields)\n", args[2], len(result))
		return nil
	},
}

// valuesForReviewCmd aggregates null-mapped legacy values
var valuesForReviewCmd = &cobra.Command{
	Use:   "values-for-review [output-dir] [result.json]",
	Short: "Collect legacy values requiring domain expert review",
	Long: `Collects, across all transformed output files, the legacy values the
value-mapping phase standardized to null. Each needs an expert decision:
add a standard value or handle the legacy value differently.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := review.ValuesForReview(args[0], logger)
		if err != nil {
			return err
		}
		if err := writeResult(args[1], result); err != nil {
			return err
		}
		fmt.Printf("Values for review saved to: %s (%d fields)\n", args[1], len(result))
		return nil
	},
}

// summaryCmd renders the HTML transformation summary
var summaryCmd = &cobra.Command{
	Use:   "summary [output-dir] [summary.html]",
	Short: "Render an HTML summary of a transformation run",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := review.WriteSummaryHTML(args[0], args[1], logger); err != nil {
			return err
		}
		fmt.Printf("Summary written to: %s\n", args[1])
		return nil
	},
}

// writeResult writes a review result as indented JSON.
func writeResult(path string, result map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
