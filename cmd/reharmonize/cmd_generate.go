package main

import (
	"github.com/spf13/cobra"

	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/generate"
)

// generateCmd groups the configuration generators
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate transformer configuration files",
}

// generateFieldMappingCmd converts a crosswalk CSV into a field mapping file
var generateFieldMappingCmd = &cobra.Command{
	Use:   "field-mapping [input.csv] [output.json]",
	Short: "Generate a field mapping file from a crosswalk CSV",
	Long: `Reads a crosswalk CSV where column 1 holds target field names and
columns 2+ hold legacy field names, and writes a legacy-to-target field
mapping JSON object.

Example:
  reharmonize generate field-mapping rnaseq.csv mappings/field-mapping/rnaseq.json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return generate.FieldMappingFromCSV(args[0], args[1], logger)
	},
}

// generateSchemaCmd converts an upstream YAML schema into the simplified form
var generateSchemaCmd = &cobra.Command{
	Use:   "schema [yaml-source] [output.json]",
	Short: "Generate a simplified target schema from an upstream YAML schema",
	Long: `Fetches a YAML schema from a local file or an http(s) URL and converts
it to the simplified JSON schema array the transformer consumes.

Example:
  reharmonize generate schema rnaseq.yml schemas/rnaseq.json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return generate.TargetSchemaFromYAML(args[0], args[1], logger)
	},
}

func init() {
	generateCmd.AddCommand(generateFieldMappingCmd)
	generateCmd.AddCommand(generateSchemaCmd)
}
