package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/mapping"
	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/rules"
	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/schema"
	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/transform"
)

var (
	fieldMappingFile string
	fieldMappingDir  string
	valueMappingDir  string
	targetSchemaFile string
	patchDir         string
	patchFile        string
	inputDir         string
	inputFile        string
	outputDir        string
	workers          int
	watch            bool
)

// transformCmd runs the four-phase pipeline over one file or a directory
var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Transform legacy metadata files",
	Long: `Transforms legacy metadata through conditional patching, field mapping,
value mapping and schema compliance, writing one output file per input with
the transformed record, its JSON patch and the processing log.

Either --input-dir (bulk) or --input-file (single record) must be given,
but not both.

Example:
  reharmonize transform \
    --field-mapping-file mappings/field-mapping/rnaseq.json \
    --value-mapping-dir mappings/value-mapping \
    --target-schema-file schemas/rnaseq.json \
    --patch-dir patches/rnaseq \
    --input-dir metadata/rnaseq/input \
    --output-dir metadata/rnaseq/output`,
	RunE: runTransform,
}

func init() {
	flags := transformCmd.Flags()
	flags.StringVar(&fieldMappingFile, "field-mapping-file", "", "JSON field mapping file")
	flags.StringVar(&fieldMappingDir, "field-mapping-dir", "", "directory of JSON field mapping files (merged keep-first)")
	flags.StringVar(&valueMappingDir, "value-mapping-dir", "", "directory of JSON value mapping files")
	flags.StringVar(&targetSchemaFile, "target-schema-file", "", "target schema JSON file")
	flags.StringVar(&patchDir, "patch-dir", "", "directory of JSON patch rule files (optional, recursive)")
	flags.StringVar(&patchFile, "patch-file", "", "single JSON patch rule file (optional)")
	flags.StringVar(&inputDir, "input-dir", "", "directory of legacy metadata files (bulk processing)")
	flags.StringVar(&inputFile, "input-file", "", "single legacy metadata file")
	flags.StringVar(&outputDir, "output-dir", "", "directory for transformed files")
	flags.IntVar(&workers, "workers", 4, "concurrent workers for bulk processing")
	flags.BoolVar(&watch, "watch", false, "keep running and re-transform changed input files")

	_ = transformCmd.MarkFlagRequired("value-mapping-dir")
	_ = transformCmd.MarkFlagRequired("target-schema-file")
	_ = transformCmd.MarkFlagRequired("output-dir")
}

func runTransform(cmd *cobra.Command, args []string) error {
	if inputDir == "" && inputFile == "" {
		return fmt.Errorf("either --input-dir or --input-file must be specified")
	}
	if inputDir != "" && inputFile != "" {
		return fmt.Errorf("--input-dir and --input-file are mutually exclusive")
	}
	if fieldMappingFile == "" && fieldMappingDir == "" {
		return fmt.Errorf("either --field-mapping-file or --field-mapping-dir must be specified")
	}
	if watch && inputDir == "" {
		return fmt.Errorf("--watch requires --input-dir")
	}

	transformer, err := loadTransformer()
	if err != nil {
		return err
	}

	runner := transform.NewBulkRunner(transformer, outputDir, workers, logger)

	if inputFile != "" {
		if err := runner.ProcessFile(inputFile); err != nil {
			return err
		}
		fmt.Printf("Transformed %s\n", inputFile)
		return nil
	}

	summary, err := runner.Run(cmd.Context(), inputDir)
	if err != nil {
		return err
	}
	fmt.Printf("Run %s: %d processed, %d succeeded, %d failed\n",
		summary.RunID, summary.Processed, summary.Succeeded, summary.Failed)
	for _, failure := range summary.Failures {
		fmt.Printf("  failed: %s: %s\n", failure.File, failure.Error)
	}

	if watch {
		return runner.Watch(cmd.Context(), inputDir)
	}
	return nil
}

// loadTransformer loads the shared, read-only tables and assembles the
// pipeline. Any structural problem in the configuration aborts here, before
// a single record is touched.
func loadTransformer() (*transform.Transformer, error) {
	fields := mapping.NewFieldTable(logger)
	if fieldMappingFile != "" {
		if err := fields.LoadFile(fieldMappingFile); err != nil {
			return nil, err
		}
	}
	if fieldMappingDir != "" {
		if err := fields.LoadDir(fieldMappingDir); err != nil {
			return nil, err
		}
	}
	logger.Info("loaded field mappings", zap.Int("count", fields.Len()))

	values := mapping.NewValueTable(logger)
	if err := values.LoadDir(valueMappingDir); err != nil {
		return nil, err
	}
	logger.Info("loaded value mappings", zap.Int("fields", values.FieldCount()))

	target := schema.New(logger)
	if err := target.Load(targetSchemaFile); err != nil {
		return nil, err
	}
	logger.Info("loaded target schema",
		zap.Int("fields", target.Len()),
		zap.Int("required", len(target.RequiredFields())))

	store := rules.NewStore(logger)
	if patchDir != "" {
		if err := store.LoadDir(patchDir); err != nil {
			return nil, err
		}
	}
	if patchFile != "" {
		if err := store.LoadFile(patchFile); err != nil {
			return nil, err
		}
	}
	if patchDir == "" && patchFile == "" {
		logger.Info("no patch rules specified, skipping conditional patching")
	} else {
		logger.Info("loaded patch rules", zap.Int("count", store.Len()))
	}

	return transform.New(store, fields, values, target), nil
}
