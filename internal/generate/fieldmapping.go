// Package generate builds the transformer's configuration inputs: field
// mapping tables out of curator-maintained CSV crosswalks, and simplified
// JSON schemas out of the upstream YAML schema definitions.
package generate

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// FieldMappingFromCSV reads a crosswalk CSV and writes a legacy-to-target
// field mapping JSON object. Column 1 holds the target field name, columns 2
// and up hold legacy names from older schema versions. Row 1 is a header.
// A mapping is produced only when both names are non-empty; a legacy name
// appearing in several rows keeps the last one.
func FieldMappingFromCSV(inputFile, outputFile string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	f, err := os.Open(inputFile)
	if err != nil {
		return fmt.Errorf("field mapping CSV %s: %w", inputFile, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // crosswalk rows are ragged
	rows, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("field mapping CSV %s: %w", inputFile, err)
	}

	if len(rows) < 2 {
		return fmt.Errorf("field mapping CSV %s: need a header row and at least one data row", inputFile)
	}
	if len(rows[0]) < 2 {
		return fmt.Errorf("field mapping CSV %s: need at least two columns", inputFile)
	}

	mappings := make(map[string]string)
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		target := strings.TrimSpace(row[0])
		if target == "" {
			continue
		}
		for _, cell := range row[1:] {
			legacy := strings.TrimSpace(cell)
			if legacy == "" {
				continue
			}
			mappings[legacy] = target
		}
	}

	if err := writeJSONFile(outputFile, mappings); err != nil {
		return err
	}
	logger.Info("generated field mapping",
		zap.String("output", outputFile),
		zap.Int("mappings", len(mappings)))
	return nil
}

// writeJSONFile writes v as indented JSON, creating parent directories.
func writeJSONFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
