package review

import (
	"fmt"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
)

// ValuesForReview collects, across every output file in inputDir, the legacy
// values that were standardized to null. These are the field/value pairs a
// domain expert still has to decide on. Duplicate values across files
// collapse into one entry.
func ValuesForReview(inputDir string, logger *zap.Logger) (map[string]any, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	files, err := filepath.Glob(filepath.Join(inputDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("input dir %s: %w", inputDir, err)
	}
	if len(files) == 0 {
		logger.Warn("no JSON files found", zap.String("input_dir", inputDir))
	}
	sort.Strings(files)

	all := make(Findings)
	processed := 0
	for _, file := range files {
		out, err := ReadOutputFile(file)
		if err != nil {
			logger.Warn("skipping unreadable output file", zap.String("file", file), zap.Error(err))
			continue
		}
		all.Merge(NullMappedValues(out))
		processed++
	}
	logger.Info("collected values for review",
		zap.Int("files", processed),
		zap.Int("fields", len(all)))
	return all.Format(), nil
}
