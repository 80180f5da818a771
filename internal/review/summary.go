package review

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
)

// SummaryStats aggregates the processing logs of one transformation run.
type SummaryStats struct {
	GeneratedAt       time.Time
	InputDir          string
	FilesProcessed    int
	FieldMappings     int
	ValueMappings     int
	AmbiguousMappings int
	AppliedPatches    int
	ExcludedFields    int
	AmbiguousByField  []FieldCount
	ExcludedByField   []FieldCount
}

// FieldCount is a per-field tally, sorted by count for the report tables.
type FieldCount struct {
	Field string
	Count int
}

// CollectSummary walks the output files in inputDir and tallies their
// processing logs.
func CollectSummary(inputDir string, logger *zap.Logger) (*SummaryStats, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	files, err := filepath.Glob(filepath.Join(inputDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("input dir %s: %w", inputDir, err)
	}
	sort.Strings(files)

	stats := &SummaryStats{GeneratedAt: time.Now(), InputDir: inputDir}
	ambiguous := make(map[string]int)
	excluded := make(map[string]int)

	for _, file := range files {
		out, err := ReadOutputFile(file)
		if err != nil {
			logger.Warn("skipping unreadable output file", zap.String("file", file), zap.Error(err))
			continue
		}
		stats.FilesProcessed++
		if out.ProcessingLog == nil {
			continue
		}
		stats.FieldMappings += len(out.ProcessingLog.FieldMappings)
		for _, m := range out.ProcessingLog.ValueMappings {
			stats.ValueMappings += len(m)
		}
		stats.AmbiguousMappings += len(out.ProcessingLog.AmbiguousMappings)
		for _, entry := range out.ProcessingLog.AmbiguousMappings {
			ambiguous[entry.Field]++
		}
		stats.AppliedPatches += len(out.ProcessingLog.MetadataPatches)
		stats.ExcludedFields += len(out.ProcessingLog.ExcludedData)
		for field := range out.ProcessingLog.ExcludedData {
			excluded[field]++
		}
	}

	stats.AmbiguousByField = sortCounts(ambiguous)
	stats.ExcludedByField = sortCounts(excluded)
	return stats, nil
}

func sortCounts(counts map[string]int) []FieldCount {
	out := make([]FieldCount, 0, len(counts))
	for field, count := range counts {
		out = append(out, FieldCount{Field: field, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Field < out[j].Field
	})
	return out
}

var summaryTemplate = template.Must(template.New("summary").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Transformation Summary</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
table { border-collapse: collapse; margin: 1em 0; }
th, td { border: 1px solid #bbb; padding: 0.4em 0.8em; text-align: left; }
th { background: #f0f0f0; }
caption { font-weight: bold; margin-bottom: 0.5em; text-align: left; }
</style>
</head>
<body>
<h1>Transformation Summary</h1>
<p>Generated {{.GeneratedAt.Format "2006-01-02 15:04:05"}} from {{.InputDir}}</p>
<table>
<caption>Totals</caption>
<tr><th>Files processed</th><td>{{.FilesProcessed}}</td></tr>
<tr><th>Field renames</th><td>{{.FieldMappings}}</td></tr>
<tr><th>Value substitutions</th><td>{{.ValueMappings}}</td></tr>
<tr><th>Ambiguous mappings</th><td>{{.AmbiguousMappings}}</td></tr>
<tr><th>Applied patches</th><td>{{.AppliedPatches}}</td></tr>
<tr><th>Excluded fields</th><td>{{.ExcludedFields}}</td></tr>
</table>
{{if .AmbiguousByField}}
<table>
<caption>Ambiguous mappings by field</caption>
<tr><th>Field</th><th>Occurrences</th></tr>
{{range .AmbiguousByField}}<tr><td>{{.Field}}</td><td>{{.Count}}</td></tr>
{{end}}
</table>
{{end}}
{{if .ExcludedByField}}
<table>
<caption>Obsolete fields by occurrence</caption>
<tr><th>Field</th><th>Files</th></tr>
{{range .ExcludedByField}}<tr><td>{{.Field}}</td><td>{{.Count}}</td></tr>
{{end}}
</table>
{{end}}
</body>
</html>
`))

// WriteSummaryHTML collects run statistics and renders the HTML report.
func WriteSummaryHTML(inputDir, outputFile string, logger *zap.Logger) error {
	stats, err := CollectSummary(inputDir, logger)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputFile), 0o755); err != nil {
		return fmt.Errorf("summary %s: %w", outputFile, err)
	}
	f, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("summary %s: %w", outputFile, err)
	}
	defer f.Close()
	if err := summaryTemplate.Execute(f, stats); err != nil {
		return fmt.Errorf("summary %s: %w", outputFile, err)
	}
	return nil
}
