// Package review implements the read-only curation pass over transformer
// output: detectors for values needing human attention, an aggregator for
// unmapped legacy values, and an HTML run summary. It never modifies records;
// its findings are work queues for domain experts.
package review

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"go.uber.org/zap"

	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/metadata"
	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/proclog"
	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/schema"
)

// Markers recorded for required fields that are missing or empty.
const (
	markerMissingField = "MISSING_FIELD"
	markerNull         = "null"
	markerEmptyList    = "[]"
	markerEmptyObject  = "{}"
)

// OutputFile is the slice of a transformer output file the review pass
// reads.
type OutputFile struct {
	ModifiedMetadata map[string]any `json:"modified_metadata"`
	ProcessingLog    *proclog.Log   `json:"processing_log"`
}

// ReadOutputFile parses one transformer output file. Numbers keep their
// literal spelling, so detector comparisons see the same form the schema
// loader does (1.50 stays "1.50", not "1.5").
func ReadOutputFile(path string) (*OutputFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("output file %s: %w", path, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out OutputFile
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("output file %s: %w", path, err)
	}
	return &out, nil
}

// Constraints holds the schema-derived validation inputs. Regex patterns are
// compiled once; an invalid pattern warns and drops that field's regex check
// rather than aborting the run.
type Constraints struct {
	Permissible map[string][]any
	Required    []string
	Regex       map[string]*regexp.Regexp
}

// NewConstraints extracts validation constraints from a loaded schema.
func NewConstraints(s *schema.Schema, logger *zap.Logger) *Constraints {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Constraints{
		Permissible: make(map[string][]any),
		Regex:       make(map[string]*regexp.Regexp),
	}
	for _, f := range s.Fields() {
		if f.PermissibleValues != nil {
			c.Permissible[f.Name] = f.PermissibleValues
		}
		if f.Required {
			c.Required = append(c.Required, f.Name)
		}
		if f.Regex != "" {
			re, err := regexp.Compile(`\A(?:` + f.Regex + `)\z`)
			if err != nil {
				logger.Warn("invalid regex in schema, skipping field's regex check",
					zap.String("field", f.Name), zap.Error(err))
				continue
			}
			c.Regex[f.Name] = re
		}
	}
	return c
}

// Findings maps field names to the set of flagged value strings.
type Findings map[string]map[string]bool

func (f Findings) add(field, value string) {
	set, ok := f[field]
	if !ok {
		set = make(map[string]bool)
		f[field] = set
	}
	set[value] = true
}

// Merge folds other into f.
func (f Findings) Merge(other Findings) {
	for field, values := range other {
		for v := range values {
			f.add(field, v)
		}
	}
}

// Format renders findings the way curators consume them: one value as a bare
// string, several as a sorted array.
func (f Findings) Format() map[string]any {
	out := make(map[string]any, len(f))
	for field, values := range f {
		sorted := make([]string, 0, len(values))
		for v := range values {
			sorted = append(sorted, v)
		}
		sort.Strings(sorted)
		if len(sorted) == 1 {
			out[field] = sorted[0]
		} else {
			out[field] = sorted
		}
	}
	return out
}

// NullMappedValues flags legacy values the value-mapping phase standardized
// to null: no suitable standard value exists yet.
func NullMappedValues(out *OutputFile) Findings {
	findings := make(Findings)
	if out.ProcessingLog == nil {
		return findings
	}
	for field, mappings := range out.ProcessingLog.ValueMappings {
		for legacy, standard := range mappings {
			if standard == nil {
				findings.add(field, legacy)
			}
		}
	}
	return findings
}

// NonPermissibleValues flags output values outside their field's
// standardized permissible set.
func NonPermissibleValues(out *OutputFile, c *Constraints) Findings {
	findings := make(Findings)
	for field, value := range out.ModifiedMetadata {
		if value == nil {
			continue
		}
		allowed, ok := c.Permissible[field]
		if !ok {
			continue
		}
		str := metadata.Stringify(value)
		standard := false
		for _, sv := range allowed {
			if metadata.Stringify(sv) == str || metadata.Equal(sv, value) {
				standard = true
				break
			}
		}
		if !standard {
			findings.add(field, str)
		}
	}
	return findings
}

// MissingRequiredValues flags required fields that are absent, null, or
// empty in the output record.
func MissingRequiredValues(out *OutputFile, c *Constraints) Findings {
	findings := make(Findings)
	for _, field := range c.Required {
		value, ok := out.ModifiedMetadata[field]
		if !ok {
			findings.add(field, markerMissingField)
			continue
		}
		switch v := value.(type) {
		case nil:
			findings.add(field, markerNull)
		case string:
			if isBlank(v) {
				findings.add(field, "")
			}
		case []any:
			if len(v) == 0 {
				findings.add(field, markerEmptyList)
			}
		case map[string]any:
			if len(v) == 0 {
				findings.add(field, markerEmptyObject)
			}
		}
	}
	return findings
}

// RegexViolations flags output values that fail their field's regex
// constraint. Null and blank values are skipped; the required-field check
// owns those.
func RegexViolations(out *OutputFile, c *Constraints) Findings {
	findings := make(Findings)
	for field, re := range c.Regex {
		value, ok := out.ModifiedMetadata[field]
		if !ok || value == nil {
			continue
		}
		str := metadata.Stringify(value)
		if isBlank(str) {
			continue
		}
		if !re.MatchString(str) {
			findings.add(field, str)
		}
	}
	return findings
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

// FindNonstandard runs all four detectors over every *.json file in
// inputDir and merges the findings. Unparseable files warn and are skipped;
// the pass never aborts on one bad file.
func FindNonstandard(inputDir string, s *schema.Schema, logger *zap.Logger) (map[string]any, error) {
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

	constraints := NewConstraints(s, logger)
	all := make(Findings)

	for _, file := range files {
		out, err := ReadOutputFile(file)
		if err != nil {
			logger.Warn("skipping unreadable output file", zap.String("file", file), zap.Error(err))
			continue
		}
		all.Merge(NullMappedValues(out))
		all.Merge(NonPermissibleValues(out, constraints))
		all.Merge(MissingRequiredValues(out, constraints))
		all.Merge(RegexViolations(out, constraints))
	}
	return all.Format(), nil
}
