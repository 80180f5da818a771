package review

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/schema"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func loadSchema(t *testing.T, content string) *schema.Schema {
	t.Helper()
	s := schema.New(nil)
	require.NoError(t, s.Load(writeFile(t, t.TempDir(), "schema.json", content)))
	return s
}

func outputFile(t *testing.T, content string) *OutputFile {
	t.Helper()
	out, err := ReadOutputFile(writeFile(t, t.TempDir(), "out.json", content))
	require.NoError(t, err)
	return out
}

func TestNullMappedValues(t *testing.T) {
	out := outputFile(t, `{
		"modified_metadata": {"f": null},
		"processing_log": {
			"field_mappings": {},
			"value_mappings": {
				"f": {"junk": null, "AF": "Auto-fluorescence"},
				"g": {"x": "y"}
			},
			"ambiguous_mappings": [],
			"excluded_data": {},
			"metadata_patches": []
		}
	}`)

	findings := NullMappedValues(out)

	assert.Equal(t, map[string]any{"f": "junk"}, findings.Format())
}

func TestNullMappedValuesNoLog(t *testing.T) {
	out := outputFile(t, `{"modified_metadata": {"f": "v"}}`)
	assert.Empty(t, NullMappedValues(out))
}

func TestNonPermissibleValues(t *testing.T) {
	s := loadSchema(t, `[
		{"name": "assay_type", "permissible_values": ["Auto-fluorescence", "CODEX"]},
		{"name": "free_text"}
	]`)
	c := NewConstraints(s, nil)

	out := outputFile(t, `{"modified_metadata": {
		"assay_type": "af microscopy",
		"free_text": "anything goes",
		"unknown_field": "ignored"
	}}`)

	findings := NonPermissibleValues(out, c)

	assert.Equal(t, map[string]any{"assay_type": "af microscopy"}, findings.Format())
}

func TestNonPermissibleValuesNumericComparison(t *testing.T) {
	s := loadSchema(t, `[{"name": "channels", "permissible_values": [1, 2]}]`)
	c := NewConstraints(s, nil)

	ok := outputFile(t, `{"modified_metadata": {"channels": 1}}`)
	assert.Empty(t, NonPermissibleValues(ok, c))

	bad := outputFile(t, `{"modified_metadata": {"channels": 3}}`)
	assert.Len(t, NonPermissibleValues(bad, c), 1)
}

// A decimal permissible value written with a trailing zero must compare by
// its literal spelling, not by float formatting.
func TestNonPermissibleValuesDecimalLiteral(t *testing.T) {
	s := loadSchema(t, `[{"name": "concentration", "permissible_values": [1.50, 2]}]`)
	c := NewConstraints(s, nil)

	ok := outputFile(t, `{"modified_metadata": {"concentration": 1.50}}`)
	assert.Empty(t, NonPermissibleValues(ok, c))

	bad := outputFile(t, `{"modified_metadata": {"concentration": 1.5}}`)
	assert.Len(t, NonPermissibleValues(bad, c), 1)
}

func TestNonPermissibleValuesSkipsNull(t *testing.T) {
	s := loadSchema(t, `[{"name": "f", "permissible_values": ["a"]}]`)
	c := NewConstraints(s, nil)

	out := outputFile(t, `{"modified_metadata": {"f": null}}`)
	assert.Empty(t, NonPermissibleValues(out, c))
}

func TestMissingRequiredValues(t *testing.T) {
	s := loadSchema(t, `[
		{"name": "absent", "required": true},
		{"name": "nulled", "required": true},
		{"name": "blank", "required": true},
		{"name": "empty_list", "required": true},
		{"name": "empty_obj", "required": true},
		{"name": "fine", "required": true},
		{"name": "optional"}
	]`)
	c := NewConstraints(s, nil)

	out := outputFile(t, `{"modified_metadata": {
		"nulled": null,
		"blank": "   ",
		"empty_list": [],
		"empty_obj": {},
		"fine": "v"
	}}`)

	findings := MissingRequiredValues(out, c)

	assert.Equal(t, map[string]any{
		"absent":     "MISSING_FIELD",
		"nulled":     "null",
		"blank":      "",
		"empty_list": "[]",
		"empty_obj":  "{}",
	}, findings.Format())
}

func TestRegexViolations(t *testing.T) {
	s := loadSchema(t, `[
		{"name": "version", "regex": "[0-9]+\\.[0-9]+"},
		{"name": "free"}
	]`)
	c := NewConstraints(s, nil)

	out := outputFile(t, `{"modified_metadata": {
		"version": "v2",
		"free": "anything"
	}}`)

	findings := RegexViolations(out, c)
	assert.Equal(t, map[string]any{"version": "v2"}, findings.Format())

	ok := outputFile(t, `{"modified_metadata": {"version": "1.5"}}`)
	assert.Empty(t, RegexViolations(ok, c))
}

// The regex must match the whole value, not a substring.
func TestRegexAnchoredToWholeValue(t *testing.T) {
	s := loadSchema(t, `[{"name": "id", "regex": "[a-z]+"}]`)
	c := NewConstraints(s, nil)

	out := outputFile(t, `{"modified_metadata": {"id": "abc123"}}`)
	assert.Len(t, RegexViolations(out, c), 1)
}

func TestRegexViolationsSkipsNullAndBlank(t *testing.T) {
	s := loadSchema(t, `[{"name": "f", "regex": "x+", "required": true}]`)
	c := NewConstraints(s, nil)

	out := outputFile(t, `{"modified_metadata": {"f": null}}`)
	assert.Empty(t, RegexViolations(out, c))

	blank := outputFile(t, `{"modified_metadata": {"f": " "}}`)
	assert.Empty(t, RegexViolations(blank, c))
}

// An invalid regex drops that field's check instead of failing the run.
func TestConstraintsInvalidRegexSkipped(t *testing.T) {
	s := loadSchema(t, `[
		{"name": "broken", "regex": "("},
		{"name": "fine", "regex": "[0-9]+"}
	]`)

	c := NewConstraints(s, nil)

	assert.NotContains(t, c.Regex, "broken")
	assert.Contains(t, c.Regex, "fine")
}

func TestFindingsFormatSingleVsMany(t *testing.T) {
	f := make(Findings)
	f.add("one", "only")
	f.add("many", "b")
	f.add("many", "a")
	f.add("many", "a")

	assert.Equal(t, map[string]any{
		"one":  "only",
		"many": []string{"a", "b"},
	}, f.Format())
}

func TestFindNonstandardMergesAcrossFiles(t *testing.T) {
	s := loadSchema(t, `[
		{"name": "assay_type", "required": true, "permissible_values": ["CODEX"]}
	]`)

	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{
		"modified_metadata": {"assay_type": "weird"},
		"processing_log": {
			"field_mappings": {}, "value_mappings": {"assay_type": {"legacy": null}},
			"ambiguous_mappings": [], "excluded_data": {}, "metadata_patches": []
		}
	}`)
	writeFile(t, dir, "b.json", `{"modified_metadata": {}}`)
	writeFile(t, dir, "broken.json", `not json`)

	result, err := FindNonstandard(dir, s, nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"MISSING_FIELD", "legacy", "weird"},
		result["assay_type"].([]string))
}

func TestValuesForReviewAggregates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{
		"processing_log": {
			"field_mappings": {}, "value_mappings": {"f": {"x": null}},
			"ambiguous_mappings": [], "excluded_data": {}, "metadata_patches": []
		}
	}`)
	writeFile(t, dir, "b.json", `{
		"processing_log": {
			"field_mappings": {}, "value_mappings": {"f": {"x": null, "y": null}},
			"ambiguous_mappings": [], "excluded_data": {}, "metadata_patches": []
		}
	}`)

	result, err := ValuesForReview(dir, nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"f": []string{"x", "y"}}, result)
}
