package review

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectSummaryTallies(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{
		"modified_metadata": {},
		"processing_log": {
			"field_mappings": {"old": "new", "op": "operator"},
			"value_mappings": {"f": {"x": "1", "y": "2"}},
			"ambiguous_mappings": [
				{"field": "f", "value": "z", "permissible_values": ["a", "b"]}
			],
			"excluded_data": {"gone": 1},
			"metadata_patches": [{"field": "p", "value": "v", "conditions": {}}]
		}
	}`)
	writeFile(t, dir, "b.json", `{
		"modified_metadata": {},
		"processing_log": {
			"field_mappings": {},
			"value_mappings": {},
			"ambiguous_mappings": [
				{"field": "f", "value": "w", "permissible_values": []},
				{"field": "g", "value": "q", "permissible_values": []}
			],
			"excluded_data": {"gone": 2, "also_gone": 3},
			"metadata_patches": []
		}
	}`)
	writeFile(t, dir, "broken.json", `{`)

	stats, err := CollectSummary(dir, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.FilesProcessed)
	assert.Equal(t, 2, stats.FieldMappings)
	assert.Equal(t, 2, stats.ValueMappings)
	assert.Equal(t, 3, stats.AmbiguousMappings)
	assert.Equal(t, 1, stats.AppliedPatches)
	assert.Equal(t, 3, stats.ExcludedFields)

	assert.Equal(t, []FieldCount{{"f", 2}, {"g", 1}}, stats.AmbiguousByField)
	assert.Equal(t, []FieldCount{{"gone", 2}, {"also_gone", 1}}, stats.ExcludedByField)
}

func TestWriteSummaryHTML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{
		"modified_metadata": {},
		"processing_log": {
			"field_mappings": {"old": "new"},
			"value_mappings": {},
			"ambiguous_mappings": [],
			"excluded_data": {},
			"metadata_patches": []
		}
	}`)

	output := filepath.Join(t.TempDir(), "reports", "summary.html")
	require.NoError(t, WriteSummaryHTML(dir, output, nil))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, "<title>Transformation Summary</title>")
	assert.Contains(t, html, "<th>Files processed</th><td>1</td>")
	assert.Contains(t, html, "<th>Field renames</th><td>1</td>")
}
