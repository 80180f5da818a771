package transform

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/metadata"
)

func TestFormatEnvelopePrettyPrints(t *testing.T) {
	env, err := metadata.DecodeEnvelope([]byte(`{"uuid":"abc","metadata":{"f":"v"}}`))
	require.NoError(t, err)

	out, err := FormatEnvelope(env)
	require.NoError(t, err)

	assert.Equal(t, `{
  "uuid": "abc",
  "metadata": {
    "f": "v"
  }
}
`, string(out))
}

// json_patch arrays are written one compact operation per line; everything
// else gets fully indented.
func TestFormatEnvelopeCompactPatchArray(t *testing.T) {
	env, err := metadata.DecodeEnvelope([]byte(`{"other_list": [1, 2]}`))
	require.NoError(t, err)
	require.NoError(t, env.SetValue("json_patch", []map[string]any{
		{"op": "replace", "path": "/a", "value": "x"},
		{"op": "remove", "path": "/b"},
	}))

	out, err := FormatEnvelope(env)
	require.NoError(t, err)
	text := string(out)

	assert.Contains(t, text, "  \"json_patch\": [\n")
	assert.Contains(t, text, `    {"op":"replace","path":"/a","value":"x"},`)
	assert.Contains(t, text, `    {"op":"remove","path":"/b"}`)
	// The non-patch array stays indented.
	assert.Contains(t, text, "  \"other_list\": [\n    1,\n    2\n  ]")
}

func TestFormatEnvelopeEmptyPatchArray(t *testing.T) {
	env := &metadata.Envelope{}
	require.NoError(t, env.SetValue("json_patch", []any{}))

	out, err := FormatEnvelope(env)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"json_patch\": [\n  ]\n}\n", string(out))
}

func TestWriteOutputUsesInputBasename(t *testing.T) {
	env, err := metadata.DecodeEnvelope([]byte(`{"uuid": "abc"}`))
	require.NoError(t, err)

	outputDir := filepath.Join(t.TempDir(), "nested", "out")
	path, err := WriteOutput(env, "/data/input/rec-001.json", outputDir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(outputDir, "rec-001.json"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n"))
	assert.Contains(t, string(data), `"uuid": "abc"`)
}
