package transform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/metadata"
)

// compactArrayKeys lists envelope keys whose array values are written one
// element per line instead of fully indented. json_patch entries are long
// and uniform; one line each keeps diffs of output files reviewable.
var compactArrayKeys = map[string]bool{"json_patch": true}

// WriteOutput writes env to outputDir under the input file's basename,
// creating the directory as needed, and returns the written path.
func WriteOutput(env *metadata.Envelope, inputFile, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(inputFile), filepath.Ext(inputFile))
	outputFile := filepath.Join(outputDir, stem+".json")

	formatted, err := FormatEnvelope(env)
	if err != nil {
		return "", fmt.Errorf("formatting %s: %w", outputFile, err)
	}
	if err := os.WriteFile(outputFile, formatted, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", outputFile, err)
	}
	return outputFile, nil
}

// FormatEnvelope renders env as pretty JSON with two-space indentation,
// except that compact-array keys put each array element on its own line.
// Key order follows the envelope, so output is deterministic.
func FormatEnvelope(env *metadata.Envelope) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{\n")

	keys := env.Keys()
	for i, key := range keys {
		raw, _ := env.Get(key)
		comma := ","
		if i == len(keys)-1 {
			comma = ""
		}

		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}

		if compactArrayKeys[key] {
			items, err := splitArray(raw)
			if err == nil {
				fmt.Fprintf(&buf, "  %s: [\n", name)
				for j, item := range items {
					itemComma := ","
					if j == len(items)-1 {
						itemComma = ""
					}
					fmt.Fprintf(&buf, "    %s%s\n", item, itemComma)
				}
				fmt.Fprintf(&buf, "  ]%s\n", comma)
				continue
			}
			// Not an array after all: fall through to normal formatting.
		}

		var pretty bytes.Buffer
		if err := json.Indent(&pretty, raw, "  ", "  "); err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		fmt.Fprintf(&buf, "  %s: %s%s\n", name, pretty.Bytes(), comma)
	}

	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// splitArray splits a raw JSON array into its compactly encoded elements.
func splitArray(raw json.RawMessage) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		var compact bytes.Buffer
		if err := json.Compact(&compact, item); err != nil {
			return nil, err
		}
		out = append(out, json.RawMessage(compact.String()))
	}
	return out, nil
}
