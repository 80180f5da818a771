package generate

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// yamlTypeMap maps upstream YAML field types to the simplified schema types.
// Unknown types fall back to "text".
var yamlTypeMap = map[string]string{
	"text-field":            "text",
	"link-field":            "text",
	"controlled-term-field": "categorical",
	"numeric-field":         "number",
	"radio-field":           "categorical",
	"checkbox-field":        "categorical",
	"date-field":            "text",
	"datetime-field":        "text",
	"email-field":           "text",
	"url-field":             "text",
}

var categoricalTypes = map[string]bool{
	"controlled-term-field": true,
	"radio-field":           true,
	"checkbox-field":        true,
}

// SchemaField is one entry of the generated simplified schema. The member
// order matches what the transformer's schema loader expects.
type SchemaField struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	Type              string `json:"type"`
	Required          bool   `json:"required"`
	Regex             any    `json:"regex"`
	DefaultValue      any    `json:"default_value"`
	PermissibleValues any    `json:"permissible_values"`
}

// TargetSchemaFromYAML fetches an upstream YAML schema (local path or
// http(s) URL), converts it to the simplified JSON schema array, and writes
// it to outputFile.
func TargetSchemaFromYAML(source, outputFile string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	content, err := fetchSource(source)
	if err != nil {
		return err
	}

	var doc map[string]any
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return fmt.Errorf("schema source %s: invalid YAML: %w", source, err)
	}

	fields, err := ConvertYAMLSchema(doc, logger)
	if err != nil {
		return fmt.Errorf("schema source %s: %w", source, err)
	}

	if err := writeJSONFile(outputFile, fields); err != nil {
		return err
	}
	logger.Info("generated target schema",
		zap.String("source", source),
		zap.String("output", outputFile),
		zap.Int("fields", len(fields)))
	return nil
}

// ConvertYAMLSchema turns a parsed upstream schema document into the
// simplified field list. The document must carry a "children" list of field
// definitions; malformed entries are skipped with a warning.
func ConvertYAMLSchema(doc map[string]any, logger *zap.Logger) ([]SchemaField, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	rawChildren, ok := doc["children"]
	if !ok {
		return nil, fmt.Errorf("YAML document has no 'children' list")
	}
	children, ok := rawChildren.([]any)
	if !ok {
		return nil, fmt.Errorf("'children' is not a list")
	}

	fields := make([]SchemaField, 0, len(children))
	for i, raw := range children {
		child, ok := raw.(map[string]any)
		if !ok {
			logger.Warn("skipping non-object schema field", zap.Int("index", i))
			continue
		}
		field, ok := convertField(child)
		if !ok {
			logger.Warn("skipping schema field without name", zap.Int("index", i))
			continue
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func convertField(child map[string]any) (SchemaField, bool) {
	name, _ := child["name"].(string)
	if name == "" {
		name, _ = child["key"].(string)
	}
	if name == "" {
		return SchemaField{}, false
	}

	description, _ := child["description"].(string)
	yamlType, _ := child["type"].(string)

	jsonType, ok := yamlTypeMap[yamlType]
	if !ok {
		jsonType = "text"
	}

	required := false
	if conf, ok := child["configuration"].(map[string]any); ok {
		required, _ = conf["required"].(bool)
	}

	return SchemaField{
		Name:              name,
		Description:       description,
		Type:              jsonType,
		Required:          required,
		Regex:             child["regex"],
		DefaultValue:      extractDefault(child, yamlType),
		PermissibleValues: extractPermissibleValues(child, yamlType),
	}, true
}

// extractDefault pulls a field's default. Controlled-term defaults are
// objects carrying both label and ontology value; the label is the
// human-facing form the transformed records use.
func extractDefault(child map[string]any, yamlType string) any {
	def := child["default"]
	if def == nil {
		return nil
	}
	if s, ok := def.(string); ok {
		return s
	}
	if obj, ok := def.(map[string]any); ok {
		if yamlType == "controlled-term-field" {
			if label := obj["label"]; label != nil {
				return label
			}
		}
		return obj["value"]
	}
	return def
}

// extractPermissibleValues collects the allowed labels of categorical
// fields. Purely numeric labels become numbers so the review pass compares
// them the way the upstream spreadsheet does. Non-categorical fields have no
// permissible set.
func extractPermissibleValues(child map[string]any, yamlType string) any {
	if !categoricalTypes[yamlType] {
		return nil
	}
	values, ok := child["values"].([]any)
	if !ok || len(values) == 0 {
		return nil
	}

	out := make([]any, 0, len(values))
	for _, raw := range values {
		switch v := raw.(type) {
		case map[string]any:
			label := v["label"]
			if label == nil {
				label = v["termLabel"]
			}
			switch l := label.(type) {
			case string:
				if n, err := strconv.Atoi(l); err == nil && isDigits(l) {
					out = append(out, n)
				} else {
					out = append(out, l)
				}
			case nil:
				// No label, skip.
			default:
				out = append(out, l)
			}
		case string, int, float64:
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// fetchSource reads the YAML from a local file or an http(s) URL.
func fetchSource(source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		resp, err := http.Get(source)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", source, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetching %s: HTTP %d", source, resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}
	return data, nil
}
