// Package schema loads the target schema (a JSON array of field definitions)
// and projects records onto it: exactly the declared field set, in
// declaration order, with defaults for missing fields and obsolete input
// fields dropped into the processing log.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/metadata"
	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/proclog"
)

// Field is one target-schema field definition.
type Field struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	Type              string `json:"type"`
	Required          bool   `json:"required"`
	Regex             string `json:"regex"`
	DefaultValue      any    `json:"default_value"`
	PermissibleValues []any  `json:"permissible_values"`
}

// Schema is the authoritative target field set, in declaration order.
// Immutable after Load; transformations share it read-only.
type Schema struct {
	fields []Field
	byName map[string]int
	log    *zap.Logger
}

// New returns an empty schema. logger may be nil.
func New(logger *zap.Logger) *Schema {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Schema{byName: make(map[string]int), log: logger}
}

// Load reads a schema file: a JSON array of field-definition objects.
// Entries that are not objects or lack a name are skipped with a warning;
// anything else structural is fatal.
func (s *Schema) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("schema %s: %w", path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw []json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("schema %s: must contain a JSON array: %w", path, err)
	}

	for i, entry := range raw {
		fdec := json.NewDecoder(bytes.NewReader(entry))
		fdec.UseNumber()
		var field Field
		if err := fdec.Decode(&field); err != nil {
			s.log.Warn("skipping malformed schema entry",
				zap.String("file", path), zap.Int("index", i), zap.Error(err))
			continue
		}
		if field.Name == "" {
			s.log.Warn("skipping schema entry without a name",
				zap.String("file", path), zap.Int("index", i))
			continue
		}
		if i, dup := s.byName[field.Name]; dup {
			// Later definition wins but keeps the original position.
			s.fields[i] = field
			continue
		}
		s.byName[field.Name] = len(s.fields)
		s.fields = append(s.fields, field)
	}
	s.log.Debug("loaded schema", zap.String("file", path), zap.Int("fields", len(s.fields)))
	return nil
}

// Fields returns the field definitions in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Len returns the number of declared fields.
func (s *Schema) Len() int { return len(s.fields) }

// Lookup returns the definition for a field name.
func (s *Schema) Lookup(name string) (Field, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Has reports whether the schema declares the field.
func (s *Schema) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// DefaultValue returns the declared default for a field, or nil.
func (s *Schema) DefaultValue(name string) any {
	f, ok := s.Lookup(name)
	if !ok {
		return nil
	}
	return f.DefaultValue
}

// RequiredFields returns the names of required fields in declaration order.
func (s *Schema) RequiredFields() []string {
	var out []string
	for _, f := range s.fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// Apply projects rec onto the schema: the output holds exactly the declared
// fields in declaration order, copying input values verbatim and filling
// missing fields with their defaults. Input fields absent from the schema
// are dropped and logged as excluded data. Applying twice to an already
// compliant record is a no-op.
func (s *Schema) Apply(rec *metadata.Record) (*metadata.Record, *proclog.Log) {
	compliant := metadata.NewRecord()
	log := proclog.New()

	for _, field := range s.fields {
		if v, ok := rec.Get(field.Name); ok {
			compliant.Set(field.Name, v)
		} else {
			compliant.Set(field.Name, field.DefaultValue)
		}
	}

	for _, name := range rec.Keys() {
		if !s.Has(name) {
			log.AddExcludedField(name, rec.Value(name))
		}
	}
	return compliant, log
}
