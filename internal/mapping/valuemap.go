package mapping

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/metadata"
	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/proclog"
)

// ValueTable maps, per target field, the string form of a legacy value to
// its standardized replacement. A replacement may be a scalar, null, or a
// list of candidates; lists of two or more mark the mapping as ambiguous and
// leave the record untouched pending human review.
type ValueTable struct {
	fields map[string]map[string]any
	log    *zap.Logger
}

// NewValueTable returns an empty value-mapping table. logger may be nil.
func NewValueTable(logger *zap.Logger) *ValueTable {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ValueTable{fields: make(map[string]map[string]any), log: logger}
}

// FieldCount returns the number of fields with a value-mapping table.
func (t *ValueTable) FieldCount() int { return len(t.fields) }

// HasField reports whether any mappings exist for the field.
func (t *ValueTable) HasField(field string) bool {
	_, ok := t.fields[field]
	return ok
}

// LoadDir loads every *.json file in dir (non-recursive, lexical order).
func (t *ValueTable) LoadDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return fmt.Errorf("value mapping dir %s: %w", dir, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("value mapping dir %s: no JSON files found", dir)
	}
	sort.Strings(files)
	for _, file := range files {
		if err := t.LoadFile(file); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile loads one mapping file. Two shapes are accepted: nested
// {field: {legacyValue: target}} entries, and flat {legacyValue: target}
// entries whose field name is the file's basename without extension. Flat
// entries merge into the stem field's table; a nested entry replaces any
// previously accumulated table for its field wholesale, so with duplicate
// field definitions the last nested file wins.
func (t *ValueTable) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("value mapping %s: %w", path, err)
	}
	rec, err := metadata.DecodeObject(data)
	if err != nil {
		return fmt.Errorf("value mapping %s: must contain a JSON object: %w", path, err)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	for _, key := range rec.Keys() {
		value := rec.Value(key)
		if nested, ok := value.(map[string]any); ok {
			t.fields[key] = nested
			continue
		}
		flat, ok := t.fields[stem]
		if !ok {
			flat = make(map[string]any)
			t.fields[stem] = flat
		}
		flat[key] = value
	}
	t.log.Debug("loaded value mapping file", zap.String("file", path), zap.Int("fields", len(t.fields)))
	return nil
}

// MapValue maps one field value, recording the outcome in log. The value is
// returned unchanged when the field has no table, the legacy value is null,
// or its string form has no entry. Lists of two or more candidates are
// ambiguous: the original value is kept and an ambiguous-mapping entry added
// instead.
func (t *ValueTable) MapValue(field string, value any, log *proclog.Log) any {
	table, ok := t.fields[field]
	if !ok || value == nil {
		return value
	}

	key := metadata.Stringify(value)
	target, ok := table[key]
	if !ok {
		return value
	}

	if list, isList := target.([]any); isList {
		if len(list) > 1 {
			log.AddAmbiguousMapping(field, value, list)
			return value
		}
		if len(list) == 1 {
			target = list[0]
		}
		// A zero-element list is itself the mapped value.
	}

	log.AddValueMapping(field, key, target)
	return target
}

// Apply rewrites every field value of rec through the table, returning the
// rewritten record and the phase log fragment.
func (t *ValueTable) Apply(rec *metadata.Record) (*metadata.Record, *proclog.Log) {
	mapped := metadata.NewRecord()
	log := proclog.New()
	for _, field := range rec.Keys() {
		mapped.Set(field, t.MapValue(field, rec.Value(field), log))
	}
	return mapped, log
}
