// Package mapping implements the field-renaming and value-rewriting phases:
// legacy field names to target schema names, and per-field legacy values to
// standardized values. Tables are loaded once and shared read-only; applying
// them to a record produces a new record plus a processing-log fragment.
package mapping

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/metadata"
	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/proclog"
)

// FieldTable maps legacy field names to target schema field names. A null
// target in the source file means "no target": the field passes through
// under its legacy name.
type FieldTable struct {
	targets map[string]any // string target or nil
	log     *zap.Logger
}

// NewFieldTable returns an empty field-mapping table. logger may be nil.
func NewFieldTable(logger *zap.Logger) *FieldTable {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FieldTable{targets: make(map[string]any), log: logger}
}

// Len returns the number of legacy fields with an entry.
func (t *FieldTable) Len() int { return len(t.targets) }

// LoadFile merges one JSON mapping object into the table. Conflicting
// entries keep the first-seen target; the conflict is reported as a
// data-quality signal, never an error.
func (t *FieldTable) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("field mapping %s: %w", path, err)
	}
	rec, err := metadata.DecodeObject(data)
	if err != nil {
		return fmt.Errorf("field mapping %s: must contain a JSON object: %w", path, err)
	}

	for _, legacy := range rec.Keys() {
		target := rec.Value(legacy)
		if target != nil {
			if _, ok := target.(string); !ok {
				return fmt.Errorf("field mapping %s: target for %q must be a string or null", path, legacy)
			}
		}
		if existing, ok := t.targets[legacy]; ok {
			if !metadata.Equal(existing, target) {
				t.log.Warn("field mapping conflict, keeping first-seen target",
					zap.String("legacy", legacy),
					zap.Any("kept", existing),
					zap.Any("ignored", target),
					zap.String("file", path))
			}
			continue
		}
		t.targets[legacy] = target
	}
	return nil
}

// LoadDir merges every *.json file in dir (non-recursive, lexical order)
// with the same keep-first-seen conflict policy.
func (t *FieldTable) LoadDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return fmt.Errorf("field mapping dir %s: %w", dir, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("field mapping dir %s: no JSON files found", dir)
	}
	sort.Strings(files)
	for _, file := range files {
		if err := t.LoadFile(file); err != nil {
			return err
		}
	}
	return nil
}

// Target returns the target name for a legacy field. ok is false when no
// mapping exists or the mapping is an explicit null.
func (t *FieldTable) Target(legacy string) (string, bool) {
	v, ok := t.targets[legacy]
	if !ok || v == nil {
		return "", false
	}
	return v.(string), true
}

// Apply renames the record's fields. Input order drives iteration: when two
// legacy fields map to the same target, the first-encountered value is kept
// and the later mapping silently dropped. Only real renames (legacy name
// differs from target) are logged.
func (t *FieldTable) Apply(rec *metadata.Record) (*metadata.Record, *proclog.Log) {
	mapped := metadata.NewRecord()
	log := proclog.New()

	for _, legacy := range rec.Keys() {
		value := rec.Value(legacy)
		target, ok := t.Target(legacy)
		if !ok {
			mapped.Set(legacy, value)
			continue
		}
		if mapped.Has(target) {
			// Collision: an earlier legacy field already produced this
			// target. Keep the earlier value.
			continue
		}
		mapped.Set(target, value)
		if legacy != target {
			log.AddFieldMapping(legacy, target)
		}
	}
	return mapped, log
}
