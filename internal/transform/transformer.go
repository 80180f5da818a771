// Package transform sequences the four transformation phases over one record
// and drives bulk runs over directories of records. Phase order is fixed:
// conditional patching, field mapping, value mapping, schema compliance. Each
// phase boundary is diffed into RFC 6902 operations and each phase emits a
// processing-log fragment; the orchestrator folds both into the output
// envelope.
package transform

import (
	"fmt"
	"os"

	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/jsonpatch"
	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/mapping"
	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/metadata"
	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/proclog"
	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/rules"
	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/schema"
)

// RecordError marks a failure confined to one input record. Bulk runs catch
// it and continue with the next file.
type RecordError struct {
	Path string
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %s: %v", e.Path, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Transformer owns the loaded, immutable tables and applies the pipeline to
// records. It is safe for concurrent use: per-record state (logs, patched
// copies) is created fresh inside each call.
type Transformer struct {
	rules  *rules.Store
	fields *mapping.FieldTable
	values *mapping.ValueTable
	schema *schema.Schema
}

// New assembles a transformer from loaded components.
func New(r *rules.Store, f *mapping.FieldTable, v *mapping.ValueTable, s *schema.Schema) *Transformer {
	return &Transformer{rules: r, fields: f, values: v, schema: s}
}

// Result carries one record's transformation output.
type Result struct {
	// Envelope is the input envelope with modified_metadata, json_patch and
	// processing_log appended.
	Envelope *metadata.Envelope
	// Metadata is the schema-compliant record.
	Metadata *metadata.Record
	// Patch is the sorted concatenation of the four phase diffs.
	Patch []jsonpatch.Operation
	// Log is the combined processing log.
	Log *proclog.Log
}

// TransformFile loads one input file and transforms its metadata. Every
// failure is a *RecordError carrying the file path.
func (t *Transformer) TransformFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &RecordError{Path: path, Err: err}
	}
	env, err := metadata.DecodeEnvelope(data)
	if err != nil {
		return nil, &RecordError{Path: path, Err: err}
	}
	res, err := t.Transform(env)
	if err != nil {
		return nil, &RecordError{Path: path, Err: err}
	}
	return res, nil
}

// Transform runs the pipeline over env's metadata and returns the output
// envelope. env itself is not mutated.
func (t *Transformer) Transform(env *metadata.Envelope) (*Result, error) {
	legacy, err := env.Metadata()
	if err != nil {
		return nil, err
	}

	var ops []jsonpatch.Operation
	combined := proclog.New()

	// Phase 0: conditional patching.
	patched, patchLog := t.rules.Applier().Apply(legacy)
	ops = append(ops, jsonpatch.Diff(legacy, patched)...)

	// Phase 1: field mapping.
	fieldMapped, fieldLog := t.fields.Apply(patched)
	ops = append(ops, jsonpatch.Diff(patched, fieldMapped)...)

	// Phase 2: value mapping.
	valueMapped, valueLog := t.values.Apply(fieldMapped)
	ops = append(ops, jsonpatch.Diff(fieldMapped, valueMapped)...)

	// Phase 3: schema compliance.
	compliant, schemaLog := t.schema.Apply(valueMapped)
	ops = append(ops, jsonpatch.Diff(valueMapped, compliant)...)

	combined.Merge(patchLog)
	combined.Merge(fieldLog)
	combined.Merge(valueLog)
	combined.Merge(schemaLog)

	// Phases may revisit a path (a renamed-away field the schema re-adds,
	// a rewritten field the schema drops); fold those into their net op so
	// the sorted patch still replays.
	sorted := jsonpatch.Sort(jsonpatch.Coalesce(ops))

	out := env.Clone()
	if err := out.SetValue("modified_metadata", compliant); err != nil {
		return nil, err
	}
	if err := out.SetValue("json_patch", sorted); err != nil {
		return nil, err
	}
	if err := out.SetValue("processing_log", combined); err != nil {
		return nil, err
	}

	return &Result{
		Envelope: out,
		Metadata: compliant,
		Patch:    sorted,
		Log:      combined,
	}, nil
}
