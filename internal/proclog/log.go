// Package proclog holds the structured processing log accumulated over one
// record's transformation. Each pipeline phase builds its own fragment; the
// orchestrator folds the fragments into a combined log that serializes to a
// fixed JSON shape consumed by curator review tooling.
package proclog

// AmbiguousMapping records a legacy value whose mapping table offers more
// than one candidate target. The record keeps its original value; a curator
// has to pick.
type AmbiguousMapping struct {
	Field             string `json:"field"`
	Value             any    `json:"value"`
	PermissibleValues []any  `json:"permissible_values"`
}

// AppliedPatch records one field assignment made by a conditional patch rule,
// together with the full when clause that triggered it. The rule's source
// file is deliberately not part of the audit trail.
type AppliedPatch struct {
	Field      string         `json:"field"`
	Value      any            `json:"value"`
	Conditions map[string]any `json:"conditions"`
}

// Log is the additive audit trail for a single record. It is never shared
// across records; every transformation starts from New.
type Log struct {
	FieldMappings     map[string]string         `json:"field_mappings"`
	ValueMappings     map[string]map[string]any `json:"value_mappings"`
	AmbiguousMappings []AmbiguousMapping        `json:"ambiguous_mappings"`
	ExcludedData      map[string]any            `json:"excluded_data"`
	MetadataPatches   []AppliedPatch            `json:"metadata_patches"`
}

// New returns an empty log. All collections are allocated so the serialized
// form always carries {} / [] rather than null.
func New() *Log {
	return &Log{
		FieldMappings:     make(map[string]string),
		ValueMappings:     make(map[string]map[string]any),
		AmbiguousMappings: make([]AmbiguousMapping, 0),
		ExcludedData:      make(map[string]any),
		MetadataPatches:   make([]AppliedPatch, 0),
	}
}

// AddFieldMapping records a successful rename from a legacy field name to its
// target name.
func (l *Log) AddFieldMapping(legacy, target string) {
	l.FieldMappings[legacy] = target
}

// AddValueMapping records a value substitution for a field. A nil target is a
// valid standardization outcome and is preserved, distinct from "unmapped".
func (l *Log) AddValueMapping(field, legacyValue string, target any) {
	m, ok := l.ValueMappings[field]
	if !ok {
		m = make(map[string]any)
		l.ValueMappings[field] = m
	}
	m[legacyValue] = target
}

// AddAmbiguousMapping records a value that could not be substituted
// automatically because the table lists several candidates.
func (l *Log) AddAmbiguousMapping(field string, value any, candidates []any) {
	if candidates == nil {
		candidates = make([]any, 0)
	}
	l.AmbiguousMappings = append(l.AmbiguousMappings, AmbiguousMapping{
		Field:             field,
		Value:             value,
		PermissibleValues: candidates,
	})
}

// AddAppliedPatch records one field written by a matching patch rule.
func (l *Log) AddAppliedPatch(field string, value any, conditions map[string]any) {
	if conditions == nil {
		conditions = make(map[string]any)
	}
	l.MetadataPatches = append(l.MetadataPatches, AppliedPatch{
		Field:      field,
		Value:      value,
		Conditions: conditions,
	})
}

// AddExcludedField records an input field dropped because the target schema
// no longer declares it, keeping its original value for review.
func (l *Log) AddExcludedField(field string, value any) {
	l.ExcludedData[field] = value
}

// Merge folds other into the receiver: map entries overwrite per key, list
// entries append. Later-phase fragments therefore win only on colliding map
// keys, never by truncation.
func (l *Log) Merge(other *Log) {
	if other == nil {
		return
	}
	for k, v := range other.FieldMappings {
		l.FieldMappings[k] = v
	}
	for field, m := range other.ValueMappings {
		dst, ok := l.ValueMappings[field]
		if !ok {
			dst = make(map[string]any, len(m))
			l.ValueMappings[field] = dst
		}
		for k, v := range m {
			dst[k] = v
		}
	}
	l.AmbiguousMappings = append(l.AmbiguousMappings, other.AmbiguousMappings...)
	for k, v := range other.ExcludedData {
		l.ExcludedData[k] = v
	}
	l.MetadataPatches = append(l.MetadataPatches, other.MetadataPatches...)
}
