// Package rules implements the conditional patch rule engine: a store of
// {when, then} rules loaded from JSON files, a tagged-union condition tree
// compiled from the when clauses, and a per-transformation applier.
package rules

import (
	"fmt"

	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/metadata"
)

// Clause keys permitted inside a when object.
const (
	keyMust   = "__must__"
	keyShould = "__should__"
)

// Condition is a compiled when clause. Evaluation is a pure function of the
// record and is safe to repeat against the same snapshot.
type Condition interface {
	Evaluate(rec *metadata.Record) bool
}

// Always applies unconditionally. An empty when clause compiles to it.
type Always struct{}

// Evaluate implements Condition.
func (Always) Evaluate(*metadata.Record) bool { return true }

// And requires every item to hold. An empty item list is vacuously true,
// mirroring all() semantics for __must__.
type And struct {
	Items []Condition
}

// Evaluate implements Condition.
func (c And) Evaluate(rec *metadata.Record) bool {
	for _, item := range c.Items {
		if !item.Evaluate(rec) {
			return false
		}
	}
	return true
}

// Or requires at least one item to hold. An empty item list is false,
// mirroring any() semantics for __should__.
type Or struct {
	Items []Condition
}

// Evaluate implements Condition.
func (c Or) Evaluate(rec *metadata.Record) bool {
	for _, item := range c.Items {
		if item.Evaluate(rec) {
			return true
		}
	}
	return false
}

// FieldEquals is a plain condition item: every field must hold the expected
// value under type-sensitive equality. Absent fields compare as null.
type FieldEquals struct {
	Fields map[string]any
}

// Evaluate implements Condition.
func (c FieldEquals) Evaluate(rec *metadata.Record) bool {
	for field, expected := range c.Fields {
		if !metadata.Equal(rec.Value(field), expected) {
			return false
		}
	}
	return true
}

// compileWhen validates and compiles a raw when clause into a Condition.
// Only __must__ and __should__ are legal top-level keys; their values must be
// arrays of objects, validated recursively. context names the offending rule
// in error messages.
func compileWhen(when map[string]any, context string) (Condition, error) {
	if len(when) == 0 {
		return Always{}, nil
	}

	var groups []Condition
	for _, key := range []string{keyMust, keyShould} {
		raw, ok := when[key]
		if !ok {
			continue
		}
		items, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("%s: '%s' must be an array, got %T", context, key, raw)
		}
		compiled, err := compileItems(items, fmt.Sprintf("%s.%s", context, key))
		if err != nil {
			return nil, err
		}
		if key == keyMust {
			groups = append(groups, And{Items: compiled})
		} else {
			groups = append(groups, Or{Items: compiled})
		}
	}

	for key := range when {
		if key != keyMust && key != keyShould {
			return nil, fmt.Errorf(
				"%s: 'when' can only contain '__must__' and/or '__should__' keys, found %q",
				context, key)
		}
	}

	if len(groups) == 1 {
		return groups[0], nil
	}
	// Both groups present: each must be satisfied.
	return And{Items: groups}, nil
}

// compileItems compiles the members of a __must__ or __should__ array. An
// item carrying __must__/__should__ keys is a nested sub-tree; anything else
// is a plain field-equality map.
func compileItems(items []any, context string) ([]Condition, error) {
	compiled := make([]Condition, 0, len(items))
	for i, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be an object, got %T", context, i, raw)
		}
		if _, nested := item[keyMust]; nested {
			sub, err := compileWhen(item, fmt.Sprintf("%s[%d]", context, i))
			if err != nil {
				return nil, err
			}
			compiled = append(compiled, sub)
			continue
		}
		if _, nested := item[keyShould]; nested {
			sub, err := compileWhen(item, fmt.Sprintf("%s[%d]", context, i))
			if err != nil {
				return nil, err
			}
			compiled = append(compiled, sub)
			continue
		}
		compiled = append(compiled, FieldEquals{Fields: item})
	}
	return compiled, nil
}
