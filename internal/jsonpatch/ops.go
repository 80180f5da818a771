// Package jsonpatch computes RFC 6902 operation lists describing the
// transformation between two record snapshots, and sorts concatenated
// operation lists into a reproducible order.
package jsonpatch

import (
	"encoding/json"
	"sort"
	"strings"
)

// Op names from RFC 6902.
const (
	OpAdd     = "add"
	OpRemove  = "remove"
	OpReplace = "replace"
	OpMove    = "move"
	OpCopy    = "copy"
	OpTest    = "test"
)

// Operation is a single RFC 6902 operation. From is meaningful only for move
// and copy; Value only for add, replace and test.
type Operation struct {
	Op    string
	Path  string
	From  string
	Value any
}

// Add builds an add operation.
func Add(path string, value any) Operation {
	return Operation{Op: OpAdd, Path: path, Value: value}
}

// Remove builds a remove operation.
func Remove(path string) Operation {
	return Operation{Op: OpRemove, Path: path}
}

// Replace builds a replace operation.
func Replace(path string, value any) Operation {
	return Operation{Op: OpReplace, Path: path, Value: value}
}

// MarshalJSON emits only the members defined for the operation's op, so a
// remove never carries "value" and "from" appears only on move/copy. A null
// value on add/replace/test is emitted explicitly.
func (o Operation) MarshalJSON() ([]byte, error) {
	var sb strings.Builder
	sb.WriteString(`{"op":`)
	writeJSON(&sb, o.Op)
	sb.WriteString(`,"path":`)
	writeJSON(&sb, o.Path)
	switch o.Op {
	case OpMove, OpCopy:
		sb.WriteString(`,"from":`)
		writeJSON(&sb, o.From)
	case OpAdd, OpReplace, OpTest:
		sb.WriteString(`,"value":`)
		writeJSON(&sb, o.Value)
	}
	sb.WriteByte('}')
	return []byte(sb.String()), nil
}

// UnmarshalJSON accepts the standard RFC 6902 object shape.
func (o *Operation) UnmarshalJSON(data []byte) error {
	var raw struct {
		Op    string `json:"op"`
		Path  string `json:"path"`
		From  string `json:"from"`
		Value any    `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.Op = raw.Op
	o.Path = raw.Path
	o.From = raw.From
	o.Value = raw.Value
	return nil
}

func writeJSON(sb *strings.Builder, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		sb.WriteString("null")
		return
	}
	sb.Write(b)
}

// canonical returns the operation's canonical JSON form: an object with
// alphabetically sorted members, used as the final sort tiebreaker.
func (o Operation) canonical() string {
	m := map[string]any{"op": o.Op, "path": o.Path}
	switch o.Op {
	case OpMove, OpCopy:
		m["from"] = o.From
	case OpAdd, OpReplace, OpTest:
		m["value"] = o.Value
	}
	b, err := json.Marshal(m) // map keys marshal sorted
	if err != nil {
		return ""
	}
	return string(b)
}

// Coalesce folds runs of operations addressing the same path into the one
// operation with the same net effect: remove then add becomes replace,
// replace then remove becomes remove, add then remove cancels, and repeated
// value writes keep the last value. Concatenated phase diffs can touch a
// path more than once (a field renamed away and re-added with a default, or
// rewritten and then dropped); those pairs replay fine in sequence but not
// after Sort, which orders add before remove and remove before replace.
func Coalesce(ops []Operation) []Operation {
	byPath := make(map[string]int)
	out := make([]Operation, 0, len(ops))

	for _, op := range ops {
		if i, seen := byPath[op.Path]; seen {
			prev := out[i]
			switch {
			case prev.Op == OpRemove && op.Op == OpAdd:
				out[i] = Replace(op.Path, op.Value)
				continue
			case prev.Op == OpAdd && op.Op == OpReplace:
				out[i] = Add(op.Path, op.Value)
				continue
			case prev.Op == OpReplace && op.Op == OpReplace:
				out[i] = Replace(op.Path, op.Value)
				continue
			case prev.Op == OpReplace && op.Op == OpRemove:
				out[i] = Remove(op.Path)
				continue
			case prev.Op == OpAdd && op.Op == OpRemove:
				// The path never existed outside the pipeline.
				out = append(out[:i], out[i+1:]...)
				delete(byPath, op.Path)
				for p, j := range byPath {
					if j > i {
						byPath[p] = j - 1
					}
				}
				continue
			}
		}
		byPath[op.Path] = len(out)
		out = append(out, op)
	}
	return out
}

// Sort orders ops by (op, path, from-or-empty, canonical JSON). The sort is
// global across phase boundaries; callers feed it Coalesce output so the
// reordering cannot break replay.
func Sort(ops []Operation) []Operation {
	sorted := make([]Operation, len(ops))
	copy(sorted, ops)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Op != b.Op {
			return a.Op < b.Op
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.From != b.From {
			return a.From < b.From
		}
		return a.canonical() < b.canonical()
	})
	return sorted
}

// EscapeToken escapes one JSON-Pointer reference token per RFC 6901.
func EscapeToken(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}
