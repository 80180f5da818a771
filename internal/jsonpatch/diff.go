package jsonpatch

import (
	"sort"
	"strconv"

	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/metadata"
)

// Diff computes the operations that transform before into after. Objects are
// diffed member-wise, arrays index-wise, everything else by replacement.
// Applying the returned operations in order to before reproduces after
// exactly; minimality beyond that is not a goal.
func Diff(before, after *metadata.Record) []Operation {
	var ops []Operation

	// Removals first, highest precedence for replay: walk before's fields in
	// record order.
	for _, key := range before.Keys() {
		path := "/" + EscapeToken(key)
		av, ok := after.Get(key)
		if !ok {
			ops = append(ops, Remove(path))
			continue
		}
		ops = append(ops, diffValue(path, before.Value(key), av)...)
	}
	for _, key := range after.Keys() {
		if !before.Has(key) {
			ops = append(ops, Add("/"+EscapeToken(key), after.Value(key)))
		}
	}
	return ops
}

// diffValue diffs two values rooted at path.
func diffValue(path string, before, after any) []Operation {
	if metadata.Equal(before, after) {
		return nil
	}

	switch b := before.(type) {
	case map[string]any:
		if a, ok := after.(map[string]any); ok {
			return diffObject(path, b, a)
		}
	case []any:
		if a, ok := after.([]any); ok {
			return diffArray(path, b, a)
		}
	}
	return []Operation{Replace(path, after)}
}

// diffObject diffs two nested objects member-wise. Nested maps carry no
// insertion order, so members are visited sorted for deterministic output.
func diffObject(path string, before, after map[string]any) []Operation {
	var ops []Operation

	keys := make([]string, 0, len(before))
	for k := range before {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sub := path + "/" + EscapeToken(k)
		av, ok := after[k]
		if !ok {
			ops = append(ops, Remove(sub))
			continue
		}
		ops = append(ops, diffValue(sub, before[k], av)...)
	}

	added := make([]string, 0)
	for k := range after {
		if _, ok := before[k]; !ok {
			added = append(added, k)
		}
	}
	sort.Strings(added)
	for _, k := range added {
		ops = append(ops, Add(path+"/"+EscapeToken(k), after[k]))
	}
	return ops
}

// diffArray diffs two arrays index-wise: shared indexes recurse and a longer
// after appends. A shrinking array is replaced wholesale; index removals
// would stop replaying correctly once the global sort reorders them by path.
func diffArray(path string, before, after []any) []Operation {
	if len(after) < len(before) {
		return []Operation{Replace(path, after)}
	}

	var ops []Operation
	for i := range before {
		ops = append(ops, diffValue(path+"/"+strconv.Itoa(i), before[i], after[i])...)
	}
	for i := len(before); i < len(after); i++ {
		ops = append(ops, Add(path+"/"+strconv.Itoa(i), after[i]))
	}
	return ops
}
