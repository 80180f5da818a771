package jsonpatch

import (
	"encoding/json"
	"testing"

	evanpatch "github.com/evanphx/json-patch/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/metadata"
)

func record(t *testing.T, body string) *metadata.Record {
	t.Helper()
	rec, err := metadata.DecodeObject([]byte(body))
	require.NoError(t, err)
	return rec
}

// replay applies ops to before with an independent RFC 6902 engine and
// requires the result to equal after.
func replay(t *testing.T, before, after *metadata.Record, ops []Operation) {
	t.Helper()
	patchJSON, err := json.Marshal(ops)
	require.NoError(t, err)
	patch, err := evanpatch.DecodePatch(patchJSON)
	require.NoError(t, err)

	doc, err := json.Marshal(before)
	require.NoError(t, err)
	got, err := patch.Apply(doc)
	require.NoError(t, err)

	want, err := json.Marshal(after)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))
}

func TestDiffIdenticalRecordsIsEmpty(t *testing.T) {
	before := record(t, `{"a": 1, "b": {"c": [1, 2]}}`)
	after := record(t, `{"a": 1, "b": {"c": [1, 2]}}`)

	assert.Empty(t, Diff(before, after))
}

func TestDiffTopLevelOperations(t *testing.T) {
	before := record(t, `{"keep": 1, "change": "old", "drop": true}`)
	after := record(t, `{"keep": 1, "change": "new", "added": null}`)

	ops := Diff(before, after)

	assert.Equal(t, []Operation{
		Replace("/change", "new"),
		Remove("/drop"),
		Add("/added", nil),
	}, ops)
	replay(t, before, after, ops)
}

// A value changing JSON type is a plain replace, never a recursion.
func TestDiffTypeChangeIsReplace(t *testing.T) {
	before := record(t, `{"f": {"a": 1}}`)
	after := record(t, `{"f": [1]}`)

	ops := Diff(before, after)
	require.Len(t, ops, 1)
	assert.Equal(t, OpReplace, ops[0].Op)
	assert.Equal(t, "/f", ops[0].Path)
	replay(t, before, after, ops)
}

func TestDiffNestedObjectRecursion(t *testing.T) {
	before := record(t, `{"meta": {"keep": 1, "change": "x", "drop": 2}}`)
	after := record(t, `{"meta": {"keep": 1, "change": "y", "add": 3}}`)

	ops := Diff(before, after)

	assert.Equal(t, []Operation{
		Replace("/meta/change", "y"),
		Remove("/meta/drop"),
		Add("/meta/add", json.Number("3")),
	}, ops)
	replay(t, before, after, ops)
}

func TestDiffGrowingArray(t *testing.T) {
	before := record(t, `{"list": [1, 2]}`)
	after := record(t, `{"list": [1, 9, 3]}`)

	ops := Diff(before, after)

	assert.Equal(t, []Operation{
		Replace("/list/1", json.Number("9")),
		Add("/list/2", json.Number("3")),
	}, ops)
	replay(t, before, after, ops)
}

// A shrinking array is replaced wholesale rather than diffed index-wise, so
// the operations stay order-independent under the reproducibility sort.
func TestDiffShrinkingArrayReplacedWholesale(t *testing.T) {
	before := record(t, `{"list": [1, 2, 3]}`)
	after := record(t, `{"list": [3]}`)

	ops := Diff(before, after)
	require.Len(t, ops, 1)
	assert.Equal(t, OpReplace, ops[0].Op)
	assert.Equal(t, "/list", ops[0].Path)
	replay(t, before, after, ops)
	replay(t, before, after, Sort(ops))
}

func TestDiffEscapesPointerTokens(t *testing.T) {
	before := record(t, `{"a/b": 1, "c~d": 2}`)
	after := record(t, `{"a/b": 9, "c~d": 2}`)

	ops := Diff(before, after)
	require.Len(t, ops, 1)
	assert.Equal(t, "/a~1b", ops[0].Path)
	replay(t, before, after, ops)
}

func TestDiffNumberLiteralSensitivity(t *testing.T) {
	ops := Diff(record(t, `{"a": 1}`), record(t, `{"a": 1.0}`))
	require.Len(t, ops, 1)
	assert.Equal(t, OpReplace, ops[0].Op)

	assert.Empty(t, Diff(record(t, `{"a": 1.50}`), record(t, `{"a": 1.50}`)))
}

func TestDiffNullToValueIsReplace(t *testing.T) {
	before := record(t, `{"f": null}`)
	after := record(t, `{"f": "set"}`)

	ops := Diff(before, after)
	assert.Equal(t, []Operation{Replace("/f", "set")}, ops)
	replay(t, before, after, ops)
}

// Sorted concatenated phase diffs must still replay when ops touch distinct
// top-level paths, the shape the pipeline produces.
func TestSortedPipelineDiffReplays(t *testing.T) {
	original := record(t, `{"assay_type": "AF", "op": "jd", "legacy_id": 7}`)
	renamed := record(t, `{"assay_type": "AF", "operator": "jd", "legacy_id": 7}`)
	final := record(t, `{"assay_type": "Auto-fluorescence", "operator": "jd"}`)

	var ops []Operation
	ops = append(ops, Diff(original, renamed)...)
	ops = append(ops, Diff(renamed, final)...)

	replay(t, original, final, Sort(ops))
}

// A field renamed away in one phase and re-added with a default in a later
// one leaves a remove and an add at the same path; sorted as-is the add
// lands first and the remove then deletes the re-added value. Coalescing to
// a replace keeps the sorted patch replayable.
func TestCoalesceRemoveThenAddIsReplace(t *testing.T) {
	ops := []Operation{
		Remove("/old"),
		Add("/new", "v"),
		Add("/old", "d"),
	}

	got := Coalesce(ops)

	assert.Equal(t, []Operation{
		Replace("/old", "d"),
		Add("/new", "v"),
	}, got)

	before := record(t, `{"old": "v"}`)
	after := record(t, `{"old": "d", "new": "v"}`)
	replay(t, before, after, Sort(got))
}

func TestCoalesceReplaceThenRemoveIsRemove(t *testing.T) {
	ops := []Operation{
		Replace("/gone", "rewritten"),
		Remove("/gone"),
	}

	got := Coalesce(ops)

	assert.Equal(t, []Operation{Remove("/gone")}, got)
	replay(t, record(t, `{"gone": "x", "kept": 1}`), record(t, `{"kept": 1}`), Sort(got))
}

func TestCoalesceAddThenRemoveCancels(t *testing.T) {
	ops := []Operation{
		Add("/transient", "x"),
		Replace("/kept", 2),
		Remove("/transient"),
	}

	got := Coalesce(ops)

	assert.Equal(t, []Operation{Replace("/kept", 2)}, got)
}

func TestCoalesceRepeatedWritesKeepLast(t *testing.T) {
	assert.Equal(t,
		[]Operation{Replace("/f", "third")},
		Coalesce([]Operation{
			Replace("/f", "first"),
			Replace("/f", "second"),
			Replace("/f", "third"),
		}))

	assert.Equal(t,
		[]Operation{Add("/f", "final")},
		Coalesce([]Operation{
			Add("/f", "initial"),
			Replace("/f", "final"),
		}))
}

func TestCoalesceDistinctPathsUntouched(t *testing.T) {
	ops := []Operation{
		Remove("/a"),
		Add("/b", 1),
		Replace("/c", 2),
	}
	assert.Equal(t, ops, Coalesce(ops))
}

// Cancelling a pair must not corrupt the bookkeeping for later ops on other
// paths, or for a fresh op at the cancelled path.
func TestCoalesceCancelThenReaddSamePath(t *testing.T) {
	ops := []Operation{
		Add("/a", 1),
		Add("/b", 2),
		Remove("/a"),
		Replace("/b", 3),
		Add("/a", 4),
	}

	got := Coalesce(ops)

	assert.Equal(t, []Operation{
		Add("/b", 3),
		Add("/a", 4),
	}, got)
}

func TestSortOrdersByOpThenPath(t *testing.T) {
	ops := []Operation{
		Replace("/b", 1),
		Remove("/a"),
		Add("/c", 2),
		Add("/a", 3),
	}

	sorted := Sort(ops)

	assert.Equal(t, []Operation{
		Add("/a", 3),
		Add("/c", 2),
		Remove("/a"),
		Replace("/b", 1),
	}, sorted)
	// The input slice is left alone.
	assert.Equal(t, OpReplace, ops[0].Op)
}

func TestSortIsDeterministicAcrossPermutations(t *testing.T) {
	a := []Operation{Add("/x", 1), Add("/x", 0), Remove("/y")}
	b := []Operation{Remove("/y"), Add("/x", 0), Add("/x", 1)}

	assert.Equal(t, Sort(a), Sort(b))
}

func TestOperationMarshalShape(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
		want string
	}{
		{"add", Add("/f", "v"), `{"op":"add","path":"/f","value":"v"}`},
		{"add null", Add("/f", nil), `{"op":"add","path":"/f","value":null}`},
		{"remove", Remove("/f"), `{"op":"remove","path":"/f"}`},
		{"replace", Replace("/f", json.Number("1.50")), `{"op":"replace","path":"/f","value":1.50}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.op)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestEscapeToken(t *testing.T) {
	assert.Equal(t, "a~1b", EscapeToken("a/b"))
	assert.Equal(t, "a~0b", EscapeToken("a~b"))
	assert.Equal(t, "a~01b", EscapeToken("a~1b"))
	assert.Equal(t, "plain", EscapeToken("plain"))
}
