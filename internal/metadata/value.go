package metadata

import (
	"encoding/json"
	"reflect"
	"strconv"
)

// Stringify produces the canonical lookup string for a legacy value. Value
// mapping tables are keyed by this form, and the processing log records
// legacy values under it. Strings map to themselves, numbers to their literal
// spelling from the source file, booleans to "true"/"false". Composite values
// fall back to their compact JSON encoding; they occur in practice only as
// pass-through data that no table keys on.
func Stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return "null"
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Equal is the type-sensitive equality used by the condition evaluator. Both
// sides come from UseNumber decoding, so the number 1 never equals the string
// "1", and 1 equals 1 only when the literals match.
func Equal(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
