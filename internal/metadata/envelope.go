package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Envelope is an input file's top-level JSON object. Keys other than
// "metadata" are opaque: they are carried through to the output byte-exact
// and in their original order, with the transformation results appended.
type Envelope struct {
	keys []string
	raw  map[string]json.RawMessage
}

// DecodeEnvelope parses data as a single JSON object. Arrays and other
// top-level shapes are rejected.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("input must contain a JSON object, got %v", tok)
	}

	env := &Envelope{raw: make(map[string]json.RawMessage)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", keyTok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		env.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON object")
	}
	return env, nil
}

// Keys returns the envelope's keys in order.
func (e *Envelope) Keys() []string {
	out := make([]string, len(e.keys))
	copy(out, e.keys)
	return out
}

// Get returns the raw JSON stored under key.
func (e *Envelope) Get(key string) (json.RawMessage, bool) {
	v, ok := e.raw[key]
	return v, ok
}

// Set stores raw JSON under key, appending new keys at the end.
func (e *Envelope) Set(key string, value json.RawMessage) {
	if e.raw == nil {
		e.raw = make(map[string]json.RawMessage)
	}
	if _, ok := e.raw[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.raw[key] = value
}

// SetValue marshals value and stores it under key.
func (e *Envelope) SetValue(key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("key %q: %w", key, err)
	}
	e.Set(key, b)
	return nil
}

// Clone returns a copy sharing no key bookkeeping with the receiver.
func (e *Envelope) Clone() *Envelope {
	out := &Envelope{
		keys: make([]string, len(e.keys)),
		raw:  make(map[string]json.RawMessage, len(e.raw)),
	}
	copy(out.keys, e.keys)
	for k, v := range e.raw {
		out.raw[k] = v
	}
	return out
}

// Metadata decodes the envelope's "metadata" object. A missing key yields an
// empty record; a non-object value is an error.
func (e *Envelope) Metadata() (*Record, error) {
	raw, ok := e.Get("metadata")
	if !ok {
		return NewRecord(), nil
	}
	rec, err := DecodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("'metadata' must be a JSON object: %w", err)
	}
	return rec, nil
}

// MarshalJSON encodes the envelope compactly in key order.
func (e *Envelope) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range e.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(e.raw[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
