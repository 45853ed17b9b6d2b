package plugin

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
)

// Result is the outcome of one plugin: a value on success, Err on failure.
type Result struct {
	Key   string
	Value any
	Err   error
}

// Failed reports whether the result is a failure marker.
func (r Result) Failed() bool { return r.Err != nil }

// Results is an ordered set of plugin results keyed by plugin key. Keys
// keep the position of their first insertion; setting an existing key
// replaces its result in place.
type Results struct {
	keys  []string
	byKey map[string]Result
}

// NewResults returns an empty result set.
func NewResults() *Results {
	return &Results{byKey: map[string]Result{}}
}

// Set records res under res.Key.
func (r *Results) Set(res Result) {
	if r.byKey == nil {
		r.byKey = map[string]Result{}
	}
	if _, exists := r.byKey[res.Key]; !exists {
		r.keys = append(r.keys, res.Key)
	}
	r.byKey[res.Key] = res
}

// Get returns the result recorded for key.
func (r *Results) Get(key string) (Result, bool) {
	if r == nil {
		return Result{}, false
	}
	res, ok := r.byKey[key]
	return res, ok
}

// Value returns the success value recorded for key, or nil.
func (r *Results) Value(key string) any {
	res, ok := r.Get(key)
	if !ok || res.Failed() {
		return nil
	}
	return res.Value
}

// Keys returns keys in insertion order.
func (r *Results) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of keys.
func (r *Results) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// All iterates results in insertion order.
func (r *Results) All() iter.Seq2[string, Result] {
	return func(yield func(string, Result) bool) {
		if r == nil {
			return
		}
		for _, k := range r.keys {
			if !yield(k, r.byKey[k]) {
				return
			}
		}
	}
}

// Failures returns the keys whose result is a failure marker.
func (r *Results) Failures() []string {
	var out []string
	for k, res := range r.All() {
		if res.Failed() {
			out = append(out, k)
		}
	}
	return out
}

type failureJSON struct {
	Error string `json:"error"`
}

// MarshalJSON encodes the results as an object in insertion order. Values
// that cannot be encoded are written as their %v text; failure markers are
// written as {"error": "..."}.
func (r *Results) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		val, err := encodeResult(r.byKey[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeResult(res Result) ([]byte, error) {
	if res.Failed() {
		return json.Marshal(failureJSON{Error: res.Err.Error()})
	}
	if data, err := json.Marshal(res.Value); err == nil {
		return data, nil
	}
	return json.Marshal(fmt.Sprintf("%v", res.Value))
}

// UnmarshalJSON decodes an object produced by MarshalJSON, keeping key
// order. An object holding only an "error" string decodes as a failure.
func (r *Results) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*r = Results{byKey: map[string]Result{}}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("plugin results must be a JSON object")
	}

	out := NewResults()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decoding result %s: %w", key, err)
		}
		out.Set(decodeResult(key, raw))
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = *out
	return nil
}

func decodeResult(key string, raw json.RawMessage) Result {
	var marker map[string]json.RawMessage
	if json.Unmarshal(raw, &marker) == nil && len(marker) == 1 {
		var msg string
		if errRaw, ok := marker["error"]; ok && json.Unmarshal(errRaw, &msg) == nil {
			return Result{Key: key, Err: errors.New(msg)}
		}
	}
	var v any
	_ = json.Unmarshal(raw, &v)
	return Result{Key: key, Value: v}
}
