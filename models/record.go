package models

import (
	"bytes"
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Well-known record keys.
const (
	FieldURL       = "url"
	FieldProfileID = "profile_id"
	FieldFullText  = "full_text"
)

// Record is one extracted profile: an insertion-ordered mapping from field
// name to string value. The key set is open-ended.
//
// Records are filled by a fixed sequence of extraction stages. SetIfUnset
// implements the merge policy between them: the first stage to populate a
// field owns it.
type Record struct {
	fields *orderedmap.OrderedMap[string, string]
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{fields: orderedmap.New[string, string]()}
}

func (r *Record) m() *orderedmap.OrderedMap[string, string] {
	if r.fields == nil {
		r.fields = orderedmap.New[string, string]()
	}
	return r.fields
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (string, bool) {
	return r.m().Get(key)
}

// Value returns the value stored under key, or "" when absent.
func (r *Record) Value(key string) string {
	v, _ := r.m().Get(key)
	return v
}

// Set stores value under key unconditionally.
func (r *Record) Set(key, value string) {
	r.m().Set(key, value)
}

// SetIfUnset stores value under key only when the key is absent or empty.
// Empty values never populate a field. It reports whether value was stored.
func (r *Record) SetIfUnset(key, value string) bool {
	if value == "" {
		return false
	}
	if cur, ok := r.m().Get(key); ok && cur != "" {
		return false
	}
	r.m().Set(key, value)
	return true
}

// Has reports whether key holds a non-empty value.
func (r *Record) Has(key string) bool {
	v, ok := r.m().Get(key)
	return ok && v != ""
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return r.m().Len()
}

// Keys returns field names in insertion order.
func (r *Record) Keys() []string {
	keys := make([]string, 0, r.m().Len())
	for pair := r.m().Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// MarshalJSON encodes the record as a JSON object in insertion order.
// HTML characters are left unescaped so descriptions stay readable.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	first := true
	for pair := r.m().Oldest(); pair != nil; pair = pair.Next() {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		if err := enc.Encode(pair.Key); err != nil {
			return nil, err
		}
		trimTrailingNewline(&buf)
		buf.WriteByte(':')
		if err := enc.Encode(pair.Value); err != nil {
			return nil, err
		}
		trimTrailingNewline(&buf)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a flat JSON object of strings, keeping key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	fields := orderedmap.New[string, string]()
	if err := fields.UnmarshalJSON(data); err != nil {
		return err
	}
	r.fields = fields
	return nil
}

func trimTrailingNewline(buf *bytes.Buffer) {
	if n := buf.Len(); n > 0 && buf.Bytes()[n-1] == '\n' {
		buf.Truncate(n - 1)
	}
}
