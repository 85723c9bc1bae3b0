// Package langfile implements reading and writing of flat JSON language
// files as shipped inside mod archives:
//
//	{
//	    "item.examplemod.sword": "Sword",
//	    "a.lang.code": "en_us"
//	}
//
// Every value is a string. Key order is preserved on a round trip so a
// generated locale file diffs cleanly against its base file.
package langfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// MalformedError reports a document that is not a flat JSON object of
// string values.
type MalformedError struct {
	Key string // offending key, empty when the structure itself is wrong
	Err error
}

func (e *MalformedError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("malformed language file at key %q: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("malformed language file: %v", e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// File is an ordered key/value text map.
type File struct {
	keys   []string
	values map[string]string
}

// New returns an empty file.
func New() *File {
	return &File{values: make(map[string]string)}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse parses a language file, preserving key order. A duplicated key keeps
// its first position and takes the last value, like a plain JSON decode.
func Parse(data []byte) (*File, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	dec := json.NewDecoder(bytes.NewReader(data))

	t, err := dec.Token()
	if err != nil {
		return nil, &MalformedError{Err: err}
	}
	if delim, ok := t.(json.Delim); !ok || delim != '{' {
		return nil, &MalformedError{Err: fmt.Errorf("expected {, got %v", t)}
	}

	f := New()
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, &MalformedError{Err: err}
		}
		key, ok := kt.(string)
		if !ok {
			return nil, &MalformedError{Err: fmt.Errorf("expected string key, got %T", kt)}
		}

		vt, err := dec.Token()
		if err != nil {
			return nil, &MalformedError{Key: key, Err: err}
		}
		value, ok := vt.(string)
		if !ok {
			return nil, &MalformedError{Key: key, Err: fmt.Errorf("expected string value, got %s", tokenKind(vt))}
		}
		f.Set(key, value)
	}

	// Closing brace, then nothing but whitespace.
	if _, err := dec.Token(); err != nil {
		return nil, &MalformedError{Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &MalformedError{Err: errors.New("trailing data after object")}
	}

	return f, nil
}

func tokenKind(t json.Token) string {
	switch v := t.(type) {
	case json.Delim:
		if v == '{' {
			return "object"
		}
		return "array"
	case nil:
		return "null"
	case bool:
		return "bool"
	case json.Number, float64:
		return "number"
	}
	return fmt.Sprintf("%T", t)
}

// Keys returns the keys in their original order.
func (f *File) Keys() []string {
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// Len returns the number of keys.
func (f *File) Len() int { return len(f.keys) }

// Get returns the value for key.
func (f *File) Get(key string) (string, bool) {
	v, ok := f.values[key]
	return v, ok
}

// Set sets a value, appending the key if it is new.
func (f *File) Set(key, value string) {
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Clone returns a deep copy.
func (f *File) Clone() *File {
	c := &File{
		keys:   f.Keys(),
		values: make(map[string]string, len(f.values)),
	}
	for k, v := range f.values {
		c.values[k] = v
	}
	return c
}

// Marshal produces the JSON document with 4-space indentation. Non-ASCII
// text is written as-is rather than \u-escaped.
func (f *File) Marshal() ([]byte, error) {
	var b bytes.Buffer
	if len(f.keys) == 0 {
		b.WriteString("{}\n")
		return b.Bytes(), nil
	}

	b.WriteString("{\n")
	for i, k := range f.keys {
		b.WriteString("    ")
		b.WriteString(jsonString(k))
		b.WriteString(": ")
		b.WriteString(jsonString(f.values[k]))
		if i < len(f.keys)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("}\n")
	return b.Bytes(), nil
}

// jsonString returns s as a JSON string literal without HTML escaping.
func jsonString(s string) string {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(b.String(), "\n")
}
