package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindList
)

// Value is a metadata value: a string, an integer, or an ordered list of
// strings.
type Value struct {
	kind ValueKind
	str  string
	num  int
	list []string
}

// StringValue returns a string value.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// NumberValue returns an integer value.
func NumberValue(n int) Value { return Value{kind: KindNumber, num: n} }

// ListValue returns a list value. A nil slice is stored as an empty list.
func ListValue(items []string) Value {
	if items == nil {
		items = []string{}
	}
	return Value{kind: KindList, list: items}
}

// Kind reports which variant v holds.
func (v Value) Kind() ValueKind { return v.kind }

// Number returns the integer held by v, or 0.
func (v Value) Number() int { return v.num }

// List returns the strings held by v, or nil for scalar values.
func (v Value) List() []string { return v.list }

// IsEmpty reports whether v is an empty string, a zero number or an empty
// list.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindNumber:
		return v.num == 0
	case KindList:
		return len(v.list) == 0
	default:
		return v.str == ""
	}
}

// String renders scalars in their default form and lists comma-joined.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.Itoa(v.num)
	case KindList:
		return strings.Join(v.list, ", ")
	default:
		return v.str
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return []byte(strconv.Itoa(v.num)), nil
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return marshalRaw(v.list)
	default:
		return marshalRaw(v.str)
	}
}

// marshalRaw encodes v without HTML escaping. encoding/json re-escapes
// the result unless the outer encoder also has SetEscapeHTML(false), so
// "&" survives verbatim only through such an encoder (format.Tasks does
// this; json.Marshal does not).
func marshalRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty metadata value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("metadata list: %w", err)
		}
		*v = ListValue(items)
	case 'n':
		*v = StringValue("")
	default:
		n, err := strconv.Atoi(string(data))
		if err != nil {
			return fmt.Errorf("metadata value %s: %w", data, err)
		}
		*v = NumberValue(n)
	}
	return nil
}

// Field is a single metadata entry.
type Field struct {
	Key   string
	Value Value
}

// Metadata is an insertion-ordered key/value bag. It serializes as a JSON
// object whose keys appear in insertion order.
type Metadata []Field

// Get returns the value stored under key.
func (m Metadata) Get(key string) (Value, bool) {
	for _, f := range m {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Keys returns the metadata keys in insertion order.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for _, f := range m {
		keys = append(keys, f.Key)
	}
	return keys
}

// MarshalJSON implements json.Marshaler.
func (m Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalRaw(f.Key)
		if err != nil {
			return nil, err
		}
		val, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("marshaling metadata %q: %w", f.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, keeping the key order found
// in data.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*m = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("metadata: expected object, got %v", tok)
	}

	var fields Metadata
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("metadata: expected key, got %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("metadata %q: %w", key, err)
		}
		var v Value
		if err := v.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("metadata %q: %w", key, err)
		}
		fields = append(fields, Field{Key: key, Value: v})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*m = fields
	return nil
}
