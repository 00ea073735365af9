package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
)

// PropertyMap is an ordered mapping from property name to a scalar value
// (string, float64, bool or nil). Insertion order is preserved for display
// and serialization; equality is computed over a canonical sorted-key form
// so two maps with the same entries compare equal regardless of the order
// columns appeared in the source file.
type PropertyMap struct {
	keys []string
	vals map[string]interface{}
}

// NewPropertyMap returns an empty property map ready for Set calls.
func NewPropertyMap() *PropertyMap {
	return &PropertyMap{vals: make(map[string]interface{})}
}

// Set adds or replaces a property. Numeric values are normalized to float64
// so a map survives a JSON round trip unchanged; unsupported types are
// stored as their string form.
func (m *PropertyMap) Set(name string, value interface{}) {
	if m.vals == nil {
		m.vals = make(map[string]interface{})
	}
	if _, exists := m.vals[name]; !exists {
		m.keys = append(m.keys, name)
	}
	switch v := value.(type) {
	case nil, string, bool, float64:
		m.vals[name] = v
	case int:
		m.vals[name] = float64(v)
	case int32:
		m.vals[name] = float64(v)
	case int64:
		m.vals[name] = float64(v)
	case float32:
		m.vals[name] = float64(v)
	default:
		m.vals[name] = fmt.Sprint(v)
	}
}

// Get returns the value for a property name.
func (m *PropertyMap) Get(name string) (interface{}, bool) {
	if m.vals == nil {
		return nil, false
	}
	v, ok := m.vals[name]
	return v, ok
}

// GetString returns the property value rendered as a string, or "" when absent.
func (m *PropertyMap) GetString(name string) string {
	v, ok := m.Get(name)
	if !ok || v == nil {
		return ""
	}
	if s, isStr := v.(string); isStr {
		return s
	}
	return fmt.Sprint(v)
}

// Keys returns the property names in insertion order.
func (m *PropertyMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of properties.
func (m *PropertyMap) Len() int {
	return len(m.keys)
}

// Clone returns an independent copy.
func (m *PropertyMap) Clone() PropertyMap {
	out := PropertyMap{}
	for _, k := range m.keys {
		out.Set(k, m.vals[k])
	}
	return out
}

// MarshalJSON serializes the map as a JSON object in insertion order.
func (m PropertyMap) MarshalJSON() ([]byte, error) {
	return m.marshalOrdered(m.keys)
}

// Canonical returns the sorted-key JSON form used for equality and storage.
func (m PropertyMap) Canonical() ([]byte, error) {
	sorted := make([]string, len(m.keys))
	copy(sorted, m.keys)
	sort.Strings(sorted)
	return m.marshalOrdered(sorted)
}

func (m PropertyMap) marshalOrdered(keys []string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(m.vals[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object preserving document order. Only scalar
// values are accepted; nested objects or arrays are rejected.
func (m *PropertyMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*m = PropertyMap{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("property map: expected JSON object, got %v", tok)
	}
	out := PropertyMap{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("property map: non-string key %v", keyTok)
		}
		var raw interface{}
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		switch raw.(type) {
		case nil, string, bool, float64:
			out.Set(key, raw)
		default:
			return fmt.Errorf("property map: property %q has non-scalar value", key)
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

// Equal reports whether two maps hold the same entries, ignoring key order.
func (m PropertyMap) Equal(other PropertyMap) bool {
	a, err := m.Canonical()
	if err != nil {
		return false
	}
	b, err := other.Canonical()
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// Value implements driver.Valuer; the canonical form is stored so database
// contents are comparable byte-for-byte across runs.
func (m PropertyMap) Value() (driver.Value, error) {
	b, err := m.Canonical()
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Scan implements sql.Scanner.
func (m *PropertyMap) Scan(value interface{}) error {
	if value == nil {
		*m = PropertyMap{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return m.UnmarshalJSON(v)
	case string:
		return m.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("property map: cannot scan %T", value)
	}
}
