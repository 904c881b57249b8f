// Package formdata provides an insertion-ordered name=value set used for
// form submissions, query strings and crawl task identities.
//
// Order is kept for readability and for the content fingerprint; equality
// and identity keys ignore it.
package formdata

import (
	"bytes"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"gopkg.in/yaml.v3"
)

// Values is an ordered mapping of parameter names to values.
// The zero value is an empty set ready to use.
type Values struct {
	names  []string
	values map[string]string
}

// New returns an empty set with room for n names.
func New(n int) *Values {
	return &Values{
		names:  make([]string, 0, n),
		values: make(map[string]string, n),
	}
}

// FromMap builds a set from m with names in sorted order.
func FromMap(m map[string]string) *Values {
	v := New(len(m))
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		v.Set(k, m[k])
	}
	return v
}

// Set assigns value to name. A new name is appended to the order.
func (v *Values) Set(name, value string) {
	if v.values == nil {
		v.values = make(map[string]string)
	}
	if _, ok := v.values[name]; !ok {
		v.names = append(v.names, name)
	}
	v.values[name] = value
}

// SetDefault assigns value only if name is not present yet and reports
// whether it did. First occurrence wins.
func (v *Values) SetDefault(name, value string) bool {
	if v.Has(name) {
		return false
	}
	v.Set(name, value)
	return true
}

// Get returns the value for name.
func (v *Values) Get(name string) string {
	if v == nil {
		return ""
	}
	return v.values[name]
}

// Has reports whether name is present.
func (v *Values) Has(name string) bool {
	if v == nil {
		return false
	}
	_, ok := v.values[name]
	return ok
}

// Len returns the number of names.
func (v *Values) Len() int {
	if v == nil {
		return 0
	}
	return len(v.names)
}

// Names returns the names in insertion order.
func (v *Values) Names() []string {
	if v == nil {
		return nil
	}
	out := make([]string, len(v.names))
	copy(out, v.names)
	return out
}

// Clone returns an independent copy. Cloning nil yields nil.
func (v *Values) Clone() *Values {
	if v == nil {
		return nil
	}
	c := New(len(v.names))
	for _, n := range v.names {
		c.Set(n, v.values[n])
	}
	return c
}

// Equal reports whether both sets hold the same pairs, regardless of order.
// A nil set equals only another nil set.
func (v *Values) Equal(o *Values) bool {
	if v == nil || o == nil {
		return v == nil && o == nil
	}
	if len(v.names) != len(o.names) {
		return false
	}
	for _, n := range v.names {
		ov, ok := o.values[n]
		if !ok || ov != v.values[n] {
			return false
		}
	}
	return true
}

// Key returns an order-independent identity string.
func (v *Values) Key() string {
	if v == nil {
		return "\x00nil"
	}
	names := v.Names()
	sort.Strings(names)
	var b strings.Builder
	for _, n := range names {
		b.WriteString(url.QueryEscape(n))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v.values[n]))
		b.WriteByte('&')
	}
	return b.String()
}

// Encode returns the url-encoded form in insertion order.
func (v *Values) Encode() string {
	if v == nil {
		return ""
	}
	parts := make([]string, 0, len(v.names))
	for _, n := range v.names {
		parts = append(parts, url.QueryEscape(n)+"="+url.QueryEscape(v.values[n]))
	}
	return strings.Join(parts, "&")
}

// Pairs returns "name=value" strings in insertion order, unescaped.
func (v *Values) Pairs() []string {
	if v == nil {
		return nil
	}
	out := make([]string, 0, len(v.names))
	for _, n := range v.names {
		out = append(out, n+"="+v.values[n])
	}
	return out
}

// ParseQuery parses a raw query string keeping parameter order.
// Repeated names keep their first value. Pairs that fail to unescape
// are skipped.
func ParseQuery(raw string) *Values {
	v := New(4)
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		name, value, _ := strings.Cut(part, "=")
		n, err := url.QueryUnescape(name)
		if err != nil {
			continue
		}
		val, err := url.QueryUnescape(value)
		if err != nil {
			continue
		}
		v.SetDefault(n, val)
	}
	return v
}

// String implements fmt.Stringer.
func (v *Values) String() string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("{%s}", strings.Join(v.Pairs(), ", "))
}

// MarshalJSON encodes the set as a JSON object in insertion order.
func (v *Values) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	enc := jsontext.NewEncoder(&buf)
	if err := enc.WriteToken(jsontext.BeginObject); err != nil {
		return nil, err
	}
	for _, n := range v.names {
		if err := enc.WriteToken(jsontext.String(n)); err != nil {
			return nil, err
		}
		if err := enc.WriteToken(jsontext.String(v.values[n])); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteToken(jsontext.EndObject); err != nil {
		return nil, err
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}

// UnmarshalJSON decodes a JSON object keeping member order. Non-string
// members are stored in their JSON text form.
func (v *Values) UnmarshalJSON(data []byte) error {
	dec := jsontext.NewDecoder(bytes.NewReader(data))
	tok, err := dec.ReadToken()
	if err != nil {
		return err
	}
	if tok.Kind() != '{' {
		return fmt.Errorf("formdata: expected object, got %v", tok.Kind())
	}
	*v = Values{}
	for dec.PeekKind() != '}' {
		name, err := dec.ReadToken()
		if err != nil {
			return err
		}
		raw, err := dec.ReadValue()
		if err != nil {
			return err
		}
		var s string
		if raw.Kind() == '"' {
			if err := json.Unmarshal(raw, &s); err != nil {
				return err
			}
		} else {
			s = string(raw)
		}
		v.SetDefault(name.String(), s)
	}
	_, err = dec.ReadToken()
	return err
}

// UnmarshalYAML decodes a YAML mapping keeping key order. Scalar values are
// stored as written; nested values are rejected.
func (v *Values) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("formdata: expected mapping at line %d", node.Line)
	}
	*v = Values{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return fmt.Errorf("formdata: value of %q at line %d is not a scalar", key.Value, val.Line)
		}
		v.SetDefault(key.Value, val.Value)
	}
	return nil
}
