// Package tree holds an order-preserving representation of untyped JSON
// documents such as a page's embedded client state.
package tree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/titanous/json5"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind tags the variant held by a Node.
type Kind int

const (
	Null Kind = iota
	String
	Number
	Bool
	Mapping
	Sequence
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case Mapping:
		return "mapping"
	case Sequence:
		return "sequence"
	default:
		return "null"
	}
}

// Node is one value in a JSON tree.
//
// Scalars keep their literal text in Value (numbers are not re-formatted).
// Mappings keep keys in document order.
type Node struct {
	Kind   Kind
	Value  string
	Fields *orderedmap.OrderedMap[string, *Node]
	Items  []*Node
}

// Field is one flattened key/value pair.
type Field struct {
	Key   string
	Value string
}

// IsScalar reports whether n is a string, number or bool.
func (n *Node) IsScalar() bool {
	return n != nil && (n.Kind == String || n.Kind == Number || n.Kind == Bool)
}

// Get returns the child stored under key when n is a mapping.
func (n *Node) Get(key string) (*Node, bool) {
	if n == nil || n.Kind != Mapping {
		return nil, false
	}
	return n.Fields.Get(key)
}

// Int returns the numeric value of a number node, truncated.
func (n *Node) Int() (int64, bool) {
	if n == nil || n.Kind != Number {
		return 0, false
	}
	if i, err := strconv.ParseInt(n.Value, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(n.Value, 64)
	if err != nil {
		return 0, false
	}
	return int64(f), true
}

// String renders n as record text: scalars verbatim, null as "",
// sequences joined with ", " and mappings as compact JSON.
func (n *Node) String() string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case String, Number, Bool:
		return n.Value
	case Sequence:
		return n.Join(", ")
	case Mapping:
		b, err := n.MarshalJSON()
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return ""
	}
}

// Join concatenates the items of a sequence with sep. Null items are
// skipped; nested mappings and sequences are rendered as compact JSON.
func (n *Node) Join(sep string) string {
	if n == nil || n.Kind != Sequence {
		return n.String()
	}
	parts := make([]string, 0, len(n.Items))
	for _, item := range n.Items {
		switch {
		case item == nil || item.Kind == Null:
			continue
		case item.IsScalar():
			parts = append(parts, item.Value)
		default:
			b, err := item.MarshalJSON()
			if err != nil {
				continue
			}
			parts = append(parts, string(b))
		}
	}
	return strings.Join(parts, sep)
}

// Walk calls fn for every mapping entry at any depth, in document order.
// Recursion continues into every value whether or not fn cared about it.
func (n *Node) Walk(fn func(key string, value *Node)) {
	if n == nil {
		return
	}
	switch n.Kind {
	case Mapping:
		for pair := n.Fields.Oldest(); pair != nil; pair = pair.Next() {
			fn(pair.Key, pair.Value)
			pair.Value.Walk(fn)
		}
	case Sequence:
		for _, item := range n.Items {
			item.Walk(fn)
		}
	}
}

// IDs collects every scalar found under an "id" key at any depth.
func (n *Node) IDs() []string {
	var ids []string
	n.Walk(func(key string, value *Node) {
		if key != "id" || value == nil {
			return
		}
		if value.Kind == String || value.Kind == Number {
			ids = append(ids, value.Value)
		}
	})
	return ids
}

// Flatten turns a mapping into key paths joined with sep. Nested mappings
// recurse; sequences become one value joined with ", ".
func (n *Node) Flatten(sep string) []Field {
	if n == nil || n.Kind != Mapping {
		return nil
	}
	var out []Field
	n.flatten("", sep, &out)
	return out
}

func (n *Node) flatten(prefix, sep string, out *[]Field) {
	for pair := n.Fields.Oldest(); pair != nil; pair = pair.Next() {
		key := pair.Key
		if prefix != "" {
			key = prefix + sep + pair.Key
		}
		v := pair.Value
		if v != nil && v.Kind == Mapping {
			v.flatten(key, sep, out)
			continue
		}
		*out = append(*out, Field{Key: key, Value: v.String()})
	}
}

// MarshalJSON renders n as compact JSON, preserving key order.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Node) encode(buf *bytes.Buffer) error {
	if n == nil {
		buf.WriteString("null")
		return nil
	}
	switch n.Kind {
	case String:
		b, err := json.Marshal(n.Value)
		if err != nil {
			return err
		}
		buf.Write(b)
	case Number, Bool:
		buf.WriteString(n.Value)
	case Mapping:
		buf.WriteByte('{')
		first := true
		for pair := n.Fields.Oldest(); pair != nil; pair = pair.Next() {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			k, err := json.Marshal(pair.Key)
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			if err := pair.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case Sequence:
		buf.WriteByte('[')
		for i, item := range n.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		buf.WriteString("null")
	}
	return nil
}

// Parse decodes strict JSON into a tree, keeping key order and the literal
// text of numbers.
func Parse(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	n, err := decode(dec)
	if err != nil {
		return nil, fmt.Errorf("tree: parse: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("tree: parse: trailing data after top-level value")
	}
	return n, nil
}

// ParseLenient tries strict JSON first and falls back to JSON5, which
// accepts the unquoted keys, single quotes and trailing commas common in
// inline script literals. Key order is only preserved on the strict path.
// Numbers keep their literal text on both paths.
func ParseLenient(data []byte) (*Node, error) {
	if n, err := Parse(data); err == nil {
		return n, nil
	}
	dec := json5.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("tree: lenient parse: %w", err)
	}
	return FromValue(v), nil
}

func decode(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			n := &Node{Kind: Mapping, Fields: orderedmap.New[string, *Node]()}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T, not string", kt)
				}
				child, err := decode(dec)
				if err != nil {
					return nil, err
				}
				n.Fields.Set(key, child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		case '[':
			n := &Node{Kind: Sequence, Items: []*Node{}}
			for dec.More() {
				child, err := decode(dec)
				if err != nil {
					return nil, err
				}
				n.Items = append(n.Items, child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	case string:
		return &Node{Kind: String, Value: t}, nil
	case json.Number:
		return &Node{Kind: Number, Value: t.String()}, nil
	case bool:
		return &Node{Kind: Bool, Value: strconv.FormatBool(t)}, nil
	case nil:
		return &Node{Kind: Null}, nil
	}
	return nil, fmt.Errorf("unexpected token %T", tok)
}

// json5Number renders a JSON5 number literal in decimal. Hex literals are
// converted; everything else is kept verbatim.
func json5Number(n json5.Number) string {
	lit := strings.TrimPrefix(n.String(), "+")
	digits := strings.TrimPrefix(lit, "-")
	if len(digits) > 2 && (digits[:2] == "0x" || digits[:2] == "0X") {
		if i, err := strconv.ParseInt(lit, 0, 64); err == nil {
			return strconv.FormatInt(i, 10)
		}
	}
	return lit
}

// FromValue builds a tree from a value produced by a generic JSON decoder.
// Map keys are sorted so the result is deterministic.
func FromValue(v any) *Node {
	switch t := v.(type) {
	case nil:
		return &Node{Kind: Null}
	case *Node:
		return t
	case string:
		return &Node{Kind: String, Value: t}
	case bool:
		return &Node{Kind: Bool, Value: strconv.FormatBool(t)}
	case json.Number:
		return &Node{Kind: Number, Value: t.String()}
	case json5.Number:
		return &Node{Kind: Number, Value: json5Number(t)}
	case float64:
		return &Node{Kind: Number, Value: strconv.FormatFloat(t, 'f', -1, 64)}
	case float32:
		return &Node{Kind: Number, Value: strconv.FormatFloat(float64(t), 'f', -1, 32)}
	case int:
		return &Node{Kind: Number, Value: strconv.Itoa(t)}
	case int64:
		return &Node{Kind: Number, Value: strconv.FormatInt(t, 10)}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		n := &Node{Kind: Mapping, Fields: orderedmap.New[string, *Node]()}
		for _, k := range keys {
			n.Fields.Set(k, FromValue(t[k]))
		}
		return n
	case []any:
		n := &Node{Kind: Sequence, Items: make([]*Node, 0, len(t))}
		for _, item := range t {
			n.Items = append(n.Items, FromValue(item))
		}
		return n
	case []string:
		n := &Node{Kind: Sequence, Items: make([]*Node, 0, len(t))}
		for _, item := range t {
			n.Items = append(n.Items, &Node{Kind: String, Value: item})
		}
		return n
	default:
		return &Node{Kind: String, Value: fmt.Sprint(t)}
	}
}
