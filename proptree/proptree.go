// Package proptree implements the vDC property tree: a recursive tagged
// value structure used both for request query payloads and response result
// payloads (spec §4.2), plus conversions to/from ordered field lists.
package proptree

import (
	"errors"
	"fmt"
)

// ErrUnsupportedValue is returned by Build when a leaf's runtime type has no
// corresponding Kind.
var ErrUnsupportedValue = errors.New("proptree: unsupported leaf value type")

// Kind discriminates the single inhabited variant of a Value. KindAbsent
// marks a node that carries no value at all, distinguishable from every
// inhabited variant.
type Kind uint8

const (
	KindAbsent Kind = iota
	KindBool
	KindUint64
	KindInt64
	KindDouble
	KindString
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindBool:
		return "bool"
	case KindUint64:
		return "uint64"
	case KindInt64:
		return "int64"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is a tagged sum with exactly one inhabited variant. The zero Value
// is KindAbsent.
type Value struct {
	kind    Kind
	boolean bool
	u64     uint64
	i64     int64
	f64     float64
	str     string
	bytes   []byte
}

// Bool returns an inhabited boolean Value.
func Bool(v bool) Value { return Value{kind: KindBool, boolean: v} }

// Uint64 returns an inhabited unsigned-integer Value.
func Uint64(v uint64) Value { return Value{kind: KindUint64, u64: v} }

// Int64 returns an inhabited signed-integer Value.
func Int64(v int64) Value { return Value{kind: KindInt64, i64: v} }

// Double returns an inhabited floating-point Value.
func Double(v float64) Value { return Value{kind: KindDouble, f64: v} }

// String returns an inhabited UTF-8 string Value.
func String(v string) Value { return Value{kind: KindString, str: v} }

// Bytes returns an inhabited opaque byte-sequence Value.
func Bytes(v []byte) Value { return Value{kind: KindBytes, bytes: v} }

// Kind reports which variant, if any, is inhabited.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether v carries no value.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// Any unwraps v to its native Go representation, or nil if absent.
func (v Value) Any() interface{} {
	switch v.kind {
	case KindBool:
		return v.boolean
	case KindUint64:
		return v.u64
	case KindInt64:
		return v.i64
	case KindDouble:
		return v.f64
	case KindString:
		return v.str
	case KindBytes:
		return v.bytes
	default:
		return nil
	}
}

// fromNative selects the variant by the runtime kind of value, following
// §4.2: bool -> boolean; non-negative integer -> uint64; negative integer ->
// int64; floating -> double; text -> string; bytes -> bytes.
func fromNative(value interface{}) (Value, error) {
	switch t := value.(type) {
	case bool:
		return Bool(t), nil
	case uint64:
		return Uint64(t), nil
	case uint:
		return Uint64(uint64(t)), nil
	case uint32:
		return Uint64(uint64(t)), nil
	case int:
		if t < 0 {
			return Int64(int64(t)), nil
		}
		return Uint64(uint64(t)), nil
	case int64:
		if t < 0 {
			return Int64(t), nil
		}
		return Uint64(uint64(t)), nil
	case int32:
		if t < 0 {
			return Int64(int64(t)), nil
		}
		return Uint64(uint64(t)), nil
	case float64:
		return Double(t), nil
	case float32:
		return Double(float64(t)), nil
	case string:
		return String(t), nil
	case []byte:
		return Bytes(t), nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedValue, value)
	}
}

// Field is one entry of an ordered mapping: the input to Build and the
// output of Lower. Value holds either a scalar (bool, integer, float64,
// string, []byte) or a nested []Field for a child subtree; holding both is
// the caller's error to avoid (see the round-trip law preconditions in
// spec §4.2).
type Field struct {
	Name  string
	Value interface{}
}

// Element is a node of the wire property tree: a name, an optional value,
// and an ordered sequence of children. A node may carry a value, children,
// both, or neither.
type Element struct {
	Name     string
	Value    Value
	HasValue bool
	Children []*Element
}

// Build maps an ordered field list to a sequence of Elements. A Field whose
// Value is a []Field recurses into Children; a Field whose Value is nil
// becomes an element with no value (the "absent value" case Lower produces);
// any other Field becomes a leaf populating Value by runtime kind.
func Build(fields []Field) ([]*Element, error) {
	elements := make([]*Element, 0, len(fields))
	for _, f := range fields {
		if f.Value == nil {
			elements = append(elements, &Element{Name: f.Name})
			continue
		}
		if children, ok := f.Value.([]Field); ok {
			childElements, err := Build(children)
			if err != nil {
				return nil, err
			}
			elements = append(elements, &Element{Name: f.Name, Children: childElements})
			continue
		}
		v, err := fromNative(f.Value)
		if err != nil {
			return nil, err
		}
		elements = append(elements, &Element{Name: f.Name, Value: v, HasValue: true})
	}
	return elements, nil
}

// Lower produces an ordered field list from a sequence of Elements,
// preserving sibling order. An element with children lowers to a nested
// []Field; else with a value it unwraps the inhabited variant; else its
// Value is nil (the "absent value" case).
func Lower(elements []*Element) []Field {
	fields := make([]Field, 0, len(elements))
	for _, e := range elements {
		switch {
		case len(e.Children) > 0:
			fields = append(fields, Field{Name: e.Name, Value: Lower(e.Children)})
		case e.HasValue:
			fields = append(fields, Field{Name: e.Name, Value: e.Value.Any()})
		default:
			fields = append(fields, Field{Name: e.Name, Value: nil})
		}
	}
	return fields
}
