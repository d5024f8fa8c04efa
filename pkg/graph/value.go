package graph

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the scalar type carried by a Value.
type Kind int

const (
	// KindString is a UTF-8 string value.
	KindString Kind = iota
	// KindInt is a 64-bit signed integer value.
	KindInt
	// KindFloat is a 64-bit floating point value.
	KindFloat
	// KindBool is a boolean value.
	KindBool
)

// Value is a tagged scalar property value.
//
// Properties are dynamically typed at the API surface but closed over a fixed
// set of scalar kinds, so a value round-trips through the backing store
// without type inference. The zero Value is the empty string.
//
// Example:
//
//	v.SetProperty("name", graph.String("Bulbasaur"))
//	v.SetProperty("number", graph.Int(1))
//	v.SetProperty("height_m", graph.Float(0.7))
//	v.SetProperty("starter", graph.Bool(true))
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
}

// String constructs a string Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int constructs an integer Value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float constructs a floating point Value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool constructs a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind returns the scalar kind of the value.
func (v Value) Kind() Kind { return v.kind }

// AsString returns the string payload. It does not convert between kinds.
func (v Value) AsString() string { return v.s }

// AsInt returns the integer payload.
func (v Value) AsInt() int64 { return v.i }

// AsFloat returns the float payload. Integer values convert losslessly.
func (v Value) AsFloat() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// AsBool returns the boolean payload.
func (v Value) AsBool() bool { return v.b }

// Any returns the payload as its native Go type.
func (v Value) Any() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	default:
		return v.s
	}
}

// Format implements fmt display of the payload.
func (v Value) Format(f fmt.State, verb rune) {
	fmt.Fprintf(f, fmt.FormatString(f, verb), v.Any())
}

// Wire encoding: single-letter kind tag, colon, payload.
const (
	tagString = "s"
	tagInt    = "i"
	tagFloat  = "f"
	tagBool   = "b"
	tagSep    = ":"
)

// encode renders the value in its wire form, e.g. "i:42".
func (v Value) encode() string {
	switch v.kind {
	case KindInt:
		return tagInt + tagSep + strconv.FormatInt(v.i, 10)
	case KindFloat:
		return tagFloat + tagSep + strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return tagBool + tagSep + strconv.FormatBool(v.b)
	default:
		return tagString + tagSep + v.s
	}
}

// decodeValue parses the wire form produced by encode.
func decodeValue(raw string) (Value, error) {
	tag, payload, ok := strings.Cut(raw, tagSep)
	if !ok {
		return Value{}, fmt.Errorf("malformed property value %q", raw)
	}
	switch tag {
	case tagString:
		return String(payload), nil
	case tagInt:
		i, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("malformed integer property %q: %w", raw, err)
		}
		return Int(i), nil
	case tagFloat:
		f, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return Value{}, fmt.Errorf("malformed float property %q: %w", raw, err)
		}
		return Float(f), nil
	case tagBool:
		b, err := strconv.ParseBool(payload)
		if err != nil {
			return Value{}, fmt.Errorf("malformed boolean property %q: %w", raw, err)
		}
		return Bool(b), nil
	default:
		return Value{}, fmt.Errorf("unknown property kind tag %q", tag)
	}
}
