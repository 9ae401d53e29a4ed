package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies one scalar type accepted in flat configuration input.
// Params: constants for null/bool/int/float/string.
// Returns: discriminator used by schema checks and tree rendering.
type Kind uint8

const (
	// KindNull marks JSON null.
	KindNull Kind = iota
	// KindBool marks JSON true/false.
	KindBool
	// KindInt marks a JSON number literal without fraction or exponent.
	KindInt
	// KindFloat marks a JSON number literal with fraction or exponent.
	KindFloat
	// KindString marks a JSON string.
	KindString
)

var kindNames = map[Kind]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
}

// String returns lower-case kind name.
// Params: none.
// Returns: kind label used in error messages and schema files.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseKind converts schema type label into Kind.
// Params: label such as "int", "float", "bool", "str".
// Returns: kind or error for unsupported labels.
func ParseKind(label string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "bool", "boolean":
		return KindBool, nil
	case "int", "integer":
		return KindInt, nil
	case "float", "number":
		return KindFloat, nil
	case "str", "string":
		return KindString, nil
	default:
		return KindNull, fmt.Errorf("unsupported type %q", label)
	}
}

// KindSet is a closed set of acceptable kinds for one schema entry.
type KindSet uint8

// Kinds builds a set from listed kinds.
// Params: accepted kinds in declaration order.
// Returns: bitmask set.
func Kinds(kinds ...Kind) KindSet {
	var set KindSet
	for _, kind := range kinds {
		set |= 1 << kind
	}
	return set
}

// Has reports whether kind belongs to the set.
func (s KindSet) Has(kind Kind) bool {
	return s&(1<<kind) != 0
}

// Empty reports whether the set accepts nothing.
func (s KindSet) Empty() bool {
	return s == 0
}

// String renders the set as "float or int" style label.
// Params: none.
// Returns: human-readable list of accepted kinds.
func (s KindSet) String() string {
	names := make([]string, 0, 4)
	for _, kind := range []Kind{KindFloat, KindInt, KindBool, KindString} {
		if s.Has(kind) {
			names = append(names, kind.String())
		}
	}
	if len(names) == 0 {
		return "nothing"
	}
	return strings.Join(names, " or ")
}

// Value is one scalar copied verbatim from flat input.
// Params: Kind selects which payload is meaningful; Text keeps number literal or string body.
// Returns: strict typed scalar for validation and tree leaves.
type Value struct {
	Kind Kind
	B    bool
	Text string
}

// Bool builds a boolean value.
func Bool(b bool) Value {
	return Value{Kind: KindBool, B: b}
}

// String builds a string value.
func String(s string) Value {
	return Value{Kind: KindString, Text: s}
}

// Int builds an integer value.
func Int(n int64) Value {
	return Value{Kind: KindInt, Text: strconv.FormatInt(n, 10)}
}

// Float builds a floating-point value.
// Params: number to render.
// Returns: float value whose literal always carries a fraction or exponent.
func Float(f float64) Value {
	text := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(text, ".eEnN") {
		text += ".0"
	}
	return Value{Kind: KindFloat, Text: text}
}

// Null builds a null value.
func Null() Value {
	return Value{Kind: KindNull}
}

// Number returns numeric value for int/float kinds.
// Params: none.
// Returns: float64 value and true when value is numeric and parseable.
func (v Value) Number() (float64, bool) {
	if v.Kind != KindInt && v.Kind != KindFloat {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.Text, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Display renders value for logs and messages.
// Params: none.
// Returns: literal text of the scalar.
func (v Value) Display() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.B)
	case KindString:
		return strconv.Quote(v.Text)
	default:
		return v.Text
	}
}

// Interface converts value into plain Go scalar for JSON or scripting bridges.
// Params: none.
// Returns: nil, bool, int64, float64, or string.
func (v Value) Interface() any {
	switch v.Kind {
	case KindBool:
		return v.B
	case KindString:
		return v.Text
	case KindInt:
		if n, err := strconv.ParseInt(v.Text, 10, 64); err == nil {
			return n
		}
		f, _ := v.Number()
		return f
	case KindFloat:
		f, _ := v.Number()
		return f
	default:
		return nil
	}
}

// ErrNotScalar reports object/array values where a scalar is required.
var ErrNotScalar = errors.New("value is not a scalar")

// ValueFromJSON converts one decoded JSON value into Value.
// Params: value decoded with json.Decoder.UseNumber.
// Returns: typed value or ErrNotScalar for objects and arrays.
func ValueFromJSON(raw any) (Value, error) {
	switch typed := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(typed), nil
	case string:
		return String(typed), nil
	case json.Number:
		text := typed.String()
		if strings.ContainsAny(text, ".eE") {
			return Value{Kind: KindFloat, Text: text}, nil
		}
		return Value{Kind: KindInt, Text: text}, nil
	case float64:
		return Float(typed), nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrNotScalar, raw)
	}
}
