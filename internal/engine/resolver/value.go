package resolver

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Kind tags the content of a Value.
type Kind int

const (
	// KindUnresolved marks a name whose value could not be determined
	// statically, such as a variable-store miss.
	KindUnresolved Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindUnresolved:
		return "unresolved"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// UnresolvedText is how an unresolved value prints.
const UnresolvedText = "undefined_variable_reference"

// Value is a resolved constant. The zero Value is Unresolved.
type Value struct {
	kind Kind
	str  string
	i    int64
	f    float64
	b    bool
}

// Unresolved returns the marker for a value that could not be determined.
func Unresolved() Value { return Value{} }

func String(s string) Value { return Value{kind: KindString, str: s} }

func Int(i int64) Value { return Value{kind: KindInt, i: i} }

func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsUnresolved() bool { return v.kind == KindUnresolved }

// AsString returns the string payload when v is a String.
func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// Equal reports whether both values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindBool:
		return v.b == o.b
	default:
		return true
	}
}

// String renders v the way Python's str() would render the constant, which
// is also what an f-string embed of it produces.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	default:
		return UnresolvedText
	}
}

// Interpolated is the text v contributes to an f-string or concatenation.
// Unresolved values contribute nothing.
func (v Value) Interpolated() string {
	if v.kind == KindUnresolved {
		return ""
	}
	return v.String()
}

// MarshalJSON writes the payload as its JSON counterpart; Unresolved is null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		if math.IsInf(v.f, 0) || math.IsNaN(v.f) {
			return json.Marshal(formatFloat(v.f))
		}
		return json.Marshal(v.f)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
