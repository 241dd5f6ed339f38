// Package value implements the VM's dynamically-typed Value and its hybrid
// array/hash Table, mirroring the six-shape variant and table migration laws
// of a Lua 5.3-style runtime.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dchest/siphash"

	vmerrors "luavm/internal/errors"
)

// Kind tags which shape a Value currently holds.
type Kind byte

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "boolean"
	case KindInt, KindFloat:
		return "number"
	case KindString:
		return "string"
	case KindTable:
		return "table"
	default:
		return "unknown"
	}
}

// Value is the tagged union the stack, registers, and constants hold.
// Exactly one of the typed fields is meaningful, selected by Kind.
type Value struct {
	Kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	t    *Table
}

var Nil = Value{Kind: KindNil}

func Bool(b bool) Value   { return Value{Kind: KindBool, b: b} }
func Int(i int64) Value   { return Value{Kind: KindInt, i: i} }
func Float(f float64) Value { return Value{Kind: KindFloat, f: f} }
func Str(s string) Value  { return Value{Kind: KindString, s: s} }
func FromTable(t *Table) Value { return Value{Kind: KindTable, t: t} }

func (v Value) IsNil() bool   { return v.Kind == KindNil }
func (v Value) IsBool() bool  { return v.Kind == KindBool }
func (v Value) IsInt() bool   { return v.Kind == KindInt }
func (v Value) IsFloat() bool { return v.Kind == KindFloat }
func (v Value) IsNumber() bool { return v.Kind == KindInt || v.Kind == KindFloat }
func (v Value) IsString() bool { return v.Kind == KindString }
func (v Value) IsTable() bool { return v.Kind == KindTable }

func (v Value) AsBool() bool     { return v.b }
func (v Value) AsInt() int64     { return v.i }
func (v Value) AsFloat() float64 { return v.f }
func (v Value) AsString() string { return v.s }
func (v Value) AsTable() *Table  { return v.t }

// Truthy follows the host's rule: everything is true except nil and false.
func (v Value) Truthy() bool {
	return !(v.Kind == KindNil || (v.Kind == KindBool && !v.b))
}

// TypeName names the value's type the way the runtime's type() would.
func (v Value) TypeName() string { return v.Kind.String() }

// ToFloat widens int/float to a float64; a string argument is parsed.
// It mirrors convert_to_float: only numbers and numeric strings qualify.
func (v Value) ToFloat() (float64, bool) {
	switch v.Kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	case KindString:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// floatToInteger succeeds only when f has no fractional part and round-trips
// exactly, matching the source's exactness check.
func floatToInteger(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	i := int64(f)
	if float64(i) == f {
		return i, true
	}
	return 0, false
}

// ToInteger mirrors convert_to_integer: int passes through, float must be
// exact, strings try integer parse then float-with-exactness.
func (v Value) ToInteger() (int64, bool) {
	switch v.Kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		return floatToInteger(v.f)
	case KindString:
		s := strings.TrimSpace(v.s)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return floatToInteger(f)
		}
	}
	return 0, false
}

// ToDisplayString renders a value for CONCAT and string coercion, matching
// the source's to_string: integers and floats format as numbers, strings
// pass through unchanged, everything else is not a valid operand.
func (v Value) ToDisplayString() (string, bool) {
	switch v.Kind {
	case KindString:
		return v.s, true
	case KindInt:
		return strconv.FormatInt(v.i, 10), true
	case KindFloat:
		return formatFloat(v.f), true
	default:
		return "", false
	}
}

func formatFloat(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	if math.IsNaN(f) {
		return "nan"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', 14, 64)
}

func (v Value) String() string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindString:
		return v.s
	case KindTable:
		return fmt.Sprintf("table: %p", v.t)
	default:
		return "?"
	}
}

// bothNumeric reports whether both operands are numbers, qualifying for
// cross-shape numeric equality and ordering.
func bothNumeric(a, b Value) bool { return a.IsNumber() && b.IsNumber() }

// Equal implements the host's cross-shape equality: same kind compares the
// underlying payload, and int/float compare numerically across kinds.
func Equal(a, b Value) bool {
	if a.Kind == b.Kind {
		switch a.Kind {
		case KindNil:
			return true
		case KindBool:
			return a.b == b.b
		case KindInt:
			return a.i == b.i
		case KindFloat:
			return a.f == b.f
		case KindString:
			return a.s == b.s
		case KindTable:
			return a.t == b.t
		}
	}
	if bothNumeric(a, b) {
		af, _ := a.ToFloat()
		bf, _ := b.ToFloat()
		return af == bf
	}
	return false
}

// Less and LessEqual implement ordering: same-kind strings compare
// lexicographically, numbers compare across kinds, anything else is a kind
// error for the caller to raise.
func Less(a, b Value) (bool, bool) {
	if a.Kind == KindString && b.Kind == KindString {
		return a.s < b.s, true
	}
	if bothNumeric(a, b) {
		af, _ := a.ToFloat()
		bf, _ := b.ToFloat()
		return af < bf, true
	}
	return false, false
}

func LessEqual(a, b Value) (bool, bool) {
	if a.Kind == KindString && b.Kind == KindString {
		return a.s <= b.s, true
	}
	if bothNumeric(a, b) {
		af, _ := a.ToFloat()
		bf, _ := b.ToFloat()
		return af <= bf, true
	}
	return false, false
}

var hashKey = [16]byte{0x5a, 0x4e, 0x65, 0x8f, 0x11, 0x22, 0x33, 0x44, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff, 0x01, 0x02}

// Hash computes a lookup key for the table's hash part. Every table value
// hashes to 0, so table keys share one bucket and are told apart by Equal's
// identity comparison.
func (v Value) Hash() uint64 {
	switch v.Kind {
	case KindNil:
		return 0
	case KindBool:
		if v.b {
			return 1
		}
		return 2
	case KindInt:
		var buf [8]byte
		putUint64(buf[:], uint64(v.i))
		return siphash.Hash(binaryLE(hashKey[:8]), binaryLE(hashKey[8:]), buf[:])
	case KindFloat:
		// An integer-valued float must hash the same as the equal-by-value
		// int (Equal treats them as equal), or it would silently land in
		// the wrong hash bucket.
		var buf [8]byte
		if i, ok := floatToInteger(v.f); ok {
			putUint64(buf[:], uint64(i))
		} else {
			putUint64(buf[:], math.Float64bits(v.f))
		}
		return siphash.Hash(binaryLE(hashKey[:8]), binaryLE(hashKey[8:]), buf[:])
	case KindString:
		return siphash.Hash(binaryLE(hashKey[:8]), binaryLE(hashKey[8:]), []byte(v.s))
	default:
		return 0
	}
}

func putUint64(b []byte, x uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(x >> (8 * i))
	}
}

func binaryLE(b []byte) uint64 {
	var x uint64
	for i := 7; i >= 0; i-- {
		x = x<<8 | uint64(b[i])
	}
	return x
}

// NewError is a small convenience so callers in this package can raise
// VM errors without importing the errors package under a longer alias.
func NewError(kind vmerrors.Kind, format string, args ...interface{}) error {
	return vmerrors.New(kind, format, args...)
}
