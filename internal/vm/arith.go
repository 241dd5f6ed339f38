package vm

import (
	"math"

	"luavm/internal/errors"
	"luavm/internal/value"
)

// ArithOp identifies one of the fourteen arithmetic/bitwise operators.
type ArithOp byte

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpMod
	OpPow
	OpDiv
	OpIDiv
	OpBAnd
	OpBOr
	OpBXor
	OpShl
	OpShr
	OpUnm
	OpBNot
)

func ifloorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func imod(a, b int64) int64 { return a - ifloorDiv(a, b)*b }

func ffloorDiv(a, b float64) float64 { return math.Floor(a / b) }

// fmodLua reproduces the host's floating modulo, including its infinity
// special case: modulo by an infinity of the same sign as a returns a
// unchanged, of the opposite sign returns b.
func fmodLua(a, b float64) float64 {
	if math.IsInf(b, 0) {
		if (a >= 0) == (b > 0) {
			return a
		}
		return b
	}
	return a - math.Floor(a/b)*b
}

func shiftLeft(a, n int64) int64 {
	switch {
	case n <= -64 || n >= 64:
		return 0
	case n >= 0:
		return int64(uint64(a) << uint(n))
	default:
		return shiftRight(a, -n)
	}
}

func shiftRight(a, n int64) int64 {
	switch {
	case n <= -64 || n >= 64:
		return 0
	case n >= 0:
		return int64(uint64(a) >> uint(n))
	default:
		return shiftLeft(a, -n)
	}
}

// operator describes one ArithOp's implementation: whether it is defined
// over floats at all, whether it has an integer fast path, and the
// corresponding functions. An operator with no float function is
// integer-only (bitwise ops); one with no dedicated integer function
// always converts to float (DIV, POW).
type operator struct {
	hasIntFn   bool
	hasFloatFn bool
	intFn      func(a, b int64) (int64, error)
	floatFn    func(a, b float64) float64
}

func intDivGuard(f func(a, b int64) int64) func(a, b int64) (int64, error) {
	return func(a, b int64) (int64, error) {
		if b == 0 {
			return 0, errors.New(errors.DivideByZero, "integer division or modulo by zero")
		}
		return f(a, b), nil
	}
}

var operators = [...]operator{
	OpAdd:  {true, true, func(a, b int64) (int64, error) { return a + b, nil }, func(a, b float64) float64 { return a + b }},
	OpSub:  {true, true, func(a, b int64) (int64, error) { return a - b, nil }, func(a, b float64) float64 { return a - b }},
	OpMul:  {true, true, func(a, b int64) (int64, error) { return a * b, nil }, func(a, b float64) float64 { return a * b }},
	OpMod:  {true, true, intDivGuard(imod), fmodLua},
	OpPow:  {false, true, nil, math.Pow},
	OpDiv:  {false, true, nil, func(a, b float64) float64 { return a / b }},
	OpIDiv: {true, true, intDivGuard(ifloorDiv), ffloorDiv},
	OpBAnd: {true, false, func(a, b int64) (int64, error) { return a & b, nil }, nil},
	OpBOr:  {true, false, func(a, b int64) (int64, error) { return a | b, nil }, nil},
	OpBXor: {true, false, func(a, b int64) (int64, error) { return a ^ b, nil }, nil},
	OpShl:  {true, false, func(a, b int64) (int64, error) { return shiftLeft(a, b), nil }, nil},
	OpShr:  {true, false, func(a, b int64) (int64, error) { return shiftRight(a, b), nil }, nil},
	OpUnm:  {true, true, func(a, _ int64) (int64, error) { return -a, nil }, func(a, _ float64) float64 { return -a }},
	OpBNot: {true, false, func(a, _ int64) (int64, error) { return ^a, nil }, nil},
}

// arithValues applies op to a, b (b is ignored for the unary ops UNM/BNOT),
// following the reference's dispatch: operators with no float function
// require both operands to convert exactly to integer; operators with an
// integer fast path take it only when both operands are literally
// integers; everything else converts to float.
func arithValues(op ArithOp, a, b value.Value) (value.Value, error) {
	o := operators[op]
	if !o.hasFloatFn {
		ai, ok1 := a.ToInteger()
		bi, ok2 := b.ToInteger()
		if !ok1 || !ok2 {
			return value.Nil, errors.New(errors.ArithmeticKindError, "attempt to perform bitwise operation on a non-integer value")
		}
		r, err := o.intFn(ai, bi)
		if err != nil {
			return value.Nil, err
		}
		return value.Int(r), nil
	}
	if o.hasIntFn && a.Kind == value.KindInt && b.Kind == value.KindInt {
		r, err := o.intFn(a.AsInt(), b.AsInt())
		if err != nil {
			return value.Nil, err
		}
		return value.Int(r), nil
	}
	af, ok1 := a.ToFloat()
	bf, ok2 := b.ToFloat()
	if !ok1 || !ok2 {
		return value.Nil, errors.New(errors.ArithmeticKindError, "attempt to perform arithmetic on a non-numeric value")
	}
	return value.Float(o.floatFn(af, bf)), nil
}

// Arith pops one operand (UNM, BNOT) or two (everything else) off the
// stack, applies op, and pushes the result.
func (s *State) Arith(op ArithOp) error {
	if op == OpUnm || op == OpBNot {
		a, err := s.stack.Pop()
		if err != nil {
			return err
		}
		r, err := arithValues(op, a, a)
		if err != nil {
			return s.err(errors.ArithmeticKindError, "%s", err.Error())
		}
		return s.Push(r)
	}
	b, err := s.stack.Pop()
	if err != nil {
		return err
	}
	a, err := s.stack.Pop()
	if err != nil {
		return err
	}
	r, err := arithValues(op, a, b)
	if err != nil {
		return err
	}
	return s.Push(r)
}

// CompareOp identifies one of the three comparison operators.
type CompareOp byte

const (
	CompareEQ CompareOp = iota
	CompareLT
	CompareLE
)

// Compare reads (without popping) the values at idx1 and idx2 and applies
// op, erroring only when the operands are not ordering-compatible.
func (s *State) Compare(idx1, idx2 int, op CompareOp) (bool, error) {
	a := s.stack.Get(idx1)
	b := s.stack.Get(idx2)
	switch op {
	case CompareEQ:
		return value.Equal(a, b), nil
	case CompareLT:
		r, ok := value.Less(a, b)
		if !ok {
			return false, s.err(errors.ArithmeticKindError, "attempt to compare incompatible values")
		}
		return r, nil
	case CompareLE:
		r, ok := value.LessEqual(a, b)
		if !ok {
			return false, s.err(errors.ArithmeticKindError, "attempt to compare incompatible values")
		}
		return r, nil
	default:
		return false, s.err(errors.ArithmeticKindError, "unknown comparison operator")
	}
}

// Len computes the length of the value at idx (byte length for strings,
// array-part length for tables) and pushes it.
func (s *State) Len(idx int) error {
	v := s.stack.Get(idx)
	switch {
	case v.IsString():
		return s.PushInt(int64(len(v.AsString())))
	case v.IsTable():
		return s.PushInt(v.AsTable().Len())
	default:
		return s.err(errors.LengthOperatorKindError, "attempt to get length of a %s value", v.TypeName())
	}
}

// Concat folds the top n stack values (closest to the top first) into a
// single string, following the reference's pairwise right-to-left fold:
// n==0 pushes the empty string, n==1 leaves the lone value in place.
func (s *State) Concat(n int) error {
	if n == 0 {
		return s.PushString("")
	}
	for n > 1 {
		top := s.stack.Get(-1)
		second := s.stack.Get(-2)
		topStr, ok1 := top.ToDisplayString()
		secondStr, ok2 := second.ToDisplayString()
		if !ok1 || !ok2 {
			return s.err(errors.ConcatKindError, "attempt to concatenate a non-string, non-numeric value")
		}
		if err := s.Pop(2); err != nil {
			return err
		}
		if err := s.PushString(secondStr + topStr); err != nil {
			return err
		}
		n--
	}
	return nil
}

// GetTableImpl pops a key off the top and pushes table[idx][key].
func (s *State) GetTableImpl(idx int) error {
	key, err := s.stack.Pop()
	if err != nil {
		return err
	}
	t := s.stack.Get(idx)
	if !t.IsTable() {
		return s.err(errors.TableKeyInvalid, "attempt to index a %s value", t.TypeName())
	}
	return s.Push(t.AsTable().Get(key))
}

// SetTableImpl pops a value then a key off the top and stores
// table[idx][key] = value.
func (s *State) SetTableImpl(idx int) error {
	val, err := s.stack.Pop()
	if err != nil {
		return err
	}
	key, err := s.stack.Pop()
	if err != nil {
		return err
	}
	t := s.stack.Get(idx)
	if !t.IsTable() {
		return s.err(errors.TableKeyInvalid, "attempt to index a %s value", t.TypeName())
	}
	if err := t.AsTable().Put(key, val); err != nil {
		return s.err(errors.TableKeyInvalid, "%s", err.Error())
	}
	return nil
}

// SetI sets table[idx][i] = top-of-stack, popping the value.
func (s *State) SetI(idx int, i int64) error {
	val, err := s.stack.Pop()
	if err != nil {
		return err
	}
	t := s.stack.Get(idx)
	if !t.IsTable() {
		return s.err(errors.TableKeyInvalid, "attempt to index a %s value", t.TypeName())
	}
	if err := t.AsTable().Put(value.Int(i), val); err != nil {
		return s.err(errors.TableKeyInvalid, "%s", err.Error())
	}
	return nil
}

// GetField pushes table[idx][key] for a string key, a thin wrapper over the
// same table-access path GetTableImpl uses.
func (s *State) GetField(idx int, key string) error {
	t := s.stack.Get(idx)
	if !t.IsTable() {
		return s.err(errors.TableKeyInvalid, "attempt to index a %s value", t.TypeName())
	}
	return s.Push(t.AsTable().Get(value.Str(key)))
}

// GetI pushes table[idx][n] for an integer key n.
func (s *State) GetI(idx int, n int64) error {
	t := s.stack.Get(idx)
	if !t.IsTable() {
		return s.err(errors.TableKeyInvalid, "attempt to index a %s value", t.TypeName())
	}
	return s.Push(t.AsTable().Get(value.Int(n)))
}

// SetField sets table[idx][key] = top-of-stack for a string key, popping
// the value.
func (s *State) SetField(idx int, key string) error {
	val, err := s.stack.Pop()
	if err != nil {
		return err
	}
	t := s.stack.Get(idx)
	if !t.IsTable() {
		return s.err(errors.TableKeyInvalid, "attempt to index a %s value", t.TypeName())
	}
	if err := t.AsTable().Put(value.Str(key), val); err != nil {
		return s.err(errors.TableKeyInvalid, "%s", err.Error())
	}
	return nil
}
